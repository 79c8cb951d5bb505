package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Operation names shared by the HTTP server and the operator CLI.
const (
	CommandSweepReminders  = "reminders.sweep"
	CommandDrainOutbox     = "outbox.drain"
	CommandReplayOutbox    = "outbox.replay"
	QueryFinanceSummary    = "finance.summary"
	QueryLeadsDue          = "leads.due"
	QueryOutboxDeadLetters = "outbox.dead"
)

type CommandHandler func(ctx context.Context, payload interface{}) (interface{}, error)
type QueryHandler func(ctx context.Context, params interface{}) (interface{}, error)

// Dispatcher routes named commands and queries to registered handlers.
type Dispatcher struct {
	cmdHandlers map[string]CommandHandler
	qryHandlers map[string]QueryHandler
	mu          sync.RWMutex
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		cmdHandlers: make(map[string]CommandHandler),
		qryHandlers: make(map[string]QueryHandler),
	}
}

func (d *Dispatcher) RegisterCommand(name string, handler CommandHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cmdHandlers[name] = handler
}

func (d *Dispatcher) RegisterQuery(name string, handler QueryHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.qryHandlers[name] = handler
}

func (d *Dispatcher) ExecuteCommand(ctx context.Context, name string, payload interface{}) (interface{}, error) {
	d.mu.RLock()
	handler, ok := d.cmdHandlers[name]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("command handler %s not registered", name)
	}
	return handler(ctx, payload)
}

func (d *Dispatcher) ExecuteQuery(ctx context.Context, name string, params interface{}) (interface{}, error) {
	d.mu.RLock()
	handler, ok := d.qryHandlers[name]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("query handler %s not registered", name)
	}
	return handler(ctx, params)
}

// Names lists registered commands and queries in sorted order.
func (d *Dispatcher) Names() (commands, queries []string) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for name := range d.cmdHandlers {
		commands = append(commands, name)
	}
	for name := range d.qryHandlers {
		queries = append(queries, name)
	}
	sort.Strings(commands)
	sort.Strings(queries)
	return commands, queries
}
