package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// Tables that publish change events.
const (
	TableTasks        = "tasks"
	TableTaskComments = "task_comments"
	TableLeads        = "leads"
	TableClients      = "clients"
	TableIncome       = "income_records"
	TableProfiles     = "profiles"
	TablePromotions   = "admin_promotion_requests"
	TableJoinRequests = "team_join_requests"
	TableInvitations  = "team_invitations"
)

// ChangeEvent tells subscribers that a row changed. Consumers re-fetch; the
// record is a hint, not an authoritative delta.
type ChangeEvent struct {
	Table    string            `json:"table"`
	Type     ChangeType        `json:"type"`
	RecordID string            `json:"record_id"`
	Fields   map[string]string `json:"fields,omitempty"`
	Record   json.RawMessage   `json:"record,omitempty"`
	At       time.Time         `json:"at"`
}

// NewChangeEvent snapshots record as JSON. Fields carries the filterable columns.
func NewChangeEvent(table string, kind ChangeType, id string, record any, fields map[string]string, now time.Time) ChangeEvent {
	ev := ChangeEvent{Table: table, Type: kind, RecordID: id, Fields: fields, At: now}
	if record != nil {
		if raw, err := json.Marshal(record); err == nil {
			ev.Record = raw
		}
	}
	return ev
}

// ChangeFilter is a single "column=eq.value" predicate.
type ChangeFilter struct {
	Column string
	Value  string
}

// ParseChangeFilter accepts "", "column=eq.value" or "column=value".
func ParseChangeFilter(raw string) (ChangeFilter, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ChangeFilter{}, nil
	}
	column, value, ok := strings.Cut(raw, "=")
	if !ok || column == "" {
		return ChangeFilter{}, fmt.Errorf("invalid change filter %q", raw)
	}
	value = strings.TrimPrefix(value, "eq.")
	return ChangeFilter{Column: column, Value: value}, nil
}

// Matches reports whether the event passes the filter. An empty filter matches everything.
func (f ChangeFilter) Matches(ev ChangeEvent) bool {
	if f.Column == "" {
		return true
	}
	if f.Column == "id" {
		return ev.RecordID == f.Value
	}
	v, ok := ev.Fields[f.Column]
	return ok && v == f.Value
}

// KnownTable reports whether table publishes change events.
func KnownTable(table string) bool {
	switch table {
	case TableTasks, TableTaskComments, TableLeads, TableClients, TableIncome,
		TableProfiles, TablePromotions, TableJoinRequests, TableInvitations:
		return true
	}
	return false
}
