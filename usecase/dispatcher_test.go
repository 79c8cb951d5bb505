package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherRoutesByName(t *testing.T) {
	d := NewDispatcher()
	d.RegisterCommand(CommandSweepReminders, func(_ context.Context, payload interface{}) (interface{}, error) {
		return payload.(int) * 2, nil
	})
	d.RegisterQuery(QueryLeadsDue, func(context.Context, interface{}) (interface{}, error) {
		return "due", nil
	})

	got, err := d.ExecuteCommand(context.Background(), CommandSweepReminders, 21)
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	got, err = d.ExecuteQuery(context.Background(), QueryLeadsDue, nil)
	require.NoError(t, err)
	assert.Equal(t, "due", got)

	_, err = d.ExecuteCommand(context.Background(), CommandDrainOutbox, nil)
	require.Error(t, err)
	_, err = d.ExecuteQuery(context.Background(), QueryFinanceSummary, nil)
	require.Error(t, err)

	commands, queries := d.Names()
	assert.Equal(t, []string{CommandSweepReminders}, commands)
	assert.Equal(t, []string{QueryLeadsDue}, queries)
}

func TestClockFallsBackToUTC(t *testing.T) {
	var c Clock
	assert.Equal(t, "UTC", c.Now().Location().String())
}
