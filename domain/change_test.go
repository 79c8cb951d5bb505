package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChangeFilter(t *testing.T) {
	tests := []struct {
		raw     string
		want    ChangeFilter
		wantErr bool
	}{
		{"", ChangeFilter{}, false},
		{"assigned_to=eq.u1", ChangeFilter{Column: "assigned_to", Value: "u1"}, false},
		{"status=done", ChangeFilter{Column: "status", Value: "done"}, false},
		{"=eq.u1", ChangeFilter{}, true},
		{"assigned_to", ChangeFilter{}, true},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := ParseChangeFilter(tc.raw)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestChangeFilterMatches(t *testing.T) {
	ev := NewChangeEvent(TableTasks, ChangeUpdate, "t1", map[string]string{"title": "x"},
		map[string]string{"assigned_to": "u1"}, testNow)

	assert.True(t, ChangeFilter{}.Matches(ev))
	assert.True(t, ChangeFilter{Column: "id", Value: "t1"}.Matches(ev))
	assert.True(t, ChangeFilter{Column: "assigned_to", Value: "u1"}.Matches(ev))
	assert.False(t, ChangeFilter{Column: "assigned_to", Value: "u2"}.Matches(ev))
	assert.False(t, ChangeFilter{Column: "status", Value: "pending"}.Matches(ev))

	var record map[string]string
	require.NoError(t, json.Unmarshal(ev.Record, &record))
	assert.Equal(t, "x", record["title"])
}

func TestKnownTable(t *testing.T) {
	assert.True(t, KnownTable(TableLeads))
	assert.True(t, KnownTable(TableIncome))
	assert.False(t, KnownTable("pg_authid"))
	assert.False(t, KnownTable(""))
}
