package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyLead(t *testing.T) {
	past := testNow.Add(-time.Hour)
	future := testNow.Add(time.Hour)

	tests := []struct {
		name string
		lead Lead
		want LeadView
	}{
		{
			name: "never contacted",
			lead: Lead{Priority: PriorityLow, FollowUpStatus: FollowUpPending},
			want: LeadView{IsNewLead: true, NeedsCall: true, EffectivePriority: PriorityLow},
		},
		{
			name: "pending follow-up in the past",
			lead: Lead{Priority: PriorityLow, FollowUpStatus: FollowUpPending, NextFollowUp: &past, LastContact: &past},
			want: LeadView{IsOverdue: true, NeedsCall: true, EffectivePriority: PriorityUrgent},
		},
		{
			name: "done follow-up whose date arrived",
			lead: Lead{Priority: PriorityHigh, FollowUpStatus: FollowUpDone, NextFollowUp: &past, LastContact: &past},
			want: LeadView{FollowUpDoneButDateArrived: true, NeedsCall: true, EffectivePriority: PriorityHigh},
		},
		{
			name: "follow-up due exactly now",
			lead: Lead{Priority: PriorityNormal, FollowUpStatus: FollowUpPending, NextFollowUp: &testNow},
			want: LeadView{IsOverdue: true, NeedsCall: true, EffectivePriority: PriorityUrgent},
		},
		{
			name: "scheduled in the future",
			lead: Lead{Priority: PriorityNormal, FollowUpStatus: FollowUpPending, NextFollowUp: &future, LastContact: &past},
			want: LeadView{EffectivePriority: PriorityNormal},
		},
		{
			name: "contacted with no next date",
			lead: Lead{FollowUpStatus: FollowUpDone, LastContact: &past},
			want: LeadView{EffectivePriority: PriorityNormal},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyLead(&tc.lead, testNow)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("ClassifyLead mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLeadNormalize(t *testing.T) {
	l := Lead{Name: "  Bakery  "}
	require.NoError(t, l.Normalize(testNow))
	assert.Equal(t, "Bakery", l.Name)
	assert.Equal(t, LeadNotSure, l.Status)
	assert.Equal(t, PriorityNormal, l.Priority)
	assert.Equal(t, FollowUpPending, l.FollowUpStatus)

	assert.ErrorIs(t, (&Lead{}).Normalize(testNow), ErrLeadNameRequired)
	assert.ErrorIs(t, (&Lead{Name: "x", InterestLevel: 101}).Normalize(testNow), ErrInterestLevel)
	assert.ErrorIs(t, (&Lead{Name: "x", Status: "hot"}).Normalize(testNow), ErrLeadStatus)
}

func TestLogCall(t *testing.T) {
	next := testNow.Add(72 * time.Hour)
	level := 80

	l := &Lead{ID: "l1", Name: "Bakery", Status: LeadNotSure, FollowUpStatus: FollowUpPending}
	_, err := l.LogCall(CallLog{Summary: "  "}, testNow)
	assert.ErrorIs(t, err, ErrSummaryRequired)
	_, err = l.LogCall(CallLog{Summary: "x", Outcome: OutcomeCallCompleted}, testNow)
	assert.ErrorIs(t, err, ErrCallOutcome)

	note, err := l.LogCall(CallLog{Outcome: OutcomeInterested, Summary: "wants a site", InterestLevel: &level, NextFollowUp: &next}, testNow)
	require.NoError(t, err)
	assert.Equal(t, OutcomeInterested, note.Outcome)
	assert.Equal(t, "wants a site", note.Content)
	assert.Equal(t, LeadInterested, l.Status)
	assert.Equal(t, 80, l.InterestLevel)
	assert.Equal(t, FollowUpPending, l.FollowUpStatus)
	assert.True(t, l.NextFollowUp.Equal(next))
	assert.True(t, l.LastContact.Equal(testNow))
	assert.Len(t, l.Notes, 1)

	_, err = l.LogCall(CallLog{Outcome: OutcomeNotInterested, Summary: "no budget"}, testNow)
	require.NoError(t, err)
	assert.Equal(t, LeadNotInterested, l.Status)
	assert.Nil(t, l.NextFollowUp)
	assert.Equal(t, FollowUpDone, l.FollowUpStatus)

	fresh := &Lead{ID: "l2", Name: "Cafe"}
	note, err = fresh.LogCall(CallLog{Summary: "left a message"}, testNow)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCallBack, note.Outcome)
}

func TestMarkCallDoneAndNoResponse(t *testing.T) {
	next := testNow.Add(48 * time.Hour)
	l := &Lead{ID: "l1", Name: "Bakery", FollowUpStatus: FollowUpDone}

	_, err := l.MarkCallDone("", &next, testNow)
	assert.ErrorIs(t, err, ErrCommentRequired)
	_, err = l.MarkCallDone("talked", nil, testNow)
	assert.ErrorIs(t, err, ErrNextCallRequired)

	note, err := l.MarkCallDone(" talked ", &next, testNow)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCallCompleted, note.Outcome)
	assert.Equal(t, FollowUpPending, l.FollowUpStatus)
	assert.True(t, l.NextFollowUp.Equal(next))

	note = l.NoResponse(testNow, 24*time.Hour)
	assert.Equal(t, OutcomeNoResponse, note.Outcome)
	assert.Equal(t, FollowUpDone, l.FollowUpStatus)
	assert.True(t, l.NextFollowUp.Equal(testNow.Add(24*time.Hour)))

	view := ClassifyLead(l, testNow.Add(25*time.Hour))
	assert.True(t, view.FollowUpDoneButDateArrived)
	assert.True(t, view.NeedsCall)

	l.QuickMarkCalled(testNow)
	assert.Equal(t, FollowUpDone, l.FollowUpStatus)
	assert.Len(t, l.Notes, 2)
}

func TestConvertToClient(t *testing.T) {
	l := &Lead{ID: "l1", Name: "Jane", Phone: "555", Address: "Main St", Status: LeadInterested}
	c, err := l.ConvertToClient(testNow)
	require.NoError(t, err)
	assert.Equal(t, LeadConverted, l.Status)
	assert.Equal(t, "Jane", c.BusinessName)
	assert.Equal(t, "Jane", c.OwnerName)
	assert.Equal(t, ClientOnboarding, c.Status)
	assert.Equal(t, PaymentPending, c.PaymentStatus)
	require.NotNil(t, c.LeadID)
	assert.Equal(t, "l1", *c.LeadID)
	assert.Empty(t, c.Services)

	_, err = l.ConvertToClient(testNow)
	assert.ErrorIs(t, err, ErrLeadConverted)

	named := &Lead{ID: "l2", Name: "Bob", BusinessName: "Bob's Bikes"}
	c, err = named.ConvertToClient(testNow)
	require.NoError(t, err)
	assert.Equal(t, "Bob's Bikes", c.BusinessName)
}

func TestParseLegacyNotes(t *testing.T) {
	fallback := testNow
	text := "[2024-03-01T10:00:00Z] no_response: No answer\n\n" +
		"[2024-03-02T11:30:00Z] interested: Wants pricing:\nsend by Friday\n\n" +
		"free text without header"

	notes := ParseLegacyNotes("l1", text, fallback)
	require.Len(t, notes, 3)

	assert.Equal(t, OutcomeNoResponse, notes[0].Outcome)
	assert.Equal(t, "No answer", notes[0].Content)
	assert.True(t, notes[0].CreatedAt.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))

	assert.Equal(t, OutcomeInterested, notes[1].Outcome)
	assert.Equal(t, "Wants pricing:\nsend by Friday", notes[1].Content)

	assert.Equal(t, OutcomeNote, notes[2].Outcome)
	assert.Equal(t, "free text without header", notes[2].Content)
	assert.True(t, notes[2].CreatedAt.Equal(fallback))

	assert.Nil(t, ParseLegacyNotes("l1", "   ", fallback))
}

func TestSortLeadsPutsUndatedLast(t *testing.T) {
	d1 := testNow.Add(time.Hour)
	d2 := testNow.Add(2 * time.Hour)
	leads := []ClassifiedLead{
		{Lead: Lead{ID: "none-high"}, View: LeadView{EffectivePriority: PriorityHigh}},
		{Lead: Lead{ID: "d2-normal", NextFollowUp: &d2}, View: LeadView{EffectivePriority: PriorityNormal}},
		{Lead: Lead{ID: "none-normal"}, View: LeadView{EffectivePriority: PriorityNormal}},
		{Lead: Lead{ID: "d1-normal", NextFollowUp: &d1}, View: LeadView{EffectivePriority: PriorityNormal}},
		{Lead: Lead{ID: "d2-high", NextFollowUp: &d2}, View: LeadView{EffectivePriority: PriorityHigh}},
	}
	SortLeads(leads)

	got := make([]string, 0, len(leads))
	for _, l := range leads {
		got = append(got, l.ID)
	}
	assert.Equal(t, []string{"d2-high", "none-high", "d1-normal", "d2-normal", "none-normal"}, got)
}

func TestFilterLeadsAndSummary(t *testing.T) {
	past := testNow.Add(-2 * time.Hour)
	soon := testNow.Add(-time.Hour)
	future := testNow.Add(24 * time.Hour)
	contactedToday := testNow.Add(-30 * time.Minute)

	leads := []Lead{
		{ID: "new", Name: "Alpha", Priority: PriorityLow, FollowUpStatus: FollowUpPending},
		{ID: "overdue-late", Name: "Bravo", Priority: PriorityLow, FollowUpStatus: FollowUpPending, NextFollowUp: &soon, LastContact: &past},
		{ID: "overdue-early", Name: "Charlie", Priority: PriorityNormal, FollowUpStatus: FollowUpPending, NextFollowUp: &past, LastContact: &past},
		{ID: "done", Name: "Delta Shop", Priority: PriorityHigh, FollowUpStatus: FollowUpPending, NextFollowUp: &future, LastContact: &contactedToday},
		{ID: "converted", Name: "Echo", Status: LeadConverted, FollowUpStatus: FollowUpPending},
	}

	ids := func(in []ClassifiedLead) []string {
		out := make([]string, 0, len(in))
		for _, l := range in {
			out = append(out, l.ID)
		}
		return out
	}

	all := FilterLeads(leads, LeadListFilter{}, testNow)
	assert.Equal(t, []string{"overdue-early", "overdue-late", "done", "new"}, ids(all))

	pending := FilterLeads(leads, LeadListFilter{CallStatus: CallStatusPending}, testNow)
	assert.ElementsMatch(t, []string{"overdue-early", "overdue-late", "new"}, ids(pending))

	done := FilterLeads(leads, LeadListFilter{CallStatus: CallStatusDone}, testNow)
	assert.Equal(t, []string{"done"}, ids(done))

	overdue := FilterLeads(leads, LeadListFilter{OverdueOnly: true}, testNow)
	assert.Len(t, overdue, 2)

	search := FilterLeads(leads, LeadListFilter{Search: "shop"}, testNow)
	assert.Equal(t, []string{"done"}, ids(search))

	urgent := FilterLeads(leads, LeadListFilter{Priority: PriorityUrgent}, testNow)
	assert.Len(t, urgent, 2)

	inThree := testNow.Add(72 * time.Hour)
	inOne := testNow.Add(24 * time.Hour)
	mixed := []Lead{
		{ID: "later", Name: "A", Priority: PriorityNormal, FollowUpStatus: FollowUpDone, NextFollowUp: &inThree, LastContact: &past},
		{ID: "undated", Name: "B", Priority: PriorityNormal, FollowUpStatus: FollowUpDone, LastContact: &past},
		{ID: "sooner", Name: "C", Priority: PriorityNormal, FollowUpStatus: FollowUpDone, NextFollowUp: &inOne, LastContact: &past},
	}
	assert.Equal(t, []string{"sooner", "later", "undated"}, ids(FilterLeads(mixed, LeadListFilter{}, testNow)))

	s := SummarizeLeads(leads, testNow)
	assert.Equal(t, LeadSummary{PendingCalls: 3, DoneCalls: 1, DoneToday: 1, Overdue: 2, NewLeads: 1}, s)
}
