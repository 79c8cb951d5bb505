package domain

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

type LeadStatus string

const (
	LeadNotInterested LeadStatus = "not_interested"
	LeadNotSure       LeadStatus = "not_sure"
	LeadInterested    LeadStatus = "interested"
	LeadConverted     LeadStatus = "converted"
)

func (s LeadStatus) Valid() bool {
	switch s {
	case LeadNotInterested, LeadNotSure, LeadInterested, LeadConverted:
		return true
	}
	return false
}

type FollowUpStatus string

const (
	FollowUpPending FollowUpStatus = "pending"
	FollowUpDone    FollowUpStatus = "done"
	FollowUpSkipped FollowUpStatus = "skipped"
)

// CallOutcome tags a lead activity entry.
type CallOutcome string

const (
	OutcomeNoResponse    CallOutcome = "no_response"
	OutcomeCallBack      CallOutcome = "call_back"
	OutcomeInterested    CallOutcome = "interested"
	OutcomeNotInterested CallOutcome = "not_interested"
	OutcomeCallCompleted CallOutcome = "call_completed"
	OutcomeNote          CallOutcome = "note"
)

// Loggable reports whether the outcome may be picked in the free-form call log.
func (o CallOutcome) Loggable() bool {
	switch o {
	case OutcomeNoResponse, OutcomeCallBack, OutcomeInterested, OutcomeNotInterested:
		return true
	}
	return false
}

// Lead is a sales prospect in the calling pipeline.
type Lead struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Phone            string         `json:"phone,omitempty"`
	Email            string         `json:"email,omitempty"`
	Address          string         `json:"address,omitempty"`
	BusinessName     string         `json:"business_name,omitempty"`
	BusinessCategory string         `json:"business_category,omitempty"`
	Source           string         `json:"source,omitempty"`
	AssignedTo       string         `json:"assigned_to,omitempty"`
	Status           LeadStatus     `json:"status"`
	InterestLevel    int            `json:"interest_level"`
	Priority         Priority       `json:"priority"`
	FollowUpStatus   FollowUpStatus `json:"follow_up_status"`
	LastContact      *time.Time     `json:"last_contact,omitempty"`
	NextFollowUp     *time.Time     `json:"next_follow_up,omitempty"`
	Notes            []LeadNote     `json:"notes,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// LeadNote is one entry of a lead's append-only activity log.
type LeadNote struct {
	ID        string      `json:"id"`
	LeadID    string      `json:"lead_id"`
	AuthorID  string      `json:"author_id,omitempty"`
	Outcome   CallOutcome `json:"outcome"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
}

func (l *Lead) IsConverted() bool {
	return l != nil && l.Status == LeadConverted
}

// Normalize fills defaults for a freshly entered lead and validates it.
func (l *Lead) Normalize(now time.Time) error {
	l.Name = strings.TrimSpace(l.Name)
	if l.Name == "" {
		return ErrLeadNameRequired
	}
	if l.Status == "" {
		l.Status = LeadNotSure
	}
	if !l.Status.Valid() {
		return ErrLeadStatus
	}
	if l.Priority == "" {
		l.Priority = PriorityNormal
	}
	if !l.Priority.Valid() {
		return ErrPriority
	}
	if l.FollowUpStatus == "" {
		l.FollowUpStatus = FollowUpPending
	}
	if l.InterestLevel < 0 || l.InterestLevel > 100 {
		return ErrInterestLevel
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now
	return nil
}

// LeadView is the read-time classification of a lead. Nothing here is persisted.
type LeadView struct {
	IsNewLead                  bool     `json:"is_new_lead"`
	IsOverdue                  bool     `json:"is_overdue"`
	FollowUpDoneButDateArrived bool     `json:"follow_up_done_but_date_arrived"`
	NeedsCall                  bool     `json:"needs_call"`
	EffectivePriority          Priority `json:"effective_priority"`
}

// ClassifyLead evaluates the follow-up predicates against now.
func ClassifyLead(l *Lead, now time.Time) LeadView {
	dateArrived := l.NextFollowUp != nil && !l.NextFollowUp.After(now)

	view := LeadView{
		IsNewLead:                  l.NextFollowUp == nil && l.LastContact == nil,
		IsOverdue:                  dateArrived && l.FollowUpStatus == FollowUpPending,
		FollowUpDoneButDateArrived: dateArrived && l.FollowUpStatus == FollowUpDone,
		EffectivePriority:          l.Priority,
	}
	view.NeedsCall = view.IsNewLead || view.IsOverdue || view.FollowUpDoneButDateArrived
	if view.IsOverdue {
		view.EffectivePriority = PriorityUrgent
	}
	if view.EffectivePriority == "" {
		view.EffectivePriority = PriorityNormal
	}
	return view
}

// CallLog is the input of the free-form call logging action.
type CallLog struct {
	Outcome       CallOutcome
	Summary       string
	InterestLevel *int
	NextFollowUp  *time.Time
}

// LogCall applies a free-form call entry and returns the note to append.
func (l *Lead) LogCall(entry CallLog, now time.Time) (LeadNote, error) {
	summary := strings.TrimSpace(entry.Summary)
	if summary == "" {
		return LeadNote{}, ErrSummaryRequired
	}
	if entry.Outcome == "" {
		entry.Outcome = OutcomeCallBack
	}
	if !entry.Outcome.Loggable() {
		return LeadNote{}, ErrCallOutcome
	}
	if entry.InterestLevel != nil {
		if *entry.InterestLevel < 0 || *entry.InterestLevel > 100 {
			return LeadNote{}, ErrInterestLevel
		}
		l.InterestLevel = *entry.InterestLevel
	}

	l.LastContact = timePtr(now)
	l.FollowUpStatus = FollowUpDone
	switch entry.Outcome {
	case OutcomeNotInterested:
		l.Status = LeadNotInterested
		l.NextFollowUp = nil
	case OutcomeInterested:
		l.Status = LeadInterested
	}
	if entry.NextFollowUp != nil && !entry.NextFollowUp.IsZero() {
		l.NextFollowUp = timePtr(*entry.NextFollowUp)
		l.FollowUpStatus = FollowUpPending
	}
	l.UpdatedAt = now
	return l.note(entry.Outcome, summary, now), nil
}

// MarkCallDone is the structured banner action: both comment and next call are mandatory.
func (l *Lead) MarkCallDone(comment string, nextCall *time.Time, now time.Time) (LeadNote, error) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return LeadNote{}, ErrCommentRequired
	}
	if nextCall == nil || nextCall.IsZero() {
		return LeadNote{}, ErrNextCallRequired
	}
	l.LastContact = timePtr(now)
	l.NextFollowUp = timePtr(*nextCall)
	l.FollowUpStatus = FollowUpPending
	l.UpdatedAt = now
	return l.note(OutcomeCallCompleted, comment, now), nil
}

// QuickMarkCalled records a call without notes or a next date.
func (l *Lead) QuickMarkCalled(now time.Time) {
	l.LastContact = timePtr(now)
	l.FollowUpStatus = FollowUpDone
	l.UpdatedAt = now
}

// NoResponse schedules a retry after an unanswered call.
func (l *Lead) NoResponse(now time.Time, retryIn time.Duration) LeadNote {
	l.LastContact = timePtr(now)
	l.FollowUpStatus = FollowUpDone
	l.NextFollowUp = timePtr(now.Add(retryIn))
	l.UpdatedAt = now
	return l.note(OutcomeNoResponse, "No answer, will try again tomorrow", now)
}

// ConvertToClient flips the lead to converted and returns the client to create.
func (l *Lead) ConvertToClient(now time.Time) (*Client, error) {
	if l.IsConverted() {
		return nil, ErrLeadConverted
	}
	l.Status = LeadConverted
	l.UpdatedAt = now

	businessName := l.BusinessName
	if businessName == "" {
		businessName = l.Name
	}
	leadID := l.ID
	start := truncateDay(now)
	return &Client{
		LeadID:        &leadID,
		BusinessName:  businessName,
		OwnerName:     l.Name,
		Phone:         l.Phone,
		Address:       l.Address,
		Services:      []string{},
		StartDate:     &start,
		Status:        ClientOnboarding,
		PaymentStatus: PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (l *Lead) note(outcome CallOutcome, content string, now time.Time) LeadNote {
	n := LeadNote{
		LeadID:    l.ID,
		Outcome:   outcome,
		Content:   content,
		CreatedAt: now,
	}
	l.Notes = append(l.Notes, n)
	return n
}

var legacyNotePattern = regexp.MustCompile(`(?s)^\[(.*?)\] (.*?): (.*)$`)

// ParseLegacyNotes splits an old "[timestamp] outcome: content" text blob into
// structured entries. Blocks that do not match become plain notes stamped with fallback.
func ParseLegacyNotes(leadID, text string, fallback time.Time) []LeadNote {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var notes []LeadNote
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		note := LeadNote{LeadID: leadID, Outcome: OutcomeNote, Content: block, CreatedAt: fallback}
		if m := legacyNotePattern.FindStringSubmatch(block); m != nil {
			if ts, err := time.Parse(time.RFC3339Nano, m[1]); err == nil {
				note.CreatedAt = ts
				note.Outcome = CallOutcome(m[2])
				note.Content = m[3]
			}
		}
		notes = append(notes, note)
	}
	return notes
}

// ClassifiedLead pairs a lead with its read-time view.
type ClassifiedLead struct {
	Lead
	View LeadView `json:"view"`
}

// CallStatusFilter selects leads by whether they still need a call.
type CallStatusFilter string

const (
	CallStatusAll     CallStatusFilter = "all"
	CallStatusPending CallStatusFilter = "pending"
	CallStatusDone    CallStatusFilter = "done"
)

// LeadListFilter mirrors the pipeline screen filters.
type LeadListFilter struct {
	Search      string
	Priority    Priority
	CallStatus  CallStatusFilter
	OverdueOnly bool
}

// FilterLeads classifies, filters and sorts leads with SortLeads. Converted
// leads never appear in the active pipeline.
func FilterLeads(leads []Lead, filter LeadListFilter, now time.Time) []ClassifiedLead {
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]ClassifiedLead, 0, len(leads))
	for _, lead := range leads {
		if lead.IsConverted() {
			continue
		}
		view := ClassifyLead(&lead, now)
		if search != "" &&
			!strings.Contains(strings.ToLower(lead.Name), search) &&
			!strings.Contains(strings.ToLower(lead.BusinessName), search) {
			continue
		}
		if filter.Priority != "" && view.EffectivePriority != filter.Priority {
			continue
		}
		switch filter.CallStatus {
		case CallStatusPending:
			if !view.NeedsCall {
				continue
			}
		case CallStatusDone:
			if lead.LastContact == nil || view.NeedsCall {
				continue
			}
		}
		if filter.OverdueOnly && !view.IsOverdue {
			continue
		}
		out = append(out, ClassifiedLead{Lead: lead, View: view})
	}

	SortLeads(out)
	return out
}

// SortLeads orders by effective priority, then earliest next follow-up.
// Leads without a follow-up date come last within their priority.
func SortLeads(leads []ClassifiedLead) {
	sort.SliceStable(leads, func(i, j int) bool {
		a, b := leads[i], leads[j]
		if ra, rb := a.View.EffectivePriority.Rank(), b.View.EffectivePriority.Rank(); ra != rb {
			return ra < rb
		}
		if a.NextFollowUp == nil || b.NextFollowUp == nil {
			return a.NextFollowUp != nil && b.NextFollowUp == nil
		}
		return a.NextFollowUp.Before(*b.NextFollowUp)
	})
}

// LeadSummary holds the pipeline counters.
type LeadSummary struct {
	PendingCalls int `json:"pending_calls"`
	DoneCalls    int `json:"done_calls"`
	DoneToday    int `json:"done_today"`
	Overdue      int `json:"overdue"`
	NewLeads     int `json:"new_leads"`
}

// SummarizeLeads counts active leads by call state.
func SummarizeLeads(leads []Lead, now time.Time) LeadSummary {
	var s LeadSummary
	today := truncateDay(now)
	for i := range leads {
		lead := &leads[i]
		if lead.IsConverted() {
			continue
		}
		view := ClassifyLead(lead, now)
		if view.NeedsCall {
			s.PendingCalls++
		}
		if view.IsOverdue {
			s.Overdue++
		}
		if view.IsNewLead {
			s.NewLeads++
		}
		if lead.LastContact != nil && !view.NeedsCall {
			s.DoneCalls++
			if truncateDay(lead.LastContact.In(now.Location())).Equal(today) {
				s.DoneToday++
			}
		}
	}
	return s
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
