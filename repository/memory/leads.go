package memory

import (
	"context"
	"sort"

	"github.com/fastygo/crm/domain"
	"github.com/fastygo/crm/repository"
)

type leadRepository struct{ s *Store }

func (s *Store) Leads() repository.LeadRepository { return leadRepository{s} }

func (r leadRepository) GetByID(_ context.Context, id string) (*domain.Lead, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.data.leads[id]
	if !ok {
		return nil, domain.ErrLeadNotFound
	}
	return &l, nil
}

func (r leadRepository) GetForUpdate(ctx context.Context, id string) (*domain.Lead, error) {
	return r.GetByID(ctx, id)
}

func (r leadRepository) List(_ context.Context, filter repository.LeadFilter) ([]domain.Lead, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Lead
	for _, l := range r.s.data.leads {
		if !match(filter.AssignedTo, l.AssignedTo) {
			continue
		}
		if l.IsConverted() && !filter.IncludeConverted {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r leadRepository) Create(_ context.Context, lead *domain.Lead) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("leads.create"); err != nil {
		return err
	}
	if lead.ID == "" {
		lead.ID = r.s.nextID("lead")
	}
	stored := *lead
	stored.Notes = nil
	r.s.data.leads[lead.ID] = stored
	return nil
}

func (r leadRepository) Update(_ context.Context, lead *domain.Lead) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("leads.update"); err != nil {
		return err
	}
	if _, ok := r.s.data.leads[lead.ID]; !ok {
		return domain.ErrLeadNotFound
	}
	stored := *lead
	stored.Notes = nil
	r.s.data.leads[lead.ID] = stored
	return nil
}

func (r leadRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.leads[id]; !ok {
		return domain.ErrLeadNotFound
	}
	delete(r.s.data.leads, id)
	return nil
}

func (r leadRepository) AppendNote(_ context.Context, note *domain.LeadNote) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("leads.append_note"); err != nil {
		return err
	}
	if note.ID == "" {
		note.ID = r.s.nextID("note")
	}
	r.s.data.notes = append(r.s.data.notes, *note)
	return nil
}

func (r leadRepository) ListNotes(_ context.Context, leadID string) ([]domain.LeadNote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.LeadNote
	for _, n := range r.s.data.notes {
		if n.LeadID == leadID {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
