package memory

import (
	"context"
	"sort"

	"github.com/fastygo/crm/domain"
	"github.com/fastygo/crm/repository"
)

type clientRepository struct{ s *Store }

func (s *Store) Clients() repository.ClientRepository { return clientRepository{s} }

func (r clientRepository) GetByID(_ context.Context, id string) (*domain.Client, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.data.clients[id]
	if !ok {
		return nil, domain.ErrClientNotFound
	}
	c.Services = append([]string{}, c.Services...)
	return &c, nil
}

func (r clientRepository) GetForUpdate(ctx context.Context, id string) (*domain.Client, error) {
	return r.GetByID(ctx, id)
}

func (r clientRepository) List(_ context.Context, filter repository.ClientFilter) ([]domain.Client, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Client
	for _, c := range r.s.data.clients {
		if !match(filter.Status, string(c.Status)) || !match(filter.LeadID, deref(c.LeadID)) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r clientRepository) Create(_ context.Context, client *domain.Client) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("clients.create"); err != nil {
		return err
	}
	if client.ID == "" {
		client.ID = r.s.nextID("client")
	}
	stored := *client
	stored.Services = append([]string{}, client.Services...)
	r.s.data.clients[client.ID] = stored
	return nil
}

func (r clientRepository) Update(_ context.Context, client *domain.Client) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("clients.update"); err != nil {
		return err
	}
	if _, ok := r.s.data.clients[client.ID]; !ok {
		return domain.ErrClientNotFound
	}
	stored := *client
	stored.Services = append([]string{}, client.Services...)
	r.s.data.clients[client.ID] = stored
	return nil
}

func (r clientRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.clients[id]; !ok {
		return domain.ErrClientNotFound
	}
	delete(r.s.data.clients, id)
	return nil
}

type incomeRepository struct{ s *Store }

func (s *Store) Income() repository.IncomeRepository { return incomeRepository{s} }

func (r incomeRepository) Create(_ context.Context, record *domain.IncomeRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("income.create"); err != nil {
		return err
	}
	if record.ID == "" {
		record.ID = r.s.nextID("income")
	}
	r.s.data.income[record.ID] = *record
	return nil
}

func (r incomeRepository) GetByID(_ context.Context, id string) (*domain.IncomeRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.data.income[id]
	if !ok {
		return nil, domain.ErrIncomeNotFound
	}
	return &rec, nil
}

func (r incomeRepository) List(_ context.Context, filter repository.IncomeFilter) ([]domain.IncomeRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.IncomeRecord
	for _, rec := range r.s.data.income {
		if !match(filter.ClientID, deref(rec.ClientID)) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt().After(out[j].RecordedAt()) })
	return out, nil
}
