package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/fastygo/crm/domain"
	"github.com/fastygo/crm/repository"
)

type promotionRepository struct{ s *Store }

func (s *Store) Promotions() repository.PromotionRepository { return promotionRepository{s} }

func (r promotionRepository) GetByID(_ context.Context, id string) (*domain.PromotionRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.data.promotions[id]
	if !ok {
		return nil, domain.ErrPromotionNotFound
	}
	p.Approvals = append([]domain.PromotionApproval{}, p.Approvals...)
	return &p, nil
}

func (r promotionRepository) GetForUpdate(ctx context.Context, id string) (*domain.PromotionRequest, error) {
	return r.GetByID(ctx, id)
}

func (r promotionRepository) FindPendingByUser(_ context.Context, userID string) (*domain.PromotionRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.data.promotions {
		if p.UserID == userID && p.IsPending() {
			return &p, nil
		}
	}
	return nil, domain.ErrPromotionNotFound
}

func (r promotionRepository) ListPending(_ context.Context) ([]domain.PromotionRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.PromotionRequest
	for _, p := range r.s.data.promotions {
		if p.IsPending() {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r promotionRepository) Create(_ context.Context, req *domain.PromotionRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if req.ID == "" {
		req.ID = r.s.nextID("promotion")
	}
	r.s.data.promotions[req.ID] = *req
	return nil
}

// Update persists the request status. Votes go through UpsertApproval.
func (r promotionRepository) Update(_ context.Context, req *domain.PromotionRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("promotions.update"); err != nil {
		return err
	}
	stored, ok := r.s.data.promotions[req.ID]
	if !ok {
		return domain.ErrPromotionNotFound
	}
	stored.Status = req.Status
	stored.ResolvedAt = req.ResolvedAt
	stored.UpdatedAt = req.UpdatedAt
	r.s.data.promotions[req.ID] = stored
	return nil
}

func (r promotionRepository) UpsertApproval(_ context.Context, approval *domain.PromotionApproval) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.data.promotions[approval.RequestID]
	if !ok {
		return domain.ErrPromotionNotFound
	}
	approvals := append([]domain.PromotionApproval{}, stored.Approvals...)
	replaced := false
	for i := range approvals {
		if approvals[i].AdminID == approval.AdminID {
			approvals[i] = *approval
			replaced = true
		}
	}
	if !replaced {
		approvals = append(approvals, *approval)
	}
	stored.Approvals = approvals
	r.s.data.promotions[approval.RequestID] = stored
	return nil
}

type joinRepository struct{ s *Store }

func (s *Store) JoinRequests() repository.JoinRequestRepository { return joinRepository{s} }

func (r joinRepository) GetByID(_ context.Context, id string) (*domain.JoinRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	j, ok := r.s.data.joins[id]
	if !ok {
		return nil, domain.ErrJoinRequestNotFound
	}
	return &j, nil
}

func (r joinRepository) FindPendingByEmail(_ context.Context, email string) (*domain.JoinRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, j := range r.s.data.joins {
		if strings.EqualFold(j.Email, email) && j.Status == domain.JoinPending {
			return &j, nil
		}
	}
	return nil, domain.ErrJoinRequestNotFound
}

func (r joinRepository) List(_ context.Context, status string) ([]domain.JoinRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.JoinRequest
	for _, j := range r.s.data.joins {
		if match(status, string(j.Status)) {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r joinRepository) Create(_ context.Context, req *domain.JoinRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if req.ID == "" {
		req.ID = r.s.nextID("join")
	}
	r.s.data.joins[req.ID] = *req
	return nil
}

func (r joinRepository) Update(_ context.Context, req *domain.JoinRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.joins[req.ID]; !ok {
		return domain.ErrJoinRequestNotFound
	}
	r.s.data.joins[req.ID] = *req
	return nil
}

type invitationRepository struct{ s *Store }

func (s *Store) Invitations() repository.InvitationRepository { return invitationRepository{s} }

func (r invitationRepository) GetByToken(_ context.Context, token string) (*domain.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, inv := range r.s.data.invitations {
		if inv.Token == token {
			return &inv, nil
		}
	}
	return nil, domain.ErrInvitationNotFound
}

func (r invitationRepository) List(_ context.Context, status string) ([]domain.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Invitation
	for _, inv := range r.s.data.invitations {
		if match(status, string(inv.Status)) {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r invitationRepository) Create(_ context.Context, inv *domain.Invitation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if inv.ID == "" {
		inv.ID = r.s.nextID("invitation")
	}
	r.s.data.invitations[inv.ID] = *inv
	return nil
}

func (r invitationRepository) Update(_ context.Context, inv *domain.Invitation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("invitations.update"); err != nil {
		return err
	}
	if _, ok := r.s.data.invitations[inv.ID]; !ok {
		return domain.ErrInvitationNotFound
	}
	r.s.data.invitations[inv.ID] = *inv
	return nil
}
