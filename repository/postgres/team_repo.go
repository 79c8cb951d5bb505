package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/crm/domain"
	"github.com/fastygo/crm/repository"
)

const promotionColumns = `id, user_id, requested_by, status, required_approvals, created_at, updated_at, resolved_at`

type promotionRepository struct {
	pool *pgxpool.Pool
}

// NewPromotionRepository returns the admin promotion store.
func NewPromotionRepository(pool *pgxpool.Pool) repository.PromotionRepository {
	return &promotionRepository{pool: pool}
}

func (r *promotionRepository) GetByID(ctx context.Context, id string) (*domain.PromotionRequest, error) {
	query := `SELECT ` + promotionColumns + ` FROM admin_promotion_requests WHERE id = $1`
	return r.load(ctx, query, id)
}

func (r *promotionRepository) GetForUpdate(ctx context.Context, id string) (*domain.PromotionRequest, error) {
	query := `SELECT ` + promotionColumns + ` FROM admin_promotion_requests WHERE id = $1 FOR UPDATE`
	return r.load(ctx, query, id)
}

func (r *promotionRepository) FindPendingByUser(ctx context.Context, userID string) (*domain.PromotionRequest, error) {
	query := `SELECT ` + promotionColumns + ` FROM admin_promotion_requests WHERE user_id = $1 AND status = 'pending'`
	return r.load(ctx, query, userID)
}

func (r *promotionRepository) load(ctx context.Context, query string, arg string) (*domain.PromotionRequest, error) {
	req, err := scanPromotion(conn(ctx, r.pool).QueryRow(ctx, query, arg))
	if err != nil {
		return nil, err
	}
	if req.Approvals, err = r.approvals(ctx, req.ID); err != nil {
		return nil, err
	}
	return req, nil
}

func (r *promotionRepository) ListPending(ctx context.Context) ([]domain.PromotionRequest, error) {
	query := `SELECT ` + promotionColumns + ` FROM admin_promotion_requests WHERE status = 'pending' ORDER BY created_at DESC`
	rows, err := conn(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}

	var requests []domain.PromotionRequest
	for rows.Next() {
		req, err := scanPromotion(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		requests = append(requests, *req)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range requests {
		if requests[i].Approvals, err = r.approvals(ctx, requests[i].ID); err != nil {
			return nil, err
		}
	}
	return requests, nil
}

func (r *promotionRepository) approvals(ctx context.Context, requestID string) ([]domain.PromotionApproval, error) {
	const query = `
	SELECT request_id, admin_id, approved, created_at, updated_at
	FROM admin_promotion_approvals
	WHERE request_id = $1
	ORDER BY created_at
	`
	rows, err := conn(ctx, r.pool).Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	approvals := []domain.PromotionApproval{}
	for rows.Next() {
		var a domain.PromotionApproval
		if err := rows.Scan(&a.RequestID, &a.AdminID, &a.Approved, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		approvals = append(approvals, a)
	}
	return approvals, rows.Err()
}

func (r *promotionRepository) Create(ctx context.Context, req *domain.PromotionRequest) error {
	if req == nil {
		return domain.ErrInvalidPayload
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	const query = `
	INSERT INTO admin_promotion_requests (id, user_id, requested_by, status, required_approvals, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()), NOW())
	RETURNING created_at, updated_at
	`
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		req.ID, req.UserID, req.RequestedBy, req.Status, req.RequiredApprovals, nullTime(req.CreatedAt),
	).Scan(&req.CreatedAt, &req.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrPromotionPending
	}
	return err
}

func (r *promotionRepository) Update(ctx context.Context, req *domain.PromotionRequest) error {
	const query = `
	UPDATE admin_promotion_requests
	SET status = $2, resolved_at = $3, updated_at = NOW()
	WHERE id = $1
	RETURNING updated_at
	`
	if err := conn(ctx, r.pool).QueryRow(ctx, query, req.ID, req.Status, nullTimePtr(req.ResolvedAt)).Scan(&req.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrPromotionNotFound
		}
		return err
	}
	return nil
}

func (r *promotionRepository) UpsertApproval(ctx context.Context, a *domain.PromotionApproval) error {
	const query = `
	INSERT INTO admin_promotion_approvals (request_id, admin_id, approved, created_at, updated_at)
	VALUES ($1, $2, $3, NOW(), NOW())
	ON CONFLICT (request_id, admin_id) DO UPDATE
	SET approved = EXCLUDED.approved,
		updated_at = NOW()
	RETURNING created_at, updated_at
	`
	return conn(ctx, r.pool).QueryRow(ctx, query, a.RequestID, a.AdminID, a.Approved).Scan(&a.CreatedAt, &a.UpdatedAt)
}

func scanPromotion(row scanner) (*domain.PromotionRequest, error) {
	var req domain.PromotionRequest
	if err := row.Scan(
		&req.ID,
		&req.UserID,
		&req.RequestedBy,
		&req.Status,
		&req.RequiredApprovals,
		&req.CreatedAt,
		&req.UpdatedAt,
		&req.ResolvedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPromotionNotFound
		}
		return nil, err
	}
	return &req, nil
}

const joinColumns = `id, email, full_name, message, status, approved_by, rejected_by, rejection_reason, created_at, updated_at`

type joinRequestRepository struct {
	pool *pgxpool.Pool
}

// NewJoinRequestRepository returns the join request store.
func NewJoinRequestRepository(pool *pgxpool.Pool) repository.JoinRequestRepository {
	return &joinRequestRepository{pool: pool}
}

func (r *joinRequestRepository) GetByID(ctx context.Context, id string) (*domain.JoinRequest, error) {
	query := `SELECT ` + joinColumns + ` FROM team_join_requests WHERE id = $1`
	if inTx(ctx) {
		query += ` FOR UPDATE`
	}
	return scanJoinRequest(conn(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *joinRequestRepository) FindPendingByEmail(ctx context.Context, email string) (*domain.JoinRequest, error) {
	query := `SELECT ` + joinColumns + ` FROM team_join_requests WHERE lower(email) = lower($1) AND status = 'pending'`
	return scanJoinRequest(conn(ctx, r.pool).QueryRow(ctx, query, email))
}

func (r *joinRequestRepository) List(ctx context.Context, status string) ([]domain.JoinRequest, error) {
	query := `SELECT ` + joinColumns + ` FROM team_join_requests WHERE ($1 = '' OR status = $1) ORDER BY created_at DESC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.JoinRequest
	for rows.Next() {
		j, err := scanJoinRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

func (r *joinRequestRepository) Create(ctx context.Context, j *domain.JoinRequest) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	const query = `
	INSERT INTO team_join_requests (id, email, full_name, message, status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()), NOW())
	RETURNING created_at, updated_at
	`
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		j.ID, j.Email, j.FullName, j.Message, j.Status, nullTime(j.CreatedAt),
	).Scan(&j.CreatedAt, &j.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrJoinRequestExists
	}
	return err
}

func (r *joinRequestRepository) Update(ctx context.Context, j *domain.JoinRequest) error {
	const query = `
	UPDATE team_join_requests
	SET status = $2, approved_by = $3, rejected_by = $4, rejection_reason = $5, updated_at = NOW()
	WHERE id = $1
	RETURNING updated_at
	`
	if err := conn(ctx, r.pool).QueryRow(ctx, query,
		j.ID, j.Status, nullString(j.ApprovedBy), nullString(j.RejectedBy), j.RejectionReason,
	).Scan(&j.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrJoinRequestNotFound
		}
		return err
	}
	return nil
}

func scanJoinRequest(row scanner) (*domain.JoinRequest, error) {
	var (
		j                    domain.JoinRequest
		approvedBy, rejected *string
	)
	if err := row.Scan(
		&j.ID, &j.Email, &j.FullName, &j.Message, &j.Status,
		&approvedBy, &rejected, &j.RejectionReason, &j.CreatedAt, &j.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJoinRequestNotFound
		}
		return nil, err
	}
	j.ApprovedBy = derefString(approvedBy)
	j.RejectedBy = derefString(rejected)
	return &j, nil
}

const invitationColumns = `id, email, role, token, invited_by, status, expires_at, accepted_at, created_at`

type invitationRepository struct {
	pool *pgxpool.Pool
}

// NewInvitationRepository returns the invitation store.
func NewInvitationRepository(pool *pgxpool.Pool) repository.InvitationRepository {
	return &invitationRepository{pool: pool}
}

func (r *invitationRepository) GetByToken(ctx context.Context, token string) (*domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM team_invitations WHERE token = $1`
	if inTx(ctx) {
		query += ` FOR UPDATE`
	}
	return scanInvitation(conn(ctx, r.pool).QueryRow(ctx, query, token))
}

func (r *invitationRepository) List(ctx context.Context, status string) ([]domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM team_invitations WHERE ($1 = '' OR status = $1) ORDER BY created_at DESC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

func (r *invitationRepository) Create(ctx context.Context, inv *domain.Invitation) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	const query = `
	INSERT INTO team_invitations (id, email, role, token, invited_by, status, expires_at, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))
	RETURNING created_at
	`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		inv.ID, inv.Email, inv.Role, inv.Token, inv.InvitedBy, inv.Status, inv.ExpiresAt, nullTime(inv.CreatedAt),
	).Scan(&inv.CreatedAt)
}

func (r *invitationRepository) Update(ctx context.Context, inv *domain.Invitation) error {
	const query = `UPDATE team_invitations SET status = $2, accepted_at = $3 WHERE id = $1`
	tag, err := conn(ctx, r.pool).Exec(ctx, query, inv.ID, inv.Status, nullTimePtr(inv.AcceptedAt))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvitationNotFound
	}
	return nil
}

func scanInvitation(row scanner) (*domain.Invitation, error) {
	var inv domain.Invitation
	if err := row.Scan(
		&inv.ID, &inv.Email, &inv.Role, &inv.Token, &inv.InvitedBy,
		&inv.Status, &inv.ExpiresAt, &inv.AcceptedAt, &inv.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvitationNotFound
		}
		return nil, err
	}
	return &inv, nil
}
