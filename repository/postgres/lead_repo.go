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

const leadColumns = `id, name, phone, email, address, business_name, business_category, source, assigned_to,
	status, interest_level, priority, follow_up_status, last_contact, next_follow_up, created_at, updated_at`

type leadRepository struct {
	pool *pgxpool.Pool
}

// NewLeadRepository returns a Postgres-backed lead store. Notes live in lead_notes.
func NewLeadRepository(pool *pgxpool.Pool) repository.LeadRepository {
	return &leadRepository{pool: pool}
}

func (r *leadRepository) GetByID(ctx context.Context, id string) (*domain.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	return scanLead(conn(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *leadRepository) GetForUpdate(ctx context.Context, id string) (*domain.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1 FOR UPDATE`
	return scanLead(conn(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *leadRepository) List(ctx context.Context, filter repository.LeadFilter) ([]domain.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads
	WHERE ($1 = '' OR assigned_to = $1)
	  AND ($2 OR status <> 'converted')
	ORDER BY next_follow_up ASC NULLS FIRST, created_at DESC
	LIMIT $3 OFFSET $4`
	rows, err := conn(ctx, r.pool).Query(ctx, query, filter.AssignedTo, filter.IncludeConverted, listLimit(filter.Limit), filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []domain.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *lead)
	}
	return leads, rows.Err()
}

func (r *leadRepository) Create(ctx context.Context, lead *domain.Lead) error {
	if lead == nil {
		return domain.ErrInvalidPayload
	}
	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO leads (id, name, phone, email, address, business_name, business_category, source, assigned_to,
		status, interest_level, priority, follow_up_status, last_contact, next_follow_up, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, COALESCE($16, NOW()), NOW())
	RETURNING created_at, updated_at
	`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		lead.ID,
		lead.Name,
		lead.Phone,
		lead.Email,
		lead.Address,
		lead.BusinessName,
		lead.BusinessCategory,
		lead.Source,
		nullString(lead.AssignedTo),
		lead.Status,
		lead.InterestLevel,
		lead.Priority,
		lead.FollowUpStatus,
		nullTimePtr(lead.LastContact),
		nullTimePtr(lead.NextFollowUp),
		nullTime(lead.CreatedAt),
	).Scan(&lead.CreatedAt, &lead.UpdatedAt)
}

func (r *leadRepository) Update(ctx context.Context, lead *domain.Lead) error {
	if lead == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE leads
	SET name = $2,
		phone = $3,
		email = $4,
		address = $5,
		business_name = $6,
		business_category = $7,
		source = $8,
		assigned_to = $9,
		status = $10,
		interest_level = $11,
		priority = $12,
		follow_up_status = $13,
		last_contact = $14,
		next_follow_up = $15,
		updated_at = NOW()
	WHERE id = $1
	RETURNING updated_at
	`
	if err := conn(ctx, r.pool).QueryRow(ctx, query,
		lead.ID,
		lead.Name,
		lead.Phone,
		lead.Email,
		lead.Address,
		lead.BusinessName,
		lead.BusinessCategory,
		lead.Source,
		nullString(lead.AssignedTo),
		lead.Status,
		lead.InterestLevel,
		lead.Priority,
		lead.FollowUpStatus,
		nullTimePtr(lead.LastContact),
		nullTimePtr(lead.NextFollowUp),
	).Scan(&lead.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrLeadNotFound
		}
		return err
	}
	return nil
}

func (r *leadRepository) Delete(ctx context.Context, id string) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLeadNotFound
	}
	return nil
}

func (r *leadRepository) AppendNote(ctx context.Context, note *domain.LeadNote) error {
	if note == nil || note.LeadID == "" {
		return domain.ErrInvalidPayload
	}
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	const query = `
	INSERT INTO lead_notes (id, lead_id, author_id, outcome, content, created_at)
	VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))
	RETURNING created_at
	`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		note.ID,
		note.LeadID,
		nullString(note.AuthorID),
		note.Outcome,
		note.Content,
		nullTime(note.CreatedAt),
	).Scan(&note.CreatedAt)
}

func (r *leadRepository) ListNotes(ctx context.Context, leadID string) ([]domain.LeadNote, error) {
	const query = `
	SELECT id, lead_id, author_id, outcome, content, created_at
	FROM lead_notes
	WHERE lead_id = $1
	ORDER BY created_at ASC, id ASC
	`
	rows, err := conn(ctx, r.pool).Query(ctx, query, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []domain.LeadNote
	for rows.Next() {
		var (
			n      domain.LeadNote
			author *string
		)
		if err := rows.Scan(&n.ID, &n.LeadID, &author, &n.Outcome, &n.Content, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.AuthorID = derefString(author)
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func scanLead(row scanner) (*domain.Lead, error) {
	var (
		lead     domain.Lead
		assigned *string
	)
	if err := row.Scan(
		&lead.ID,
		&lead.Name,
		&lead.Phone,
		&lead.Email,
		&lead.Address,
		&lead.BusinessName,
		&lead.BusinessCategory,
		&lead.Source,
		&assigned,
		&lead.Status,
		&lead.InterestLevel,
		&lead.Priority,
		&lead.FollowUpStatus,
		&lead.LastContact,
		&lead.NextFollowUp,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLeadNotFound
		}
		return nil, err
	}
	lead.AssignedTo = derefString(assigned)
	return &lead, nil
}

// listLimit allows the pipeline screen to load the whole active set.
func listLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return 1000
	}
	return limit
}
