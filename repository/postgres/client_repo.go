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

const clientColumns = `id, lead_id, business_name, owner_name, phone, address, services, start_date, delivery_date,
	delivered_by, status, delivery_notes, project_value::text, payment_status, paid_amount::text, payment_date,
	created_at, updated_at`

type clientRepository struct {
	pool *pgxpool.Pool
}

// NewClientRepository returns a Postgres-backed client store.
func NewClientRepository(pool *pgxpool.Pool) repository.ClientRepository {
	return &clientRepository{pool: pool}
}

func (r *clientRepository) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`
	return scanClient(conn(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *clientRepository) GetForUpdate(ctx context.Context, id string) (*domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1 FOR UPDATE`
	return scanClient(conn(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *clientRepository) List(ctx context.Context, filter repository.ClientFilter) ([]domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients
	WHERE ($1 = '' OR status = $1)
	  AND ($2 = '' OR lead_id = $2)
	ORDER BY created_at DESC
	LIMIT $3 OFFSET $4`
	rows, err := conn(ctx, r.pool).Query(ctx, query, filter.Status, filter.LeadID, listLimit(filter.Limit), filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []domain.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, *c)
	}
	return clients, rows.Err()
}

func (r *clientRepository) Create(ctx context.Context, client *domain.Client) error {
	if client == nil {
		return domain.ErrInvalidPayload
	}
	if client.ID == "" {
		client.ID = uuid.NewString()
	}
	const query = `
	INSERT INTO clients (id, lead_id, business_name, owner_name, phone, address, services, start_date, delivery_date,
		delivered_by, status, delivery_notes, project_value, payment_status, paid_amount, payment_date,
		created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13::numeric, $14, $15::numeric, $16,
		COALESCE($17, NOW()), NOW())
	RETURNING created_at, updated_at
	`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		client.ID,
		nullStringPtr(client.LeadID),
		client.BusinessName,
		client.OwnerName,
		client.Phone,
		client.Address,
		servicesArg(client.Services),
		nullTimePtr(client.StartDate),
		nullTimePtr(client.DeliveryDate),
		nullString(client.DeliveredBy),
		client.Status,
		client.DeliveryNotes,
		decimalArg(client.ProjectValue),
		client.PaymentStatus,
		decimalArg(client.PaidAmount),
		nullTimePtr(client.PaymentDate),
		nullTime(client.CreatedAt),
	).Scan(&client.CreatedAt, &client.UpdatedAt)
}

func (r *clientRepository) Update(ctx context.Context, client *domain.Client) error {
	if client == nil {
		return domain.ErrInvalidPayload
	}
	const query = `
	UPDATE clients
	SET business_name = $2,
		owner_name = $3,
		phone = $4,
		address = $5,
		services = $6,
		start_date = $7,
		delivery_date = $8,
		delivered_by = $9,
		status = $10,
		delivery_notes = $11,
		project_value = $12::numeric,
		payment_status = $13,
		paid_amount = $14::numeric,
		payment_date = $15,
		updated_at = NOW()
	WHERE id = $1
	RETURNING updated_at
	`
	if err := conn(ctx, r.pool).QueryRow(ctx, query,
		client.ID,
		client.BusinessName,
		client.OwnerName,
		client.Phone,
		client.Address,
		servicesArg(client.Services),
		nullTimePtr(client.StartDate),
		nullTimePtr(client.DeliveryDate),
		nullString(client.DeliveredBy),
		client.Status,
		client.DeliveryNotes,
		decimalArg(client.ProjectValue),
		client.PaymentStatus,
		decimalArg(client.PaidAmount),
		nullTimePtr(client.PaymentDate),
	).Scan(&client.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrClientNotFound
		}
		return err
	}
	return nil
}

func (r *clientRepository) Delete(ctx context.Context, id string) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrClientNotFound
	}
	return nil
}

func scanClient(row scanner) (*domain.Client, error) {
	var (
		c           domain.Client
		deliveredBy *string
		value, paid string
	)
	if err := row.Scan(
		&c.ID,
		&c.LeadID,
		&c.BusinessName,
		&c.OwnerName,
		&c.Phone,
		&c.Address,
		&c.Services,
		&c.StartDate,
		&c.DeliveryDate,
		&deliveredBy,
		&c.Status,
		&c.DeliveryNotes,
		&value,
		&c.PaymentStatus,
		&paid,
		&c.PaymentDate,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrClientNotFound
		}
		return nil, err
	}
	c.DeliveredBy = derefString(deliveredBy)
	c.ProjectValue = parseDecimal(value)
	c.PaidAmount = parseDecimal(paid)
	if c.Services == nil {
		c.Services = []string{}
	}
	return &c, nil
}

func servicesArg(services []string) []string {
	if services == nil {
		return []string{}
	}
	return services
}

const incomeColumns = `id, client_id, business_name, owner_name, phone, services, project_value::text, paid_amount::text,
	payment_status, payment_date, delivery_date, delivered_by, notes, lead_source, business_category,
	project_start_date, created_at, updated_at`

type incomeRepository struct {
	pool *pgxpool.Pool
}

// NewIncomeRepository returns the income snapshot store.
func NewIncomeRepository(pool *pgxpool.Pool) repository.IncomeRepository {
	return &incomeRepository{pool: pool}
}

func (r *incomeRepository) Create(ctx context.Context, rec *domain.IncomeRecord) error {
	if rec == nil {
		return domain.ErrInvalidPayload
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	const query = `
	INSERT INTO income_records (id, client_id, business_name, owner_name, phone, services, project_value, paid_amount,
		payment_status, payment_date, delivery_date, delivered_by, notes, lead_source, business_category,
		project_start_date, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8::numeric, $9, $10, $11, $12, $13, $14, $15, $16,
		COALESCE($17, NOW()), COALESCE($17, NOW()))
	RETURNING created_at, updated_at
	`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		rec.ID,
		nullStringPtr(rec.ClientID),
		rec.BusinessName,
		rec.OwnerName,
		rec.Phone,
		servicesArg(rec.Services),
		decimalArg(rec.ProjectValue),
		decimalArg(rec.PaidAmount),
		rec.PaymentStatus,
		nullTimePtr(rec.PaymentDate),
		nullTimePtr(rec.DeliveryDate),
		nullString(rec.DeliveredBy),
		rec.Notes,
		rec.LeadSource,
		rec.BusinessCategory,
		nullTimePtr(rec.ProjectStartDate),
		nullTime(rec.CreatedAt),
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
}

func (r *incomeRepository) GetByID(ctx context.Context, id string) (*domain.IncomeRecord, error) {
	query := `SELECT ` + incomeColumns + ` FROM income_records WHERE id = $1`
	return scanIncome(conn(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *incomeRepository) List(ctx context.Context, filter repository.IncomeFilter) ([]domain.IncomeRecord, error) {
	query := `SELECT ` + incomeColumns + ` FROM income_records
	WHERE ($1 = '' OR client_id = $1)
	ORDER BY COALESCE(delivery_date, created_at) DESC
	LIMIT $2 OFFSET $3`
	rows, err := conn(ctx, r.pool).Query(ctx, query, filter.ClientID, incomeLimit(filter.Limit), filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.IncomeRecord
	for rows.Next() {
		rec, err := scanIncome(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func scanIncome(row scanner) (*domain.IncomeRecord, error) {
	var (
		rec         domain.IncomeRecord
		deliveredBy *string
		value, paid string
	)
	if err := row.Scan(
		&rec.ID,
		&rec.ClientID,
		&rec.BusinessName,
		&rec.OwnerName,
		&rec.Phone,
		&rec.Services,
		&value,
		&paid,
		&rec.PaymentStatus,
		&rec.PaymentDate,
		&rec.DeliveryDate,
		&deliveredBy,
		&rec.Notes,
		&rec.LeadSource,
		&rec.BusinessCategory,
		&rec.ProjectStartDate,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrIncomeNotFound
		}
		return nil, err
	}
	rec.DeliveredBy = derefString(deliveredBy)
	rec.ProjectValue = parseDecimal(value)
	rec.PaidAmount = parseDecimal(paid)
	return &rec, nil
}

// incomeLimit is unbounded for reports: a zero limit loads every record.
func incomeLimit(limit int) interface{} {
	if limit <= 0 {
		return nil
	}
	return limit
}
