package contact

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool used by the repository.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores submissions in the contact_submissions table.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("contact: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

const submissionColumns = `id::text, name, email, phone, subject, message, project_type, budget, timeline,
	source, status, priority, email_sent, chat_sent, notes, ip_address, user_agent,
	response_date, created_at, updated_at`

// Create inserts a new row.
func (r *PostgresRepository) Create(ctx context.Context, req SubmissionRequest) (*Submission, error) {
	if err := checkSchema(req); err != nil {
		return nil, err
	}

	id := uuid.New()
	query := `
		INSERT INTO contact_submissions (id, name, email, phone, subject, message, project_type, budget, timeline, source, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING status, priority, created_at, updated_at
	`
	var status, priority string
	var createdAt, updatedAt time.Time
	if err := r.db.QueryRow(ctx, query,
		id,
		req.Name,
		req.Email,
		req.Phone,
		req.Subject,
		req.Message,
		req.ProjectType,
		req.Budget,
		req.Timeline,
		req.Source,
		req.ClientIP,
		req.ClientAgent,
	).Scan(&status, &priority, &createdAt, &updatedAt); err != nil {
		if verr := constraintError(err); verr != nil {
			return nil, verr
		}
		return nil, fmt.Errorf("contact: insert failed: %w", err)
	}

	return &Submission{
		ID:          id.String(),
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Subject:     req.Subject,
		Message:     req.Message,
		ProjectType: req.ProjectType,
		Budget:      req.Budget,
		Timeline:    req.Timeline,
		Source:      req.Source,
		Status:      Status(status),
		Priority:    Priority(priority),
		IPAddress:   req.ClientIP,
		UserAgent:   req.ClientAgent,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

func (r *PostgresRepository) UpdateFlags(ctx context.Context, id string, flags DeliveryFlags) error {
	if !validID(id) {
		return ErrSubmissionNotFound
	}
	query := `
		UPDATE contact_submissions
		SET email_sent = $2, chat_sent = $3, updated_at = now()
		WHERE id = $1
	`
	ct, err := r.db.Exec(ctx, query, id, flags.EmailSent, flags.ChatSent)
	if err != nil {
		return fmt.Errorf("contact: update flags failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrSubmissionNotFound
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Submission, error) {
	if !validID(id) {
		return nil, ErrSubmissionNotFound
	}
	query := `SELECT ` + submissionColumns + ` FROM contact_submissions WHERE id = $1`
	sub, err := scanSubmission(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("contact: select failed: %w", err)
	}
	return sub, nil
}

func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Submission, int, error) {
	var conds []string
	var args []any
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Priority != "" {
		args = append(args, string(filter.Priority))
		conds = append(conds, fmt.Sprintf("priority = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM contact_submissions`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("contact: count failed: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	args = append(args, limit, max(filter.Offset, 0))
	query := fmt.Sprintf(`SELECT %s FROM contact_submissions%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		submissionColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("contact: list failed: %w", err)
	}
	defer rows.Close()

	subs := []*Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("contact: scan failed: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("contact: list failed: %w", err)
	}
	return subs, int(total), nil
}

func (r *PostgresRepository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM contact_submissions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("contact: stats failed: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("contact: scan stats failed: %w", err)
		}
		counts[Status(status)] = int(count)
	}
	return counts, rows.Err()
}

func (r *PostgresRepository) UpdateAdmin(ctx context.Context, id string, patch AdminPatch) (*Submission, error) {
	if !validID(id) {
		return nil, ErrSubmissionNotFound
	}
	query := `
		UPDATE contact_submissions
		SET status = COALESCE($2, status),
			priority = COALESCE($3, priority),
			notes = COALESCE($4, notes),
			response_date = COALESCE($5, response_date),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + submissionColumns

	var status, priority *string
	if patch.Status != nil {
		s := string(*patch.Status)
		status = &s
	}
	if patch.Priority != nil {
		p := string(*patch.Priority)
		priority = &p
	}

	sub, err := scanSubmission(r.db.QueryRow(ctx, query, id, status, priority, patch.Notes, patch.ResponseDate))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		if verr := constraintError(err); verr != nil {
			return nil, verr
		}
		return nil, fmt.Errorf("contact: update failed: %w", err)
	}
	return sub, nil
}

// validID reports whether id can match the uuid primary key. Anything else
// would fail the cast server-side with 22P02 instead of matching no row.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func scanSubmission(row pgx.Row) (*Submission, error) {
	var sub Submission
	var status, priority string
	if err := row.Scan(
		&sub.ID,
		&sub.Name,
		&sub.Email,
		&sub.Phone,
		&sub.Subject,
		&sub.Message,
		&sub.ProjectType,
		&sub.Budget,
		&sub.Timeline,
		&sub.Source,
		&status,
		&priority,
		&sub.EmailSent,
		&sub.ChatSent,
		&sub.Notes,
		&sub.IPAddress,
		&sub.UserAgent,
		&sub.ResponseDate,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	); err != nil {
		return nil, err
	}
	sub.Status = Status(status)
	sub.Priority = Priority(priority)
	return &sub, nil
}

// constraintError maps integrity violations (SQLSTATE class 23) to a
// ValidationError so callers treat them as rejected input.
func constraintError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || !strings.HasPrefix(pgErr.Code, "23") {
		return nil
	}
	field := pgErr.ColumnName
	if field == "" {
		field = pgErr.ConstraintName
	}
	return &ValidationError{
		Kind:     KindInvalidField,
		Fields:   []string{field},
		Messages: []string{pgErr.Message},
	}
}

var _ Repository = (*PostgresRepository)(nil)
