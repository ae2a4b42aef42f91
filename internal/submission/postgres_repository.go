package submission

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const defaultListLimit = 20

// querier is the slice of pgxpool.Pool the repository uses; pgxmock satisfies
// it too.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository stores submissions in the relational database.
type PostgresRepository struct {
	pool querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool querier) *PostgresRepository {
	if pool == nil {
		panic("submission: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// Create inserts a new row and fills the submission's id and created_at.
func (r *PostgresRepository) Create(ctx context.Context, sub *Submission) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.Status == "" {
		sub.Status = StatusNew
	}

	fieldsData, err := marshalFields(sub.Fields)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO submissions (id, name, email, phone, message, fields_data, status, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`
	if err := r.pool.QueryRow(ctx, query,
		sub.ID,
		sub.Name,
		sub.Email,
		sub.Phone,
		sub.Message,
		fieldsData,
		sub.Status,
		sub.IPAddress,
		sub.UserAgent,
	).Scan(&sub.CreatedAt); err != nil {
		return fmt.Errorf("submission: insert failed: %w", err)
	}
	return nil
}

// GetByID fetches a single submission.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Submission, error) {
	query := `
		SELECT id, name, email, phone, message, fields_data, status, ip_address, user_agent, created_at
		FROM submissions
		WHERE id = $1
	`
	sub, err := scanSubmission(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("submission: select failed: %w", err)
	}
	return sub, nil
}

// List returns a filtered page of submissions, newest first, plus the total
// count matching the filter.
func (r *PostgresRepository) List(ctx context.Context, filter Filter) ([]*Submission, int, error) {
	var conds []string
	var args []any

	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d OR message ILIKE $%d)", n, n, n))
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM submissions %s", where)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("submission: count failed: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT id, name, email, phone, message, fields_data, status, ip_address, user_agent, created_at
		FROM submissions
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("submission: list failed: %w", err)
	}
	defer rows.Close()

	var subs []*Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("submission: scan failed: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("submission: list failed: %w", err)
	}

	return subs, total, nil
}

// UpdateStatus changes a submission's status.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id, status string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE submissions SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("submission: update status failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes one submission.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM submissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("submission: delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMany removes a batch of submissions and reports how many went away.
func (r *PostgresRepository) DeleteMany(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM submissions WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("submission: bulk delete failed: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// DailyCounts returns per-day submission counts for the trailing window,
// oldest first, with days that saw no submissions zero-filled.
func (r *PostgresRepository) DailyCounts(ctx context.Context, days int) ([]DailyCount, error) {
	if days <= 0 {
		days = 7
	}

	since := time.Now().UTC().AddDate(0, 0, -(days - 1)).Truncate(24 * time.Hour)
	query := `
		SELECT date_trunc('day', created_at)::date AS day, COUNT(*)
		FROM submissions
		WHERE created_at >= $1
		GROUP BY day
	`
	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("submission: daily counts failed: %w", err)
	}
	defer rows.Close()

	byDay := make(map[string]int, days)
	for rows.Next() {
		var day time.Time
		var count int
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("submission: scan failed: %w", err)
		}
		byDay[day.Format("2006-01-02")] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("submission: daily counts failed: %w", err)
	}

	return fillDailyCounts(byDay, since, days), nil
}

// fillDailyCounts expands the sparse day->count map into exactly days entries
// labelled "Jan 2", oldest to newest.
func fillDailyCounts(byDay map[string]int, since time.Time, days int) []DailyCount {
	out := make([]DailyCount, 0, days)
	for i := 0; i < days; i++ {
		day := since.AddDate(0, 0, i)
		out = append(out, DailyCount{
			Label: day.Format("Jan 2"),
			Count: byDay[day.Format("2006-01-02")],
		})
	}
	return out
}

func marshalFields(fields map[string]string) ([]byte, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("submission: encode fields: %w", err)
	}
	return data, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (*Submission, error) {
	var sub Submission
	var fieldsData []byte
	if err := row.Scan(
		&sub.ID,
		&sub.Name,
		&sub.Email,
		&sub.Phone,
		&sub.Message,
		&fieldsData,
		&sub.Status,
		&sub.IPAddress,
		&sub.UserAgent,
		&sub.CreatedAt,
	); err != nil {
		return nil, err
	}
	if len(fieldsData) > 0 {
		if err := json.Unmarshal(fieldsData, &sub.Fields); err != nil {
			return nil, fmt.Errorf("submission: decode fields: %w", err)
		}
	}
	if sub.Fields == nil {
		sub.Fields = make(map[string]string)
	}
	return &sub, nil
}
