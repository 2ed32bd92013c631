package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"MarketBridge/internal/domain"
	"MarketBridge/internal/ports"
)

// PostgresRepository records run snapshots for audit and history. Every
// method is nil-safe: an unconfigured repository is a no-op.
type PostgresRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.RunRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Open connects to Postgres with the given DSN.
func Open(dsn string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewPostgresRepository(db), nil
}

// SaveRun inserts one run snapshot.
func (r *PostgresRepository) SaveRun(ctx context.Context, record domain.RunRecord) error {
	if r == nil || r.db == nil {
		return nil
	}

	query, args, err := r.builder.
		Insert("pipeline_runs").
		Columns("source_url", "title", "approval_status", "publish_status", "market_product_id", "margin_rate").
		Values(record.SourceURL, record.Title, record.ApprovalStatus, record.PublishStatus, record.MarketProductID, record.MarginRate).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecentRuns returns the newest snapshots, newest first.
func (r *PostgresRepository) RecentRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if r == nil || r.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	query, args, err := r.builder.
		Select("source_url", "title", "approval_status", "publish_status", "market_product_id", "margin_rate", "created_at").
		From("pipeline_runs").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var records []domain.RunRecord
	for rows.Next() {
		var record domain.RunRecord
		if err := rows.Scan(
			&record.SourceURL,
			&record.Title,
			&record.ApprovalStatus,
			&record.PublishStatus,
			&record.MarketProductID,
			&record.MarginRate,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return records, nil
}
