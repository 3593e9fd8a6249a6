package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-console/internal/domain"
	"storefront-console/pkg/logger"

	sq "github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type cartSnapshotRepository struct {
	querier Querier
}

func NewCartSnapshotRepository(querier Querier) domain.CartSnapshotRepository {
	return &cartSnapshotRepository{querier: querier}
}

func (r *cartSnapshotRepository) Load(ctx context.Context, userID string) (*domain.Cart, error) {
	query, args, err := qb.
		Select("lines", "updated_at").
		From("cart_snapshots").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build cart snapshot query: %w", err)
	}

	var (
		raw       []byte
		updatedAt time.Time
	)
	started := time.Now()
	err = r.querier.QueryRow(ctx, query, args...).Scan(&raw, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		logger.DBQuery(ctx, "cart_snapshots.load", started, nil)
		return nil, domain.ErrNotFound
	}
	logger.DBQuery(ctx, "cart_snapshots.load", started, err)
	if err != nil {
		return nil, fmt.Errorf("load cart snapshot: %w", err)
	}

	cart := &domain.Cart{UserID: userID, UpdatedAt: updatedAt}
	if err := json.Unmarshal(raw, &cart.Lines); err != nil {
		return nil, fmt.Errorf("decode cart snapshot: %w", err)
	}
	return cart, nil
}

func (r *cartSnapshotRepository) Save(ctx context.Context, cart *domain.Cart) error {
	lines := cart.Lines
	if lines == nil {
		lines = []domain.CartLine{}
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("encode cart snapshot: %w", err)
	}
	updatedAt := cart.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	query, args, err := qb.
		Insert("cart_snapshots").
		Columns("user_id", "lines", "updated_at").
		Values(cart.UserID, raw, updatedAt).
		Suffix("ON CONFLICT (user_id) DO UPDATE SET lines = EXCLUDED.lines, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build cart snapshot upsert: %w", err)
	}

	started := time.Now()
	_, err = r.querier.Exec(ctx, query, args...)
	logger.DBQuery(ctx, "cart_snapshots.save", started, err)
	if err != nil {
		return fmt.Errorf("save cart snapshot: %w", err)
	}
	return nil
}

func (r *cartSnapshotRepository) Delete(ctx context.Context, userID string) error {
	query, args, err := qb.
		Delete("cart_snapshots").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build cart snapshot delete: %w", err)
	}

	started := time.Now()
	_, err = r.querier.Exec(ctx, query, args...)
	logger.DBQuery(ctx, "cart_snapshots.delete", started, err)
	if err != nil {
		return fmt.Errorf("delete cart snapshot: %w", err)
	}
	return nil
}
