package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront-console/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	raw       []byte
	updatedAt time.Time
	err       error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*[]byte) = r.raw
	*dest[1].(*time.Time) = r.updatedAt
	return nil
}

type fakeQuerier struct {
	row fakeRow

	sql  []string
	args [][]any
}

func (q *fakeQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	q.sql = append(q.sql, sql)
	q.args = append(q.args, args)
	return q.row
}

func (q *fakeQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.sql = append(q.sql, sql)
	q.args = append(q.args, args)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func TestCartSnapshotRepository_Load(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	q := &fakeQuerier{row: fakeRow{
		raw:       []byte(`[{"id":"l-1","productId":"p-1","productName":"Tee","variant":"M - Red","quantity":2,"unitPrice":150000}]`),
		updatedAt: at,
	}}
	repo := NewCartSnapshotRepository(q)

	cart, err := repo.Load(context.Background(), "u-1")
	require.NoError(t, err)

	assert.Equal(t, "SELECT lines, updated_at FROM cart_snapshots WHERE user_id = $1", q.sql[0])
	assert.Equal(t, []any{"u-1"}, q.args[0])
	assert.Equal(t, "u-1", cart.UserID)
	assert.Equal(t, at, cart.UpdatedAt)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, "M - Red", cart.Lines[0].Variant)
	assert.True(t, cart.Lines[0].UnitPrice.Equal(decimal.NewFromInt(150000)))
}

func TestCartSnapshotRepository_LoadMissing(t *testing.T) {
	repo := NewCartSnapshotRepository(&fakeQuerier{row: fakeRow{err: pgx.ErrNoRows}})

	_, err := repo.Load(context.Background(), "u-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	repo = NewCartSnapshotRepository(&fakeQuerier{row: fakeRow{err: errors.New("conn reset")}})
	_, err = repo.Load(context.Background(), "u-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestCartSnapshotRepository_SaveUpserts(t *testing.T) {
	q := &fakeQuerier{}
	repo := NewCartSnapshotRepository(q)

	err := repo.Save(context.Background(), &domain.Cart{UserID: "u-1"})
	require.NoError(t, err)

	require.Len(t, q.sql, 1)
	assert.Equal(t,
		"INSERT INTO cart_snapshots (user_id,lines,updated_at) VALUES ($1,$2,$3) "+
			"ON CONFLICT (user_id) DO UPDATE SET lines = EXCLUDED.lines, updated_at = EXCLUDED.updated_at",
		q.sql[0])
	assert.Equal(t, "u-1", q.args[0][0])
	assert.JSONEq(t, `[]`, string(q.args[0][1].([]byte)))
	assert.False(t, q.args[0][2].(time.Time).IsZero())
}

func TestCartSnapshotRepository_Delete(t *testing.T) {
	q := &fakeQuerier{}
	repo := NewCartSnapshotRepository(q)

	require.NoError(t, repo.Delete(context.Background(), "u-1"))
	assert.Equal(t, "DELETE FROM cart_snapshots WHERE user_id = $1", q.sql[0])
}
