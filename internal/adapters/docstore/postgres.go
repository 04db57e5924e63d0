package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    collection TEXT        NOT NULL,
    id         TEXT        NOT NULL,
    data       JSONB       NOT NULL,
    version    INTEGER     NOT NULL DEFAULT 1,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (collection, id)
)`

const returning = ` RETURNING collection, id, data, version, created_at, updated_at`

var sqlOperators = map[Operator]string{
	Eq: "=", Ne: "<>", Lt: "<", Lte: "<=", Gt: ">", Gte: ">=",
}

// PostgresStore keeps every collection in a single JSONB table.
type PostgresStore struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}
	return nil
}

type documentRow struct {
	Collection string    `db:"collection"`
	ID         string    `db:"id"`
	Data       []byte    `db:"data"`
	Version    int       `db:"version"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r documentRow) document() *Document {
	return &Document{
		Collection: r.Collection,
		ID:         r.ID,
		Data:       json.RawMessage(r.Data),
		Version:    r.Version,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	return s.get(ctx, s.db, collection, id)
}

func (s *PostgresStore) get(ctx context.Context, q sqlx.QueryerContext, collection, id string) (*Document, error) {
	var row documentRow
	err := sqlx.GetContext(ctx, q, &row,
		`SELECT collection, id, data, version, created_at, updated_at
         FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	return row.document(), nil
}

func (s *PostgresStore) Create(ctx context.Context, collection, id string, data any) (*Document, error) {
	raw, err := encode(data)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = uuid.NewString()
	}

	var row documentRow
	err = sqlx.GetContext(ctx, s.db, &row,
		`INSERT INTO documents (collection, id, data, version, created_at, updated_at)
         VALUES ($1, $2, $3::jsonb, 1, $4, $4)`+returning,
		collection, id, string(raw), s.now())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDocumentExists
		}
		return nil, fmt.Errorf("failed to insert %s/%s: %w", collection, id, err)
	}
	return row.document(), nil
}

func (s *PostgresStore) CreateOrGet(ctx context.Context, collection, id string, data any) (*Document, bool, error) {
	raw, err := encode(data)
	if err != nil {
		return nil, false, err
	}

	var row documentRow
	err = sqlx.GetContext(ctx, s.db, &row,
		`INSERT INTO documents (collection, id, data, version, created_at, updated_at)
         VALUES ($1, $2, $3::jsonb, 1, $4, $4)
         ON CONFLICT (collection, id) DO NOTHING`+returning,
		collection, id, string(raw), s.now())
	if err == nil {
		return row.document(), true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to insert %s/%s: %w", collection, id, err)
	}

	doc, err := s.get(ctx, s.db, collection, id)
	if err != nil {
		return nil, false, err
	}
	return doc, false, nil
}

func (s *PostgresStore) Set(ctx context.Context, collection, id string, data any) (*Document, error) {
	raw, err := encode(data)
	if err != nil {
		return nil, err
	}
	return s.set(ctx, s.db, collection, id, raw)
}

func (s *PostgresStore) set(ctx context.Context, q sqlx.QueryerContext, collection, id string, raw json.RawMessage) (*Document, error) {
	var row documentRow
	err := sqlx.GetContext(ctx, q, &row,
		`INSERT INTO documents (collection, id, data, version, created_at, updated_at)
         VALUES ($1, $2, $3::jsonb, 1, $4, $4)
         ON CONFLICT (collection, id) DO UPDATE SET
             data = EXCLUDED.data,
             version = documents.version + 1,
             updated_at = EXCLUDED.updated_at`+returning,
		collection, id, string(raw), s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to set %s/%s: %w", collection, id, err)
	}
	return row.document(), nil
}

func (s *PostgresStore) Update(ctx context.Context, collection, id string, data any, expectedVersion int) (*Document, error) {
	raw, err := encode(data)
	if err != nil {
		return nil, err
	}

	query := `UPDATE documents SET data = $3::jsonb, version = version + 1, updated_at = $4
              WHERE collection = $1 AND id = $2`
	args := []any{collection, id, string(raw), s.now()}
	if expectedVersion != 0 {
		query += ` AND version = $5`
		args = append(args, expectedVersion)
	}

	var row documentRow
	err = sqlx.GetContext(ctx, s.db, &row, query+returning, args...)
	if err == nil {
		return row.document(), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}

	if _, getErr := s.get(ctx, s.db, collection, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrVersionConflict
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, collection string, q Query) ([]*Document, error) {
	query, args, err := buildFind(collection, q)
	if err != nil {
		return nil, err
	}

	var rows []documentRow
	if err := sqlx.SelectContext(ctx, s.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}

	docs := make([]*Document, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, r.document())
	}
	return docs, nil
}

func buildFind(collection string, q Query) (string, []any, error) {
	if err := q.validate(); err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	sb.WriteString(`SELECT collection, id, data, version, created_at, updated_at FROM documents WHERE collection = $1`)
	args := []any{collection}

	for _, f := range q.Filters {
		value, err := json.Marshal(f.Value)
		if err != nil {
			return "", nil, fmt.Errorf("encode filter %s: %w", f.Field, err)
		}
		args = append(args, f.Field, string(value))
		fmt.Fprintf(&sb, ` AND data #> string_to_array($%d, '.') %s $%d::jsonb`,
			len(args)-1, sqlOperators[f.Op], len(args))
	}

	if q.OrderBy != "" {
		args = append(args, q.OrderBy)
		dir := "ASC"
		if q.Descending {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, ` ORDER BY data #> string_to_array($%d, '.') %s NULLS LAST, id`, len(args), dir)
	} else {
		sb.WriteString(` ORDER BY id`)
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, ` LIMIT $%d`, len(args))
	}
	return sb.String(), args, nil
}

func (s *PostgresStore) Increment(ctx context.Context, collection, id string, deltas map[string]float64, set map[string]any) error {
	if err := validateCounters(deltas, set); err != nil {
		return err
	}
	return s.increment(ctx, s.db, collection, id, deltas, set)
}

func (s *PostgresStore) increment(ctx context.Context, e sqlx.ExecerContext, collection, id string, deltas map[string]float64, set map[string]any) error {
	query, args, err := buildIncrement(collection, id, deltas, set, s.now())
	if err != nil {
		return err
	}
	if _, err := e.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to increment %s/%s: %w", collection, id, err)
	}
	return nil
}

// buildIncrement renders a single upsert so concurrent increments are serialised by the row lock.
func buildIncrement(collection, id string, deltas map[string]float64, set map[string]any, now time.Time) (string, []any, error) {
	initial := make(map[string]any, len(deltas)+len(set))
	for k, v := range deltas {
		initial[k] = v
	}
	for k, v := range set {
		initial[k] = v
	}
	initialJSON, err := json.Marshal(initial)
	if err != nil {
		return "", nil, fmt.Errorf("encode increment: %w", err)
	}
	if set == nil {
		set = map[string]any{}
	}
	setJSON, err := json.Marshal(set)
	if err != nil {
		return "", nil, fmt.Errorf("encode increment: %w", err)
	}

	args := []any{collection, id, string(initialJSON), now, string(setJSON)}

	fields := make([]string, 0, len(deltas))
	for k := range deltas {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	pairs := make([]string, 0, len(fields))
	for _, f := range fields {
		args = append(args, f, deltas[f])
		n := len(args)
		pairs = append(pairs, fmt.Sprintf(
			`$%d::text, COALESCE((documents.data->>$%d)::numeric, 0) + $%d::numeric`, n-1, n-1, n))
	}

	query := `INSERT INTO documents (collection, id, data, version, created_at, updated_at)
         VALUES ($1, $2, $3::jsonb, 1, $4, $4)
         ON CONFLICT (collection, id) DO UPDATE SET
             data = documents.data || jsonb_build_object(` + strings.Join(pairs, ", ") + `) || $5::jsonb,
             version = documents.version + 1,
             updated_at = EXCLUDED.updated_at`
	return query, args, nil
}

func (s *PostgresStore) Commit(ctx context.Context, b *Batch) error {
	if b.Len() > MaxBatchSize {
		return ErrBatchTooLarge
	}
	if b.Len() == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch: %w", err)
	}
	defer tx.Rollback()

	for i, op := range b.ops {
		if err := s.apply(ctx, tx, op); err != nil {
			return fmt.Errorf("operation %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

func (s *PostgresStore) apply(ctx context.Context, tx *sqlx.Tx, op Operation) error {
	switch op.Kind {
	case OpSet:
		raw, err := encode(op.Data)
		if err != nil {
			return err
		}
		_, err = s.set(ctx, tx, op.Collection, op.ID, raw)
		return err
	case OpMerge:
		if err := validateCounters(nil, op.Fields); err != nil {
			return err
		}
		patch, err := json.Marshal(op.Fields)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE documents SET data = data || $3::jsonb, version = version + 1, updated_at = $4
             WHERE collection = $1 AND id = $2`,
			op.Collection, op.ID, string(patch), s.now())
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrDocumentNotFound
		}
		return nil
	case OpDelete:
		_, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, op.Collection, op.ID)
		return err
	case OpIncrement:
		if err := validateCounters(op.Deltas, op.Fields); err != nil {
			return err
		}
		return s.increment(ctx, tx, op.Collection, op.ID, op.Deltas, op.Fields)
	}
	return fmt.Errorf("unknown operation kind %d", op.Kind)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}
