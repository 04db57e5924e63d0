// Package docstore stores JSON documents grouped in collections and addressed by id.
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"
)

// MaxBatchSize caps the number of operations committed atomically.
const MaxBatchSize = 500

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrDocumentExists   = errors.New("document already exists")
	ErrVersionConflict  = errors.New("document version conflict")
	ErrBatchTooLarge    = fmt.Errorf("batch exceeds %d operations", MaxBatchSize)
	ErrInvalidField     = errors.New("invalid field path")
	ErrInvalidDocument  = errors.New("document data must be a JSON object")
)

var (
	fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)
	topLevelName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

type Document struct {
	Collection string          `json:"collection"`
	ID         string          `json:"id"`
	Data       json.RawMessage `json:"data"`
	Version    int             `json:"version"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (d *Document) Decode(v any) error {
	if err := json.Unmarshal(d.Data, v); err != nil {
		return fmt.Errorf("decode %s/%s: %w", d.Collection, d.ID, err)
	}
	return nil
}

type Operator string

const (
	Eq  Operator = "=="
	Ne  Operator = "!="
	Lt  Operator = "<"
	Lte Operator = "<="
	Gt  Operator = ">"
	Gte Operator = ">="
)

// Filter compares the value at a dotted field path with Value.
// Documents missing the field never match.
type Filter struct {
	Field string
	Op    Operator
	Value any
}

func Where(field string, op Operator, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

// Query is a conjunction of filters with an optional ordering and limit.
// Results are ordered by id when OrderBy is empty.
type Query struct {
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

func (q Query) validate() error {
	for _, f := range q.Filters {
		if !fieldPattern.MatchString(f.Field) {
			return fmt.Errorf("%w: %q", ErrInvalidField, f.Field)
		}
		switch f.Op {
		case Eq, Ne, Lt, Lte, Gt, Gte:
		default:
			return fmt.Errorf("unsupported operator %q", f.Op)
		}
	}
	if q.OrderBy != "" && !fieldPattern.MatchString(q.OrderBy) {
		return fmt.Errorf("%w: %q", ErrInvalidField, q.OrderBy)
	}
	return nil
}

type Store interface {
	Get(ctx context.Context, collection, id string) (*Document, error)

	// Create stores a new document and fails with ErrDocumentExists when the id is taken.
	// An empty id is replaced by a generated one.
	Create(ctx context.Context, collection, id string, data any) (*Document, error)

	// CreateOrGet returns the existing document or creates it. The boolean reports creation.
	CreateOrGet(ctx context.Context, collection, id string, data any) (*Document, bool, error)

	// Set overwrites the document unconditionally, creating it if needed.
	Set(ctx context.Context, collection, id string, data any) (*Document, error)

	// Update overwrites an existing document. A non-zero expectedVersion must match the
	// stored version or ErrVersionConflict is returned.
	Update(ctx context.Context, collection, id string, data any, expectedVersion int) (*Document, error)

	Delete(ctx context.Context, collection, id string) error

	Find(ctx context.Context, collection string, q Query) ([]*Document, error)

	// Increment atomically adds deltas to top-level numeric fields (missing fields count
	// as zero) and merges set into the document, creating it if needed.
	Increment(ctx context.Context, collection, id string, deltas map[string]float64, set map[string]any) error

	// Commit applies every operation of the batch or none of them.
	Commit(ctx context.Context, b *Batch) error
}

type OpKind int

const (
	OpSet OpKind = iota
	OpMerge
	OpDelete
	OpIncrement
)

type Operation struct {
	Kind       OpKind
	Collection string
	ID         string
	Data       any
	Deltas     map[string]float64
	Fields     map[string]any
}

type Batch struct {
	ops []Operation
}

func NewBatch() *Batch {
	return &Batch{}
}

func (b *Batch) Set(collection, id string, data any) *Batch {
	b.ops = append(b.ops, Operation{Kind: OpSet, Collection: collection, ID: id, Data: data})
	return b
}

// Merge overwrites the given top-level fields of an existing document.
func (b *Batch) Merge(collection, id string, fields map[string]any) *Batch {
	b.ops = append(b.ops, Operation{Kind: OpMerge, Collection: collection, ID: id, Fields: fields})
	return b
}

// Delete removes a document. Missing documents are ignored.
func (b *Batch) Delete(collection, id string) *Batch {
	b.ops = append(b.ops, Operation{Kind: OpDelete, Collection: collection, ID: id})
	return b
}

func (b *Batch) Increment(collection, id string, deltas map[string]float64, set map[string]any) *Batch {
	b.ops = append(b.ops, Operation{Kind: OpIncrement, Collection: collection, ID: id, Deltas: deltas, Fields: set})
	return b
}

func (b *Batch) Len() int {
	return len(b.ops)
}

func (b *Batch) Operations() []Operation {
	return b.ops
}

// CommitChunked commits ops in consecutive batches of at most MaxBatchSize operations.
// Each chunk is atomic; a failure stops at the failing chunk.
func CommitChunked(ctx context.Context, s Store, ops []Operation) error {
	for start := 0; start < len(ops); start += MaxBatchSize {
		end := min(start+MaxBatchSize, len(ops))
		if err := s.Commit(ctx, &Batch{ops: ops[start:end]}); err != nil {
			return fmt.Errorf("commit operations %d-%d: %w", start, end, err)
		}
	}
	return nil
}

func encode(data any) (json.RawMessage, error) {
	var raw []byte
	switch v := data.(type) {
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	default:
		b, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode document: %w", err)
		}
		raw = b
	}
	if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		return nil, ErrInvalidDocument
	}
	return raw, nil
}

func validateCounters(deltas map[string]float64, set map[string]any) error {
	for field := range deltas {
		if !topLevelName.MatchString(field) {
			return fmt.Errorf("%w: %q", ErrInvalidField, field)
		}
	}
	for field := range set {
		if !topLevelName.MatchString(field) {
			return fmt.Errorf("%w: %q", ErrInvalidField, field)
		}
	}
	return nil
}
