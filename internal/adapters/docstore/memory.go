package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps documents in process memory. Stored documents are immutable;
// every write replaces the pointer.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]*Document
	now         func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]*Document),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.collections[collection][id]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return clone(doc), nil
}

func (m *MemoryStore) Create(ctx context.Context, collection, id string, data any) (*Document, error) {
	raw, err := encode(data)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	}
	if _, ok := m.collections[collection][id]; ok {
		return nil, ErrDocumentExists
	}
	return clone(m.put(collection, id, raw, nil)), nil
}

func (m *MemoryStore) CreateOrGet(ctx context.Context, collection, id string, data any) (*Document, bool, error) {
	raw, err := encode(data)
	if err != nil {
		return nil, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if doc, ok := m.collections[collection][id]; ok {
		return clone(doc), false, nil
	}
	return clone(m.put(collection, id, raw, nil)), true, nil
}

func (m *MemoryStore) Set(ctx context.Context, collection, id string, data any) (*Document, error) {
	raw, err := encode(data)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return clone(m.put(collection, id, raw, m.collections[collection][id])), nil
}

func (m *MemoryStore) Update(ctx context.Context, collection, id string, data any, expectedVersion int) (*Document, error) {
	raw, err := encode(data)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.collections[collection][id]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	if expectedVersion != 0 && existing.Version != expectedVersion {
		return nil, ErrVersionConflict
	}
	return clone(m.put(collection, id, raw, existing)), nil
}

func (m *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.collections[collection][id]; !ok {
		return ErrDocumentNotFound
	}
	delete(m.collections[collection], id)
	return nil
}

func (m *MemoryStore) Find(ctx context.Context, collection string, q Query) ([]*Document, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}

	type candidate struct {
		doc    *Document
		fields map[string]any
	}

	m.mu.RLock()
	var matches []candidate
	for _, doc := range m.collections[collection] {
		var fields map[string]any
		if err := json.Unmarshal(doc.Data, &fields); err != nil {
			m.mu.RUnlock()
			return nil, fmt.Errorf("decode %s/%s: %w", collection, doc.ID, err)
		}
		if matchAll(fields, q.Filters) {
			matches = append(matches, candidate{doc: doc, fields: fields})
		}
	}
	m.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if q.OrderBy != "" {
			a, aok := lookup(matches[i].fields, q.OrderBy)
			b, bok := lookup(matches[j].fields, q.OrderBy)
			switch {
			case aok && !bok:
				return true
			case !aok && bok:
				return false
			case aok && bok:
				if c, ok := compare(a, b); ok && c != 0 {
					if q.Descending {
						return c > 0
					}
					return c < 0
				}
			}
		}
		return matches[i].doc.ID < matches[j].doc.ID
	})

	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}

	out := make([]*Document, 0, len(matches))
	for _, c := range matches {
		out = append(out, clone(c.doc))
	}
	return out, nil
}

func (m *MemoryStore) Increment(ctx context.Context, collection, id string, deltas map[string]float64, set map[string]any) error {
	if err := validateCounters(deltas, set); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.increment(collection, id, deltas, set)
}

func (m *MemoryStore) Commit(ctx context.Context, b *Batch) error {
	if b.Len() > MaxBatchSize {
		return ErrBatchTooLarge
	}

	encoded := make([]json.RawMessage, b.Len())
	for i, op := range b.ops {
		var err error
		switch op.Kind {
		case OpSet:
			encoded[i], err = encode(op.Data)
		case OpMerge:
			err = validateCounters(nil, op.Fields)
		case OpIncrement:
			err = validateCounters(op.Deltas, op.Fields)
		}
		if err != nil {
			return fmt.Errorf("operation %d: %w", i, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make(map[string]map[string]*Document)
	for _, op := range b.ops {
		if _, ok := snapshot[op.Collection]; ok {
			continue
		}
		docs := make(map[string]*Document, len(m.collections[op.Collection]))
		for k, v := range m.collections[op.Collection] {
			docs[k] = v
		}
		snapshot[op.Collection] = docs
	}

	for i, op := range b.ops {
		if err := m.apply(op, encoded[i]); err != nil {
			for coll, docs := range snapshot {
				m.collections[coll] = docs
			}
			return fmt.Errorf("operation %d: %w", i, err)
		}
	}
	return nil
}

func (m *MemoryStore) apply(op Operation, raw json.RawMessage) error {
	switch op.Kind {
	case OpSet:
		m.put(op.Collection, op.ID, raw, m.collections[op.Collection][op.ID])
	case OpMerge:
		existing, ok := m.collections[op.Collection][op.ID]
		if !ok {
			return ErrDocumentNotFound
		}
		fields, err := decodeFields(existing.Data)
		if err != nil {
			return err
		}
		for k, v := range op.Fields {
			fields[k] = v
		}
		merged, err := json.Marshal(fields)
		if err != nil {
			return err
		}
		m.put(op.Collection, op.ID, merged, existing)
	case OpDelete:
		delete(m.collections[op.Collection], op.ID)
	case OpIncrement:
		return m.increment(op.Collection, op.ID, op.Deltas, op.Fields)
	default:
		return fmt.Errorf("unknown operation kind %d", op.Kind)
	}
	return nil
}

func (m *MemoryStore) increment(collection, id string, deltas map[string]float64, set map[string]any) error {
	existing := m.collections[collection][id]
	fields := map[string]any{}
	if existing != nil {
		var err error
		if fields, err = decodeFields(existing.Data); err != nil {
			return err
		}
	}

	for field, delta := range deltas {
		current, _ := fields[field].(float64)
		fields[field] = current + delta
	}
	for k, v := range set {
		fields[k] = v
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	m.put(collection, id, raw, existing)
	return nil
}

func (m *MemoryStore) put(collection, id string, raw json.RawMessage, existing *Document) *Document {
	now := m.now()
	doc := &Document{
		Collection: collection,
		ID:         id,
		Data:       append(json.RawMessage(nil), raw...),
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if existing != nil {
		doc.Version = existing.Version + 1
		doc.CreatedAt = existing.CreatedAt
	}

	if m.collections[collection] == nil {
		m.collections[collection] = make(map[string]*Document)
	}
	m.collections[collection][id] = doc
	return doc
}

func clone(doc *Document) *Document {
	c := *doc
	c.Data = append(json.RawMessage(nil), doc.Data...)
	return &c
}

func decodeFields(raw json.RawMessage) (map[string]any, error) {
	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return fields, nil
}

func lookup(fields map[string]any, path string) (any, bool) {
	var cur any = fields
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = obj[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// normalize converts a Go value into its JSON-decoded form so it compares with stored data.
func normalize(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

func compare(a, b any) (int, bool) {
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		if x == y {
			return 0, true
		}
		if !x {
			return -1, true
		}
		return 1, true
	case nil:
		return 0, b == nil
	}
	return 0, false
}

func matchAll(fields map[string]any, filters []Filter) bool {
	for _, f := range filters {
		v, ok := lookup(fields, f.Field)
		if !ok {
			return false
		}
		c, comparable := compare(v, normalize(f.Value))
		var pass bool
		switch f.Op {
		case Eq:
			pass = comparable && c == 0
		case Ne:
			pass = !comparable || c != 0
		case Lt:
			pass = comparable && c < 0
		case Lte:
			pass = comparable && c <= 0
		case Gt:
			pass = comparable && c > 0
		case Gte:
			pass = comparable && c >= 0
		}
		if !pass {
			return false
		}
	}
	return true
}
