package patient

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/ehr/patientstore/internal/platform/fhir"
)

type memoryRecord struct {
	doc []byte
	key int64
}

// patientRepoMemory keeps documents serialised in a concurrent map. Iteration
// keys are handed out on first insert and kept across updates.
type patientRepoMemory struct {
	docs   *xsync.MapOf[string, memoryRecord]
	issued *xsync.MapOf[string, struct{}]
	seq    atomic.Int64
}

func NewRepoMemory() Repository {
	return &patientRepoMemory{
		docs:   xsync.NewMapOf[string, memoryRecord](),
		issued: xsync.NewMapOf[string, struct{}](),
	}
}

func (r *patientRepoMemory) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (r *patientRepoMemory) NextID(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("next id: %w", err)
	}
	for {
		id, err := uuid.NewRandom()
		if err != nil {
			return "", fmt.Errorf("next id: %w", err)
		}
		if _, taken := r.issued.LoadOrStore(id.String(), struct{}{}); !taken {
			return id.String(), nil
		}
	}
}

func (r *patientRepoMemory) Upsert(ctx context.Context, p *Patient) (string, error) {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return "", fmt.Errorf("patient upsert: %w", ErrInvalidID)
	}
	doc, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("patient upsert: encode: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("patient upsert: %w", err)
	}
	r.docs.Compute(id.String(), func(old memoryRecord, loaded bool) (memoryRecord, bool) {
		key := old.key
		if !loaded {
			key = r.seq.Add(1)
		}
		return memoryRecord{doc: doc, key: key}, false
	})
	return id.String(), nil
}

func (r *patientRepoMemory) Get(_ context.Context, id string) (*Patient, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	rec, ok := r.docs.Load(uid.String())
	if !ok {
		return nil, ErrNotFound
	}
	var p Patient
	if err := json.Unmarshal(rec.doc, &p); err != nil {
		return nil, fmt.Errorf("patient get: decode: %w", err)
	}
	return &p, nil
}

func (r *patientRepoMemory) Search(_ context.Context, f *Filter) ([]Stub, error) {
	stubs := []Stub{}
	if f.Count <= 0 {
		return stubs, nil
	}

	var after int64
	switch {
	case f.After != nil:
		rec, ok := r.docs.Load(f.After.ID)
		if !ok || rec.key != f.After.Key {
			return stubs, nil
		}
		after = rec.key
	case f.AfterID != "":
		rec, ok := r.docs.Load(f.AfterID)
		if !ok {
			return stubs, nil
		}
		after = rec.key
	}

	type hit struct {
		id  string
		key int64
		p   *Patient
	}
	var hits []hit
	var decodeErr error
	r.docs.Range(func(id string, rec memoryRecord) bool {
		if rec.key <= after {
			return true
		}
		var p Patient
		if err := json.Unmarshal(rec.doc, &p); err != nil {
			decodeErr = fmt.Errorf("patient search: decode %s: %w", id, err)
			return false
		}
		if f.Matches(&p) {
			hits = append(hits, hit{id: id, key: rec.key, p: &p})
		}
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].key < hits[j].key })
	if len(hits) > f.Count {
		hits = hits[:f.Count]
	}
	for _, h := range hits {
		h.p.ID = h.id
		stubs = append(stubs, h.p.Stub(fhir.EncodeCursor(h.key, h.id)))
	}
	return stubs, nil
}
