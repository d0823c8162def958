package patient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/patientstore/internal/platform/db"
	"github.com/ehr/patientstore/internal/platform/fhir"
)

type patientRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) db.Querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *patientRepoPG) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.InTx(ctx, r.pool, fn)
}

func (r *patientRepoPG) NextID(ctx context.Context) (string, error) {
	var id uuid.UUID
	if err := r.conn(ctx).QueryRow(ctx, `INSERT INTO id_list DEFAULT VALUES RETURNING id`).Scan(&id); err != nil {
		return "", fmt.Errorf("next id: %w", err)
	}
	return id.String(), nil
}

func (r *patientRepoPG) Upsert(ctx context.Context, p *Patient) (string, error) {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return "", fmt.Errorf("patient upsert: %w", ErrInvalidID)
	}
	doc, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("patient upsert: encode: %w", err)
	}
	birthStart, birthEnd := birthBounds(p.BirthDate)

	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO patient (id, resource, birth_start, birth_end, gender, name_search)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			resource = EXCLUDED.resource,
			birth_start = EXCLUDED.birth_start,
			birth_end = EXCLUDED.birth_end,
			gender = EXCLUDED.gender,
			name_search = EXCLUDED.name_search,
			updated_at = NOW()`,
		id, doc, birthStart, birthEnd, nullIfEmpty(string(p.Gender)), strings.Join(p.NameParts(), "\n"),
	)
	if err != nil {
		return "", fmt.Errorf("patient upsert: %w", err)
	}
	return id.String(), nil
}

func (r *patientRepoPG) Get(ctx context.Context, id string) (*Patient, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var doc []byte
	err = r.conn(ctx).QueryRow(ctx, `SELECT resource FROM patient WHERE id = $1`, uid).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("patient get: %w", err)
	}
	var p Patient
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, fmt.Errorf("patient get: decode: %w", err)
	}
	return &p, nil
}

func (r *patientRepoPG) Search(ctx context.Context, f *Filter) ([]Stub, error) {
	q, err := buildSearchQuery(f)
	if err != nil {
		return nil, err
	}
	rows, err := r.conn(ctx).Query(ctx, q.DataSQL(), q.DataArgs(f.Count)...)
	if err != nil {
		return nil, fmt.Errorf("patient search: %w", err)
	}
	defer rows.Close()

	stubs := []Stub{}
	for rows.Next() {
		var (
			id  uuid.UUID
			doc []byte
			key int64
		)
		if err := rows.Scan(&id, &doc, &key); err != nil {
			return nil, fmt.Errorf("patient search: scan: %w", err)
		}
		var p Patient
		if err := json.Unmarshal(doc, &p); err != nil {
			return nil, fmt.Errorf("patient search: decode %s: %w", id, err)
		}
		p.ID = id.String()
		stubs = append(stubs, p.Stub(fhir.EncodeCursor(key, p.ID)))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("patient search: %w", err)
	}
	return stubs, nil
}

// buildSearchQuery translates f into SQL over the patient table. Filter terms
// combine under the filter mode; the page cursor is always ANDed on.
func buildSearchQuery(f *Filter) (*fhir.SearchQuery, error) {
	q := fhir.NewSearchQuery("patient", "id, resource, iteration_key")
	q.Match(f.Mode)

	for _, t := range f.Terms {
		switch t := t.(type) {
		case NameTerm:
			q.AddContains("name_search", t.Value)
		case BirthDateTerm:
			q.AddDateOverlap("birth_start", "birth_end", t.From, t.Until)
		case GenderTerm:
			q.AddToken("gender", string(t.Value))
		}
	}

	switch {
	case f.After != nil:
		after, err := uuid.Parse(f.After.ID)
		if err != nil {
			return nil, fmt.Errorf("patient search: %w", ErrInvalidCursor)
		}
		// A key the patient does not hold yields NULL and so an empty page.
		q.AddKeyset(fmt.Sprintf("iteration_key > (SELECT iteration_key FROM patient WHERE id = $%d AND iteration_key = $%d)",
			q.Idx(), q.Idx()+1), after, f.After.Key)
	case f.AfterID != "":
		after, err := uuid.Parse(f.AfterID)
		if err != nil {
			return nil, fmt.Errorf("patient search: %w", ErrInvalidCursor)
		}
		// An unknown id yields NULL and so an empty page.
		q.AddKeyset(fmt.Sprintf("iteration_key > (SELECT iteration_key FROM patient WHERE id = $%d)", q.Idx()), after)
	}

	q.OrderBy("iteration_key")
	return q, nil
}

func birthBounds(birthDate string) (*time.Time, *time.Time) {
	if birthDate == "" {
		return nil, nil
	}
	iv, err := fhir.ParseDateInterval(birthDate)
	if err != nil {
		return nil, nil
	}
	return &iv.Start, &iv.End
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
