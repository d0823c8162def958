package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ehr/patientstore/internal/platform/fhir"
)

// IDMetrics counts identities handed out on write.
type IDMetrics interface {
	IDsAssigned(n int)
}

type noopMetrics struct{}

func (noopMetrics) IDsAssigned(int) {}

type Service struct {
	repo    Repository
	metrics IDMetrics
}

func NewService(repo Repository, metrics IDMetrics) *Service {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Service{repo: repo, metrics: metrics}
}

// Upsert gives every node of p that lacks an id a fresh one and stores the
// result. p itself is not modified. Assignment and storage share one
// transaction, so a failure anywhere leaves nothing behind.
//
// A document that lacks a required code fails with ErrInvalidDocument.
func (s *Service) Upsert(ctx context.Context, p *Patient) (string, error) {
	if err := fhir.Validate(p); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	doc, err := p.Clone()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if doc.ID != "" {
		id, err := uuid.Parse(doc.ID)
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidID, doc.ID)
		}
		doc.ID = id.String()
	}

	var (
		id       string
		assigned int
	)
	err = s.repo.WithinTx(ctx, func(ctx context.Context) error {
		n, err := fhir.AssignIDs(ctx, doc, s.repo)
		if err != nil {
			return err
		}
		assigned = n
		id, err = s.repo.Upsert(ctx, doc)
		return err
	})
	if err != nil {
		return "", err
	}
	s.metrics.IDsAssigned(assigned)
	return id, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Patient, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Search(ctx context.Context, c Criteria) ([]Stub, error) {
	f, err := c.Filter()
	if err != nil {
		return nil, err
	}
	return s.repo.Search(ctx, f)
}
