package mocks

import (
	"context"
	"sync"

	"github.com/blkmlk/file-dashboard/internal/services/repository"
)

// PlanSource is an in-memory quota.PlanSource with a scriptable failure.
type PlanSource struct {
	locker sync.Mutex
	plans  map[string]repository.PlanRecord
	err    error
}

func NewPlanSource() *PlanSource {
	return &PlanSource{
		plans: make(map[string]repository.PlanRecord),
	}
}

func (p *PlanSource) GetPlan(ctx context.Context, ownerID string) (*repository.PlanRecord, error) {
	p.locker.Lock()
	defer p.locker.Unlock()

	if p.err != nil {
		return nil, p.err
	}

	plan, ok := p.plans[ownerID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &plan, nil
}

func (p *PlanSource) SetPlan(ownerID, planID, status string) {
	p.locker.Lock()
	defer p.locker.Unlock()
	p.plans[ownerID] = repository.PlanRecord{OwnerID: ownerID, PlanID: planID, Status: status}
}

func (p *PlanSource) SetErr(err error) {
	p.locker.Lock()
	defer p.locker.Unlock()
	p.err = err
}
