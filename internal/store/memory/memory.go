// Package memory is an in-process store.Store. Each unit of work runs against
// a private copy of the data which replaces the shared copy only when the
// unit succeeds, so a failed unit leaves nothing behind.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Dan9191/calendar-ads/internal/models"
	"github.com/Dan9191/calendar-ads/internal/store"
)

type state struct {
	overviews    map[int64]*models.PaymentOverview
	installments map[int64]*models.Installment
	allocations  map[int64]*models.PaymentAllocation
	payments     map[int64]*models.Payment
	nextID       int64
}

func newState() *state {
	return &state{
		overviews:    map[int64]*models.PaymentOverview{},
		installments: map[int64]*models.Installment{},
		allocations:  map[int64]*models.PaymentAllocation{},
		payments:     map[int64]*models.Payment{},
	}
}

func (s *state) clone() *state {
	c := newState()
	c.nextID = s.nextID
	for id, o := range s.overviews {
		c.overviews[id] = o.Clone()
	}
	for id, i := range s.installments {
		c.installments[id] = i.Clone()
	}
	for id, a := range s.allocations {
		cp := *a
		c.allocations[id] = &cp
	}
	for id, p := range s.payments {
		cp := *p
		c.payments[id] = &cp
	}
	return c
}

// Store keeps all rows in memory
type Store struct {
	mu   sync.Mutex
	data *state
	now  func() time.Time
}

// New initializes an empty store
func New() *Store {
	return &Store{data: newState(), now: time.Now}
}

// WithinTx runs fn against a snapshot and publishes it only if fn succeeds
func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	t := &tx{data: s.data.clone(), now: s.now}
	if err := fn(t); err != nil {
		return err
	}
	s.data = t.data
	return nil
}

type tx struct {
	data *state
	now  func() time.Time
}

func (t *tx) id() int64 {
	t.data.nextID++
	return t.data.nextID
}

func notFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, models.ErrNotFound)
}

func (t *tx) CreateOverview(_ context.Context, o *models.PaymentOverview) error {
	o.ID = t.id()
	o.CreatedAt = t.now()
	o.UpdatedAt = o.CreatedAt
	t.data.overviews[o.ID] = o.Clone()
	return nil
}

func (t *tx) GetOverview(_ context.Context, id int64) (*models.PaymentOverview, error) {
	o, ok := t.data.overviews[id]
	if !ok {
		return nil, notFound("payment overview", id)
	}
	return o.Clone(), nil
}

func (t *tx) UpdateOverview(_ context.Context, o *models.PaymentOverview) error {
	if _, ok := t.data.overviews[o.ID]; !ok {
		return notFound("payment overview", o.ID)
	}
	o.UpdatedAt = t.now()
	t.data.overviews[o.ID] = o.Clone()
	return nil
}

func (t *tx) CreateInstallments(_ context.Context, items []*models.Installment) error {
	now := t.now()
	for _, inst := range items {
		if _, ok := t.data.overviews[inst.OverviewID]; !ok {
			return notFound("payment overview", inst.OverviewID)
		}
		inst.ID = t.id()
		inst.CreatedAt = now
		inst.UpdatedAt = now
		t.data.installments[inst.ID] = inst.Clone()
	}
	return nil
}

func (t *tx) GetInstallment(_ context.Context, id int64) (*models.Installment, error) {
	inst, ok := t.data.installments[id]
	if !ok {
		return nil, notFound("installment", id)
	}
	return inst.Clone(), nil
}

func (t *tx) listInstallments(keep func(*models.Installment) bool) []*models.Installment {
	var out []*models.Installment
	for _, inst := range t.data.installments {
		if keep(inst) {
			out = append(out, inst.Clone())
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].DueDate.Equal(out[b].DueDate) {
			return out[a].DueDate.Before(out[b].DueDate)
		}
		return out[a].ID < out[b].ID
	})
	return out
}

func (t *tx) ListInstallments(_ context.Context, overviewID int64) ([]*models.Installment, error) {
	return t.listInstallments(func(i *models.Installment) bool {
		return i.OverviewID == overviewID
	}), nil
}

func (t *tx) ListUnpaidInstallments(_ context.Context, overviewID int64) ([]*models.Installment, error) {
	return t.listInstallments(func(i *models.Installment) bool {
		return i.OverviewID == overviewID && !i.Paid
	}), nil
}

func (t *tx) ListLateInstallments(_ context.Context, asOf time.Time) ([]models.LateInstallment, error) {
	y, m, d := asOf.UTC().Date()
	cutoff := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	items := t.listInstallments(func(i *models.Installment) bool {
		return !i.Paid && i.DueDate.Before(cutoff)
	})
	out := make([]models.LateInstallment, 0, len(items))
	for _, inst := range items {
		o, ok := t.data.overviews[inst.OverviewID]
		if !ok {
			continue
		}
		out = append(out, models.LateInstallment{Installment: inst, Overview: o.Clone()})
	}
	return out, nil
}

func (t *tx) UpdateInstallment(_ context.Context, inst *models.Installment) error {
	if _, ok := t.data.installments[inst.ID]; !ok {
		return notFound("installment", inst.ID)
	}
	inst.UpdatedAt = t.now()
	t.data.installments[inst.ID] = inst.Clone()
	return nil
}

func (t *tx) DeleteInstallments(_ context.Context, overviewID int64) error {
	for id, inst := range t.data.installments {
		if inst.OverviewID == overviewID {
			delete(t.data.installments, id)
		}
	}
	for id, a := range t.data.allocations {
		if a.OverviewID == overviewID {
			delete(t.data.allocations, id)
		}
	}
	return nil
}

func (t *tx) CreateAllocation(_ context.Context, a *models.PaymentAllocation) error {
	a.ID = t.id()
	a.CreatedAt = t.now()
	cp := *a
	t.data.allocations[a.ID] = &cp
	return nil
}

func (t *tx) listAllocations(keep func(*models.PaymentAllocation) bool) []*models.PaymentAllocation {
	var out []*models.PaymentAllocation
	for _, a := range t.data.allocations {
		if keep(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (t *tx) ListAllocationsByPayment(_ context.Context, paymentID int64) ([]*models.PaymentAllocation, error) {
	return t.listAllocations(func(a *models.PaymentAllocation) bool {
		return a.PaymentID == paymentID
	}), nil
}

func (t *tx) ListAllocationsByOverview(_ context.Context, overviewID int64) ([]*models.PaymentAllocation, error) {
	return t.listAllocations(func(a *models.PaymentAllocation) bool {
		return a.OverviewID == overviewID
	}), nil
}

func (t *tx) DeleteAllocationsByPayment(_ context.Context, paymentID int64) error {
	for id, a := range t.data.allocations {
		if a.PaymentID == paymentID {
			delete(t.data.allocations, id)
		}
	}
	return nil
}

func (t *tx) CreatePayment(_ context.Context, p *models.Payment) error {
	if _, ok := t.data.overviews[p.OverviewID]; !ok {
		return notFound("payment overview", p.OverviewID)
	}
	p.ID = t.id()
	p.CreatedAt = t.now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	t.data.payments[p.ID] = &cp
	return nil
}

func (t *tx) GetPayment(_ context.Context, id int64) (*models.Payment, error) {
	p, ok := t.data.payments[id]
	if !ok {
		return nil, notFound("payment", id)
	}
	cp := *p
	return &cp, nil
}

func (t *tx) ListPayments(_ context.Context, overviewID int64) ([]*models.Payment, error) {
	var out []*models.Payment
	for _, p := range t.data.payments {
		if p.OverviewID == overviewID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) UpdatePayment(_ context.Context, p *models.Payment) error {
	if _, ok := t.data.payments[p.ID]; !ok {
		return notFound("payment", p.ID)
	}
	p.UpdatedAt = t.now()
	cp := *p
	t.data.payments[p.ID] = &cp
	return nil
}

func (t *tx) DeletePayment(_ context.Context, id int64) error {
	if _, ok := t.data.payments[id]; !ok {
		return notFound("payment", id)
	}
	delete(t.data.payments, id)
	for aid, a := range t.data.allocations {
		if a.PaymentID == id {
			delete(t.data.allocations, aid)
		}
	}
	return nil
}
