// Package memstore is an in-memory implementation of every repository port.
// It honours tenant scoping and runs transactions inline: one transaction at a
// time, with a snapshot restored when the transaction function fails.
package memstore

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	mongotx "buscharter/pkg/db/mongo"
	"buscharter/pkg/model"
	"buscharter/pkg/tenant"
)

type txKey struct{}

type data struct {
	bookings    map[string]model.Booking
	trips       map[string]model.Trip
	counters    map[string]int64
	charges     map[string]model.Charge
	payments    map[string]model.Payment
	vehicles    map[string]model.Vehicle
	drivers     map[string]model.Driver
	assignments map[string]model.Assignment
	fences      map[string]int64
	customers   map[string]model.Customer
	order       map[string]int64
	seq         int64
}

func newData() *data {
	return &data{
		bookings:    map[string]model.Booking{},
		trips:       map[string]model.Trip{},
		counters:    map[string]int64{},
		charges:     map[string]model.Charge{},
		payments:    map[string]model.Payment{},
		vehicles:    map[string]model.Vehicle{},
		drivers:     map[string]model.Driver{},
		assignments: map[string]model.Assignment{},
		fences:      map[string]int64{},
		customers:   map[string]model.Customer{},
		order:       map[string]int64{},
	}
}

func (d *data) clone() *data {
	return &data{
		bookings:    maps.Clone(d.bookings),
		trips:       maps.Clone(d.trips),
		counters:    maps.Clone(d.counters),
		charges:     maps.Clone(d.charges),
		payments:    maps.Clone(d.payments),
		vehicles:    maps.Clone(d.vehicles),
		drivers:     maps.Clone(d.drivers),
		assignments: maps.Clone(d.assignments),
		fences:      maps.Clone(d.fences),
		customers:   maps.Clone(d.customers),
		order:       maps.Clone(d.order),
		seq:         d.seq,
	}
}

// touch records insertion order so listings sort stably.
func (d *data) touch(id string) {
	if _, ok := d.order[id]; ok {
		return
	}
	d.seq++
	d.order[id] = d.seq
}

type lockEntry struct {
	owner     string
	expiresAt time.Time
}

type Store struct {
	txMu sync.Mutex

	mu     sync.RWMutex
	data   *data
	faults map[string]error

	lockMu sync.Mutex
	locks  map[string]lockEntry

	now func() time.Time
}

func New() *Store {
	return &Store{
		data:   newData(),
		faults: map[string]error{},
		locks:  map[string]lockEntry{},
		now:    time.Now,
	}
}

// InjectFault makes the next call of op fail with err. Op names are
// "<collection>.<method>", e.g. "payments.create".
func (s *Store) InjectFault(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

// fault must be called with s.mu held for writing.
func (s *Store) fault(op string) error {
	if err, ok := s.faults[op]; ok {
		delete(s.faults, op)
		return err
	}
	return nil
}

var _ mongotx.TransactionManager = (*Store)(nil)

func (s *Store) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	if InTransaction(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func InTransaction(ctx context.Context) bool {
	return ctx.Value(txKey{}) != nil
}

func tenantOf(ctx context.Context) (string, error) {
	id, err := tenant.ID(ctx)
	if err != nil {
		return "", fmt.Errorf("scoped query: %w", err)
	}
	return id, nil
}
