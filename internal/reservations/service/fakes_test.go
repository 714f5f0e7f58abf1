package service

import (
	"context"
	"sync"
	"time"

	"kitchenrent/internal/notifications"
	"kitchenrent/internal/reservations/conflict"
	reservationserrors "kitchenrent/internal/reservations/errors"
	"kitchenrent/internal/reservations/validator"
	"kitchenrent/pkg/config"
	mongotx "kitchenrent/pkg/db/mongo"
	"kitchenrent/pkg/logger"
	"kitchenrent/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// memoryRepository is an in-memory ReservationRepository with the same
// compare-and-set semantics as the Mongo implementation.
type memoryRepository struct {
	mu    sync.Mutex
	items map[string]*model.Reservation

	// staleOnce makes the next UpdateStatus/Update report a concurrent
	// status change after moving the record to staleTo.
	staleOnce bool
	staleTo   model.ReservationStatus
	createErr error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{items: map[string]*model.Reservation{}}
}

func (m *memoryRepository) Create(ctx context.Context, r *model.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	r.ID = primitive.NewObjectID().Hex()
	r.CreatedAt = time.Now().UTC()
	r.UpdatedAt = r.CreatedAt
	cp := *r
	m.items[r.ID] = &cp
	return nil
}

func (m *memoryRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok {
		return nil, reservationserrors.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memoryRepository) Find(ctx context.Context, filter *model.ReservationFilter, limit int, offset int64) ([]*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.Reservation{}
	for _, r := range m.items {
		if filter.CustomerID != "" && r.CustomerID != filter.CustomerID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memoryRepository) Count(ctx context.Context, filter *model.ReservationFilter) (int64, error) {
	found, _ := m.Find(ctx, filter, 0, 0)
	return int64(len(found)), nil
}

func (m *memoryRepository) stale(id string) bool {
	if !m.staleOnce {
		return false
	}
	m.staleOnce = false
	m.items[id].Status = m.staleTo
	return true
}

func (m *memoryRepository) Update(ctx context.Context, r *model.Reservation, expected model.ReservationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.items[r.ID]
	if !ok {
		return reservationserrors.ErrNotFound
	}
	if m.stale(r.ID) || stored.Status != expected {
		return reservationserrors.ErrStaleStatus
	}
	cp := *r
	cp.Status = stored.Status
	cp.UpdatedAt = time.Now().UTC()
	m.items[r.ID] = &cp
	return nil
}

func (m *memoryRepository) UpdateStatus(ctx context.Context, id string, from, to model.ReservationStatus) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.items[id]
	if !ok {
		return nil, reservationserrors.ErrNotFound
	}
	if m.stale(id) || stored.Status != from {
		return nil, reservationserrors.ErrStaleStatus
	}
	stored.Status = to
	stored.UpdatedAt = time.Now().UTC()
	cp := *stored
	return &cp, nil
}

func (m *memoryRepository) Delete(ctx context.Context, id string, allowed []model.ReservationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.items[id]
	if !ok {
		return reservationserrors.ErrNotFound
	}
	if !stored.Status.In(allowed) {
		return reservationserrors.ErrStaleStatus
	}
	delete(m.items, id)
	return nil
}

func (m *memoryRepository) ExistsOverlapping(ctx context.Context, equipmentID string, start, end time.Time, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.items {
		if id == excludeID || r.EquipmentID != equipmentID || !r.Status.In(model.BlockingStatuses) {
			continue
		}
		if conflict.Overlaps(start, end, r.StartDate, r.EndDate) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.NewSessionContext(ctx, nil))
}

func (m *memoryRepository) status(id string) model.ReservationStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id].Status
}

func (m *memoryRepository) put(r *model.Reservation) *model.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = primitive.NewObjectID().Hex()
	}
	cp := *r
	m.items[r.ID] = &cp
	return r
}

type mockEquipmentRepository struct {
	findByIDFunc func(ctx context.Context, id string) (*model.Equipment, error)
}

func (m *mockEquipmentRepository) FindByID(ctx context.Context, id string) (*model.Equipment, error) {
	return m.findByIDFunc(ctx, id)
}

func staticEquipment(items ...*model.Equipment) *mockEquipmentRepository {
	byID := map[string]*model.Equipment{}
	for _, e := range items {
		byID[e.ID] = e
	}
	return &mockEquipmentRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Equipment, error) {
			if e, ok := byID[id]; ok {
				cp := *e
				return &cp, nil
			}
			return nil, reservationserrors.ErrEquipmentNotFound
		},
	}
}

type sentEvent struct {
	event     notifications.Event
	audiences []notifications.Audience
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (n *recordingNotifier) Notify(ctx context.Context, event notifications.Event, audiences ...notifications.Audience) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, sentEvent{event: event, audiences: audiences})
}

func (n *recordingNotifier) types() []notifications.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notifications.EventType, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.event.Type)
	}
	return out
}

func (n *recordingNotifier) count(t notifications.EventType) int {
	c := 0
	for _, got := range n.types() {
		if got == t {
			c++
		}
	}
	return c
}

func testConfig() *config.Config {
	log := logger.New(logger.Config{
		Level:     "error",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})
	return &config.Config{
		Log:                  log,
		ReadTimeout:          5 * time.Second,
		WriteTimeout:         5 * time.Second,
		DefaultCurrency:      "usd",
		LockTTL:              time.Second,
		LockWaitTimeout:      2 * time.Second,
		CustomerCancelCutoff: 24 * time.Hour,
		MaxAdvanceBooking:    365 * 24 * time.Hour,
	}
}

type harness struct {
	svc       *reservationService
	repo      *memoryRepository
	notifier  *recordingNotifier
	equipment *model.Equipment
	now       time.Time
}

var (
	customer  = model.Actor{ID: "cust-1", Role: model.RoleCustomer}
	stranger  = model.Actor{ID: "cust-2", Role: model.RoleCustomer}
	admin     = model.Actor{ID: "admin-1", Role: model.RoleAdmin}
	logistics = model.Actor{ID: "ops-1", Role: model.RoleLogistics}
)

func newHarness(extra ...*model.Equipment) *harness {
	cfg := testConfig()
	oven := &model.Equipment{
		ID:        primitive.NewObjectID().Hex(),
		Name:      "Combi oven",
		Status:    model.EquipmentAvailable,
		DailyRate: 50,
	}
	repo := newMemoryRepository()
	notifier := &recordingNotifier{}
	v := validator.NewReservationValidator(cfg.Log)

	svc := newReservationService(repo, nil, staticEquipment(append(extra, oven)...), v, notifier, cfg)
	h := &harness{
		svc:       svc,
		repo:      repo,
		notifier:  notifier,
		equipment: oven,
		now:       time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC),
	}
	svc.now = func() time.Time { return h.now }
	return h
}

// date returns now's calendar day shifted by days, as YYYY-MM-DD.
func (h *harness) date(days int) string {
	return model.TruncateDay(h.now).AddDate(0, 0, days).Format(model.DateLayout)
}

func (h *harness) request(startDays, endDays int) *model.ReservationCreate {
	return &model.ReservationCreate{
		EquipmentID:     h.equipment.ID,
		StartDate:       h.date(startDays),
		EndDate:         h.date(endDays),
		DeliveryAddress: "12 Baker Street, London",
	}
}
