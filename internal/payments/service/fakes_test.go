package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"kitchenrent/internal/notifications"
	paymentserrors "kitchenrent/internal/payments/errors"
	"kitchenrent/internal/payments/gateway"
	"kitchenrent/pkg/cache"
	"kitchenrent/pkg/config"
	apperrors "kitchenrent/pkg/errors"
	"kitchenrent/pkg/logger"
	"kitchenrent/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memoryPaymentRepository struct {
	mu    sync.Mutex
	items map[string]*model.Payment
}

func newMemoryPaymentRepository() *memoryPaymentRepository {
	return &memoryPaymentRepository{items: map[string]*model.Payment{}}
}

func (m *memoryPaymentRepository) Create(ctx context.Context, p *model.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.ReservationID == p.ReservationID {
			return paymentserrors.ErrAlreadyExists
		}
	}
	p.ID = primitive.NewObjectID().Hex()
	cp := *p
	m.items[p.ID] = &cp
	return nil
}

func (m *memoryPaymentRepository) find(match func(*model.Payment) bool) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.items {
		if match(p) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, paymentserrors.ErrNotFound
}

func (m *memoryPaymentRepository) FindByReservation(ctx context.Context, reservationID string) (*model.Payment, error) {
	return m.find(func(p *model.Payment) bool { return p.ReservationID == reservationID })
}

func (m *memoryPaymentRepository) FindByChargeID(ctx context.Context, chargeID string) (*model.Payment, error) {
	return m.find(func(p *model.Payment) bool { return p.ChargeID == chargeID })
}

func (m *memoryPaymentRepository) ReplaceCharge(ctx context.Context, id string, expected model.PaymentStatus, chargeID string, amount int64, currency string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, paymentserrors.ErrNotFound
	}
	if p.Status != expected {
		return nil, paymentserrors.ErrStaleStatus
	}
	p.ChargeID, p.Amount, p.Currency, p.Status = chargeID, amount, currency, model.PaymentPending
	cp := *p
	return &cp, nil
}

func (m *memoryPaymentRepository) UpdateStatus(ctx context.Context, chargeID string, from []model.PaymentStatus, to model.PaymentStatus) (*model.Payment, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.items {
		if p.ChargeID != chargeID {
			continue
		}
		cp := *p
		for _, s := range from {
			if p.Status == s {
				p.Status = to
				cp.Status = to
				return &cp, true, nil
			}
		}
		if p.Status == to {
			return &cp, false, nil
		}
		return &cp, false, paymentserrors.ErrStaleStatus
	}
	return nil, false, paymentserrors.ErrNotFound
}

func (m *memoryPaymentRepository) MarkRefunded(ctx context.Context, id, refundID string, amount int64, at time.Time) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, paymentserrors.ErrNotFound
	}
	if p.Status != model.PaymentSucceeded {
		return nil, paymentserrors.ErrStaleStatus
	}
	p.Status, p.RefundID, p.RefundAmount, p.RefundedAt = model.PaymentRefunded, refundID, amount, &at
	cp := *p
	return &cp, nil
}

func (m *memoryPaymentRepository) put(p *model.Payment) *model.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = primitive.NewObjectID().Hex()
	cp := *p
	m.items[p.ID] = &cp
	return p
}

func (m *memoryPaymentRepository) byReservation(id string) *model.Payment {
	p, _ := m.FindByReservation(context.Background(), id)
	return p
}

type fakeGateway struct {
	mu           sync.Mutex
	charges      []gateway.ChargeRequest
	refunds      []int64
	createErr    error
	refundErr    error
	nextChargeID int
}

func (g *fakeGateway) CreateCharge(ctx context.Context, req gateway.ChargeRequest) (*gateway.Charge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.charges = append(g.charges, req)
	g.nextChargeID++
	id := fmt.Sprintf("pi_%d", g.nextChargeID)
	return &gateway.Charge{ID: id, ClientSecret: id + "_secret"}, nil
}

func (g *fakeGateway) Refund(ctx context.Context, chargeID string, amount int64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refundErr != nil {
		return "", g.refundErr
	}
	g.refunds = append(g.refunds, amount)
	return "re_1", nil
}

func (g *fakeGateway) ParseWebhook(payload []byte, signature string) (*model.PaymentOutcome, error) {
	return nil, gateway.ErrIgnoredEvent
}

// fakeReservations applies the engine's owner-or-operator read rule and
// its confirm-from-pending transition.
type fakeReservations struct {
	mu       sync.Mutex
	items    map[string]*model.Reservation
	confirms int
	// beforeConfirm runs ahead of every ConfirmFromPayment call.
	beforeConfirm func()
}

func newFakeReservations(rs ...*model.Reservation) *fakeReservations {
	f := &fakeReservations{items: map[string]*model.Reservation{}}
	for _, r := range rs {
		f.items[r.ID] = r
	}
	return f
}

func (f *fakeReservations) GetByID(ctx context.Context, actor model.Actor, id string) (*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.items[id]
	if !ok {
		return nil, apperrors.NotFoundWithID("Reservation", id)
	}
	if !actor.IsOperator() && !actor.IsSystem() && actor.ID != r.CustomerID {
		return nil, apperrors.Forbidden("You do not have access to this reservation")
	}
	cp := *r
	return &cp, nil
}

func (f *fakeReservations) ConfirmFromPayment(ctx context.Context, id string) (*model.Reservation, bool, error) {
	if f.beforeConfirm != nil {
		f.beforeConfirm()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.items[id]
	if !ok {
		return nil, false, apperrors.NotFoundWithID("Reservation", id)
	}
	if r.Status != model.StatusPending {
		cp := *r
		return &cp, false, nil
	}
	r.Status = model.StatusConfirmed
	f.confirms++
	cp := *r
	return &cp, true, nil
}

func (f *fakeReservations) status(id string) model.ReservationStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id].Status
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (n *recordingNotifier) Notify(ctx context.Context, event notifications.Event, audiences ...notifications.Audience) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) count(t notifications.EventType) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.Type == t {
			c++
		}
	}
	return c
}

func testConfig() *config.Config {
	return &config.Config{
		Log: logger.New(logger.Config{
			Level:   "error",
			Format:  logger.JSON,
			Service: "test",
		}),
		PaymentEventTTL:   time.Hour,
		PaymentEventLease: time.Minute,
	}
}

var (
	owner    = model.Actor{ID: "cust-1", Role: model.RoleCustomer}
	stranger = model.Actor{ID: "cust-2", Role: model.RoleCustomer}
	operator = model.Actor{ID: "admin-1", Role: model.RoleAdmin}
)

func pendingReservation() *model.Reservation {
	return &model.Reservation{
		ID:          primitive.NewObjectID().Hex(),
		CustomerID:  owner.ID,
		EquipmentID: primitive.NewObjectID().Hex(),
		Status:      model.StatusPending,
		TotalAmount: 15000,
		Currency:    "usd",
	}
}

type paymentHarness struct {
	svc          *paymentService
	reconciler   *Reconciler
	repo         *memoryPaymentRepository
	gateway      *fakeGateway
	reservations *fakeReservations
	notifier     *recordingNotifier
	reservation  *model.Reservation
}

func newPaymentHarness() *paymentHarness {
	cfg := testConfig()
	r := pendingReservation()
	h := &paymentHarness{
		repo:         newMemoryPaymentRepository(),
		gateway:      &fakeGateway{},
		reservations: newFakeReservations(r),
		notifier:     &recordingNotifier{},
		reservation:  r,
	}
	h.svc = NewPaymentService(h.repo, h.reservations, h.gateway, h.notifier, cfg).(*paymentService)
	h.reconciler = NewReconciler(h.repo, h.reservations, cache.NewMemoryDeduplicator(), h.notifier, cfg)
	return h
}
