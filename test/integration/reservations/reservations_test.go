package reservations

import (
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"kitchenrent/pkg/client"
	"kitchenrent/pkg/model"
	"kitchenrent/test/integration/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The suite runs against an API started without JWT_SECRET so actors are
// taken from gateway identity headers.

var (
	customer = model.Actor{ID: "it-customer-" + uuid.NewString()[:8], Role: model.RoleCustomer}
	operator = model.Actor{ID: "it-operator", Role: model.RoleAdmin}
)

func date(daysFromNow int) string {
	return time.Now().UTC().AddDate(0, 0, daysFromNow).Format(model.DateLayout)
}

func request(equipmentID string, startOffset, endOffset int) *model.ReservationCreate {
	return &model.ReservationCreate{
		EquipmentID:     equipmentID,
		StartDate:       date(startOffset),
		EndDate:         date(endOffset),
		DeliveryAddress: "12 Baker Street, Springfield",
	}
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr), "expected API error, got %v", err)
	assert.Equal(t, status, apiErr.Status, apiErr.Error())
}

func TestReservationLifecycle(t *testing.T) {
	env := testutil.NewTestEnv(t)
	equipmentID := env.SeedEquipment(t, "Combi oven", 5000, model.EquipmentAvailable)
	asCustomer := env.ClientAs(customer)
	asOperator := env.ClientAs(operator)

	created, err := asCustomer.Create(request(equipmentID, 10, 13))
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, created.Status)
	assert.Equal(t, int64(15000), created.TotalAmount)
	assert.Equal(t, customer.ID, created.CustomerID)

	_, err = asCustomer.Create(request(equipmentID, 13, 15))
	requireStatus(t, err, http.StatusConflict)

	availability, err := asCustomer.Availability(equipmentID, date(11), date(12))
	require.NoError(t, err)
	assert.False(t, availability.Available)

	confirmed, err := asOperator.Transition(created.ID, "confirm")
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, confirmed.Status)

	_, err = asCustomer.Transition(created.ID, "start")
	requireStatus(t, err, http.StatusForbidden)

	cancelled, err := asCustomer.Transition(created.ID, "cancel")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)

	_, err = asOperator.Transition(created.ID, "confirm")
	requireStatus(t, err, http.StatusUnprocessableEntity)

	// The cancelled window is free again.
	rebooked, err := asCustomer.Create(request(equipmentID, 11, 12))
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, rebooked.Status)

	require.NoError(t, asCustomer.Delete(created.ID))
	_, err = asCustomer.Get(created.ID)
	requireStatus(t, err, http.StatusNotFound)
}

func TestUnavailableEquipmentIsRejected(t *testing.T) {
	env := testutil.NewTestEnv(t)
	equipmentID := env.SeedEquipment(t, "Blast chiller", 4000, model.EquipmentMaintenance)

	_, err := env.ClientAs(customer).Create(request(equipmentID, 5, 7))
	requireStatus(t, err, http.StatusUnprocessableEntity)
}

func TestConcurrentOverlappingCreates(t *testing.T) {
	env := testutil.NewTestEnv(t)
	equipmentID := env.SeedEquipment(t, "Deck oven", 7000, model.EquipmentAvailable)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor := model.Actor{ID: uuid.NewString(), Role: model.RoleCustomer}
			if _, err := env.ClientAs(actor).Create(request(equipmentID, 20, 22+i%3)); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
}

func TestIdempotentCreateReplays(t *testing.T) {
	env := testutil.NewTestEnv(t)
	equipmentID := env.SeedEquipment(t, "Walk-in fridge", 9000, model.EquipmentAvailable)
	asCustomer := env.ClientAs(customer)
	key := uuid.NewString()

	first, replayed, err := asCustomer.CreateIdempotent(request(equipmentID, 30, 31), key)
	require.NoError(t, err)
	assert.False(t, replayed)

	second, replayed, err := asCustomer.CreateIdempotent(request(equipmentID, 30, 31), key)
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, second.ID)
}
