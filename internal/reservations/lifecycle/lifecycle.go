// Package lifecycle holds the reservation state machine. Every status change
// in the system is decided here and nowhere else.
package lifecycle

import (
	"fmt"

	reservationserrors "kitchenrent/internal/reservations/errors"
	"kitchenrent/pkg/model"
)

type Action string

const (
	ActionConfirm  Action = "confirm"
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
)

var transitions = map[model.ReservationStatus]map[Action]model.ReservationStatus{
	model.StatusPending: {
		ActionConfirm: model.StatusConfirmed,
		ActionCancel:  model.StatusCancelled,
	},
	model.StatusConfirmed: {
		ActionStart:  model.StatusActive,
		ActionCancel: model.StatusCancelled,
	},
	model.StatusActive: {
		ActionComplete: model.StatusCompleted,
	},
}

// Next returns the status reached by applying action to from.
func Next(from model.ReservationStatus, action Action) (model.ReservationStatus, error) {
	if to, ok := transitions[from][action]; ok {
		return to, nil
	}
	return "", fmt.Errorf("%w: cannot %s a %s reservation", reservationserrors.ErrIllegalTransition, action, from)
}

func Allowed(from model.ReservationStatus, action Action) bool {
	_, ok := transitions[from][action]
	return ok
}

// Actions lists what can be done from a status, in a stable order.
func Actions(from model.ReservationStatus) []Action {
	var actions []Action
	for _, a := range []Action{ActionConfirm, ActionStart, ActionComplete, ActionCancel} {
		if Allowed(from, a) {
			actions = append(actions, a)
		}
	}
	return actions
}
