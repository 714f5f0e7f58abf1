package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	reservationserrors "kitchenrent/internal/reservations/errors"
	"kitchenrent/internal/reservations/repository"
	"kitchenrent/pkg/logger"
	"kitchenrent/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

const lockPollInterval = 50 * time.Millisecond

// equipmentLocker guards one equipment timeline. The keyed mutex orders
// requests inside this process; the lock collection orders them across
// replicas. Either may be waited on for at most waitTimeout.
type equipmentLocker struct {
	local       *KeyedMutex
	store       repository.ReservationLockRepository
	ttl         time.Duration
	waitTimeout time.Duration
	log         *logger.Logger
}

func lockID(equipmentID string) string {
	return "equipment:" + equipmentID
}

func (l *equipmentLocker) Lock(ctx context.Context, equipmentID string) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, l.waitTimeout)
	defer cancel()

	unlockLocal, err := l.local.Lock(waitCtx, equipmentID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, reservationserrors.ErrLockHeld
	}

	if l.store == nil {
		return unlockLocal, nil
	}

	owner := uuid.NewString()
	if err := l.acquire(waitCtx, equipmentID, owner); err != nil {
		unlockLocal()
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, reservationserrors.ErrLockHeld
		}
		return nil, err
	}

	return func() {
		// Release even if the request context is already gone.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.waitTimeout)
		defer cancel()
		if err := l.store.Delete(releaseCtx, lockID(equipmentID), owner); err != nil {
			l.log.Warn("Failed to release equipment lock", "equipment_id", equipmentID, "error", err)
		}
		unlockLocal()
	}, nil
}

func (l *equipmentLocker) acquire(ctx context.Context, equipmentID, owner string) error {
	id := lockID(equipmentID)
	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		now := time.Now().UTC()
		err := l.store.Create(ctx, &model.ReservationLock{
			ID:        id,
			Owner:     owner,
			ExpiresAt: now.Add(l.ttl),
		})
		if err == nil {
			return nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("failed to acquire equipment lock: %w", err)
		}

		// The TTL monitor runs once a minute, so a crashed holder is cleared
		// here rather than waited out.
		if cleared, err := l.store.DeleteExpired(ctx, id, now); err == nil && cleared {
			l.log.Warn("Cleared expired equipment lock", "equipment_id", equipmentID)
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
