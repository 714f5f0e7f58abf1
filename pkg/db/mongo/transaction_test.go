package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

type stubSession struct {
	mongo.Session
}

func TestWithTimeout_KeepsTransactionSession(t *testing.T) {
	session := stubSession{}
	sessCtx := mongo.NewSessionContext(context.Background(), session)

	ctx, cancel := WithTimeout(sessCtx, time.Second)
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok, "operations inside a transaction must still be bounded")
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 100*time.Millisecond)
	assert.Equal(t, session, mongo.SessionFromContext(ctx))
}

func TestWithTimeout_KeepsEarlierDeadline(t *testing.T) {
	parent, cancelParent := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancelParent()
	want, _ := parent.Deadline()

	ctx, cancel := WithTimeout(parent, time.Hour)
	defer cancel()

	got, ok := ctx.Deadline()
	require.True(t, ok)
	assert.Equal(t, want, got)
}
