package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxsql/internal/reactive"
)

func TestBlockFirstValue(t *testing.T) {
	pub := &syncPublisher[int64]{items: []int64{7, 8, 9}}
	v, err := Block(context.Background(), pub)
	require.NoError(t, err)
	assert.EqualValues(t, 7, v)
}

func TestBlockError(t *testing.T) {
	boom := errors.New("broken pipe")
	pub := &syncPublisher[int64]{err: boom}
	_, err := Block(context.Background(), pub)

	var dae *DataAccessError
	require.ErrorAs(t, err, &dae)
	assert.ErrorIs(t, err, boom)
}

func TestBlockEmptyCompletion(t *testing.T) {
	pub := &syncPublisher[int64]{}
	v, err := Block(context.Background(), pub)
	require.NoError(t, err)
	assert.Zero(t, v)
}

type silentSubscription struct{}

func (silentSubscription) Request(int64) {}
func (silentSubscription) Cancel()       {}

func TestBlockContextCancelled(t *testing.T) {
	// A publisher that never signals.
	pub := reactive.PublisherFunc[int64](func(s reactive.Subscriber[int64]) {
		s.OnSubscribe(silentSubscription{})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := Block(ctx, pub)
	var dae *DataAccessError
	require.ErrorAs(t, err, &dae)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
