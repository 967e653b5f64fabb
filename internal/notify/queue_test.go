package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedNotifier blocks every delivery until release is closed.
type gatedNotifier struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once

	mu     sync.Mutex
	events []string
}

func newGatedNotifier() *gatedNotifier {
	return &gatedNotifier{started: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedNotifier) Publish(ctx context.Context, msg Message) error {
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events = append(g.events, msg.Event)
	return nil
}

func (g *gatedNotifier) delivered() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.events...)
}

func TestQueue_DeliversInOrder(t *testing.T) {
	sink := newGatedNotifier()
	close(sink.release)
	q := NewQueue(sink, 10, time.Second)

	for _, event := range []string{"a", "b", "c"} {
		require.NoError(t, q.Publish(context.Background(), NewMessage("t", event, nil)))
	}
	require.NoError(t, q.Close(context.Background()))

	assert.Equal(t, []string{"a", "b", "c"}, sink.delivered())
}

func TestQueue_PublishDoesNotWaitForDelivery(t *testing.T) {
	sink := newGatedNotifier()
	q := NewQueue(sink, 1, time.Minute)
	t.Cleanup(func() {
		close(sink.release)
		q.Close(context.Background())
	})

	start := time.Now()
	require.NoError(t, q.Publish(context.Background(), NewMessage("t", "first", nil)))
	<-sink.started
	require.NoError(t, q.Publish(context.Background(), NewMessage("t", "buffered", nil)))
	err := q.Publish(context.Background(), NewMessage("t", "dropped", nil))

	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Less(t, time.Since(start), time.Second)
}

func TestQueue_DeliveryIgnoresCallerCancellation(t *testing.T) {
	sink := newGatedNotifier()
	close(sink.release)
	q := NewQueue(sink, 1, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, q.Publish(ctx, NewMessage("t", "late", nil)))
	require.NoError(t, q.Close(context.Background()))

	assert.Equal(t, []string{"late"}, sink.delivered())
}

func TestQueue_DeliveryTimesOut(t *testing.T) {
	sink := newGatedNotifier()
	q := NewQueue(sink, 1, 20*time.Millisecond)
	t.Cleanup(func() { close(sink.release) })

	require.NoError(t, q.Publish(context.Background(), NewMessage("t", "stuck", nil)))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, q.Close(ctx))
	assert.Empty(t, sink.delivered())
}

func TestQueue_ClosedRejectsPublish(t *testing.T) {
	q := NewQueue(&countingNotifier{}, 1, time.Second)
	require.NoError(t, q.Close(context.Background()))
	require.NoError(t, q.Close(context.Background()))

	err := q.Publish(context.Background(), NewMessage("t", "after", nil))
	assert.True(t, errors.Is(err, ErrQueueClosed))
}
