package messaging

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

func syncBus() *InMemoryEventBus {
	cfg := DefaultInMemoryEventBusConfig()
	cfg.AsyncMode = false
	return NewInMemoryEventBus(cfg)
}

func approvedEvent() shared.Event {
	return shared.NewCourseApprovedEvent(
		shared.CourseID(uuid.NewString()),
		shared.UserID(uuid.NewString()))
}

func TestEventBus_PublishToSubscriber(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	var received []shared.Event
	err := bus.Subscribe(shared.EventCourseApproved, func(ev shared.Event) error {
		received = append(received, ev)
		return nil
	})
	require.NoError(t, err)

	ev := approvedEvent()
	require.NoError(t, bus.Publish(ev))
	require.NoError(t, bus.Publish(shared.NewGradeRecordedEvent(
		uuid.NewString(),
		shared.TraineeAssignID(uuid.NewString()),
		shared.UserID(uuid.NewString()),
		shared.SubjectID(uuid.NewString()),
		7.5, "pass")))

	// Only the subscribed type is delivered.
	require.Len(t, received, 1)
	assert.Equal(t, ev.AggregateID(), received[0].AggregateID())
}

func TestEventBus_SubscribeAll(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	count := 0
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		count++
		return nil
	}))

	require.NoError(t, bus.Publish(approvedEvent()))
	require.NoError(t, bus.Publish(approvedEvent()))
	assert.Equal(t, 2, count)
}

func TestEventBus_AsyncDeliveryCompletesOnClose(t *testing.T) {
	cfg := DefaultInMemoryEventBusConfig()
	cfg.WorkerPoolSize = 2
	bus := NewInMemoryEventBus(cfg)

	var mu sync.Mutex
	count := 0
	require.NoError(t, bus.Subscribe(shared.EventCourseApproved, func(shared.Event) error {
		mu.Lock()
		defer mu.Unlock()
		count++
		return nil
	}))

	for i := 0; i < 20; i++ {
		require.NoError(t, bus.Publish(approvedEvent()))
	}

	// Close waits for in-flight handlers.
	require.NoError(t, bus.Close())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 20, count)
}

func TestEventBus_ClosedRejectsPublish(t *testing.T) {
	bus := syncBus()
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(approvedEvent()), ErrEventBusClosed)
	assert.ErrorIs(t, bus.Subscribe(shared.EventCourseApproved, func(shared.Event) error { return nil }), ErrEventBusClosed)
	// Closing twice is a no-op.
	assert.NoError(t, bus.Close())
}

func TestEventBus_HandlerErrorDoesNotStopOthers(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	called := false
	require.NoError(t, bus.Subscribe(shared.EventCourseApproved, func(shared.Event) error {
		return errors.New("boom")
	}))
	require.NoError(t, bus.Subscribe(shared.EventCourseApproved, func(shared.Event) error {
		called = true
		return nil
	}))

	require.NoError(t, bus.Publish(approvedEvent()))
	assert.True(t, called)
}

func TestEventBus_Metrics(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	require.NoError(t, bus.Subscribe(shared.EventCourseApproved, func(shared.Event) error { return nil }))
	require.NoError(t, bus.Publish(approvedEvent()))

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(1), snap.TotalPublished)
	assert.Equal(t, int64(1), snap.TotalHandlerExecs)
	assert.Equal(t, 1.0, snap.HandlerSuccessRate)
}
