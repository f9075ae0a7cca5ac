package retrydispatch

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oms/mpsync/pkg/logger"
)

type publishCall struct {
	queue string
	data  []byte
	delay uint32
}

type fakePublisher struct {
	calls []publishCall
	err   error
}

func (f *fakePublisher) Publish(queue string, data []byte, ttl, delay uint32) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, publishCall{queue: queue, data: data, delay: delay})
	return nil
}

func TestDelayFor(t *testing.T) {
	assert.Equal(t, 5*time.Second, DelayFor(CauseOrderSync))
	assert.Equal(t, 3*time.Second, DelayFor(CauseLabelFetch))
	assert.Equal(t, time.Minute, DelayFor(CauseStatusPush))
	assert.Equal(t, 30*time.Second, DelayFor(CauseCancelCheck))
	assert.Equal(t, defaultDelay, DelayFor(Cause("unknown")))
}

func TestQueueForProfile(t *testing.T) {
	assert.Equal(t, "mp_order_sync_p7", QueueForProfile("mp_order_sync", 7))
	assert.Equal(t, "mp_order_sync_p1001", QueueForProfile("mp_order_sync", 1001))
}

func TestScheduleRetry(t *testing.T) {
	t.Run("publishes to profile queue with cause delay", func(t *testing.T) {
		pub := &fakePublisher{}
		d := NewDispatcher(pub, "mp_order_sync", logger.NewNopLogger())

		payload := []byte(`{"payload":{}}`)
		before := time.Now()
		env, err := d.ScheduleRetry(context.Background(), CauseCancelCheck, 7, payload)
		require.NoError(t, err)

		require.Len(t, pub.calls, 1)
		assert.Equal(t, "mp_order_sync_p7", pub.calls[0].queue)
		assert.Equal(t, payload, pub.calls[0].data)
		assert.Equal(t, uint32(30), pub.calls[0].delay)

		assert.Equal(t, "mp_order_sync_p7", env.TargetQueue)
		assert.WithinDuration(t, before.Add(30*time.Second), env.NotBefore, time.Second)
	})

	t.Run("publish failure surfaces to caller", func(t *testing.T) {
		pub := &fakePublisher{err: fmt.Errorf("queue unavailable")}
		d := NewDispatcher(pub, "mp_order_sync", logger.NewNopLogger())

		_, err := d.ScheduleRetry(context.Background(), CauseOrderSync, 7, []byte("x"))
		require.Error(t, err)
	})

	t.Run("profiles do not share retry queues", func(t *testing.T) {
		pub := &fakePublisher{}
		d := NewDispatcher(pub, "mp_order_sync", logger.NewNopLogger())

		_, err := d.ScheduleRetry(context.Background(), CauseOrderSync, 1, []byte("a"))
		require.NoError(t, err)
		_, err = d.ScheduleRetry(context.Background(), CauseOrderSync, 2, []byte("b"))
		require.NoError(t, err)

		assert.NotEqual(t, pub.calls[0].queue, pub.calls[1].queue)
	})
}
