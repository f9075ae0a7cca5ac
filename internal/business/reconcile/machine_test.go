package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"oms/mpsync/internal/business/snapshot"
)

func ptr(s snapshot.Status) *snapshot.Status {
	return &s
}

func TestDecideCreate(t *testing.T) {
	t.Run("unpaid snapshot creates order", func(t *testing.T) {
		d := Decide(nil, snapshot.StatusUnpaid, "")
		assert.Equal(t, ActionCreate, d.Action)
		assert.Equal(t, snapshot.StatusUnpaid, d.Target)
	})

	t.Run("new snapshot creates order", func(t *testing.T) {
		d := Decide(nil, snapshot.StatusNew, "")
		assert.Equal(t, ActionCreate, d.Action)
		assert.Equal(t, snapshot.StatusNew, d.Target)
	})

	t.Run("mid-flight snapshot without internal order is a no-op", func(t *testing.T) {
		for _, st := range []snapshot.Status{
			snapshot.StatusProcessing, snapshot.StatusDelivery,
			snapshot.StatusCompleted, snapshot.StatusCanceled,
		} {
			d := Decide(nil, st, "")
			assert.Equal(t, ActionNone, d.Action, "status %s", st)
			assert.NotEmpty(t, d.NoopCause)
		}
	})
}

func TestDecideForwardProgress(t *testing.T) {
	t.Run("unpaid to new clears account pin", func(t *testing.T) {
		d := Decide(ptr(snapshot.StatusUnpaid), snapshot.StatusNew, "")
		assert.Equal(t, ActionTransition, d.Action)
		assert.Equal(t, snapshot.StatusNew, d.Target)
		assert.True(t, d.ClearPin)
	})

	t.Run("new to delivery skips processing", func(t *testing.T) {
		d := Decide(ptr(snapshot.StatusNew), snapshot.StatusDelivery, "")
		assert.Equal(t, ActionTransition, d.Action)
		assert.Equal(t, snapshot.StatusDelivery, d.Target)
		assert.False(t, d.ClearPin)
	})

	t.Run("same status replay is a no-op", func(t *testing.T) {
		d := Decide(ptr(snapshot.StatusDelivery), snapshot.StatusDelivery, "")
		assert.Equal(t, ActionNone, d.Action)
	})

	t.Run("backward snapshot is a no-op", func(t *testing.T) {
		d := Decide(ptr(snapshot.StatusDelivery), snapshot.StatusProcessing, "")
		assert.Equal(t, ActionNone, d.Action)
		assert.Equal(t, "stale or backward snapshot", d.NoopCause)
	})
}

// Out-of-order delivery must converge to the same final state as
// in-order delivery.
func TestDecideOutOfOrderConvergence(t *testing.T) {
	apply := func(seq []snapshot.Status) *snapshot.Status {
		var current *snapshot.Status
		for _, incoming := range seq {
			d := Decide(current, incoming, "")
			switch d.Action {
			case ActionCreate, ActionTransition:
				target := d.Target
				current = &target
			}
		}
		return current
	}

	inOrder := apply([]snapshot.Status{snapshot.StatusUnpaid, snapshot.StatusNew})
	outOfOrder := apply([]snapshot.Status{snapshot.StatusNew, snapshot.StatusUnpaid, snapshot.StatusNew})

	assert.NotNil(t, inOrder)
	assert.NotNil(t, outOfOrder)
	assert.Equal(t, *inOrder, *outOfOrder)
	assert.Equal(t, snapshot.StatusNew, *outOfOrder)
}

func TestDecideTerminalStates(t *testing.T) {
	t.Run("canceled order never changes", func(t *testing.T) {
		for _, st := range []snapshot.Status{
			snapshot.StatusUnpaid, snapshot.StatusNew, snapshot.StatusProcessing,
			snapshot.StatusDelivery, snapshot.StatusCompleted,
		} {
			d := Decide(ptr(snapshot.StatusCanceled), st, "")
			assert.Equal(t, ActionNone, d.Action, "incoming %s", st)
		}
	})

	t.Run("completed order ignores cancellation on the regular path", func(t *testing.T) {
		d := Decide(ptr(snapshot.StatusCompleted), snapshot.StatusCanceled, "USER_CHANGED_MIND")
		assert.Equal(t, ActionNone, d.Action)
		assert.Equal(t, "order already completed", d.NoopCause)
	})
}

func TestDecideCancellation(t *testing.T) {
	t.Run("non-terminal order cancels with mapped reason", func(t *testing.T) {
		d := Decide(ptr(snapshot.StatusProcessing), snapshot.StatusCanceled, "USER_CHANGED_MIND")
		assert.Equal(t, ActionTransition, d.Action)
		assert.Equal(t, snapshot.StatusCanceled, d.Target)
		assert.Equal(t, "buyer changed their mind", d.Reason)
	})

	t.Run("unknown substatus falls back to generic reason", func(t *testing.T) {
		d := Decide(ptr(snapshot.StatusNew), snapshot.StatusCanceled, "SOMETHING_NEW")
		assert.Equal(t, ActionTransition, d.Action)
		assert.Equal(t, `canceled by marketplace (substatus "SOMETHING_NEW")`, d.Reason)
	})

	t.Run("empty substatus falls back to plain reason", func(t *testing.T) {
		d := Decide(ptr(snapshot.StatusNew), snapshot.StatusCanceled, "")
		assert.Equal(t, "canceled by marketplace", d.Reason)
	})
}

func TestDecideReversal(t *testing.T) {
	t.Run("completed plus canceled triggers reversal", func(t *testing.T) {
		d := DecideReversal(snapshot.StatusCompleted, snapshot.StatusCanceled, "USER_REFUSED_PRODUCT")
		assert.Equal(t, ActionTransition, d.Action)
		assert.Equal(t, snapshot.StatusCanceled, d.Target)
		assert.Equal(t, "buyer refused the product", d.Reason)
	})

	t.Run("non-completed order is not reversed", func(t *testing.T) {
		d := DecideReversal(snapshot.StatusDelivery, snapshot.StatusCanceled, "")
		assert.Equal(t, ActionNone, d.Action)
	})

	t.Run("already canceled order is not reversed again", func(t *testing.T) {
		d := DecideReversal(snapshot.StatusCanceled, snapshot.StatusCanceled, "")
		assert.Equal(t, ActionNone, d.Action)
	})

	t.Run("marketplace order still active is a no-op", func(t *testing.T) {
		d := DecideReversal(snapshot.StatusCompleted, snapshot.StatusCompleted, "")
		assert.Equal(t, ActionNone, d.Action)
	})
}
