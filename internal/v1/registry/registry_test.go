package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRegistry_InsertThenLookup(t *testing.T) {
	r := New(50 * time.Millisecond)
	sink := NewSink(4)

	r.Insert(context.Background(), "u1", sink)
	require.Same(t, sink, r.Lookup("u1"))
	require.Equal(t, 1, r.Len())
}

func TestRegistry_Lookup_Missing(t *testing.T) {
	r := New(50 * time.Millisecond)
	require.Nil(t, r.Lookup("ghost"))
}

func TestRegistry_SendTo_DeliversInOrder(t *testing.T) {
	r := New(50 * time.Millisecond)
	sink := NewSink(4)
	ctx := context.Background()
	r.Insert(ctx, "u1", sink)

	require.True(t, r.SendTo(ctx, "u1", "first"))
	require.True(t, r.SendTo(ctx, "u1", "second"))

	require.Equal(t, "first", <-sink.Chan())
	require.Equal(t, "second", <-sink.Chan())
}

func TestRegistry_SendTo_NoSession(t *testing.T) {
	r := New(50 * time.Millisecond)
	require.False(t, r.SendTo(context.Background(), "ghost", "event"))
}

func TestRegistry_SendTo_BackpressureTimeout(t *testing.T) {
	r := New(20 * time.Millisecond)
	sink := NewSink(1)
	ctx := context.Background()
	r.Insert(ctx, "u1", sink)

	require.True(t, r.SendTo(ctx, "u1", "fills the buffer"))
	require.False(t, r.SendTo(ctx, "u1", "dropped under backpressure"))
}

func TestRegistry_Insert_ReplacesAndClosesOldSink(t *testing.T) {
	r := New(50 * time.Millisecond)
	ctx := context.Background()

	oldSink := NewSink(4)
	r.Insert(ctx, "u1", oldSink)

	newSink := NewSink(4)
	r.Insert(ctx, "u1", newSink)

	_, open := <-oldSink.Chan()
	require.False(t, open, "old sink should be closed on replacement")
	require.Same(t, newSink, r.Lookup("u1"))
}

func TestRegistry_Remove_IsIdempotentAndIgnoresStaleSink(t *testing.T) {
	r := New(50 * time.Millisecond)
	ctx := context.Background()

	sink := NewSink(4)
	r.Insert(ctx, "u1", sink)

	otherSink := NewSink(4)
	r.Remove("u1", otherSink) // stale reference, must not remove the live sink
	require.NotNil(t, r.Lookup("u1"))

	r.Remove("u1", sink)
	require.Nil(t, r.Lookup("u1"))

	r.Remove("u1", sink) // idempotent
}

func TestSink_Close_IsIdempotent(t *testing.T) {
	s := NewSink(1)
	s.Close()
	s.Close()
}
