package event

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, sub *Subscription, max int) []StreamEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var out []StreamEvent
	for len(out) < max {
		ev, ok := sub.Next(ctx)
		if !ok {
			break
		}
		out = append(out, ev)
	}
	return out
}

func TestSubscribeDeliversConnectFirst(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe("job_1")

	bus.Publish("job_1", StreamEvent{Event: "progress", Data: "a"})
	bus.Close("job_1")

	events := collect(t, sub, 10)
	require.Len(t, events, 2)
	assert.Equal(t, "connect", events[0].Event)
	assert.Equal(t, "progress", events[1].Event)
}

func TestPublishReturnsSubscriberCount(t *testing.T) {
	bus := NewBus()
	sub1 := bus.Subscribe("job_1")
	sub2 := bus.Subscribe("job_1")

	assert.Equal(t, 2, bus.Publish("job_1", StreamEvent{Event: "progress"}))
	assert.Equal(t, 0, bus.Publish("job_other", StreamEvent{Event: "progress"}))

	bus.Unsubscribe("job_1", sub1)
	assert.Equal(t, 1, bus.Publish("job_1", StreamEvent{Event: "progress"}))
	bus.Unsubscribe("job_1", sub2)
	assert.False(t, bus.HasSubscribers("job_1"))
}

func TestEventOrderingPerSubscriber(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe("job_1")

	for i := 0; i < 50; i++ {
		bus.Publish("job_1", StreamEvent{Event: "progress", Data: i})
	}
	bus.Close("job_1")

	events := collect(t, sub, 100)
	require.Len(t, events, 51) // connect + 50
	for i, ev := range events[1:] {
		assert.Equal(t, i, ev.Data, "event %d out of order", i)
	}
}

func TestLateSubscriberGetsConnectThenEnd(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe("job_1")
	bus.Publish("job_1", StreamEvent{Event: "progress"})
	bus.Close("job_1")
	collect(t, sub, 10)

	late := bus.Subscribe("job_1")
	events := collect(t, late, 10)
	require.Len(t, events, 1)
	assert.Equal(t, "connect", events[0].Event)
}

func TestForgetClearsClosedMarker(t *testing.T) {
	bus := NewBus()
	bus.Subscribe("job_1")
	bus.Close("job_1")
	bus.Forget("job_1")

	sub := bus.Subscribe("job_1")
	assert.Equal(t, 1, bus.Publish("job_1", StreamEvent{Event: "progress"}))
	bus.Close("job_1")

	events := collect(t, sub, 10)
	require.Len(t, events, 2)
}

func TestCloseDrainsQueuedEventsBeforeEnding(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe("job_1")

	bus.Publish("job_1", StreamEvent{Event: "progress", Data: "one"})
	bus.Publish("job_1", StreamEvent{Event: "progress", Data: "two"})
	bus.Close("job_1")

	events := collect(t, sub, 10)
	require.Len(t, events, 3)
	assert.Equal(t, "one", events[1].Data)
	assert.Equal(t, "two", events[2].Data)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, ok := sub.Next(ctx)
	assert.False(t, ok)
}

func TestNextHonorsContext(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe("job_1")
	collect(t, sub, 1) // drain connect

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, ok := sub.Next(ctx)
	assert.False(t, ok)
}

func TestEncodeFullHeader(t *testing.T) {
	ev := StreamEvent{ID: "42", Event: "progress", Retry: 3000, Data: "hello"}
	assert.Equal(t, "id: 42\nevent: progress\nretry: 3000\ndata: hello\n\n", ev.Encode())
}

func TestEncodeJSONPayload(t *testing.T) {
	ev := StreamEvent{Event: "progress", Data: map[string]int{"n": 1}}
	assert.Equal(t, "event: progress\ndata: {\"n\":1}\n\n", ev.Encode())
}

func TestEncodeMultilineData(t *testing.T) {
	ev := StreamEvent{Data: "line one\nline two"}
	assert.Equal(t, "data: line one\ndata: line two\n\n", ev.Encode())
}
