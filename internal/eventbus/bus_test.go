package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSubscribe(t *testing.T) {
	bus := New()
	id, ch := bus.Subscribe(4)
	defer bus.Unsubscribe(id)

	bus.PublishNew(TypeTaskCreated, "t1", "adm", map[string]string{"category": "LawnCare"})

	event := <-ch
	assert.Equal(t, TypeTaskCreated, event.Type)
	assert.Equal(t, "t1", event.TaskID)
	assert.Equal(t, "adm", event.ActorID)
	assert.Equal(t, "LawnCare", event.Metadata["category"])
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())
}

func TestSlowSubscriberDropsEvents(t *testing.T) {
	bus := New()
	id, ch := bus.Subscribe(1)
	defer bus.Unsubscribe(id)

	bus.PublishNew(TypeTaskCreated, "t1", "adm", nil)
	// Buffer is full; this event is dropped instead of blocking.
	bus.PublishNew(TypeTaskCompleted, "t1", "adm", nil)

	event := <-ch
	assert.Equal(t, TypeTaskCreated, event.Type)
	select {
	case e := <-ch:
		t.Fatalf("expected no further events, got %v", e.Type)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New()
	id, ch := bus.Subscribe(1)

	bus.Unsubscribe(id)
	_, ok := <-ch
	require.False(t, ok)

	// Publishing after unsubscribe must not panic.
	bus.PublishNew(TypeTaskDeleted, "t1", "adm", nil)
}
