package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_PublishSubscribe(t *testing.T) {
	bus := NewEventBus()

	var got []string
	bus.Subscribe("a", func(e Event) error {
		var p struct{ Name string }
		require.NoError(t, e.Decode(&p))
		got = append(got, p.Name)
		return nil
	})
	bus.Subscribe("b", func(Event) error {
		t.Error("handler for b must not run")
		return nil
	})

	ev, err := NewJSONEvent("a", map[string]string{"Name": "first"})
	require.NoError(t, err)
	bus.Publish(ev)
	bus.Publish(Event{Type: "a", Payload: []byte(`{"Name":"second"}`)})

	assert.Equal(t, []string{"first", "second"}, got)
}

func TestEventBus_OnError(t *testing.T) {
	bus := NewEventBus()
	boom := errors.New("boom")

	var failed []error
	bus.OnError(func(_ Event, err error) { failed = append(failed, err) })
	bus.Subscribe("a", func(Event) error { return boom })
	bus.Subscribe("a", func(Event) error { return nil })

	bus.Publish(Event{Type: "a"})
	assert.Equal(t, []error{boom}, failed)
}
