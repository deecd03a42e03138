package bus_test

import (
	"testing"

	"github.com/bsaid97/geomcheck/bus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_PublishSubscribe(t *testing.T) {
	b := bus.New()

	var got []string
	handler := func(s string) { got = append(got, s) }
	require.NoError(t, b.Subscribe("topic", handler))

	b.Publish("topic", "one")
	b.Publish("other", "ignored")
	require.NoError(t, b.Unsubscribe("topic", handler))
	b.Publish("topic", "two")

	assert.Equal(t, []string{"one"}, got)
}

func TestNoopBus(t *testing.T) {
	var b bus.Bus = &bus.NoopBus{}
	assert.NoError(t, b.Subscribe("topic", func() {}))
	b.Publish("topic")
}
