package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/soyeahso/marketmind/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager() *Manager {
	return NewManager(logging.New(nil, "silent"))
}

func TestManager_On_And_Emit(t *testing.T) {
	m := testManager()

	var called bool
	m.On(EventQueryReceived, "test", func(_ context.Context, p Payload) error {
		called = true
		assert.Equal(t, EventQueryReceived, p.Event)
		return nil
	})

	m.Emit(context.Background(), EventQueryReceived, nil)
	assert.True(t, called)
}

func TestManager_Emit_Order(t *testing.T) {
	m := testManager()

	var order []string
	m.On(EventResponseReady, "first", func(_ context.Context, _ Payload) error {
		order = append(order, "first")
		return nil
	})
	m.On(EventResponseReady, "second", func(_ context.Context, _ Payload) error {
		order = append(order, "second")
		return nil
	})

	m.Emit(context.Background(), EventResponseReady, nil)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestManager_Emit_WithData(t *testing.T) {
	m := testManager()

	var got map[string]any
	m.On(EventDispatchComplete, "test", func(_ context.Context, p Payload) error {
		got = p.Data
		return nil
	})

	m.Emit(context.Background(), EventDispatchComplete, map[string]any{
		"attempted": 2,
		"succeeded": 1,
	})

	assert.Equal(t, 2, got["attempted"])
	assert.Equal(t, 1, got["succeeded"])
}

func TestManager_Emit_ErrorAndPanicIsolated(t *testing.T) {
	m := testManager()

	var lastCalled bool
	m.On(EventQueryFailed, "failing", func(_ context.Context, _ Payload) error {
		return errors.New("handler broke")
	})
	m.On(EventQueryFailed, "panicking", func(_ context.Context, _ Payload) error {
		panic("boom")
	})
	m.On(EventQueryFailed, "last", func(_ context.Context, _ Payload) error {
		lastCalled = true
		return nil
	})

	require.NotPanics(t, func() {
		m.Emit(context.Background(), EventQueryFailed, nil)
	})
	assert.True(t, lastCalled)
}

func TestManager_NilIsNoop(t *testing.T) {
	var m *Manager
	assert.NotPanics(t, func() {
		m.Emit(context.Background(), EventQueryReceived, nil)
	})
}

func TestManager_EmitOnlyMatchingEvent(t *testing.T) {
	m := testManager()

	var starts, stops int
	m.On(EventGatewayStart, "start", func(context.Context, Payload) error { starts++; return nil })
	m.On(EventGatewayStop, "stop", func(context.Context, Payload) error { stops++; return nil })

	m.Emit(context.Background(), EventGatewayStart, nil)
	m.Emit(context.Background(), EventGatewayStart, nil)
	m.Emit(context.Background(), EventPluginRegistered, nil)

	assert.Equal(t, 2, starts)
	assert.Equal(t, 0, stops)
}
