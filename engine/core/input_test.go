package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInputFixture(t *testing.T) {
	t.Helper()
	require.NoError(t, InputShutdown())
	require.NoError(t, InputInitialize())
	t.Cleanup(func() { InputShutdown() })
}

func TestInputKeyEdgeDetection(t *testing.T) {
	newInputFixture(t)

	require.NoError(t, InputProcessKey(KEY_W, true))
	assert.True(t, InputIsKeyDown(KEY_W))
	assert.False(t, InputWasKeyDown(KEY_W), "previous frame never saw the key")

	// Frame boundary: current state becomes the previous state.
	require.NoError(t, InputUpdate(0.016))
	assert.True(t, InputIsKeyDown(KEY_W))
	assert.True(t, InputWasKeyDown(KEY_W))

	require.NoError(t, InputProcessKey(KEY_W, false))
	assert.True(t, InputIsKeyUp(KEY_W))
	assert.True(t, InputWasKeyDown(KEY_W), "release edge visible until the next update")
}

func TestInputRepeatedKeyReportsAreIdempotent(t *testing.T) {
	newInputFixture(t)

	require.NoError(t, InputProcessKey(KEY_SPACE, true))
	require.NoError(t, InputProcessKey(KEY_SPACE, true))
	assert.True(t, InputIsKeyDown(KEY_SPACE))
}

func TestInputRejectsOutOfRangeKey(t *testing.T) {
	newInputFixture(t)

	assert.Error(t, InputProcessKey(KEYS_MAX_KEYS, true))
	assert.False(t, InputIsKeyDown(KEYS_MAX_KEYS))
}

func TestInputMousePositionDoubleBuffers(t *testing.T) {
	newInputFixture(t)

	require.NoError(t, InputProcessMouseMove(100, 200))
	require.NoError(t, InputUpdate(0.016))
	require.NoError(t, InputProcessMouseMove(110, 190))

	x, y := InputGetMousePosition()
	assert.Equal(t, int32(110), x)
	assert.Equal(t, int32(190), y)

	px, py := InputGetPreviousMousePosition()
	assert.Equal(t, int32(100), px)
	assert.Equal(t, int32(200), py)
}

func TestInputButtonsTrackPerFrame(t *testing.T) {
	newInputFixture(t)

	require.NoError(t, InputProcessButton(BUTTON_LEFT, true))
	assert.True(t, InputIsButtonDown(BUTTON_LEFT))
	assert.True(t, InputWasButtonUp(BUTTON_LEFT))

	require.NoError(t, InputUpdate(0.016))
	require.NoError(t, InputProcessButton(BUTTON_LEFT, false))
	assert.True(t, InputIsButtonUp(BUTTON_LEFT))
	assert.True(t, InputWasButtonDown(BUTTON_LEFT))
}

func TestInputQueriesSafeWhenUninitialized(t *testing.T) {
	require.NoError(t, InputShutdown())

	assert.False(t, InputIsKeyDown(KEY_A))
	assert.Error(t, InputUpdate(0.016))
	assert.Error(t, InputProcessKey(KEY_A, true))
}
