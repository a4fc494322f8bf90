package overlay_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wnxd/microhook/overlay"
	"github.com/wnxd/microhook/process"
)

func TestNop(t *testing.T) {
	var o overlay.Overlay = overlay.Nop{}
	window, err := o.Setup(process.Pointer{})
	require.NoError(t, err)
	assert.Zero(t, window.Handle())
	prev, err := window.Subclass(func(uint64, uint32, uint64, uint64) uint64 { return 1 })
	require.NoError(t, err)
	assert.Nil(t, prev)
	assert.False(t, o.HandleMessage(0, 0x100, 0x41, 0))
	assert.NoError(t, o.Rebuild(process.Pointer{}, 0))
}
