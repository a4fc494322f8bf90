package sim_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wnxd/microhook/loader"
	"github.com/wnxd/microhook/process"
)

func TestLoad(t *testing.T) {
	p := newProcess(t, process.ARCH_X86)
	_, err := p.MainModule()
	assert.ErrorIs(t, err, process.ErrModuleNotFound)

	img := &loader.Image{
		Name: "game.exe",
		Base: 0x400000,
		Regions: []loader.Region{
			loader.Code(0x1000, []byte{0xC3}),
			loader.Data(0x3000, []byte{1, 2}),
		},
	}
	img.Export("Start", 0x1000)
	game, err := p.Load(img)
	require.NoError(t, err)
	lib, err := p.Load(&loader.Image{Name: "lib.dll", Base: 0x10000000, Regions: []loader.Region{loader.Code(0, []byte{0xC3})}})
	require.NoError(t, err)

	main, err := p.MainModule()
	require.NoError(t, err)
	assert.Equal(t, "game.exe", main.Name())
	base, size := main.Region()
	assert.Equal(t, uint64(0x400000), base)
	assert.Equal(t, uint64(0x4000), size)

	m, err := p.FindModule("LIB.DLL")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x10000000), m.BaseAddr())
	m, err = p.FindModuleByAddr(0x403001)
	require.NoError(t, err)
	assert.Equal(t, "game.exe", m.Name())
	_, err = p.FindModuleByAddr(0x500000)
	assert.ErrorIs(t, err, process.ErrModuleNotFound)

	start, err := main.FindExport("Start")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x401000), start)
	_, err = main.FindExport("Stop")
	assert.ErrorIs(t, err, process.ErrExportNotFound)

	prot, _ := p.Prot(0x401000)
	assert.Equal(t, "r-x", prot.String())
	data, err := p.MemRead(0x403000, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, data)

	_, err = p.Load(&loader.Image{Name: "clash.dll", Base: 0x400000, Regions: []loader.Region{loader.Code(0x1000, []byte{0xC3})}})
	assert.ErrorIs(t, err, process.ErrAddressInvalid)

	require.NoError(t, p.Unload(lib))
	_, err = p.FindModule("lib.dll")
	assert.ErrorIs(t, err, process.ErrModuleNotFound)
	_, err = p.MemRead(0x10000000, 1)
	assert.ErrorIs(t, err, process.ErrAddressInvalid)
	assert.NotNil(t, game)
}
