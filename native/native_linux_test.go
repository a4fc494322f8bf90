package native_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wnxd/microhook/native"
	"github.com/wnxd/microhook/process"
)

func TestAllocReadWrite(t *testing.T) {
	p := native.New()
	region, err := p.MemAlloc(10, process.MEM_PROT_READ|process.MEM_PROT_WRITE)
	require.NoError(t, err)
	t.Cleanup(func() { p.MemFree(region.Addr, region.Size) })
	assert.Equal(t, p.PageSize(), region.Size)
	assert.Zero(t, region.Addr%p.PageSize())

	require.NoError(t, p.MemWrite(region.Addr+8, []byte("hook")))
	data, err := p.MemRead(region.Addr+8, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte("hook"), data)

	found, err := process.RegionOf(p, region.Addr)
	require.NoError(t, err)
	assert.Equal(t, process.MEM_PROT_READ|process.MEM_PROT_WRITE, found.Prot)

	require.NoError(t, p.MemProtect(region.Addr, region.Size, process.MEM_PROT_READ))
	assert.ErrorIs(t, p.MemWrite(region.Addr, []byte{1}), process.ErrProtection)
	data, err = p.MemRead(region.Addr+8, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte("hook"), data)
}

func TestFree(t *testing.T) {
	p := native.New()
	region, err := p.MemAlloc(1, process.MEM_PROT_READ)
	require.NoError(t, err)
	require.NoError(t, p.MemFree(region.Addr, region.Size))
	assert.ErrorIs(t, p.MemFree(region.Addr, region.Size), process.ErrAddressInvalid)
}

func TestUnmappedRead(t *testing.T) {
	p := native.New()
	_, err := p.MemRead(0, 8)
	assert.ErrorIs(t, err, process.ErrAddressInvalid)
}

func TestModules(t *testing.T) {
	p := native.New()
	main, err := p.MainModule()
	require.NoError(t, err)
	exe, err := os.Executable()
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(exe), main.Name())
	base, size := main.Region()
	assert.NotZero(t, size)

	m, err := p.FindModuleByAddr(base)
	require.NoError(t, err)
	assert.Equal(t, main.Name(), m.Name())
	_, err = main.FindExport("main")
	assert.ErrorIs(t, err, process.ErrExportNotFound)
	_, err = p.FindModule("no-such-module.so")
	assert.ErrorIs(t, err, process.ErrModuleNotFound)
}

func TestNoExecution(t *testing.T) {
	p := native.New()
	_, err := p.Call(0)
	assert.True(t, errors.Is(err, errors.ErrUnsupported))
	_, err = p.Bind(func(...uint64) uint64 { return 0 })
	assert.ErrorIs(t, err, errors.ErrUnsupported)
}
