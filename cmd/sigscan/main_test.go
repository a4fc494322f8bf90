package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wnxd/microhook/engine"
	"github.com/wnxd/microhook/scan"
)

func writeDump(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "game.bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("MICROHOOK_LOG_FILE", filepath.Join(t.TempDir(), "sigscan.log"))
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

var dump = []byte{
	0x90, 0x90, 0x8B, 0x0D, 0x44, 0x33, 0x22, 0x11,
	0x8B, 0x84, 0x24, 0x90, 0x8B, 0x0D, 0x00, 0x00,
	0x00, 0x00, 0x8B, 0x84, 0x24, 0xCC, 0xCC, 0xCC,
}

func TestScanFirst(t *testing.T) {
	path := writeDump(t, dump)
	out, err := run(t, "scan", path, "8B 0D ?? ?? ?? ?? 8B 84 24")
	require.NoError(t, err)
	assert.Equal(t, "0x00400002\n", out)

	out, err = run(t, "scan", path, "8B 0D ?? ?? ?? ?? 8B 84 24", "--base", "0x10000000")
	require.NoError(t, err)
	assert.Equal(t, "0x10000002\n", out)
}

func TestScanAll(t *testing.T) {
	path := writeDump(t, dump)
	out, err := run(t, "scan", path, "8B 0D ?? ?? ?? ?? 8B 84 24", "--all", "--json")
	require.NoError(t, err)
	var res scanResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, []uint64{0x400002, 0x40000C}, res.Matches)
	assert.Equal(t, "8B 0D ?? ?? ?? ?? 8B 84 24", res.Pattern)
}

func TestScanMask(t *testing.T) {
	path := writeDump(t, dump)
	out, err := run(t, "scan", path, "8B0D 00000000 8B8424", "--mask", "xx????xxx")
	require.NoError(t, err)
	assert.Equal(t, "0x00400002\n", out)

	_, err = run(t, "scan", path, "8B0D", "--mask", "xx?")
	assert.ErrorIs(t, err, scan.ErrPatternSyntax)
	_, err = run(t, "scan", path, "8B0G", "--mask", "xx")
	assert.ErrorIs(t, err, scan.ErrPatternSyntax)
}

func TestScanMissing(t *testing.T) {
	path := writeDump(t, dump)
	out, err := run(t, "scan", path, "DE AD BE EF")
	assert.ErrorIs(t, err, scan.ErrNotFound)
	assert.Empty(t, out)

	_, err = run(t, "scan", filepath.Join(t.TempDir(), "absent.bin"), "90")
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = run(t, "scan", path, "?? ??")
	assert.ErrorIs(t, err, scan.ErrPatternEmpty)
}

func TestSigs(t *testing.T) {
	sigs := engine.DefaultSignatures()
	var data []byte
	for _, sig := range mainModuleSignatures(sigs) {
		if sig.name == engine.StepTick {
			continue
		}
		for i := 0; i < sig.p.Len(); i++ {
			b, _ := sig.p.At(i)
			data = append(data, b)
		}
		data = append(data, 0xCC, 0xCC, 0xCC, 0xCC)
	}
	path := writeDump(t, data)

	out, err := run(t, "sigs", path, "--json")
	assert.ErrorContains(t, err, "1 of 11 signatures missing")
	var results []sigResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 11)
	assert.Equal(t, sigResult{Name: engine.StepNames, Addr: 0x400000, Found: true}, results[0])
	for _, r := range results[:10] {
		assert.True(t, r.Found, r.Name)
	}
	assert.Equal(t, sigResult{Name: engine.StepTick}, results[10])
}
