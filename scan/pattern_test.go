package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	p, err := Parse("8B 0D ?? ? 8b")
	require.NoError(t, err)
	require.Equal(t, 5, p.Len())
	assert.Equal(t, "8B 0D ?? ?? 8B", p.String())

	b, wild := p.At(2)
	assert.True(t, wild)
	assert.Zero(t, b)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("")
	assert.ErrorIs(t, err, ErrPatternEmpty)

	_, err = Parse("?? ??")
	assert.ErrorIs(t, err, ErrPatternEmpty)

	_, err = Parse("8B 0DX")
	assert.ErrorIs(t, err, ErrPatternSyntax)

	_, err = Parse("GG")
	assert.ErrorIs(t, err, ErrPatternSyntax)
}

func TestFromMask(t *testing.T) {
	p, err := FromMask([]byte("\x8B\x0D\x00\x00\x00\x00\x8B\x84"), "xx????xx")
	require.NoError(t, err)
	assert.Equal(t, MustParse("8B 0D ?? ?? ?? ?? 8B 84"), p)

	_, err = FromMask([]byte{1, 2}, "x")
	assert.ErrorIs(t, err, ErrPatternSyntax)

	_, err = FromMask([]byte{1}, "z")
	assert.ErrorIs(t, err, ErrPatternSyntax)
}
