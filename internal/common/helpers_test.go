package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, Clamp(-5, 0, 10000))
	assert.Equal(t, 10000, Clamp(20000, 0, 10000))
	assert.Equal(t, 42, Clamp(42, 0, 10000))
}

func TestGCD(t *testing.T) {
	cases := []struct {
		a, b, want uint32
	}{
		{50, 50, 50},
		{70, 30, 10},
		{0, 5, 5},
		{5, 0, 5},
		{1, 100, 1},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, GCD(c.a, c.b))
	}
}

func TestSaturatingSub(t *testing.T) {
	assert.Equal(t, uint32(0), SaturatingSub[uint32](0, 1))
	assert.Equal(t, uint32(0), SaturatingSub[uint32](3, 3))
	assert.Equal(t, uint32(2), SaturatingSub[uint32](5, 3))
}

func TestReadUintFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "value")
	require.NoError(t, os.WriteFile(path, []byte("12345\n"), 0o644))

	v, err := ReadUintFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(12345), v)

	_, err = ReadUintFromFile(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
