package iopsstat

import (
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDiskStatsReader struct {
	line string
	err  error
}

func (f *fakeDiskStatsReader) Open() (io.ReadCloser, error) {
	if f.err != nil {
		return nil, f.err
	}

	return io.NopCloser(strings.NewReader(f.line)), nil
}

func TestDiskSourceFirstCallReturnsZero(t *testing.T) {
	reader := &fakeDiskStatsReader{line: "100 0 0 0 50 0 0 0\n"}
	src := &DiskSource{Reader: reader}

	assert.Equal(t, uint64(0), src.Observe(100))
}

func TestDiskSourceComputesIOPS(t *testing.T) {
	reader := &fakeDiskStatsReader{line: "100 0 0 0 50 0 0 0\n"}
	src := &DiskSource{Reader: reader}

	src.Observe(100)

	reader.line = "180 0 0 0 70 0 0 0\n" // +80 reads, +20 writes = 100 over 100ms
	iops := src.Observe(100)

	assert.Equal(t, uint64(1000), iops)
}

func TestDiskSourceShortLineYieldsZero(t *testing.T) {
	reader := &fakeDiskStatsReader{line: "100 0\n"}
	src := &DiskSource{Reader: reader}

	assert.Equal(t, uint64(0), src.Observe(100))
}

func TestDiskSourceOpenErrorYieldsZero(t *testing.T) {
	reader := &fakeDiskStatsReader{err: errors.New("no such file")}
	src := &DiskSource{Reader: reader}

	assert.Equal(t, uint64(0), src.Observe(100))
}

func TestFileDiskStatsReaderOpensPath(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/diskstats"
	require.NoError(t, os.WriteFile(path, []byte("1 2 3 4 5 6\n"), 0o644))

	r := &FileDiskStatsReader{Path: path}
	rc, err := r.Open()
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "1 2 3 4 5 6\n", string(data))
}
