package iopsstat

import (
	"io"
	"os"
)

// FileDiskStatsReader is the default DiskStatsReader: it opens a fixed
// path on every call. The real kernel /proc/diskstats format does not line
// up with the first-and-fifth-field layout DiskSource parses on every
// device line; operators should publish a stat line in that layout rather
// than pointing this at the raw kernel file.
type FileDiskStatsReader struct {
	Path string
}

// Open opens Path for reading.
func (f *FileDiskStatsReader) Open() (io.ReadCloser, error) {
	return os.Open(f.Path)
}
