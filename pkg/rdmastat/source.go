package rdmastat

import (
	"fmt"

	"github.com/netcas/splitter/internal/common"
)

// Source is the RDMA metrics producer: a separate component that
// publishes latency/throughput counters via a filesystem-visible
// interface. The splitter only ever reads from a Source; it never
// measures RDMA itself.
type Source interface {
	Latency() (uint64, error)
	Throughput() (uint64, error)
}

// FileSource reads latency and throughput from two single-line integer
// text files, in producer-defined units compared only against themselves.
type FileSource struct {
	LatencyPath    string
	ThroughputPath string
}

// Latency reads and parses LatencyPath.
func (f *FileSource) Latency() (uint64, error) {
	v, err := common.ReadUintFromFile(f.LatencyPath)
	if err != nil {
		return 0, fmt.Errorf("rdmastat: failed to read latency file %q: %w", f.LatencyPath, err)
	}

	return v, nil
}

// Throughput reads and parses ThroughputPath.
func (f *FileSource) Throughput() (uint64, error) {
	v, err := common.ReadUintFromFile(f.ThroughputPath)
	if err != nil {
		return 0, fmt.Errorf("rdmastat: failed to read throughput file %q: %w", f.ThroughputPath, err)
	}

	return v, nil
}
