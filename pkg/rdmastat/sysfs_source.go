package rdmastat

import (
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/procfs/sysfs"

	"github.com/netcas/splitter/internal/common"
)

// ErrNoInfiniBandDevice is returned when the sysfs InfiniBand class
// directory does not exist on the host.
var ErrNoInfiniBandDevice = errors.New("rdmastat: no active InfiniBand device found")

// SysfsSource is a real-world default RDMA metrics producer: it reads the
// InfiniBand port hardware counters directly from sysfs. Throughput is the
// sum of transmitted and received data octets across all ports; latency is
// read from a separately published scalar file, since sysfs port counters
// carry no latency figure.
type SysfsSource struct {
	fs          sysfs.FS
	latencyPath string

	prevTotal    uint64
	haveBaseline bool
}

// NewSysfsSource opens sysfs at mountPoint and checks that its InfiniBand
// class can be read; it does not select a port or check port state.
// latencyPath is a single-line integer text file published by the RDMA
// metrics producer, per the FileSource contract.
func NewSysfsSource(mountPoint, latencyPath string) (*SysfsSource, error) {
	fs, err := sysfs.NewFS(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("rdmastat: failed to open sysfs at %q: %w", mountPoint, err)
	}

	if _, err := fs.InfiniBandClass(); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoInfiniBandDevice
		}

		return nil, fmt.Errorf("rdmastat: failed to read InfiniBand class: %w", err)
	}

	return &SysfsSource{fs: fs, latencyPath: latencyPath}, nil
}

// Throughput returns the combined transmitted+received data octets seen
// since the previous call. The sysfs counters are cumulative; the splitter
// only cares about an instantaneous, self-comparable throughput figure, so
// the first call establishes a baseline and returns 0.
func (s *SysfsSource) Throughput() (uint64, error) {
	devices, err := s.fs.InfiniBandClass()
	if err != nil {
		return 0, fmt.Errorf("rdmastat: failed to read InfiniBand class: %w", err)
	}

	var total uint64

	for _, device := range devices {
		for _, port := range device.Ports {
			total += sanitize(port.Counters.PortXmitData)
			total += sanitize(port.Counters.PortRcvData)
		}
	}

	if !s.haveBaseline {
		s.prevTotal = total
		s.haveBaseline = true

		return 0, nil
	}

	delta := common.SaturatingSub(total, s.prevTotal)

	s.prevTotal = total

	return delta, nil
}

// Latency reads the latency scalar published alongside the sysfs counters.
func (s *SysfsSource) Latency() (uint64, error) {
	data, err := os.ReadFile(s.latencyPath)
	if err != nil {
		return 0, fmt.Errorf("rdmastat: failed to read latency file %q: %w", s.latencyPath, err)
	}

	var v uint64
	if _, err := fmt.Sscanf(string(data), "%d", &v); err != nil {
		return 0, fmt.Errorf("rdmastat: failed to parse latency file %q: %w", s.latencyPath, err)
	}

	return v, nil
}

func sanitize(v *uint64) uint64 {
	if v == nil {
		return 0
	}

	return *v
}
