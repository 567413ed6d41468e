package iopsstat

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/netcas/splitter/internal/common"
)

// DiskStatsReader is the block-device stat source: a line-oriented text
// stream, opened fresh on every call and released before Observe returns.
type DiskStatsReader interface {
	Open() (io.ReadCloser, error)
}

// DiskSource derives IOPS from the backend block device's cumulative
// reads/writes, read from a whitespace-separated stat line whose first and
// fifth fields are the cumulative reads and writes. The producer publishes
// this simplified layout directly; it is not the full kernel /proc/diskstats
// format, so a general-purpose diskstats parser would read the wrong
// offsets.
type DiskSource struct {
	Reader DiskStatsReader

	initialized bool
	prevReads   uint64
	prevWrites  uint64
}

// Observe returns the IOPS derived from (Δreads + Δwrites) over elapsedMs.
// A missing source, a parse error, or a non-positive elapsed interval all
// yield 0 without disturbing the snapshot.
func (d *DiskSource) Observe(elapsedMs int64) uint64 {
	if elapsedMs <= 0 {
		return 0
	}

	reads, writes, err := readFirstStatLine(d.Reader)
	if err != nil {
		return 0
	}

	if !d.initialized {
		d.initialized = true
		d.prevReads = reads
		d.prevWrites = writes

		return 0
	}

	deltaReads := common.SaturatingSub(reads, d.prevReads)
	deltaWrites := common.SaturatingSub(writes, d.prevWrites)

	d.prevReads = reads
	d.prevWrites = writes

	return ((deltaReads + deltaWrites) * 1000) / uint64(elapsedMs)
}

// Reset clears the lazily-initialized previous-sample snapshot.
func (d *DiskSource) Reset() {
	d.initialized = false
	d.prevReads = 0
	d.prevWrites = 0
}

// readFirstStatLine opens the reader, reads its first line, and parses
// fields 0 and 4 as the cumulative reads and writes.
func readFirstStatLine(r DiskStatsReader) (reads, writes uint64, err error) {
	rc, err := r.Open()
	if err != nil {
		return 0, 0, err
	}
	defer rc.Close()

	scanner := bufio.NewScanner(rc)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return 0, 0, err
		}

		return 0, 0, io.ErrUnexpectedEOF
	}

	fields := strings.Fields(scanner.Text())
	if len(fields) < 5 {
		return 0, 0, io.ErrShortBuffer
	}

	reads, err = strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return 0, 0, err
	}

	writes, err = strconv.ParseUint(fields[4], 10, 64)
	if err != nil {
		return 0, 0, err
	}

	return reads, writes, nil
}
