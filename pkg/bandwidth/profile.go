// Package bandwidth implements the offline bandwidth-profile lookup table:
// an immutable mapping from (io_depth, num_jobs, split_pct) to a measured
// achievable aggregate bandwidth.
package bandwidth

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
)

//go:embed testdata/profile.default.json
var defaultProfileFile embed.FS

// validIODepths and validNumJobs enumerate the domain of the first two
// lookup dimensions. Any value outside these sets maps to index 0 of that
// dimension, per the lookup contract.
var (
	validIODepths = []uint32{1, 2, 4, 8, 16, 32}
	validNumJobs  = []uint32{1, 2, 4, 8, 16, 32}
)

// key identifies one cell of the profile table.
type key struct {
	ioDepth  uint32
	numJobs  uint32
	splitPct uint32
}

// Entry is one row of the raw profile data, as parsed from JSON.
type Entry struct {
	IODepth       uint32 `json:"io_depth"`
	NumJobs       uint32 `json:"num_jobs"`
	SplitPct      uint32 `json:"split_pct"`
	BandwidthKiBs uint32 `json:"bandwidth_kib_s"`
}

// Profile is an immutable 3-D lookup table of achievable bandwidth. The
// zero value is a valid, empty profile: every lookup returns 0.
type Profile struct {
	table map[key]uint32
}

// Parse builds a Profile from a JSON array of Entry. Out-of-domain entries
// are normalized into the table under their snapped key, matching the
// lookup-side normalization in Bandwidth so a profile produced from a
// slightly irregular data file still behaves consistently.
func Parse(r io.Reader) (*Profile, error) {
	var entries []Entry

	dec := json.NewDecoder(r)
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("bandwidth: failed to parse profile: %w", err)
	}

	p := &Profile{table: make(map[key]uint32, len(entries))}

	for _, e := range entries {
		p.table[normalize(e.IODepth, e.NumJobs, e.SplitPct)] = e.BandwidthKiBs
	}

	return p, nil
}

// Default returns the profile embedded in the binary, used when no
// profile file is configured.
func Default() *Profile {
	f, err := defaultProfileFile.Open("testdata/profile.default.json")
	if err != nil {
		// The embedded file is part of the binary; a failure here is a
		// build-time defect, not a runtime condition.
		panic(fmt.Sprintf("bandwidth: embedded default profile missing: %v", err))
	}
	defer f.Close()

	p, err := Parse(f)
	if err != nil {
		panic(fmt.Sprintf("bandwidth: embedded default profile invalid: %v", err))
	}

	return p
}

// Bandwidth looks up the achievable bandwidth at (ioDepth, numJobs,
// splitPct). Out-of-domain inputs, including a splitPct that is not a
// multiple of 5, snap to index 0 of the offending dimension. A missing
// cell returns 0, the "unknown / do not adjust" sentinel.
func (p *Profile) Bandwidth(ioDepth, numJobs, splitPct uint32) uint32 {
	if p == nil {
		return 0
	}

	return p.table[normalize(ioDepth, numJobs, splitPct)]
}

func normalize(ioDepth, numJobs, splitPct uint32) key {
	return key{
		ioDepth:  snapOrFirst(ioDepth, validIODepths),
		numJobs:  snapOrFirst(numJobs, validNumJobs),
		splitPct: snapSplitPct(splitPct),
	}
}

// snapOrFirst returns v if it is a member of domain, else domain[0]: the
// lookup contract maps an out-of-domain value to index 0 of that dimension,
// not to the literal value 0.
func snapOrFirst(v uint32, domain []uint32) uint32 {
	for _, d := range domain {
		if v == d {
			return v
		}
	}

	return domain[0]
}

func snapSplitPct(v uint32) uint32 {
	if v > 100 || v%5 != 0 {
		return 0
	}

	return v
}
