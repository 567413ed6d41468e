package rdmastat

// Observer couples the moving-average Window with the latest raw latency
// and throughput readings. It has no locking contract of its own; the
// owning control path serializes access.
type Observer struct {
	window     *Window
	latency    uint64
	throughput uint64
}

// NewObserver returns an Observer with a window of the given capacity.
func NewObserver(windowSize int) *Observer {
	return &Observer{window: NewWindow(windowSize)}
}

// Sample appends one throughput sample to the window and records the
// latest latency scalar.
func (o *Observer) Sample(latency, throughput uint64) {
	o.latency = latency
	o.throughput = throughput
	o.window.Insert(throughput)
}

// Average returns the current moving-average throughput.
func (o *Observer) Average() uint64 { return o.window.Average() }

// MaxAverage returns the all-time maximum moving-average throughput.
func (o *Observer) MaxAverage() uint64 { return o.window.MaxAverage() }

// Latency returns the most recently sampled latency.
func (o *Observer) Latency() uint64 { return o.latency }

// Throughput returns the most recently sampled raw throughput value.
func (o *Observer) Throughput() uint64 { return o.throughput }

// DropPermille returns the current congestion drop fraction, in [0, 1000].
func (o *Observer) DropPermille() uint64 { return o.window.DropPermille() }

// Reset zeroes all window state and the retained latency.
func (o *Observer) Reset() {
	o.window.Reset()
	o.latency = 0
	o.throughput = 0
}
