// Package metrics provides Prometheus metrics for the preview loop.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesDecoded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "kamview",
		Subsystem: "frames",
		Name:      "decoded_total",
		Help:      "Frames decoded and presented",
	})

	framesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "kamview",
		Subsystem: "frames",
		Name:      "dropped_total",
		Help:      "Frames dropped due to dequeue or decode failures",
	})

	controlWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kamview",
		Subsystem: "controls",
		Name:      "writes_total",
		Help:      "Control writes by result",
	}, []string{"result"})

	controlReadSkips = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "kamview",
		Subsystem: "controls",
		Name:      "read_skips_total",
		Help:      "Per-tick control reads skipped because the read failed",
	})

	captures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kamview",
		Subsystem: "capture",
		Name:      "saves_total",
		Help:      "Capture saves by result",
	}, []string{"result"})

	deviceSwitches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "kamview",
		Subsystem: "devices",
		Name:      "switches_total",
		Help:      "Completed device switches",
	})

	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "kamview",
		Name:      "tick_duration_seconds",
		Help:      "Time spent in one tick of the sync loop",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
	})
)

// IncFrameDecoded counts one presented frame.
func IncFrameDecoded() {
	framesDecoded.Inc()
}

// IncFrameDropped counts one dropped frame.
func IncFrameDropped() {
	framesDropped.Inc()
}

// IncControlWrite counts one control write.
func IncControlWrite(ok bool) {
	controlWrites.WithLabelValues(result(ok)).Inc()
}

// IncControlReadSkip counts one control whose read failed for a tick.
func IncControlReadSkip() {
	controlReadSkips.Inc()
}

// IncCapture counts one capture attempt.
func IncCapture(ok bool) {
	captures.WithLabelValues(result(ok)).Inc()
}

// IncDeviceSwitch counts one completed device switch.
func IncDeviceSwitch() {
	deviceSwitches.Inc()
}

// ObserveTick records the duration of one tick in seconds.
func ObserveTick(seconds float64) {
	tickDuration.Observe(seconds)
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
