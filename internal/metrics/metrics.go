package metrics

import "time"

// Metrics is the reconciler's narrow metrics surface, see spec.md §7
// ("Errors are observable through metrics... and logs").
type Metrics interface {
	Increment(metric string)
	Duration(metric string, d time.Duration)
	Gauge(metric string, value int)
}

// Noop discards every call; used in tests and wherever a statsd
// endpoint is not configured.
type Noop struct{}

func (Noop) Increment(string)              {}
func (Noop) Duration(string, time.Duration) {}
func (Noop) Gauge(string, int)              {}
