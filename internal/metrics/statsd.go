package metrics

import (
	"time"

	statsd "github.com/smira/go-statsd"
)

// Statsd reports through go-statsd, the same client the teacher uses
// for its health-check controller (healthcheck/internal/metrics/statsd.go).
type Statsd struct {
	client *statsd.Client
}

func NewStatsd(nodeName, addr string) *Statsd {
	client := statsd.NewClient(
		addr,
		statsd.MetricPrefix("apps.nlb_reconciler."),
		statsd.DefaultTags(statsd.StringTag("node", nodeName)),
	)
	return &Statsd{client: client}
}

func (s *Statsd) Increment(metric string) {
	s.client.Incr(metric, 1)
}

func (s *Statsd) Duration(metric string, d time.Duration) {
	s.client.PrecisionTiming(metric, d)
}

func (s *Statsd) Gauge(metric string, value int) {
	s.client.Gauge(metric, int64(value))
}
