package client

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ValentinKolb/dbnetget/rpc/common"
	"github.com/VictoriaMetrics/metrics"
)

// poolMetrics holds the metrics of one pool in its own set, so several pools
// in one process never share counters
type poolMetrics struct {
	set             *metrics.Set
	created         *metrics.Counter
	evicted         *metrics.Counter
	executeDuration *metrics.Histogram
}

func newPoolMetrics(p *ClientPool) *poolMetrics {
	set := metrics.NewSet()
	m := &poolMetrics{
		set:             set,
		created:         set.NewCounter("dbnetget_pool_connections_created_total"),
		evicted:         set.NewCounter("dbnetget_pool_connections_evicted_total"),
		executeDuration: set.NewHistogram("dbnetget_pool_execute_duration_seconds"),
	}
	set.NewGauge("dbnetget_pool_connections_live", func() float64 {
		return float64(p.Stats().Live)
	})
	set.NewGauge("dbnetget_pool_connections_busy", func() float64 {
		return float64(p.busy.Value())
	})
	return m
}

// observe records the outcome of one pool execution
func (m *poolMetrics) observe(start time.Time, err error) {
	m.executeDuration.UpdateDuration(start)
	if err == nil {
		return
	}
	m.set.GetOrCreateCounter(fmt.Sprintf(`dbnetget_pool_execute_errors_total{kind=%q}`, errorKind(err))).Inc()
}

// errorKind maps an error to a short metric label
func errorKind(err error) string {
	switch {
	case errors.Is(err, common.ErrResourceLimit):
		return "resource_limit"
	case errors.Is(err, common.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, common.ErrRetryLimitExceeded):
		return "retry_limit"
	case errors.Is(err, common.ErrServerClosed):
		return "server_closed"
	case common.IsTransportError(err):
		return "transport"
	default:
		return "other"
	}
}

// WriteMetrics writes the metrics of the pool in Prometheus text format to w
func (p *ClientPool) WriteMetrics(w io.Writer) {
	p.metrics.set.WritePrometheus(w)
}
