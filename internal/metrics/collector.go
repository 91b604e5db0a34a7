package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "viturectl"

// Collector counts relay activity. It satisfies the stats hooks of the
// relay and control packages and observes presence sessions. Counters are
// exported through a private Prometheus registry.
type Collector struct {
	registry *prometheus.Registry

	framesSent      prometheus.Counter
	sendErrors      prometheus.Counter
	commandsApplied prometheus.Counter
	recordsSkipped  prometheus.Counter
	sessions        *prometheus.CounterVec
	deviceActive    prometheus.Gauge

	nFramesSent      atomic.Uint64
	nSendErrors      atomic.Uint64
	nCommandsApplied atomic.Uint64
	nRecordsSkipped  atomic.Uint64
	nSessionsOpened  atomic.Uint64
	nSessionFailures atomic.Uint64
	active           atomic.Bool
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		framesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "OpenTrack records handed to the UDP socket.",
		}),
		sendErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_errors_total",
			Help:      "OpenTrack records the UDP socket refused.",
		}),
		commandsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_applied_total",
			Help:      "Calibration commands applied from the control channel.",
		}),
		recordsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "control_records_skipped_total",
			Help:      "Control records that could not be decoded.",
		}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_sessions_total",
			Help:      "Device session transitions.",
		}, []string{"event"}),
		deviceActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "device_active",
			Help:      "1 while a device session is streaming.",
		}),
	}

	c.registry.MustRegister(
		c.framesSent,
		c.sendErrors,
		c.commandsApplied,
		c.recordsSkipped,
		c.sessions,
		c.deviceActive,
	)

	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) FrameSent() {
	c.framesSent.Inc()
	c.nFramesSent.Add(1)
}

func (c *Collector) SendFailed() {
	c.sendErrors.Inc()
	c.nSendErrors.Add(1)
}

func (c *Collector) CommandsApplied(n int) {
	if n <= 0 {
		return
	}
	c.commandsApplied.Add(float64(n))
	c.nCommandsApplied.Add(uint64(n))
}

func (c *Collector) RecordsSkipped(n int) {
	if n <= 0 {
		return
	}
	c.recordsSkipped.Add(float64(n))
	c.nRecordsSkipped.Add(uint64(n))
}

func (c *Collector) SessionOpened() {
	c.sessions.With(prometheus.Labels{"event": "opened"}).Inc()
	c.deviceActive.Set(1)
	c.nSessionsOpened.Add(1)
	c.active.Store(true)
}

func (c *Collector) SessionClosed() {
	c.sessions.With(prometheus.Labels{"event": "closed"}).Inc()
	c.deviceActive.Set(0)
	c.active.Store(false)
}

func (c *Collector) SessionFailed(error) {
	c.sessions.With(prometheus.Labels{"event": "failed"}).Inc()
	c.nSessionFailures.Add(1)
}

// Snapshot copies the current counters.
func (c *Collector) Snapshot() *Snapshot {
	return &Snapshot{
		Timestamp:       time.Now(),
		FramesSent:      c.nFramesSent.Load(),
		SendErrors:      c.nSendErrors.Load(),
		CommandsApplied: c.nCommandsApplied.Load(),
		RecordsSkipped:  c.nRecordsSkipped.Load(),
		SessionsOpened:  c.nSessionsOpened.Load(),
		SessionFailures: c.nSessionFailures.Load(),
		DeviceActive:    c.active.Load(),
	}
}
