package metrics

import (
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var metrics *Metrics

// EventKind identifies what happened to a process, as reported by the
// Recovery Engine or a Process Watcher.
type EventKind int

const (
	// EventLaunched means a process was started, during initial launch or a
	// relaunch wave.
	EventLaunched EventKind = iota
	// EventExited means a process's watcher observed its child exit.
	EventExited
	// EventRestarted means a process completed a supervised stop+relaunch
	// cycle as part of a non-propagating or propagating subgraph recovery.
	EventRestarted
	// EventCatastrophic means the Recovery Engine entered the Catastrophic
	// state.
	EventCatastrophic
)

// Event is a single metrics-relevant occurrence, queued for asynchronous
// processing so the Recovery Engine's state machine never blocks on metrics
// I/O.
type Event struct {
	Kind        EventKind
	ProcessName string
}

// Metrics handles processing and exposing Mercury's supervision metrics.
type Metrics struct {
	channel      chan *Event
	launches     *prometheus.CounterVec
	restarts     *prometheus.CounterVec
	catastrophic prometheus.Counter
	running      *prometheus.GaugeVec
	dropped      prometheus.Counter
	stopCh       chan struct{}
	shutdownOnce sync.Once
}

// NewWithRegistry creates a new Metrics handler registered against the given
// Prometheus registerer, and starts its background processing goroutine.
func NewWithRegistry(registry prometheus.Registerer) (*Metrics, error) {
	const channelBufferSize = 32

	m := &Metrics{
		launches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mercury_process_launches_total",
			Help: "Number of times a managed process has been launched, including relaunches",
		}, []string{"process_name"}),
		restarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mercury_process_restarts_total",
			Help: "Number of times a managed process has completed a supervised restart cycle",
		}, []string{"process_name"}),
		catastrophic: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mercury_catastrophic_shutdowns_total",
			Help: "Number of times the Recovery Engine has entered the Catastrophic state",
		}),
		running: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mercury_process_running",
			Help: "Whether a managed process is currently believed to be running (1) or not (0)",
		}, []string{"process_name"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mercury_metrics_dropped_total",
			Help: "Number of metrics events dropped because the processing channel was full",
		}),
		channel: make(chan *Event, channelBufferSize),
		stopCh:  make(chan struct{}),
	}

	collectors := []prometheus.Collector{m.launches, m.restarts, m.catastrophic, m.running, m.dropped}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			var alreadyRegistered *prometheus.AlreadyRegisteredError
			if !errors.As(err, &alreadyRegistered) {
				return nil, fmt.Errorf("registering metric: %w", err)
			}
		}
	}

	go m.HandleUpdate()

	return m, nil
}

// Default initializes or returns the singleton Metrics handler, registered
// against Prometheus's default registry. It panics on registration failure.
func Default() *Metrics {
	if metrics != nil {
		return metrics
	}

	var err error

	metrics, err = NewWithRegistry(prometheus.DefaultRegisterer)
	if err != nil {
		panic(err)
	}

	return metrics
}

// Register attempts to enqueue an event for processing. If the channel is
// full, the event is dropped and the dropped counter is incremented rather
// than blocking the caller — a metrics backlog must never slow down
// supervision.
func (m *Metrics) Register(event *Event) {
	select {
	case m.channel <- event:
	default:
		m.dropped.Inc()
	}
}

// RegisterLaunch records that processName was launched.
func (m *Metrics) RegisterLaunch(processName string) {
	m.Register(&Event{Kind: EventLaunched, ProcessName: processName})
}

// RegisterExit records that processName's watcher observed an exit.
func (m *Metrics) RegisterExit(processName string) {
	m.Register(&Event{Kind: EventExited, ProcessName: processName})
}

// RegisterRestart records that processName completed a restart cycle.
func (m *Metrics) RegisterRestart(processName string) {
	m.Register(&Event{Kind: EventRestarted, ProcessName: processName})
}

// RegisterCatastrophic records that the engine entered the Catastrophic state.
func (m *Metrics) RegisterCatastrophic() {
	m.Register(&Event{Kind: EventCatastrophic})
}

// QueueIsEmpty reports whether the processing channel currently has no
// pending events.
func (m *Metrics) QueueIsEmpty() bool {
	return len(m.channel) == 0
}

// Shutdown gracefully stops the metrics processing goroutine. Idempotent.
func (m *Metrics) Shutdown() {
	m.shutdownOnce.Do(func() {
		close(m.stopCh)
	})
}

// HandleUpdate processes events from the channel until Shutdown is called.
func (m *Metrics) HandleUpdate() {
	for {
		select {
		case event, ok := <-m.channel:
			if !ok {
				return
			}

			m.apply(event)
		case <-m.stopCh:
			return
		}
	}
}

func (m *Metrics) apply(event *Event) {
	switch event.Kind {
	case EventLaunched:
		m.launches.WithLabelValues(event.ProcessName).Inc()
		m.running.WithLabelValues(event.ProcessName).Set(1)
	case EventExited:
		m.running.WithLabelValues(event.ProcessName).Set(0)
	case EventRestarted:
		m.restarts.WithLabelValues(event.ProcessName).Inc()
	case EventCatastrophic:
		m.catastrophic.Inc()
	}
}
