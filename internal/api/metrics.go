package api

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AaronLay10/TorchBridge/internal/events"
	"github.com/AaronLay10/TorchBridge/internal/version"
)

var startTime = time.Now()

var (
	eventsTotal = promauto.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "torch",
		Name:      "events_total",
		Help:      "Total number of events emitted since startup",
	}, func() float64 { return float64(events.TotalCount()) })

	uptimeSeconds = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "torch",
		Name:      "uptime_seconds",
		Help:      "Seconds since the process started",
	}, func() float64 { return time.Since(startTime).Seconds() })

	buildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "torch",
		Name:      "build_info",
		Help:      "Build version, always 1",
	}, []string{"version"})

	movesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "torch",
		Name:      "moves_total",
		Help:      "Moves executed, by whether they came from a replay",
	}, []string{"autoplay"})

	undosTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "torch",
		Name:      "undos_total",
		Help:      "Moves reverted by undo",
	})

	rejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "torch",
		Name:      "rejections_total",
		Help:      "Refused operations, by op and reason",
	}, []string{"op", "reason"})

	completionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "torch",
		Name:      "completions_total",
		Help:      "Finished runs, by outcome",
	}, []string{"outcome", "autoplay"})

	completionMinutes = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "torch",
		Name:      "completion_elapsed_minutes",
		Help:      "Elapsed puzzle minutes of manual runs that got everyone across",
		Buckets:   []float64{17, 19, 21, 23, 25, 30, 40},
	})

	wsClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "torch",
		Name:      "ws_clients",
		Help:      "Open websocket connections",
	})

	mqttConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "torch",
		Name:      "mqtt_connected",
		Help:      "Whether the MQTT broker is connected (1) or not (0)",
	})

	postgresConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "torch",
		Name:      "postgres_connected",
		Help:      "Whether PostgreSQL is connected (1) or not (0)",
	})
)

func init() {
	buildInfo.WithLabelValues(version.Version).Set(1)
}

func metricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordEvent updates the domain counters from one emitted event.
func RecordEvent(e events.Event) {
	switch e.Name {
	case "move.executed":
		movesTotal.WithLabelValues(boolField(e.Fields, "autoplay")).Inc()
	case "move.undone":
		undosTotal.Inc()
	case "operation.rejected":
		op, _ := e.Fields["op"].(string)
		reason, _ := e.Fields["reason"].(string)
		rejectionsTotal.WithLabelValues(op, reason).Inc()
	case "puzzle.completed":
		outcome, _ := e.Fields["outcome"].(string)
		autoplay := boolField(e.Fields, "autoplay")
		completionsTotal.WithLabelValues(outcome, autoplay).Inc()
		if elapsed, ok := numberField(e.Fields, "elapsed"); ok && autoplay == "false" {
			completionMinutes.Observe(elapsed)
		}
	}
}

// RunMetrics feeds RecordEvent from the event stream until ctx is done.
func RunMetrics(ctx context.Context) {
	sub := events.Subscribe()
	defer events.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub:
			if !ok {
				return
			}
			RecordEvent(e)
		}
	}
}

func boolField(fields map[string]interface{}, key string) string {
	v, _ := fields[key].(bool)
	return strconv.FormatBool(v)
}

// numberField accepts ints from live events and float64 from decoded JSON.
func numberField(fields map[string]interface{}, key string) (float64, bool) {
	switch v := fields[key].(type) {
	case int:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// readiness tracks which collaborators are up. A collaborator that was
// never configured is optional and does not hold readiness back.
var readiness = struct {
	mu                sync.RWMutex
	sessionReady      bool
	mqttConnected     bool
	mqttOptional      bool
	postgresConnected bool
	postgresOptional  bool
}{mqttOptional: true, postgresOptional: true}

// SetSessionReady marks the puzzle session as serving.
func SetSessionReady(ready bool) {
	readiness.mu.Lock()
	readiness.sessionReady = ready
	readiness.mu.Unlock()
}

// SetMQTTStatus records broker connectivity. optional means the daemon runs
// without a broker.
func SetMQTTStatus(connected, optional bool) {
	readiness.mu.Lock()
	readiness.mqttConnected = connected
	readiness.mqttOptional = optional
	readiness.mu.Unlock()
	mqttConnected.Set(gaugeBool(connected))
}

// SetPostgresStatus records journal connectivity.
func SetPostgresStatus(connected, optional bool) {
	readiness.mu.Lock()
	readiness.postgresConnected = connected
	readiness.postgresOptional = optional
	readiness.mu.Unlock()
	postgresConnected.Set(gaugeBool(connected))
}

func gaugeBool(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

type CheckStatus struct {
	Status string `json:"status"`
}

type ReadinessResponse struct {
	Ready       bool                   `json:"ready"`
	Checks      map[string]CheckStatus `json:"checks"`
	NotReadyMsg string                 `json:"message,omitempty"`
}

func readyHandler(w http.ResponseWriter, r *http.Request) {
	readiness.mu.RLock()
	session := readiness.sessionReady
	mqttUp, mqttOpt := readiness.mqttConnected, readiness.mqttOptional
	pgUp, pgOpt := readiness.postgresConnected, readiness.postgresOptional
	readiness.mu.RUnlock()

	resp := ReadinessResponse{Ready: true, Checks: make(map[string]CheckStatus)}
	check := func(name string, up, optional bool) {
		switch {
		case up:
			resp.Checks[name] = CheckStatus{Status: "ok"}
		case optional:
			resp.Checks[name] = CheckStatus{Status: "disabled"}
		default:
			resp.Checks[name] = CheckStatus{Status: "not_ready"}
			resp.Ready = false
			if resp.NotReadyMsg == "" {
				resp.NotReadyMsg = name + " is not ready"
			}
		}
	}
	check("session", session, false)
	check("mqtt", mqttUp, mqttOpt)
	check("postgres", pgUp, pgOpt)

	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
