package metrics

import (
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registry = prometheus.NewRegistry()

	childrenReaped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ward",
		Name:      "children_reaped_total",
		Help:      "Total number of terminated descendants collected by the supervisor.",
	})

	signalsRelayed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ward",
		Name:      "signals_relayed_total",
		Help:      "Total number of termination signals relayed to tracked processes.",
	}, []string{"signal"})

	forcedKills = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ward",
		Name:      "forced_kills_total",
		Help:      "Total number of tracked processes force-killed after the grace period elapsed.",
	})

	reapRaces = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ward",
		Name:      "reap_races_total",
		Help:      "Total number of exit notifications observed for untracked process identifiers.",
	})

	buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ward",
		Name:      "build_info",
		Help:      "Build metadata for the running ward binary.",
	}, []string{"go_version", "vcs", "vcs_revision", "vcs_time", "vcs_modified"})

	buildInfoOnce sync.Once
)

func init() {
	registry.MustRegister(childrenReaped, signalsRelayed, forcedKills, reapRaces, buildInfo)
}

// Registry returns the Prometheus registry containing all ward metrics.
func Registry() *prometheus.Registry {
	return registry
}

// IncChildrenReaped records a collected descendant exit.
func IncChildrenReaped() {
	childrenReaped.Inc()
}

// AddSignalsRelayed records signal deliveries to tracked processes.
func AddSignalsRelayed(signal string, n int) {
	if signal == "" || n <= 0 {
		return
	}
	signalsRelayed.WithLabelValues(signal).Add(float64(n))
}

// IncForcedKills records a force-kill applied after grace-period expiry.
func IncForcedKills() {
	forcedKills.Inc()
}

// IncReapRaces records an exit notification for an identifier that was never tracked.
func IncReapRaces() {
	reapRaces.Inc()
}

// EmitBuildInfo publishes build metadata about the running binary.
func EmitBuildInfo() {
	buildInfoOnce.Do(func() {
		labels := prometheus.Labels{
			"go_version":   runtime.Version(),
			"vcs":          "",
			"vcs_revision": "",
			"vcs_time":     "",
			"vcs_modified": "",
		}
		if info, ok := debug.ReadBuildInfo(); ok {
			if info.GoVersion != "" {
				labels["go_version"] = info.GoVersion
			}
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs":
					labels["vcs"] = setting.Value
				case "vcs.revision":
					labels["vcs_revision"] = setting.Value
				case "vcs.time":
					labels["vcs_time"] = setting.Value
				case "vcs.modified":
					labels["vcs_modified"] = setting.Value
				}
			}
		}
		buildInfo.With(labels).Set(1)
	})
}
