package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "spinlock"

var (
	Acquisitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "acquisitions_total",
		Help:      "The total number of successful acquires made by stress workloads",
	}, []string{"workload"})

	TryLockFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "trylock_failures_total",
		Help:      "The total number of TryLock calls that could not acquire the lock",
	}, []string{"workload"})

	Violations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invariant_violations_total",
		Help:      "The total number of mutual exclusion or visibility violations observed",
	}, []string{"workload"})

	RunDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall time of a stress run",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"workload", "status"})
)

func init() {
	prometheus.MustRegister(Acquisitions, TryLockFailures, Violations, RunDuration)
}
