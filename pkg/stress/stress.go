package stress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/yudhasubki/spinlock"
	"github.com/yudhasubki/spinlock/pkg/metric"
)

var (
	ErrInvariant       = errors.New("lock invariant violated")
	ErrUnknownWorkload = errors.New("unknown workload")
	ErrInvalidConfig   = errors.New("invalid stress config")
)

const (
	WorkloadCounter = "counter"
	WorkloadTryLock = "trylock"
	WorkloadMessage = "message"
	WorkloadContext = "context"
)

const (
	defaultIterations = 10000
	defaultTimeout    = time.Minute

	maxWorkers    = 1024
	maxIterations = 10_000_000
	maxTimeout    = 10 * time.Minute

	// workers look at the context once every checkEvery iterations
	checkEvery = 256
)

const (
	statusOk        = "ok"
	statusFailed    = "failed"
	statusCancelled = "cancelled"
)

type Config struct {
	Workload   string        `json:"workload" yaml:"workload"`
	Workers    int           `json:"workers" yaml:"workers"`
	Iterations int           `json:"iterations" yaml:"iterations"`
	Timeout    time.Duration `json:"timeout" yaml:"timeout"`
}

// Normalize fills the zero fields of cfg with defaults.
func (cfg Config) Normalize() Config {
	if cfg.Workload == "" {
		cfg.Workload = WorkloadCounter
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Workload == WorkloadMessage && cfg.Workers < 2 {
		cfg.Workers = 2
	}
	if cfg.Iterations <= 0 {
		cfg.Iterations = defaultIterations
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return cfg
}

// Validate rejects a run larger than one process should be asked to
// perform. It expects a normalized config.
func (cfg Config) Validate() error {
	switch {
	case cfg.Workers > maxWorkers:
		return fmt.Errorf("%w: workers %d exceeds %d", ErrInvalidConfig, cfg.Workers, maxWorkers)
	case cfg.Iterations > maxIterations:
		return fmt.Errorf("%w: iterations %d exceeds %d", ErrInvalidConfig, cfg.Iterations, maxIterations)
	case cfg.Timeout > maxTimeout:
		return fmt.Errorf("%w: timeout %s exceeds %s", ErrInvalidConfig, cfg.Timeout, maxTimeout)
	}
	return nil
}

// UnmarshalJSON accepts timeout either as a duration string ("30s") or as
// a number of nanoseconds.
func (cfg *Config) UnmarshalJSON(b []byte) error {
	type alias Config
	aux := struct {
		alias
		Timeout json.RawMessage `json:"timeout"`
	}{alias: alias(*cfg)}

	err := json.Unmarshal(b, &aux)
	if err != nil {
		return err
	}
	*cfg = Config(aux.alias)

	if len(aux.Timeout) == 0 || string(aux.Timeout) == "null" {
		return nil
	}

	if aux.Timeout[0] == '"' {
		var s string
		err = json.Unmarshal(aux.Timeout, &s)
		if err != nil {
			return err
		}
		cfg.Timeout, err = time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("%w: timeout: %v", ErrInvalidConfig, err)
		}
		return nil
	}

	var ns int64
	err = json.Unmarshal(aux.Timeout, &ns)
	if err != nil {
		return fmt.Errorf("%w: timeout: %v", ErrInvalidConfig, err)
	}
	cfg.Timeout = time.Duration(ns)
	return nil
}

type Report struct {
	Id          uuid.UUID `json:"id"`
	Workload    string    `json:"workload"`
	Workers     int       `json:"workers"`
	Iterations  int       `json:"iterations"`
	Acquired    int64     `json:"acquired"`
	Released    int64     `json:"released"`
	Expected    int64     `json:"expected"`
	Counter     int64     `json:"counter"`
	TryFailures int64     `json:"try_failures"`
	Violations  int64     `json:"violations"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

func (r Report) Elapsed() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Err reports ErrInvariant when the counters of a completed run disagree.
func (r Report) Err() error {
	switch {
	case r.Violations > 0:
		return fmt.Errorf("%w: %d violations", ErrInvariant, r.Violations)
	case r.Counter != r.Expected:
		return fmt.Errorf("%w: counter %d, expected %d", ErrInvariant, r.Counter, r.Expected)
	case r.Acquired != r.Released:
		return fmt.Errorf("%w: %d acquires, %d releases", ErrInvariant, r.Acquired, r.Released)
	}
	return nil
}

// Workloads returns the names Run accepts.
func Workloads() []string {
	names := make([]string, 0, len(workloads))
	for name := range workloads {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes one stress workload against a fresh SpinLock. The report is
// returned even when err is not nil.
func Run(ctx context.Context, cfg Config) (Report, error) {
	cfg = cfg.Normalize()

	report := Report{
		Id:         uuid.New(),
		Workload:   cfg.Workload,
		Workers:    cfg.Workers,
		Iterations: cfg.Iterations,
	}

	fn, ok := workloads[cfg.Workload]
	if !ok {
		return report, fmt.Errorf("%w: %q", ErrUnknownWorkload, cfg.Workload)
	}

	err := cfg.Validate()
	if err != nil {
		return report, err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	slog.Debug(
		"stress run started",
		"run_id", report.Id,
		"workload", cfg.Workload,
		"workers", cfg.Workers,
		"iterations", cfg.Iterations,
	)

	r := &run{}
	report.StartedAt = time.Now()
	report.Expected = fn(ctx, r, cfg)
	report.FinishedAt = time.Now()

	report.Counter = r.counter
	report.Acquired = r.acquired.Load()
	report.Released = r.released.Load()
	report.TryFailures = r.tryFailures.Load()
	report.Violations = r.violations.Load()

	err = ctx.Err()
	if err == nil {
		err = report.Err()
	}
	observe(report, err)

	if err != nil {
		slog.Error(
			"stress run failed",
			"run_id", report.Id,
			"workload", report.Workload,
			"error", err,
		)
		return report, err
	}

	slog.Info(
		"stress run finished",
		"run_id", report.Id,
		"workload", report.Workload,
		"acquired", report.Acquired,
		"elapsed", report.Elapsed(),
	)
	return report, nil
}

func observe(report Report, err error) {
	status := statusOk
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = statusCancelled
	case err != nil:
		status = statusFailed
	}

	metric.Acquisitions.WithLabelValues(report.Workload).Add(float64(report.Acquired))
	metric.TryLockFailures.WithLabelValues(report.Workload).Add(float64(report.TryFailures))
	metric.Violations.WithLabelValues(report.Workload).Add(float64(report.Violations))
	metric.RunDuration.WithLabelValues(report.Workload, status).Observe(report.Elapsed().Seconds())
}

// run is the state shared by the workers of one stress run.
type run struct {
	lock spinlock.SpinLock

	// guarded by lock
	counter int64

	holders     atomic.Int32
	acquired    atomic.Int64
	released    atomic.Int64
	tryFailures atomic.Int64
	violations  atomic.Int64
}

// enter must be called right after an acquire.
func (r *run) enter() {
	r.acquired.Add(1)
	if r.holders.Add(1) != 1 {
		r.violations.Add(1)
	}
}

// leave must be called right before the release.
func (r *run) leave() {
	r.holders.Add(-1)
	r.released.Add(1)
}

func spawn(n int, fn func(worker int)) {
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(worker int) {
			defer wg.Done()
			fn(worker)
		}(i)
	}
	wg.Wait()
}
