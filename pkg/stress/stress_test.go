package stress

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	for _, workload := range Workloads() {
		workload := workload
		t.Run(workload, func(t *testing.T) {
			report, err := Run(context.Background(), Config{
				Workload:   workload,
				Workers:    4,
				Iterations: 2000,
			})
			require.NoError(t, err)
			require.Equal(t, workload, report.Workload)
			require.Equal(t, report.Expected, report.Counter)
			require.Equal(t, report.Acquired, report.Released)
			require.Zero(t, report.Violations)
			require.False(t, report.FinishedAt.Before(report.StartedAt))
		})
	}
}

func TestRunExpected(t *testing.T) {
	report, err := Run(context.Background(), Config{
		Workload:   WorkloadCounter,
		Workers:    3,
		Iterations: 100,
	})
	require.NoError(t, err)
	require.EqualValues(t, 300, report.Expected)
	require.EqualValues(t, 300, report.Acquired)

	report, err = Run(context.Background(), Config{
		Workload:   WorkloadMessage,
		Workers:    1,
		Iterations: 50,
	})
	require.NoError(t, err)
	require.Equal(t, 2, report.Workers)
	require.EqualValues(t, 50, report.Counter)
}

func TestRunLong(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping long running stress")
	}

	for _, workload := range Workloads() {
		report, err := Run(context.Background(), Config{
			Workload:   workload,
			Workers:    32,
			Iterations: 50000,
		})
		require.NoError(t, err, workload)
		require.Zero(t, report.Violations, workload)
	}
}

func TestRunUnknownWorkload(t *testing.T) {
	_, err := Run(context.Background(), Config{Workload: "ticket"})
	require.ErrorIs(t, err, ErrUnknownWorkload)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, Config{
		Workload:   WorkloadMessage,
		Workers:    4,
		Iterations: maxIterations,
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunTimeout(t *testing.T) {
	_, err := Run(context.Background(), Config{
		Workload:   WorkloadCounter,
		Workers:    2,
		Iterations: maxIterations,
		Timeout:    time.Millisecond,
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReportErr(t *testing.T) {
	require.NoError(t, Report{Expected: 4, Counter: 4, Acquired: 4, Released: 4}.Err())
	require.ErrorIs(t, Report{Expected: 4, Counter: 3}.Err(), ErrInvariant)
	require.ErrorIs(t, Report{Expected: 4, Counter: 4, Violations: 1}.Err(), ErrInvariant)
	require.ErrorIs(t, Report{Acquired: 2, Released: 1}.Err(), ErrInvariant)
}

func TestConfigNormalize(t *testing.T) {
	cfg := Config{}.Normalize()
	require.Equal(t, WorkloadCounter, cfg.Workload)
	require.Positive(t, cfg.Workers)
	require.Equal(t, defaultIterations, cfg.Iterations)
	require.Equal(t, defaultTimeout, cfg.Timeout)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, Config{}.Normalize().Validate())
	require.NoError(t, Config{Workers: maxWorkers, Iterations: maxIterations, Timeout: maxTimeout}.Validate())

	for name, cfg := range map[string]Config{
		"workers":    {Workers: 300000, Iterations: 1},
		"iterations": {Workers: 1, Iterations: maxIterations + 1},
		"timeout":    {Workers: 1, Iterations: 1, Timeout: maxTimeout + time.Second},
	} {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, cfg.Normalize().Validate(), ErrInvalidConfig)
		})
	}
}

func TestRunRejectsOversizedConfig(t *testing.T) {
	report, err := Run(context.Background(), Config{
		Workload:   WorkloadCounter,
		Workers:    300000,
		Iterations: 1,
	})
	require.ErrorIs(t, err, ErrInvalidConfig)
	require.Zero(t, report.Acquired)
}

func TestConfigUnmarshalJSON(t *testing.T) {
	t.Run("duration string", func(t *testing.T) {
		var cfg Config
		require.NoError(t, json.Unmarshal([]byte(`{"workload":"counter","workers":2,"timeout":"30s"}`), &cfg))
		require.Equal(t, Config{Workload: WorkloadCounter, Workers: 2, Timeout: 30 * time.Second}, cfg)
	})

	t.Run("nanoseconds", func(t *testing.T) {
		var cfg Config
		require.NoError(t, json.Unmarshal([]byte(`{"timeout":1500000000}`), &cfg))
		require.Equal(t, 1500*time.Millisecond, cfg.Timeout)
	})

	t.Run("missing and null timeout", func(t *testing.T) {
		var cfg Config
		require.NoError(t, json.Unmarshal([]byte(`{"iterations":10}`), &cfg))
		require.Zero(t, cfg.Timeout)
		require.Equal(t, 10, cfg.Iterations)

		require.NoError(t, json.Unmarshal([]byte(`{"timeout":null}`), &cfg))
		require.Zero(t, cfg.Timeout)
	})

	t.Run("marshalled config round trips", func(t *testing.T) {
		in := Config{Workload: WorkloadTryLock, Workers: 3, Iterations: 7, Timeout: time.Second}
		b, err := json.Marshal(in)
		require.NoError(t, err)

		var out Config
		require.NoError(t, json.Unmarshal(b, &out))
		require.Equal(t, in, out)
	})

	t.Run("bad duration", func(t *testing.T) {
		var cfg Config
		require.ErrorIs(t, json.Unmarshal([]byte(`{"timeout":"soon"}`), &cfg), ErrInvalidConfig)
	})
}
