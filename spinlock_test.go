package spinlock

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestSpinLockInitialState(t *testing.T) {
	var l SpinLock
	require.False(t, l.IsLocked())
	require.True(t, l.TryLock())
	require.True(t, l.IsLocked())
	l.Unlock()

	l2 := New()
	require.False(t, l2.IsLocked())
	require.True(t, l2.TryLock())
	l2.Unlock()
}

func TestSpinLockSize(t *testing.T) {
	// the flag is the only state; atomic.Bool already carries the vet copy check
	require.Equal(t, unsafe.Sizeof(atomic.Bool{}), unsafe.Sizeof(SpinLock{}))
}

func TestSpinLockScenario(t *testing.T) {
	var (
		l       = New()
		locked  = make(chan struct{})
		tried   = make(chan bool)
		release = make(chan struct{})
		done    = make(chan struct{})
	)

	go func() {
		l.Lock()
		close(locked)
		<-release
		l.Unlock()
		close(done)
	}()

	<-locked
	go func() {
		tried <- l.TryLock()
	}()
	require.False(t, <-tried)

	close(release)
	<-done

	go func() {
		ok := l.TryLock()
		if ok {
			l.Unlock()
		}
		tried <- ok
	}()
	require.True(t, <-tried)
	require.False(t, l.IsLocked())
}

func TestSpinLockTryLockContention(t *testing.T) {
	var (
		l        SpinLock
		wg       sync.WaitGroup
		acquired atomic.Int32
	)
	l.Lock()

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				if l.TryLock() {
					acquired.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	require.Zero(t, acquired.Load())
	require.True(t, l.IsLocked())
	l.Unlock()
}

func TestSpinLockMutualExclusion(t *testing.T) {
	const (
		workers    = 8
		iterations = 20000
	)

	t.Run("lock", func(t *testing.T) {
		var (
			l       SpinLock
			counter int
		)

		runWorkers(workers, func() {
			for i := 0; i < iterations; i++ {
				l.Lock()
				counter++
				l.Unlock()
			}
		})

		require.Equal(t, workers*iterations, counter)
	})

	t.Run("trylock", func(t *testing.T) {
		var (
			l        SpinLock
			counter  int
			acquired atomic.Int64
		)

		runWorkers(workers, func() {
			for i := 0; i < iterations; {
				if !l.TryLock() {
					runtime.Gosched()
					continue
				}
				counter++
				l.Unlock()
				acquired.Add(1)
				i++
			}
		})

		require.Equal(t, int64(workers*iterations), acquired.Load())
		require.Equal(t, workers*iterations, counter)
	})

	t.Run("mixed", func(t *testing.T) {
		var (
			l        SpinLock
			counter  int
			acquired atomic.Int64
		)

		runWorkers(workers, func() {
			for i := 0; i < iterations; i++ {
				if i%2 == 0 || !l.TryLock() {
					l.Lock()
				}
				counter++
				l.Unlock()
				acquired.Add(1)
			}
		})

		require.Equal(t, acquired.Load(), int64(counter))
	})
}

func TestSpinLockReleaseVisibility(t *testing.T) {
	const rounds = 10000

	var (
		l       SpinLock
		payload [4]int
		ready   bool
		seq     int
	)

	go func() {
		for i := 1; i <= rounds; i++ {
			for {
				l.Lock()
				if !ready {
					break
				}
				l.Unlock()
			}
			for j := range payload {
				payload[j] = i
			}
			seq = i
			ready = true
			l.Unlock()
		}
	}()

	for expect := 1; expect <= rounds; {
		l.Lock()
		if ready {
			require.Equal(t, expect, seq)
			for j := range payload {
				require.Equal(t, seq, payload[j])
			}
			ready = false
			expect++
		}
		l.Unlock()
	}
}

func TestSpinLockReuse(t *testing.T) {
	var l SpinLock
	for i := 0; i < 100; i++ {
		l.Lock()
		done := make(chan bool)
		go func() {
			done <- l.TryLock()
		}()
		require.False(t, <-done)
		l.Unlock()

		go func() {
			l.Lock()
			done <- true
		}()
		require.True(t, <-done)
		require.True(t, l.IsLocked())
		l.Unlock()
	}
}

func TestSpinLockNoDoubleAcquire(t *testing.T) {
	const (
		workers    = 16
		iterations = 5000
	)

	var (
		l          SpinLock
		holders    atomic.Int32
		violations atomic.Int32
		acquires   atomic.Int64
		releases   atomic.Int64
	)

	runWorkers(workers, func() {
		for i := 0; i < iterations; i++ {
			l.Lock()
			acquires.Add(1)
			if holders.Add(1) != 1 {
				violations.Add(1)
			}
			holders.Add(-1)
			releases.Add(1)
			l.Unlock()
		}
	})

	require.Zero(t, violations.Load())
	require.Equal(t, acquires.Load(), releases.Load())
	require.Equal(t, int64(workers*iterations), acquires.Load())
}

func runWorkers(n int, fn func()) {
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			fn()
		}()
	}
	wg.Wait()
}

func benchRoutine(b *testing.B, size int, fn func()) {
	wg := sync.WaitGroup{}
	wg.Add(size)
	for i := 0; i < size; i++ {
		go func() {
			for i := 0; i < b.N; i++ {
				fn()
			}
			wg.Done()
		}()
	}
	wg.Wait()
}

func benchmarkCounter(b *testing.B, routineSize int) {
	b.Run("run with spinlock", func(b *testing.B) {
		var t = struct {
			counter int
			lock    SpinLock
		}{}

		benchRoutine(b, routineSize, func() {
			t.lock.Lock()
			t.counter++
			t.lock.Unlock()
		})

		if routineSize*b.N != t.counter {
			b.Fatalf("Expected %d but got %d", routineSize*b.N, t.counter)
		}
	})

	b.Run("run with mutex", func(b *testing.B) {
		var t = struct {
			counter int
			mtx     sync.Mutex
		}{}

		benchRoutine(b, routineSize, func() {
			t.mtx.Lock()
			t.counter++
			t.mtx.Unlock()
		})

		if routineSize*b.N != t.counter {
			b.Fatalf("Expected %d but got %d", routineSize*b.N, t.counter)
		}
	})
}

func BenchmarkSpinLock1000(b *testing.B) {
	benchmarkCounter(b, 1000)
}

func BenchmarkSpinLock10(b *testing.B) {
	benchmarkCounter(b, 10)
}

func BenchmarkSpinLockParallel(b *testing.B) {
	var l SpinLock
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			l.Lock()
			l.Unlock()
		}
	})
}

func BenchmarkSpinLockTryLockHeld(b *testing.B) {
	var l SpinLock
	l.Lock()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if l.TryLock() {
				b.Error("acquired a held lock")
			}
		}
	})
	l.Unlock()
}
