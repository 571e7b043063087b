package stress

import (
	"context"
	"runtime"

	"github.com/yudhasubki/spinlock"
)

// workload drives the workers of a run and returns the counter value a
// correct lock must end with.
type workload func(ctx context.Context, r *run, cfg Config) int64

var workloads = map[string]workload{
	WorkloadCounter: counterWorkload,
	WorkloadTryLock: tryLockWorkload,
	WorkloadMessage: messageWorkload,
	WorkloadContext: contextWorkload,
}

func counterWorkload(ctx context.Context, r *run, cfg Config) int64 {
	spawn(cfg.Workers, func(int) {
		for i := 0; i < cfg.Iterations; i++ {
			if i%checkEvery == 0 && ctx.Err() != nil {
				return
			}

			r.lock.Lock()
			r.enter()
			r.counter++
			r.leave()
			r.lock.Unlock()
		}
	})

	return int64(cfg.Workers) * int64(cfg.Iterations)
}

func tryLockWorkload(ctx context.Context, r *run, cfg Config) int64 {
	spawn(cfg.Workers, func(int) {
		var failures int
		for i := 0; i < cfg.Iterations; {
			if !r.lock.TryLock() {
				r.tryFailures.Add(1)
				failures++
				if failures%checkEvery == 0 && ctx.Err() != nil {
					return
				}
				runtime.Gosched()
				continue
			}

			r.enter()
			r.counter++
			r.leave()
			r.lock.Unlock()
			i++
		}
	})

	return int64(cfg.Workers) * int64(cfg.Iterations)
}

func contextWorkload(ctx context.Context, r *run, cfg Config) int64 {
	spawn(cfg.Workers, func(int) {
		for i := 0; i < cfg.Iterations; i++ {
			if err := spinlock.LockContext(ctx, &r.lock, nil); err != nil {
				return
			}

			r.enter()
			r.counter++
			r.leave()
			r.lock.Unlock()
		}
	})

	return int64(cfg.Workers) * int64(cfg.Iterations)
}

// mailbox holds one message at a time. Every field is guarded by the run's
// lock and written with plain stores, so a reader that sees ready without
// the matching payload has caught a missing happens-before edge.
type mailbox struct {
	payload [8]int64
	seq     int64
	ready   bool
	last    int64
}

// messageWorkload has worker 0 publish Iterations numbered messages that the
// other workers take turns consuming. Counter ends as the number consumed.
func messageWorkload(ctx context.Context, r *run, cfg Config) int64 {
	var (
		box   mailbox
		total = int64(cfg.Iterations)
	)

	spawn(cfg.Workers, func(worker int) {
		if worker == 0 {
			produce(ctx, r, &box, total)
			return
		}
		consume(ctx, r, &box, total)
	})

	return total
}

func produce(ctx context.Context, r *run, box *mailbox, total int64) {
	for polls, seq := 0, int64(1); seq <= total; polls++ {
		if polls%checkEvery == 0 && ctx.Err() != nil {
			return
		}

		r.lock.Lock()
		r.enter()
		if !box.ready {
			for i := range box.payload {
				box.payload[i] = seq
			}
			box.seq = seq
			box.ready = true
			seq++
		}
		r.leave()
		r.lock.Unlock()
	}
}

func consume(ctx context.Context, r *run, box *mailbox, total int64) {
	for polls := 0; ; polls++ {
		if polls%checkEvery == 0 && ctx.Err() != nil {
			return
		}

		r.lock.Lock()
		r.enter()
		if box.ready {
			if box.seq != box.last+1 {
				r.violations.Add(1)
			}
			for _, v := range box.payload {
				if v != box.seq {
					r.violations.Add(1)
					break
				}
			}
			box.last = box.seq
			box.ready = false
			r.counter++
		}
		done := r.counter >= total
		r.leave()
		r.lock.Unlock()

		if done {
			return
		}
	}
}
