package main

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/yudhasubki/spinlock"
)

// stats is protected by the embedded lock. Every field access goes through
// mu.
type stats struct {
	mu     spinlock.SpinLock
	hits   int
	misses int
}

func (s *stats) hit() {
	s.mu.Lock()
	s.hits++
	s.mu.Unlock()
}

func (s *stats) miss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.misses++
}

func (s *stats) snapshot() (hits, misses int) {
	_ = spinlock.Do(&s.mu, func() error {
		hits, misses = s.hits, s.misses
		return nil
	})
	return hits, misses
}

func main() {
	var (
		s  stats
		wg sync.WaitGroup
	)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 10000; j++ {
				if (worker+j)%3 == 0 {
					s.miss()
					continue
				}
				s.hit()
			}
		}(i)
	}
	wg.Wait()

	hits, misses := s.snapshot()
	log.Printf("hits %d misses %d total %d", hits, misses, hits+misses)

	// poll instead of spinning when the holder may take a while
	s.mu.Lock()
	go func() {
		time.Sleep(50 * time.Millisecond)
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := spinlock.LockContext(ctx, &s.mu, nil)
	if err != nil {
		log.Fatalf("error lock : %v", err)
	}
	log.Println("acquired after the holder released")
	s.mu.Unlock()

	if !s.mu.TryLock() {
		log.Fatal("lock should be free")
	}
	s.mu.Unlock()
}
