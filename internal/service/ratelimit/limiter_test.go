package ratelimit_test

import (
	"sync"
	"testing"
	"time"

	"github.com/ytakeda/execpersona/backend/internal/service/ratelimit"
)

// fakeClock lets tests advance time explicitly.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newLimiter(limit int, window time.Duration) (*ratelimit.Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	l := ratelimit.New(ratelimit.Options{
		Limit:  limit,
		Window: window,
		Now:    clock.Now,
	})
	return l, clock
}

func TestAdmitWithinLimit(t *testing.T) {
	l, _ := newLimiter(3, time.Minute)
	defer l.Close()

	for i := 0; i < 3; i++ {
		if !l.Admit("alice") {
			t.Fatalf("call %d should be admitted", i+1)
		}
	}
	if l.Admit("alice") {
		t.Fatal("4th call within the window should be rejected")
	}
}

func TestWindowExpiry(t *testing.T) {
	l, clock := newLimiter(3, time.Minute)
	defer l.Close()

	for i := 0; i < 3; i++ {
		if !l.Admit("alice") {
			t.Fatalf("call %d should be admitted", i+1)
		}
	}
	if l.Admit("alice") {
		t.Fatal("over-limit call should be rejected")
	}

	clock.Advance(61 * time.Second)

	if !l.Admit("alice") {
		t.Fatal("call after the window expired should be admitted")
	}
}

func TestRejectionNotRecorded(t *testing.T) {
	l, clock := newLimiter(2, time.Minute)
	defer l.Close()

	l.Admit("alice")
	l.Admit("alice")
	// Rejected calls must not extend the window.
	for i := 0; i < 5; i++ {
		if l.Admit("alice") {
			t.Fatal("expected rejection")
		}
	}

	clock.Advance(61 * time.Second)
	if !l.Admit("alice") {
		t.Fatal("rejections must not count against the window")
	}
}

func TestIdentitiesIndependent(t *testing.T) {
	l, _ := newLimiter(1, time.Minute)
	defer l.Close()

	if !l.Admit("alice") {
		t.Fatal("alice should be admitted")
	}
	if l.Admit("alice") {
		t.Fatal("alice should now be limited")
	}
	if !l.Admit("bob") {
		t.Fatal("bob's window is separate from alice's")
	}
}

func TestConcurrentAdmitCount(t *testing.T) {
	l, _ := newLimiter(50, time.Minute)
	defer l.Close()

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Admit("alice") {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != 50 {
		t.Fatalf("expected exactly 50 admissions, got %d", admitted)
	}
}
