package service_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
)

// TestConcurrentBalanceDebit simulates 50 goroutines simultaneously debiting
// a fixed entry amount from a shared wallet — protected by a mutex.
// This test verifies our concurrency guard pattern compiles and passes -race.
//
// In the real WalletService, the DB row-level FOR UPDATE lock provides this
// guarantee.  Here we replicate the same guard with sync primitives so the
// race detector can confirm the pattern is sound.
func TestConcurrentBalanceDebit(t *testing.T) {
	const workers = 50
	const entryEach = 10 // INR per room join

	balance := decimal.NewFromInt(int64(workers * entryEach)) // exact total
	var mu sync.Mutex
	var rejected int64 // joins rejected for insufficient balance (zero is expected here)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			entry := decimal.NewFromInt(entryEach)

			mu.Lock()
			defer mu.Unlock()

			if balance.LessThan(entry) {
				atomic.AddInt64(&rejected, 1)
				return
			}
			balance = balance.Sub(entry)
		}()
	}
	wg.Wait()

	// All joins should succeed: no rejections expected.
	if rejected > 0 {
		t.Errorf("expected 0 rejected joins, got %d", rejected)
	}
	// Balance should be exactly 0 after exactly 50 × 10 debits.
	if !balance.IsZero() {
		t.Errorf("final balance should be 0, got %s", balance)
	}
}

// TestConcurrentLastSeatRace verifies the seat guard under concurrent access:
// when one seat remains, only one of N joiners gets it.
func TestConcurrentLastSeatRace(t *testing.T) {
	const workers = 20
	type roomState struct {
		mu     sync.Mutex
		seated int
		max    int
	}

	var (
		room     = roomState{seated: 3, max: 4}
		seated   int64
		rejected int64
		wg       sync.WaitGroup
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			room.mu.Lock()
			defer room.mu.Unlock()

			if room.seated >= room.max {
				// Room filled by an earlier joiner: should be rejected
				atomic.AddInt64(&rejected, 1)
				return
			}
			room.seated++
			atomic.AddInt64(&seated, 1)
		}()
	}
	wg.Wait()

	if seated != 1 {
		t.Errorf("exactly 1 goroutine should have taken the last seat, got %d", seated)
	}
	if rejected != workers-1 {
		t.Errorf("expected %d rejections, got %d", workers-1, rejected)
	}
}

// TestConcurrentWinnerDeclaration verifies that declaring a winner is a
// one-shot transition: once the room leaves the active state, later declares
// are rejected and the pot is paid exactly once.
func TestConcurrentWinnerDeclaration(t *testing.T) {
	const workers = 20
	type roomState struct {
		mu        sync.Mutex
		completed bool
	}

	var (
		room    roomState
		payouts int64
		wg      sync.WaitGroup
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			room.mu.Lock()
			defer room.mu.Unlock()

			if room.completed {
				return
			}
			room.completed = true
			atomic.AddInt64(&payouts, 1)
		}()
	}
	wg.Wait()

	if payouts != 1 {
		t.Errorf("winner payout should happen exactly once, got %d", payouts)
	}
}
