package domain_test

import (
	"strings"
	"testing"

	"github.com/khelzone/gameroom/internal/domain"
	"github.com/shopspring/decimal"
)

// TestPotConservation validates the settlement split for a full room.
// No I/O — pure arithmetic.
//
//	Scenario:
//	  entry amount = 100, players = 4, fee = 10 %
//	  totalPrizePool = 100 × 4        = 400
//	  platformFee    = floor(400×0.10) = 40
//	  winnerAmount   = 400 − 40        = 360
func TestPotConservation(t *testing.T) {
	pot := domain.ComputePot(decimal.NewFromInt(100), 4, 10)

	if !pot.TotalPrizePool.Equal(decimal.NewFromInt(400)) {
		t.Errorf("totalPrizePool = %s, want 400", pot.TotalPrizePool)
	}
	if !pot.PlatformFee.Equal(decimal.NewFromInt(40)) {
		t.Errorf("platformFee = %s, want 40", pot.PlatformFee)
	}
	if !pot.WinnerAmount.Equal(decimal.NewFromInt(360)) {
		t.Errorf("winnerAmount = %s, want 360", pot.WinnerAmount)
	}
}

// TestPotFeeFlooring verifies that a fee which does not divide evenly is
// floored and the remainder stays in the winner's share, so the split always
// sums back to the pool exactly.
//
//	pool = 25 × 3 = 75, fee 10 % → raw fee 7.5 → floored to 7, winner gets 68.
func TestPotFeeFlooring(t *testing.T) {
	pot := domain.ComputePot(decimal.NewFromInt(25), 3, 10)

	if !pot.PlatformFee.Equal(decimal.NewFromInt(7)) {
		t.Errorf("platformFee = %s, want 7 (floored from 7.5)", pot.PlatformFee)
	}
	if !pot.WinnerAmount.Equal(decimal.NewFromInt(68)) {
		t.Errorf("winnerAmount = %s, want 68", pot.WinnerAmount)
	}
	if !pot.WinnerAmount.Add(pot.PlatformFee).Equal(pot.TotalPrizePool) {
		t.Errorf("winner + fee = %s, want %s",
			pot.WinnerAmount.Add(pot.PlatformFee), pot.TotalPrizePool)
	}
}

// TestPotZeroFee covers a fee-free configuration: the winner takes the whole
// pool.
func TestPotZeroFee(t *testing.T) {
	pot := domain.ComputePot(decimal.NewFromInt(500), 2, 0)

	if !pot.PlatformFee.IsZero() {
		t.Errorf("platformFee = %s, want 0", pot.PlatformFee)
	}
	if !pot.WinnerAmount.Equal(pot.TotalPrizePool) {
		t.Errorf("winnerAmount = %s, want %s", pot.WinnerAmount, pot.TotalPrizePool)
	}
}

// TestPotConservationSweep checks the conservation invariant across a spread
// of amounts, player counts, and fee percentages.
func TestPotConservationSweep(t *testing.T) {
	amounts := []int64{10, 25, 99, 100, 777, 10000}
	fees := []int64{0, 1, 5, 10, 15, 99}

	for _, a := range amounts {
		for players := 2; players <= 4; players++ {
			for _, fee := range fees {
				pot := domain.ComputePot(decimal.NewFromInt(a), players, fee)
				if !pot.WinnerAmount.Add(pot.PlatformFee).Equal(pot.TotalPrizePool) {
					t.Errorf("amount=%d players=%d fee=%d%%: winner %s + fee %s != pool %s",
						a, players, fee, pot.WinnerAmount, pot.PlatformFee, pot.TotalPrizePool)
				}
				if pot.PlatformFee.IsNegative() || pot.WinnerAmount.IsNegative() {
					t.Errorf("amount=%d players=%d fee=%d%%: negative split %+v",
						a, players, fee, pot)
				}
			}
		}
	}
}

// TestRoomListViews collects ToResponse values the way the lobby and room
// history endpoints do, checking the view carries the room fields through.
func TestRoomListViews(t *testing.T) {
	rooms := []*domain.GameRoom{
		{Code: "RM-AAAAAA", GameType: "ludo", Amount: decimal.NewFromInt(100), MaxPlayers: 4, Status: domain.RoomWaiting},
		{Code: "RM-BBBBBB", GameType: "carrom", Amount: decimal.NewFromInt(50), MaxPlayers: 2, Status: domain.RoomPlaying},
	}

	views := make([]domain.RoomResponse, 0, len(rooms))
	for _, r := range rooms {
		views = append(views, r.ToResponse())
	}

	if len(views) != len(rooms) {
		t.Fatalf("got %d views, want %d", len(views), len(rooms))
	}
	for i, v := range views {
		if v.Code != rooms[i].Code || v.Status != rooms[i].Status {
			t.Errorf("view %d = %+v, does not match room %+v", i, v, rooms[i])
		}
		if !v.Amount.Equal(rooms[i].Amount) {
			t.Errorf("view %d amount = %s, want %s", i, v.Amount, rooms[i].Amount)
		}
	}
}

// TestNewRoomCodeFormat checks the code shape and its restricted alphabet
// (no 0/O or 1/I).
func TestNewRoomCodeFormat(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code := domain.NewRoomCode()
		if len(code) != 9 || !strings.HasPrefix(code, "RM-") {
			t.Fatalf("code %q: want format RM-XXXXXX", code)
		}
		for _, ch := range code[3:] {
			if strings.ContainsRune("0O1I", ch) {
				t.Errorf("code %q contains ambiguous character %q", code, ch)
			}
		}
		seen[code] = true
	}
	// 200 draws from a 32^6 space should essentially never collide.
	if len(seen) < 199 {
		t.Errorf("only %d distinct codes out of 200 draws", len(seen))
	}
}
