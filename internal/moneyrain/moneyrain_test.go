package moneyrain

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/playperu/meimei/internal/meimei"
)

func smallField() Config {
	return Config{
		Width:        100,
		Height:       100,
		CoinSize:     10,
		BasketWidth:  20,
		BasketHeight: 10,
		FallSpeed:    10,
		SpawnEvery:   3,
	}
}

func TestTickSpawnsEveryNFrames(t *testing.T) {
	g := New(smallField(), rand.New(rand.NewPCG(1, 2)), nil)

	counts := []int{}
	for range 4 {
		g.Tick()
		counts = append(counts, len(g.Snapshot().Coins)+g.Snapshot().Score)
	}
	want := []int{1, 1, 1, 2}
	for i := range want {
		if counts[i] != want[i] {
			t.Fatalf("coins seen after %d ticks = %d, want %d", i+1, counts[i], want[i])
		}
	}
	if y := g.Snapshot().Coins[0].Y; y != 40 {
		t.Fatalf("first coin y = %v after 4 ticks, want 40", y)
	}
}

func TestCoinCaughtByBasket(t *testing.T) {
	cfg := smallField()
	cfg.SpawnEvery = 1000
	g := New(cfg, rand.New(rand.NewPCG(1, 2)), nil)
	g.frame = 1 // skip the spawn
	g.coins = []Coin{{X: 45, Y: 0}}
	g.MoveBasket(50)

	caught := 0
	for range 9 {
		caught += g.Tick()
	}
	if caught != 1 || g.Snapshot().Score != 1 {
		t.Fatalf("caught=%d score=%d, want 1", caught, g.Snapshot().Score)
	}
	if n := len(g.Snapshot().Coins); n != 0 {
		t.Fatalf("%d coins left on field", n)
	}
}

func TestMissedCoinDiscarded(t *testing.T) {
	cfg := smallField()
	cfg.SpawnEvery = 1000
	g := New(cfg, rand.New(rand.NewPCG(1, 2)), nil)
	g.frame = 1
	g.coins = []Coin{{X: 0, Y: 0}}
	g.MoveBasket(100)

	for range 11 {
		g.Tick()
	}
	s := g.Snapshot()
	if s.Score != 0 || len(s.Coins) != 0 {
		t.Fatalf("score=%d coins=%v, want coin discarded", s.Score, s.Coins)
	}
}

func TestMoveBasketClamps(t *testing.T) {
	g := New(DefaultConfig(), rand.New(rand.NewPCG(1, 2)), nil)
	tests := []struct {
		x    float64
		want float64
	}{
		{-50, 0},
		{400, 340},
		{1e6, 680},
	}
	for _, tt := range tests {
		g.MoveBasket(tt.x)
		if got := g.Snapshot().BasketX; got != tt.want {
			t.Errorf("MoveBasket(%v) left edge = %v, want %v", tt.x, got, tt.want)
		}
	}
}

func TestRunFinishesOnce(t *testing.T) {
	cfg := smallField()
	cfg.TimeLimit = 30 * time.Millisecond
	cfg.FrameInterval = time.Millisecond

	calls := 0
	g := New(cfg, rand.New(rand.NewPCG(1, 2)), func(int) { calls++ })
	if err := g.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !g.Snapshot().Over || g.Snapshot().Remaining != 0 {
		t.Fatalf("snapshot after run = %+v", g.Snapshot())
	}
	if err := g.Run(context.Background()); !errors.Is(err, meimei.ErrRejected) {
		t.Fatalf("second Run: %v", err)
	}
	if calls != 1 {
		t.Fatalf("finished called %d times", calls)
	}
	if g.Tick() != 0 {
		t.Fatal("tick after game over caught coins")
	}
}

func TestStopCancelsRun(t *testing.T) {
	cfg := smallField()
	cfg.TimeLimit = time.Hour
	cfg.FrameInterval = time.Millisecond

	finished := make(chan int, 1)
	g := New(cfg, rand.New(rand.NewPCG(1, 2)), func(s int) { finished <- s })

	errc := make(chan error, 1)
	go func() { errc <- g.Run(context.Background()) }()

	time.Sleep(10 * time.Millisecond)
	g.Stop()
	g.Stop()

	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run after Stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
	select {
	case <-finished:
		t.Fatal("finished callback fired after Stop")
	default:
	}
}
