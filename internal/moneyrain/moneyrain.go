// Package moneyrain is the catch-the-falling-money minigame: coins drop
// from the top of the field and the player slides a basket to catch them
// before the clock runs out.
package moneyrain

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/playperu/meimei/internal/meimei"
)

type Config struct {
	Width, Height float64
	CoinSize      float64
	BasketWidth   float64
	BasketHeight  float64
	// FallSpeed is in pixels per frame.
	FallSpeed float64
	// SpawnEvery drops one coin every N frames.
	SpawnEvery    int
	TimeLimit     time.Duration
	FrameInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Width:         800,
		Height:        600,
		CoinSize:      40,
		BasketWidth:   120,
		BasketHeight:  60,
		FallSpeed:     4,
		SpawnEvery:    30,
		TimeLimit:     20 * time.Second,
		FrameInterval: time.Second / 60,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Width <= 0 || c.Height <= 0 {
		c.Width, c.Height = d.Width, d.Height
	}
	if c.CoinSize <= 0 {
		c.CoinSize = d.CoinSize
	}
	if c.BasketWidth <= 0 {
		c.BasketWidth = d.BasketWidth
	}
	if c.BasketHeight <= 0 {
		c.BasketHeight = d.BasketHeight
	}
	if c.FallSpeed <= 0 {
		c.FallSpeed = d.FallSpeed
	}
	if c.SpawnEvery <= 0 {
		c.SpawnEvery = d.SpawnEvery
	}
	if c.TimeLimit <= 0 {
		c.TimeLimit = d.TimeLimit
	}
	if c.FrameInterval <= 0 {
		c.FrameInterval = d.FrameInterval
	}
	return c
}

// Coin is positioned by its top-left corner.
type Coin struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Snapshot struct {
	Coins     []Coin        `json:"coins"`
	BasketX   float64       `json:"basketX"`
	Score     int           `json:"score"`
	Remaining time.Duration `json:"remaining"`
	Over      bool          `json:"over"`
}

type Game struct {
	mu        sync.Mutex
	cfg       Config
	rng       *rand.Rand
	coins     []Coin
	basketX   float64
	score     int
	frame     int
	remaining time.Duration
	running   bool
	stopped   bool
	over      bool
	cancel    context.CancelFunc

	onFinished func(score int)
}

// New returns a game with the basket centered. onFinished may be nil.
func New(cfg Config, rng *rand.Rand, onFinished func(score int)) *Game {
	cfg = cfg.withDefaults()
	return &Game{
		cfg:        cfg,
		rng:        rng,
		basketX:    (cfg.Width - cfg.BasketWidth) / 2,
		remaining:  cfg.TimeLimit,
		onFinished: onFinished,
	}
}

// Tick advances one animation frame and returns the number of coins caught.
func (g *Game) Tick() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tick()
}

func (g *Game) tick() int {
	if g.over {
		return 0
	}
	if g.frame%g.cfg.SpawnEvery == 0 {
		g.coins = append(g.coins, Coin{X: g.rng.Float64() * (g.cfg.Width - g.cfg.CoinSize)})
	}
	g.frame++

	basketY := g.cfg.Height - g.cfg.BasketHeight
	caught := 0
	for i := range g.coins {
		g.coins[i].Y += g.cfg.FallSpeed
	}
	g.coins = slices.DeleteFunc(g.coins, func(c Coin) bool {
		if overlaps(c.X, c.Y, g.cfg.CoinSize, g.cfg.CoinSize, g.basketX, basketY, g.cfg.BasketWidth, g.cfg.BasketHeight) {
			caught++
			return true
		}
		return c.Y > g.cfg.Height
	})
	g.score += caught
	return caught
}

// MoveBasket centers the basket on x, clamped to the field.
func (g *Game) MoveBasket(x float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	left := x - g.cfg.BasketWidth/2
	g.basketX = min(max(left, 0), g.cfg.Width-g.cfg.BasketWidth)
}

// Run drives frames and the countdown until the time limit elapses, ctx is
// done or Stop is called. The finished callback fires only when time runs
// out.
func (g *Game) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g.mu.Lock()
	if g.running || g.over || g.stopped {
		g.mu.Unlock()
		return fmt.Errorf("money game already played: %w", meimei.ErrRejected)
	}
	g.running = true
	g.cancel = cancel
	g.mu.Unlock()

	frames := time.NewTicker(g.cfg.FrameInterval)
	defer frames.Stop()
	start := time.Now()

	for {
		select {
		case <-ctx.Done():
			g.mu.Lock()
			g.running = false
			g.mu.Unlock()
			return ctx.Err()
		case <-frames.C:
		}

		g.mu.Lock()
		g.tick()
		g.remaining = max(g.cfg.TimeLimit-time.Since(start), 0)
		if g.remaining > 0 {
			g.mu.Unlock()
			continue
		}
		g.over = true
		g.running = false
		score := g.score
		notify := g.onFinished
		g.mu.Unlock()

		if notify != nil {
			notify(score)
		}
		return nil
	}
}

// Stop ends a running game without reporting a score. A stopped game
// cannot be run again. Safe to call more than once.
func (g *Game) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopped = true
	if g.cancel != nil {
		g.cancel()
	}
}

func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Snapshot{
		Coins:     slices.Clone(g.coins),
		BasketX:   g.basketX,
		Score:     g.score,
		Remaining: g.remaining,
		Over:      g.over,
	}
}

func overlaps(ax, ay, aw, ah, bx, by, bw, bh float64) bool {
	return ax < bx+bw && ax+aw > bx && ay < by+bh && ay+ah > by
}
