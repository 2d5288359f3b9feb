// Package simulation runs the Monte-Carlo forecasts: single team "how many"
// and "when" questions, and the joint WIP constrained forecast of a portfolio
// of features.
package simulation

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"lighthouse/internal/random"
	"lighthouse/internal/throughput"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultTrials = 10_000
	// DefaultDayCap bounds a single trial. It is far beyond any realistic
	// delivery horizon and only trips on near zero throughput.
	DefaultDayCap = 20_000
)

// Options configures an Engine.
type Options struct {
	Trials     int
	DayCap     int
	Workers    int
	Allocation Allocation
	Random     random.Factory
}

// DefaultOptions returns 10,000 trials on all CPUs with a clock seeded source.
func DefaultOptions() Options {
	return Options{
		Trials:     DefaultTrials,
		DayCap:     DefaultDayCap,
		Workers:    runtime.GOMAXPROCS(0),
		Allocation: AllocateSequential,
	}
}

// Engine performs the Monte-Carlo simulations.
type Engine struct {
	opts Options
}

// NewEngine validates opts and fills in defaults for unset optional fields.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Trials <= 0 {
		return nil, fmt.Errorf("%w: trials must be positive, got %d", ErrInvalidInput, opts.Trials)
	}
	if opts.DayCap <= 0 {
		return nil, fmt.Errorf("%w: day cap must be positive, got %d", ErrInvalidInput, opts.DayCap)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Allocation == "" {
		opts.Allocation = AllocateSequential
	}
	if _, err := ParseAllocation(string(opts.Allocation)); err != nil {
		return nil, err
	}
	if opts.Random == nil {
		opts.Random = random.NewFactory(0)
	}
	return &Engine{opts: opts}, nil
}

// Trials returns the configured trial count.
func (e *Engine) Trials() int { return e.opts.Trials }

// DayCap returns the configured day-loop safety cap.
func (e *Engine) DayCap() int { return e.opts.DayCap }

// HowMany forecasts how many items complete within days.
func (e *Engine) HowMany(ctx context.Context, history throughput.History, days int) (*Distribution, error) {
	if days < 0 {
		return nil, fmt.Errorf("%w: days must not be negative, got %d", ErrInvalidInput, days)
	}

	log.Debug().Int("days", days).Int("history", history.Len()).Int("trials", e.opts.Trials).Msg("Running Monte Carlo forecast how many")

	if days == 0 {
		return constantDistribution(KindHowMany, e.opts.Trials, 0), nil
	}
	if history.IsEmpty() {
		return insufficientDistribution(KindHowMany), nil
	}

	outcomes := make([]int, e.opts.Trials)
	err := e.runTrials(ctx, func(trial int, src random.Source) {
		total := 0
		for day := 0; day < days; day++ {
			total += history.SampleOneDay(src)
		}
		outcomes[trial] = total
	})
	if err != nil {
		return nil, err
	}

	return newDistribution(KindHowMany, outcomes, 0), nil
}

// When forecasts how many days it takes to complete remaining items.
func (e *Engine) When(ctx context.Context, history throughput.History, remaining int) (*Distribution, error) {
	if remaining < 0 {
		return nil, fmt.Errorf("%w: remaining items must not be negative, got %d", ErrInvalidInput, remaining)
	}

	log.Debug().Int("remaining", remaining).Int("history", history.Len()).Int("trials", e.opts.Trials).Msg("Running Monte Carlo forecast when")

	if remaining == 0 {
		return constantDistribution(KindWhen, e.opts.Trials, 0), nil
	}
	if !history.HasThroughput() {
		return insufficientDistribution(KindWhen), nil
	}

	var censored atomic.Int64
	outcomes := make([]int, e.opts.Trials)
	err := e.runTrials(ctx, func(trial int, src random.Source) {
		days, done := 0, 0
		for done < remaining {
			if days >= e.opts.DayCap {
				censored.Add(1)
				break
			}
			days++
			done += history.SampleOneDay(src)
		}
		outcomes[trial] = days
	})
	if err != nil {
		return nil, err
	}

	if c := censored.Load(); c > 0 {
		log.Warn().Int64("censored", c).Int("day_cap", e.opts.DayCap).Msg("Trials hit the day cap; forecast is a lower bound")
	}

	return newDistribution(KindWhen, outcomes, int(censored.Load())), nil
}

// runTrials runs fn once per trial on the worker pool. Each trial receives its
// own random source, so results do not depend on scheduling. Cancellation is
// checked between trials only.
func (e *Engine) runTrials(ctx context.Context, fn func(trial int, src random.Source)) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)

	block := max(1, e.opts.Trials/(e.opts.Workers*4))
	for start := 0; start < e.opts.Trials; start += block {
		end := min(start+block, e.opts.Trials)
		g.Go(func() error {
			for trial := start; trial < end; trial++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				fn(trial, e.opts.Random(trial))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("simulation interrupted: %w", err)
	}
	return nil
}
