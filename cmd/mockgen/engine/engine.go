package engine

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"lighthouse/internal/forecast"
)

type GeneratorConfig struct {
	Scenario     string // "mild", "chaos" or "drift"
	Distribution string // "uniform" or "weibull"
	Teams        int
	Features     int
	Days         int
	Seed         uint64
	Now          time.Time
}

// Generate builds a synthetic portfolio: teams with daily throughput
// histories shaped by the scenario and a backlog of features spread over them.
func Generate(cfg GeneratorConfig) (*forecast.Scenario, error) {
	if cfg.Teams <= 0 || cfg.Features < 0 || cfg.Days <= 0 {
		return nil, fmt.Errorf("teams and days must be positive, features must not be negative")
	}
	switch cfg.Scenario {
	case "mild", "chaos", "drift":
	default:
		return nil, fmt.Errorf("unknown scenario: %s", cfg.Scenario)
	}
	switch cfg.Distribution {
	case "uniform", "weibull":
	default:
		return nil, fmt.Errorf("unknown distribution: %s", cfg.Distribution)
	}
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, 0))
	sc := &forecast.Scenario{Name: fmt.Sprintf("%s-%s-%s", cfg.Scenario, cfg.Distribution, cfg.Now.Format(time.DateOnly))}

	for t := 0; t < cfg.Teams; t++ {
		team := forecast.Team{
			ID:         fmt.Sprintf("team-%d", t+1),
			Name:       fmt.Sprintf("Team %d", t+1),
			FeatureWIP: 1 + t%2,
			Throughput: make([]int, cfg.Days),
		}
		for day := range team.Throughput {
			team.Throughput[day] = sampleDay(rng, cfg, float64(day)/float64(cfg.Days))
		}
		sc.Teams = append(sc.Teams, team)
	}

	for f := 0; f < cfg.Features; f++ {
		feature := &forecast.Feature{
			ID:         fmt.Sprintf("FEAT-%d", f+1),
			Name:       fmt.Sprintf("Feature %d", f+1),
			Order:      f + 1,
			ProjectIDs: []string{fmt.Sprintf("project-%d", f%3+1)},
			Remaining:  make(map[string]int),
		}
		// Every feature lands on one team, a third of them on a second one too
		primary := rng.IntN(cfg.Teams)
		feature.Remaining[sc.Teams[primary].ID] = 5 + rng.IntN(26)
		if cfg.Teams > 1 && rng.IntN(3) == 0 {
			secondary := (primary + 1 + rng.IntN(cfg.Teams-1)) % cfg.Teams
			feature.Remaining[sc.Teams[secondary].ID] = 3 + rng.IntN(13)
		}
		sc.Features = append(sc.Features, feature)
	}

	return sc, nil
}

// sampleDay draws one day's throughput. progress runs from 0 at the oldest
// day of the history to 1 at today.
func sampleDay(rng *rand.Rand, cfg GeneratorConfig, progress float64) int {
	k, lambda := 2.5, 2.0 // Mild: around two items a day
	switch cfg.Scenario {
	case "chaos":
		k = 0.8
		if cfg.Distribution == "weibull" {
			lambda = 1.5
		}
	case "drift":
		k = 2.5 - (1.7 * progress) // Shift 2.5 -> 0.8
		lambda = 2.0 - (1.0 * progress)
	}

	var items float64
	if cfg.Distribution == "weibull" {
		items = weibullSample(rng, k, lambda)
	} else {
		items = rng.Float64() * 4.0
		if cfg.Scenario == "chaos" {
			if rng.Float64() < 0.3 {
				items = 0
			} else if rng.Float64() < 0.1 {
				items += 5 + rng.Float64()*5 // Release day batches
			}
		}
		if cfg.Scenario == "drift" && progress > 0.5 {
			items /= 2.0
		}
	}
	return int(math.Floor(items))
}

func weibullSample(rng *rand.Rand, k, lambda float64) float64 {
	u := rng.Float64()
	if u == 0 {
		u = 0.0001
	}
	// X = lambda * (-ln(1-u))^(1/k)
	return lambda * math.Pow(-math.Log(1.0-u), 1.0/k)
}
