package simulation

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"lighthouse/internal/random"
	"lighthouse/internal/throughput"

	"github.com/rs/zerolog/log"
)

// Allocation decides how a team's daily throughput is spread over the
// features it is actively working on.
type Allocation string

const (
	// AllocateSequential fills active features in priority order. Budget left
	// once every active feature is satisfied is lost for the day.
	AllocateSequential Allocation = "sequential"
	// AllocateRoundRobin hands out one item at a time, cycling through the
	// active features that still need work.
	AllocateRoundRobin Allocation = "round_robin"
)

// ParseAllocation validates an allocation policy name.
func ParseAllocation(s string) (Allocation, error) {
	switch Allocation(s) {
	case AllocateSequential, AllocateRoundRobin:
		return Allocation(s), nil
	case "":
		return AllocateSequential, nil
	}
	return "", fmt.Errorf("%w: unknown allocation policy %q", ErrInvalidInput, s)
}

// FeatureInput is the snapshot of one feature and the teams working on it.
// The order of FeatureInputs passed to ForecastFeatures is their priority:
// when a team has more eligible features than WIP slots, earlier features win.
type FeatureInput struct {
	ID             string
	Remaining      map[string]int   // team ID -> remaining items
	TeamFeatureWIP map[string]int   // team ID -> features the team works on at once
	TeamThroughput map[string][]int // team ID -> daily throughput history
	TeamCapacity   map[string]int   // team ID -> optional per-day cap, 0 for none
}

type teamSnapshot struct {
	id       string
	wip      int
	capacity int
	counts   []int
	history  throughput.History
}

type portfolioPlan struct {
	teams     []teamSnapshot // contributing teams, by ID
	features  []string       // simulated features, by priority
	remaining [][]int        // [feature][team]
	ignored   map[string][]string
	fixed     map[string]*Distribution
}

// ForecastFeatures jointly simulates all features so that features sharing a
// team compete for its daily throughput and WIP slots. It returns one "when"
// distribution per feature ID.
func (e *Engine) ForecastFeatures(ctx context.Context, features []FeatureInput) (map[string]*Distribution, error) {
	plan, err := buildPortfolioPlan(features, e.opts.Trials)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Int("features", len(features)).
		Int("simulated", len(plan.features)).
		Int("teams", len(plan.teams)).
		Str("allocation", string(e.opts.Allocation)).
		Msg("Running Monte Carlo forecast for features")

	results := make(map[string]*Distribution, len(features))
	maps.Copy(results, plan.fixed)

	if len(plan.features) == 0 {
		return results, nil
	}

	trials := e.opts.Trials
	days := make([][]int, len(plan.features))
	capped := make([][]bool, len(plan.features))
	for i := range plan.features {
		days[i] = make([]int, trials)
		capped[i] = make([]bool, trials)
	}

	err = e.runTrials(ctx, func(trial int, src random.Source) {
		plan.simulateTrial(src, e.opts.DayCap, e.opts.Allocation, func(feature, day int, censored bool) {
			days[feature][trial] = day
			capped[feature][trial] = censored
		})
	})
	if err != nil {
		return nil, err
	}

	for i, id := range plan.features {
		censored := 0
		for _, c := range capped[i] {
			if c {
				censored++
			}
		}
		if censored > 0 && len(plan.ignored[id]) == 0 {
			log.Warn().Str("feature", id).Int("censored", censored).Msg("Feature trials hit the day cap; forecast is a lower bound")
		}
		// Work held by a team that cannot progress never finishes, so the
		// simulated days only cover part of the feature.
		if ignored := plan.ignored[id]; len(ignored) > 0 {
			d := insufficientDistribution(KindWhen)
			d.ignoredTeams = ignored
			results[id] = d
			continue
		}
		results[id] = newDistribution(KindWhen, days[i], censored)
	}

	return results, nil
}

// simulateTrial runs one trial day by day and reports each feature's
// completion day through record.
func (p *portfolioPlan) simulateTrial(src random.Source, dayCap int, alloc Allocation, record func(feature, day int, censored bool)) {
	remaining := make([][]int, len(p.remaining))
	left := make([]int, len(p.remaining))
	for fi, row := range p.remaining {
		remaining[fi] = slices.Clone(row)
		for _, r := range row {
			left[fi] += r
		}
	}

	finished := make([]bool, len(p.features))
	open := len(p.features)
	active := make([]int, 0, len(p.features))

	for day := 1; open > 0 && day <= dayCap; day++ {
		for ti, team := range p.teams {
			budget := team.history.SampleOneDay(src)

			active = active[:0]
			for fi := range remaining {
				if len(active) == team.wip {
					break
				}
				if remaining[fi][ti] > 0 {
					active = append(active, fi)
				}
			}

			if budget == 0 || len(active) == 0 {
				continue
			}

			switch alloc {
			case AllocateRoundRobin:
				allocateRoundRobin(remaining, left, active, ti, budget, day)
			default:
				allocateSequential(remaining, left, active, ti, budget)
			}
		}

		for fi := range finished {
			if !finished[fi] && left[fi] == 0 {
				finished[fi] = true
				open--
				record(fi, day, false)
			}
		}
	}

	for fi, done := range finished {
		if !done {
			record(fi, dayCap, true)
		}
	}
}

func allocateSequential(remaining [][]int, left []int, active []int, team, budget int) {
	for _, fi := range active {
		take := min(budget, remaining[fi][team])
		remaining[fi][team] -= take
		left[fi] -= take
		budget -= take
		if budget == 0 {
			return
		}
	}
}

// allocateRoundRobin starts at a different active feature each day so a
// budget of one item still alternates between features.
func allocateRoundRobin(remaining [][]int, left []int, active []int, team, budget, day int) {
	offset := (day - 1) % len(active)
	for budget > 0 {
		progressed := false
		for i := range active {
			if budget == 0 {
				return
			}
			fi := active[(offset+i)%len(active)]
			if remaining[fi][team] > 0 {
				remaining[fi][team]--
				left[fi]--
				budget--
				progressed = true
			}
		}
		if !progressed {
			return
		}
	}
}

// buildPortfolioPlan validates the inputs, merges the per-feature team
// snapshots and decides which features need simulating at all.
func buildPortfolioPlan(features []FeatureInput, trials int) (*portfolioPlan, error) {
	teams := make(map[string]*teamSnapshot)
	seen := make(map[string]bool, len(features))

	for _, f := range features {
		if f.ID == "" {
			return nil, fmt.Errorf("%w: feature without ID", ErrInvalidInput)
		}
		if seen[f.ID] {
			return nil, fmt.Errorf("%w: duplicate feature %q", ErrInvalidInput, f.ID)
		}
		seen[f.ID] = true

		for teamID, r := range f.Remaining {
			if r < 0 {
				return nil, fmt.Errorf("%w: feature %q has negative remaining work (%d) for team %q", ErrInvalidInput, f.ID, r, teamID)
			}
			if r == 0 {
				continue
			}
			if err := mergeTeam(teams, f, teamID); err != nil {
				return nil, err
			}
		}
	}

	ids := slices.Sorted(maps.Keys(teams))
	plan := &portfolioPlan{
		ignored: make(map[string][]string),
		fixed:   make(map[string]*Distribution),
	}
	index := make(map[string]int)
	for _, id := range ids {
		t := teams[id]
		if t.wip == 0 || !t.history.HasThroughput() {
			continue
		}
		index[id] = len(plan.teams)
		plan.teams = append(plan.teams, *t)
	}

	for _, f := range features {
		row := make([]int, len(plan.teams))
		total, simulated := 0, 0
		var ignored []string
		for teamID, r := range f.Remaining {
			if r == 0 {
				continue
			}
			total += r
			if ti, ok := index[teamID]; ok {
				row[ti] = r
				simulated += r
			} else {
				ignored = append(ignored, teamID)
			}
		}
		slices.Sort(ignored)

		switch {
		case total == 0:
			plan.fixed[f.ID] = constantDistribution(KindWhen, trials, 0)
		case simulated == 0:
			d := insufficientDistribution(KindWhen)
			d.ignoredTeams = ignored
			plan.fixed[f.ID] = d
		default:
			plan.features = append(plan.features, f.ID)
			plan.remaining = append(plan.remaining, row)
			if len(ignored) > 0 {
				plan.ignored[f.ID] = ignored
			}
		}
	}

	return plan, nil
}

func mergeTeam(teams map[string]*teamSnapshot, f FeatureInput, teamID string) error {
	wip, ok := f.TeamFeatureWIP[teamID]
	if !ok {
		return fmt.Errorf("%w: feature %q has no feature WIP for team %q", ErrInvalidInput, f.ID, teamID)
	}
	if wip < 0 {
		return fmt.Errorf("%w: team %q has negative feature WIP (%d)", ErrInvalidInput, teamID, wip)
	}
	counts := f.TeamThroughput[teamID]
	capacity := f.TeamCapacity[teamID]
	if capacity < 0 {
		return fmt.Errorf("%w: team %q has negative daily capacity (%d)", ErrInvalidInput, teamID, capacity)
	}

	if existing, ok := teams[teamID]; ok {
		if existing.wip != wip || existing.capacity != capacity || slices.Compare(existing.counts, counts) != 0 {
			return fmt.Errorf("%w: conflicting snapshots for team %q across features", ErrInvalidInput, teamID)
		}
		return nil
	}

	history, err := throughput.NewHistory(counts)
	if err != nil {
		return fmt.Errorf("%w: team %q: %v", ErrInvalidInput, teamID, err)
	}
	teams[teamID] = &teamSnapshot{
		id:       teamID,
		wip:      wip,
		capacity: capacity,
		counts:   slices.Clone(counts),
		history:  history.Capped(capacity),
	}
	return nil
}
