package continuity

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/reelplan/reelplan/internal/asset"
)

// Repair applies every unambiguous fix to a copy of the shot plan and
// returns the repaired copy along with the input issues annotated with
// AutoRepaired. The input shot plan is never mutated; committing the
// repaired copy as a new version is the caller's job.
//
// Only two fixes have a single authoritative source and are attempted:
//
//   - a continuity lock carrying exactly one superseded entity lock value is
//     rewritten to the plan's current lock text
//   - a state_in field disagreeing with the previous shot's state_out is
//     overwritten by that state_out value
//
// Everything else (missing references, dropped props, lock violations, and
// any lock with more than one plausible stale source) is left for the user.
func Repair(sp *asset.ShotPlan, ctx Context, issues []asset.ContinuityIssue) (*asset.ShotPlan, []asset.ContinuityIssue, error) {
	repaired, err := cloneShotPlan(sp)
	if err != nil {
		return nil, nil, err
	}

	repairStaleLocks(repaired, ctx)
	repairStateTransitions(repaired)

	// An issue counts as repaired exactly when re-validation no longer
	// reports it. This keeps the repair honest: a rewrite that does not make
	// the finding disappear does not get credit for it.
	after, err := Validate(repaired, ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("revalidate after repair: %w", err)
	}
	remaining := make(map[string]bool, len(after))
	for _, issue := range after {
		remaining[issueKey(issue)] = true
	}

	annotated := make([]asset.ContinuityIssue, len(issues))
	for i, issue := range issues {
		issue.AutoRepaired = !remaining[issueKey(issue)]
		annotated[i] = issue
	}
	return repaired, annotated, nil
}

// repairStaleLocks rewrites continuity locks whose stale entity lock text
// has exactly one superseded candidate. Multiple matching candidates mean
// the authoritative value is ambiguous, so the lock is left alone.
func repairStaleLocks(sp *asset.ShotPlan, ctx Context) {
	if ctx.Plan == nil {
		return
	}
	for i := range sp.Shots {
		shot := &sp.Shots[i]
		for _, id := range sortedKeys(ctx.Plan.Characters) {
			ch := ctx.Plan.Characters[id]
			shot.ContinuityLock = rewriteStaleLock(shot.ContinuityLock, ch.IdentityLock,
				priorCharacterLocks(ctx.PriorPlans, id, characterIdentity))
			shot.ContinuityLock = rewriteStaleLock(shot.ContinuityLock, ch.WardrobeLock,
				priorCharacterLocks(ctx.PriorPlans, id, characterWardrobe))
		}
		for _, id := range sortedKeys(ctx.Plan.Locations) {
			loc := ctx.Plan.Locations[id]
			shot.ContinuityLock = rewriteStaleLock(shot.ContinuityLock, loc.LocationLock,
				priorLocationLocks(ctx.PriorPlans, id))
		}
	}
}

func rewriteStaleLock(lock, current string, prior []string) string {
	if strings.TrimSpace(current) == "" || containsText(lock, current) {
		return lock
	}
	var matched []string
	for _, old := range prior {
		if old != current && containsText(lock, old) {
			matched = append(matched, old)
		}
	}
	if len(matched) != 1 {
		return lock
	}
	return replaceText(lock, matched[0], current)
}

// repairStateTransitions propagates each shot's state_out into the next
// shot's state_in where the two disagree. The earlier shot is the single
// authoritative source for the state the scene is in.
func repairStateTransitions(sp *asset.ShotPlan) {
	byScene := shotsByScene(sp)
	index := make(map[string]*asset.Shot, len(sp.Shots))
	for i := range sp.Shots {
		index[sp.Shots[i].ShotID] = &sp.Shots[i]
	}
	for _, shots := range byScene {
		for i := 1; i < len(shots); i++ {
			prev, cur := shots[i-1], index[shots[i].ShotID]
			if prev.StateOut.TimeOfDay != "" && cur.StateIn.TimeOfDay != "" &&
				normalize(prev.StateOut.TimeOfDay) != normalize(cur.StateIn.TimeOfDay) {
				cur.StateIn.TimeOfDay = prev.StateOut.TimeOfDay
			}
			if prev.StateOut.Weather != "" && cur.StateIn.Weather != "" &&
				normalize(prev.StateOut.Weather) != normalize(cur.StateIn.Weather) {
				cur.StateIn.Weather = prev.StateOut.Weather
			}
		}
	}
}

func cloneShotPlan(sp *asset.ShotPlan) (*asset.ShotPlan, error) {
	raw, err := json.Marshal(sp)
	if err != nil {
		return nil, fmt.Errorf("clone shot plan: %w", err)
	}
	var out asset.ShotPlan
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("clone shot plan: %w", err)
	}
	return &out, nil
}

func issueKey(i asset.ContinuityIssue) string {
	return string(i.Kind) + "|" + i.Location + "|" + i.Description
}
