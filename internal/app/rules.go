package app

import (
	"math"
	"time"
)

// Rules bundles the policy parameters of the round engine. The thresholds are
// product decisions, so they are carried as data rather than constants.
type Rules struct {
	TimerMin         int
	TimerMax         int
	RoundsChoices    []int
	RoundsDefault    int
	ReadyFraction    float64
	CountdownSeconds int
	FinalizeSlop     time.Duration
	RematchTTL       time.Duration
	NoAnswerPenalty  bool
}

func DefaultRules() Rules {
	return Rules{
		TimerMin:         5,
		TimerMax:         300,
		RoundsChoices:    []int{10, 15, 20, 30},
		RoundsDefault:    10,
		ReadyFraction:    0.8,
		CountdownSeconds: 3,
		FinalizeSlop:     300 * time.Millisecond,
		RematchTTL:       30 * time.Minute,
		NoAnswerPenalty:  true,
	}
}

// ClampTimer forces a requested round duration into the allowed range.
// Out-of-range requests are clamped, never rejected.
func (r Rules) ClampTimer(seconds int) int {
	if seconds < r.TimerMin {
		return r.TimerMin
	}
	if seconds > r.TimerMax {
		return r.TimerMax
	}
	return seconds
}

// NormalizeRounds maps a requested round total onto the allowed choices,
// falling back to the default for anything else.
func (r Rules) NormalizeRounds(total int) int {
	for _, choice := range r.RoundsChoices {
		if total == choice {
			return total
		}
	}
	return r.RoundsDefault
}

// ReadyRequired returns the readiness quorum for a roster of the given size:
// ceil(fraction * size), never below 1.
func (r Rules) ReadyRequired(rosterSize int) int {
	required := int(math.Ceil(r.ReadyFraction * float64(rosterSize)))
	if required < 1 {
		required = 1
	}
	return required
}
