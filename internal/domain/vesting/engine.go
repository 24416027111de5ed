// Package vesting computes vested and unvested share counts for grants as of
// a caller-supplied date. It performs no I/O and never reads the clock.
package vesting

import (
	"time"

	"equity-lending/internal/domain/grant"

	"github.com/shopspring/decimal"
)

type NextEvent struct {
	VestDate time.Time `json:"vest_date"`
	Shares   int64     `json:"shares"`
}

type Totals struct {
	Granted  int64      `json:"total_granted_shares"`
	Vested   int64      `json:"total_vested_shares"`
	Unvested int64      `json:"total_unvested_shares"`
	Next     *NextEvent `json:"next_vesting_event,omitempty"`
}

type GrantSummary struct {
	GrantID       string          `json:"grant_id"`
	GrantDate     time.Time       `json:"grant_date"`
	TotalShares   int64           `json:"total_shares"`
	Vested        int64           `json:"vested_shares"`
	Unvested      int64           `json:"unvested_shares"`
	ExercisePrice decimal.Decimal `json:"exercise_price"`
}

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func onOrBefore(a, b time.Time) bool { return !Day(a).After(Day(b)) }

func ComputeGrant(g grant.Grant, asOf time.Time) (vested, unvested int64) {
	total := g.TotalShares
	if total < 0 {
		total = 0
	}
	if g.VestingStrategy == grant.StrategyImmediate {
		if onOrBefore(g.GrantDate, asOf) {
			vested = total
		}
	} else {
		for _, e := range g.VestingEvents {
			if onOrBefore(e.VestDate, asOf) {
				vested += e.Shares
			}
		}
	}
	if vested > total {
		vested = total
	}
	return vested, total - vested
}

// NextVestingEvent returns the earliest strictly-future vesting date across
// grants, summing shares of every event landing on that date.
func NextVestingEvent(grants []grant.Grant, asOf time.Time) *NextEvent {
	var next *NextEvent
	add := func(d time.Time, shares int64) {
		d = Day(d)
		if onOrBefore(d, asOf) {
			return
		}
		switch {
		case next == nil || d.Before(next.VestDate):
			next = &NextEvent{VestDate: d, Shares: shares}
		case d.Equal(next.VestDate):
			next.Shares += shares
		}
	}
	for _, g := range grants {
		if g.VestingStrategy == grant.StrategyImmediate {
			add(g.GrantDate, g.TotalShares)
			continue
		}
		for _, e := range g.VestingEvents {
			add(e.VestDate, e.Shares)
		}
	}
	return next
}

func Aggregate(grants []grant.Grant, asOf time.Time) Totals {
	var t Totals
	for _, g := range grants {
		v, u := ComputeGrant(g, asOf)
		t.Granted += v + u
		t.Vested += v
		t.Unvested += u
	}
	t.Next = NextVestingEvent(grants, asOf)
	return t
}

func Summaries(grants []grant.Grant, asOf time.Time) []GrantSummary {
	out := make([]GrantSummary, 0, len(grants))
	for _, g := range grants {
		v, u := ComputeGrant(g, asOf)
		out = append(out, GrantSummary{
			GrantID:       g.ID,
			GrantDate:     Day(g.GrantDate),
			TotalShares:   v + u,
			Vested:        v,
			Unvested:      u,
			ExercisePrice: g.ExercisePrice,
		})
	}
	return out
}
