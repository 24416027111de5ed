package grant

import (
	"sort"
	"time"

	"equity-lending/internal/domain/errs"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusActive       Status = "ACTIVE"
	StatusCancelled    Status = "CANCELLED"
	StatusExercisedOut Status = "EXERCISED_OUT"
)

type VestingStrategy string

const (
	StrategyImmediate VestingStrategy = "IMMEDIATE"
	StrategyScheduled VestingStrategy = "SCHEDULED"
)

// Table: grants
type Grant struct {
	ID              string          `gorm:"column:id;type:char(32);primaryKey" json:"id"`
	MembershipID    string          `gorm:"column:membership_id;type:char(32);not null;index:idx_grants_membership_status" json:"membership_id"`
	GrantDate       time.Time       `gorm:"column:grant_date;type:date;not null" json:"grant_date"`
	TotalShares     int64           `gorm:"column:total_shares;not null" json:"total_shares"`
	ExercisePrice   decimal.Decimal `gorm:"column:exercise_price;type:decimal(18,6);not null" json:"exercise_price"`
	Status          Status          `gorm:"column:status;size:20;not null;index:idx_grants_membership_status" json:"status"`
	VestingStrategy VestingStrategy `gorm:"column:vesting_strategy;size:20;not null" json:"vesting_strategy"`
	VestingEvents   []VestingEvent  `gorm:"foreignKey:GrantID;constraint:OnDelete:RESTRICT" json:"vesting_events"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Grant) TableName() string { return "grants" }

// Table: vesting_events (owned by a grant)
type VestingEvent struct {
	ID       uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	GrantID  string    `gorm:"column:grant_id;type:char(32);not null;index" json:"grant_id"`
	VestDate time.Time `gorm:"column:vest_date;type:date;not null" json:"vest_date"`
	Shares   int64     `gorm:"column:shares;not null" json:"shares"`
}

func (VestingEvent) TableName() string { return "vesting_events" }

type EventInput struct {
	VestDate time.Time
	Shares   int64
}

type NewGrantInput struct {
	ID              string
	MembershipID    string
	GrantDate       time.Time
	TotalShares     int64
	ExercisePrice   decimal.Decimal
	VestingStrategy VestingStrategy
	Events          []EventInput
}

// New builds an ACTIVE grant and its vesting schedule, rejecting schedules
// that could vest more than the grant holds.
func New(in NewGrantInput) (*Grant, error) {
	if in.TotalShares < 0 {
		return nil, errs.ErrInvalidVestingSchedule.WithDetails(map[string]any{"field": "total_shares"})
	}
	if in.ExercisePrice.IsNegative() {
		return nil, errs.ErrInvalidVestingSchedule.WithDetails(map[string]any{"field": "exercise_price"})
	}
	g := &Grant{
		ID:              in.ID,
		MembershipID:    in.MembershipID,
		GrantDate:       day(in.GrantDate),
		TotalShares:     in.TotalShares,
		ExercisePrice:   in.ExercisePrice,
		Status:          StatusActive,
		VestingStrategy: in.VestingStrategy,
	}
	if err := g.ReplaceSchedule(in.VestingStrategy, in.Events); err != nil {
		return nil, err
	}
	return g, nil
}

// ReplaceSchedule swaps the owned vesting events. IMMEDIATE grants get one
// synthetic event at grant date for the full amount.
func (g *Grant) ReplaceSchedule(strategy VestingStrategy, events []EventInput) error {
	switch strategy {
	case StrategyImmediate:
		g.VestingStrategy = strategy
		g.VestingEvents = []VestingEvent{{GrantID: g.ID, VestDate: g.GrantDate, Shares: g.TotalShares}}
		return nil
	case StrategyScheduled:
	default:
		return errs.ErrInvalidVestingSchedule.WithDetails(map[string]any{"field": "vesting_strategy", "value": string(strategy)})
	}

	var sum int64
	out := make([]VestingEvent, 0, len(events))
	for i, e := range events {
		if e.Shares < 0 {
			return errs.ErrInvalidVestingSchedule.WithDetails(map[string]any{"field": "shares", "index": i})
		}
		sum += e.Shares
		out = append(out, VestingEvent{GrantID: g.ID, VestDate: day(e.VestDate), Shares: e.Shares})
	}
	if sum > g.TotalShares {
		return errs.ErrInvalidVestingSchedule.WithDetails(map[string]any{
			"scheduled_shares": sum,
			"total_shares":     g.TotalShares,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].VestDate.Before(out[j].VestDate) })
	g.VestingStrategy = strategy
	g.VestingEvents = out
	return nil
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
