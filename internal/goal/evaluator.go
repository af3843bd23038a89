package goal

import (
	"fmt"
	"time"

	"diet-agent/internal/report"
	"diet-agent/internal/storage"
)

// Status of a day's running total against the user's goal.
type Status string

const (
	StatusNoGoal    Status = "no_goal"
	StatusUnder     Status = "under"
	StatusMetOrOver Status = "met_or_over" // total >= goal; equal counts as met
)

// ProjectionStatus classifies what adding one more meal would do, with a 10%
// tolerance band above the goal.
type ProjectionStatus string

const (
	ProjectionSafe    ProjectionStatus = "safe"
	ProjectionWarning ProjectionStatus = "warning"
	ProjectionExceed  ProjectionStatus = "exceed"
)

// Evaluation is a snapshot of one user's day against their goal. It carries
// no history: see Crossed for alert edge detection.
type Evaluation struct {
	Status    Status `json:"status"`
	Goal      int    `json:"goal,omitempty"`
	Total     int    `json:"total"`
	Remaining int    `json:"remaining"` // never negative
}

// Projection is the what-if result for a pending meal.
type Projection struct {
	Status    ProjectionStatus `json:"status"`
	Goal      int              `json:"goal"`
	Current   int              `json:"current"`
	Projected int              `json:"projected"`
	Excess    int              `json:"excess,omitempty"`
}

// Evaluator compares running daily totals against stored goals. It is
// stateless per call: each Evaluate reads the goal and the day's total fresh.
//
// A single Evaluate cannot distinguish "just crossed the goal" from "was
// already over": callers that alert on the crossing edge must snapshot the
// evaluation before and after inserting a meal and pass both to Crossed.
type Evaluator struct {
	store *storage.Store
	agg   *report.Aggregator
}

func New(store *storage.Store, agg *report.Aggregator) *Evaluator {
	return &Evaluator{store: store, agg: agg}
}

// Evaluate reports the user's current status for the given day. A user with
// no configured goal gets StatusNoGoal and nothing else happens.
func (e *Evaluator) Evaluate(userID int64, date time.Time) (*Evaluation, error) {
	settings, err := e.store.GetSettings(userID)
	if err != nil {
		return nil, fmt.Errorf("evaluate goal: %w", err)
	}

	total, err := e.agg.DailyTotal(userID, date)
	if err != nil {
		return nil, fmt.Errorf("evaluate goal: %w", err)
	}

	ev := &Evaluation{Total: total.Calories}
	if settings == nil || settings.DailyCalorieGoal == nil {
		ev.Status = StatusNoGoal
		return ev, nil
	}

	ev.Goal = *settings.DailyCalorieGoal
	if total.Calories >= ev.Goal {
		ev.Status = StatusMetOrOver
	} else {
		ev.Status = StatusUnder
		ev.Remaining = ev.Goal - total.Calories
	}
	return ev, nil
}

// Crossed reports whether the under -> met_or_over transition happened
// between two snapshots. Only that edge should trigger an alert; re-checking
// while already over stays silent.
func Crossed(before, after *Evaluation) bool {
	if before == nil || after == nil {
		return false
	}
	return before.Status == StatusUnder && after.Status == StatusMetOrOver
}

// Project answers "what happens if this meal lands now" without writing
// anything. Projected totals within 10% over the goal are a warning rather
// than an exceed.
func (e *Evaluator) Project(userID int64, date time.Time, newCalories int) (*Projection, error) {
	settings, err := e.store.GetSettings(userID)
	if err != nil {
		return nil, fmt.Errorf("project goal: %w", err)
	}
	if settings == nil || settings.DailyCalorieGoal == nil {
		return nil, nil
	}

	total, err := e.agg.DailyTotal(userID, date)
	if err != nil {
		return nil, fmt.Errorf("project goal: %w", err)
	}

	p := &Projection{
		Goal:      *settings.DailyCalorieGoal,
		Current:   total.Calories,
		Projected: total.Calories + newCalories,
	}
	switch {
	case p.Projected <= p.Goal:
		p.Status = ProjectionSafe
	case float64(p.Projected) <= float64(p.Goal)*1.1:
		p.Status = ProjectionWarning
	default:
		p.Status = ProjectionExceed
		p.Excess = p.Projected - p.Goal
	}
	return p, nil
}
