package report

import (
	"fmt"
	"sort"
	"time"

	"diet-agent/internal/models"
	"diet-agent/internal/storage"
)

// Aggregator computes daily totals and monthly statistics from the ledger on
// demand. It holds no state of its own; nothing is pre-materialized, so
// reports are never stale after a purge.
type Aggregator struct {
	store *storage.Store
}

func New(store *storage.Store) *Aggregator {
	return &Aggregator{store: store}
}

// DailyTotal sums the user's meals for one calendar day. A day with no meals
// comes back zero-valued with MealCount 0, never absent.
func (a *Aggregator) DailyTotal(userID int64, date time.Time) (*models.DailyTotal, error) {
	meals, err := a.store.MealsForDay(userID, date)
	if err != nil {
		return nil, fmt.Errorf("daily total: %w", err)
	}
	total := &models.DailyTotal{
		UserID: userID,
		Date:   date.UTC().Format(models.DayFormat),
	}
	for _, m := range meals {
		total.Calories += m.TotalCalories
		total.Protein += m.TotalProtein
		total.Carbs += m.TotalCarbs
		total.Fat += m.TotalFat
		total.MealCount++
	}
	return total, nil
}

// MonthlyReport groups the month's meals by calendar day and reports one
// DailyTotal per day that has at least one meal. The average divides by the
// number of qualifying days, not days-in-month; max/min are picked by total
// calories with ties going to the earliest date. A month with no qualifying
// days has a nil Average/MaxDay/MinDay.
func (a *Aggregator) MonthlyReport(userID int64, year int, month time.Month) (*models.MonthlyReport, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)

	meals, err := a.store.MealsInRange(userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("monthly report: %w", err)
	}

	byDay := make(map[string]*models.DailyTotal)
	for _, m := range meals {
		d := m.Day()
		total, ok := byDay[d]
		if !ok {
			total = &models.DailyTotal{UserID: userID, Date: d}
			byDay[d] = total
		}
		total.Calories += m.TotalCalories
		total.Protein += m.TotalProtein
		total.Carbs += m.TotalCarbs
		total.Fat += m.TotalFat
		total.MealCount++
	}

	rep := &models.MonthlyReport{
		UserID: userID,
		Year:   year,
		Month:  month,
		Days:   make([]models.DailyTotal, 0, len(byDay)),
	}
	for _, total := range byDay {
		rep.Days = append(rep.Days, *total)
	}
	sort.Slice(rep.Days, func(i, j int) bool { return rep.Days[i].Date < rep.Days[j].Date })

	if len(rep.Days) == 0 {
		return rep, nil
	}

	avg := &models.DailyAverage{}
	maxIdx, minIdx := 0, 0
	for i, d := range rep.Days {
		avg.Calories += float64(d.Calories)
		avg.Protein += d.Protein
		avg.Carbs += d.Carbs
		avg.Fat += d.Fat
		// Strict comparisons keep the earliest date on ties.
		if d.Calories > rep.Days[maxIdx].Calories {
			maxIdx = i
		}
		if d.Calories < rep.Days[minIdx].Calories {
			minIdx = i
		}
	}
	n := float64(len(rep.Days))
	avg.Calories /= n
	avg.Protein /= n
	avg.Carbs /= n
	avg.Fat /= n

	rep.Average = avg
	rep.MaxDay = &rep.Days[maxIdx]
	rep.MinDay = &rep.Days[minIdx]
	return rep, nil
}
