package models

import (
	"time"
)

// DayFormat is the canonical calendar-day layout used across the ledger.
const DayFormat = "2006-01-02"

// MealEvent is one logged meal. The ID is assigned by the store on insert;
// the event is immutable afterwards and only ever removed by retention.
type MealEvent struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	Timestamp     time.Time  `json:"timestamp"`
	Foods         []FoodItem `json:"foods"`
	TotalCalories int        `json:"total_calories"`
	TotalProtein  float64    `json:"total_protein"`
	TotalCarbs    float64    `json:"total_carbs"`
	TotalFat      float64    `json:"total_fat"`
	PhotoRef      string     `json:"photo_ref,omitempty"`
	Source        string     `json:"source"` // "vision", "manual"
	CreatedAt     time.Time  `json:"created_at"`
}

// Day returns the calendar day of the event in the store's reference
// timezone (UTC).
func (m *MealEvent) Day() string {
	return m.Timestamp.UTC().Format(DayFormat)
}

type FoodItem struct {
	Name       string  `json:"name"`
	Quantity   string  `json:"quantity"` // portion description, e.g. "2 slices"
	Grams      float64 `json:"grams"`
	Calories   int     `json:"calories"`
	Protein    float64 `json:"protein"`
	Carbs      float64 `json:"carbs"`
	Fat        float64 `json:"fat"`
	Confidence float64 `json:"confidence"`
}

// UserSettings holds per-user configuration. A nil DailyCalorieGoal means no
// goal is set and no alerts fire. Settings survive retention purges.
type UserSettings struct {
	UserID           int64     `json:"user_id"`
	DailyCalorieGoal *int      `json:"daily_calorie_goal,omitempty"`
	WeightGoal       string    `json:"weight_goal,omitempty"` // "maintain", "lose", "gain"
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// DailyTotal is derived on read, never persisted. A day with no meals is
// all-zero with MealCount 0; callers tell "no data" from "zero calories" by
// the count alone.
type DailyTotal struct {
	UserID    int64   `json:"user_id"`
	Date      string  `json:"date"` // DayFormat
	Calories  int     `json:"calories"`
	Protein   float64 `json:"protein"`
	Carbs     float64 `json:"carbs"`
	Fat       float64 `json:"fat"`
	MealCount int     `json:"meal_count"`
}

// MonthlyReport summarizes one calendar month. Days holds one entry per day
// with at least one meal, ascending. Average, MaxDay and MinDay are nil when
// the month has no qualifying days; that is distinct from a zero average.
type MonthlyReport struct {
	UserID  int64         `json:"user_id"`
	Year    int           `json:"year"`
	Month   time.Month    `json:"month"`
	Days    []DailyTotal  `json:"days"`
	Average *DailyAverage `json:"average,omitempty"`
	MaxDay  *DailyTotal   `json:"max_day,omitempty"`
	MinDay  *DailyTotal   `json:"min_day,omitempty"`
}

// DailyAverage is the mean over qualifying days only, not days-in-month.
type DailyAverage struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// UserPurgeSummary is the per-user pre-delete audit line of a purge.
type UserPurgeSummary struct {
	UserID   int64  `json:"user_id"`
	Meals    int    `json:"meals"`
	Calories int    `json:"calories"`
	Oldest   string `json:"oldest"`
	Newest   string `json:"newest"`
}

// PurgeReport describes one completed retention purge.
type PurgeReport struct {
	ID         string             `json:"id"`
	Reference  time.Time          `json:"reference"`
	Cutoff     time.Time          `json:"cutoff"`
	Months     int                `json:"retention_months"`
	Deleted    int64              `json:"deleted"`
	Users      []UserPurgeSummary `json:"users,omitempty"`
	ExportPath string             `json:"export_path,omitempty"`
	RanAt      time.Time          `json:"ran_at"`
}

// HealthStats is diagnostic output from the ledger store.
type HealthStats struct {
	MealCount     int64  `json:"meal_count"`
	FoodCount     int64  `json:"food_count"`
	SettingsCount int64  `json:"settings_count"`
	SizeBytes     int64  `json:"size_bytes"`
	OldestMeal    string `json:"oldest_meal,omitempty"`
	NewestMeal    string `json:"newest_meal,omitempty"`
}

// FoodAnalysis is what the vision collaborator hands back for a photo or a
// free-text description, upstream of nutrition mapping.
type FoodAnalysis struct {
	Foods           []RecognizedFood `json:"foods"`
	DishDescription string           `json:"dish_description,omitempty"`
}

type RecognizedFood struct {
	Name        string  `json:"name"`
	Confidence  float64 `json:"confidence"`
	PortionSize string  `json:"portion_size,omitempty"`
	// Per-food nutrition supplied directly by the analyzer. When present it
	// wins over the local table.
	Nutrition *FoodNutrition `json:"nutrition,omitempty"`
	Grams     float64        `json:"estimated_grams,omitempty"`
}

type FoodNutrition struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}
