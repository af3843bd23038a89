package retention

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"diet-agent/internal/logger"
	"diet-agent/internal/models"
	"diet-agent/internal/report"
	"diet-agent/internal/storage"
)

func newTestManager(t *testing.T, exportDir string) (*Manager, *storage.Store) {
	t.Helper()
	s, err := storage.OpenMemory()
	if err != nil {
		t.Fatalf("open memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	return New(s, log, exportDir), s
}

func logMeal(t *testing.T, s *storage.Store, userID int64, ts time.Time, calories int) {
	t.Helper()
	_, err := s.InsertMeal(&models.MealEvent{
		UserID:    userID,
		Timestamp: ts,
		Source:    "manual",
		Foods:     []models.FoodItem{{Name: "food", Calories: calories}},
	})
	if err != nil {
		t.Fatalf("insert meal: %v", err)
	}
}

func day(s string) time.Time {
	t, err := time.Parse(models.DayFormat, s)
	if err != nil {
		panic(err)
	}
	return t
}

// ============================================================
// Calendar-month cutoff arithmetic
// ============================================================

func TestMonthsBefore(t *testing.T) {
	cases := []struct {
		ref    string
		months int
		want   string
	}{
		{"2025-09-25", 2, "2025-07-25"},
		{"2025-08-31", 1, "2025-07-31"},
		{"2025-03-31", 1, "2025-02-28"}, // clamp, not overflow
		{"2024-03-31", 1, "2024-02-29"}, // leap year
		{"2025-01-15", 2, "2024-11-15"}, // across year boundary
		{"2025-07-31", 1, "2025-06-30"},
	}
	for _, tc := range cases {
		got := MonthsBefore(day(tc.ref), tc.months)
		if got.Format(models.DayFormat) != tc.want {
			t.Errorf("MonthsBefore(%s, %d) = %s, want %s",
				tc.ref, tc.months, got.Format(models.DayFormat), tc.want)
		}
	}
}

// ============================================================
// Purge
// ============================================================

// Events on 2025-06-01 and 2025-08-01, purge with reference 2025-09-25 and
// two months retention (cutoff 2025-07-25). June goes, August stays.
func TestPurgeRemovesOnlyExpiredRows(t *testing.T) {
	m, s := newTestManager(t, "")
	agg := report.New(s)

	logMeal(t, s, 1, day("2025-06-01").Add(12*time.Hour), 600)
	logMeal(t, s, 1, day("2025-08-01").Add(12*time.Hour), 800)

	rep, err := m.Purge(day("2025-09-25"), 2)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Cutoff.Format(models.DayFormat) != "2025-07-25" {
		t.Fatalf("unexpected cutoff %s", rep.Cutoff)
	}
	if rep.Deleted != 1 {
		t.Fatalf("expected 1 deleted, got %d", rep.Deleted)
	}

	june, _ := agg.DailyTotal(1, day("2025-06-01"))
	if june.Calories != 0 || june.MealCount != 0 {
		t.Fatalf("June day should be empty after purge: %+v", june)
	}
	august, _ := agg.DailyTotal(1, day("2025-08-01"))
	if august.Calories != 800 || august.MealCount != 1 {
		t.Fatalf("August day must be unaffected: %+v", august)
	}
}

func TestPurgeIdempotent(t *testing.T) {
	m, s := newTestManager(t, "")
	logMeal(t, s, 1, day("2025-06-01").Add(12*time.Hour), 600)

	first, err := m.Purge(day("2025-09-25"), 2)
	if err != nil {
		t.Fatal(err)
	}
	if first.Deleted != 1 {
		t.Fatalf("expected 1 deleted on first run, got %d", first.Deleted)
	}

	second, err := m.Purge(day("2025-09-25"), 2)
	if err != nil {
		t.Fatal(err)
	}
	if second.Deleted != 0 {
		t.Fatalf("expected 0 deleted on second run, got %d", second.Deleted)
	}
	if len(second.Users) != 0 {
		t.Fatalf("expected empty summary on second run, got %+v", second.Users)
	}
}

func TestPurgeReportSummarizesPerUser(t *testing.T) {
	m, s := newTestManager(t, "")
	logMeal(t, s, 1, day("2025-06-01").Add(9*time.Hour), 100)
	logMeal(t, s, 1, day("2025-06-02").Add(9*time.Hour), 200)
	logMeal(t, s, 2, day("2025-06-03").Add(9*time.Hour), 300)
	logMeal(t, s, 2, day("2025-09-01").Add(9*time.Hour), 400) // retained

	rep, err := m.Purge(day("2025-09-25"), 2)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Deleted != 3 {
		t.Fatalf("expected 3 deleted, got %d", rep.Deleted)
	}
	if len(rep.Users) != 2 {
		t.Fatalf("expected 2 users in summary, got %d", len(rep.Users))
	}
	if rep.Users[0].UserID != 1 || rep.Users[0].Meals != 2 || rep.Users[0].Calories != 300 {
		t.Fatalf("unexpected user 1 summary: %+v", rep.Users[0])
	}
	if rep.Users[1].UserID != 2 || rep.Users[1].Meals != 1 || rep.Users[1].Calories != 300 {
		t.Fatalf("unexpected user 2 summary: %+v", rep.Users[1])
	}
	if rep.ID == "" {
		t.Fatal("expected a report id")
	}
}

func TestPurgeDefaultMonths(t *testing.T) {
	m, s := newTestManager(t, "")
	logMeal(t, s, 1, day("2025-06-01").Add(9*time.Hour), 100)

	rep, err := m.Purge(day("2025-09-25"), 0)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Months != DefaultMonths {
		t.Fatalf("expected default months, got %d", rep.Months)
	}
	if rep.Cutoff.Format(models.DayFormat) != "2025-07-25" {
		t.Fatalf("unexpected cutoff %s", rep.Cutoff)
	}
}

// ============================================================
// Audit export
// ============================================================

func TestPurgeWritesAuditFile(t *testing.T) {
	dir := t.TempDir()
	m, s := newTestManager(t, dir)
	logMeal(t, s, 1, day("2025-06-01").Add(9*time.Hour), 100)

	rep, err := m.Purge(day("2025-09-25"), 2)
	if err != nil {
		t.Fatal(err)
	}
	if rep.ExportPath == "" {
		t.Fatal("expected an export path")
	}

	data, err := os.ReadFile(rep.ExportPath)
	if err != nil {
		t.Fatalf("read audit file: %v", err)
	}
	var audit struct {
		PurgeID string                    `json:"purge_id"`
		Cutoff  string                    `json:"cutoff"`
		Users   []models.UserPurgeSummary `json:"users"`
	}
	if err := json.Unmarshal(data, &audit); err != nil {
		t.Fatalf("decode audit file: %v", err)
	}
	if audit.PurgeID != rep.ID || audit.Cutoff != "2025-07-25" {
		t.Fatalf("unexpected audit header: %+v", audit)
	}
	if len(audit.Users) != 1 || audit.Users[0].Meals != 1 {
		t.Fatalf("unexpected audit users: %+v", audit.Users)
	}
}

func TestPurgeSkipsAuditWhenNothingExpired(t *testing.T) {
	dir := t.TempDir()
	m, s := newTestManager(t, dir)
	logMeal(t, s, 1, day("2025-09-01").Add(9*time.Hour), 100)

	rep, err := m.Purge(day("2025-09-25"), 2)
	if err != nil {
		t.Fatal(err)
	}
	if rep.ExportPath != "" {
		t.Fatal("no audit file expected when nothing is purged")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("export dir should be empty, has %d entries", len(entries))
	}
}
