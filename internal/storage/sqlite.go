package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"diet-agent/internal/models"
)

const currentVersion = 1

// Store owns all persisted state: the meal ledger (append/delete only) and
// the per-user settings table (upsert). All writes are serialized through a
// single connection, so a caller never observes a partially applied batch.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at dbPath and runs migrations.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// OpenMemory creates an in-memory store for testing.
func OpenMemory() (*Store, error) {
	return Open(":memory:")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	_, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS meals (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id        INTEGER NOT NULL,
		day            TEXT NOT NULL,
		timestamp      TEXT NOT NULL,
		total_calories INTEGER NOT NULL,
		total_protein  REAL NOT NULL DEFAULT 0,
		total_carbs    REAL NOT NULL DEFAULT 0,
		total_fat      REAL NOT NULL DEFAULT 0,
		photo_ref      TEXT NOT NULL DEFAULT '',
		source         TEXT NOT NULL DEFAULT 'manual',
		created_at     TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS foods (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		meal_id    INTEGER NOT NULL REFERENCES meals(id) ON DELETE CASCADE,
		name       TEXT NOT NULL,
		quantity   TEXT NOT NULL DEFAULT '',
		grams      REAL NOT NULL DEFAULT 0,
		calories   INTEGER NOT NULL DEFAULT 0,
		protein    REAL NOT NULL DEFAULT 0,
		carbs      REAL NOT NULL DEFAULT 0,
		fat        REAL NOT NULL DEFAULT 0,
		confidence REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS user_settings (
		user_id            INTEGER PRIMARY KEY,
		daily_calorie_goal INTEGER,
		weight_goal        TEXT NOT NULL DEFAULT '',
		created_at         TEXT NOT NULL,
		updated_at         TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_meals_user_day  ON meals(user_id, day);
	CREATE INDEX IF NOT EXISTS idx_meals_timestamp ON meals(timestamp);
	CREATE INDEX IF NOT EXISTS idx_foods_meal_id   ON foods(meal_id);
	`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// InsertMeal validates and persists a meal event with its food items in one
// transaction and returns the assigned id. The denormalized totals are
// recomputed from the item list here, at the only construction boundary, and
// are never recomputed during reporting.
func (s *Store) InsertMeal(event *models.MealEvent) (int64, error) {
	if event == nil {
		return 0, &ValidationError{Field: "event", Reason: "missing"}
	}
	if event.UserID == 0 {
		return 0, &ValidationError{Field: "user_id", Reason: "missing"}
	}
	if event.Timestamp.IsZero() {
		return 0, &ValidationError{Field: "timestamp", Reason: "missing"}
	}
	if len(event.Foods) == 0 {
		return 0, &ValidationError{Field: "foods", Reason: "empty food list"}
	}

	var calories int
	var protein, carbs, fat float64
	for _, f := range event.Foods {
		calories += f.Calories
		protein += f.Protein
		carbs += f.Carbs
		fat += f.Fat
	}
	event.TotalCalories = calories
	event.TotalProtein = protein
	event.TotalCarbs = carbs
	event.TotalFat = fat

	ts := event.Timestamp.UTC()
	createdAt := time.Now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, storageErr("insert meal: begin", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO meals (user_id, day, timestamp, total_calories, total_protein, total_carbs, total_fat, photo_ref, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.UserID, ts.Format(models.DayFormat), ts.Format(time.RFC3339),
		event.TotalCalories, event.TotalProtein, event.TotalCarbs, event.TotalFat,
		event.PhotoRef, event.Source, createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return 0, storageErr("insert meal", err)
	}
	mealID, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("insert meal: last id", err)
	}

	for _, f := range event.Foods {
		_, err := tx.Exec(
			`INSERT INTO foods (meal_id, name, quantity, grams, calories, protein, carbs, fat, confidence)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			mealID, f.Name, f.Quantity, f.Grams, f.Calories, f.Protein, f.Carbs, f.Fat, f.Confidence,
		)
		if err != nil {
			return 0, storageErr("insert food", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, storageErr("insert meal: commit", err)
	}

	event.ID = mealID
	event.Timestamp = ts
	event.CreatedAt = createdAt
	return mealID, nil
}

// MealsForDay returns the user's meals for one calendar day (UTC), ordered by
// timestamp ascending. An empty day yields an empty slice, not an error.
func (s *Store) MealsForDay(userID int64, date time.Time) ([]*models.MealEvent, error) {
	day := date.UTC().Format(models.DayFormat)
	return s.queryMeals(
		`SELECT id, user_id, timestamp, total_calories, total_protein, total_carbs, total_fat, photo_ref, source, created_at
		 FROM meals WHERE user_id = ? AND day = ? ORDER BY timestamp ASC, id ASC`,
		userID, day,
	)
}

// MealsInRange returns the user's meals with days in [start, end] inclusive,
// ordered by timestamp ascending.
func (s *Store) MealsInRange(userID int64, start, end time.Time) ([]*models.MealEvent, error) {
	return s.queryMeals(
		`SELECT id, user_id, timestamp, total_calories, total_protein, total_carbs, total_fat, photo_ref, source, created_at
		 FROM meals WHERE user_id = ? AND day >= ? AND day <= ? ORDER BY timestamp ASC, id ASC`,
		userID, start.UTC().Format(models.DayFormat), end.UTC().Format(models.DayFormat),
	)
}

// GetMeal fetches one meal by id. Missing ids return ErrNotFound.
func (s *Store) GetMeal(id int64) (*models.MealEvent, error) {
	meals, err := s.queryMeals(
		`SELECT id, user_id, timestamp, total_calories, total_protein, total_carbs, total_fat, photo_ref, source, created_at
		 FROM meals WHERE id = ?`, id,
	)
	if err != nil {
		return nil, err
	}
	if len(meals) == 0 {
		return nil, fmt.Errorf("meal %d: %w", id, ErrNotFound)
	}
	return meals[0], nil
}

func (s *Store) queryMeals(query string, args ...any) ([]*models.MealEvent, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, storageErr("query meals", err)
	}
	defer rows.Close()

	meals := []*models.MealEvent{}
	for rows.Next() {
		m := &models.MealEvent{}
		var tsStr, createdStr string
		if err := rows.Scan(
			&m.ID, &m.UserID, &tsStr, &m.TotalCalories, &m.TotalProtein,
			&m.TotalCarbs, &m.TotalFat, &m.PhotoRef, &m.Source, &createdStr,
		); err != nil {
			return nil, storageErr("scan meal", err)
		}
		if m.Timestamp, err = time.Parse(time.RFC3339, tsStr); err != nil {
			return nil, storageErr("parse timestamp", err)
		}
		if m.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
			return nil, storageErr("parse created_at", err)
		}
		meals = append(meals, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate meals", err)
	}

	for _, m := range meals {
		if err := s.loadFoods(m); err != nil {
			return nil, err
		}
	}
	return meals, nil
}

func (s *Store) loadFoods(meal *models.MealEvent) error {
	rows, err := s.db.Query(
		`SELECT name, quantity, grams, calories, protein, carbs, fat, confidence
		 FROM foods WHERE meal_id = ? ORDER BY id`, meal.ID,
	)
	if err != nil {
		return storageErr("query foods", err)
	}
	defer rows.Close()

	var foods []models.FoodItem
	for rows.Next() {
		var f models.FoodItem
		if err := rows.Scan(&f.Name, &f.Quantity, &f.Grams, &f.Calories, &f.Protein, &f.Carbs, &f.Fat, &f.Confidence); err != nil {
			return storageErr("scan food", err)
		}
		foods = append(foods, f)
	}
	meal.Foods = foods
	return rows.Err()
}

// GetSettings returns the user's settings, or nil when the user has never set
// anything. Absence is not an error.
func (s *Store) GetSettings(userID int64) (*models.UserSettings, error) {
	var (
		goal       sql.NullInt64
		weightGoal string
		createdStr string
		updatedStr string
	)
	err := s.db.QueryRow(
		`SELECT daily_calorie_goal, weight_goal, created_at, updated_at
		 FROM user_settings WHERE user_id = ?`, userID,
	).Scan(&goal, &weightGoal, &createdStr, &updatedStr)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get settings", err)
	}

	settings := &models.UserSettings{UserID: userID, WeightGoal: weightGoal}
	if goal.Valid {
		g := int(goal.Int64)
		settings.DailyCalorieGoal = &g
	}
	settings.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	settings.UpdatedAt, _ = time.Parse(time.RFC3339, updatedStr)
	return settings, nil
}

// SetGoal upserts the user's daily calorie goal. Calories must be positive.
func (s *Store) SetGoal(userID int64, calories int) error {
	return s.SetGoalWithWeightTarget(userID, calories, "")
}

// SetGoalWithWeightTarget upserts the goal along with an optional weight
// target ("maintain", "lose", "gain"). An empty target leaves any stored one
// untouched.
func (s *Store) SetGoalWithWeightTarget(userID int64, calories int, weightGoal string) error {
	if userID == 0 {
		return &ValidationError{Field: "user_id", Reason: "missing"}
	}
	if calories <= 0 {
		return &ValidationError{Field: "calories", Reason: "must be a positive integer"}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`INSERT INTO user_settings (user_id, daily_calorie_goal, weight_goal, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			daily_calorie_goal = excluded.daily_calorie_goal,
			weight_goal = CASE WHEN excluded.weight_goal = '' THEN user_settings.weight_goal ELSE excluded.weight_goal END,
			updated_at = excluded.updated_at`,
		userID, calories, weightGoal, now, now,
	)
	if err != nil {
		return storageErr("set goal", err)
	}
	return nil
}

// ClearGoal removes the user's daily goal. Idempotent: clearing an absent
// goal succeeds. The settings row itself is kept.
func (s *Store) ClearGoal(userID int64) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`UPDATE user_settings SET daily_calorie_goal = NULL, updated_at = ? WHERE user_id = ?`,
		now, userID,
	)
	if err != nil {
		return storageErr("clear goal", err)
	}
	return nil
}

// SummarizeMealsBefore aggregates, per user, the meals with timestamp
// strictly before cutoff (UTC midnight of the cutoff date). Used by the
// retention manager for its pre-delete audit.
func (s *Store) SummarizeMealsBefore(cutoff time.Time) ([]models.UserPurgeSummary, error) {
	rows, err := s.db.Query(
		`SELECT user_id, COUNT(*), COALESCE(SUM(total_calories), 0), MIN(timestamp), MAX(timestamp)
		 FROM meals WHERE timestamp < ? GROUP BY user_id ORDER BY user_id`,
		dayStartUTC(cutoff).Format(time.RFC3339),
	)
	if err != nil {
		return nil, storageErr("summarize meals", err)
	}
	defer rows.Close()

	var out []models.UserPurgeSummary
	for rows.Next() {
		var u models.UserPurgeSummary
		if err := rows.Scan(&u.UserID, &u.Meals, &u.Calories, &u.Oldest, &u.Newest); err != nil {
			return nil, storageErr("scan summary", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// DeleteMealsBefore removes all meal events, across users, with timestamp
// strictly before cutoff (UTC midnight of the cutoff date) and returns the
// number of meals deleted. The batch is a single transaction: concurrent
// readers observe either the full pre-purge or full post-purge state.
func (s *Store) DeleteMealsBefore(cutoff time.Time) (int64, error) {
	bound := dayStartUTC(cutoff).Format(time.RFC3339)

	tx, err := s.db.Begin()
	if err != nil {
		return 0, storageErr("delete meals: begin", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM foods WHERE meal_id IN (SELECT id FROM meals WHERE timestamp < ?)`, bound,
	); err != nil {
		return 0, &PurgeConsistencyError{Cutoff: cutoff, Err: err}
	}

	res, err := tx.Exec(`DELETE FROM meals WHERE timestamp < ?`, bound)
	if err != nil {
		return 0, &PurgeConsistencyError{Cutoff: cutoff, Err: err}
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, &PurgeConsistencyError{Cutoff: cutoff, Err: err}
	}

	if err := tx.Commit(); err != nil {
		return 0, &PurgeConsistencyError{Cutoff: cutoff, Err: err}
	}
	return deleted, nil
}

// DeleteUserData erases everything stored for one user, meals and settings
// both, and returns the number of meals removed. ErrNotFound when the user
// had no data at all.
func (s *Store) DeleteUserData(userID int64) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, storageErr("delete user data: begin", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM foods WHERE meal_id IN (SELECT id FROM meals WHERE user_id = ?)`, userID,
	); err != nil {
		return 0, storageErr("delete user foods", err)
	}
	res, err := tx.Exec(`DELETE FROM meals WHERE user_id = ?`, userID)
	if err != nil {
		return 0, storageErr("delete user meals", err)
	}
	meals, _ := res.RowsAffected()

	res, err = tx.Exec(`DELETE FROM user_settings WHERE user_id = ?`, userID)
	if err != nil {
		return 0, storageErr("delete user settings", err)
	}
	settings, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, storageErr("delete user data: commit", err)
	}
	if meals == 0 && settings == 0 {
		return 0, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return meals, nil
}

// Health returns diagnostic stats about the ledger. Read-only.
func (s *Store) Health() (*models.HealthStats, error) {
	stats := &models.HealthStats{}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM meals`).Scan(&stats.MealCount); err != nil {
		return nil, storageErr("count meals", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM foods`).Scan(&stats.FoodCount); err != nil {
		return nil, storageErr("count foods", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM user_settings`).Scan(&stats.SettingsCount); err != nil {
		return nil, storageErr("count settings", err)
	}

	var oldest, newest sql.NullString
	if err := s.db.QueryRow(`SELECT MIN(timestamp), MAX(timestamp) FROM meals`).Scan(&oldest, &newest); err != nil {
		return nil, storageErr("meal bounds", err)
	}
	if oldest.Valid {
		stats.OldestMeal = oldest.String
	}
	if newest.Valid {
		stats.NewestMeal = newest.String
	}

	var pageCount, pageSize int64
	if err := s.db.QueryRow(`PRAGMA page_count`).Scan(&pageCount); err != nil {
		return nil, storageErr("page_count", err)
	}
	if err := s.db.QueryRow(`PRAGMA page_size`).Scan(&pageSize); err != nil {
		return nil, storageErr("page_size", err)
	}
	stats.SizeBytes = pageCount * pageSize

	return stats, nil
}

// dayStartUTC truncates t to midnight UTC of its calendar day.
func dayStartUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
