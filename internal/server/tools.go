package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"diet-agent/internal/goal"
	"diet-agent/internal/models"
	"diet-agent/internal/storage"
)

type LogMealParams struct {
	UserID      int64  `json:"user_id" description:"ID of the user logging the meal"`
	Description string `json:"description,omitempty" description:"Text description of the meal"`
	PhotoBase64 string `json:"photo_base64,omitempty" description:"Base64-encoded JPEG of the meal"`
	PhotoRef    string `json:"photo_ref,omitempty" description:"Opaque reference to the original photo"`
	Timestamp   string `json:"timestamp,omitempty" description:"RFC3339 time the meal was eaten (defaults to now)"`
}

type AnalyzeFoodParams struct {
	UserID      int64  `json:"user_id" description:"ID of the user asking"`
	Description string `json:"description,omitempty" description:"Text description of the meal"`
	PhotoBase64 string `json:"photo_base64,omitempty" description:"Base64-encoded JPEG of the meal"`
}

type DailyTotalParams struct {
	UserID int64  `json:"user_id" description:"ID of the user"`
	Date   string `json:"date,omitempty" description:"Calendar day YYYY-MM-DD (defaults to today)"`
}

type MonthlyReportParams struct {
	UserID int64 `json:"user_id" description:"ID of the user"`
	Year   int   `json:"year" description:"Calendar year"`
	Month  int   `json:"month" description:"Calendar month 1-12"`
}

type SetGoalParams struct {
	UserID           int64  `json:"user_id" description:"ID of the user"`
	DailyCalorieGoal int    `json:"daily_calorie_goal" description:"Daily calorie target, must be positive"`
	WeightGoal       string `json:"weight_goal,omitempty" description:"Optional weight direction: maintain, lose or gain"`
}

type UserParams struct {
	UserID int64 `json:"user_id" description:"ID of the user"`
}

type GoalStatusParams struct {
	UserID int64  `json:"user_id" description:"ID of the user"`
	Date   string `json:"date,omitempty" description:"Calendar day YYYY-MM-DD (defaults to today)"`
}

type PurgeHistoryParams struct {
	ReferenceDate string `json:"reference_date,omitempty" description:"Day the cutoff counts back from, YYYY-MM-DD (defaults to today)"`
	Months        int    `json:"months,omitempty" description:"Retention window in calendar months (defaults to 2)"`
}

var errForbidden = errors.New("user is not allowed")

func isForbidden(err error) bool { return errors.Is(err, errForbidden) }
func isNotFound(err error) bool  { return errors.Is(err, storage.ErrNotFound) }

func extractParams(req *protocol.CallToolRequest, target interface{}) error {
	jsonBytes, err := json.Marshal(req.Arguments)
	if err != nil {
		return fmt.Errorf("marshal arguments: %w", err)
	}
	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return fmt.Errorf("unmarshal parameters: %w", err)
	}
	return nil
}

func (s *Server) authorize(userID int64) error {
	if !s.cfg.UserAllowed(userID) {
		return fmt.Errorf("user %d: %w", userID, errForbidden)
	}
	return nil
}

func parseDay(value string) (time.Time, error) {
	if value == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(models.DayFormat, value)
	if err != nil {
		return time.Time{}, &storage.ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	return t, nil
}

// handleLogMeal is the main flow: recognize the foods, price them, store the
// meal, and report whether this meal pushed the day over the user's goal.
func (s *Server) handleLogMeal(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params LogMealParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if err := s.authorize(params.UserID); err != nil {
		return nil, err
	}
	if params.Description == "" && params.PhotoBase64 == "" {
		return nil, &storage.ValidationError{Field: "description", Reason: "a description or a photo is required"}
	}

	timestamp := time.Now().UTC()
	if params.Timestamp != "" {
		t, err := time.Parse(time.RFC3339, params.Timestamp)
		if err != nil {
			return nil, &storage.ValidationError{Field: "timestamp", Reason: "must be RFC3339"}
		}
		timestamp = t.UTC()
	}

	analysis, err := s.analyze(ctx, params.Description, params.PhotoBase64)
	if err != nil {
		return nil, err
	}
	items := s.nutrition.Resolve(analysis)

	source := "manual"
	if params.PhotoBase64 != "" {
		source = "vision"
	}

	// Snapshot the goal state before and after the insert so the alert fires
	// exactly once, on the meal that crosses the line.
	before, err := s.evaluator.Evaluate(params.UserID, timestamp)
	if err != nil {
		return nil, err
	}

	event := &models.MealEvent{
		UserID:    params.UserID,
		Timestamp: timestamp,
		Foods:     items,
		PhotoRef:  params.PhotoRef,
		Source:    source,
	}
	if _, err := s.store.InsertMeal(event); err != nil {
		return nil, err
	}

	after, err := s.evaluator.Evaluate(params.UserID, timestamp)
	if err != nil {
		return nil, err
	}

	return createJSONResponse(map[string]interface{}{
		"meal":             event,
		"dish_description": analysis.DishDescription,
		"evaluation":       after,
		"goal_alert":       goal.Crossed(before, after),
	})
}

// handleAnalyzeFood prices a meal without logging it, including a what-if
// projection against the user's goal.
func (s *Server) handleAnalyzeFood(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params AnalyzeFoodParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if err := s.authorize(params.UserID); err != nil {
		return nil, err
	}
	if params.Description == "" && params.PhotoBase64 == "" {
		return nil, &storage.ValidationError{Field: "description", Reason: "a description or a photo is required"}
	}

	analysis, err := s.analyze(ctx, params.Description, params.PhotoBase64)
	if err != nil {
		return nil, err
	}
	items := s.nutrition.Resolve(analysis)

	total := 0
	for _, it := range items {
		total += it.Calories
	}

	projection, err := s.evaluator.Project(params.UserID, time.Now().UTC(), total)
	if err != nil {
		return nil, err
	}

	return createJSONResponse(map[string]interface{}{
		"foods":            items,
		"dish_description": analysis.DishDescription,
		"total_calories":   total,
		"projection":       projection,
	})
}

func (s *Server) analyze(ctx context.Context, description, photoBase64 string) (*models.FoodAnalysis, error) {
	if photoBase64 != "" {
		return s.analyzer.AnalyzePhoto(ctx, photoBase64)
	}
	return s.analyzer.AnalyzeText(ctx, description)
}

func (s *Server) handleDailyTotal(_ context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params DailyTotalParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if err := s.authorize(params.UserID); err != nil {
		return nil, err
	}
	date, err := parseDay(params.Date)
	if err != nil {
		return nil, err
	}

	total, err := s.aggregator.DailyTotal(params.UserID, date)
	if err != nil {
		return nil, err
	}
	meals, err := s.store.MealsForDay(params.UserID, date)
	if err != nil {
		return nil, err
	}
	return createJSONResponse(map[string]interface{}{
		"total": total,
		"meals": meals,
	})
}

func (s *Server) handleMonthlyReport(_ context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params MonthlyReportParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if err := s.authorize(params.UserID); err != nil {
		return nil, err
	}
	if params.Month < 1 || params.Month > 12 {
		return nil, &storage.ValidationError{Field: "month", Reason: "must be 1-12"}
	}
	if params.Year < 1970 {
		return nil, &storage.ValidationError{Field: "year", Reason: "must be a full year"}
	}

	rep, err := s.aggregator.MonthlyReport(params.UserID, params.Year, time.Month(params.Month))
	if err != nil {
		return nil, err
	}
	return createJSONResponse(rep)
}

func (s *Server) handleSetGoal(_ context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params SetGoalParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if err := s.authorize(params.UserID); err != nil {
		return nil, err
	}

	var err error
	if params.WeightGoal != "" {
		err = s.store.SetGoalWithWeightTarget(params.UserID, params.DailyCalorieGoal, params.WeightGoal)
	} else {
		err = s.store.SetGoal(params.UserID, params.DailyCalorieGoal)
	}
	if err != nil {
		return nil, err
	}

	settings, err := s.store.GetSettings(params.UserID)
	if err != nil {
		return nil, err
	}
	return createJSONResponse(settings)
}

func (s *Server) handleClearGoal(_ context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params UserParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if err := s.authorize(params.UserID); err != nil {
		return nil, err
	}
	if err := s.store.ClearGoal(params.UserID); err != nil {
		return nil, err
	}
	return createJSONResponse(map[string]interface{}{"user_id": params.UserID, "goal_cleared": true})
}

func (s *Server) handleGoalStatus(_ context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params GoalStatusParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if err := s.authorize(params.UserID); err != nil {
		return nil, err
	}
	date, err := parseDay(params.Date)
	if err != nil {
		return nil, err
	}

	ev, err := s.evaluator.Evaluate(params.UserID, date)
	if err != nil {
		return nil, err
	}
	return createJSONResponse(ev)
}

func (s *Server) handlePurgeHistory(_ context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params PurgeHistoryParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	reference, err := parseDay(params.ReferenceDate)
	if err != nil {
		return nil, err
	}
	months := params.Months
	if months == 0 {
		months = s.cfg.Retention.Months
	}
	if months < 0 {
		return nil, &storage.ValidationError{Field: "months", Reason: "must be positive"}
	}

	rep, err := s.retention.Purge(reference, months)
	if err != nil {
		return nil, err
	}
	return createJSONResponse(rep)
}

func (s *Server) handleDeleteUserData(_ context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params UserParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if err := s.authorize(params.UserID); err != nil {
		return nil, err
	}
	deleted, err := s.store.DeleteUserData(params.UserID)
	if err != nil {
		return nil, err
	}
	return createJSONResponse(map[string]interface{}{"user_id": params.UserID, "deleted_meals": deleted})
}

func (s *Server) handleDatabaseHealth(_ context.Context, _ *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	stats, err := s.store.Health()
	if err != nil {
		return nil, err
	}
	return createJSONResponse(stats)
}
