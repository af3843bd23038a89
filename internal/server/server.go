package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/gin-gonic/gin"

	"diet-agent/internal/config"
	"diet-agent/internal/goal"
	"diet-agent/internal/logger"
	"diet-agent/internal/models"
	"diet-agent/internal/nutrition"
	"diet-agent/internal/report"
	"diet-agent/internal/retention"
	"diet-agent/internal/storage"
)

// FoodAnalyzer recognizes foods in a photo or a text description.
type FoodAnalyzer interface {
	AnalyzePhoto(ctx context.Context, photoBase64 string) (*models.FoodAnalysis, error)
	AnalyzeText(ctx context.Context, description string) (*models.FoodAnalysis, error)
}

// Server exposes the meal ledger as MCP-style tools over HTTP, plus liveness
// probes for the orchestrator.
type Server struct {
	cfg        *config.Config
	log        *logger.Logger
	store      *storage.Store
	analyzer   FoodAnalyzer
	nutrition  *nutrition.Calculator
	aggregator *report.Aggregator
	evaluator  *goal.Evaluator
	retention  *retention.Manager

	engine     *gin.Engine
	httpServer *http.Server
}

func New(cfg *config.Config, log *logger.Logger, store *storage.Store, analyzer FoodAnalyzer) *Server {
	agg := report.New(store)
	s := &Server{
		cfg:        cfg,
		log:        log,
		store:      store,
		analyzer:   analyzer,
		nutrition:  nutrition.NewCalculator(),
		aggregator: agg,
		evaluator:  goal.New(store, agg),
		retention:  retention.New(store, log, cfg.Retention.ExportDir),
	}

	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/read-probe", s.handleReadProbe)
	engine.GET("/check-live", s.handleCheckLive)
	engine.POST("/", s.handleToolCall)

	s.engine = engine
	s.httpServer = &http.Server{
		Addr:    cfg.Addr(),
		Handler: engine,
	}
	return s
}

// Start blocks serving HTTP until the listener fails or Stop is called.
func (s *Server) Start() error {
	s.log.Info("server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop drains in-flight requests and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleReadProbe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleCheckLive(c *gin.Context) {
	stats, err := s.store.Health()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": stats})
}

// handleToolCall routes an MCP tool-call request to its handler. The wire
// format is a bare protocol.CallToolRequest in the POST body, a text-content
// CallToolResult out.
func (s *Server) handleToolCall(c *gin.Context) {
	var request protocol.CallToolRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request: %v", err)})
		return
	}

	handler, ok := s.toolHandlers()[request.Name]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown tool: %s", request.Name)})
		return
	}

	started := time.Now()
	result, err := handler(c.Request.Context(), &request)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case storage.IsValidation(err):
			status = http.StatusBadRequest
		case isNotFound(err):
			status = http.StatusNotFound
		case isForbidden(err):
			status = http.StatusForbidden
		}
		s.log.Warn("tool call failed", "tool", request.Name, "error", err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	s.log.Debug("tool call served", "tool", request.Name, "elapsed", time.Since(started))
	c.JSON(http.StatusOK, result)
}

func (s *Server) toolHandlers() map[string]toolHandler {
	return map[string]toolHandler{
		"log_meal":         s.handleLogMeal,
		"analyze_food":     s.handleAnalyzeFood,
		"daily_total":      s.handleDailyTotal,
		"monthly_report":   s.handleMonthlyReport,
		"set_goal":         s.handleSetGoal,
		"clear_goal":       s.handleClearGoal,
		"goal_status":      s.handleGoalStatus,
		"purge_history":    s.handlePurgeHistory,
		"delete_user_data": s.handleDeleteUserData,
		"database_health":  s.handleDatabaseHealth,
	}
}

type toolHandler func(context.Context, *protocol.CallToolRequest) (*protocol.CallToolResult, error)

func createJSONResponse(data interface{}) (*protocol.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal response: %w", err)
	}
	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: string(jsonBytes),
			},
		},
	}, nil
}
