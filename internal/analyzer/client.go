package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"diet-agent/internal/models"
)

const systemPrompt = `You are an expert nutritionist who identifies foods in photos and descriptions.

Analyze the meal and report every visible food with a confidence level, an
estimated portion, and per-food nutrition when you can estimate it.

IMPORTANT: Respond ONLY with valid JSON, no markdown code fences, no prose.

Use exactly this structure:
{
  "foods": [
    {
      "name": "food name",
      "confidence": 0.95,
      "portion_size": "portion description",
      "estimated_grams": 150,
      "nutrition": {"calories": 248, "protein": 46.5, "carbs": 0, "fat": 5.4}
    }
  ],
  "dish_description": "overall description of the dish"
}

If you cannot identify any food, respond: {"error": "no food identified"}`

// Client calls the LLM gateway to recognize foods in a photo or a free-text
// meal description. All network and parse failures degrade to a
// low-confidence fallback rather than an error; a user mid-meal should never
// be blocked by a flaky model.
type Client struct {
	httpClient *http.Client
	gatewayURL string
	apiKey     string
	model      string
}

func New(gatewayURL, apiKey, model string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		gatewayURL: gatewayURL,
		apiKey:     apiKey,
		model:      model,
	}
}

// AnalyzePhoto identifies foods in a base64-encoded JPEG.
func (c *Client) AnalyzePhoto(ctx context.Context, photoBase64 string) (*models.FoodAnalysis, error) {
	userContent := []map[string]interface{}{
		{"type": "text", "text": "Identify every food visible in this meal photo."},
		{"type": "image_url", "image_url": map[string]interface{}{
			"url":    "data:image/jpeg;base64," + photoBase64,
			"detail": "high",
		}},
	}
	return c.analyze(ctx, userContent)
}

// AnalyzeText identifies foods from a typed meal description.
func (c *Client) AnalyzeText(ctx context.Context, description string) (*models.FoodAnalysis, error) {
	userContent := []map[string]interface{}{
		{"type": "text", "text": fmt.Sprintf("Identify the foods in this meal: %q", description)},
	}
	return c.analyze(ctx, userContent)
}

func (c *Client) analyze(ctx context.Context, userContent interface{}) (*models.FoodAnalysis, error) {
	completionRequest := map[string]interface{}{
		"model":         c.model,
		"system_prompt": systemPrompt,
		"messages": []map[string]interface{}{
			{"role": "user", "content": userContent},
		},
		"max_tokens":  2000,
		"temperature": 0.1,
	}

	raw, err := c.callGateway(ctx, "create_completion", completionRequest)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	return ParseAnalysis(raw), nil
}

func (c *Client) callGateway(ctx context.Context, toolName string, args interface{}) (string, error) {
	requestData := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]interface{}{
			"name":      toolName,
			"arguments": args,
		},
	}

	jsonData, err := json.Marshal(requestData)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gatewayURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("gateway status %d: %s", resp.StatusCode, string(body))
	}

	var mcpResponse map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&mcpResponse); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if result, ok := mcpResponse["result"].(map[string]interface{}); ok {
		if content, ok := result["content"].([]interface{}); ok && len(content) > 0 {
			if textContent, ok := content[0].(map[string]interface{}); ok {
				if text, ok := textContent["text"].(string); ok {
					return text, nil
				}
			}
		}
	}
	return "", fmt.Errorf("unexpected gateway response shape")
}

// ParseAnalysis turns raw model output into a FoodAnalysis, tolerating
// markdown fences and surrounding prose. Anything unparseable becomes the
// low-confidence fallback.
func ParseAnalysis(raw string) *models.FoodAnalysis {
	content := stripFences(raw)

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return fallbackAnalysis()
	}

	var analysis models.FoodAnalysis
	if err := json.Unmarshal([]byte(content[start:end+1]), &analysis); err != nil {
		return fallbackAnalysis()
	}
	if len(analysis.Foods) == 0 {
		return fallbackAnalysis()
	}
	return &analysis
}

// stripFences removes a ```json ... ``` wrapper if the model ignored the
// no-markdown instruction.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "```") {
		return s
	}
	if i := strings.Index(s, "```json"); i != -1 {
		s = s[i+len("```json"):]
	} else if i := strings.Index(s, "```"); i != -1 {
		s = s[i+len("```"):]
	}
	if i := strings.Index(s, "```"); i != -1 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func fallbackAnalysis() *models.FoodAnalysis {
	return &models.FoodAnalysis{
		Foods: []models.RecognizedFood{{
			Name:        "unrecognized food",
			Confidence:  0.1,
			PortionSize: "unknown",
		}},
		DishDescription: "analysis unavailable",
	}
}
