package analyzer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// ============================================================
// Response parsing
// ============================================================

func TestParseAnalysisPlainJSON(t *testing.T) {
	raw := `{"foods":[{"name":"chicken","confidence":0.9,"portion_size":"1 breast"}],"dish_description":"grilled chicken"}`
	a := ParseAnalysis(raw)
	if len(a.Foods) != 1 || a.Foods[0].Name != "chicken" {
		t.Fatalf("unexpected analysis: %+v", a)
	}
}

func TestParseAnalysisStripsMarkdownFences(t *testing.T) {
	raw := "Here you go:\n```json\n{\"foods\":[{\"name\":\"rice\",\"confidence\":0.8}]}\n```\nEnjoy!"
	a := ParseAnalysis(raw)
	if len(a.Foods) != 1 || a.Foods[0].Name != "rice" {
		t.Fatalf("fenced JSON not parsed: %+v", a)
	}
}

func TestParseAnalysisBareFences(t *testing.T) {
	raw := "```\n{\"foods\":[{\"name\":\"pasta\",\"confidence\":0.7}]}\n```"
	a := ParseAnalysis(raw)
	if len(a.Foods) != 1 || a.Foods[0].Name != "pasta" {
		t.Fatalf("bare-fenced JSON not parsed: %+v", a)
	}
}

func TestParseAnalysisPerFoodNutrition(t *testing.T) {
	raw := `{"foods":[{"name":"chicken","confidence":0.95,"estimated_grams":150,
		"nutrition":{"calories":248,"protein":46.5,"carbs":0,"fat":5.4}}]}`
	a := ParseAnalysis(raw)
	if a.Foods[0].Nutrition == nil || a.Foods[0].Nutrition.Calories != 248 {
		t.Fatalf("per-food nutrition lost: %+v", a.Foods[0])
	}
	if a.Foods[0].Grams != 150 {
		t.Fatalf("grams lost: %+v", a.Foods[0])
	}
}

func TestParseAnalysisGarbageFallsBack(t *testing.T) {
	for _, raw := range []string{
		"I cannot analyze this image.",
		"{not valid json",
		`{"error": "no food identified"}`,
		"",
	} {
		a := ParseAnalysis(raw)
		if len(a.Foods) != 1 || a.Foods[0].Confidence != 0.1 {
			t.Fatalf("expected low-confidence fallback for %q, got %+v", raw, a)
		}
	}
}

// ============================================================
// Gateway round trip
// ============================================================

func TestAnalyzeTextRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing auth header")
		}
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if req["method"] != "tools/call" {
			t.Errorf("unexpected method %v", req["method"])
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      1,
			"result": map[string]interface{}{
				"content": []map[string]interface{}{
					{"type": "text", "text": `{"foods":[{"name":"pizza","confidence":0.92,"portion_size":"2 slices"}]}`},
				},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", "test-model")
	a, err := c.AnalyzeText(context.Background(), "two slices of pizza")
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Foods) != 1 || a.Foods[0].Name != "pizza" {
		t.Fatalf("unexpected analysis: %+v", a)
	}
}

func TestAnalyzeGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, "k", "m")
	if _, err := c.AnalyzeText(context.Background(), "anything"); err == nil {
		t.Fatal("expected an error on gateway failure")
	}
}
