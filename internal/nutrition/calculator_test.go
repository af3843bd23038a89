package nutrition

import (
	"testing"

	"diet-agent/internal/models"
)

// ============================================================
// Lookup
// ============================================================

func TestLookupExactAndSubstring(t *testing.T) {
	c := NewCalculator()

	if f, ok := c.Lookup("chicken"); !ok || f.Calories != 165 {
		t.Fatalf("exact lookup failed: %v %v", f, ok)
	}
	if f, ok := c.Lookup("grilled chicken breast"); !ok || f.Calories != 165 {
		t.Fatalf("substring lookup failed: %v %v", f, ok)
	}
	if _, ok := c.Lookup("mystery stew"); ok {
		t.Fatal("unknown food must not match")
	}
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	c := NewCalculator()
	if _, ok := c.Lookup("  Chicken "); !ok {
		t.Fatal("expected trimmed, lowercased match")
	}
}

// ============================================================
// Portion estimation
// ============================================================

func TestPortionGrams(t *testing.T) {
	c := NewCalculator()
	cases := []struct {
		name string
		desc string
		want float64
	}{
		{"rice", "", 80},
		{"mystery stew", "", 100}, // no typical portion
		{"bread", "2 slices", 60},
		{"cookie", "4 cookies", 100}, // per-unit foods multiply fully
		{"rice", "6 servings", 240},  // capped at 3x
		{"apple", "large", 225},
		{"apple", "small", 105},
		{"pizza", "huge slice", 200},
		{"bread", "two slices", 60},
	}
	for _, tc := range cases {
		got := c.PortionGrams(tc.name, tc.desc)
		if got != tc.want {
			t.Errorf("PortionGrams(%q, %q) = %v, want %v", tc.name, tc.desc, got, tc.want)
		}
	}
}

// ============================================================
// Resolve
// ============================================================

func TestResolveUsesAnalyzerNutritionWhenPresent(t *testing.T) {
	c := NewCalculator()
	items := c.Resolve(&models.FoodAnalysis{Foods: []models.RecognizedFood{{
		Name:       "chicken",
		Confidence: 0.9,
		Grams:      200,
		Nutrition:  &models.FoodNutrition{Calories: 412.4, Protein: 62, Carbs: 0, Fat: 7.2},
	}}})

	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	// Analyzer numbers pass through untouched, no confidence scaling.
	if items[0].Calories != 412 || items[0].Protein != 62 || items[0].Grams != 200 {
		t.Fatalf("unexpected item: %+v", items[0])
	}
}

func TestResolveFallsBackToTable(t *testing.T) {
	c := NewCalculator()
	items := c.Resolve(&models.FoodAnalysis{Foods: []models.RecognizedFood{{
		Name:       "rice",
		Confidence: 1.0,
	}}})

	// 130 kcal/100g at the 80g typical serving.
	if items[0].Calories != 104 {
		t.Fatalf("expected 104 kcal, got %d", items[0].Calories)
	}
	if items[0].Grams != 80 {
		t.Fatalf("expected 80g, got %v", items[0].Grams)
	}
}

func TestResolveScalesFallbackByConfidence(t *testing.T) {
	c := NewCalculator()
	items := c.Resolve(&models.FoodAnalysis{Foods: []models.RecognizedFood{{
		Name:       "rice",
		Confidence: 0.5,
	}}})
	if items[0].Calories != 52 {
		t.Fatalf("expected 52 kcal at half confidence, got %d", items[0].Calories)
	}
}

func TestResolveUnknownFoodGetsFlatEstimate(t *testing.T) {
	c := NewCalculator()
	items := c.Resolve(&models.FoodAnalysis{Foods: []models.RecognizedFood{{
		Name:       "mystery stew",
		Confidence: 0.8,
	}}})
	if items[0].Calories != unknownFoodCalories {
		t.Fatalf("expected flat estimate, got %d", items[0].Calories)
	}
	if items[0].Protein != 0 || items[0].Grams != 0 {
		t.Fatalf("unknown food should carry no macros: %+v", items[0])
	}
}

func TestResolveEmptyAnalysis(t *testing.T) {
	c := NewCalculator()
	if items := c.Resolve(nil); items != nil {
		t.Fatal("nil analysis should yield nil")
	}
	if items := c.Resolve(&models.FoodAnalysis{}); items != nil {
		t.Fatal("empty analysis should yield nil")
	}
}
