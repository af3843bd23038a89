package nutrition

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"diet-agent/internal/models"
)

// unknownFoodCalories is charged for any food the analyzer named but neither
// it nor the local table can price. Better a rough number than a silent zero.
const unknownFoodCalories = 50

// defaultPortionGrams is used when a food has no typical-portion entry.
const defaultPortionGrams = 100

var leadingNumber = regexp.MustCompile(`\d+`)

// Calculator turns recognized foods into priced food items. Analyzer-supplied
// nutrition always wins; the built-in table is the fallback.
type Calculator struct {
	table    map[string]Facts
	portions map[string]float64
}

func NewCalculator() *Calculator {
	return &Calculator{table: foodTable, portions: typicalPortions}
}

// Resolve converts a food analysis into meal items with calories and macros
// filled in. Every recognized food yields exactly one item, unknown ones at a
// flat estimate.
func (c *Calculator) Resolve(analysis *models.FoodAnalysis) []models.FoodItem {
	if analysis == nil || len(analysis.Foods) == 0 {
		return nil
	}

	items := make([]models.FoodItem, 0, len(analysis.Foods))
	for _, f := range analysis.Foods {
		items = append(items, c.resolveOne(f))
	}
	return items
}

func (c *Calculator) resolveOne(f models.RecognizedFood) models.FoodItem {
	item := models.FoodItem{
		Name:       f.Name,
		Quantity:   f.PortionSize,
		Confidence: f.Confidence,
	}

	if f.Nutrition != nil {
		item.Grams = f.Grams
		item.Calories = int(math.Round(f.Nutrition.Calories))
		item.Protein = f.Nutrition.Protein
		item.Carbs = f.Nutrition.Carbs
		item.Fat = f.Nutrition.Fat
		return item
	}

	name := strings.ToLower(strings.TrimSpace(f.Name))
	facts, ok := c.Lookup(name)
	if !ok {
		item.Calories = unknownFoodCalories
		return item
	}

	grams := c.PortionGrams(name, f.PortionSize)
	// Scale fallback estimates by confidence so a shaky identification does
	// not inflate the day's total.
	conf := f.Confidence
	if conf <= 0 || conf > 1 {
		conf = 1
	}
	factor := grams / 100 * conf

	item.Grams = grams
	item.Calories = int(math.Round(facts.Calories * factor))
	item.Protein = round1(facts.Protein * factor)
	item.Carbs = round1(facts.Carbs * factor)
	item.Fat = round1(facts.Fat * factor)
	return item
}

// Lookup finds per-100g facts by exact name first, then by substring match in
// either direction ("grilled chicken" hits "chicken").
func (c *Calculator) Lookup(name string) (Facts, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if f, ok := c.table[name]; ok {
		return f, true
	}
	for key, f := range c.table {
		if strings.Contains(name, key) || strings.Contains(key, name) {
			return f, true
		}
	}
	return Facts{}, false
}

// PortionGrams estimates a serving weight from the food's typical portion and
// a free-text portion description ("2 slices", "large bowl").
func (c *Calculator) PortionGrams(name, description string) float64 {
	base, ok := c.portions[name]
	if !ok {
		base = defaultPortionGrams
	}
	if description == "" {
		return base
	}

	desc := strings.ToLower(description)

	if m := leadingNumber.FindString(desc); m != "" {
		n, _ := strconv.Atoi(m)
		if n > 0 {
			// Per-unit foods multiply straight; everything else is capped so a
			// misread "20" does not produce a 2 kg plate.
			if strings.Contains(name, "cookie") {
				return base * float64(n)
			}
			if n > 3 {
				n = 3
			}
			return base * float64(n)
		}
	}

	switch {
	case containsAny(desc, "two", "pair"):
		return base * 2
	case containsAny(desc, "three"):
		return base * 3
	case containsAny(desc, "four"):
		return base * 4
	case containsAny(desc, "five"):
		return base * 5
	}

	switch {
	case containsAny(desc, "huge", "giant", "extra large"):
		return base * 2.0
	case containsAny(desc, "large", "big"):
		return base * 1.5
	case containsAny(desc, "small", "mini"):
		return base * 0.7
	}
	return base
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
