package nutrition

// Facts is nutrition per 100 grams.
type Facts struct {
	Calories float64
	Protein  float64
	Carbs    float64
	Fat      float64
}

// foodTable is the built-in per-100g fallback used when the analyzer does not
// supply its own nutrition. Values are for common preparations.
var foodTable = map[string]Facts{
	// proteins
	"chicken": {165, 31, 0, 3.6},
	"beef":    {250, 26, 0, 17},
	"fish":    {150, 30, 0, 3},
	"egg":     {155, 13, 1.1, 11},
	"beans":   {127, 9, 23, 0.5},
	"lentils": {116, 9, 20, 0.4},

	// carbs
	"rice":   {130, 2.7, 28, 0.3},
	"pasta":  {131, 5, 25, 1.1},
	"bread":  {265, 9, 49, 3.2},
	"potato": {77, 2, 17, 0.1},
	"quinoa": {120, 4.4, 22, 1.9},

	// vegetables
	"lettuce":  {15, 1.4, 2.9, 0.2},
	"tomato":   {18, 0.9, 3.9, 0.2},
	"onion":    {40, 1.1, 9.3, 0.1},
	"carrot":   {41, 0.9, 9.6, 0.2},
	"broccoli": {34, 2.8, 7, 0.4},

	// fruit
	"apple":      {52, 0.3, 14, 0.2},
	"banana":     {89, 1.1, 23, 0.3},
	"orange":     {47, 0.9, 12, 0.1},
	"strawberry": {32, 0.7, 7.7, 0.3},

	// fats
	"avocado": {160, 2, 9, 15},
	"walnut":  {654, 15, 14, 65},
	"almond":  {579, 21, 22, 50},

	// snacks
	"cookie":       {502, 6.9, 68.8, 22.9},
	"oreo cookie":  {477, 4.4, 68.8, 20.6},
	"maria cookie": {428, 7.2, 74.3, 11.4},
	"chips":        {536, 6.6, 53.0, 34.6},
	"french fries": {365, 4.0, 63.2, 12.8},
	"chocolate":    {546, 4.9, 61.2, 31.3},
	"candy":        {394, 0.0, 98.0, 0.2},

	// dairy
	"milk":         {42, 3.4, 5.0, 1.0},
	"yogurt":       {59, 10.0, 3.6, 0.4},
	"cheese":       {402, 25.0, 1.3, 33.0},
	"fresh cheese": {264, 11.1, 4.1, 23.0},

	// breakfast
	"oats":    {389, 16.9, 66.3, 6.9},
	"cereal":  {379, 7.5, 84.0, 2.7},
	"granola": {471, 10.1, 64.3, 20.3},

	// drinks
	"juice":  {45, 0.7, 11.2, 0.2},
	"soda":   {42, 0.0, 10.6, 0.0},
	"coffee": {2, 0.3, 0.0, 0.0},

	// prepared dishes
	"pizza":    {266, 11.0, 33.0, 10.0},
	"burger":   {295, 17.0, 31.0, 12.0},
	"sandwich": {304, 12.8, 41.8, 10.7},
	"empanada": {245, 8.5, 24.0, 13.2},

	// other
	"oil":    {884, 0, 0, 100},
	"butter": {717, 0.9, 0.1, 81},
}

// typicalPortions maps food to a default serving weight in grams. Cookies are
// listed per unit so a count in the portion description multiplies cleanly.
var typicalPortions = map[string]float64{
	"chicken": 150, // small breast
	"beef":    120,
	"fish":    140, // fillet
	"egg":     50,  // one egg

	"rice":   80, // cooked serving
	"pasta":  100,
	"bread":  30, // one slice
	"potato": 150,

	"lettuce": 50,
	"tomato":  100,

	"apple":   150,
	"banana":  120,
	"avocado": 100, // half

	"cookie":       25,
	"oreo cookie":  11,
	"maria cookie": 7,
	"chips":        30,
	"french fries": 50,
	"chocolate":    25, // one square

	"milk":   250, // glass
	"yogurt": 125, // single cup
	"cheese": 30,  // slice

	"juice":  200,
	"soda":   350, // can
	"coffee": 240, // cup
}
