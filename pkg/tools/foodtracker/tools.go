package foodtracker

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/heizer23/Atlas/pkg/mcp"
)

var logMealSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"dish_name":  {"type": "string", "description": "Name of the dish"},
		"meal_type":  {"type": "string", "description": "breakfast | lunch | dinner | snack | other"},
		"kcal":       {"type": "number"},
		"protein_g":  {"type": "number"},
		"carbs_g":    {"type": "number"},
		"fat_g":      {"type": "number"},
		"fiber_g":    {"type": "number", "default": 0},
		"good_fat_g": {"type": "number", "default": 0},
		"meat_g":     {"type": "number", "default": 0},
		"red_meat_g": {"type": "number", "default": 0},
		"sodium_mg":  {"type": "number", "default": 0},
		"confidence": {"type": "integer", "minimum": 1, "maximum": 5, "default": 3},
		"notes":      {"type": "string"},
		"logged_at":  {"type": "string", "description": "ISO 8601 datetime, e.g. 2026-02-22T19:00:00, defaults to now"}
	},
	"required": ["dish_name", "meal_type", "kcal", "protein_g", "carbs_g", "fat_g"]
}`)

var summarySchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"from_date": {"type": "string", "description": "ISO date, inclusive, e.g. 2026-02-01"},
		"to_date":   {"type": "string", "description": "ISO date, inclusive, e.g. 2026-02-22"}
	},
	"required": ["from_date", "to_date"]
}`)

// Tools returns the FoodTracker tool descriptors bound to the given
// store.
func Tools(store MealStore) []mcp.Tool {
	return []mcp.Tool{
		{
			Name:        "log_meal",
			Description: "Record a meal in the food log with estimated nutritional values. Returns the inserted entry.",
			InputSchema: logMealSchema,
			Handler:     logMealHandler(store),
		},
		{
			Name:        "get_nutrition_summary",
			Description: "Get aggregated nutrition totals and daily averages for an inclusive date range.",
			InputSchema: summarySchema,
			Handler:     summaryHandler(store),
		},
	}
}

func logMealHandler(store MealStore) mcp.ToolHandler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		meal := Meal{
			ID:         uuid.NewString(),
			LoggedAt:   time.Now(),
			MealType:   stringArg(args, "meal_type"),
			DishName:   stringArg(args, "dish_name"),
			Kcal:       floatArg(args, "kcal"),
			ProteinG:   floatArg(args, "protein_g"),
			CarbsG:     floatArg(args, "carbs_g"),
			FiberG:     floatArg(args, "fiber_g"),
			FatG:       floatArg(args, "fat_g"),
			GoodFatG:   floatArg(args, "good_fat_g"),
			MeatG:      floatArg(args, "meat_g"),
			RedMeatG:   floatArg(args, "red_meat_g"),
			SodiumMg:   floatArg(args, "sodium_mg"),
			Confidence: 3,
			Notes:      stringArg(args, "notes"),
		}

		if c, ok := args["confidence"].(float64); ok {
			meal.Confidence = int(c)
		}
		if raw := stringArg(args, "logged_at"); raw != "" {
			ts, err := parseLoggedAt(raw)
			if err != nil {
				return fmt.Sprintf("logged_at %q is not a valid ISO 8601 datetime", raw), nil
			}
			meal.LoggedAt = ts
		}
		if meal.GoodFatG > meal.FatG {
			return "good_fat_g must not exceed fat_g", nil
		}
		if meal.RedMeatG > meal.MeatG {
			return "red_meat_g must not exceed meat_g", nil
		}

		if err := store.Insert(ctx, meal); err != nil {
			return "", fmt.Errorf("failed to store meal: %w", err)
		}

		row, err := json.Marshal(meal)
		if err != nil {
			return "", err
		}
		return string(row), nil
	}
}

// mealSummary is the lightweight per-meal view in summary responses.
type mealSummary struct {
	ID         string  `json:"id"`
	LoggedAt   string  `json:"logged_at"`
	MealType   string  `json:"meal_type"`
	DishName   string  `json:"dish_name"`
	Kcal       float64 `json:"kcal"`
	ProteinG   float64 `json:"protein_g"`
	CarbsG     float64 `json:"carbs_g"`
	FatG       float64 `json:"fat_g"`
	Confidence int     `json:"confidence"`
}

func summaryHandler(store MealStore) mcp.ToolHandler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		from, err := time.Parse("2006-01-02", stringArg(args, "from_date"))
		if err != nil {
			return "from_date must be an ISO date like 2026-02-01", nil
		}
		to, err := time.Parse("2006-01-02", stringArg(args, "to_date"))
		if err != nil {
			return "to_date must be an ISO date like 2026-02-22", nil
		}

		meals, err := store.Range(ctx, from, to.AddDate(0, 0, 1))
		if err != nil {
			return "", fmt.Errorf("failed to query food log: %w", err)
		}

		totals := map[string]float64{}
		days := map[string]bool{}
		summaries := make([]mealSummary, 0, len(meals))
		for _, meal := range meals {
			totals["total_kcal"] += meal.Kcal
			totals["total_protein_g"] += meal.ProteinG
			totals["total_carbs_g"] += meal.CarbsG
			totals["total_fiber_g"] += meal.FiberG
			totals["total_fat_g"] += meal.FatG
			totals["total_good_fat_g"] += meal.GoodFatG
			totals["total_meat_g"] += meal.MeatG
			totals["total_red_meat_g"] += meal.RedMeatG
			totals["total_sodium_mg"] += meal.SodiumMg
			days[meal.LoggedAt.Format("2006-01-02")] = true

			summaries = append(summaries, mealSummary{
				ID:         meal.ID,
				LoggedAt:   meal.LoggedAt.Format(time.RFC3339),
				MealType:   meal.MealType,
				DishName:   meal.DishName,
				Kcal:       meal.Kcal,
				ProteinG:   meal.ProteinG,
				CarbsG:     meal.CarbsG,
				FatG:       meal.FatG,
				Confidence: meal.Confidence,
			})
		}

		dayCount := len(days)
		divisor := float64(dayCount)
		if divisor == 0 {
			divisor = 1
		}
		averages := map[string]float64{}
		for key, total := range totals {
			averages["avg_"+key[len("total_"):]] = round1(total / divisor)
		}
		rounded := map[string]float64{}
		for key, total := range totals {
			rounded[key] = round1(total)
		}

		result := map[string]any{
			"period":         map[string]string{"from": stringArg(args, "from_date"), "to": stringArg(args, "to_date")},
			"totals":         rounded,
			"meal_count":     len(meals),
			"day_count":      dayCount,
			"daily_averages": averages,
			"meals":          summaries,
		}

		out, err := json.Marshal(result)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}

// parseLoggedAt accepts RFC 3339 timestamps as well as offset-less ones
// like "2026-02-22T19:00:00", which clients logging local times send.
func parseLoggedAt(raw string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339, raw)
	if err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02T15:04:05", raw)
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func floatArg(args map[string]any, key string) float64 {
	f, _ := args[key].(float64)
	return f
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
