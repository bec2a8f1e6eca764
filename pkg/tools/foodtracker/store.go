// Package foodtracker exposes the FoodTracker application's tools through
// the gateway. The gateway treats them as opaque call targets; the store
// behind them is a collaborator detail.
package foodtracker

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Meal is one recorded food-log entry.
type Meal struct {
	ID         string    `bson:"_id" json:"id"`
	LoggedAt   time.Time `bson:"logged_at" json:"logged_at"`
	MealType   string    `bson:"meal_type" json:"meal_type"`
	DishName   string    `bson:"dish_name" json:"dish_name"`
	Kcal       float64   `bson:"kcal" json:"kcal"`
	ProteinG   float64   `bson:"protein_g" json:"protein_g"`
	CarbsG     float64   `bson:"carbs_g" json:"carbs_g"`
	FiberG     float64   `bson:"fiber_g" json:"fiber_g"`
	FatG       float64   `bson:"fat_g" json:"fat_g"`
	GoodFatG   float64   `bson:"good_fat_g" json:"good_fat_g"`
	MeatG      float64   `bson:"meat_g" json:"meat_g"`
	RedMeatG   float64   `bson:"red_meat_g" json:"red_meat_g"`
	SodiumMg   float64   `bson:"sodium_mg" json:"sodium_mg"`
	Confidence int       `bson:"confidence" json:"confidence"`
	Notes      string    `bson:"notes,omitempty" json:"notes,omitempty"`
}

// MealStore persists food-log entries.
type MealStore interface {
	Insert(ctx context.Context, meal Meal) error
	// Range returns meals with from <= LoggedAt < to, ordered by LoggedAt.
	Range(ctx context.Context, from, to time.Time) ([]Meal, error)
}

// MemoryStore keeps meals in memory. Used for local no-database runs and
// in tests.
type MemoryStore struct {
	mu    sync.Mutex
	meals []Meal
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Insert(ctx context.Context, meal Meal) error {
	s.mu.Lock()
	s.meals = append(s.meals, meal)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Range(ctx context.Context, from, to time.Time) ([]Meal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Meal
	for _, meal := range s.meals {
		if !meal.LoggedAt.Before(from) && meal.LoggedAt.Before(to) {
			out = append(out, meal)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LoggedAt.Before(out[j].LoggedAt)
	})
	return out, nil
}
