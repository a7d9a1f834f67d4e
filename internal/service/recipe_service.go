package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/macrolog/internal/nutrition"
	"github.com/macrolog/internal/store"
)

var (
	// ErrRecipeNotFound 指定食谱不存在
	ErrRecipeNotFound = errors.New("recipe not found")
	// ErrMealPlanNotFound 指定膳食计划不存在
	ErrMealPlanNotFound = errors.New("meal plan not found")
)

// CustomRecipeInput 自定义食谱的可编辑字段
type CustomRecipeInput struct {
	Name         string   `json:"name" validate:"notblank,max=200"`
	Description  string   `json:"description" validate:"max=2000"`
	Ingredients  []string `json:"ingredients" validate:"dive,notblank"`
	Instructions []string `json:"instructions" validate:"dive,notblank"`
	Calories     float64  `json:"calories" validate:"gte=0"`
	Protein      float64  `json:"protein" validate:"gte=0"`
	Carbs        float64  `json:"carbs" validate:"gte=0"`
	Fat          float64  `json:"fat" validate:"gte=0"`
	PrepMinutes  int      `json:"prepMinutes" validate:"gte=0"`
}

func validateRecipes(list []nutrition.Recipe) error {
	for _, recipe := range list {
		if err := recipe.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func validateMealPlans(list []nutrition.MealPlan) error {
	for _, plan := range list {
		if err := plan.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// RecipeService 管理收藏、自定义食谱与膳食计划历史
type RecipeService struct {
	store store.Store
	now   func() time.Time
	mu    sync.Mutex
}

// NewRecipeService 构造 RecipeService
func NewRecipeService(s store.Store) *RecipeService {
	return &RecipeService{store: s, now: time.Now}
}

func (s *RecipeService) loadRecipes(ctx context.Context, key string) ([]nutrition.Recipe, error) {
	list, _, err := store.LoadJSON(ctx, s.store, key, validateRecipes)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []nutrition.Recipe{}
	}
	return list, nil
}

// Favorites 返回收藏列表
func (s *RecipeService) Favorites(ctx context.Context) ([]nutrition.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadRecipes(ctx, store.KeyFavorites)
}

// AddFavorite 收藏食谱，相同 ID 不会重复添加
func (s *RecipeService) AddFavorite(ctx context.Context, recipe nutrition.Recipe) (nutrition.Recipe, error) {
	if strings.TrimSpace(recipe.ID) == "" {
		recipe.ID = uuid.NewString()
	}
	if recipe.Source == "" {
		recipe.Source = nutrition.RecipeSourceAI
	}
	if err := recipe.Validate(); err != nil {
		return nutrition.Recipe{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadRecipes(ctx, store.KeyFavorites)
	if err != nil {
		return nutrition.Recipe{}, err
	}
	for _, existing := range list {
		if existing.ID == recipe.ID {
			return existing, nil
		}
	}
	list = append([]nutrition.Recipe{recipe}, list...)
	if err := store.SaveJSON(ctx, s.store, store.KeyFavorites, list); err != nil {
		return nutrition.Recipe{}, err
	}
	return recipe, nil
}

// RemoveFavorite 取消收藏
func (s *RecipeService) RemoveFavorite(ctx context.Context, id string) error {
	return s.removeRecipe(ctx, store.KeyFavorites, id)
}

// CustomRecipes 返回自定义食谱
func (s *RecipeService) CustomRecipes(ctx context.Context) ([]nutrition.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadRecipes(ctx, store.KeyCustomRecipes)
}

// CreateCustomRecipe 新建自定义食谱
func (s *RecipeService) CreateCustomRecipe(ctx context.Context, input CustomRecipeInput) (nutrition.Recipe, error) {
	if err := validateInput(input); err != nil {
		return nutrition.Recipe{}, err
	}

	recipe := nutrition.Recipe{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(input.Name),
		Description:  strings.TrimSpace(input.Description),
		Ingredients:  trimAll(input.Ingredients),
		Instructions: trimAll(input.Instructions),
		Calories:     input.Calories,
		Protein:      input.Protein,
		Carbs:        input.Carbs,
		Fat:          input.Fat,
		PrepMinutes:  input.PrepMinutes,
		Source:       nutrition.RecipeSourceCustom,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadRecipes(ctx, store.KeyCustomRecipes)
	if err != nil {
		return nutrition.Recipe{}, err
	}
	list = append([]nutrition.Recipe{recipe}, list...)
	if err := store.SaveJSON(ctx, s.store, store.KeyCustomRecipes, list); err != nil {
		return nutrition.Recipe{}, err
	}
	return recipe, nil
}

// DeleteCustomRecipe 删除自定义食谱
func (s *RecipeService) DeleteCustomRecipe(ctx context.Context, id string) error {
	return s.removeRecipe(ctx, store.KeyCustomRecipes, id)
}

func (s *RecipeService) removeRecipe(ctx context.Context, key, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadRecipes(ctx, key)
	if err != nil {
		return err
	}
	for i, recipe := range list {
		if recipe.ID == id {
			list = append(list[:i], list[i+1:]...)
			return store.SaveJSON(ctx, s.store, key, list)
		}
	}
	return ErrRecipeNotFound
}

func (s *RecipeService) loadPlans(ctx context.Context) ([]nutrition.MealPlan, error) {
	plans, _, err := store.LoadJSON(ctx, s.store, store.KeyMealPlans, validateMealPlans)
	if err != nil {
		return nil, err
	}
	if plans == nil {
		plans = []nutrition.MealPlan{}
	}
	return plans, nil
}

// MealPlans 返回膳食计划历史，新的在前
func (s *RecipeService) MealPlans(ctx context.Context) ([]nutrition.MealPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadPlans(ctx)
}

// SavePlan 保存一份计划到历史最前面
func (s *RecipeService) SavePlan(ctx context.Context, plan nutrition.MealPlan) (nutrition.MealPlan, error) {
	if strings.TrimSpace(plan.ID) == "" {
		plan.ID = uuid.NewString()
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = s.now().UTC()
	}
	if err := plan.Validate(); err != nil {
		return nutrition.MealPlan{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	plans, err := s.loadPlans(ctx)
	if err != nil {
		return nutrition.MealPlan{}, err
	}
	plans = append([]nutrition.MealPlan{plan}, plans...)
	if err := store.SaveJSON(ctx, s.store, store.KeyMealPlans, plans); err != nil {
		return nutrition.MealPlan{}, err
	}
	return plan, nil
}

// DeletePlan 删除一份历史计划
func (s *RecipeService) DeletePlan(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plans, err := s.loadPlans(ctx)
	if err != nil {
		return err
	}
	for i, plan := range plans {
		if plan.ID == id {
			plans = append(plans[:i], plans[i+1:]...)
			return store.SaveJSON(ctx, s.store, store.KeyMealPlans, plans)
		}
	}
	return ErrMealPlanNotFound
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
