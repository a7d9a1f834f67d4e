package nutrition

import (
	"fmt"
	"strings"
	"time"
)

// RecipeSource 标记食谱来源
type RecipeSource string

const (
	RecipeSourceAI     RecipeSource = "ai"
	RecipeSourceCustom RecipeSource = "custom"
)

// Recipe 描述一道食谱以及每份的营养估算
type Recipe struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description,omitempty"`
	Ingredients  []string     `json:"ingredients,omitempty"`
	Instructions []string     `json:"instructions,omitempty"`
	Calories     float64      `json:"calories"`
	Protein      float64      `json:"protein"`
	Carbs        float64      `json:"carbs"`
	Fat          float64      `json:"fat"`
	PrepMinutes  int          `json:"prepMinutes,omitempty"`
	Source       RecipeSource `json:"source"`
}

// Validate 检查食谱名称与营养数值
func (r Recipe) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: recipe id is required", ErrInvalidEntry)
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: recipe name is required", ErrInvalidEntry)
	}
	if r.Calories < 0 || r.Protein < 0 || r.Carbs < 0 || r.Fat < 0 || r.PrepMinutes < 0 {
		return fmt.Errorf("%w: recipe nutrition must not be negative", ErrInvalidEntry)
	}
	return nil
}

// PlannedMeal 是膳食计划中的一餐
type PlannedMeal struct {
	Slot     string  `json:"slot"`
	Name     string  `json:"name"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
}

// PlanDay 是膳食计划中的一天
type PlanDay struct {
	Day   string        `json:"day"`
	Meals []PlannedMeal `json:"meals"`
}

// MealPlanDays 每份膳食计划固定覆盖的天数
const MealPlanDays = 3

// MealPlan 是 AI 生成的三日膳食计划
type MealPlan struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Days      []PlanDay `json:"days"`
	Notes     string    `json:"notes,omitempty"`
}

// Validate 要求计划正好包含三天且每天至少一餐
func (m MealPlan) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("%w: meal plan id is required", ErrInvalidEntry)
	}
	if len(m.Days) != MealPlanDays {
		return fmt.Errorf("%w: meal plan must cover %d days, got %d", ErrInvalidEntry, MealPlanDays, len(m.Days))
	}
	for _, day := range m.Days {
		if len(day.Meals) == 0 {
			return fmt.Errorf("%w: plan day %q has no meals", ErrInvalidEntry, day.Day)
		}
		for _, meal := range day.Meals {
			if strings.TrimSpace(meal.Name) == "" || meal.Calories < 0 || meal.Protein < 0 {
				return fmt.Errorf("%w: plan day %q has an invalid meal", ErrInvalidEntry, day.Day)
			}
		}
	}
	return nil
}

// Theme 界面主题偏好
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Valid 判断主题是否受支持
func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}
