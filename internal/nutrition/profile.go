package nutrition

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrInvalidProfile 在档案缺少必填字段或取值非法时返回
var ErrInvalidProfile = errors.New("invalid profile")

// WeightPoint 是体重历史中的一个点，每个日期最多一条
type WeightPoint struct {
	Date     string  `json:"date"`
	WeightKg float64 `json:"weightKg"`
}

// Profile 保存用户身体数据与目标。身高固定以厘米存储，体重固定以公斤存储。
type Profile struct {
	Name              string            `json:"name"`
	Email             string            `json:"email"`
	Avatar            string            `json:"avatar"`
	Age               int               `json:"age,omitempty"`
	HeightCm          float64           `json:"heightCm,omitempty"`
	CurrentWeightKg   float64           `json:"currentWeightKg,omitempty"`
	GoalWeightKg      float64           `json:"goalWeightKg,omitempty"`
	ActivityLevel     ActivityLevel     `json:"activityLevel,omitempty"`
	FitnessGoal       FitnessGoal       `json:"fitnessGoal,omitempty"`
	DietaryPreference DietaryPreference `json:"dietaryPreference,omitempty"`
	CalorieGoal       *int              `json:"calorieGoal,omitempty"`
	UnitSystem        UnitSystem        `json:"unitSystem,omitempty"`
	WeightHistory     []WeightPoint     `json:"weightHistory,omitempty"`
}

// Validate 检查必填的账户字段以及枚举、数值范围
func (p Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Email) == "" || strings.TrimSpace(p.Avatar) == "" {
		return fmt.Errorf("%w: name, email and avatar are required", ErrInvalidProfile)
	}
	if p.Age < 0 || p.HeightCm < 0 || p.CurrentWeightKg < 0 || p.GoalWeightKg < 0 {
		return fmt.Errorf("%w: biometrics must not be negative", ErrInvalidProfile)
	}
	if p.ActivityLevel != "" && !p.ActivityLevel.Valid() {
		return fmt.Errorf("%w: unknown activity level %q", ErrInvalidProfile, p.ActivityLevel)
	}
	if p.FitnessGoal != "" && !p.FitnessGoal.Valid() {
		return fmt.Errorf("%w: unknown fitness goal %q", ErrInvalidProfile, p.FitnessGoal)
	}
	if p.DietaryPreference != "" && !p.DietaryPreference.Valid() {
		return fmt.Errorf("%w: unknown dietary preference %q", ErrInvalidProfile, p.DietaryPreference)
	}
	if p.UnitSystem != "" && p.UnitSystem != UnitMetric && p.UnitSystem != UnitImperial {
		return fmt.Errorf("%w: unknown unit system %q", ErrInvalidProfile, p.UnitSystem)
	}
	if p.CalorieGoal != nil && *p.CalorieGoal < 0 {
		return fmt.Errorf("%w: calorie goal must not be negative", ErrInvalidProfile)
	}
	seen := make(map[string]struct{}, len(p.WeightHistory))
	for _, point := range p.WeightHistory {
		if _, err := time.Parse(DateLayout, point.Date); err != nil {
			return fmt.Errorf("%w: bad weight history date %q", ErrInvalidProfile, point.Date)
		}
		if _, dup := seen[point.Date]; dup {
			return fmt.Errorf("%w: duplicate weight history date %q", ErrInvalidProfile, point.Date)
		}
		if point.WeightKg <= 0 {
			return fmt.Errorf("%w: weight history values must be positive", ErrInvalidProfile)
		}
		seen[point.Date] = struct{}{}
	}
	return nil
}

// Units 返回当前展示单位制，空值视为公制
func (p Profile) Units() UnitSystem {
	return ParseUnitSystem(string(p.UnitSystem))
}

// SuggestedCalorieGoal 根据身体数据估算建议热量，数据不全时为 0
func (p Profile) SuggestedCalorieGoal() int {
	return EstimateCalorieGoal(p.Age, p.HeightCm, p.CurrentWeightKg, p.ActivityLevel, p.FitnessGoal)
}

// EffectiveCalorieGoal 优先使用用户显式设置的目标
func (p Profile) EffectiveCalorieGoal() int {
	if p.CalorieGoal != nil && *p.CalorieGoal > 0 {
		return *p.CalorieGoal
	}
	return p.SuggestedCalorieGoal()
}

// RecordWeight 记录某日体重，同一天重复记录会覆盖旧值。
// 若该日期是历史中最新的一天，同步更新当前体重。
func (p *Profile) RecordWeight(date string, weightKg float64) {
	replaced := false
	for i := range p.WeightHistory {
		if p.WeightHistory[i].Date == date {
			p.WeightHistory[i].WeightKg = weightKg
			replaced = true
			break
		}
	}
	if !replaced {
		p.WeightHistory = append(p.WeightHistory, WeightPoint{Date: date, WeightKg: weightKg})
	}

	// ISO 日期按字典序即按时间排序
	sort.Slice(p.WeightHistory, func(i, j int) bool {
		return p.WeightHistory[i].Date < p.WeightHistory[j].Date
	})

	if p.WeightHistory[len(p.WeightHistory)-1].Date == date {
		p.CurrentWeightKg = weightKg
	}
}
