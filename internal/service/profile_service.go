package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/macrolog/internal/nutrition"
	"github.com/macrolog/internal/store"
)

var (
	// ErrProfileNotFound 在尚未注册档案时返回
	ErrProfileNotFound = errors.New("profile not found")
	// ErrProfileExists 在已有有效档案时重复创建返回
	ErrProfileExists = errors.New("profile already exists")
)

// SignUpInput 注册时填写的基础信息
type SignUpInput struct {
	Name   string `json:"name" validate:"notblank"`
	Email  string `json:"email" validate:"required,email"`
	Avatar string `json:"avatar" validate:"notblank"`
}

// ProfileUpdate 描述档案的局部更新，nil 字段保持不变。
// 体重按更新后的单位制解释；英制下可用 HeightFeet/HeightInches 代替 HeightCm。
type ProfileUpdate struct {
	Name              *string  `json:"name" validate:"omitnil,notblank"`
	Email             *string  `json:"email" validate:"omitnil,email"`
	Avatar            *string  `json:"avatar" validate:"omitnil,notblank"`
	Age               *int     `json:"age" validate:"omitnil,gte=0,lte=150"`
	UnitSystem        *string  `json:"unitSystem" validate:"omitnil,oneof=metric imperial"`
	HeightCm          *float64 `json:"heightCm" validate:"omitnil,gte=0"`
	HeightFeet        *float64 `json:"heightFeet" validate:"omitnil,gte=0"`
	HeightInches      *float64 `json:"heightInches" validate:"omitnil,gte=0"`
	CurrentWeight     *float64 `json:"currentWeight" validate:"omitnil,gte=0"`
	GoalWeight        *float64 `json:"goalWeight" validate:"omitnil,gte=0"`
	ActivityLevel     *string  `json:"activityLevel"`
	FitnessGoal       *string  `json:"fitnessGoal"`
	DietaryPreference *string  `json:"dietaryPreference"`
	// CalorieGoal 为 0 时清除显式目标，改用估算值
	CalorieGoal *int `json:"calorieGoal" validate:"omitnil,gte=0"`
}

// ProfileView 是按当前单位制换算后的展示数据
type ProfileView struct {
	nutrition.Profile
	SignedUp             bool    `json:"signedUp"`
	DisplayWeight        float64 `json:"displayWeight"`
	DisplayGoalWeight    float64 `json:"displayGoalWeight"`
	WeightUnit           string  `json:"weightUnit"`
	DisplayHeightCm      float64 `json:"displayHeightCm,omitempty"`
	DisplayHeightFeet    int     `json:"displayHeightFeet,omitempty"`
	DisplayHeightInches  int     `json:"displayHeightInches,omitempty"`
	SuggestedCalorieGoal int     `json:"suggestedCalorieGoal"`
	EffectiveCalorieGoal int     `json:"effectiveCalorieGoal"`
}

// ProfileService 管理单例用户档案
type ProfileService struct {
	store store.Store
	now   func() time.Time
}

// NewProfileService 构造 ProfileService
func NewProfileService(s store.Store) *ProfileService {
	return &ProfileService{store: s, now: time.Now}
}

// SetClock 覆盖时钟，主要用于测试
func (s *ProfileService) SetClock(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	s.now = now
}

// Load 读取档案。记录不存在或已损坏时返回 false，调用方应回到注册状态。
func (s *ProfileService) Load(ctx context.Context) (nutrition.Profile, bool, error) {
	profile, status, err := store.LoadJSON(ctx, s.store, store.KeyProfile, nutrition.Profile.Validate)
	if err != nil {
		return nutrition.Profile{}, false, err
	}
	return profile, status == store.Found, nil
}

// Create 注册新档案
func (s *ProfileService) Create(ctx context.Context, input SignUpInput) (nutrition.Profile, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = normalizeEmail(input.Email)
	input.Avatar = strings.TrimSpace(input.Avatar)
	if err := validateInput(input); err != nil {
		return nutrition.Profile{}, err
	}
	if _, ok, err := s.Load(ctx); err != nil {
		return nutrition.Profile{}, err
	} else if ok {
		return nutrition.Profile{}, ErrProfileExists
	}

	profile := nutrition.Profile{
		Name:       input.Name,
		Email:      input.Email,
		Avatar:     input.Avatar,
		UnitSystem: nutrition.UnitMetric,
	}
	if err := store.SaveJSON(ctx, s.store, store.KeyProfile, profile); err != nil {
		return nutrition.Profile{}, err
	}
	return profile, nil
}

// Update 合并局部更新，换算为公制后保存
func (s *ProfileService) Update(ctx context.Context, input ProfileUpdate) (nutrition.Profile, error) {
	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		input.Email = &email
	}
	if err := validateInput(input); err != nil {
		return nutrition.Profile{}, err
	}

	profile, ok, err := s.Load(ctx)
	if err != nil {
		return nutrition.Profile{}, err
	}
	if !ok {
		return nutrition.Profile{}, ErrProfileNotFound
	}

	if input.Name != nil {
		profile.Name = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		profile.Email = *input.Email
	}
	if input.Avatar != nil {
		profile.Avatar = strings.TrimSpace(*input.Avatar)
	}
	if input.Age != nil {
		profile.Age = *input.Age
	}
	if input.UnitSystem != nil {
		profile.UnitSystem = nutrition.ParseUnitSystem(*input.UnitSystem)
	}
	units := profile.Units()

	switch {
	case units == nutrition.UnitImperial && (input.HeightFeet != nil || input.HeightInches != nil):
		var feet, inches float64
		if input.HeightFeet != nil {
			feet = *input.HeightFeet
		}
		if input.HeightInches != nil {
			inches = *input.HeightInches
		}
		profile.HeightCm = nutrition.FeetInchesToCm(feet, inches)
	case input.HeightCm != nil:
		profile.HeightCm = *input.HeightCm
	}

	if input.CurrentWeight != nil {
		profile.CurrentWeightKg = nutrition.CanonicalWeight(*input.CurrentWeight, units)
	}
	if input.GoalWeight != nil {
		profile.GoalWeightKg = nutrition.CanonicalWeight(*input.GoalWeight, units)
	}
	if input.ActivityLevel != nil {
		profile.ActivityLevel = nutrition.ActivityLevel(strings.TrimSpace(*input.ActivityLevel))
	}
	if input.FitnessGoal != nil {
		profile.FitnessGoal = nutrition.FitnessGoal(strings.TrimSpace(*input.FitnessGoal))
	}
	if input.DietaryPreference != nil {
		profile.DietaryPreference = nutrition.DietaryPreference(strings.TrimSpace(*input.DietaryPreference))
	}
	if input.CalorieGoal != nil {
		if *input.CalorieGoal == 0 {
			profile.CalorieGoal = nil
		} else {
			goal := *input.CalorieGoal
			profile.CalorieGoal = &goal
		}
	}

	if err := profile.Validate(); err != nil {
		return nutrition.Profile{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := store.SaveJSON(ctx, s.store, store.KeyProfile, profile); err != nil {
		return nutrition.Profile{}, err
	}
	return profile, nil
}

// LogWeight 记录某日体重。date 为空时取今天，unit 为空时使用档案的单位制。
func (s *ProfileService) LogWeight(ctx context.Context, date string, value float64, unit string) (nutrition.Profile, error) {
	if value <= 0 {
		return nutrition.Profile{}, fmt.Errorf("%w: weight must be positive", ErrValidation)
	}
	date = strings.TrimSpace(date)
	if date == "" {
		date = s.now().Format(nutrition.DateLayout)
	} else if _, err := time.Parse(nutrition.DateLayout, date); err != nil {
		return nutrition.Profile{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}

	profile, ok, err := s.Load(ctx)
	if err != nil {
		return nutrition.Profile{}, err
	}
	if !ok {
		return nutrition.Profile{}, ErrProfileNotFound
	}

	units := profile.Units()
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "":
	case "kg":
		units = nutrition.UnitMetric
	case "lbs", "lb":
		units = nutrition.UnitImperial
	default:
		return nutrition.Profile{}, fmt.Errorf("%w: unknown weight unit %q", ErrValidation, unit)
	}

	profile.RecordWeight(date, nutrition.CanonicalWeight(value, units))
	if err := store.SaveJSON(ctx, s.store, store.KeyProfile, profile); err != nil {
		return nutrition.Profile{}, err
	}
	return profile, nil
}

// View 生成展示用数据
func (s *ProfileService) View(profile nutrition.Profile) ProfileView {
	units := profile.Units()
	view := ProfileView{
		Profile:              profile,
		SignedUp:             true,
		DisplayWeight:        nutrition.DisplayWeight(profile.CurrentWeightKg, units),
		DisplayGoalWeight:    nutrition.DisplayWeight(profile.GoalWeightKg, units),
		WeightUnit:           weightUnitLabel(units),
		SuggestedCalorieGoal: profile.SuggestedCalorieGoal(),
		EffectiveCalorieGoal: profile.EffectiveCalorieGoal(),
	}
	if units == nutrition.UnitImperial {
		view.DisplayHeightFeet, view.DisplayHeightInches = nutrition.CmToFeetInches(profile.HeightCm)
	} else {
		view.DisplayHeightCm = nutrition.RoundHeight(profile.HeightCm)
	}
	return view
}

func weightUnitLabel(units nutrition.UnitSystem) string {
	if units == nutrition.UnitImperial {
		return "lbs"
	}
	return "kg"
}

// Validate 规范化后校验注册信息
func (in SignUpInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Avatar = strings.TrimSpace(in.Avatar)
	return validateInput(in)
}
