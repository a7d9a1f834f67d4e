package nutrition

import "math"

// ActivityLevel 日常活动水平
type ActivityLevel string

const (
	ActivitySedentary        ActivityLevel = "Sedentary"
	ActivityLightlyActive    ActivityLevel = "Lightly Active"
	ActivityModeratelyActive ActivityLevel = "Moderately Active"
	ActivityVeryActive       ActivityLevel = "Very Active"
	ActivityExtraActive      ActivityLevel = "Extra Active"
)

// FitnessGoal 健身目标
type FitnessGoal string

const (
	GoalLoseWeight     FitnessGoal = "Lose Weight"
	GoalMaintainWeight FitnessGoal = "Maintain Weight"
	GoalBuildMuscle    FitnessGoal = "Build Muscle"
)

// DietaryPreference 饮食偏好
type DietaryPreference string

const (
	DietNoPreference DietaryPreference = "No Preference"
	DietVegetarian   DietaryPreference = "Vegetarian"
	DietVegan        DietaryPreference = "Vegan"
	DietPescatarian  DietaryPreference = "Pescatarian"
	DietKeto         DietaryPreference = "Keto"
	DietPaleo        DietaryPreference = "Paleo"
	DietGlutenFree   DietaryPreference = "Gluten-Free"
	DietDairyFree    DietaryPreference = "Dairy-Free"
)

var activityFactors = map[ActivityLevel]float64{
	ActivitySedentary:        1.2,
	ActivityLightlyActive:    1.375,
	ActivityModeratelyActive: 1.55,
	ActivityVeryActive:       1.725,
	ActivityExtraActive:      1.9,
}

var goalAdjustments = map[FitnessGoal]float64{
	GoalLoseWeight:     -500,
	GoalMaintainWeight: 0,
	GoalBuildMuscle:    300,
}

var dietaryPreferences = map[DietaryPreference]struct{}{
	DietNoPreference: {},
	DietVegetarian:   {},
	DietVegan:        {},
	DietPescatarian:  {},
	DietKeto:         {},
	DietPaleo:        {},
	DietGlutenFree:   {},
	DietDairyFree:    {},
}

// Valid 判断活动水平是否在固定列表中
func (a ActivityLevel) Valid() bool {
	_, ok := activityFactors[a]
	return ok
}

// Valid 判断健身目标是否受支持
func (g FitnessGoal) Valid() bool {
	_, ok := goalAdjustments[g]
	return ok
}

// Valid 判断饮食偏好是否受支持
func (d DietaryPreference) Valid() bool {
	_, ok := dietaryPreferences[d]
	return ok
}

// EstimateCalorieGoal 估算每日建议热量。
// BMR 采用 Mifflin-St Jeor 的男性常数 (+5)：档案中没有性别字段，这是已知的近似。
// 任一输入缺失或枚举未知时返回 0，调用方应将 0 视为“无法计算”。
func EstimateCalorieGoal(age int, heightCm, weightKg float64, activity ActivityLevel, goal FitnessGoal) int {
	if age <= 0 || heightCm <= 0 || weightKg <= 0 {
		return 0
	}
	factor, ok := activityFactors[activity]
	if !ok {
		return 0
	}
	adjustment, ok := goalAdjustments[goal]
	if !ok {
		return 0
	}

	bmr := 10*weightKg + 6.25*heightCm - 5*float64(age) + 5
	return int(math.Round(bmr*factor + adjustment))
}
