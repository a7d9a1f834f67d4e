package nutrition

import "math"

const (
	lbsPerKg      = 2.20462
	cmPerInch     = 2.54
	inchesPerFoot = 12
)

// UnitSystem 表示用户选择的展示单位
type UnitSystem string

const (
	UnitMetric   UnitSystem = "metric"
	UnitImperial UnitSystem = "imperial"
)

// ParseUnitSystem 解析单位制，未知值回退到公制
func ParseUnitSystem(raw string) UnitSystem {
	if UnitSystem(raw) == UnitImperial {
		return UnitImperial
	}
	return UnitMetric
}

func KgToLbs(kg float64) float64 { return kg * lbsPerKg }

func LbsToKg(lbs float64) float64 { return lbs / lbsPerKg }

func InchesToCm(inches float64) float64 { return inches * cmPerInch }

func CmToInches(cm float64) float64 { return cm / cmPerInch }

// FeetInchesToCm 将英尺+英寸换算成厘米
func FeetInchesToCm(feet, inches float64) float64 {
	return InchesToCm(feet*inchesPerFoot + inches)
}

// CmToFeetInches 拆分为整英尺和剩余英寸，剩余英寸四舍五入到整数，满 12 时进位
func CmToFeetInches(cm float64) (feet int, inches int) {
	total := int(math.Round(CmToInches(cm)))
	return total / inchesPerFoot, total % inchesPerFoot
}

// RoundWeight 体重展示保留一位小数
func RoundWeight(v float64) float64 {
	return math.Round(v*10) / 10
}

// RoundHeight 身高展示取整
func RoundHeight(v float64) float64 {
	return math.Round(v)
}

// DisplayWeight 将规范的公斤值转换成当前单位制下的展示值
func DisplayWeight(kg float64, system UnitSystem) float64 {
	if system == UnitImperial {
		return RoundWeight(KgToLbs(kg))
	}
	return RoundWeight(kg)
}

// CanonicalWeight 将用户输入的体重转换为公斤
func CanonicalWeight(value float64, system UnitSystem) float64 {
	if system == UnitImperial {
		return LbsToKg(value)
	}
	return value
}
