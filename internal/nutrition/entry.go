// Package nutrition 定义饮食记录的领域模型：食物营养、日志条目、每日汇总、单位换算与热量目标估算。
// 这里只包含纯逻辑，不涉及持久化。
package nutrition

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidEntry 在日志条目结构不合法时返回
	ErrInvalidEntry = errors.New("invalid log entry")
	// ErrEntryNotFound 在指定条目不存在时返回
	ErrEntryNotFound = errors.New("log entry not found")
	// ErrItemOutOfRange 在餐食条目的食物下标越界时返回
	ErrItemOutOfRange = errors.New("meal item index out of range")
)

// MacroEntry 表示一份食物的营养数据，克数与热量均为非负数
type MacroEntry struct {
	Name     string  `json:"name"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Sugar    float64 `json:"sugar"`
}

// Validate 校验食物名称与数值字段
func (m MacroEntry) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: item name is required", ErrInvalidEntry)
	}
	for field, value := range map[string]float64{
		"calories": m.Calories,
		"protein":  m.Protein,
		"carbs":    m.Carbs,
		"fat":      m.Fat,
		"sugar":    m.Sugar,
	} {
		if value < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidEntry, field)
		}
	}
	return nil
}

// EntryKind 区分日志条目的类型
type EntryKind string

const (
	// KindMeal 表示餐食条目
	KindMeal EntryKind = "meal"
	// KindExercise 表示运动条目
	KindExercise EntryKind = "exercise"
)

// LogEntry 是餐食与运动两种条目的联合体，由 Kind 决定哪些字段有效。
// 餐食使用 Items；运动使用 Activity 与 CaloriesBurned。
type LogEntry struct {
	ID             string       `json:"id"`
	Kind           EntryKind    `json:"type"`
	Time           string       `json:"time"`
	Items          []MacroEntry `json:"items,omitempty"`
	Activity       string       `json:"activity,omitempty"`
	CaloriesBurned float64      `json:"caloriesBurned,omitempty"`
}

// NewMeal 构造餐食条目
func NewMeal(id, clock string, items ...MacroEntry) LogEntry {
	copied := make([]MacroEntry, len(items))
	copy(copied, items)
	return LogEntry{ID: id, Kind: KindMeal, Time: clock, Items: copied}
}

// NewExercise 构造运动条目
func NewExercise(id, clock, activity string, burned float64) LogEntry {
	return LogEntry{ID: id, Kind: KindExercise, Time: clock, Activity: activity, CaloriesBurned: burned}
}

// IsMeal 判断是否为餐食条目
func (e LogEntry) IsMeal() bool { return e.Kind == KindMeal }

// IsExercise 判断是否为运动条目
func (e LogEntry) IsExercise() bool { return e.Kind == KindExercise }

// Validate 按条目类型校验字段。空餐食不允许存在。
func (e LogEntry) Validate() error {
	switch e.Kind {
	case KindMeal:
		if len(e.Items) == 0 {
			return fmt.Errorf("%w: meal must contain at least one item", ErrInvalidEntry)
		}
		for i, item := range e.Items {
			if err := item.Validate(); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
		return nil
	case KindExercise:
		if strings.TrimSpace(e.Activity) == "" {
			return fmt.Errorf("%w: activity is required", ErrInvalidEntry)
		}
		if e.CaloriesBurned < 0 {
			return fmt.Errorf("%w: calories burned must not be negative", ErrInvalidEntry)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown entry type %q", ErrInvalidEntry, e.Kind)
	}
}

func (e LogEntry) clone() LogEntry {
	if e.Items != nil {
		items := make([]MacroEntry, len(e.Items))
		copy(items, e.Items)
		e.Items = items
	}
	return e
}
