package nutrition

import "fmt"

// DateLayout 是日志分桶使用的 ISO 日期格式
const DateLayout = "2006-01-02"

// ClockLayout 是条目时间戳使用的格式
const ClockLayout = "15:04"

// DayLog 是某一天的日志条目，按新到旧排列
type DayLog []LogEntry

// Totals 汇总一天的净热量与宏量营养素
type Totals struct {
	Calories      float64 `json:"calories"`
	Protein       float64 `json:"protein"`
	Carbohydrates float64 `json:"carbohydrates"`
	Fat           float64 `json:"fat"`
}

// Prepend 将新条目放在最前面，保持输入顺序。所有操作都返回新切片，不修改原日志。
func (l DayLog) Prepend(entries []LogEntry) DayLog {
	if len(entries) == 0 {
		return l
	}
	out := make(DayLog, 0, len(entries)+len(l))
	for _, entry := range entries {
		out = append(out, entry.clone())
	}
	return append(out, l...)
}

// Find 返回指定 ID 的条目位置
func (l DayLog) Find(id string) (int, bool) {
	for i, entry := range l {
		if entry.ID == id {
			return i, true
		}
	}
	return -1, false
}

// RemoveEntry 删除整条记录；ID 不存在时原样返回
func (l DayLog) RemoveEntry(id string) (DayLog, bool) {
	idx, ok := l.Find(id)
	if !ok {
		return l, false
	}
	out := make(DayLog, 0, len(l)-1)
	out = append(out, l[:idx]...)
	return append(out, l[idx+1:]...), true
}

// RemoveMealItem 按下标删除餐食中的一项食物。
// 删除最后一项时整条餐食一并移除；条目不存在、不是餐食或下标越界时视为已删除，不报错。
func (l DayLog) RemoveMealItem(id string, index int) (out DayLog, itemRemoved, entryRemoved bool) {
	idx, ok := l.Find(id)
	if !ok || !l[idx].IsMeal() || index < 0 || index >= len(l[idx].Items) {
		return l, false, false
	}

	if len(l[idx].Items) == 1 {
		out, _ = l.RemoveEntry(id)
		return out, true, true
	}

	out = make(DayLog, len(l))
	copy(out, l)
	entry := l[idx].clone()
	entry.Items = append(entry.Items[:index], entry.Items[index+1:]...)
	out[idx] = entry
	return out, true, false
}

// ReplaceMealItem 用完整的新记录替换餐食中的一项食物
func (l DayLog) ReplaceMealItem(id string, index int, item MacroEntry) (DayLog, error) {
	idx, ok := l.Find(id)
	if !ok || !l[idx].IsMeal() {
		return l, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	if index < 0 || index >= len(l[idx].Items) {
		return l, fmt.Errorf("%w: %d", ErrItemOutOfRange, index)
	}

	out := make(DayLog, len(l))
	copy(out, l)
	entry := l[idx].clone()
	entry.Items[index] = item
	out[idx] = entry
	return out, nil
}

// ComputeTotals 汇总日志：餐食累加各项营养，运动只从热量中扣除消耗。净热量允许为负。
func ComputeTotals(log DayLog) Totals {
	var totals Totals
	for _, entry := range log {
		switch entry.Kind {
		case KindMeal:
			for _, item := range entry.Items {
				totals.Calories += item.Calories
				totals.Protein += item.Protein
				totals.Carbohydrates += item.Carbs
				totals.Fat += item.Fat
			}
		case KindExercise:
			totals.Calories -= entry.CaloriesBurned
		}
	}
	return totals
}
