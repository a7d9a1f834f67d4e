package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/macrolog/internal/nutrition"
	"github.com/macrolog/internal/store"
)

// ManualMealInput 手动录入单项食物
type ManualMealInput struct {
	Name     string  `json:"name" validate:"notblank"`
	Calories float64 `json:"calories" validate:"gt=0"`
	Protein  float64 `json:"protein" validate:"gte=0"`
	Carbs    float64 `json:"carbs" validate:"gte=0"`
	Fat      float64 `json:"fat" validate:"gte=0"`
	Sugar    float64 `json:"sugar" validate:"gte=0"`
}

// ExerciseInput 录入一次运动
type ExerciseInput struct {
	Activity       string  `json:"activity" validate:"notblank"`
	CaloriesBurned float64 `json:"caloriesBurned" validate:"gt=0"`
}

// DaySnapshot 是当天日志的只读视图，CalorieGoal 为 0 表示无法计算
type DaySnapshot struct {
	Date              string           `json:"date"`
	Entries           nutrition.DayLog `json:"entries"`
	Totals            nutrition.Totals `json:"totals"`
	Water             int              `json:"water"`
	CalorieGoal       int              `json:"calorieGoal"`
	RemainingCalories float64          `json:"remainingCalories"`
}

type dailyLogs map[string]nutrition.DayLog

func validateDailyLogs(logs dailyLogs) error {
	for date, day := range logs {
		if _, err := time.Parse(nutrition.DateLayout, date); err != nil {
			return fmt.Errorf("bad log date %q", date)
		}
		for _, entry := range day {
			if strings.TrimSpace(entry.ID) == "" {
				return fmt.Errorf("%w: entry id is required", nutrition.ErrInvalidEntry)
			}
			if err := entry.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// LedgerService 维护当天的餐食与运动日志以及饮水量。
// 每次修改都是对 daily_logs 的一次完整读改写，mu 保证并发请求之间不会互相覆盖。
type LedgerService struct {
	store    store.Store
	profiles *ProfileService
	now      func() time.Time
	newID    func() string
	mu       sync.Mutex
}

// NewLedgerService 构造 LedgerService，profiles 可为 nil（此时热量目标恒为 0）
func NewLedgerService(s store.Store, profiles *ProfileService) *LedgerService {
	return &LedgerService{
		store:    s,
		profiles: profiles,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// SetClock 覆盖时钟，主要用于测试
func (s *LedgerService) SetClock(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	s.now = now
}

func (s *LedgerService) today() string {
	return s.now().Format(nutrition.DateLayout)
}

func (s *LedgerService) loadLogs(ctx context.Context) (dailyLogs, error) {
	logs, _, err := store.LoadJSON(ctx, s.store, store.KeyDailyLogs, validateDailyLogs)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = dailyLogs{}
	}
	return logs, nil
}

// mutateToday 读取日志、对今天的分桶执行 fn 并在有变化时写回
func (s *LedgerService) mutateToday(ctx context.Context, fn func(nutrition.DayLog) (nutrition.DayLog, bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logs, err := s.loadLogs(ctx)
	if err != nil {
		return err
	}
	date := s.today()
	next, changed, err := fn(logs[date])
	if err != nil || !changed {
		return err
	}
	if next == nil {
		next = nutrition.DayLog{}
	}
	logs[date] = next
	return store.SaveJSON(ctx, s.store, store.KeyDailyLogs, logs)
}

// AppendEntries 将新条目插入当天日志最前面。任意一条不合法则整批拒绝。
func (s *LedgerService) AppendEntries(ctx context.Context, entries []nutrition.LogEntry) ([]nutrition.LogEntry, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	clock := s.now().Format(nutrition.ClockLayout)
	prepared := make([]nutrition.LogEntry, 0, len(entries))
	batchIDs := make(map[string]struct{}, len(entries))
	for i, entry := range entries {
		entry.ID = strings.TrimSpace(entry.ID)
		if entry.ID == "" {
			entry.ID = s.newID()
		}
		if strings.TrimSpace(entry.Time) == "" {
			entry.Time = clock
		}
		if err := entry.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if _, dup := batchIDs[entry.ID]; dup {
			return nil, fmt.Errorf("entry %d: %w: duplicate id %s", i, nutrition.ErrInvalidEntry, entry.ID)
		}
		batchIDs[entry.ID] = struct{}{}
		prepared = append(prepared, entry)
	}

	err := s.mutateToday(ctx, func(day nutrition.DayLog) (nutrition.DayLog, bool, error) {
		// id 在当天日志内必须唯一，否则按 id 的删除与编辑无法定位后一条
		for _, existing := range day {
			if _, dup := batchIDs[existing.ID]; dup {
				return day, false, fmt.Errorf("%w: duplicate id %s", nutrition.ErrInvalidEntry, existing.ID)
			}
		}
		return day.Prepend(prepared), true, nil
	})
	if err != nil {
		return nil, err
	}
	return prepared, nil
}

// AddManualMeal 以单项食物的形式追加一餐
func (s *LedgerService) AddManualMeal(ctx context.Context, input ManualMealInput) (nutrition.LogEntry, error) {
	if err := validateInput(input); err != nil {
		return nutrition.LogEntry{}, err
	}
	meal := nutrition.NewMeal("", "", nutrition.MacroEntry{
		Name:     strings.TrimSpace(input.Name),
		Calories: input.Calories,
		Protein:  input.Protein,
		Carbs:    input.Carbs,
		Fat:      input.Fat,
		Sugar:    input.Sugar,
	})
	added, err := s.AppendEntries(ctx, []nutrition.LogEntry{meal})
	if err != nil {
		return nutrition.LogEntry{}, err
	}
	return added[0], nil
}

// AddExercise 追加一条运动记录
func (s *LedgerService) AddExercise(ctx context.Context, input ExerciseInput) (nutrition.LogEntry, error) {
	if err := validateInput(input); err != nil {
		return nutrition.LogEntry{}, err
	}
	exercise := nutrition.NewExercise("", "", strings.TrimSpace(input.Activity), input.CaloriesBurned)
	added, err := s.AppendEntries(ctx, []nutrition.LogEntry{exercise})
	if err != nil {
		return nutrition.LogEntry{}, err
	}
	return added[0], nil
}

// DeleteEntry 删除当天的整条记录
func (s *LedgerService) DeleteEntry(ctx context.Context, id string) error {
	return s.mutateToday(ctx, func(day nutrition.DayLog) (nutrition.DayLog, bool, error) {
		next, ok := day.RemoveEntry(id)
		if !ok {
			return day, false, fmt.Errorf("%w: %s", nutrition.ErrEntryNotFound, id)
		}
		return next, true, nil
	})
}

// DeleteMealItem 删除餐食中的一项，返回是否连同整条餐食一起删除。
// 下标越界或条目不存在时不做任何修改。
func (s *LedgerService) DeleteMealItem(ctx context.Context, id string, index int) (entryRemoved bool, err error) {
	err = s.mutateToday(ctx, func(day nutrition.DayLog) (nutrition.DayLog, bool, error) {
		next, itemRemoved, dropped := day.RemoveMealItem(id, index)
		entryRemoved = dropped
		return next, itemRemoved, nil
	})
	return entryRemoved, err
}

// EditMealItem 用完整的新记录替换餐食中的一项，未提供的数值按 0 处理
func (s *LedgerService) EditMealItem(ctx context.Context, id string, index int, item nutrition.MacroEntry) error {
	item.Name = strings.TrimSpace(item.Name)
	if err := item.Validate(); err != nil {
		return err
	}
	return s.mutateToday(ctx, func(day nutrition.DayLog) (nutrition.DayLog, bool, error) {
		next, err := day.ReplaceMealItem(id, index, item)
		if err != nil {
			return day, false, err
		}
		return next, true, nil
	})
}

// ClearDay 清空当天日志并把饮水量归零
func (s *LedgerService) ClearDay(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logs, err := s.loadLogs(ctx)
	if err != nil {
		return err
	}
	// 先归零饮水：日志写入失败时当天记录保持不变，重试即可
	if err := s.saveWater(ctx, 0); err != nil {
		return err
	}
	logs[s.today()] = nutrition.DayLog{}
	return store.SaveJSON(ctx, s.store, store.KeyDailyLogs, logs)
}

// Entries 返回当天日志
func (s *LedgerService) Entries(ctx context.Context) (nutrition.DayLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logs, err := s.loadLogs(ctx)
	if err != nil {
		return nil, err
	}
	day := logs[s.today()]
	if day == nil {
		day = nutrition.DayLog{}
	}
	return day, nil
}

// Days 返回全部日期分桶，供进度统计使用
func (s *LedgerService) Days(ctx context.Context) (map[string]nutrition.DayLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logs, err := s.loadLogs(ctx)
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// Today 汇总当天的日志、营养合计、饮水量与热量目标
func (s *LedgerService) Today(ctx context.Context) (DaySnapshot, error) {
	entries, err := s.Entries(ctx)
	if err != nil {
		return DaySnapshot{}, err
	}
	water, err := s.Water(ctx)
	if err != nil {
		return DaySnapshot{}, err
	}

	snapshot := DaySnapshot{
		Date:    s.today(),
		Entries: entries,
		Totals:  nutrition.ComputeTotals(entries),
		Water:   water,
	}

	if s.profiles != nil {
		profile, ok, err := s.profiles.Load(ctx)
		if err != nil {
			return DaySnapshot{}, err
		}
		if ok {
			snapshot.CalorieGoal = profile.EffectiveCalorieGoal()
		}
	}
	if snapshot.CalorieGoal > 0 {
		snapshot.RemainingCalories = float64(snapshot.CalorieGoal) - snapshot.Totals.Calories
	}
	return snapshot, nil
}

// Water 返回今天的饮水杯数，记录日期不是今天时视为 0
func (s *LedgerService) Water(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadWater(ctx)
}

// AdjustWater 调整饮水杯数，结果不小于 0
func (s *LedgerService) AdjustWater(ctx context.Context, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadWater(ctx)
	if err != nil {
		return 0, err
	}
	next := current + delta
	if next < 0 {
		next = 0
	}
	if err := s.saveWater(ctx, next); err != nil {
		return 0, err
	}
	return next, nil
}

func (s *LedgerService) loadWater(ctx context.Context) (int, error) {
	date, _, err := store.LoadJSON(ctx, s.store, store.KeyWaterDate, func(v string) error {
		_, err := time.Parse(nutrition.DateLayout, v)
		return err
	})
	if err != nil {
		return 0, err
	}
	if date != s.today() {
		return 0, nil
	}

	count, _, err := store.LoadJSON(ctx, s.store, store.KeyWaterCount, func(v int) error {
		if v < 0 {
			return fmt.Errorf("negative water count %d", v)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *LedgerService) saveWater(ctx context.Context, count int) error {
	if err := store.SaveJSON(ctx, s.store, store.KeyWaterCount, count); err != nil {
		return err
	}
	return store.SaveJSON(ctx, s.store, store.KeyWaterDate, s.today())
}
