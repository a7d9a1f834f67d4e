package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/macrolog/internal/nutrition"
	"github.com/macrolog/internal/store"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

// failingSaveStore 包装 MemoryStore，fail 返回 true 的 key 写入失败
type failingSaveStore struct {
	*store.MemoryStore
	fail func(key string) bool
}

var errSaveFailed = errors.New("save failed")

func (s *failingSaveStore) Save(ctx context.Context, key string, value []byte) error {
	if s.fail != nil && s.fail(key) {
		return errSaveFailed
	}
	return s.MemoryStore.Save(ctx, key, value)
}

func newTestLedger(t *testing.T) (*LedgerService, *store.MemoryStore, *fixedClock) {
	t.Helper()
	mem := store.NewMemoryStore()
	clock := &fixedClock{now: time.Date(2026, 3, 14, 12, 30, 0, 0, time.Local)}

	profiles := NewProfileService(mem)
	profiles.SetClock(clock.Now)
	ledger := NewLedgerService(mem, profiles)
	ledger.SetClock(clock.Now)

	seq := 0
	ledger.newID = func() string {
		seq++
		return fmt.Sprintf("id-%d", seq)
	}
	return ledger, mem, clock
}

func TestLedgerAppendAndTotals(t *testing.T) {
	ledger, _, _ := newTestLedger(t)
	ctx := context.Background()

	meal := nutrition.NewMeal("", "",
		nutrition.MacroEntry{Name: "Rice", Calories: 300, Protein: 20, Carbs: 60, Fat: 2},
		nutrition.MacroEntry{Name: "Salad", Calories: 200, Protein: 5, Carbs: 25, Fat: 5},
	)
	added, err := ledger.AppendEntries(ctx, []nutrition.LogEntry{meal})
	if err != nil {
		t.Fatalf("append meal: %v", err)
	}
	if added[0].ID != "id-1" || added[0].Time != "12:30" {
		t.Fatalf("expected generated id and time, got %+v", added[0])
	}

	if _, err := ledger.AddExercise(ctx, ExerciseInput{Activity: "Run", CaloriesBurned: 150}); err != nil {
		t.Fatalf("add exercise: %v", err)
	}

	snapshot, err := ledger.Today(ctx)
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if snapshot.Date != "2026-03-14" {
		t.Fatalf("unexpected date %s", snapshot.Date)
	}
	if len(snapshot.Entries) != 2 || !snapshot.Entries[0].IsExercise() {
		t.Fatalf("expected exercise first, got %+v", snapshot.Entries)
	}
	want := nutrition.Totals{Calories: 350, Protein: 25, Carbohydrates: 85, Fat: 7}
	if snapshot.Totals != want {
		t.Fatalf("expected totals %+v, got %+v", want, snapshot.Totals)
	}
	if snapshot.CalorieGoal != 0 || snapshot.RemainingCalories != 0 {
		t.Fatalf("expected no goal without profile, got %+v", snapshot)
	}
}

func TestLedgerAppendRejectsWholeBatch(t *testing.T) {
	ledger, _, _ := newTestLedger(t)
	ctx := context.Background()

	batch := []nutrition.LogEntry{
		nutrition.NewMeal("", "", nutrition.MacroEntry{Name: "Apple", Calories: 95}),
		nutrition.NewMeal("", ""),
	}
	if _, err := ledger.AppendEntries(ctx, batch); !errors.Is(err, nutrition.ErrInvalidEntry) {
		t.Fatalf("expected ErrInvalidEntry, got %v", err)
	}

	entries, err := ledger.Entries(ctx)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no partial save, got %d entries", len(entries))
	}

	if added, err := ledger.AppendEntries(ctx, nil); err != nil || added != nil {
		t.Fatalf("expected empty append to be a no-op, got %v %v", added, err)
	}
}

func TestLedgerAppendRejectsDuplicateIDs(t *testing.T) {
	ledger, _, _ := newTestLedger(t)
	ctx := context.Background()

	first := nutrition.NewMeal("dup", "", nutrition.MacroEntry{Name: "A", Calories: 100})
	if _, err := ledger.AppendEntries(ctx, []nutrition.LogEntry{first}); err != nil {
		t.Fatalf("append: %v", err)
	}

	second := nutrition.NewMeal(" dup ", "", nutrition.MacroEntry{Name: "B", Calories: 200})
	if _, err := ledger.AppendEntries(ctx, []nutrition.LogEntry{second}); !errors.Is(err, nutrition.ErrInvalidEntry) {
		t.Fatalf("expected duplicate of existing id to be rejected, got %v", err)
	}

	batch := []nutrition.LogEntry{
		nutrition.NewMeal("twin", "", nutrition.MacroEntry{Name: "C", Calories: 50}),
		nutrition.NewMeal("twin", "", nutrition.MacroEntry{Name: "D", Calories: 60}),
	}
	if _, err := ledger.AppendEntries(ctx, batch); !errors.Is(err, nutrition.ErrInvalidEntry) {
		t.Fatalf("expected duplicate within batch to be rejected, got %v", err)
	}

	entries, err := ledger.Entries(ctx)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 1 || entries[0].Items[0].Name != "A" {
		t.Fatalf("expected only the first entry, got %+v", entries)
	}

	if err := ledger.DeleteEntry(ctx, "dup"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if entries, _ := ledger.Entries(ctx); len(entries) != 0 {
		t.Fatalf("expected delete by id to leave nothing, got %+v", entries)
	}
}

func TestLedgerManualMealValidation(t *testing.T) {
	ledger, _, _ := newTestLedger(t)
	ctx := context.Background()

	cases := []ManualMealInput{
		{Name: "", Calories: 100},
		{Name: "   ", Calories: 100},
		{Name: "Toast", Calories: 0},
		{Name: "Toast", Calories: -5},
		{Name: "Toast", Calories: 100, Protein: -1},
	}
	for _, input := range cases {
		if _, err := ledger.AddManualMeal(ctx, input); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation for %+v, got %v", input, err)
		}
	}

	entry, err := ledger.AddManualMeal(ctx, ManualMealInput{Name: " Toast ", Calories: 120, Carbs: 20})
	if err != nil {
		t.Fatalf("add manual meal: %v", err)
	}
	if len(entry.Items) != 1 || entry.Items[0].Name != "Toast" {
		t.Fatalf("unexpected entry %+v", entry)
	}

	if _, err := ledger.AddExercise(ctx, ExerciseInput{Activity: "Walk"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected exercise without calories to fail, got %v", err)
	}
}

func TestLedgerDeleteMealItemDropsEmptyMeal(t *testing.T) {
	ledger, _, _ := newTestLedger(t)
	ctx := context.Background()

	meal := nutrition.NewMeal("meal-1", "08:00",
		nutrition.MacroEntry{Name: "Egg", Calories: 70, Protein: 6},
		nutrition.MacroEntry{Name: "Bread", Calories: 80, Carbs: 15},
	)
	if _, err := ledger.AppendEntries(ctx, []nutrition.LogEntry{meal}); err != nil {
		t.Fatalf("append: %v", err)
	}

	removed, err := ledger.DeleteMealItem(ctx, "meal-1", 0)
	if err != nil || removed {
		t.Fatalf("expected item removal without dropping meal, got %v %v", removed, err)
	}
	snapshot, _ := ledger.Today(ctx)
	if snapshot.Totals.Calories != 80 || snapshot.Totals.Protein != 0 {
		t.Fatalf("removed item still counted: %+v", snapshot.Totals)
	}

	// 越界与未知 ID 均视为已删除
	if removed, err := ledger.DeleteMealItem(ctx, "meal-1", 5); err != nil || removed {
		t.Fatalf("expected out-of-range delete to be a no-op, got %v %v", removed, err)
	}
	if removed, err := ledger.DeleteMealItem(ctx, "missing", 0); err != nil || removed {
		t.Fatalf("expected unknown entry delete to be a no-op, got %v %v", removed, err)
	}

	removed, err = ledger.DeleteMealItem(ctx, "meal-1", 0)
	if err != nil || !removed {
		t.Fatalf("expected last item to drop the meal, got %v %v", removed, err)
	}
	entries, _ := ledger.Entries(ctx)
	if len(entries) != 0 {
		t.Fatalf("expected empty log, got %+v", entries)
	}
}

func TestLedgerEditAndDeleteEntry(t *testing.T) {
	ledger, _, _ := newTestLedger(t)
	ctx := context.Background()

	meal := nutrition.NewMeal("meal-1", "08:00", nutrition.MacroEntry{Name: "Oats", Calories: 150, Carbs: 27})
	if _, err := ledger.AppendEntries(ctx, []nutrition.LogEntry{meal}); err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := ledger.EditMealItem(ctx, "meal-1", 0, nutrition.MacroEntry{Name: "Oats", Calories: 190}); err != nil {
		t.Fatalf("edit: %v", err)
	}
	entries, _ := ledger.Entries(ctx)
	if got := entries[0].Items[0]; got.Calories != 190 || got.Carbs != 0 {
		t.Fatalf("expected full replacement with zeroed carbs, got %+v", got)
	}

	if err := ledger.EditMealItem(ctx, "meal-1", 3, nutrition.MacroEntry{Name: "X"}); !errors.Is(err, nutrition.ErrItemOutOfRange) {
		t.Fatalf("expected ErrItemOutOfRange, got %v", err)
	}
	if err := ledger.EditMealItem(ctx, "meal-1", 0, nutrition.MacroEntry{Name: ""}); !errors.Is(err, nutrition.ErrInvalidEntry) {
		t.Fatalf("expected ErrInvalidEntry, got %v", err)
	}

	if err := ledger.DeleteEntry(ctx, "missing"); !errors.Is(err, nutrition.ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
	if err := ledger.DeleteEntry(ctx, "meal-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	entries, _ = ledger.Entries(ctx)
	if len(entries) != 0 {
		t.Fatalf("expected entry to be deleted, got %+v", entries)
	}
}

func TestLedgerClearDayResetsTotalsAndWater(t *testing.T) {
	ledger, _, _ := newTestLedger(t)
	ctx := context.Background()

	if _, err := ledger.AddManualMeal(ctx, ManualMealInput{Name: "Pizza", Calories: 800, Fat: 30}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := ledger.AdjustWater(ctx, 4); err != nil {
		t.Fatalf("water: %v", err)
	}

	if err := ledger.ClearDay(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	snapshot, err := ledger.Today(ctx)
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if snapshot.Totals != (nutrition.Totals{}) || snapshot.Water != 0 || len(snapshot.Entries) != 0 {
		t.Fatalf("expected cleared day, got %+v", snapshot)
	}
}

func TestLedgerClearDayKeepsStateWhenWaterSaveFails(t *testing.T) {
	backing := &failingSaveStore{MemoryStore: store.NewMemoryStore()}
	clock := &fixedClock{now: time.Date(2026, 3, 14, 12, 30, 0, 0, time.Local)}
	ledger := NewLedgerService(backing, nil)
	ledger.SetClock(clock.Now)
	ctx := context.Background()

	if _, err := ledger.AddManualMeal(ctx, ManualMealInput{Name: "Pizza", Calories: 800}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := ledger.AdjustWater(ctx, 3); err != nil {
		t.Fatalf("water: %v", err)
	}

	backing.fail = func(key string) bool { return key == store.KeyWaterCount }
	if err := ledger.ClearDay(ctx); !errors.Is(err, errSaveFailed) {
		t.Fatalf("expected save failure, got %v", err)
	}

	backing.fail = nil
	snapshot, err := ledger.Today(ctx)
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if len(snapshot.Entries) != 1 || snapshot.Water != 3 {
		t.Fatalf("expected day untouched after failed clear, got %+v", snapshot)
	}
}

func TestLedgerWaterClampsAndRollsOver(t *testing.T) {
	ledger, _, clock := newTestLedger(t)
	ctx := context.Background()

	if got, _ := ledger.AdjustWater(ctx, 3); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if got, _ := ledger.AdjustWater(ctx, -10); got != 0 {
		t.Fatalf("expected clamp at 0, got %d", got)
	}
	if got, _ := ledger.AdjustWater(ctx, 2); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}

	clock.now = clock.now.Add(24 * time.Hour)
	if got, err := ledger.Water(ctx); err != nil || got != 0 {
		t.Fatalf("expected new day to start at 0, got %d %v", got, err)
	}
	if got, _ := ledger.AdjustWater(ctx, 1); got != 1 {
		t.Fatalf("expected 1 on the new day, got %d", got)
	}
}

func TestLedgerBucketsByDate(t *testing.T) {
	ledger, _, clock := newTestLedger(t)
	ctx := context.Background()

	if _, err := ledger.AddManualMeal(ctx, ManualMealInput{Name: "Soup", Calories: 200}); err != nil {
		t.Fatalf("add: %v", err)
	}
	clock.now = clock.now.Add(24 * time.Hour)

	entries, _ := ledger.Entries(ctx)
	if len(entries) != 0 {
		t.Fatalf("expected new day to be empty, got %+v", entries)
	}
	days, err := ledger.Days(ctx)
	if err != nil {
		t.Fatalf("days: %v", err)
	}
	if len(days["2026-03-14"]) != 1 {
		t.Fatalf("expected previous bucket to be preserved, got %+v", days)
	}
}

func TestLedgerDiscardsMalformedLogs(t *testing.T) {
	ledger, mem, _ := newTestLedger(t)
	ctx := context.Background()

	if err := mem.Save(ctx, store.KeyDailyLogs, []byte(`{"2026-03-14":[{"id":"x","type":"meal","time":"09:00","items":[]}]}`)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	entries, err := ledger.Entries(ctx)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected malformed log to be discarded, got %+v", entries)
	}
	if _, err := mem.Load(ctx, store.KeyDailyLogs); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected corrupt record to be deleted, got %v", err)
	}

	if _, err := ledger.AddManualMeal(ctx, ManualMealInput{Name: "Tea", Calories: 5}); err != nil {
		t.Fatalf("expected ledger to restart empty, got %v", err)
	}
}

func TestLedgerTodayUsesProfileGoal(t *testing.T) {
	ledger, _, _ := newTestLedger(t)
	ctx := context.Background()

	profiles := ledger.profiles
	if _, err := profiles.Create(ctx, SignUpInput{Name: "Lin", Email: "lin@example.com", Avatar: "🍎"}); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	age, height, weight := 30, 170.0, 70.0
	activity, goal := string(nutrition.ActivitySedentary), string(nutrition.GoalLoseWeight)
	if _, err := profiles.Update(ctx, ProfileUpdate{
		Age: &age, HeightCm: &height, CurrentWeight: &weight,
		ActivityLevel: &activity, FitnessGoal: &goal,
	}); err != nil {
		t.Fatalf("update profile: %v", err)
	}

	if _, err := ledger.AddManualMeal(ctx, ManualMealInput{Name: "Burrito", Calories: 465}); err != nil {
		t.Fatalf("add: %v", err)
	}
	snapshot, err := ledger.Today(ctx)
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if snapshot.CalorieGoal != 1465 || snapshot.RemainingCalories != 1000 {
		t.Fatalf("unexpected goal fields: %+v", snapshot)
	}
}
