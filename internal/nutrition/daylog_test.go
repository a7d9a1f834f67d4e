package nutrition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMeal() LogEntry {
	return NewMeal("meal-1", "08:30",
		MacroEntry{Name: "燕麦", Calories: 300, Protein: 20, Carbs: 40, Fat: 6, Sugar: 2},
		MacroEntry{Name: "香蕉", Calories: 200, Protein: 5, Carbs: 45, Fat: 1, Sugar: 20},
	)
}

func TestComputeTotalsSubtractsExerciseFromCaloriesOnly(t *testing.T) {
	log := DayLog{}.Prepend([]LogEntry{sampleMeal()})
	log = log.Prepend([]LogEntry{NewExercise("run-1", "18:00", "跑步", 150)})

	totals := ComputeTotals(log)

	assert.Equal(t, 350.0, totals.Calories)
	assert.Equal(t, 25.0, totals.Protein)
	assert.Equal(t, 85.0, totals.Carbohydrates)
	assert.Equal(t, 7.0, totals.Fat)
}

func TestComputeTotalsAllowsNegativeNet(t *testing.T) {
	log := DayLog{NewExercise("swim", "07:00", "游泳", 400)}
	totals := ComputeTotals(log)
	assert.Equal(t, -400.0, totals.Calories)
	assert.Zero(t, totals.Protein)
}

func TestPrependKeepsNewestFirst(t *testing.T) {
	log := DayLog{NewExercise("old", "07:00", "步行", 50)}
	out := log.Prepend([]LogEntry{
		NewMeal("a", "12:00", MacroEntry{Name: "米饭", Calories: 200}),
		NewMeal("b", "12:05", MacroEntry{Name: "鸡胸", Calories: 150}),
	})

	require.Len(t, out, 3)
	assert.Equal(t, []string{"a", "b", "old"}, []string{out[0].ID, out[1].ID, out[2].ID})
	assert.Len(t, log, 1, "original log must not be modified")

	assert.Equal(t, log, log.Prepend(nil))
}

func TestRemoveMealItemDropsEmptyMeal(t *testing.T) {
	log := DayLog{sampleMeal()}

	out, itemRemoved, entryRemoved := log.RemoveMealItem("meal-1", 0)
	require.True(t, itemRemoved)
	assert.False(t, entryRemoved)
	require.Len(t, out, 1)
	require.Len(t, out[0].Items, 1)
	assert.Equal(t, "香蕉", out[0].Items[0].Name)
	assert.Equal(t, 200.0, ComputeTotals(out).Calories)
	assert.Len(t, log[0].Items, 2, "original meal must keep its items")

	out, itemRemoved, entryRemoved = out.RemoveMealItem("meal-1", 0)
	assert.True(t, itemRemoved)
	assert.True(t, entryRemoved)
	assert.Empty(t, out)
}

func TestRemoveMealItemOutOfRangeIsNoop(t *testing.T) {
	log := DayLog{sampleMeal(), NewExercise("run", "18:00", "跑步", 100)}

	for _, tc := range []struct {
		name  string
		id    string
		index int
	}{
		{name: "negative", id: "meal-1", index: -1},
		{name: "past end", id: "meal-1", index: 2},
		{name: "unknown entry", id: "missing", index: 0},
		{name: "exercise entry", id: "run", index: 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			out, itemRemoved, entryRemoved := log.RemoveMealItem(tc.id, tc.index)
			assert.False(t, itemRemoved)
			assert.False(t, entryRemoved)
			assert.Equal(t, log, out)
		})
	}
}

func TestRemoveEntry(t *testing.T) {
	log := DayLog{sampleMeal(), NewExercise("run", "18:00", "跑步", 100)}

	out, removed := log.RemoveEntry("run")
	assert.True(t, removed)
	assert.Len(t, out, 1)

	out, removed = out.RemoveEntry("run")
	assert.False(t, removed)
	assert.Len(t, out, 1)
}

func TestReplaceMealItem(t *testing.T) {
	log := DayLog{sampleMeal()}

	out, err := log.ReplaceMealItem("meal-1", 1, MacroEntry{Name: "苹果", Calories: 90, Carbs: 22})
	require.NoError(t, err)
	assert.Equal(t, "苹果", out[0].Items[1].Name)
	assert.Equal(t, 390.0, ComputeTotals(out).Calories)
	assert.Equal(t, "香蕉", log[0].Items[1].Name)

	_, err = log.ReplaceMealItem("meal-1", 5, MacroEntry{Name: "x"})
	assert.ErrorIs(t, err, ErrItemOutOfRange)

	_, err = log.ReplaceMealItem("nope", 0, MacroEntry{Name: "x"})
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestLogEntryValidate(t *testing.T) {
	assert.NoError(t, sampleMeal().Validate())
	assert.NoError(t, NewExercise("e", "07:00", "骑行", 0).Validate())

	assert.ErrorIs(t, NewMeal("m", "07:00").Validate(), ErrInvalidEntry)
	assert.ErrorIs(t, NewMeal("m", "07:00", MacroEntry{Name: "", Calories: 1}).Validate(), ErrInvalidEntry)
	assert.ErrorIs(t, NewMeal("m", "07:00", MacroEntry{Name: "盐", Fat: -1}).Validate(), ErrInvalidEntry)
	assert.ErrorIs(t, NewExercise("e", "07:00", " ", 10).Validate(), ErrInvalidEntry)
	assert.ErrorIs(t, LogEntry{ID: "x", Kind: "snack"}.Validate(), ErrInvalidEntry)
}
