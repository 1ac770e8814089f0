package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testToday = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return testToday.AddDate(0, 0, -n)
}

// completedHistory builds progress with the given number of completed days
// followed by an open active day dated activeDate.
func completedHistory(t *testing.T, completed int, activeDate time.Time) *UserProgress {
	t.Helper()
	s := DefaultSchedule()
	p := &UserProgress{
		CurrentDay: completed + 1,
		Streak:     completed,
	}
	start := activeDate.AddDate(0, 0, -completed)
	for d := 1; d <= completed; d++ {
		p.Days = append(p.Days, WorkoutDay{
			Day:       d,
			Target:    s.TargetFor(d),
			Completed: true,
			Actual:    s.TargetFor(d),
			Date:      FormatDate(start.AddDate(0, 0, d-1)),
		})
	}
	p.Days = append(p.Days, WorkoutDay{
		Day:    completed + 1,
		Target: s.TargetFor(completed + 1),
		Date:   FormatDate(activeDate),
	})
	lp := s.CalculateLevelProgress(completed)
	p.Level = lp.Level
	p.LevelProgress = lp.Progress
	require.NoError(t, p.Validate())
	return p
}

func TestNewUserProgress(t *testing.T) {
	p := NewUserProgress(DefaultSchedule(), testToday)
	require.Len(t, p.Days, 1)
	assert.Equal(t, WorkoutDay{Day: 1, Target: 5, Date: "2024-03-10"}, p.Days[0])
	assert.Equal(t, 1, p.CurrentDay)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, 0, p.Streak)
	assert.NoError(t, p.Validate())
}

func TestEngine_RecordCount(t *testing.T) {
	e := NewEngine(nil)
	p := NewUserProgress(e.Schedule(), testToday)

	assert.True(t, e.RecordCount(p, 5))
	day := p.ActiveDay()
	assert.True(t, day.Completed)
	assert.Equal(t, 5, day.Actual)
	assert.Equal(t, 1, p.Streak)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, 10, p.LevelProgress)

	// more reps, still completed, streak not counted twice
	e.RecordCount(p, 12)
	assert.Equal(t, 12, p.ActiveDay().Actual)
	assert.Equal(t, 1, p.Streak)

	// below target uncompletes
	e.RecordCount(p, 3)
	assert.False(t, p.ActiveDay().Completed)
	assert.Equal(t, 0, p.Streak)
	assert.Equal(t, 0, p.LevelProgress)

	// negative counts are clamped
	e.RecordCount(p, -4)
	assert.Equal(t, 0, p.ActiveDay().Actual)
	assert.Equal(t, 0, p.Streak)
}

func TestEngine_RecordCount_JokerDayStaysCompleted(t *testing.T) {
	e := NewEngine(nil)
	p := NewUserProgress(e.Schedule(), testToday)
	require.True(t, e.ToggleJoker(p))

	e.RecordCount(p, 2)
	day := p.ActiveDay()
	assert.Equal(t, 2, day.Actual)
	assert.True(t, day.Completed)
	assert.True(t, day.JokerUsed)
	assert.NoError(t, p.Validate())
}

func TestEngine_RecordCount_NoActiveDay(t *testing.T) {
	e := NewEngine(nil)
	assert.False(t, e.RecordCount(&UserProgress{CurrentDay: 1}, 5))
	assert.False(t, e.ToggleCompleted(&UserProgress{CurrentDay: 1}))
	assert.False(t, e.ToggleJoker(&UserProgress{CurrentDay: 1}))
}

func TestEngine_ToggleCompleted(t *testing.T) {
	e := NewEngine(nil)
	p := completedHistory(t, 9, testToday)
	day := p.ActiveDay()
	day.Actual = 3

	require.True(t, e.ToggleCompleted(p))
	day = p.ActiveDay()
	assert.True(t, day.Completed)
	assert.Equal(t, day.Target, day.Actual)
	assert.Equal(t, 10, p.Streak)
	// 10 completed days opens level 2
	assert.Equal(t, 2, p.Level)
	assert.Equal(t, 0, p.LevelProgress)

	require.True(t, e.ToggleCompleted(p))
	day = p.ActiveDay()
	assert.False(t, day.Completed)
	assert.Equal(t, 0, day.Actual)
	assert.Equal(t, 9, p.Streak)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, 90, p.LevelProgress)
}

func TestEngine_ToggleCompleted_KeepsHigherCount(t *testing.T) {
	e := NewEngine(nil)
	p := NewUserProgress(e.Schedule(), testToday)
	p.ActiveDay().Actual = 4
	p.ActiveDay().Target = 3

	e.ToggleCompleted(p)
	assert.Equal(t, 4, p.ActiveDay().Actual)
}

func TestEngine_ToggleCompleted_LockedByJoker(t *testing.T) {
	e := NewEngine(nil)
	p := NewUserProgress(e.Schedule(), testToday)
	e.ToggleJoker(p)

	before := p.Clone()
	assert.False(t, e.ToggleCompleted(p))
	assert.Equal(t, before, p)
}

func TestEngine_ToggleJoker(t *testing.T) {
	e := NewEngine(nil)
	p := completedHistory(t, 3, testToday)
	p.ActiveDay().Actual = 2

	require.True(t, e.ToggleJoker(p))
	day := p.ActiveDay()
	assert.True(t, day.Completed)
	assert.True(t, day.JokerUsed)
	assert.Equal(t, 0, day.Actual, "logged reps are cleared by the joker")
	assert.Equal(t, 3, p.Streak)
	// level is not recomputed
	assert.Equal(t, 30, p.LevelProgress)

	require.True(t, e.ToggleJoker(p))
	day = p.ActiveDay()
	assert.False(t, day.Completed)
	assert.False(t, day.JokerUsed)
	assert.Equal(t, 0, day.Actual)
	assert.Equal(t, 2, p.Streak)
}

func TestEngine_ToggleJoker_StreakFloor(t *testing.T) {
	e := NewEngine(nil)
	p := NewUserProgress(e.Schedule(), testToday)

	e.ToggleJoker(p)
	e.ToggleJoker(p)
	assert.Equal(t, 0, p.Streak)
}

func TestEngine_AdvanceDay(t *testing.T) {
	e := NewEngine(nil)
	p := NewUserProgress(e.Schedule(), daysAgo(0))

	_, ok := e.AdvanceDay(p, testToday)
	assert.False(t, ok, "open day cannot be advanced")
	assert.Len(t, p.Days, 1)

	e.RecordCount(p, 7)
	finished, ok := e.AdvanceDay(p, testToday)
	require.True(t, ok)
	assert.Equal(t, 1, finished.Day)
	assert.Equal(t, 7, finished.Actual)

	require.Len(t, p.Days, 2)
	assert.Equal(t, 2, p.CurrentDay)
	assert.Equal(t, WorkoutDay{Day: 2, Target: 6, Date: "2024-03-10"}, *p.ActiveDay())
	assert.Equal(t, 1, p.Streak)
	assert.NoError(t, p.Validate())
}

func TestEngine_AdvanceDay_PastScheduleEnd(t *testing.T) {
	e := NewEngine(nil)
	p := completedHistory(t, 45, testToday)
	e.ToggleCompleted(p)

	_, ok := e.AdvanceDay(p, testToday)
	require.True(t, ok)
	assert.Equal(t, 47, p.CurrentDay)
	assert.Equal(t, 100, p.ActiveDay().Target)
}

func TestEngine_Reconcile_SameDay(t *testing.T) {
	e := NewEngine(nil)
	p := completedHistory(t, 5, testToday)
	before := p.Clone()

	res := e.ReconcileElapsedTime(p, testToday)
	assert.Equal(t, ReconcileResult{}, res)
	assert.False(t, res.Changed())
	assert.Equal(t, before, p)

	// clock moved backwards
	res = e.ReconcileElapsedTime(p, daysAgo(3))
	assert.Equal(t, ReconcileResult{}, res)
	assert.Equal(t, before, p)
}

func TestEngine_Reconcile_CompletedDayAdvances(t *testing.T) {
	e := NewEngine(nil)
	p := completedHistory(t, 2, daysAgo(1))
	e.ToggleCompleted(p)

	res := e.ReconcileElapsedTime(p, testToday)
	assert.Equal(t, ReconcileResult{DaysElapsed: 1, DaysAdvanced: 1}, res)
	assert.True(t, res.Changed())
	assert.Equal(t, 4, p.CurrentDay)
	assert.Equal(t, "2024-03-10", p.ActiveDay().Date)
	assert.False(t, p.ActiveDay().Completed)
	assert.Equal(t, 3, p.Streak)
}

func TestEngine_Reconcile_JokerSavesStreak(t *testing.T) {
	e := NewEngine(nil)
	p := completedHistory(t, 5, daysAgo(1))

	res := e.ReconcileElapsedTime(p, testToday)
	assert.Equal(t, ReconcileResult{DaysElapsed: 1, DaysAdvanced: 1, JokersConsumed: 1}, res)

	assert.True(t, p.Days[0].JokerUsed, "earliest banked joker is spent")
	for _, d := range p.Days[1:5] {
		assert.False(t, d.JokerUsed)
	}
	missed := p.Days[5]
	assert.True(t, missed.Completed)
	assert.True(t, missed.JokerUsed)
	assert.Equal(t, 5, p.Streak)

	assert.Equal(t, 7, p.CurrentDay)
	assert.Equal(t, "2024-03-10", p.ActiveDay().Date)
	assert.NoError(t, p.Validate())
}

func TestEngine_Reconcile_NoJokerResetsStreak(t *testing.T) {
	e := NewEngine(nil)
	p := completedHistory(t, 12, daysAgo(1))
	for i := 0; i < 12; i++ {
		p.Days[i].JokerUsed = true
	}
	require.Equal(t, 2, p.Level)

	res := e.ReconcileElapsedTime(p, testToday)
	assert.Equal(t, ReconcileResult{DaysElapsed: 1, StreakReset: true}, res)
	assert.False(t, res.Changed())

	assert.Equal(t, 0, p.Streak)
	assert.Equal(t, 0, p.LevelProgress)
	assert.Equal(t, 2, p.Level, "level is kept")
	assert.Equal(t, 13, p.CurrentDay, "no new day")
	assert.False(t, p.ActiveDay().Completed)
	assert.Equal(t, "2024-03-10", p.ActiveDay().Date)

	// the reset is stamped, a second load the same day changes nothing
	res = e.ReconcileElapsedTime(p, testToday)
	assert.Equal(t, ReconcileResult{}, res)
}

func TestEngine_Reconcile_MultiDayGap(t *testing.T) {
	e := NewEngine(nil)
	p := completedHistory(t, 2, daysAgo(3))

	res := e.ReconcileElapsedTime(p, testToday)
	assert.Equal(t, ReconcileResult{
		DaysElapsed:    3,
		DaysAdvanced:   2,
		JokersConsumed: 2,
		StreakReset:    true,
	}, res)

	require.Len(t, p.Days, 5)
	assert.True(t, p.Days[0].JokerUsed)
	assert.True(t, p.Days[1].JokerUsed)
	assert.True(t, p.Days[2].JokerUsed && p.Days[2].Completed)
	assert.True(t, p.Days[3].JokerUsed && p.Days[3].Completed)
	assert.Equal(t, "2024-03-08", p.Days[3].Date)

	assert.Equal(t, 5, p.CurrentDay)
	assert.False(t, p.ActiveDay().Completed)
	assert.Equal(t, "2024-03-10", p.ActiveDay().Date)
	assert.Equal(t, 0, p.Streak)
	assert.Equal(t, 0, p.AvailableJokers())
	assert.NoError(t, p.Validate())
}

func TestEngine_Reconcile_MultiDayGapWithEnoughJokers(t *testing.T) {
	e := NewEngine(nil)
	p := completedHistory(t, 6, daysAgo(2))
	e.ToggleCompleted(p)
	require.Equal(t, 7, p.Streak)

	res := e.ReconcileElapsedTime(p, testToday)
	assert.Equal(t, ReconcileResult{DaysElapsed: 2, DaysAdvanced: 2, JokersConsumed: 1}, res)

	require.Len(t, p.Days, 9)
	assert.True(t, p.Days[0].JokerUsed)
	assert.Equal(t, "2024-03-09", p.Days[7].Date)
	assert.True(t, p.Days[7].JokerUsed)
	assert.Equal(t, "2024-03-10", p.Days[8].Date)
	assert.Equal(t, 7, p.Streak)
	assert.Equal(t, 6, p.AvailableJokers())
}

func TestEngine_Reconcile_TimestampDates(t *testing.T) {
	e := NewEngine(nil)
	p := completedHistory(t, 1, daysAgo(1))
	p.ActiveDay().Date = "2024-03-09T21:15:00.000Z"

	res := e.ReconcileElapsedTime(p, testToday)
	assert.Equal(t, 1, res.DaysElapsed)
	assert.Equal(t, 1, res.JokersConsumed)
}

func TestNavigateTo(t *testing.T) {
	p := completedHistory(t, 3, testToday)
	before := p.Clone()

	day, err := NavigateTo(p, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, day.Day)

	_, err = NavigateTo(p, 5)
	assert.ErrorIs(t, err, ErrDayInFuture)
	_, err = NavigateTo(p, 0)
	assert.ErrorIs(t, err, ErrDayNotFound)

	assert.Equal(t, before, p)
}

func TestDaysBetween(t *testing.T) {
	n, err := DaysBetween("2024-03-01", testToday)
	require.NoError(t, err)
	assert.Equal(t, 9, n)

	// local date counts, not the UTC one
	cest := time.FixedZone("CEST", 2*60*60)
	n, err = DaysBetween("2024-03-30", time.Date(2024, 4, 1, 0, 30, 0, 0, cest))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = DaysBetween("yesterday", testToday)
	assert.Error(t, err)
}

func TestUserProgress_Validate(t *testing.T) {
	p := completedHistory(t, 2, testToday)

	broken := p.Clone()
	broken.Days[1].Day = 5
	assert.Error(t, broken.Validate())

	broken = p.Clone()
	broken.Days[0].Completed = false
	broken.Days[0].JokerUsed = true
	assert.Error(t, broken.Validate())

	broken = p.Clone()
	broken.CurrentDay = 1
	assert.Error(t, broken.Validate())

	broken = p.Clone()
	broken.Days = nil
	assert.Error(t, broken.Validate())

	broken = p.Clone()
	broken.LevelProgress = 101
	assert.Error(t, broken.Validate())
}
