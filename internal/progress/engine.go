package progress

import (
	"time"
)

// Engine holds the streak, joker and leveling transition rules.
// Every transition mutates the given progress in place and takes "today" explicitly.
type Engine struct {
	schedule *Schedule
}

func NewEngine(schedule *Schedule) *Engine {
	if schedule == nil {
		schedule = DefaultSchedule()
	}
	return &Engine{
		schedule: schedule,
	}
}

func (e *Engine) Schedule() *Schedule {
	return e.schedule
}

// ReconcileResult describes what the load-time catch-up did.
type ReconcileResult struct {
	DaysElapsed    int  `json:"daysElapsed"`
	DaysAdvanced   int  `json:"daysAdvanced"`
	JokersConsumed int  `json:"jokersConsumed"`
	StreakReset    bool `json:"streakReset"`
}

// Changed reports whether achievements need to be re-derived.
func (r ReconcileResult) Changed() bool {
	return r.DaysAdvanced > 0 || r.JokersConsumed > 0
}

// RecordCount logs the repetitions for the active day.
// Completion is recomputed from the count unless a joker backs the day.
func (e *Engine) RecordCount(p *UserProgress, count int) bool {
	day := p.ActiveDay()
	if day == nil {
		return false
	}
	if count < 0 {
		count = 0
	}

	wasCompleted := day.Completed
	day.Actual = count
	if !day.JokerUsed {
		day.Completed = count >= day.Target
	}

	if day.Completed != wasCompleted {
		e.applyCompletionChange(p, day.Completed)
	}
	return true
}

// ToggleCompleted flips the manual completion of the active day.
// A joker-backed day is locked.
func (e *Engine) ToggleCompleted(p *UserProgress) bool {
	day := p.ActiveDay()
	if day == nil || day.JokerUsed {
		return false
	}

	day.Completed = !day.Completed
	if day.Completed {
		day.Actual = max(day.Actual, day.Target)
	} else {
		day.Actual = 0
	}

	e.applyCompletionChange(p, day.Completed)
	return true
}

// ToggleJoker spends or returns a streak charge on the active day.
// Turning a joker on preserves the streak without growing it and clears the logged reps.
// Turning it off clears the day and costs one streak day. Level is not recomputed.
func (e *Engine) ToggleJoker(p *UserProgress) bool {
	day := p.ActiveDay()
	if day == nil {
		return false
	}

	day.JokerUsed = !day.JokerUsed
	if day.JokerUsed {
		day.Completed = true
		day.Actual = 0
		return true
	}

	day.Completed = false
	day.Actual = 0
	p.Streak = max(0, p.Streak-1)
	return true
}

// AdvanceDay appends the next program day once the active day is completed.
// It returns the finished day.
func (e *Engine) AdvanceDay(p *UserProgress, today time.Time) (WorkoutDay, bool) {
	day := p.ActiveDay()
	if day == nil || !day.Completed {
		return WorkoutDay{}, false
	}
	finished := *day
	e.appendNextDay(p, FormatDate(today))
	return finished, true
}

// ReconcileElapsedTime catches up on calendar days that passed while the app was closed.
// Every missed day consumes the earliest banked joker; with an empty bank the streak and
// level progress reset and the active day is re-stamped to today.
func (e *Engine) ReconcileElapsedTime(p *UserProgress, today time.Time) ReconcileResult {
	var res ReconcileResult

	day := p.ActiveDay()
	if day == nil {
		return res
	}
	elapsed, err := DaysBetween(day.Date, today)
	if err != nil || elapsed <= 0 {
		return res
	}
	res.DaysElapsed = elapsed

	todayDate := FormatDate(today)
	for remaining := elapsed; remaining > 0; remaining-- {
		day = p.ActiveDay()
		nextDayDate := todayDate
		if remaining > 1 {
			nextDayDate = nextDate(day.Date)
		}

		if day.Completed {
			e.appendNextDay(p, nextDayDate)
			res.DaysAdvanced++
			continue
		}

		jokerIdx := e.earliestJokerIndex(p)
		if jokerIdx < 0 {
			p.Streak = 0
			p.LevelProgress = 0
			day.Date = todayDate
			res.StreakReset = true
			break
		}

		p.Days[jokerIdx].JokerUsed = true
		// the bank index can never be the active day, it is not completed
		day = p.ActiveDay()
		day.Completed = true
		day.JokerUsed = true
		res.JokersConsumed++

		e.appendNextDay(p, nextDayDate)
		res.DaysAdvanced++
	}

	return res
}

func (e *Engine) earliestJokerIndex(p *UserProgress) int {
	for i, d := range p.Days {
		if d.Completed && !d.JokerUsed {
			return i
		}
	}
	return -1
}

func (e *Engine) appendNextDay(p *UserProgress, date string) {
	next := p.CurrentDay + 1
	p.Days = append(p.Days, WorkoutDay{
		Day:       next,
		Target:    e.schedule.TargetFor(next),
		Completed: false,
		Actual:    0,
		JokerUsed: false,
		Date:      date,
	})
	p.CurrentDay = next
}

func (e *Engine) applyCompletionChange(p *UserProgress, completed bool) {
	if completed {
		p.Streak++
	} else {
		p.Streak = max(0, p.Streak-1)
	}

	lp := e.schedule.CalculateLevelProgress(p.CompletedDays())
	p.Level = lp.Level
	p.LevelProgress = lp.Progress
}
