package progress

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the calendar date format stored with every workout day.
const DateLayout = "2006-01-02"

var (
	ErrDayNotFound = errors.New("workout day not found")
	ErrDayInFuture = errors.New("workout day not reached yet")
)

// WorkoutDay is one calendar-program day.
// Day numbers define ordering; Date is only used to detect elapsed real-world days.
type WorkoutDay struct {
	Day       int    `json:"day"`
	Target    int    `json:"target"`
	Completed bool   `json:"completed"`
	Actual    int    `json:"actual"`
	JokerUsed bool   `json:"jokerUsed"`
	Date      string `json:"date"`
}

// MetTarget reports whether the logged reps reach the day's goal.
func (d WorkoutDay) MetTarget() bool {
	return d.Actual >= d.Target
}

// UserProgress is the whole-program aggregate, one per user/device.
type UserProgress struct {
	CurrentDay    int          `json:"currentDay"`
	Streak        int          `json:"streak"`
	Level         int          `json:"level"`
	LevelProgress int          `json:"levelProgress"`
	Days          []WorkoutDay `json:"days"`
}

// NewUserProgress creates a fresh record holding only day 1.
func NewUserProgress(schedule *Schedule, today time.Time) *UserProgress {
	return &UserProgress{
		CurrentDay:    1,
		Streak:        0,
		Level:         1,
		LevelProgress: 0,
		Days: []WorkoutDay{
			{
				Day:       1,
				Target:    schedule.TargetFor(1),
				Completed: false,
				Actual:    0,
				JokerUsed: false,
				Date:      FormatDate(today),
			},
		},
	}
}

// ActiveDay returns a pointer to the day matching CurrentDay, or nil.
func (p *UserProgress) ActiveDay() *WorkoutDay {
	if p == nil || len(p.Days) == 0 {
		return nil
	}
	// the active day is normally the last one
	last := &p.Days[len(p.Days)-1]
	if last.Day == p.CurrentDay {
		return last
	}
	for i := range p.Days {
		if p.Days[i].Day == p.CurrentDay {
			return &p.Days[i]
		}
	}
	return nil
}

// Day returns the workout day with the given number.
func (p *UserProgress) Day(dayNumber int) (WorkoutDay, bool) {
	for _, d := range p.Days {
		if d.Day == dayNumber {
			return d, true
		}
	}
	return WorkoutDay{}, false
}

// CompletedDays counts days that count toward streak/level/achievement accounting.
func (p *UserProgress) CompletedDays() int {
	count := 0
	for _, d := range p.Days {
		if d.Completed {
			count++
		}
	}
	return count
}

// AvailableJokers counts banked streak charges: completed days whose joker is still unused.
func (p *UserProgress) AvailableJokers() int {
	count := 0
	for _, d := range p.Days {
		if d.Completed && !d.JokerUsed {
			count++
		}
	}
	return count
}

// Clone returns a deep copy.
func (p *UserProgress) Clone() *UserProgress {
	if p == nil {
		return nil
	}
	c := *p
	c.Days = make([]WorkoutDay, len(p.Days))
	copy(c.Days, p.Days)
	return &c
}

// Validate checks the structural invariants of the aggregate.
func (p *UserProgress) Validate() error {
	if len(p.Days) == 0 {
		return errors.New("no workout days")
	}
	for i, d := range p.Days {
		if d.Day != i+1 {
			return fmt.Errorf("day at index %d has number %d, want %d", i, d.Day, i+1)
		}
		if d.Target < 0 || d.Actual < 0 {
			return fmt.Errorf("day %d has negative target or actual", d.Day)
		}
		if d.JokerUsed && !d.Completed {
			return fmt.Errorf("day %d uses a joker but is not completed", d.Day)
		}
		if _, err := ParseDate(d.Date); err != nil {
			return fmt.Errorf("day %d: %w", d.Day, err)
		}
	}
	if last := p.Days[len(p.Days)-1]; last.Day != p.CurrentDay {
		return fmt.Errorf("current day %d is not the last day %d", p.CurrentDay, last.Day)
	}
	if p.Streak < 0 {
		return errors.New("negative streak")
	}
	if p.Level < 1 {
		return errors.New("level below 1")
	}
	if p.LevelProgress < 0 || p.LevelProgress > 100 {
		return fmt.Errorf("level progress %d out of range", p.LevelProgress)
	}
	return nil
}

// Normalize repairs field-level inconsistencies that older exports may carry.
// A joker-backed day always counts as completed.
func (p *UserProgress) Normalize() {
	for i := range p.Days {
		d := &p.Days[i]
		d.Target = max(d.Target, 0)
		d.Actual = max(d.Actual, 0)
		if d.JokerUsed {
			d.Completed = true
		}
	}
	p.Streak = max(p.Streak, 0)
	p.Level = max(p.Level, 1)
	p.LevelProgress = min(max(p.LevelProgress, 0), 100)
}

// NavigateTo returns the existing day with the given number for display.
// Only days up to the current day can be viewed; progress is not modified.
func NavigateTo(p *UserProgress, dayNumber int) (WorkoutDay, error) {
	if dayNumber > p.CurrentDay {
		return WorkoutDay{}, ErrDayInFuture
	}
	day, ok := p.Day(dayNumber)
	if !ok {
		return WorkoutDay{}, ErrDayNotFound
	}
	return day, nil
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate accepts both plain dates and full RFC3339 timestamps, keeping the date part.
func ParseDate(s string) (time.Time, error) {
	if len(s) > len(DateLayout) {
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			s = ts.Format(DateLayout)
		}
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date [%s]: %w", s, err)
	}
	return d, nil
}

// DaysBetween returns the number of whole calendar days from the date string to today.
func DaysBetween(date string, today time.Time) (int, error) {
	from, err := ParseDate(date)
	if err != nil {
		return 0, err
	}
	to, err := ParseDate(FormatDate(today))
	if err != nil {
		return 0, err
	}
	return int(to.Sub(from).Hours() / 24), nil
}

// nextDate returns the calendar date following the given one.
func nextDate(date string) string {
	d, err := ParseDate(date)
	if err != nil {
		return date
	}
	return FormatDate(d.AddDate(0, 0, 1))
}
