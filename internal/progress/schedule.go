package progress

import (
	"errors"
	"fmt"
)

// DefaultTargets is the progressive nine-week program, one target per program day.
var DefaultTargets = []int{
	5, 6, 7, 8, 9, // week 1
	10, 12, 14, 16, 18, // week 2
	20, 22, 24, 26, 28, // week 3
	30, 32, 34, 36, 38, // week 4
	40, 42, 44, 46, 48, // week 5
	50, 52, 54, 56, 58, // week 6
	60, 62, 64, 66, 68, // week 7
	70, 72, 74, 76, 78, // week 8
	80, 85, 90, 95, 100, // week 9
}

// DefaultLevelThresholds holds the completed-day count at which each level begins.
var DefaultLevelThresholds = []int{0, 10, 20, 30, 40}

var levelNames = map[int]string{
	1: "Beginner",
	2: "Amateur",
	3: "Intermediate",
	4: "Advanced",
	5: "Master",
}

// Schedule is the workout program: per-day targets plus level thresholds.
type Schedule struct {
	targets    []int
	thresholds []int
}

func DefaultSchedule() *Schedule {
	s, err := NewSchedule(DefaultTargets, DefaultLevelThresholds)
	if err != nil {
		panic(err)
	}
	return s
}

func NewSchedule(targets, thresholds []int) (*Schedule, error) {
	if len(targets) == 0 {
		return nil, errors.New("schedule has no targets")
	}
	if len(thresholds) == 0 || thresholds[0] != 0 {
		return nil, errors.New("first level threshold must be 0")
	}
	for i, t := range targets {
		if t < 0 {
			return nil, fmt.Errorf("negative target at day %d", i+1)
		}
	}
	for i := 1; i < len(thresholds); i++ {
		if thresholds[i] < thresholds[i-1] {
			return nil, fmt.Errorf("level thresholds not ascending at index %d", i)
		}
	}

	s := &Schedule{
		targets:    make([]int, len(targets)),
		thresholds: make([]int, len(thresholds)),
	}
	copy(s.targets, targets)
	copy(s.thresholds, thresholds)
	return s, nil
}

// TargetFor returns the rep goal for a program day; past the end it holds at the last value.
func (s *Schedule) TargetFor(day int) int {
	if day < 1 {
		return s.targets[0]
	}
	if day > len(s.targets) {
		return s.targets[len(s.targets)-1]
	}
	return s.targets[day-1]
}

// Length is the number of scheduled program days.
func (s *Schedule) Length() int {
	return len(s.targets)
}

func (s *Schedule) MaxLevel() int {
	return len(s.thresholds)
}

func (s *Schedule) Thresholds() []int {
	t := make([]int, len(s.thresholds))
	copy(t, s.thresholds)
	return t
}

// LevelName returns the display name of a level, falling back to the first one.
func LevelName(level int) string {
	if name, ok := levelNames[level]; ok {
		return name
	}
	return levelNames[1]
}
