package progress

// LevelProgress is the level derived from a count of completed days,
// with the percent progress toward the next level.
type LevelProgress struct {
	Level    int `json:"level"`
	Progress int `json:"progress"`
}

// CalculateLevelProgress derives level and in-level progress from completed days.
// The level window is [threshold[level-1], next threshold or schedule length).
func (s *Schedule) CalculateLevelProgress(completedDays int) LevelProgress {
	if completedDays < 0 {
		completedDays = 0
	}

	level := 1
	for i := 1; i < len(s.thresholds); i++ {
		if completedDays >= s.thresholds[i] {
			level = i + 1
		}
	}

	windowStart := s.thresholds[level-1]
	windowEnd := s.Length()
	if level < len(s.thresholds) {
		windowEnd = s.thresholds[level]
	}
	windowSize := windowEnd - windowStart
	if windowSize <= 0 {
		return LevelProgress{Level: level, Progress: 100}
	}

	progress := 100 * (completedDays - windowStart) / windowSize
	return LevelProgress{
		Level:    level,
		Progress: clamp(progress, 0, 100),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// LevelInfo describes one level of the program.
type LevelInfo struct {
	Level    int    `json:"level"`
	Name     string `json:"name"`
	FromDays int    `json:"fromDays"`
	// ToDays is exclusive; the last level runs until the end of the schedule.
	ToDays int `json:"toDays"`
}

func (s *Schedule) LevelTable() []LevelInfo {
	table := make([]LevelInfo, 0, len(s.thresholds))
	for i, from := range s.thresholds {
		to := s.Length()
		if i+1 < len(s.thresholds) {
			to = s.thresholds[i+1]
		}
		table = append(table, LevelInfo{
			Level:    i + 1,
			Name:     LevelName(i + 1),
			FromDays: from,
			ToDays:   to,
		})
	}
	return table
}
