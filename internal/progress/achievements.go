package progress

const perfectWeekLength = 7

const (
	AchievementFirstDay   = "first_day"
	AchievementWeekStreak = "week_streak"
	AchievementLevelUp    = "level_up"
	AchievementHalfway    = "halfway"
	AchievementNoJoker    = "no_joker"
	AchievementMaster     = "master"
)

// Achievement is a derived milestone flag. It is never stored.
type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Unlocked    bool   `json:"unlocked"`
}

type achievementRule struct {
	id          string
	name        string
	description string
	icon        string
	unlocked    func(p *UserProgress, maxLevel int) bool
}

var achievementRules = []achievementRule{
	{
		id:          AchievementFirstDay,
		name:        "First Step",
		description: "Complete your first day",
		icon:        "🥇",
		unlocked: func(p *UserProgress, _ int) bool {
			return p.CompletedDays() >= 1
		},
	},
	{
		id:          AchievementWeekStreak,
		name:        "Weekly Warrior",
		description: "Complete 7 days in a row",
		icon:        "🔥",
		unlocked: func(p *UserProgress, _ int) bool {
			return p.Streak >= 7
		},
	},
	{
		id:          AchievementLevelUp,
		name:        "Level Up",
		description: "Reach Amateur level",
		icon:        "⬆️",
		unlocked: func(p *UserProgress, _ int) bool {
			return p.Level >= 2
		},
	},
	{
		id:          AchievementHalfway,
		name:        "Halfway There",
		description: "Complete 25 days",
		icon:        "🏃",
		unlocked: func(p *UserProgress, _ int) bool {
			return p.CompletedDays() >= 25
		},
	},
	{
		id:          AchievementNoJoker,
		name:        "Perfect Week",
		description: "Complete a week without using jokers",
		icon:        "✨",
		unlocked: func(p *UserProgress, _ int) bool {
			return hasPerfectWeek(p.Days)
		},
	},
	{
		id:          AchievementMaster,
		name:        "Master",
		description: "Reach Master level",
		icon:        "👑",
		unlocked: func(p *UserProgress, maxLevel int) bool {
			return p.Level >= maxLevel
		},
	},
}

// DeriveAchievements recomputes the full ordered achievement set from progress.
func (s *Schedule) DeriveAchievements(p *UserProgress) []Achievement {
	achievements := make([]Achievement, 0, len(achievementRules))
	for _, rule := range achievementRules {
		achievements = append(achievements, Achievement{
			ID:          rule.id,
			Name:        rule.name,
			Description: rule.description,
			Icon:        rule.icon,
			Unlocked:    p != nil && rule.unlocked(p, s.MaxLevel()),
		})
	}
	return achievements
}

// NewlyUnlocked returns the achievements that flipped from locked to unlocked.
func NewlyUnlocked(prev, next []Achievement) []Achievement {
	wasUnlocked := make(map[string]bool, len(prev))
	for _, a := range prev {
		wasUnlocked[a.ID] = a.Unlocked
	}

	var unlocked []Achievement
	for _, a := range next {
		if a.Unlocked && !wasUnlocked[a.ID] {
			unlocked = append(unlocked, a)
		}
	}
	return unlocked
}

// hasPerfectWeek scans all days, in day order, for seven consecutive
// completed days none of which is backed by a joker.
func hasPerfectWeek(days []WorkoutDay) bool {
	run := 0
	for _, d := range days {
		if d.Completed && !d.JokerUsed {
			run++
			if run >= perfectWeekLength {
				return true
			}
			continue
		}
		run = 0
	}
	return false
}
