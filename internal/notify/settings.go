package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	log "github.com/sirupsen/logrus"
)

// SettingsKey is the store key of the persisted notification preferences.
const SettingsKey = "pushup-journey-notification-settings"

const timeOfDayLayout = "15:04"

var (
	ErrInvalidTime    = errors.New("invalid notification time, expected HH:MM")
	ErrInvalidWeekday = errors.New("invalid weekday, expected 0 (Sunday) to 6 (Saturday)")
)

type Settings struct {
	StreakEnabled      bool     `json:"streakEnabled"`
	AchievementEnabled bool     `json:"achievementEnabled"`
	NotificationTimes  []string `json:"notificationTimes"`
	DaysEnabled        []int    `json:"daysEnabled"`
}

func DefaultSettings() Settings {
	return Settings{
		StreakEnabled:      true,
		AchievementEnabled: true,
		NotificationTimes:  []string{"18:00", "21:00"},
		DaysEnabled:        []int{0, 1, 2, 3, 4, 5, 6},
	}
}

// AddTime adds a reminder time; duplicates are ignored and the list stays sorted.
func (s *Settings) AddTime(hhmm string) error {
	if !validTimeOfDay(hhmm) {
		return ErrInvalidTime
	}
	if !slices.Contains(s.NotificationTimes, hhmm) {
		s.NotificationTimes = append(s.NotificationTimes, hhmm)
		slices.Sort(s.NotificationTimes)
	}
	return nil
}

func (s *Settings) RemoveTime(hhmm string) {
	s.NotificationTimes = slices.DeleteFunc(s.NotificationTimes, func(t string) bool {
		return t == hhmm
	})
}

// ToggleDay enables or disables reminders on a weekday (0 = Sunday).
func (s *Settings) ToggleDay(weekday int) error {
	if weekday < 0 || weekday > 6 {
		return ErrInvalidWeekday
	}
	if slices.Contains(s.DaysEnabled, weekday) {
		s.DaysEnabled = slices.DeleteFunc(s.DaysEnabled, func(d int) bool {
			return d == weekday
		})
		return nil
	}
	s.DaysEnabled = append(s.DaysEnabled, weekday)
	slices.Sort(s.DaysEnabled)
	return nil
}

func (s *Settings) SetStreakEnabled(enabled bool) {
	s.StreakEnabled = enabled
}

func (s *Settings) SetAchievementEnabled(enabled bool) {
	s.AchievementEnabled = enabled
}

// Normalize validates every entry, then dedupes and sorts times and days.
func (s *Settings) Normalize() error {
	for _, t := range s.NotificationTimes {
		if !validTimeOfDay(t) {
			return fmt.Errorf("%w: %q", ErrInvalidTime, t)
		}
	}
	for _, d := range s.DaysEnabled {
		if d < 0 || d > 6 {
			return fmt.Errorf("%w: %d", ErrInvalidWeekday, d)
		}
	}
	if s.NotificationTimes == nil {
		s.NotificationTimes = []string{}
	}
	if s.DaysEnabled == nil {
		s.DaysEnabled = []int{}
	}
	slices.Sort(s.NotificationTimes)
	s.NotificationTimes = slices.Compact(s.NotificationTimes)
	slices.Sort(s.DaysEnabled)
	s.DaysEnabled = slices.Compact(s.DaysEnabled)
	return nil
}

// ShouldRemind reports whether a streak reminder is due at the given moment.
func (s Settings) ShouldRemind(now time.Time) bool {
	if !s.StreakEnabled {
		return false
	}
	if !slices.Contains(s.DaysEnabled, int(now.Weekday())) {
		return false
	}
	return slices.Contains(s.NotificationTimes, now.Format(timeOfDayLayout))
}

func validTimeOfDay(hhmm string) bool {
	if len(hhmm) != len(timeOfDayLayout) {
		return false
	}
	_, err := time.Parse(timeOfDayLayout, hhmm)
	return err == nil
}

type blobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// SettingsStore loads and saves settings as a JSON blob.
type SettingsStore struct {
	store blobStore
}

func NewSettingsStore(store blobStore) *SettingsStore {
	return &SettingsStore{
		store: store,
	}
}

// Load returns the saved settings, or the defaults when none are saved or they cannot be read.
func (s *SettingsStore) Load(ctx context.Context) Settings {
	raw, err := s.store.Get(ctx, SettingsKey)
	if err != nil {
		log.Debugf("load notification settings, using defaults: %s", err)
		return DefaultSettings()
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(raw, &settings); err != nil {
		log.Errorf("decode notification settings, using defaults: %s", err)
		return DefaultSettings()
	}
	if err := settings.Normalize(); err != nil {
		log.Errorf("invalid stored notification settings, using defaults: %s", err)
		return DefaultSettings()
	}
	return settings
}

func (s *SettingsStore) Save(ctx context.Context, settings Settings) error {
	if err := settings.Normalize(); err != nil {
		return err
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal notification settings: %w", err)
	}
	if err := s.store.Set(ctx, SettingsKey, raw); err != nil {
		return fmt.Errorf("save notification settings: %w", err)
	}
	return nil
}
