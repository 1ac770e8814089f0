package notify

import (
	"context"
	"fmt"
)

type Kind string

const (
	KindReminder     Kind = "reminder"
	KindStreakSaved  Kind = "streak_saved"
	KindStreakReset  Kind = "streak_reset"
	KindDayCompleted Kind = "day_completed"
	KindAchievement  Kind = "achievement"
)

// Notification is a local alert with a title and a body.
type Notification struct {
	Kind               Kind   `json:"kind"`
	Title              string `json:"title"`
	Body               string `json:"body"`
	RequireInteraction bool   `json:"requireInteraction"`
}

// Dispatcher shows notifications. Delivery is best effort; callers log and ignore errors.
type Dispatcher interface {
	Notify(ctx context.Context, n Notification) error
}

func ReminderNotification() Notification {
	return Notification{
		Kind:               KindReminder,
		Title:              "Push-up Journey Reminder",
		Body:               "Don't forget to complete your daily push-ups!",
		RequireInteraction: true,
	}
}

func StreakSavedNotification(jokersUsed int) Notification {
	body := "We used one of your streak charges to maintain your streak."
	if jokersUsed > 1 {
		body = fmt.Sprintf("We used %d of your streak charges to maintain your streak.", jokersUsed)
	}
	return Notification{
		Kind:               KindStreakSaved,
		Title:              "Streak Saved! 🃏",
		Body:               body,
		RequireInteraction: true,
	}
}

func StreakResetNotification() Notification {
	return Notification{
		Kind:               KindStreakReset,
		Title:              "Streak Reset 😢",
		Body:               "Your streak has been reset because you missed a day and had no streak charges left.",
		RequireInteraction: true,
	}
}

func DayCompletedNotification(day, actual int) Notification {
	return Notification{
		Kind:               KindDayCompleted,
		Title:              "Day Completed! 🎉",
		Body:               fmt.Sprintf("Great job completing Day %d! You've done %d push-ups today.", day, actual),
		RequireInteraction: true,
	}
}

func AchievementNotification(name, description string) Notification {
	return Notification{
		Kind:               KindAchievement,
		Title:              "Achievement Unlocked: " + name,
		Body:               description,
		RequireInteraction: true,
	}
}
