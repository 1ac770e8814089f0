package main

import (
	"fmt"
	"strings"

	"github.com/2beens/pushupjourney/internal/notify"
	"github.com/2beens/pushupjourney/internal/progress"

	"github.com/charmbracelet/lipgloss"
)

const progressBarWidth = 30

var (
	accent  = lipgloss.Color("#8BC34A")
	warning = lipgloss.Color("#FFC107")
	danger  = lipgloss.Color("#e53935")
	muted   = lipgloss.Color("#8a94a6")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent)
	labelStyle   = lipgloss.NewStyle().Width(12).Foreground(muted)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	doneStyle    = lipgloss.NewStyle().Foreground(accent)
	jokerStyle   = lipgloss.NewStyle().Foreground(warning)
	barFilled    = lipgloss.NewStyle().Foreground(accent)
	barEmpty     = lipgloss.NewStyle().Foreground(muted)
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent).Padding(0, 1)
	alertStyle   = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(warning).Padding(0, 1)
	urgentStyle  = alertStyle.BorderForeground(danger)
	lockedStyle  = lipgloss.NewStyle().Foreground(muted)
	currentStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
)

func renderProgressBar(percent int) string {
	percent = max(0, min(100, percent))
	filled := percent * progressBarWidth / 100
	return barFilled.Render(strings.Repeat("█", filled)) +
		barEmpty.Render(strings.Repeat("░", progressBarWidth-filled)) +
		fmt.Sprintf(" %d%%", percent)
}

func dayStatus(day progress.WorkoutDay) string {
	switch {
	case day.JokerUsed:
		return jokerStyle.Render("🃏 joker")
	case day.Completed:
		return doneStyle.Render("✓ done")
	default:
		return mutedStyle.Render("open")
	}
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

func renderStatus(state progress.State, schedule *progress.Schedule) string {
	p := state.Progress
	today := p.ActiveDay()
	if today == nil {
		return mutedStyle.Render("No progress yet.")
	}

	rows := []string{
		titleStyle.Render(fmt.Sprintf("Day %d of %d", p.CurrentDay, schedule.Length())),
		"",
		row("Today", fmt.Sprintf("%d / %d push-ups  %s", today.Actual, today.Target, dayStatus(*today))),
		row("Streak", fmt.Sprintf("🔥 %d", p.Streak)),
		row("Jokers", fmt.Sprintf("🃏 %d", state.AvailableJokers)),
		row("Level", fmt.Sprintf("%d · %s", p.Level, state.LevelName)),
		row("", renderProgressBar(p.LevelProgress)),
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func renderDay(day progress.WorkoutDay) string {
	rows := []string{
		titleStyle.Render(fmt.Sprintf("Day %d", day.Day)),
		row("Date", day.Date),
		row("Push-ups", fmt.Sprintf("%d / %d", day.Actual, day.Target)),
		row("Status", dayStatus(day)),
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func renderAchievements(achievements []progress.Achievement) string {
	unlocked := 0
	rows := make([]string, 0, len(achievements)+2)
	for _, a := range achievements {
		if a.Unlocked {
			unlocked++
			rows = append(rows, fmt.Sprintf("%s %s  %s", a.Icon, doneStyle.Render(a.Name), a.Description))
			continue
		}
		rows = append(rows, lockedStyle.Render(fmt.Sprintf("🔒 %s  %s", a.Name, a.Description)))
	}
	header := titleStyle.Render(fmt.Sprintf("Achievements %d/%d", unlocked, len(achievements)))
	return lipgloss.JoinVertical(lipgloss.Left, append([]string{header, ""}, rows...)...)
}

func renderLevels(levels []progress.LevelInfo, current int) string {
	rows := []string{titleStyle.Render("Levels"), ""}
	for _, l := range levels {
		line := fmt.Sprintf("%d  %-12s days %d-%d", l.Level, l.Name, l.FromDays, l.ToDays-1)
		if l.Level == current {
			rows = append(rows, currentStyle.Render("▶ "+line))
			continue
		}
		rows = append(rows, "  "+line)
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

var weekdayNames = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

func onOff(enabled bool) string {
	if enabled {
		return doneStyle.Render("on")
	}
	return mutedStyle.Render("off")
}

func renderSettings(settings notify.Settings) string {
	days := make([]string, 0, len(settings.DaysEnabled))
	for _, d := range settings.DaysEnabled {
		days = append(days, weekdayNames[d])
	}
	times := "none"
	if len(settings.NotificationTimes) > 0 {
		times = strings.Join(settings.NotificationTimes, ", ")
	}

	rows := []string{
		titleStyle.Render("Notifications"),
		row("Reminders", onOff(settings.StreakEnabled)),
		row("Alerts", onOff(settings.AchievementEnabled)),
		row("Times", times),
		row("Days", strings.Join(days, " ")),
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func renderNotification(n notify.Notification) string {
	style := alertStyle
	if n.RequireInteraction {
		style = urgentStyle
	}
	return style.Render(lipgloss.JoinVertical(lipgloss.Left, lipgloss.NewStyle().Bold(true).Render(n.Title), n.Body))
}
