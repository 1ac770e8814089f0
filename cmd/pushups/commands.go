package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/2beens/pushupjourney/internal/notify"
	"github.com/2beens/pushupjourney/internal/progress"
	"github.com/2beens/pushupjourney/pkg"

	"github.com/spf13/cobra"
)

const importFailedMessage = "Failed to import data. The file may be corrupted or in the wrong format."

func newRootCmd(o *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pushups",
		Short:         "Track the push-up journey from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&o.env, "env", "development", "config environment [dev | development | prod | production]")
	flags.StringVar(&o.configPath, "config", "./config.toml", "path for the TOML config file, used when it exists")
	flags.StringVar(&o.backend, "backend", "sqlite", "store backend [sqlite | disk | memory | redis | postgres]")
	flags.StringVar(&o.sqlitePath, "sqlite-path", defaultSqlitePath(), "sqlite database file")
	flags.StringVar(&o.webhookURL, "webhook", "", "also push notifications to this webhook URL")
	flags.StringVar(&o.logLevel, "log-level", "warn", "log level")
	flags.StringVar(&o.today, "today", "", "pretend today is this date (YYYY-MM-DD)")
	_ = flags.MarkHidden("today")

	rootCmd.AddCommand(
		newStatusCmd(o),
		newCountCmd(o),
		newDoneCmd(o),
		newJokerCmd(o),
		newNextCmd(o),
		newDayCmd(o),
		newAchievementsCmd(o),
		newLevelsCmd(o),
		newExportCmd(o),
		newImportCmd(o),
		newResetCmd(o),
		newSettingsCmd(o),
		newRemindCmd(o),
	)
	return rootCmd
}

// withApp opens the app for a single command run, loads the progress and closes the store after.
func withApp(o *options, run func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()
		a, err := newApp(ctx, cmd, o)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := a.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close store: %w", closeErr)
			}
		}()

		a.service.Load(ctx)
		return run(ctx, a, cmd, args)
	}
}

// parseCount accepts only whole, non-negative rep counts.
func parseCount(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid count [%s]: must be a whole number", raw)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid count [%s]: must not be negative", raw)
	}
	return n, nil
}

func parseDayNumber(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid day [%s]: must be 1 or greater", raw)
	}
	return n, nil
}

func newStatusCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show today's target, streak, level and jokers",
		Args:  cobra.NoArgs,
		RunE: withApp(o, func(ctx context.Context, a *app, _ *cobra.Command, _ []string) error {
			state := a.service.State(ctx)
			_, err := fmt.Fprintln(a.out, renderStatus(state, a.service.Schedule()))
			return err
		}),
	}
}

func newCountCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "count N",
		Short: "Log N push-ups for today",
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(1)(cmd, args); err != nil {
				return err
			}
			_, err := parseCount(args[0])
			return err
		},
		RunE: withApp(o, func(ctx context.Context, a *app, _ *cobra.Command, args []string) error {
			count, _ := parseCount(args[0])
			state, err := a.service.SetCount(ctx, count)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.out, renderStatus(state, a.service.Schedule()))
			return err
		}),
	}
}

func newDoneCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "done",
		Short: "Mark today as completed, or undo it",
		Args:  cobra.NoArgs,
		RunE: withApp(o, func(ctx context.Context, a *app, _ *cobra.Command, _ []string) error {
			state := a.service.ToggleCompleted(ctx)
			_, err := fmt.Fprintln(a.out, renderStatus(state, a.service.Schedule()))
			return err
		}),
	}
}

func newJokerCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "joker",
		Short: "Spend a joker on today, or take it back",
		Args:  cobra.NoArgs,
		RunE: withApp(o, func(ctx context.Context, a *app, _ *cobra.Command, _ []string) error {
			state := a.service.ToggleJoker(ctx)
			_, err := fmt.Fprintln(a.out, renderStatus(state, a.service.Schedule()))
			return err
		}),
	}
}

func newNextCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Finish today and move on to the next program day",
		Args:  cobra.NoArgs,
		RunE: withApp(o, func(ctx context.Context, a *app, _ *cobra.Command, _ []string) error {
			state := a.service.AdvanceDay(ctx)
			if !state.Changed {
				_, _ = fmt.Fprintln(a.out, mutedStyle.Render("Complete today's workout first."))
			}
			_, err := fmt.Fprintln(a.out, renderStatus(state, a.service.Schedule()))
			return err
		}),
	}
}

func newDayCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "day N",
		Short: "Show a past program day",
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(1)(cmd, args); err != nil {
				return err
			}
			_, err := parseDayNumber(args[0])
			return err
		},
		RunE: withApp(o, func(ctx context.Context, a *app, _ *cobra.Command, args []string) error {
			dayNumber, _ := parseDayNumber(args[0])
			state, err := a.service.Navigate(ctx, dayNumber)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.out, renderDay(state.Selected))
			return err
		}),
	}
}

func newAchievementsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "achievements",
		Short: "List achievements",
		Args:  cobra.NoArgs,
		RunE: withApp(o, func(ctx context.Context, a *app, _ *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(a.out, renderAchievements(a.service.Achievements(ctx)))
			return err
		}),
	}
}

func newLevelsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "levels",
		Short: "Show the level table",
		Args:  cobra.NoArgs,
		RunE: withApp(o, func(ctx context.Context, a *app, _ *cobra.Command, _ []string) error {
			state := a.service.State(ctx)
			_, err := fmt.Fprintln(a.out, renderLevels(a.service.LevelTable(), state.Progress.Level))
			return err
		}),
	}
}

func newExportCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Export the progress to a JSON file",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(o, func(ctx context.Context, a *app, _ *cobra.Command, args []string) error {
			data, err := a.service.Export(ctx)
			if err != nil {
				return err
			}

			path := a.service.ExportFileName()
			if len(args) == 1 {
				path = args[0]
			}
			if err := pkg.WriteFileAtomic(path, data, 0o644); err != nil {
				return fmt.Errorf("write export file: %w", err)
			}
			_, err = fmt.Fprintf(a.out, "Progress exported to %s\n", path)
			return err
		}),
	}
}

func newImportCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the progress with an exported JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(o, func(ctx context.Context, a *app, _ *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read import file: %w", err)
			}

			state, err := a.service.Import(ctx, data)
			if err != nil {
				if errors.Is(err, progress.ErrInvalidImport) {
					return errors.New(importFailedMessage)
				}
				return err
			}
			_, _ = fmt.Fprintln(a.out, "Data imported successfully.")
			_, err = fmt.Fprintln(a.out, renderStatus(state, a.service.Schedule()))
			return err
		}),
	}
}

func newResetCmd(o *options) *cobra.Command {
	var confirmed bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all progress and settings and start over at day 1",
		Args:  cobra.NoArgs,
		PreRunE: func(*cobra.Command, []string) error {
			if !confirmed {
				return errors.New("this deletes all progress; run again with --yes to confirm")
			}
			return nil
		},
		RunE: withApp(o, func(ctx context.Context, a *app, _ *cobra.Command, _ []string) error {
			state := a.service.Reset(ctx)
			_, _ = fmt.Fprintln(a.out, "All data has been reset.")
			_, err := fmt.Fprintln(a.out, renderStatus(state, a.service.Schedule()))
			return err
		}),
	}
	cmd.Flags().BoolVar(&confirmed, "yes", false, "confirm the reset")
	return cmd
}

func newSettingsCmd(o *options) *cobra.Command {
	var (
		addTimes     []string
		removeTimes  []string
		toggleDays   []int
		streak       bool
		achievements bool
	)

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change notification settings",
		Args:  cobra.NoArgs,
		RunE: withApp(o, func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			settings := a.settings.Load(ctx)
			changed := false

			for _, t := range addTimes {
				if err := settings.AddTime(t); err != nil {
					return fmt.Errorf("add time [%s]: %w", t, err)
				}
				changed = true
			}
			for _, t := range removeTimes {
				settings.RemoveTime(t)
				changed = true
			}
			for _, d := range toggleDays {
				if err := settings.ToggleDay(d); err != nil {
					return fmt.Errorf("toggle day [%d]: %w", d, err)
				}
				changed = true
			}
			if cmd.Flags().Changed("streak") {
				settings.SetStreakEnabled(streak)
				changed = true
			}
			if cmd.Flags().Changed("achievements") {
				settings.SetAchievementEnabled(achievements)
				changed = true
			}

			if changed {
				if err := a.settings.Save(ctx, settings); err != nil {
					return err
				}
				settings = a.settings.Load(ctx)
			}
			_, err := fmt.Fprintln(a.out, renderSettings(settings))
			return err
		}),
	}

	flags := cmd.Flags()
	flags.StringSliceVar(&addTimes, "add-time", nil, "add a reminder time (HH:MM)")
	flags.StringSliceVar(&removeTimes, "remove-time", nil, "remove a reminder time (HH:MM)")
	flags.IntSliceVar(&toggleDays, "toggle-day", nil, "toggle reminders on a weekday (0 = Sunday)")
	flags.BoolVar(&streak, "streak", true, "enable streak reminders")
	flags.BoolVar(&achievements, "achievements", true, "enable achievement alerts")
	return cmd
}

func newRemindCmd(o *options) *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Run the daily reminder loop in the foreground",
		Args:  cobra.NoArgs,
		RunE: withApp(o, func(ctx context.Context, a *app, _ *cobra.Command, _ []string) error {
			reminder := notify.NewReminder(notify.ReminderParams{
				Settings:    a.settings,
				Dispatcher:  a.dispatcher,
				Interval:    a.interval,
				Now:         a.now,
				WorkoutDone: a.service.WorkoutDoneToday,
			})

			if once {
				if !reminder.Check(ctx) {
					_, _ = fmt.Fprintln(a.out, mutedStyle.Render("No reminder due."))
				}
				return nil
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			_, _ = fmt.Fprintf(a.out, "Checking for reminders every %s, ctrl+c to stop.\n", a.interval)
			reminder.Run(ctx)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&once, "once", false, "check once and exit")
	return cmd
}
