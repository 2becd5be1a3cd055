package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pbaille/pulsetrack/internal/domain"
	"github.com/pbaille/pulsetrack/internal/helper"
	"github.com/pbaille/pulsetrack/internal/insights"
)

func dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"today"},
		Short:   "Today's summary",
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			snap := a.store.Snapshot()
			now := time.Now()
			d := insights.BuildDashboard(snap, now)

			greeting := "Hello"
			if snap.User.Name != "" {
				greeting += ", " + snap.User.Name
			}
			fmt.Println(a.st.Title.Render(greeting))
			if d.ActiveTerm != nil {
				term := fmt.Sprintf("%s (%s → %s)", d.ActiveTerm.Name, d.ActiveTerm.StartDate, d.ActiveTerm.EndDate)
				if d.TermEnded {
					term += a.st.Warn.Render("  term has ended; start a new one with 'pulsetrack setup'")
				}
				fmt.Println(a.st.Muted.Render(term))
			}

			fmt.Println(a.st.Heading.Render("\nDue today"))
			if len(d.DueToday) == 0 {
				fmt.Println(a.st.Muted.Render("  nothing due"))
			}
			for _, as := range d.DueToday {
				fmt.Printf("  %s  %-32s %s  %s\n", short(as.ID), truncate(as.Title, 32),
					a.st.status(as.Status), a.st.Accent.Render(insights.TimeUntil(as.DueDate, as.DueTime, now)))
			}

			fmt.Println(a.st.Heading.Render("\nNext 7 days"))
			if len(d.UpcomingWeek) == 0 {
				fmt.Println(a.st.Muted.Render("  nothing coming up"))
			}
			for _, as := range d.UpcomingWeek {
				fmt.Printf("  %s  %s  %-32s %s\n", short(as.ID), as.DueDate, truncate(as.Title, 32), a.st.status(as.Status))
			}

			if len(d.Conflicts) > 0 {
				fmt.Println(a.st.Heading.Render("\nConflicts"))
				for _, c := range d.Conflicts {
					fmt.Println(a.st.Warn.Render(fmt.Sprintf("  %s: %d assignments due", c.Date, c.Count)))
				}
			}

			fmt.Println(a.st.Heading.Render("\nStudy time"))
			fmt.Printf("  %d min total\n", d.StudyMinutes)
			for _, cm := range d.StudyByClass {
				name := cm.ClassName
				if name == "" {
					name = a.st.Muted.Render(short(cm.ClassID))
				}
				fmt.Printf("  %-24s %4d min\n", name, cm.Minutes)
			}

			fmt.Printf("\n%s %.2f   %s %d day(s)\n", a.st.Heading.Render("GPA"), d.GPA, a.st.Heading.Render("Streak"), d.Streak)
			return nil
		}),
	}
}

func calendarCmd() *cobra.Command {
	var month string
	var week bool

	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Month grid of due dates",
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			snap := a.store.Snapshot()
			now := time.Now()
			cursor := now
			if month != "" {
				t, err := time.ParseInLocation("2006-01", month, time.Local)
				if err != nil {
					return fmt.Errorf("invalid month %q (want YYYY-MM)", month)
				}
				cursor = t
			}

			byDate := insights.ByDate(snap.Assignments)
			if week {
				printWeek(a, snap, byDate, cursor)
				return nil
			}
			printMonth(a, byDate, insights.MonthGrid(cursor.Year(), cursor.Month(), time.Local), helper.Today(now))
			return nil
		}),
	}

	cmd.Flags().StringVar(&month, "month", "", "month to show (YYYY-MM, default current)")
	cmd.Flags().BoolVar(&week, "week", false, "list the current week instead of the month grid")
	return cmd
}

func printMonth(a *app, byDate map[string][]domain.Assignment, view insights.MonthView, today string) {
	title := time.Date(view.Year, view.Month, 1, 0, 0, 0, 0, time.Local).Format("January 2006")
	fmt.Println(a.st.Title.Render(title))
	fmt.Println(a.st.Muted.Render(" Mon  Tue  Wed  Thu  Fri  Sat  Sun"))

	var line strings.Builder
	for i, date := range view.Cells {
		cell := "     "
		if date != "" {
			day := strings.TrimLeft(date[8:], "0")
			count := len(byDate[date])
			text := fmt.Sprintf("%3s", day)
			if count > 0 {
				text += fmt.Sprintf("%-2s", fmt.Sprint("·", count))
			} else {
				text += "  "
			}
			switch {
			case date == today:
				cell = a.st.Accent.Render(text)
			case count > 1:
				cell = a.st.Warn.Render(text)
			default:
				cell = text
			}
		}
		line.WriteString(cell)
		if (i+1)%7 == 0 {
			fmt.Println(line.String())
			line.Reset()
		}
	}
	if line.Len() > 0 {
		fmt.Println(line.String())
	}
}

func printWeek(a *app, snap domain.State, byDate map[string][]domain.Assignment, cursor time.Time) {
	for _, date := range insights.WeekDays(cursor) {
		day, _ := helper.ParseDate(date, time.Local)
		fmt.Println(a.st.Heading.Render(day.Format("Mon Jan 2")))
		for _, as := range byDate[date] {
			class := ""
			if c, ok := snap.ClassByID(as.ClassID); ok {
				class = swatch(c.Color, c.Name)
			}
			fmt.Printf("  %-5s %-32s %s\n", as.DueTime, truncate(as.Title, 32), class)
		}
	}
}

func conflictsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "conflicts",
		Short: "Days with more than one assignment due",
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			snap := a.store.Snapshot()
			conflicts := insights.Conflicts(snap.Assignments)
			if len(conflicts) == 0 {
				fmt.Println("No conflicts.")
				return nil
			}
			for _, c := range conflicts {
				fmt.Println(a.st.Warn.Render(fmt.Sprintf("%s  %d assignments", c.Date, c.Count)))
				for _, as := range insights.OnDate(snap.Assignments, c.Date) {
					fmt.Printf("  %s %-5s %s\n", short(as.ID), as.DueTime, as.Title)
				}
			}
			return nil
		}),
	}
}

func pulseID(p domain.WorkloadPulse) string    { return p.ID }
func pulseLabel(p domain.WorkloadPulse) string { return p.Date }

func pulseCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "pulse [Light|Manageable|Overloaded]",
		Short: "Record how your workload feels today",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			level, ok := parseLevel(args[0])
			if !ok {
				return fmt.Errorf("unknown workload level %q (want Light, Manageable or Overloaded)", args[0])
			}
			if date == "" {
				date = helper.Today(time.Now())
			}
			p := domain.WorkloadPulse{ID: domain.NewID(), Level: level, Date: date}
			if err := domain.Validate(p); err != nil {
				return err
			}
			a.store.AddWorkloadPulse(p)
			fmt.Printf("Recorded %s for %s\n", a.st.level(level).Render(string(level)), date)
			a.noteUnsaved(ctx)
			return nil
		}),
	}
	cmd.Flags().StringVar(&date, "date", "", "check-in date (default today)")

	cmd.AddCommand(&cobra.Command{
		Use:   "delete [id|date]",
		Short: "Delete a check-in",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			p, err := resolve(a.store.Snapshot().WorkloadPulses, args[0], "check-in", pulseID, pulseLabel)
			if err != nil {
				return err
			}
			a.store.DeleteWorkloadPulse(p.ID)
			fmt.Printf("Deleted %s check-in for %s\n", p.Level, p.Date)
			a.noteUnsaved(ctx)
			return nil
		}),
	})
	return cmd
}

func parseLevel(s string) (domain.WorkloadLevel, bool) {
	for _, l := range domain.WorkloadLevels {
		if strings.EqualFold(string(l), s) {
			return l, true
		}
	}
	return "", false
}

func workloadCmd() *cobra.Command {
	var view string

	cmd := &cobra.Command{
		Use:   "workload",
		Short: "Workload check-in history",
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			v, err := insights.ParseHistoryView(view)
			if err != nil {
				return err
			}
			buckets := insights.History(a.store.Snapshot().WorkloadPulses, v, time.Now())
			max := insights.MaxTotal(buckets)

			for _, b := range buckets {
				var cells strings.Builder
				for _, level := range domain.WorkloadLevels {
					cells.WriteString(a.st.level(level).Render(bar(b.Count(level), max, 30)))
				}
				fmt.Printf("%-8s %s %s\n", b.Period.Label, cells.String(), a.st.Muted.Render(fmt.Sprint(b.Total())))
			}

			fmt.Printf("\n%s %s %s\n",
				a.st.level(domain.WorkloadLight).Render("■ Light"),
				a.st.level(domain.WorkloadManageable).Render("■ Manageable"),
				a.st.level(domain.WorkloadOverloaded).Render("■ Overloaded"))
			if peak, ok := insights.PeakOverloaded(buckets); ok {
				fmt.Printf("Most overloaded: %s (%d)\n", peak.Period.Label, peak.Overloaded)
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&view, "view", string(insights.Weekly), "weekly, monthly or yearly")
	return cmd
}

func streakCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "streak",
		Short: "Consecutive days with a completed assignment",
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			streak := insights.CompletionStreak(a.store.Snapshot().Assignments, time.Now())
			switch streak {
			case 0:
				fmt.Println("No streak yet. Complete something today to start one.")
			case 1:
				fmt.Println(a.st.OK.Render("1 day streak"))
			default:
				fmt.Println(a.st.OK.Render(fmt.Sprintf("%d day streak", streak)))
			}
			return nil
		}),
	}
}

func searchCmd() *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search assignments, notes and classes",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			f, err := insights.ParseFilter(filter)
			if err != nil {
				return err
			}
			results := insights.Search(a.store.Snapshot(), strings.Join(args, " "), f, helper.Today(time.Now()))
			if len(results) == 0 {
				fmt.Println("No results.")
				return nil
			}
			for _, r := range results {
				fmt.Printf("%-10s %s  %-32s %s\n", a.st.Accent.Render(r.Type), short(r.ID), truncate(r.Title, 32), a.st.Muted.Render(r.Detail))
			}
			return nil
		}),
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "all", "all, overdue, incomplete, urgent or priority")
	return cmd
}

func changelogCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "changelog",
		Short: "Recent changes",
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			items := a.store.Snapshot().Changelog
			if len(items) == 0 {
				fmt.Println("No changes yet.")
				return nil
			}
			if limit > 0 && len(items) > limit {
				items = items[:limit]
			}
			for _, item := range items {
				fmt.Printf("%s  %-10s %s\n", a.st.Muted.Render(item.At.Local().Format("2006-01-02 15:04")), item.Type, item.Message)
			}
			return nil
		}),
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries (0 for all)")
	return cmd
}
