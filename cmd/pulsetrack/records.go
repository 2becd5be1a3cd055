package main

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pbaille/pulsetrack/internal/classifier"
	"github.com/pbaille/pulsetrack/internal/domain"
	"github.com/pbaille/pulsetrack/internal/fetcher"
	"github.com/pbaille/pulsetrack/internal/helper"
	"github.com/pbaille/pulsetrack/internal/insights"
	"github.com/pbaille/pulsetrack/internal/store"
)

func termID(t domain.Term) string                { return t.ID }
func termName(t domain.Term) string              { return t.Name }
func classID(c domain.ClassItem) string          { return c.ID }
func className(c domain.ClassItem) string        { return c.Name }
func assignmentID(a domain.Assignment) string    { return a.ID }
func assignmentTitle(a domain.Assignment) string { return a.Title }
func noteID(n domain.NoteItem) string            { return n.ID }
func noteTitle(n domain.NoteItem) string         { return n.Title }

func termCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "term",
		Short: "Manage academic terms",
	}
	cmd.AddCommand(termAddCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List terms",
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			terms := a.store.Snapshot().Terms
			if len(terms) == 0 {
				fmt.Println("No terms yet. Use 'pulsetrack term add' or 'pulsetrack setup'.")
				return nil
			}
			for _, t := range terms {
				marker := " "
				if t.Active {
					marker = a.st.OK.Render("*")
				}
				fmt.Printf("%s %s  %-20s %s → %s\n", marker, short(t.ID), t.Name, t.StartDate, t.EndDate)
			}
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "activate [id|name]",
		Short: "Make a term the active one",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			t, err := resolve(a.store.Snapshot().Terms, args[0], "term", termID, termName)
			if err != nil {
				return err
			}
			if err := a.store.SetActiveTerm(t.ID); err != nil {
				return err
			}
			fmt.Printf("Active term: %s\n", t.Name)
			a.noteUnsaved(ctx)
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete [id|name]",
		Short: "Delete a term",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			t, err := resolve(a.store.Snapshot().Terms, args[0], "term", termID, termName)
			if err != nil {
				return err
			}
			a.store.DeleteTerm(t.ID)
			fmt.Printf("Deleted term %s\n", t.Name)
			a.noteUnsaved(ctx)
			return nil
		}),
	})
	return cmd
}

func termAddCmd() *cobra.Command {
	var start, end string
	var active bool

	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Add a term",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			t := domain.Term{
				ID:        domain.NewID(),
				Name:      strings.Join(args, " "),
				StartDate: start,
				EndDate:   end,
				Active:    active,
			}
			if err := domain.Validate(t); err != nil {
				return err
			}
			a.store.AddTerm(t)
			fmt.Printf("Added term: %s (%s)\n", t.Name, short(t.ID))
			a.noteUnsaved(ctx)
			return nil
		}),
	}

	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&active, "active", false, "make this the active term")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
	return cmd
}

func classCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "class",
		Short: "Manage classes",
	}
	cmd.AddCommand(classAddCmd())
	cmd.AddCommand(classUpdateCmd())
	cmd.AddCommand(classResourceCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List classes",
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			snap := a.store.Snapshot()
			if len(snap.Classes) == 0 {
				fmt.Println("No classes yet. Use 'pulsetrack class add' to create one.")
				return nil
			}
			for _, g := range insights.ClassGrades(snap.Classes, snap.Assignments) {
				fmt.Printf("%s  %-28s %d cr  %5.1f%%  %s\n",
					short(g.Class.ID), swatch(g.Class.Color, g.Class.Name), g.Class.Credits,
					g.WeightedAverage, a.st.Muted.Render(g.Class.Instructor))
			}
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show [id|name]",
		Short: "Show class details",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			snap := a.store.Snapshot()
			c, err := resolve(snap.Classes, args[0], "class", classID, className)
			if err != nil {
				return err
			}
			printClass(a, snap, c)
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete [id|name]",
		Short: "Delete a class (its assignments are kept)",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			c, err := resolve(a.store.Snapshot().Classes, args[0], "class", classID, className)
			if err != nil {
				return err
			}
			a.store.DeleteClass(c.ID)
			fmt.Printf("Deleted class %s\n", c.Name)
			a.noteUnsaved(ctx)
			return nil
		}),
	})
	return cmd
}

func printClass(a *app, snap domain.State, c domain.ClassItem) {
	fmt.Println(a.st.Title.Render(swatch(c.Color, c.Name)))
	fmt.Printf("ID:           %s\n", c.ID)
	fmt.Printf("Instructor:   %s\n", c.Instructor)
	fmt.Printf("Office hours: %s\n", c.OfficeHours)
	fmt.Printf("Location:     %s\n", c.Location)
	fmt.Printf("Credits:      %d\n", c.Credits)

	var own []domain.Assignment
	for _, as := range snap.Assignments {
		if as.ClassID == c.ID {
			own = append(own, as)
		}
	}
	avg := insights.WeightedAverage(own)
	fmt.Printf("Average:      %.1f%%", avg)
	if scale, ok := snap.ActiveGradeScale(); ok {
		if letter, ok := insights.LetterFor(scale, avg); ok {
			fmt.Printf(" (%s)", letter)
		}
	}
	fmt.Println()

	if len(c.Resources) > 0 {
		fmt.Println(a.st.Heading.Render("\nResources"))
		for _, r := range c.Resources {
			fmt.Printf("  - %s %s\n", r.Label, a.st.Muted.Render(r.URL))
		}
	}
	if len(c.SyllabusUploads) > 0 {
		fmt.Println(a.st.Heading.Render("\nSyllabus uploads"))
		for _, u := range c.SyllabusUploads {
			fmt.Printf("  %s\n", u.FileName)
			for _, item := range u.ExtractedItems {
				line := fmt.Sprintf("    %-12s %s %s %s", item.Type, item.Date, item.Time, item.Title)
				if item.Ambiguous {
					line += a.st.Warn.Render(" (ambiguous: " + item.Notes + ")")
				}
				fmt.Println(line)
			}
		}
	}
	if len(own) > 0 {
		fmt.Println(a.st.Heading.Render("\nAssignments"))
		for _, as := range own {
			fmt.Printf("  %s  %s  %-30s %s\n", short(as.ID), as.DueDate, truncate(as.Title, 30), a.st.status(as.Status))
		}
	}
}

type classFlags struct {
	color, instructor, officeHours, location, term string
	credits                                        int
}

func (f *classFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.color, "color", "", "hex color (default from palette)")
	cmd.Flags().StringVar(&f.instructor, "instructor", "", "instructor name")
	cmd.Flags().StringVar(&f.officeHours, "office-hours", "", "office hours")
	cmd.Flags().StringVar(&f.location, "location", "", "room or building")
	cmd.Flags().StringVar(&f.term, "term", "", "term id or name (default active term)")
	cmd.Flags().IntVar(&f.credits, "credits", 3, "credit hours")
}

func classAddCmd() *cobra.Command {
	var f classFlags

	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Add a class",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			snap := a.store.Snapshot()
			c := domain.ClassItem{
				ID:              domain.NewID(),
				Name:            strings.Join(args, " "),
				Color:           f.color,
				Instructor:      f.instructor,
				OfficeHours:     f.officeHours,
				Location:        f.location,
				Credits:         f.credits,
				Resources:       []domain.ResourceLink{},
				SyllabusUploads: []domain.SyllabusUpload{},
			}
			if c.Color == "" {
				c.Color = store.ClassPalette[len(snap.Classes)%len(store.ClassPalette)]
			}
			if f.term != "" {
				t, err := resolve(snap.Terms, f.term, "term", termID, termName)
				if err != nil {
					return err
				}
				c.TermID = t.ID
			} else if t, ok := snap.ActiveTerm(); ok {
				c.TermID = t.ID
			}
			if err := domain.Validate(c); err != nil {
				return err
			}

			a.store.AddClass(c)
			fmt.Printf("Created class: %s (%s)\n", swatch(c.Color, c.Name), short(c.ID))
			a.noteUnsaved(ctx)
			return nil
		}),
	}

	f.register(cmd)
	return cmd
}

func classUpdateCmd() *cobra.Command {
	var f classFlags
	var name string

	var cmd *cobra.Command
	cmd = &cobra.Command{
		Use:   "update [id|name]",
		Short: "Edit a class",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			snap := a.store.Snapshot()
			c, err := resolve(snap.Classes, args[0], "class", classID, className)
			if err != nil {
				return err
			}

			changed := cmd.Flags().Changed
			if changed("name") {
				c.Name = name
			}
			if changed("color") {
				c.Color = f.color
			}
			if changed("instructor") {
				c.Instructor = f.instructor
			}
			if changed("office-hours") {
				c.OfficeHours = f.officeHours
			}
			if changed("location") {
				c.Location = f.location
			}
			if changed("credits") {
				c.Credits = f.credits
			}
			if changed("term") {
				t, err := resolve(snap.Terms, f.term, "term", termID, termName)
				if err != nil {
					return err
				}
				c.TermID = t.ID
			}
			if err := domain.Validate(c); err != nil {
				return err
			}

			a.store.UpdateClass(c)
			fmt.Printf("Updated %s\n", c.Name)
			a.noteUnsaved(ctx)
			return nil
		}),
	}

	f.register(cmd)
	cmd.Flags().StringVar(&name, "name", "", "new name")
	return cmd
}

func classResourceCmd() *cobra.Command {
	var label string

	cmd := &cobra.Command{
		Use:   "resource [class] [url]",
		Short: "Attach a link to a class",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			c, err := resolve(a.store.Snapshot().Classes, args[0], "class", classID, className)
			if err != nil {
				return err
			}
			url, err := fetcher.Normalize(args[1])
			if err != nil {
				return err
			}

			if label == "" {
				fetchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
				page, err := fetcher.New(nil).Fetch(fetchCtx, url)
				cancel()
				if err != nil {
					fmt.Printf("(title fetch skipped: %v)\n", err)
					label = url
				} else {
					label = page.Label()
					if summary := page.Summary(120); summary != "" {
						fmt.Println(a.st.Muted.Render(summary))
					}
				}
			}

			link := domain.ResourceLink{ID: domain.NewID(), Label: label, URL: url}
			if err := domain.Validate(link); err != nil {
				return err
			}
			if _, err := a.store.AddResource(c.ID, link); err != nil {
				return err
			}
			fmt.Printf("Added %q to %s\n", label, c.Name)
			a.noteUnsaved(ctx)
			return nil
		}),
	}

	cmd.Flags().StringVar(&label, "label", "", "link label (default: page title)")
	return cmd
}

func assignmentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "assignment",
		Aliases: []string{"a"},
		Short:   "Manage assignments",
	}
	cmd.AddCommand(assignmentAddCmd())
	cmd.AddCommand(assignmentListCmd())
	cmd.AddCommand(assignmentShowCmd())
	cmd.AddCommand(assignmentEditCmd())
	cmd.AddCommand(assignmentLogCmd())
	cmd.AddCommand(subtaskCmd())
	cmd.AddCommand(assignmentSimpleCmd("done [id|title]", "Mark an assignment completed", func(a *app, as domain.Assignment, args []string) (string, error) {
		_, err := a.store.SetAssignmentCompleted(as.ID, true)
		return "Completed " + as.Title, err
	}, 1))
	cmd.AddCommand(assignmentSimpleCmd("undo [id|title]", "Mark an assignment not completed", func(a *app, as domain.Assignment, args []string) (string, error) {
		_, err := a.store.SetAssignmentCompleted(as.ID, false)
		return "Reopened " + as.Title, err
	}, 1))
	cmd.AddCommand(assignmentSimpleCmd("reschedule [id|title] [date]", "Move the due date", func(a *app, as domain.Assignment, args []string) (string, error) {
		if _, ok := helper.ParseDate(args[1], time.Local); !ok {
			return "", fmt.Errorf("invalid date %q (want YYYY-MM-DD)", args[1])
		}
		_, err := a.store.RescheduleAssignment(as.ID, args[1])
		return fmt.Sprintf("Moved %s to %s", as.Title, args[1]), err
	}, 2))
	cmd.AddCommand(assignmentSimpleCmd("delete [id|title]", "Delete an assignment", func(a *app, as domain.Assignment, args []string) (string, error) {
		a.store.DeleteAssignment(as.ID)
		return "Deleted " + as.Title, nil
	}, 1))
	return cmd
}

// assignmentSimpleCmd builds a command that resolves one assignment and
// applies fn to it.
func assignmentSimpleCmd(use, desc string, fn func(*app, domain.Assignment, []string) (string, error), nargs int) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: desc,
		Args:  cobra.ExactArgs(nargs),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			as, err := resolve(a.store.Snapshot().Assignments, args[0], "assignment", assignmentID, assignmentTitle)
			if err != nil {
				return err
			}
			msg, err := fn(a, as, args)
			if err != nil {
				return err
			}
			fmt.Println(msg)
			a.noteUnsaved(ctx)
			return nil
		}),
	}
}

type assignmentFlags struct {
	class, due, dueTime, category, description, status, priority string
	weight, grade                                                  float64
	tags                                                           []string
}

func (f *assignmentFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.class, "class", "c", "", "class id or name")
	cmd.Flags().StringVar(&f.due, "due", "", "due date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&f.dueTime, "time", "23:59", "due time (HH:MM)")
	cmd.Flags().StringVar(&f.category, "category", "", "weight category (default first category)")
	cmd.Flags().StringVar(&f.description, "description", "", "description")
	cmd.Flags().StringVar(&f.status, "status", string(domain.StatusOnTrack), "Urgent, In Progress, Blocked, On Track or Completed")
	cmd.Flags().StringVar(&f.priority, "priority", string(domain.PriorityMedium), "Low, Medium or High")
	cmd.Flags().Float64Var(&f.weight, "weight", 10, "weight in percent")
	cmd.Flags().Float64Var(&f.grade, "grade", 0, "grade in percent")
	cmd.Flags().StringSliceVar(&f.tags, "tags", nil, "comma-separated tags")
}

func assignmentAddCmd() *cobra.Command {
	var f assignmentFlags

	var cmd *cobra.Command
	cmd = &cobra.Command{
		Use:   "add [title]",
		Short: "Add an assignment",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			snap := a.store.Snapshot()
			now := time.Now()

			as := domain.Assignment{
				ID:              domain.NewID(),
				Title:           strings.Join(args, " "),
				Description:     f.description,
				DueDate:         f.due,
				DueTime:         f.dueTime,
				Category:        f.category,
				Status:          domain.StatusTag(f.status),
				Priority:        domain.Priority(f.priority),
				Tags:            f.tags,
				ReminderOffsets: slices.Clone(store.DefaultReminderOffsets),
				Weight:          f.weight,
				Subtasks:        []domain.Subtask{},
				StudyLogs:       []domain.StudyLog{},
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if as.Tags == nil {
				as.Tags = []string{}
			}
			if as.DueDate == "" {
				as.DueDate = helper.Today(now)
			}
			if as.Category == "" {
				as.Category = "General"
				if len(snap.WeightCategories) > 0 {
					as.Category = snap.WeightCategories[0].Label
				}
			}
			if !cmd.Flags().Changed("weight") {
				for _, wc := range snap.WeightCategories {
					if strings.EqualFold(wc.Label, as.Category) {
						as.Weight = wc.Weight
					}
				}
			}
			if cmd.Flags().Changed("grade") {
				g := f.grade
				as.Grade = &g
			}
			as.Completed = as.Status == domain.StatusCompleted

			switch {
			case f.class != "":
				c, err := resolve(snap.Classes, f.class, "class", classID, className)
				if err != nil {
					return err
				}
				as.ClassID = c.ID
			case len(snap.Classes) > 0:
				as.ClassID = snap.Classes[0].ID
			}

			if err := domain.Validate(as); err != nil {
				return err
			}
			a.store.AddAssignment(as)
			fmt.Printf("Created assignment: %s (%s), due %s %s\n", as.Title, short(as.ID), as.DueDate, as.DueTime)
			a.noteUnsaved(ctx)
			return nil
		}),
	}

	f.register(cmd)
	return cmd
}

func assignmentEditCmd() *cobra.Command {
	var f assignmentFlags
	var title string
	var clearGrade bool

	var cmd *cobra.Command
	cmd = &cobra.Command{
		Use:   "edit [id|title]",
		Short: "Edit an assignment",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			snap := a.store.Snapshot()
			as, err := resolve(snap.Assignments, args[0], "assignment", assignmentID, assignmentTitle)
			if err != nil {
				return err
			}

			changed := cmd.Flags().Changed
			if changed("title") {
				as.Title = title
			}
			if changed("class") {
				c, err := resolve(snap.Classes, f.class, "class", classID, className)
				if err != nil {
					return err
				}
				as.ClassID = c.ID
			}
			if changed("due") {
				as.DueDate = f.due
			}
			if changed("time") {
				as.DueTime = f.dueTime
			}
			if changed("category") {
				as.Category = f.category
			}
			if changed("description") {
				as.Description = f.description
			}
			if changed("status") {
				as.Status = domain.StatusTag(f.status)
				as.Completed = as.Status == domain.StatusCompleted
			}
			if changed("priority") {
				as.Priority = domain.Priority(f.priority)
			}
			if changed("weight") {
				as.Weight = f.weight
			}
			if changed("grade") {
				g := f.grade
				as.Grade = &g
			}
			if clearGrade {
				as.Grade = nil
			}
			if changed("tags") {
				as.Tags = f.tags
			}
			as.UpdatedAt = time.Now()

			if err := domain.Validate(as); err != nil {
				return err
			}
			a.store.UpdateAssignment(as)
			fmt.Printf("Updated %s\n", as.Title)
			a.noteUnsaved(ctx)
			return nil
		}),
	}

	f.register(cmd)
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().BoolVar(&clearGrade, "clear-grade", false, "remove the grade")
	return cmd
}

func assignmentListCmd() *cobra.Command {
	var filter string
	var completed bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assignments",
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			snap := a.store.Snapshot()
			var list []domain.Assignment
			if completed {
				list = insights.CompletedAssignments(snap.Assignments)
			} else {
				f, err := insights.ParseFilter(filter)
				if err != nil {
					return err
				}
				list = insights.FilterAssignments(snap.Assignments, f, helper.Today(time.Now()))
			}

			if len(list) == 0 {
				fmt.Println("No matching assignments.")
				return nil
			}
			printAssignments(a, snap, list)
			return nil
		}),
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "all", "all, overdue, incomplete or urgent")
	cmd.Flags().BoolVar(&completed, "completed", false, "list completed assignments")
	return cmd
}

func printAssignments(a *app, snap domain.State, list []domain.Assignment) {
	for _, as := range list {
		class := ""
		if c, ok := snap.ClassByID(as.ClassID); ok {
			class = swatch(c.Color, c.Name)
		}
		fmt.Printf("%s  %s %-5s  %-32s %-24s %s  %s\n",
			short(as.ID), as.DueDate, as.DueTime, truncate(as.Title, 32), class,
			a.st.status(as.Status), a.st.Muted.Render(string(as.Priority)))
	}
}

func assignmentShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id|title]",
		Short: "Show assignment details",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			snap := a.store.Snapshot()
			as, err := resolve(snap.Assignments, args[0], "assignment", assignmentID, assignmentTitle)
			if err != nil {
				return err
			}

			fmt.Println(a.st.Title.Render(as.Title))
			fmt.Printf("ID:        %s\n", as.ID)
			if c, ok := snap.ClassByID(as.ClassID); ok {
				fmt.Printf("Class:     %s\n", swatch(c.Color, c.Name))
			}
			fmt.Printf("Due:       %s %s (%s)\n", as.DueDate, as.DueTime, insights.TimeUntil(as.DueDate, as.DueTime, time.Now()))
			fmt.Printf("Status:    %s\n", a.st.status(as.Status))
			fmt.Printf("Priority:  %s\n", as.Priority)
			fmt.Printf("Category:  %s (weight %g%%)\n", as.Category, as.Weight)
			fmt.Printf("Grade:     %s\n", formatGrade(as.Grade))
			fmt.Printf("Studied:   %d min\n", insights.StudyMinutes(as))
			if len(as.Tags) > 0 {
				fmt.Printf("Tags:      %s\n", strings.Join(as.Tags, ", "))
			}
			if as.Description != "" {
				fmt.Printf("\n%s\n", as.Description)
			}
			if len(as.Subtasks) > 0 {
				fmt.Println(a.st.Heading.Render("\nSubtasks"))
				for _, t := range as.Subtasks {
					box := "[ ]"
					if t.Completed {
						box = a.st.OK.Render("[x]")
					}
					fmt.Printf("  %s %s %s\n", box, short(t.ID), t.Title)
				}
			}
			return nil
		}),
	}
}

func assignmentLogCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "log [id|title] [minutes]",
		Short: "Log study time",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			as, err := resolve(a.store.Snapshot().Assignments, args[0], "assignment", assignmentID, assignmentTitle)
			if err != nil {
				return err
			}
			var minutes int
			if _, err := fmt.Sscanf(args[1], "%d", &minutes); err != nil || minutes <= 0 {
				return fmt.Errorf("minutes must be a positive number, got %q", args[1])
			}
			if date == "" {
				date = helper.Today(time.Now())
			}
			updated, err := a.store.LogStudyTime(as.ID, minutes, date)
			if err != nil {
				return err
			}
			fmt.Printf("Logged %d min on %s (%d min total)\n", minutes, as.Title, insights.StudyMinutes(updated))
			a.noteUnsaved(ctx)
			return nil
		}),
	}

	cmd.Flags().StringVar(&date, "date", "", "study date (default today)")
	return cmd
}

func subtaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subtask",
		Short: "Manage assignment checklists",
	}
	cmd.AddCommand(assignmentSimpleCmd("add [id|title] [subtask]", "Add a subtask", func(a *app, as domain.Assignment, args []string) (string, error) {
		_, err := a.store.AddSubtask(as.ID, args[1])
		return fmt.Sprintf("Added subtask %q to %s", args[1], as.Title), err
	}, 2))
	cmd.AddCommand(assignmentSimpleCmd("toggle [id|title] [subtask-id]", "Check or uncheck a subtask", func(a *app, as domain.Assignment, args []string) (string, error) {
		for _, t := range as.Subtasks {
			if strings.HasPrefix(t.ID, args[1]) {
				_, err := a.store.ToggleSubtask(as.ID, t.ID)
				return "Toggled " + t.Title, err
			}
		}
		return "", fmt.Errorf("subtask not found: %s", args[1])
	}, 2))
	return cmd
}

func noteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Manage notes",
	}
	cmd.AddCommand(noteAddCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List notes",
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			notes := a.store.Snapshot().Notes
			if len(notes) == 0 {
				fmt.Println("No notes yet. Use 'pulsetrack note add' to create one.")
				return nil
			}
			for _, n := range notes {
				fmt.Printf("%s  %-30s %s\n", short(n.ID), truncate(n.Title, 30), a.st.Muted.Render(strings.Join(n.Tags, ", ")))
			}
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show [id|title]",
		Short: "Show a note",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			n, err := resolve(a.store.Snapshot().Notes, args[0], "note", noteID, noteTitle)
			if err != nil {
				return err
			}
			fmt.Println(a.st.Title.Render(n.Title))
			fmt.Println(a.st.Muted.Render("updated " + n.UpdatedAt.Format("2006-01-02 15:04")))
			if len(n.Tags) > 0 {
				fmt.Printf("Tags: %s\n", strings.Join(n.Tags, ", "))
			}
			fmt.Printf("\n%s\n", n.Content)
			return nil
		}),
	})
	cmd.AddCommand(noteEditCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "delete [id|title]",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			n, err := resolve(a.store.Snapshot().Notes, args[0], "note", noteID, noteTitle)
			if err != nil {
				return err
			}
			a.store.DeleteNote(n.ID)
			fmt.Printf("Deleted note %s\n", n.Title)
			a.noteUnsaved(ctx)
			return nil
		}),
	})
	return cmd
}

func noteAddCmd() *cobra.Command {
	var tags []string
	var noClassify bool

	cmd := &cobra.Command{
		Use:   "add [title] [content...]",
		Short: "Add a note",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			n := domain.NoteItem{
				ID:      domain.NewID(),
				Title:   args[0],
				Content: strings.Join(args[1:], " "),
				Tags:    tags,
			}
			if n.Tags == nil {
				n.Tags = []string{}
			}
			if err := domain.Validate(n); err != nil {
				return err
			}

			if len(tags) == 0 && !noClassify {
				n.Tags = suggestTags(ctx, a, n)
			}

			a.store.AddNote(n)
			fmt.Printf("Added note: %s (%s)\n", n.Title, short(n.ID))
			for _, t := range n.Tags {
				fmt.Printf("  + %s\n", t)
			}
			a.noteUnsaved(ctx)
			return nil
		}),
	}

	cmd.Flags().StringSliceVar(&tags, "tags", nil, "comma-separated tags")
	cmd.Flags().BoolVar(&noClassify, "no-classify", false, "skip automatic tagging")
	return cmd
}

// suggestTags asks the classifier for tags, degrading to none.
func suggestTags(ctx context.Context, a *app, n domain.NoteItem) []string {
	clf, err := classifier.New(a.cfg.AnthropicAPIKey)
	if err != nil {
		fmt.Printf("(tagging skipped: %v)\n", err)
		return []string{}
	}

	var existing []string
	for _, other := range a.store.Snapshot().Notes {
		for _, t := range other.Tags {
			if !slices.Contains(existing, t) {
				existing = append(existing, t)
			}
		}
	}

	fmt.Print("Tagging... ")
	result, err := clf.Classify(ctx, n.Title, n.Content, existing)
	if err != nil {
		fmt.Printf("failed: %v\n", err)
		return []string{}
	}
	fmt.Println("done")

	names := result.Names(0.5)
	if names == nil {
		return []string{}
	}
	return names
}

func noteEditCmd() *cobra.Command {
	var title, content string
	var tags []string

	var cmd *cobra.Command
	cmd = &cobra.Command{
		Use:   "edit [id|title]",
		Short: "Edit a note",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			n, err := resolve(a.store.Snapshot().Notes, args[0], "note", noteID, noteTitle)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("title") {
				n.Title = title
			}
			if cmd.Flags().Changed("content") {
				n.Content = content
			}
			if cmd.Flags().Changed("tags") {
				n.Tags = tags
			}
			n.UpdatedAt = time.Now()
			if err := domain.Validate(n); err != nil {
				return err
			}
			a.store.UpdateNote(n)
			fmt.Printf("Updated note: %s\n", n.Title)
			a.noteUnsaved(ctx)
			return nil
		}),
	}

	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&content, "content", "", "new content")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "replace tags")
	return cmd
}
