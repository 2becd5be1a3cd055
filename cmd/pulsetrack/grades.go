package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pbaille/pulsetrack/internal/domain"
	"github.com/pbaille/pulsetrack/internal/helper"
	"github.com/pbaille/pulsetrack/internal/insights"
)

func scaleID(g domain.GradeScale) string   { return g.ID }
func scaleName(g domain.GradeScale) string { return g.Name }

func scaleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scale",
		Short: "Manage grade scales",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List preset and imported scales",
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			snap := a.store.Snapshot()
			fmt.Println(a.st.Heading.Render("Presets"))
			for _, p := range domain.PresetScales() {
				fmt.Printf("  %-16s %s\n", p.ID, p.Name)
			}
			fmt.Println(a.st.Heading.Render("\nYour scales"))
			if len(snap.GradeScales) == 0 {
				fmt.Println(a.st.Muted.Render("  none; import one with 'pulsetrack scale import scale-standard'"))
			}
			for _, g := range snap.GradeScales {
				marker := " "
				if g.ID == snap.ActiveGradeScaleID {
					marker = a.st.OK.Render("*")
				}
				fmt.Printf("%s %s  %s\n", marker, short(g.ID), g.Name)
			}
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show [id|name]",
		Short: "Show the ranges of a scale (default active)",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			g, err := pickScale(a, args)
			if err != nil {
				return err
			}
			fmt.Println(a.st.Title.Render(g.Name))
			for i, r := range g.Ranges {
				fmt.Printf("  %2d  %-3s %5g - %g\n", i, r.Label, r.Min, r.Max)
			}
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "import [preset]",
		Short: "Copy a preset scale and make it active",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			g, err := a.store.ImportPresetScale(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Imported %s (%s) as the active scale\n", g.Name, short(g.ID))
			a.noteUnsaved(ctx)
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "activate [id|name]",
		Short: "Make a scale the active one",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			g, err := resolve(a.store.Snapshot().GradeScales, args[0], "grade scale", scaleID, scaleName)
			if err != nil {
				return err
			}
			a.store.SetActiveGradeScale(g.ID)
			fmt.Printf("Active scale: %s\n", g.Name)
			a.noteUnsaved(ctx)
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "range [scale] [index] [min] [max]",
		Short: "Edit the bounds of one range",
		Args:  cobra.ExactArgs(4),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			g, err := resolve(a.store.Snapshot().GradeScales, args[0], "grade scale", scaleID, scaleName)
			if err != nil {
				return err
			}
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid range index %q", args[1])
			}
			lo, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid min %q", args[2])
			}
			hi, err := strconv.ParseFloat(args[3], 64)
			if err != nil {
				return fmt.Errorf("invalid max %q", args[3])
			}
			if lo > hi {
				return fmt.Errorf("min %g is above max %g", lo, hi)
			}

			updated, err := a.store.UpdateGradeScaleRange(g.ID, index, lo, hi)
			if err != nil {
				return err
			}
			r := updated.Ranges[index]
			fmt.Printf("%s: %s is now %g - %g\n", updated.Name, r.Label, r.Min, r.Max)
			a.noteUnsaved(ctx)
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete [id|name]",
		Short: "Delete a scale",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			g, err := resolve(a.store.Snapshot().GradeScales, args[0], "grade scale", scaleID, scaleName)
			if err != nil {
				return err
			}
			a.store.DeleteGradeScale(g.ID)
			fmt.Printf("Deleted scale %s\n", g.Name)
			a.noteUnsaved(ctx)
			return nil
		}),
	})
	return cmd
}

func pickScale(a *app, args []string) (domain.GradeScale, error) {
	snap := a.store.Snapshot()
	if len(args) == 1 {
		return resolve(snap.GradeScales, args[0], "grade scale", scaleID, scaleName)
	}
	g, ok := snap.ActiveGradeScale()
	if !ok {
		return g, fmt.Errorf("no active grade scale")
	}
	return g, nil
}

// parseCategory reads "Label=Weight".
func parseCategory(s string) (domain.WeightCategory, error) {
	label, weight, ok := strings.Cut(s, "=")
	if !ok {
		return domain.WeightCategory{}, fmt.Errorf("category %q: want Label=Weight", s)
	}
	w, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(weight), "%"), 64)
	if err != nil {
		return domain.WeightCategory{}, fmt.Errorf("category %q: invalid weight", s)
	}
	wc := domain.WeightCategory{ID: domain.NewID(), Label: strings.TrimSpace(label), Weight: w}
	if err := domain.Validate(wc); err != nil {
		return wc, err
	}
	return wc, nil
}

func weightsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weights",
		Short: "Show or replace the weight categories",
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			printWeights(a, a.store.Snapshot().WeightCategories)
			return nil
		}),
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set [Label=Weight...]",
		Short: "Replace the weight categories",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			categories := make([]domain.WeightCategory, 0, len(args))
			for _, arg := range args {
				wc, err := parseCategory(arg)
				if err != nil {
					return err
				}
				categories = append(categories, wc)
			}
			a.store.SetWeightCategories(categories)
			printWeights(a, categories)
			a.noteUnsaved(ctx)
			return nil
		}),
	})
	return cmd
}

func printWeights(a *app, categories []domain.WeightCategory) {
	if len(categories) == 0 {
		fmt.Println("No weight categories. Use 'pulsetrack weights set Homework=20 Exams=50'.")
		return
	}
	var total float64
	for _, wc := range categories {
		fmt.Printf("  %-16s %5g%%\n", wc.Label, wc.Weight)
		total += wc.Weight
	}
	line := fmt.Sprintf("  %-16s %5g%%", "Total", total)
	if total != 100 {
		line = a.st.Warn.Render(line)
	}
	fmt.Println(line)
}

func gradesCmd() *cobra.Command {
	var target float64

	cmd := &cobra.Command{
		Use:   "grades",
		Short: "Show class averages and GPA",
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			snap := a.store.Snapshot()
			grades := insights.ClassGrades(snap.Classes, snap.Assignments)
			if len(grades) == 0 {
				fmt.Println("No classes yet.")
				return nil
			}
			scale, hasScale := snap.ActiveGradeScale()

			for _, g := range grades {
				letter := ""
				if hasScale {
					letter, _ = insights.LetterFor(scale, g.WeightedAverage)
				}
				fmt.Printf("%-30s %6.1f%%  %-3s %.1f pts  %s\n",
					swatch(g.Class.Color, g.Class.Name), helper.Round(g.WeightedAverage, 1), letter,
					g.Points, a.st.Muted.Render(fmt.Sprintf("%d cr, %d assignments", g.Class.Credits, len(g.Assignments))))
			}

			gpa := insights.OverallGPA(grades)
			fmt.Printf("\n%s %.2f\n", a.st.Heading.Render("GPA"), gpa)
			if target > 0 {
				progress := insights.GPAProgress(gpa, target)
				fmt.Printf("Target %.2f  %s %.0f%%\n", target, a.st.Accent.Render(bar(int(progress), 100, 20)), progress)
			}
			return nil
		}),
	}

	cmd.Flags().Float64Var(&target, "target", 0, "target GPA to track progress against")
	return cmd
}

func whatIfCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whatif [score]",
		Short: "Average of all grades plus a hypothetical score",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			score, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid score %q", args[0])
			}
			avg := insights.WhatIf(a.store.Snapshot().Assignments, score)
			fmt.Printf("With a %g, your average would be %.1f%%\n", helper.Clamp(score, 0, 100), avg)
			return nil
		}),
	}
}
