package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pbaille/pulsetrack/internal/api"
	"github.com/pbaille/pulsetrack/internal/domain"
	"github.com/pbaille/pulsetrack/internal/export"
	"github.com/pbaille/pulsetrack/internal/prefs"
	"github.com/pbaille/pulsetrack/internal/store"
	"github.com/pbaille/pulsetrack/internal/syllabus"
)

func exportCmd() *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export records as JSON, CSV or ICS",
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			var w io.Writer = os.Stdout
			if out != "" {
				if out == "." {
					out = f.FileName()
				}
				file, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				defer file.Close()
				w = file
			}

			if err := export.Write(w, f, a.store.Snapshot()); err != nil {
				return fmt.Errorf("export %s: %w", f, err)
			}
			if out != "" {
				fmt.Fprintf(os.Stderr, "Wrote %s\n", out)
			}
			return nil
		}),
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "json, csv or ics")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file ('.' for the default name, stdout when omitted)")
	return cmd
}

func themeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "theme",
		Short: "Show the color theme",
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			t, err := a.prefs.Theme()
			if err != nil {
				return err
			}
			fmt.Println(a.st.Accent.Render(string(t)))
			return nil
		}),
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set [dark|light]",
		Short: "Choose the color theme",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			t, err := prefs.ParseTheme(args[0])
			if err != nil {
				return err
			}
			if err := a.prefs.SetTheme(t); err != nil {
				return err
			}
			fmt.Println(newStyles(t).Accent.Render("Theme set to " + string(t)))
			return nil
		}),
	})
	return cmd
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the planner over HTTP",
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			if err := a.store.Start(ctx); err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.Addr
			}
			srv := api.New(a.store, addr, api.WithGatherer(a.registry), api.WithLogger(a.logger))
			fmt.Printf("Listening on %s\n", addr)
			return srv.Run(ctx)
		}),
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func setupCmd() *cobra.Command {
	var start, end string
	var categories, classes []string

	cmd := &cobra.Command{
		Use:   "setup [term name]",
		Short: "Start a semester: term, weight categories and classes in one go",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			setup := store.SemesterSetup{
				TermName:  strings.Join(args, " "),
				StartDate: start,
				EndDate:   end,
			}
			for _, c := range categories {
				wc, err := parseCategory(c)
				if err != nil {
					return err
				}
				setup.Categories = append(setup.Categories, wc)
			}
			for _, name := range classes {
				if name = strings.TrimSpace(name); name != "" {
					setup.Classes = append(setup.Classes, name)
				}
			}

			draft := domain.Term{Name: setup.TermName, StartDate: start, EndDate: end}
			if err := domain.Validate(draft); err != nil {
				return err
			}

			term, created := a.store.SetupSemester(setup)
			fmt.Printf("Started %s (%s → %s)\n", term.Name, term.StartDate, term.EndDate)
			if len(setup.Categories) > 0 {
				printWeights(a, setup.Categories)
			}
			for _, c := range created {
				fmt.Printf("  + %s\n", swatch(c.Color, c.Name))
			}
			a.noteUnsaved(ctx)
			return nil
		}),
	}

	cmd.Flags().StringVar(&start, "start", "", "term start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "term end date (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&categories, "weights", nil, "weight categories as Label=Weight")
	cmd.Flags().StringSliceVar(&classes, "classes", nil, "comma-separated class names")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
	return cmd
}

func syllabusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "syllabus",
		Short: "Upload syllabi and import their dates",
	}
	cmd.AddCommand(syllabusUploadCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "import [class]",
		Short: "Create assignments from extracted assignment and exam items",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			c, err := resolve(a.store.Snapshot().Classes, args[0], "class", classID, className)
			if err != nil {
				return err
			}
			created, err := a.store.ImportExtractedAssignments(c.ID)
			if err != nil {
				return err
			}
			if len(created) == 0 {
				fmt.Printf("Nothing to import for %s. Upload a syllabus first.\n", c.Name)
				return nil
			}
			fmt.Printf("Imported %d assignment(s) into %s\n", len(created), c.Name)
			for _, as := range created {
				fmt.Printf("  + %s  %s  %s\n", short(as.ID), as.DueDate, as.Title)
			}
			a.noteUnsaved(ctx)
			return nil
		}),
	})
	return cmd
}

func syllabusUploadCmd() *cobra.Command {
	var class string

	cmd := &cobra.Command{
		Use:   "upload [file]",
		Short: "Attach a syllabus to a class and extract its dates",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			c, err := resolve(a.store.Snapshot().Classes, class, "class", classID, className)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read syllabus: %w", err)
			}
			f := syllabus.File{Name: filepath.Base(args[0]), Data: data}

			var up syllabus.Uploader
			if a.cfg.B2.Configured() {
				b2, err := syllabus.NewB2Uploader(ctx, a.cfg.B2.KeyID, a.cfg.B2.AppKey, a.cfg.B2.Bucket)
				if err != nil {
					fmt.Printf("(upload skipped: %v)\n", err)
				} else {
					up = b2
				}
			} else {
				fmt.Println(a.st.Muted.Render("(upload skipped: B2 credentials not configured)"))
			}

			upload, err := syllabus.Process(ctx, syllabus.CannedExtractor{}, up, f)
			if err != nil {
				return err
			}
			if _, err := a.store.AddSyllabusUpload(c.ID, upload); err != nil {
				return err
			}

			fmt.Printf("Extracted %d item(s) from %s\n", len(upload.ExtractedItems), upload.FileName)
			for _, item := range upload.ExtractedItems {
				line := fmt.Sprintf("  %-12s %s %-5s %s", item.Type, item.Date, item.Time, item.Title)
				if item.Ambiguous {
					line += a.st.Warn.Render("  check: " + item.Notes)
				}
				fmt.Println(line)
			}
			if upload.ObjectURL != "" {
				fmt.Println(a.st.Muted.Render(upload.ObjectURL))
			}
			fmt.Printf("Run 'pulsetrack syllabus import %s' to create assignments.\n", short(c.ID))
			a.noteUnsaved(ctx)
			return nil
		}),
	}

	cmd.Flags().StringVarP(&class, "class", "c", "", "class id or name")
	cmd.MarkFlagRequired("class")
	return cmd
}
