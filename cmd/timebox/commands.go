package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hylla/timebox/internal/adapters/export"
	"github.com/hylla/timebox/internal/adapters/report"
	"github.com/hylla/timebox/internal/adapters/storage/sqlite"
	"github.com/hylla/timebox/internal/app"
	"github.com/hylla/timebox/internal/config"
	"github.com/hylla/timebox/internal/domain"
	"github.com/spf13/cobra"
)

func newStartCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "start NAME MINUTES",
		Short: "Start a new activity with an estimate in minutes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, "start", func(s *session) error {
				a, err := s.store.StartActivityInput(cmd.Context(), args[0], args[1])
				if err != nil {
					return fmt.Errorf("start activity: %w", err)
				}
				if err := s.saved(); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(opts.stdout, "started %q (%s) with %s remaining\n",
					a.Name, a.ID, app.FormatRemaining(a.RemainingSeconds))
				return nil
			})
		},
	}
}

func newCompleteCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "complete",
		Short: "Complete the activity in progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd.Context(), opts, "complete", func(s *session) error {
				a, err := s.store.CompleteActivity(cmd.Context())
				if err != nil {
					return fmt.Errorf("complete activity: %w", err)
				}
				if err := s.saved(); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(opts.stdout, "completed %q: %s min, %s\n",
					a.Name, optionalNumber(a.ActualMinutes, ""), optionalNumber(a.Difference, "%"))
				return nil
			})
		},
	}
}

func newDeleteCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a finished activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, "delete", func(s *session) error {
				if err := s.store.DeleteActivity(cmd.Context(), args[0]); err != nil {
					return fmt.Errorf("delete activity %q: %w", args[0], err)
				}
				if err := s.saved(); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(opts.stdout, "deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func newEditCommand(opts *cliOptions) *cobra.Command {
	fields := make([]string, 0, len(domain.EditableFields))
	for _, f := range domain.EditableFields {
		fields = append(fields, string(f))
	}
	return &cobra.Command{
		Use:   "edit ID FIELD VALUE",
		Short: "Edit one field of an activity",
		Long:  "Editable fields: " + strings.Join(fields, ", ") + ".\nTimes accept \"2006-01-02 15:04\" and RFC 3339.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, "edit", func(s *session) error {
				a, err := s.store.ApplyEdit(cmd.Context(), args[0], args[1], args[2])
				if err != nil {
					return fmt.Errorf("edit activity %q: %w", args[0], err)
				}
				if err := s.saved(); err != nil {
					return err
				}
				field, _ := domain.ParseField(args[1])
				_, _ = fmt.Fprintf(opts.stdout, "updated %s of %q: %s\n", field, a.Name, a.FieldValue(field, time.Local))
				return nil
			})
		},
	}
}

func newListCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded activities, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd.Context(), opts, "list", func(s *session) error {
				activities := s.store.Snapshot()
				if len(activities) == 0 {
					_, _ = fmt.Fprintln(opts.stdout, "no activities recorded")
					return nil
				}
				if active, ok := s.store.Active(); ok {
					_, _ = fmt.Fprintf(opts.stdout, "in progress: %s (%s %s)\n",
						active.Name, app.FormatRemaining(active.RemainingSeconds), remainingLabel(active.RemainingSeconds))
				}
				_, _ = fmt.Fprintln(opts.stdout, renderTable(activities, time.Local))
				return nil
			})
		},
	}
}

// renderTable lays activities out as a rounded lipgloss table.
func renderTable(activities []domain.Activity, loc *time.Location) string {
	rows := make([][]string, 0, len(activities))
	for _, a := range activities {
		end := "-"
		if a.EndTime != nil {
			end = a.EndTime.In(loc).Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{
			a.ID,
			a.Name,
			a.StartTime.In(loc).Format("2006-01-02 15:04"),
			end,
			domain.FormatNumber(a.EstimatedMinutes),
			optionalNumber(a.ActualMinutes, ""),
			optionalNumber(a.Difference, "%"),
			string(a.Status),
		})
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("62"))).
		Headers("ID", "Activity", "Start", "End", "Est (min)", "Actual (min)", "Diff", "Status").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Rows(rows...)
	return t.String()
}

func newExportCommand(opts *cliOptions) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export activities as CSV",
		Long:  "Without --out the file is written to the export dir as time-tracker-export-YYYY-MM-DD.csv.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd.Context(), opts, "export", func(s *session) error {
				activities := s.store.Snapshot()
				switch strings.TrimSpace(outPath) {
				case "-":
					if err := export.WriteCSV(opts.stdout, activities, time.Local); err != nil {
						return fmt.Errorf("write csv to stdout: %w", err)
					}
					return nil
				case "":
					path, err := export.WriteFile(s.cfg.Export.Dir, time.Now(), activities, time.Local)
					if err != nil {
						return err
					}
					s.logger.Info("csv export written", "path", path, "count", len(activities))
					_, _ = fmt.Fprintln(opts.stdout, path)
					return nil
				default:
					data, err := export.Bytes(activities, time.Local)
					if err != nil {
						return err
					}
					if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
						return fmt.Errorf("create export output dir: %w", err)
					}
					if err := os.WriteFile(outPath, data, 0o644); err != nil {
						return fmt.Errorf("write export file: %w", err)
					}
					s.logger.Info("csv export written", "path", outPath, "count", len(activities))
					_, _ = fmt.Fprintln(opts.stdout, outPath)
					return nil
				}
			})
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file path ('-' for stdout)")
	return cmd
}

func newReportCommand(opts *cliOptions) *cobra.Command {
	var (
		limit int
		width int
		style string
		raw   bool
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize estimates against actual time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd.Context(), opts, "report", func(s *session) error {
				md := report.Markdown(s.store.Snapshot(), time.Now(), time.Local, limit)
				if raw {
					_, _ = fmt.Fprint(opts.stdout, md)
					return nil
				}
				renderer := report.Renderer{Style: style}
				_, _ = fmt.Fprintln(opts.stdout, renderer.Render(md, width))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of recent activities to include (0 for all)")
	cmd.Flags().IntVar(&width, "width", 80, "wrap width")
	cmd.Flags().StringVar(&style, "style", "dark", "glamour style (dark, light, notty, ascii)")
	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown without rendering")
	return cmd
}

func newWatchCommand(opts *cliOptions) *cobra.Command {
	var maxTicks int
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the countdown of the activity in progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd.Context(), opts, "watch", func(s *session) error {
				active, ok := s.store.Active()
				if !ok {
					return fmt.Errorf("watch: %w", domain.ErrNoActiveActivity)
				}
				_, _ = fmt.Fprintf(opts.stdout, "%s  %s\n", active.Name, app.FormatRemaining(active.RemainingSeconds))

				ctx, cancel := context.WithCancel(cmd.Context())
				defer cancel()
				ticks := 0
				err := s.store.Run(ctx, tickerFactory(), func(res app.TickResult) {
					_, _ = fmt.Fprintf(opts.stdout, "%s  %s\n", active.Name, app.FormatRemaining(res.RemainingSeconds))
					if res.EnteredOvertime {
						_, _ = fmt.Fprintf(opts.stdout, "time is up: %s\n", active.Name)
					}
					ticks++
					if maxTicks > 0 && ticks >= maxTicks {
						cancel()
					}
				})
				return ignoreCanceled(err)
			})
		},
	}
	cmd.Flags().IntVar(&maxTicks, "ticks", 0, "stop after this many ticks (0 runs until interrupted)")
	return cmd
}

func newPathsCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and data paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := opts.resolvePaths()
			if err != nil {
				return err
			}
			configPath, cfg, err := opts.resolveConfig(paths)
			if err != nil {
				return err
			}
			saved, err := lastSaved(cmd.Context(), cfg.Database.Path, cfg.Storage.Key)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(opts.stdout, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(opts.stdout, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(opts.stdout, "config: %s\n", configPath)
			_, _ = fmt.Fprintf(opts.stdout, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(opts.stdout, "db: %s\n", cfg.Database.Path)
			_, _ = fmt.Fprintf(opts.stdout, "last_saved: %s\n", saved)
			_, _ = fmt.Fprintf(opts.stdout, "exports: %s\n", cfg.Export.Dir)
			return nil
		},
	}
}

// lastSaved reports when the activity list under key was last written, without creating the
// database when it does not exist yet.
func lastSaved(ctx context.Context, dbPath, key string) (string, error) {
	if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
		return "never", nil
	}
	repo, err := sqlite.Open(dbPath)
	if err != nil {
		return "", fmt.Errorf("open sqlite %q: %w", dbPath, err)
	}
	defer func() { _ = repo.Close() }()
	at, err := repo.BlobUpdatedAt(ctx, key)
	if errors.Is(err, app.ErrBlobNotFound) {
		return "never", nil
	}
	if err != nil {
		return "", err
	}
	return at.Local().Format(time.RFC3339), nil
}

func newConfigCommand(opts *cliOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			paths, err := opts.resolvePaths()
			if err != nil {
				return err
			}
			configPath, cfg, err := opts.resolveConfig(paths)
			if err != nil {
				return err
			}
			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("config %q already exists (use --force to overwrite)", configPath)
			}
			// The export dir stays implicit so it follows the platform default.
			if cfg.Export.Dir == paths.ExportDir {
				cfg.Export.Dir = ""
			}
			if err := config.Save(configPath, cfg); err != nil {
				return fmt.Errorf("save config %q: %w", configPath, err)
			}
			_, _ = fmt.Fprintln(opts.stdout, configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	cmd.AddCommand(initCmd)
	return cmd
}

func remainingLabel(remainingSeconds int) string {
	if remainingSeconds < 0 {
		return "overtime"
	}
	return "remaining"
}

func optionalNumber(v *float64, suffix string) string {
	if v == nil {
		return "-"
	}
	return domain.FormatNumber(*v) + suffix
}
