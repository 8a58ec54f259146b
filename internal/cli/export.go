package cli

import (
	"fmt"
	"path/filepath"

	"github.com/sadopc/tasktimer/internal/export"
	"github.com/spf13/cobra"
)

func newExportCmd(o *options) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export tasks and recordings as JSON or CSV",
		Long: `Export tasks and recordings.

JSON holds every task and record. CSV holds completed records with their task
names. Use -o - to write to stdout.`,
		Args: cobra.NoArgs,
		RunE: run(o, func(cmd *cobra.Command, args []string, s *session) error {
			if format != "json" && format != "csv" {
				return fmt.Errorf("invalid format %q (want json or csv)", format)
			}
			now := s.clock.Now()
			tasks, records := s.tasks.List(), s.tracker.Records()

			if output == "-" {
				if format == "csv" {
					return export.WriteCSV(cmd.OutOrStdout(), records, s.tasks)
				}
				return export.WriteJSON(cmd.OutOrStdout(), tasks, records, now)
			}

			path := output
			if path == "" {
				path = export.DefaultFilename(format, now)
			}
			var err error
			if format == "csv" {
				err = export.ToCSV(records, s.tasks, path)
			} else {
				err = export.ToJSON(tasks, records, path, now)
			}
			if err != nil {
				return err
			}
			if abs, err := filepath.Abs(path); err == nil {
				path = abs
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", path)
			return nil
		}),
	}

	f := cmd.Flags()
	f.StringVarP(&format, "format", "f", "json", "Export format (json, csv)")
	f.StringVarP(&output, "output", "o", "", "Output file, or - for stdout (default tasktimer-export-<date>.<format>)")
	return cmd
}
