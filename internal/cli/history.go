package cli

import (
	"fmt"

	"github.com/sadopc/tasktimer/internal/history"
	"github.com/sadopc/tasktimer/internal/store"
	"github.com/sadopc/tasktimer/internal/util"
	"github.com/spf13/cobra"
)

func newHistoryCmd(o *options) *cobra.Command {
	var (
		search string
		sortBy string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List completed recordings",
		Args:  cobra.NoArgs,
		RunE: run(o, func(cmd *cobra.Command, args []string, s *session) error {
			if sortBy == "" {
				sortBy = s.store.SettingOr(store.SettingHistorySort, string(history.SortNewest))
			}
			order, err := history.ParseSort(sortBy)
			if err != nil {
				return err
			}

			res := history.Run(s.tracker.Records(), s.tasks, history.Query{Search: search, Sort: order})
			w := cmd.OutOrStdout()
			if len(res.Entries) == 0 {
				fmt.Fprintln(w, "No recordings found")
				return nil
			}

			entries := res.Entries
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}

			fmt.Fprintf(w, "%s  %s  %s  %s\n",
				util.PadRight("ENDED", 16), util.PadRight("TASK", 24), util.PadRight("DURATION", 10), "NOTE")
			for _, e := range entries {
				fmt.Fprintf(w, "%s  %s  %s  %s\n",
					util.PadRight(util.FormatDateTime(*e.Record.EndAt), 16),
					util.PadRight(e.TaskIcon+" "+e.TaskName, 24),
					util.PadRight(util.FormatClock(e.Record.Accumulated), 10),
					e.Record.Note)
			}
			fmt.Fprintf(w, "\n%d recordings, %s total (%s)\n", len(res.Entries), util.FormatHuman(res.Total), order.Label())
			return nil
		}),
	}

	f := cmd.Flags()
	f.StringVarP(&search, "search", "s", "", "Filter by task name")
	f.StringVar(&sortBy, "sort", "", "Sort order (newest, oldest, longest, shortest)")
	f.IntVar(&limit, "limit", 0, "Show at most this many rows (0 = all)")
	return cmd
}
