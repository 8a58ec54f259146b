package cli

import (
	"fmt"

	"github.com/sadopc/tasktimer/internal/history"
	"github.com/sadopc/tasktimer/internal/registry"
	"github.com/sadopc/tasktimer/internal/util"
	"github.com/spf13/cobra"
)

func newTaskCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "task",
		Aliases: []string{"tasks"},
		Short:   "Manage tasks",
	}

	var addIcon string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a task",
		Args:  cobra.ExactArgs(1),
		RunE: run(o, func(cmd *cobra.Command, args []string, s *session) error {
			t, err := s.tasks.Add(args[0], addIcon)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s (%s)\n", t.Icon, t.Name, shortID(t.ID))
			return nil
		}),
	}
	add.Flags().StringVar(&addIcon, "icon", registry.DefaultIcon, "Task icon")

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks with their tracked totals",
		Args:    cobra.NoArgs,
		RunE: run(o, func(cmd *cobra.Command, args []string, s *session) error {
			tasks := s.tasks.List()
			w := cmd.OutOrStdout()
			if len(tasks) == 0 {
				fmt.Fprintln(w, "No tasks yet. Add one with: tasktimer task add <name>")
				return nil
			}

			res := history.Run(s.tracker.Records(), s.tasks, history.Query{})
			totals := make(map[string]history.TaskTotal)
			for _, tt := range history.SummarizeByTask(res.Entries) {
				totals[tt.TaskID] = tt
			}

			fmt.Fprintf(w, "%s  %s  %s  %s\n",
				util.PadRight("ID", 8), util.PadRight("TASK", 28), util.PadRight("RECORDS", 7), "TOTAL")
			for _, t := range tasks {
				tt := totals[t.ID]
				fmt.Fprintf(w, "%s  %s  %s  %s\n",
					util.PadRight(shortID(t.ID), 8),
					util.PadRight(t.Icon+" "+t.Name, 28),
					util.PadRight(fmt.Sprint(tt.Count), 7),
					util.FormatHuman(tt.Total))
			}
			return nil
		}),
	}

	var renameIcon string
	rename := &cobra.Command{
		Use:   "rename <task> <new-name>",
		Short: "Rename a task or change its icon",
		Args:  cobra.ExactArgs(2),
		RunE: run(o, func(cmd *cobra.Command, args []string, s *session) error {
			t, err := s.tasks.Lookup(args[0])
			if err != nil {
				return err
			}
			if err := s.tasks.Update(t.ID, args[1], renameIcon); err != nil {
				return err
			}
			t, _ = s.tasks.Get(t.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed to %s %s\n", t.Icon, t.Name)
			return nil
		}),
	}
	rename.Flags().StringVar(&renameIcon, "icon", "", "New icon (unchanged when empty)")

	del := &cobra.Command{
		Use:     "delete <task>",
		Aliases: []string{"rm"},
		Short:   "Delete a task; its records are kept",
		Args:    cobra.ExactArgs(1),
		RunE: run(o, func(cmd *cobra.Command, args []string, s *session) error {
			t, err := s.tasks.Lookup(args[0])
			if err != nil {
				return err
			}
			if err := s.tasks.Delete(t.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %s\n", t.Icon, t.Name)
			return nil
		}),
	}

	cmd.AddCommand(add, list, rename, del)
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
