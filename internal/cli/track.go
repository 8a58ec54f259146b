package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sadopc/tasktimer/internal/lifecycle"
	"github.com/sadopc/tasktimer/internal/util"
	"github.com/spf13/cobra"
)

// phaseError turns a rejected transition into a message naming the phase.
func phaseError(s *session, action string, err error) error {
	if errors.Is(err, lifecycle.ErrInvalidTransition) {
		return fmt.Errorf("cannot %s while %s", action, phaseLabel(s.tracker.Phase()))
	}
	return err
}

func phaseLabel(p lifecycle.Phase) string {
	switch p {
	case lifecycle.PhaseNoSelection:
		return "no task is selected"
	case lifecycle.PhaseSelected:
		return "the timer is not started"
	case lifecycle.PhaseRunning:
		return "running"
	case lifecycle.PhasePaused:
		return "paused"
	}
	return string(p)
}

func newSelectCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "select <task>",
		Short: "Select a task, saving any recording in progress",
		Args:  cobra.ExactArgs(1),
		RunE: run(o, func(cmd *cobra.Command, args []string, s *session) error {
			t, err := s.tasks.Lookup(args[0])
			if err != nil {
				return err
			}
			if err := s.tracker.SwitchTask(t.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Selected %s %s\n", t.Icon, t.Name)
			return nil
		}),
	}
}

func newStartCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "start [task]",
		Short: "Start the timer for the selected task, or select and start one",
		Args:  cobra.MaximumNArgs(1),
		RunE: run(o, func(cmd *cobra.Command, args []string, s *session) error {
			if len(args) == 1 {
				t, err := s.tasks.Lookup(args[0])
				if err != nil {
					return err
				}
				if err := s.tracker.SwitchTask(t.ID); err != nil {
					return err
				}
			}
			if err := s.tracker.Start(); err != nil {
				return phaseError(s, "start", err)
			}
			t, _ := s.tracker.SelectedTask()
			fmt.Fprintf(cmd.OutOrStdout(), "Started %s %s\n", t.Icon, t.Name)
			return nil
		}),
	}
}

func newPauseCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause the running timer",
		Args:  cobra.NoArgs,
		RunE: run(o, func(cmd *cobra.Command, args []string, s *session) error {
			if err := s.tracker.Pause(); err != nil {
				return phaseError(s, "pause", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Paused at %s\n", util.FormatClock(s.tracker.Elapsed()))
			return nil
		}),
	}
}

func newResumeCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume the paused timer",
		Args:  cobra.NoArgs,
		RunE: run(o, func(cmd *cobra.Command, args []string, s *session) error {
			if err := s.tracker.Resume(); err != nil {
				return phaseError(s, "resume", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Resumed from %s\n", util.FormatClock(s.tracker.Elapsed()))
			return nil
		}),
	}
}

func newDoneCmd(o *options) *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:     "done",
		Aliases: []string{"complete", "stop"},
		Short:   "Save the current recording",
		Args:    cobra.NoArgs,
		RunE: run(o, func(cmd *cobra.Command, args []string, s *session) error {
			rec, active := s.tracker.ActiveRecord()
			t, _ := s.tracker.SelectedTask()
			elapsed := s.tracker.Elapsed()
			if err := s.tracker.Complete(); err != nil {
				return phaseError(s, "complete", err)
			}
			if note = strings.TrimSpace(note); note != "" && active {
				if err := s.tracker.SetNote(rec.ID, note); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s for %s %s\n", util.FormatHuman(elapsed), t.Icon, t.Name)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&note, "note", "n", "", "Note to attach to the record")
	return cmd
}

func newCancelCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Discard the current recording and clear the selection",
		Args:  cobra.NoArgs,
		RunE: run(o, func(cmd *cobra.Command, args []string, s *session) error {
			if s.tracker.Phase() == lifecycle.PhaseNoSelection {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to cancel")
				return nil
			}
			if err := s.tracker.Cancel(); err != nil {
				return phaseError(s, "cancel", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Recording discarded")
			return nil
		}),
	}
}

func newDeselectCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "deselect",
		Short: "Clear a selection that has not been started",
		Args:  cobra.NoArgs,
		RunE: run(o, func(cmd *cobra.Command, args []string, s *session) error {
			if err := s.tracker.Deselect(); err != nil {
				return phaseError(s, "deselect", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Selection cleared")
			return nil
		}),
	}
}

func newStatusCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the selected task and timer",
		Args:  cobra.NoArgs,
		RunE: run(o, func(cmd *cobra.Command, args []string, s *session) error {
			printStatus(cmd.OutOrStdout(), s)
			return nil
		}),
	}
}

func printStatus(w io.Writer, s *session) {
	phase := s.tracker.Phase()
	if phase == lifecycle.PhaseNoSelection {
		fmt.Fprintln(w, "No task selected")
		return
	}

	name, icon := s.tasks.Resolve(s.tracker.Tracking().SelectedTaskID)
	state := map[lifecycle.Phase]string{
		lifecycle.PhaseSelected: "ready",
		lifecycle.PhaseRunning:  "running",
		lifecycle.PhasePaused:   "paused",
	}[phase]

	fmt.Fprintf(w, "Task:    %s %s\n", icon, name)
	fmt.Fprintf(w, "State:   %s\n", state)
	fmt.Fprintf(w, "Elapsed: %s\n", util.FormatClock(s.tracker.Elapsed()))
	if rec, ok := s.tracker.ActiveRecord(); ok && phase == lifecycle.PhaseRunning {
		fmt.Fprintf(w, "Since:   %s\n", util.FormatDateTime(rec.StartAt))
	}
}
