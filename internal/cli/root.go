// Package cli is the tasktimer command tree. With no subcommand it opens the
// terminal UI, or prints the status when stdout is not a terminal.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/tasktimer/internal/config"
	"github.com/sadopc/tasktimer/internal/lifecycle"
	"github.com/sadopc/tasktimer/internal/registry"
	"github.com/sadopc/tasktimer/internal/store"
	"github.com/sadopc/tasktimer/internal/timer"
	"github.com/sadopc/tasktimer/internal/tui"
	"github.com/sadopc/tasktimer/internal/util"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type options struct {
	configPath string
	dbPath     string
	logLevel   string
	theme      string
	debug      bool

	clock util.Clock
}

// NewRootCmd builds a fresh command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&options{clock: util.SystemClock()})
}

func newRootCmd(o *options) *cobra.Command {
	root := &cobra.Command{
		Use:   "tasktimer",
		Short: "Track time spent on tasks from the terminal",
		Long: `tasktimer records how long you spend on your tasks.

Run it without arguments for the interactive view, or script it:

  tasktimer task add "Read" --icon 📚
  tasktimer start Read
  tasktimer pause
  tasktimer done --note "chapter 3"
  tasktimer history --sort longest`,
		RunE:          func(cmd *cobra.Command, args []string) error { return runRoot(cmd, o) },
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&o.configPath, "config", config.DefaultPath(), "Config file path")
	pf.StringVar(&o.dbPath, "db", "", "Database path (overrides config)")
	pf.StringVar(&o.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&o.theme, "theme", "", "Color theme (dark, light)")
	pf.BoolVar(&o.debug, "debug", false, "Enable debug logging to stderr")

	root.AddCommand(
		newTaskCmd(o),
		newSelectCmd(o),
		newStartCmd(o),
		newPauseCmd(o),
		newResumeCmd(o),
		newDoneCmd(o),
		newCancelCmd(o),
		newDeselectCmd(o),
		newStatusCmd(o),
		newHistoryCmd(o),
		newExportCmd(o),
		newConfigCmd(o),
	)
	return root
}

// Execute runs the command tree against os.Args.
func Execute() error {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// session holds the components opened for one command.
type session struct {
	cfg     *config.Config
	clock   util.Clock
	log     util.Logger
	store   *store.Store
	tasks   *registry.Registry
	timer   *timer.Engine
	tracker *lifecycle.Tracker

	closers []func() error
}

func openSession(cmd *cobra.Command, o *options) (*session, error) {
	cfg, err := config.Load(o.configPath, cmd.Flags())
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, clock: o.clock}
	s.log = s.initLogger(cmd, o)

	st, err := store.New(cfg.DBPath, store.WithLogger(s.log), store.WithClock(s.clock))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	s.store = st
	s.closers = append(s.closers, st.Close)

	s.tasks = registry.New(st, registry.WithClock(s.clock))
	s.timer = timer.New(st,
		timer.WithClock(s.clock),
		timer.WithInterval(cfg.TickInterval),
		timer.WithLogger(s.log),
	)
	s.closers = append(s.closers, func() error { s.timer.Close(); return nil })
	s.tracker = lifecycle.NewTracker(st, s.timer, s.tasks,
		lifecycle.WithClock(s.clock),
		lifecycle.WithLogger(s.log),
	)

	s.log.Debug("session opened", util.F("db", cfg.DBPath), util.F("config", o.configPath))
	return s, nil
}

func (s *session) initLogger(cmd *cobra.Command, o *options) util.Logger {
	level := s.cfg.LogLevel
	if o.debug {
		level = "debug"
	}
	format := util.LogFormat(s.cfg.LogFormat)

	var outputs []util.Output
	if s.cfg.LogFile != "" {
		if out, err := util.NewFileOutput(s.cfg.LogFile, format); err == nil {
			outputs = append(outputs, out)
			s.closers = append(s.closers, out.Close)
		} else if o.debug {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning:", err)
		}
	}
	if o.debug {
		outputs = append(outputs, util.NewWriterOutput(cmd.ErrOrStderr(), format))
	}

	log := util.NewLogger(level, outputs...)
	util.SetDefault(log)
	return log
}

// Close releases everything in reverse order of opening.
func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && s.log != nil {
			s.log.Warn("close failed", util.Err(err))
		}
	}
	s.closers = nil
}

// run opens a session, calls fn and closes the session.
func run(o *options, fn func(cmd *cobra.Command, args []string, s *session) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, o)
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(cmd, args, s)
	}
}

func runRoot(cmd *cobra.Command, o *options) error {
	s, err := openSession(cmd, o)
	if err != nil {
		return err
	}
	defer s.Close()

	if !isTerminal(cmd.OutOrStdout()) {
		printStatus(cmd.OutOrStdout(), s)
		return nil
	}
	return runTUI(cmd, o, s)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func runTUI(cmd *cobra.Command, o *options, s *session) error {
	// The stored theme follows in-app toggles; an explicit flag replaces it.
	if cmd.Flags().Changed("theme") {
		if err := s.store.SetSetting(store.SettingTheme, s.cfg.Theme); err != nil {
			s.log.Warn("save theme failed", util.Err(err))
		}
	}

	app := tui.NewApp(tui.Options{
		Store:        s.store,
		Tasks:        s.tasks,
		Tracker:      s.tracker,
		Clock:        s.clock,
		Log:          s.log,
		TickInterval: s.cfg.TickInterval,
		Theme:        s.cfg.Theme,
		DBPath:       s.cfg.DBPath,
		ConfigPath:   o.configPath,
	})
	p := tea.NewProgram(app, tea.WithAltScreen())

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go func() {
		err := config.Watch(ctx, o.configPath, s.log, func(cfg *config.Config) {
			p.Send(tui.ConfigChangedMsg{Config: cfg})
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn("config watch stopped", util.Err(err))
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}
