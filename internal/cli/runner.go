// Package cli wires config, logging, storage and the todo store into the
// `todo` command tree.
package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/kv"
	"github.com/Makepad-fr/tada/internal/logging"
	"github.com/Makepad-fr/tada/internal/store"
	"github.com/Makepad-fr/tada/internal/ui"
)

// usageError marks bad input; Run maps it to exit code 2.
type usageError struct{ msg, hint string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

// flags set on the root command; empty means "leave config alone"
type rootFlags struct {
	configPath string
	backend    string
	path       string
	logLevel   string
	theme      string
}

type app struct {
	flags  rootFlags
	cfg    *config.Config
	logger *log.Logger
}

// Run executes the command line and returns an exit code
// (0 ok, 1 error, 2 usage).
func Run(args []string, stdout, stderr io.Writer) int {
	a := &app{}
	root := newRootCmd(a)
	if args == nil {
		// cobra falls back to os.Args on nil
		args = []string{}
	}
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return 0
	}
	var ue usageError
	if errors.As(err, &ue) {
		if ue.msg != "" {
			ui.Fail(stderr, ue.msg)
		}
		if ue.hint != "" {
			ui.Hint(stderr, ue.hint)
		}
		return 2
	}
	ui.Fail(stderr, err.Error())
	return 1
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "todo",
		Short: "todo - a tiny todo list",
		Long: `todo keeps a numbered todo list in local storage.

Items are addressed by the number shown in "todo ls".
Run "todo ui" for the interactive list.`,
		Example: `  todo add "Buy milk"
  todo add "Call Bob" -d "re: project"
  todo ls
  todo done 2
  todo edit 1 -t "Buy oat milk"
  todo rm 3
  todo search milk`,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// the root only prints help or a usage error; config problems
			// must not mask that
			if !cmd.HasParent() || cmd.Name() == "help" {
				return nil
			}
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				cmd.Help()
				return usagef("unknown subcommand: %s", args[0])
			}
			cmd.Help()
			return usageError{}
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usagef("%s: %v", cmd.Name(), err)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "config file (TOML)")
	pf.StringVar(&a.flags.backend, "backend", "", "storage backend: file, sqlite or memory")
	pf.StringVar(&a.flags.path, "path", "", "data directory (file) or database file (sqlite)")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "debug, info, warn or error")
	pf.StringVar(&a.flags.theme, "theme", "", "classic, neon or mono")

	root.AddCommand(
		newAddCmd(a),
		newListCmd(a),
		newSearchCmd(a),
		newDoneCmd(a),
		newEditCmd(a),
		newRemoveCmd(a),
		newClearCmd(a),
		newUICmd(a),
	)
	return root
}

// setup loads config, then lets root flags override it.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.flags.configPath)
	if err != nil {
		return err
	}
	f := cmd.Flags()
	if f.Changed("backend") {
		cfg.Storage.Backend = a.flags.backend
	}
	if f.Changed("path") {
		cfg.Storage.Path = a.flags.path
	}
	if f.Changed("log-level") {
		cfg.Log.Level = a.flags.logLevel
	}
	if f.Changed("theme") {
		cfg.UI.Theme = a.flags.theme
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	ui.SetTheme(cfg.UI.Theme)

	a.cfg = cfg
	a.logger = logger
	return nil
}

// openStore opens the configured backend and loads the list.
// The returned func closes the backend.
func (a *app) openStore() (*store.Store, func(), error) {
	backend, closer, err := kv.Open(a.cfg.Storage.Backend, a.cfg.DataPath())
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	a.logger.Debug("storage opened", "backend", a.cfg.Storage.Backend, "path", a.cfg.DataPath())

	s := store.New(backend,
		store.WithKey(a.cfg.Storage.Key),
		store.WithLogger(a.logger),
	)
	s.Init()
	done := func() {
		if err := closer.Close(); err != nil {
			a.logger.Warn("close storage", "err", err)
		}
	}
	return s, done, nil
}
