package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/vanderheijden86/sitenav/pkg/ui"
)

var flags struct {
	configFile string
	navFile    string
	database   string
	active     string
	noCollapse bool
	logLevel   string
}

var rootCmd = &cobra.Command{
	Use:   "sitenav",
	Short: "Browse, render and serve an accessible site navigation tree",
	Long: `sitenav loads a site navigation document (YAML, JSON or SQLite), marks the
current page and lets you move through the visible items with the keyboard.

Run without a subcommand to open the terminal navigator.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd.Context())
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "config file (default: .sitenav/config.yaml in the project root)")
	pf.StringVarP(&flags.navFile, "nav", "f", "", "navigation document (YAML or JSON)")
	pf.StringVar(&flags.database, "db", "", "SQLite database holding a nav_items table")
	pf.StringVarP(&flags.active, "active", "a", "", "active record as type:id")
	pf.BoolVar(&flags.noCollapse, "no-collapse", false, "render every section expanded and ignore collapse requests")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

var errNotTerminal = errors.New("the navigator needs an interactive terminal; try `sitenav visible` or `sitenav render`")

func runTUI(ctx context.Context) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errNotTerminal
	}

	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	t, doc, err := a.buildTree(ctx)
	if err != nil {
		return err
	}
	a.ensureGitignore()

	m := ui.NewModel(t, ui.Options{
		Title:       doc.Title,
		Active:      a.active,
		Collapsible: a.cfg.Collapsible,
		StatePath:   a.statePath(),
		Logger:      a.logger,
	})
	p := tea.NewProgram(m, tea.WithAltScreen())

	worker, err := ui.NewBackgroundWorker(ui.WorkerConfig{
		Path:   a.watchPath(),
		Load:   a.load,
		Sender: p,
		Logger: a.logger,
	})
	if err != nil {
		return fmt.Errorf("starting file watcher: %w", err)
	}
	if err := worker.Start(); err != nil {
		a.logger.Warn("live reload disabled", zap.Error(err))
	}
	defer worker.Stop()

	a.logger.Info("navigator started", zap.String("source", describeSource(a.cfg)))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("running navigator: %w", err)
	}
	if fm, ok := final.(ui.Model); ok && fm.Activated() != "" {
		fmt.Println(fm.Activated())
	}
	return nil
}
