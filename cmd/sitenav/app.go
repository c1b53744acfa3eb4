package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/vanderheijden86/sitenav/pkg/config"
	"github.com/vanderheijden86/sitenav/pkg/loader"
	"github.com/vanderheijden86/sitenav/pkg/logging"
	"github.com/vanderheijden86/sitenav/pkg/model"
	"github.com/vanderheijden86/sitenav/pkg/tree"
)

// app is the per-invocation environment shared by the commands.
type app struct {
	root   string
	cfg    *config.Config
	active model.ActiveRecord
	logger *zap.Logger
}

// newApp resolves the project root, loads configuration, applies flag
// overrides and builds the logger. forTUI routes logs to a file because
// the TUI owns the terminal.
func newApp(forTUI bool) (*app, error) {
	root, cfgPath, err := resolveConfigPath(flags.configFile)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	applyFlagOverrides(cfg)
	cfg.Resolve(root)

	active, err := model.ParseActiveRecord(cfg.Active)
	if err != nil {
		return nil, err
	}

	if forTUI && cfg.Log.File == "" {
		cfg.Log.File = filepath.Join(cfg.StateDir, "sitenav.log")
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return nil, err
	}

	return &app{root: root, cfg: cfg, active: active, logger: logger}, nil
}

// resolveConfigPath returns the project root and the config file to read.
// An explicit --config wins; otherwise the nearest .sitenav/ above the
// working directory, falling back to the working directory itself.
func resolveConfigPath(explicit string) (string, string, error) {
	if explicit != "" {
		abs, err := filepath.Abs(explicit)
		if err != nil {
			return "", "", err
		}
		root := filepath.Dir(abs)
		if filepath.Base(root) == config.DirName {
			root = filepath.Dir(root)
		}
		return root, abs, nil
	}
	if root, ok := config.DetectProjectRoot(); ok {
		return root, config.Path(root), nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", "", err
	}
	return cwd, config.Path(cwd), nil
}

func applyFlagOverrides(cfg *config.Config) {
	if flags.navFile != "" {
		cfg.NavFile = absFromCwd(flags.navFile)
		cfg.Database = ""
	}
	if flags.database != "" {
		cfg.Database = absFromCwd(flags.database)
	}
	if flags.active != "" {
		cfg.Active = flags.active
	}
	if flags.noCollapse {
		cfg.Collapsible = false
	}
	if flags.logLevel != "" {
		cfg.Log.Level = strings.ToLower(flags.logLevel)
	}
}

// absFromCwd anchors paths given on the command line to the working
// directory rather than the project root.
func absFromCwd(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// Close flushes the logger.
func (a *app) Close() {
	_ = a.logger.Sync()
}

// statePath returns the tree-state.json location.
func (a *app) statePath() string {
	return tree.StatePath(a.cfg.StateDir)
}

// watchPath is the file whose changes trigger a reload; empty when the
// navigation comes from a database.
func (a *app) watchPath() string {
	if a.cfg.Database != "" {
		return ""
	}
	return a.cfg.NavFile
}

// load reads the navigation document from the database when configured,
// otherwise from the nav file.
func (a *app) load(ctx context.Context) (*model.Document, error) {
	if a.cfg.Database != "" {
		items, err := loader.LoadSQLite(ctx, a.cfg.Database)
		if err != nil {
			return nil, err
		}
		return &model.Document{Items: items}, nil
	}
	return loader.LoadFile(a.cfg.NavFile)
}

// effectiveActive prefers the configured active record over the
// document's own.
func (a *app) effectiveActive(doc *model.Document) model.ActiveRecord {
	if !a.active.IsZero() {
		return a.active
	}
	return doc.Active
}

// buildTree loads the document and builds the tree with saved collapse
// state applied.
func (a *app) buildTree(ctx context.Context) (*tree.Tree, *model.Document, error) {
	doc, err := a.load(ctx)
	if err != nil {
		return nil, nil, err
	}
	t, err := tree.Build(doc.Items, a.effectiveActive(doc), a.cfg.Collapsible)
	if err != nil {
		return nil, nil, err
	}
	t.SetLogger(a.logger)
	if err := t.LoadState(a.statePath()); err != nil {
		a.logger.Warn("ignoring tree state", zap.Error(err))
	}
	return t, doc, nil
}

// ensureGitignore keeps the state directory out of git when it lives in
// the project.
func (a *app) ensureGitignore() {
	rel, err := filepath.Rel(a.root, a.cfg.StateDir)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	if _, err := os.Stat(filepath.Join(a.root, ".git")); err != nil {
		return
	}
	if err := loader.EnsureStateDirInGitignore(a.root, filepath.ToSlash(rel)); err != nil {
		a.logger.Warn("could not update .gitignore", zap.Error(err))
	}
}

func describeSource(cfg *config.Config) string {
	if cfg.Database != "" {
		return fmt.Sprintf("database %s", cfg.Database)
	}
	return cfg.NavFile
}
