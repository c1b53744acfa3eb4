package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/sitenav/pkg/config"
	"github.com/vanderheijden86/sitenav/pkg/embed"
	"github.com/vanderheijden86/sitenav/pkg/export"
	"github.com/vanderheijden86/sitenav/pkg/loader"
	"github.com/vanderheijden86/sitenav/pkg/render"
	"github.com/vanderheijden86/sitenav/pkg/server"
	"github.com/vanderheijden86/sitenav/pkg/tree"
	"github.com/vanderheijden86/sitenav/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of sitenav",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "sitenav %s\n", version.String())
	},
}

var renderOpts struct {
	id        string
	className string
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Write the navigation markup (ARIA tree) to stdout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		t, doc, err := a.buildTree(cmd.Context())
		if err != nil {
			return err
		}
		r, err := render.New()
		if err != nil {
			return err
		}
		return r.Render(cmd.OutOrStdout(), t, render.Options{
			ID:        renderOpts.id,
			Title:     doc.Title,
			ClassName: renderOpts.className,
		})
	},
}

var visibleCmd = &cobra.Command{
	Use:   "visible",
	Short: "Print the visible items and the roving tab stop as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		t, _, err := a.buildTree(cmd.Context())
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), server.VisibleSnapshot(t))
	},
}

var keyOpts struct {
	focused string
	save    bool
}

var keyCmd = &cobra.Command{
	Use:   "key KEY [KEY...]",
	Short: "Apply navigation keys (ArrowDown, Home, ...) and print the result",
	Long: `Apply one or more keys to the tree, starting from --focused, and print the
final result as JSON. Keys that expand or collapse sections change the
saved state only with --save.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keys := make([]tree.Key, 0, len(args))
		for _, name := range args {
			k, ok := tree.ParseKey(name)
			if !ok {
				return fmt.Errorf("unsupported key %q", name)
			}
			keys = append(keys, k)
		}

		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		t, _, err := a.buildTree(cmd.Context())
		if err != nil {
			return err
		}

		res := tree.Result{Focus: keyOpts.focused}
		changed := false
		for _, k := range keys {
			res = t.HandleKey(res.Focus, k)
			changed = changed || res.Changed
		}
		if changed && keyOpts.save {
			if err := t.SaveState(a.statePath()); err != nil {
				return err
			}
			a.ensureGitignore()
		}
		return writeJSON(cmd.OutOrStdout(), res)
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle ID",
	Short: "Expand or collapse a section and save the state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		t, _, err := a.buildTree(cmd.Context())
		if err != nil {
			return err
		}
		n := t.Node(args[0])
		if n == nil {
			return fmt.Errorf("unknown nav item %q", args[0])
		}
		if !t.Toggle(n.ID) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s unchanged\n", n.ID)
			return nil
		}
		if err := t.SaveState(a.statePath()); err != nil {
			return err
		}
		a.ensureGitignore()
		state := "collapsed"
		if n.Expanded {
			state = "expanded"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", n.ID, state)
		return nil
	},
}

var exportOpts struct {
	title       string
	visibleOnly bool
	diagram     bool
}

var exportCmd = &cobra.Command{
	Use:   "export-md FILE",
	Short: "Export the navigation as a Markdown sitemap",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		t, doc, err := a.buildTree(cmd.Context())
		if err != nil {
			return err
		}
		title := exportOpts.title
		if title == "" {
			title = doc.Title
		}
		opts := export.MarkdownOptions{VisibleOnly: exportOpts.visibleOnly, Diagram: exportOpts.diagram}
		if err := export.SaveMarkdownToFile(t, title, args[0], opts); err != nil {
			return fmt.Errorf("exporting markdown: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d items to %s\n", t.Len(), args[0])
		return nil
	},
}

var embedAlbum bool

var embedCmd = &cobra.Command{
	Use:   "embed PROVIDER POST_ID",
	Short: "Load a provider script and print the embed placeholder",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		reg := newEmbedRegistry(a)
		ph, err := reg.Render(cmd.Context(), args[0], embed.Data{PostID: args[1], IsAlbum: embedAlbum})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ph.HTML)
		return nil
	},
}

func newEmbedRegistry(a *app) *embed.Registry {
	return embed.NewDefaultRegistry(embed.NewLoader(embed.LoaderConfig{
		Timeout: a.cfg.Embed.Timeout,
		Logger:  a.logger,
	}))
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the navigation over HTTP with live reload",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			a.cfg.Server.Addr = addr
		}
		srv, err := server.New(server.Config{
			Addr:            a.cfg.Server.Addr,
			AllowAllOrigins: a.cfg.Server.AllowAllOrigins,
			Active:          a.active,
			Collapsible:     a.cfg.Collapsible,
			StatePath:       a.statePath(),
			WatchPath:       a.watchPath(),
		}, a.load, newEmbedRegistry(a), a.logger)
		if err != nil {
			return err
		}
		a.ensureGitignore()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}
	},
}

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List sitenav projects under the configured scan paths",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		sites := config.DiscoverSites(*a.cfg)
		if len(sites) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "No sites found. Add discovery.scan_paths to the config.")
			return nil
		}
		for _, s := range sites {
			note := ""
			if !s.HasConfig {
				note = "  (defaults)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s%s\n", s.Name, s.Path, note)
		}
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init [DIR]",
	Short: "Create .sitenav/config.yaml and ignore the state directory in git",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		root := absFromCwd(dir)
		path := config.Path(root)
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.DefaultConfig().Save(path); err != nil {
			return err
		}
		if err := loader.EnsureStateDirInGitignore(root, config.DirName); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
		return nil
	},
}

var importSQLiteCmd = &cobra.Command{
	Use:   "import-sqlite DB",
	Short: "Copy the navigation document into a SQLite nav_items table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		doc, err := a.load(cmd.Context())
		if err != nil {
			return err
		}
		if err := loader.SaveSQLite(cmd.Context(), args[0], doc.Items); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %s into %s\n", describeSource(a.cfg), args[0])
		return nil
	},
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	renderCmd.Flags().StringVar(&renderOpts.id, "id", "", "DOM id of the <nav> (generated when empty)")
	renderCmd.Flags().StringVar(&renderOpts.className, "class", "", "extra classes for the <nav>")

	keyCmd.Flags().StringVar(&keyOpts.focused, "focused", "", "ID of the focused item (empty = nothing focused)")
	keyCmd.Flags().BoolVar(&keyOpts.save, "save", false, "persist expand/collapse changes")

	exportCmd.Flags().StringVar(&exportOpts.title, "title", "", "document title (default: the nav document title)")
	exportCmd.Flags().BoolVar(&exportOpts.visibleOnly, "visible-only", false, "omit items inside collapsed sections")
	exportCmd.Flags().BoolVar(&exportOpts.diagram, "diagram", false, "append a mermaid diagram")

	embedCmd.Flags().BoolVar(&embedAlbum, "album", false, "the post is an album")

	serveCmd.Flags().String("addr", "", "listen address (default from config, :8080)")

	rootCmd.AddCommand(versionCmd, renderCmd, visibleCmd, keyCmd, toggleCmd, exportCmd,
		embedCmd, serveCmd, sitesCmd, initCmd, importSQLiteCmd)
}
