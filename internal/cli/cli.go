// Package cli implements the lawtrack command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/raysh454/lawtrack/internal/app"
)

// Options customizes the command tree. The zero value writes to the process
// stdout/stderr and builds components from the loaded config.
type Options struct {
	Out io.Writer
	Err io.Writer

	// ComponentOptions are passed to every application built by a command.
	ComponentOptions []app.ComponentOption
	// Configure, when set, adjusts the loaded config before use.
	Configure func(*app.Config)
}

// runtime is the state shared by all subcommands of one invocation.
type runtime struct {
	opts    Options
	cfgFile string
	verbose bool
	cfg     *app.Config
}

// NewRootCommand builds the lawtrack command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	rt := &runtime{opts: opts}

	root := &cobra.Command{
		Use:   "lawtrack",
		Short: "Track amendments to Korean statutes",
		Long: `lawtrack watches statutes on the national law information service,
records every new publication and renders old/new comparison tables.`,
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.loadConfig()
		},
	}
	root.SetOut(opts.Out)
	root.SetErr(opts.Err)

	root.PersistentFlags().StringVar(&rt.cfgFile, "config", "", "config file (default ./lawtrack.yaml or ~/.config/lawtrack/lawtrack.yaml)")
	root.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		rt.addCommand(),
		rt.removeCommand(),
		rt.listCommand(),
		rt.checkCommand(),
		rt.bulkAddCommand(),
		rt.historyCommand(),
		rt.statsCommand(),
		rt.compareCommand(),
		rt.graphCommand(),
		rt.exportPDFCommand(),
		rt.serveCommand(),
		rt.mcpCommand(),
	)
	return root
}

// Execute runs the command tree against os.Args.
func Execute() {
	root := NewRootCommand(Options{})
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

func (rt *runtime) loadConfig() error {
	cfg, err := app.LoadConfig(rt.cfgFile)
	if err != nil {
		return err
	}
	if rt.verbose {
		cfg.Log.Level = "debug"
	}
	if rt.opts.Configure != nil {
		rt.opts.Configure(cfg)
	}
	rt.cfg = cfg
	return nil
}

// withApp builds the application, runs fn and shuts the application down.
func (rt *runtime) withApp(ctx context.Context, fn func(*app.Application) error) error {
	logger := app.NewLogger(rt.cfg, rt.opts.Err)
	a, err := app.NewApplication(ctx, rt.cfg, logger, rt.opts.ComponentOptions...)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("shutdown", lf("error", err.Error()))
		}
	}()
	return fn(a)
}
