// Command maphist resolves cross-version name mappings and prints a
// per-version coverage summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/viant/afs"
	"github.com/viant/maphist/pipeline"
	"go.uber.org/zap"
)

func main() {
	var (
		configPath = flag.String("config", "", "yaml configuration file")
		workspace  = flag.String("workspace", "", "cache directory, overrides the config")
		oldest     = flag.String("oldest", "", "oldest version id, overrides the config")
		newest     = flag.String("newest", "", "newest version id, overrides the config")
		verbose    = flag.Bool("verbose", false, "debug logging")
	)
	flag.Parse()

	if err := run(*configPath, *workspace, *oldest, *newest, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, "maphist:", err)
		os.Exit(1)
	}
}

func run(configPath, workspace, oldest, newest string, verbose bool) error {
	logger, err := newLogger(verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config := pipeline.DefaultConfig()
	if configPath != "" {
		if config, err = pipeline.LoadConfig(ctx, afs.New(), configPath); err != nil {
			return err
		}
	}
	if workspace != "" {
		config.WorkspaceRoot = workspace
	}
	if oldest != "" {
		config.Versions.Oldest = oldest
	}
	if newest != "" {
		config.Versions.Newest = newest
	}
	if err := config.Validate(); err != nil {
		return err
	}

	result, err := pipeline.New(config, pipeline.WithLogger(logger)).Run(ctx)
	if err != nil {
		return err
	}
	summarize(result)
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func summarize(result *pipeline.Result) {
	for _, entry := range result.Versions {
		coverage := strings.Join(entry.Namespaces, ", ")
		if entry.Empty {
			coverage = "(none)"
		}
		fmt.Printf("%-16s %6d classes  %s\n", entry.Version.ID, len(entry.Tree.Classes()), coverage)
	}
	fmt.Printf("%d class identities across %d versions\n",
		len(result.Classes.Nodes()), len(result.Versions))
}
