// Package cli wires the imageset subcommands.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/jo-hoe/imageset/internal/core"
	"github.com/spf13/cobra"
)

// options is shared by every subcommand.
type options struct {
	configPath string
	config     *core.ServiceConfig
	coreOpts   []core.Option
	stdout     io.Writer
	stderr     io.Writer
}

func (o *options) loadConfig() error {
	config, err := core.LoadConfig(o.configPath)
	if err != nil {
		return err
	}
	core.SetupLogging(config.LogLevel, o.stderr)
	o.config = config
	return nil
}

func (o *options) newCoreService(ctx context.Context) (*core.CoreService, error) {
	return core.NewCoreService(ctx, o.config, o.coreOpts...)
}

// NewRootCommand builds the imageset command tree. coreOpts are passed to
// every CoreService the subcommands create.
func NewRootCommand(stdout, stderr io.Writer, coreOpts ...core.Option) *cobra.Command {
	opts := &options{stdout: stdout, stderr: stderr, coreOpts: coreOpts}

	defaultConfig, err := core.ConfigPath()
	if err != nil {
		defaultConfig = "config.yaml"
	}

	root := &cobra.Command{
		Use:           "imageset",
		Short:         "Ingest and browse a CIFAR image set",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, args []string) error {
			if err := opts.loadConfig(); err != nil {
				return fmt.Errorf("failed to load config from %s: %w", opts.configPath, err)
			}
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultConfig, "path to the YAML config file (env CONFIG_PATH)")

	root.AddCommand(
		newIngestCommand(opts),
		newRandomCommand(opts),
		newSchemaCommand(opts),
		newServeCommand(opts),
	)
	return root
}
