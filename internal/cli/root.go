// Package cli implements the hatchdockstore command line.
package cli

import (
	"fmt"
	"os"

	"github.com/mugiliam/hatchdockstore/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

type RootOptions struct {
	ConfigFile string
	LogLevel   string
	LogFormat  string
}

func NewRootCmd() *cobra.Command {
	opts := &RootOptions{}

	root := &cobra.Command{
		Use:           "hatchdockstore",
		Short:         "Registry of workflows and tools kept in sync with their source repositories",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}

	root.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "path to the TOML configuration file")
	root.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level, overrides the configuration")
	root.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "log format (json|console), overrides the configuration")

	root.AddCommand(newServeCmd())
	root.AddCommand(newRefreshOrgCmd())
	root.AddCommand(newSchemaCmd())

	return root
}

func (o *RootOptions) load() error {
	c, err := config.LoadConfig(o.ConfigFile)
	if err != nil {
		return err
	}
	if o.LogLevel != "" {
		c.Log.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		c.Log.Format = o.LogFormat
	}
	if err := setupLogger(c.Log); err != nil {
		return err
	}
	config.SetConfig(c)
	return nil
}

func setupLogger(c config.LogConfig) error {
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}
	zerolog.SetGlobalLevel(level)
	switch c.Format {
	case "", "json":
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	case "console":
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	default:
		return fmt.Errorf("invalid log format %q: must be json or console", c.Format)
	}
	return nil
}

// Execute runs the root command.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
