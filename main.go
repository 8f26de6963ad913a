package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"todo-api/config"
)

type cliFlags struct {
	configPath  string
	host        string
	port        int
	logLevel    string
	databaseURL string
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var f cliFlags

	root := &cobra.Command{
		Use:           "todo-api",
		Short:         "Serve the task list REST API",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "path to a YAML config file (default $CONFIG_FILE)")
	pf.StringVar(&f.host, "host", "", "listen host (default $HOST or 0.0.0.0)")
	pf.IntVar(&f.port, "port", 0, "listen port (default $PORT or 3000)")
	pf.StringVar(&f.logLevel, "log-level", "", "trace, debug, info, warn or error")
	pf.StringVar(&f.databaseURL, "database-url", "", "SQLite path or postgres:// URL")

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create the tasks table and indexes, then exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			return migrate(cmd.Context(), cfg)
		},
	})
	return root
}

// loadConfig layers explicitly set flags over the file and environment.
func loadConfig(cmd *cobra.Command, f cliFlags) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = f.host
	}
	if flags.Changed("port") {
		cfg.Port = f.port
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if flags.Changed("database-url") {
		cfg.DatabaseURL = f.databaseURL
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
