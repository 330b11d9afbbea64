package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/example/expense-report/internal/config"
	"github.com/example/expense-report/internal/logging"
)

var version = "dev"

var rootCmd = newRootCmd()

// app carries state shared by the subcommands of one command tree.
type app struct {
	cfgFile string
	v       *viper.Viper
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New(), logger: slog.Default()}

	cmd := &cobra.Command{
		Use:   "expense-report",
		Short: "Categorize bank exports into a monthly expense report",
		Long: `Expense Report reads semicolon separated CSV exports of German bank
accounts, sorts every expense into a category by keyword and writes
per-month totals as text, xlsx, JSON or a Google Sheet.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.initConfig,
	}

	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./expense-report.toml or $HOME/.config/expense-report/expense-report.toml)")
	cmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "console", "log format (console, json)")

	_ = a.v.BindPFlag("log.level", cmd.PersistentFlags().Lookup("log-level"))
	_ = a.v.BindPFlag("log.format", cmd.PersistentFlags().Lookup("log-format"))

	cmd.AddCommand(a.reportCmd())
	cmd.AddCommand(a.classifyCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) initConfig(_ *cobra.Command, _ []string) error {
	if err := config.Read(a.v, a.cfgFile); err != nil {
		return err
	}

	level, err := logging.ParseLevel(a.v.GetString("log.level"))
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	logger, err := logging.Setup(logging.Config{
		Level:  level,
		Format: a.v.GetString("log.format"),
	})
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	a.logger = logger

	if used := a.v.ConfigFileUsed(); used != "" {
		a.logger.Debug("config loaded", "file", used)
	}
	return nil
}

// config decodes and validates the merged flags, file and environment.
func (a *app) config() (*config.Config, error) {
	return config.Unmarshal(a.v)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "expense-report %s\n", version)
		},
	}
}
