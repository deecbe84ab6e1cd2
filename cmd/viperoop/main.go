// Command viperoop is a demo driver binary: it wires config loading,
// structured logging, and the OOP lowering core together over a small
// hand-built program, since this repository's scope stops at the lowering
// core and owns no lexer or parser.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/splanck/viper-sub011/internal/buildlog"
	"github.com/splanck/viper-sub011/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var verbose bool

	root := &cobra.Command{
		Use:   "viperoop",
		Short: "Viper BASIC OOP lowering demo driver",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to viperoop.yaml")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "emit debug-level lowering logs")

	demo := &cobra.Command{
		Use:   "demo",
		Short: "lower a small built-in sample program and print its IL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			logger := buildlog.Noop()
			if verbose {
				logger, err = buildlog.NewProduction()
				if err != nil {
					return fmt.Errorf("starting logger: %w", err)
				}
				defer logger.Sync()
			}

			out, err := runDemo(cfg, logger)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	root.AddCommand(demo)
	return root
}
