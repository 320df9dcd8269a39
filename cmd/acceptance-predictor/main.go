// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the acceptance-predictor CLI.
// The CLI summarizes reviewer scores locally and reveals the acceptance
// prediction for a paper once the payment gate opens.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/acceptance-predictor/internal/logging"
	"github.com/pdiddy/acceptance-predictor/internal/secrets"
	"github.com/pdiddy/acceptance-predictor/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// Resolved at startup by PersistentPreRunE.
var (
	cfg    types.Config
	logger *slog.Logger = logging.Discard()
)

// rootCmd is the base command for the acceptance-predictor CLI.
var rootCmd = &cobra.Command{
	Use:   "acceptance-predictor",
	Short: "Estimate a paper's acceptance chance from its reviewer scores",
	Long: `acceptance-predictor collects the reviewer scores and confidences of a
submitted paper, prints descriptive statistics, and reveals the predicted
acceptance probability once the payment gate opens.

Settings (price, option sets, conference, payment wait time) come from the
prediction service and are refreshed in the background while a prediction
is pending.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		creds, err := secrets.Load(secrets.DefaultDir, nil)
		if err != nil {
			return err
		}

		c, err := buildConfig(viper.GetViper(), creds)
		if err != nil {
			return err
		}
		cfg = c
		logger = logging.New(cmd.ErrOrStderr(), cfg.Log)
		if !creds.Empty() {
			logger.Debug("loaded secrets", "dir", secrets.DefaultDir)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./acceptance-predictor.yaml or ~/.config/acceptance-predictor/acceptance-predictor.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("base-url", "", "prediction service base URL")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("backend.base_url", rootCmd.PersistentFlags().Lookup("base-url"))
}

func initConfig() {
	setDefaults(viper.GetViper())

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("acceptance-predictor")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "acceptance-predictor"))
		}
	}

	viper.SetEnvPrefix("ACCEPTANCE_PREDICTOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
