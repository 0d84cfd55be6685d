// Package main provides the entry point for the Conductor CLI: authoring,
// sharing, and headless simulation of coordination events.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conductorapp/conductor/event"
	"github.com/conductorapp/conductor/event/token"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	verbose    bool

	rootCmd = &cobra.Command{
		Use:          "conductor",
		Short:        "Coordinate timed group performances from a shared event script",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if verbose {
				log.SetLevel(log.DebugLevel)
			}
			return initConfig()
		},
	}
)

func initConfig() error {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("conductor")
		viper.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "conductor"))
		}
		viper.AddConfigPath(".")
	}
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && configFile == "" {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	log.Debug("config loaded", "file", viper.ConfigFileUsed())
	return nil
}

// loadEventArg turns a CLI argument (token, URL, or file path) into a
// validated event.
func loadEventArg(arg string) (event.Event, error) {
	if tok, ok := token.ExtractToken(arg); ok {
		return token.Decode(tok)
	}

	data, err := os.ReadFile(arg)
	if err != nil {
		return event.Event{}, fmt.Errorf("read %s: %w", arg, err)
	}

	switch strings.ToLower(filepath.Ext(arg)) {
	case ".yaml", ".yml":
		return event.ParseYAMLSchedule(data)
	case ".txt", ".schedule":
		return event.ParseTextSchedule(string(data))
	default:
		trimmed := strings.TrimSpace(string(data))
		if tok, ok := token.ExtractToken(trimmed); ok {
			return token.Decode(tok)
		}
		return event.ParseJSON(data)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: conductor.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(encodeCmd, decodeCmd, inspectCmd, icalCmd, simulateCmd)
}
