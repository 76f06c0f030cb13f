package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gotrs-io/uiflow/internal/config"
	"github.com/gotrs-io/uiflow/internal/version"
)

// exitError carries the process exit code out of a command
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

const (
	exitFailures = 1
	exitFatal    = 2
)

var (
	configFile string
	loader     *config.Loader
)

var rootCmd = &cobra.Command{
	Use:   "uiflow",
	Short: "Browser workflow test runner for task and bug tracking web apps",
	Long: `uiflow drives one browser session through an ordered battery of
UI scenarios (create, complete, delete, validate, persist, health) against a
Task Manager or Bug Fixer style application and reports a verdict per
scenario.`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(); err != nil {
			return err
		}
		loader = config.NewLoader(configFile)
		return bindFlags(cmd)
	},
}

// flagKeys maps persistent flags onto configuration keys
var flagKeys = map[string]string{
	"profile":      "target.profile",
	"profile-file": "target.profile_file",
	"base-url":     "target.base_url",
	"verbose":      "logging.verbose",
}

// runFlagKeys maps flags of run-like commands onto configuration keys
var runFlagKeys = map[string]string{
	"headless":       "browser.headless",
	"slow-mo":        "browser.slow_mo",
	"screenshot-dir": "browser.screenshot_dir",
	"timeout":        "timings.timeout",
	"strict":         "run.strict",
	"only":           "run.only",
	"wait-ready":     "run.wait_ready",
	"report-dir":     "report.dir",
	"format":         "report.formats",
	"schedule":       "monitor.schedule",
	"listen":         "monitor.listen",
}

func bindFlags(cmd *cobra.Command) error {
	v := loader.Viper()
	for flag, key := range flagKeys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	for flag, key := range runFlagKeys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	c, err := loader.Load()
	if err != nil {
		return nil, &exitError{code: exitFatal, err: err}
	}
	return c, nil
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "config file (default ./uiflow.yaml or ./config/uiflow.yaml)")
	pf.StringP("profile", "p", "task-manager", "built-in target profile")
	pf.String("profile-file", "", "YAML profile describing a custom target")
	pf.String("base-url", "", "application base URL (APP_URL takes precedence)")
	pf.BoolP("verbose", "v", false, "log every step")

	rootCmd.AddCommand(runCmd, waitReadyCmd, scenariosCmd, profilesCmd, historyCmd, monitorCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(exitFatal)
	}
}
