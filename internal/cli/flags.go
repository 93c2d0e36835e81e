package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	gerrors "github.com/mrz1836/gantry/internal/errors"
)

// Exit codes returned by the CLI.
const (
	// ExitSuccess indicates successful execution.
	ExitSuccess = 0
	// ExitError indicates a runtime failure.
	ExitError = 1
	// ExitInvalidInput indicates invalid flags, arguments, or input files.
	ExitInvalidInput = 2
)

// Output format constants.
const (
	// OutputText is the human-readable output format.
	OutputText = "text"
	// OutputJSON is the machine-readable output format.
	OutputJSON = "json"
)

// GlobalFlags holds the values of the root command's persistent flags.
type GlobalFlags struct {
	// Output is the output format: text or json.
	Output string
	// Verbose enables debug-level logging.
	Verbose bool
	// Quiet suppresses info-level logging and decorative output.
	Quiet bool
	// ConfigPath optionally points at an explicit config file instead of
	// the default search paths.
	ConfigPath string
}

// AddGlobalFlags registers the persistent flags on the root command.
func AddGlobalFlags(cmd *cobra.Command, flags *GlobalFlags) {
	cmd.PersistentFlags().StringVarP(&flags.Output, "output", "o", OutputText,
		"output format (text|json)")
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false,
		"enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false,
		"suppress non-essential output")
	cmd.PersistentFlags().StringVar(&flags.ConfigPath, "config", "",
		"path to config file (default: .gantry.yaml, ~/.gantry/config.yaml)")

	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}

// BindGlobalFlags connects the persistent flags to Viper so environment
// variables (GANTRY_OUTPUT, GANTRY_VERBOSE, ...) can override them.
func BindGlobalFlags(v *viper.Viper, cmd *cobra.Command) error {
	for _, name := range []string{"output", "verbose", "quiet", "config"} {
		flag := cmd.Root().PersistentFlags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(name, flag); err != nil {
			return err
		}
	}

	v.SetEnvPrefix("GANTRY")
	v.AutomaticEnv()

	return nil
}

// ValidOutputFormats returns the accepted values for the --output flag.
func ValidOutputFormats() []string {
	return []string{OutputText, OutputJSON}
}

// IsValidOutputFormat reports whether the format is accepted.
func IsValidOutputFormat(format string) bool {
	switch format {
	case OutputText, OutputJSON:
		return true
	default:
		return false
	}
}

// invalidInputSentinels are the sentinel errors that map to exit code 2.
// They all describe bad input (flags, manifests, arguments) rather than a
// failure while doing the work.
//
//nolint:gochecknoglobals // Sentinel list for exit code mapping
var invalidInputSentinels = []error{
	gerrors.ErrInvalidOutputFormat,
	gerrors.ErrManifestFileMissing,
	gerrors.ErrManifestParseError,
	gerrors.ErrManifestInvalid,
	gerrors.ErrWatchIntervalTooShort,
	gerrors.ErrWatchModeJSONUnsupported,
}

// ExitCodeForError maps an error to the process exit code.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	for _, sentinel := range invalidInputSentinels {
		if errors.Is(err, sentinel) {
			return ExitInvalidInput
		}
	}

	// Cobra reports flag and argument problems as plain errors; match the
	// known message shapes.
	if isInvalidInputError(err.Error()) {
		return ExitInvalidInput
	}

	return ExitError
}

// isInvalidInputError matches Cobra's flag and argument error messages.
func isInvalidInputError(msg string) bool {
	patterns := []string{
		"unknown flag",
		"unknown shorthand flag",
		"flag needs an argument",
		"invalid argument",
		"if any flags in the group",
		"required flag",
		"unknown command",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
