package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/weavergo/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated
// app.Config, a boolean indicating if the program should exit cleanly,
// or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("weavergo", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
weavergo - a post-compile binary rewriting pipeline.

Usage:
  weavergo [options] [INPUT_IMAGE]

Arguments:
  INPUT_IMAGE
    Path to the .wvi program image to rewrite.

Options:
`)
		flagSet.PrintDefaults()
	}

	inputFlag := flagSet.String("input", "", "Path to the input program image.")
	iFlag := flagSet.String("i", "", "Path to the input program image (shorthand).")
	outputFlag := flagSet.String("output", "", "Path for the rewritten image. Defaults next to the input.")
	configFlag := flagSet.String("config", "", "Path to the HCL configuration file.")
	pluginsFlag := flagSet.String("plugins", "", "Directory of plugin image files to preload.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	input := *inputFlag
	if input == "" {
		input = *iFlag
	}
	if input == "" && flagSet.NArg() > 0 {
		input = flagSet.Arg(0)
	}
	if input == "" {
		slog.Debug("No input image provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}
	if *configFlag == "" {
		return nil, false, &ExitError{Code: 2, Message: "missing required -config flag"}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	cfg, err := app.NewConfig(app.Config{
		InputPath:   input,
		OutputPath:  *outputFlag,
		ConfigPath:  *configFlag,
		PluginsPath: *pluginsFlag,
		LogFormat:   logFormat,
		LogLevel:    logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", cfg)
	return cfg, false, nil
}
