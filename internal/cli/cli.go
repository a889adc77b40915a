// Package cli parses command-line arguments into the application config.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/vk/benchgrid/internal/app"
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

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("benchgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
benchgrid - a declarative benchmark execution harness.

Usage:
  benchgrid [options] [CONFIG_PATH]

Arguments:
  CONFIG_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to the config file or directory.")
	cFlag := flagSet.String("c", "", "Path to the config file or directory (shorthand).")
	fileFlag := flagSet.String("file", "", "Run only the given suite file.")
	sharedFlag := flagSet.String("shared", "", "Run one shard of the suite set, e.g. \"1/3\".")
	patternFlag := flagSet.String("pattern", "", "Case-name filter regex forwarded to executors.")
	builderFlag := flagSet.String("builder", "", "Only use builders whose name matches this regex.")
	executorFlag := flagSet.String("executor", "", "Only use executors whose name matches this regex.")
	outFlag := flagSet.String("out", "", "Save the raw result set to this JSON file.")
	diffFlag := flagSet.String("diff", "", "Compare against a previously saved result file.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	noColorFlag := flagSet.Bool("no-color", false, "Disable colored report output.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	path := ""
	if *configFlag != "" {
		path = *configFlag
	} else if *cFlag != "" {
		path = *cFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	if path == "" {
		flagSet.Usage()
		return nil, true, nil
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

	config, err := app.NewConfig(app.Config{
		ConfigPath:     path,
		File:           *fileFlag,
		Shared:         *sharedFlag,
		Pattern:        *patternFlag,
		BuilderFilter:  *builderFlag,
		ExecutorFilter: *executorFlag,
		OutPath:        *outFlag,
		DiffPath:       *diffFlag,
		LogFormat:      logFormat,
		LogLevel:       logLevel,
		NoColor:        *noColorFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	return config, false, nil
}
