// Command xpath is a standalone XPath 3.1 evaluator: a one-shot "eval"
// mode, an interactive "repl", and a "batch" mode that runs one expression
// against many documents concurrently.
package main

import (
	"fmt"
	"os"

	"github.com/arborxml/xpvm/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "xpath:", err)
		os.Exit(1)
	}

	var runErr error
	switch os.Args[1] {
	case "eval":
		runErr = runEval(cfg, os.Args[2:])
	case "repl":
		runErr = runREPL(cfg)
	case "batch":
		runErr = runBatch(cfg, os.Args[2:])
	case "-help", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "xpath: unknown subcommand %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if runErr != nil {
		fmt.Fprintln(os.Stderr, "xpath:", runErr)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  xpath eval EXPR [-doc file]
  xpath repl [-doc file]
  xpath batch -exprs file -docs glob`)
}

// loadConfig looks for xpvm.yaml starting from the current directory, the
// same walk-up-to-parent discovery internal/config.FindConfig implements.
// A missing file is not an error; the engine falls back to built-in
// defaults.
func loadConfig() (*config.Config, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolving working directory: %w", err)
	}
	path, err := config.FindConfig(dir)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, nil
	}
	return config.LoadConfig(path)
}
