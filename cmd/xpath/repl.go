package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/arborxml/xpvm/internal/config"
	"github.com/arborxml/xpvm/pkg/engine"
)

// runREPL implements `xpath repl [-doc file]`: reads one expression per
// line from stdin, compiling and executing each against the same engine
// and (if given) the same loaded document. The prompt is suppressed when
// stdin isn't an interactive terminal, the same isatty check the teacher's
// own terminal builtins use to decide whether to emit anything
// terminal-specific at all.
func runREPL(cfg *config.Config) error {
	docPath, err := parseDocFlag(os.Args[2:])
	if err != nil {
		return err
	}

	e := engine.New(cfg)

	var doc []byte
	if docPath != "" {
		doc, err = os.ReadFile(docPath)
		if err != nil {
			return fmt.Errorf("reading %s: %w", docPath, err)
		}
	}

	interactive := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())

	scanner := bufio.NewScanner(os.Stdin)
	for {
		if interactive {
			fmt.Fprint(os.Stderr, "xpath> ")
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		if err := evalLine(e, line, doc, docPath); err != nil {
			fmt.Fprintln(os.Stderr, "xpath:", err)
		}
	}
	return scanner.Err()
}

func parseDocFlag(args []string) (string, error) {
	for i, a := range args {
		if a == "-doc" {
			if i+1 >= len(args) {
				return "", fmt.Errorf("-doc requires a file path")
			}
			return args[i+1], nil
		}
	}
	return "", nil
}

func evalLine(e *engine.Engine, line string, doc []byte, docPath string) error {
	prog, err := e.Compile(line)
	if err != nil {
		return err
	}
	if doc == nil {
		seq, err := e.ExecuteStandalone(context.Background(), prog)
		if err != nil {
			return err
		}
		return printResult(seq)
	}
	seq, err := e.Execute(context.Background(), prog, doc, docPath)
	if err != nil {
		return err
	}
	return printResult(seq)
}
