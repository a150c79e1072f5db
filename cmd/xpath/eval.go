package main

import (
	"context"
	"fmt"
	"os"

	"github.com/arborxml/xpvm/internal/config"
	"github.com/arborxml/xpvm/internal/xdm"
	"github.com/arborxml/xpvm/pkg/engine"
)

// runEval implements `xpath eval EXPR [-doc file]`.
func runEval(cfg *config.Config, args []string) error {
	expr, docPath, err := parseEvalArgs(args)
	if err != nil {
		return err
	}
	if expr == "" {
		return fmt.Errorf("eval requires an expression")
	}

	e := engine.New(cfg)
	prog, err := e.Compile(expr)
	if err != nil {
		return err
	}

	var result xdm.Sequence
	if docPath == "" {
		result, err = e.ExecuteStandalone(context.Background(), prog)
	} else {
		var data []byte
		data, err = os.ReadFile(docPath)
		if err != nil {
			return fmt.Errorf("reading %s: %w", docPath, err)
		}
		result, err = e.Execute(context.Background(), prog, data, docPath)
	}
	if err != nil {
		return err
	}
	return printResult(result)
}

func parseEvalArgs(args []string) (expr, docPath string, err error) {
	i := 0
	for i < len(args) {
		switch args[i] {
		case "-doc":
			if i+1 >= len(args) {
				return "", "", fmt.Errorf("-doc requires a file path")
			}
			docPath = args[i+1]
			i += 2
		default:
			if expr != "" {
				return "", "", fmt.Errorf("unexpected argument %q", args[i])
			}
			expr = args[i]
			i++
		}
	}
	return expr, docPath, nil
}

func printResult(result xdm.Sequence) error {
	lines, err := engine.FormatItems(result)
	if err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Println(line)
	}
	return nil
}
