package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/arborxml/xpvm/internal/config"
	"github.com/arborxml/xpvm/pkg/engine"
)

// runBatch implements `xpath batch -exprs file -docs glob`: evaluates the
// single expression in -exprs against every document -docs matches,
// concurrently. This is safe because a compiled Program and the Engine's
// StaticContext are immutable and shareable across goroutines (spec.md
// §5) — each goroutine still gets its own fresh VM/DynamicContext via
// Engine.Execute.
func runBatch(cfg *config.Config, args []string) error {
	exprFile, docGlob, err := parseBatchArgs(args)
	if err != nil {
		return err
	}

	exprBytes, err := os.ReadFile(exprFile)
	if err != nil {
		return fmt.Errorf("reading %s: %w", exprFile, err)
	}

	docs, err := filepath.Glob(docGlob)
	if err != nil {
		return fmt.Errorf("matching %s: %w", docGlob, err)
	}
	if len(docs) == 0 {
		return fmt.Errorf("no documents matched %q", docGlob)
	}

	e := engine.New(cfg)
	prog, err := e.Compile(string(exprBytes))
	if err != nil {
		return err
	}

	start := time.Now()
	var mu sync.Mutex
	itemCount := 0

	g, ctx := errgroup.WithContext(context.Background())
	for _, path := range docs {
		path := path
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			seq, err := e.Execute(ctx, prog, data, path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			lines, err := engine.FormatItems(seq)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			mu.Lock()
			itemCount += len(lines)
			for _, line := range lines {
				fmt.Printf("%s\t%s\n", path, line)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "%s documents, %s items, %s\n",
		humanize.Comma(int64(len(docs))), humanize.Comma(int64(itemCount)), time.Since(start))
	return nil
}

func parseBatchArgs(args []string) (exprFile, docGlob string, err error) {
	i := 0
	for i < len(args) {
		switch args[i] {
		case "-exprs":
			if i+1 >= len(args) {
				return "", "", fmt.Errorf("-exprs requires a file path")
			}
			exprFile = args[i+1]
			i += 2
		case "-docs":
			if i+1 >= len(args) {
				return "", "", fmt.Errorf("-docs requires a glob pattern")
			}
			docGlob = args[i+1]
			i += 2
		default:
			return "", "", fmt.Errorf("unexpected argument %q", args[i])
		}
	}
	if exprFile == "" || docGlob == "" {
		return "", "", fmt.Errorf("batch requires -exprs and -docs")
	}
	return exprFile, docGlob, nil
}
