// Command xpathd serves pkg/engine's Compile/Execute/Introspect over gRPC,
// for callers that want the XPath engine as a network service instead of
// linking cmd/xpath directly.
package main

import (
	"fmt"
	"os"

	"github.com/arborxml/xpvm/internal/config"
	"github.com/arborxml/xpvm/internal/rpcserver"
)

func main() {
	addr, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "xpathd:", err)
		os.Exit(2)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "xpathd:", err)
		os.Exit(1)
	}

	srv, err := rpcserver.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "xpathd:", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "xpathd: listening on %s\n", addr)
	if err := srv.Serve(addr); err != nil {
		fmt.Fprintln(os.Stderr, "xpathd:", err)
		os.Exit(1)
	}
}

func parseArgs(args []string) (addr string, err error) {
	addr = ":9471"
	i := 0
	for i < len(args) {
		switch args[i] {
		case "-addr":
			if i+1 >= len(args) {
				return "", fmt.Errorf("-addr requires a value")
			}
			addr = args[i+1]
			i += 2
		case "-help", "--help", "help":
			return "", fmt.Errorf("usage: xpathd [-addr host:port]")
		default:
			return "", fmt.Errorf("unexpected argument %q", args[i])
		}
	}
	return addr, nil
}

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
