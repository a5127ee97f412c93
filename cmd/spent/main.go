// Package main implements the spent command line for recording spending and
// reading monthly reports from the local ledger.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"spent/internal/cli"
	applog "spent/internal/log"
)

func main() {
	cli.LoadEnvFile()
	if err := execute(context.Background(), openApp, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// opener builds the engine once flags are parsed.
type opener func(ctx context.Context) (*cli.App, error)

// openApp logs to stderr so command output stays clean for pipes.
func openApp(ctx context.Context) (*cli.App, error) {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return nil, err
	}
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentApp, os.Stderr)
	return cli.NewApp(ctx, cfg, logger, nil)
}

func execute(ctx context.Context, open opener, args []string, out io.Writer) error {
	st := &rootState{open: open}
	root := newRootCmd(st)
	root.SetArgs(args)
	root.SetOut(out)

	err := root.ExecuteContext(ctx)
	if st.app != nil {
		if cerr := st.app.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
