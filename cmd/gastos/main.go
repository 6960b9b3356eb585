package main

import (
	"context"
	"fmt"
	"os"

	"gastos/internal/cli"
	applog "gastos/internal/log"
)

func main() {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel("info"),
		Component: applog.ComponentApp,
		Output:    os.Stderr,
	})
	ctx, cancel := cli.SignalContext(context.Background(), logger)

	err := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
