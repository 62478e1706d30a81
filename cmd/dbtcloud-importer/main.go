package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/cli"
	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/env"
)

func main() {
	// Cancel on interrupt, waits in the API client are interrupted too
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// Run command
	cmd := cli.NewRootCommand(os.Stdin, os.Stdout, os.Stderr, env.FromOs())
	exitCode := cmd.Execute(ctx)
	cancel()
	os.Exit(exitCode)
}
