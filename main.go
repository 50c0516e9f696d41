package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/2cd/getctr/internal/adapters/in/cli"
	"github.com/2cd/getctr/pkg/version"
)

var (
	buildVersion string
	commit       string
	date         string
)

func main() {
	version.Set(buildVersion, commit, date)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
