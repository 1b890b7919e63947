// Package main is the entry point for erd, the EasyRouter dashboard.
package main

import (
	"context"
	"os"

	"github.com/j-veylop/easyrouter-dashboard-tui/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
