package main

import (
	"context"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"

	"github.com/jackzampolin/colorbook/version"
)

func main() {
	// fang cancels the context on SIGINT/SIGTERM for graceful shutdown
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(version.GitRelease),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	); err != nil {
		os.Exit(1)
	}
}
