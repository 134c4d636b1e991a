package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/Nady-Emad/zipman/internal/cli"
)

// version is set via ldflags at build time: -ldflags "-X main.version=x.y.z"
var version = "dev"

func main() {
	// Map user interruption to the conventional exit code.
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupt
		os.Exit(130)
	}()

	c := cli.New(version)
	c.Run()
}
