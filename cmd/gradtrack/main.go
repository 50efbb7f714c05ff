// Package main is the entry point for the gradtrack server and admin CLI.
package main

import (
	"os"

	commands "github.com/cas-gradtrack/gradtrack/cmd/gradtrack/internal/commands"
	"github.com/fatih/color"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
