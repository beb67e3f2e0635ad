package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/OpenTraceLab/charliegrid/cmd/charliegrid/cmd"
)

func main() {
	if err := cmd.Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		var exitErr *cmd.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Message != "" {
				fmt.Fprintln(os.Stderr, exitErr.Message)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(cmd.ExitFailure)
	}
}
