// Command bddgen is the command-line front end of the conversion workflow.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dgallion1/bddgen/internal/bdd"
	"github.com/dgallion1/bddgen/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(config.Load()).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(exitCode(err))
	}
}

// exitCode maps the error taxonomy onto process exit codes.
func exitCode(err error) int {
	switch {
	case errors.Is(err, bdd.ErrValidation), errors.Is(err, bdd.ErrPrecondition):
		return 2
	case errors.Is(err, bdd.ErrUpstream):
		return 3
	case errors.Is(err, bdd.ErrParse):
		return 4
	}
	return 1
}
