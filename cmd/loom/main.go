package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	err := newRootCommand().Execute()
	if err == nil {
		return
	}
	// An interrupted run is not worth a second error line; the command
	// already logged the cancellation.
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "loom:", err)
	}
	os.Exit(1)
}
