package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-pistonlauncher/cmd"
	"github.com/go-pistonlauncher/pkg/utils"
)

func main() {
	// Normalize boolean flags so forms like "--raw false" are treated as "--raw=false"
	os.Args = utils.NormalizeBooleanFlags(os.Args, cmd.BooleanFlags...)

	// Ctrl-C cancels the running operation between entries
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cmd.NewRootCmd()
	root.SetArgs(os.Args[1:])
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
