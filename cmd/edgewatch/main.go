// Command edgewatch watches AND-combined conditions and fires on rising edges.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/edgewatch/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "edgewatch: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
