package main

import (
	"context"
	"fmt"
	"os"

	"github.com/khangpt2k6/bullroom/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "bullroom: %v\n", err)
		os.Exit(1)
	}
}
