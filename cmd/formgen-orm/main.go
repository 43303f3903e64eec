package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/goliatone/go-formgen-orm/internal/cli"
	"github.com/goliatone/go-formgen-orm/pkg/prompt"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := cli.NewRootCmd(os.Stdout, prompt.NewSurveyDriver(os.Stdout))
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, prompt.ErrAborted) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
