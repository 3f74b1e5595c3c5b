// Package main is the entry point for the toast CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/toastbuild/toast/cmd/toast/commands"
	"github.com/toastbuild/toast/internal/adapters/logger"
	"github.com/toastbuild/toast/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	a := app.New(logger.New())
	cli := commands.New(a)
	cli.SetArgs(os.Args[1:])

	if err := cli.Execute(context.Background()); err != nil {
		// fielderr prints the message plus sorted structured fields when
		// formatted with "%+v".
		_, _ = fmt.Fprintf(os.Stderr, "%+v\n", err)
		return 1
	}
	return 0
}
