package main

import (
	"fmt"
	"os"

	"BobFS/pkg/bob"

	"github.com/urfave/cli/v2"
)

func catFlags() *cli.Command {
	return &cli.Command{
		Name:      "cat",
		Usage:     "write the current object to stdout",
		ArgsUsage: "PATH",
		Action:    cat,
	}
}

func cat(ctx *cli.Context) error {
	setLoggerLevel(ctx)
	if ctx.Args().Len() < 1 {
		return fmt.Errorf("PATH is needed")
	}
	b, err := bob.Open(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	defer b.Close()
	if _, err = os.Stdout.Write(b.Current()); err != nil {
		return err
	}
	return nil
}
