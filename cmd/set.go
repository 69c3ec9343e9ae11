package main

import (
	"fmt"
	"io"
	"os"

	"BobFS/pkg/bob"

	"github.com/urfave/cli/v2"
)

func setFlags() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "replace the stored object",
		ArgsUsage: "PATH",
		Action:    set,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "read the new object from this file instead of stdin",
			},
		},
	}
}

func set(ctx *cli.Context) error {
	setLoggerLevel(ctx)
	if ctx.Args().Len() < 1 {
		return fmt.Errorf("PATH is needed")
	}
	var data []byte
	var err error
	if input := ctx.String("input"); input != "" {
		data, err = os.ReadFile(input)
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return err
	}
	b, err := bob.Open(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	if err = b.Set(data); err != nil {
		_ = b.Close()
		return err
	}
	logger.Infof("stored %d bytes", len(data))
	return b.Close()
}
