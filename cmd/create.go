package main

import (
	"fmt"

	"BobFS/pkg/bob"
	"BobFS/pkg/utils"

	"github.com/urfave/cli/v2"
)

func createFlags() *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "create an empty container file",
		ArgsUsage: "PATH",
		Action:    create,
		Flags: []cli.Flag{
			&cli.Uint64Flag{
				Name:  "blocksize",
				Usage: "block size in bytes (0 means probe the filesystem)",
			},
			&cli.Uint64Flag{
				Name:  "cuesize",
				Usage: "cue size in bytes (0 means 32 x block size)",
			},
		},
	}
}

func create(ctx *cli.Context) error {
	setLoggerLevel(ctx)
	if ctx.Args().Len() < 1 {
		return fmt.Errorf("PATH is needed")
	}
	path := ctx.Args().Get(0)
	if utils.Exists(path) {
		return fmt.Errorf("%s already exists", path)
	}
	cfg := &bob.Config{
		BlockSize: ctx.Uint64("blocksize"),
		CueSize:   ctx.Uint64("cuesize"),
	}
	b, err := bob.Create(cfg, path)
	if err != nil {
		return err
	}
	logger.Infof("created %s (block size %d, cue size %d)", path, b.BlockSize(), b.CueSize())
	return b.Close()
}
