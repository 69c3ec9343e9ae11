package main

import (
	"encoding/json"
	"fmt"

	"BobFS/pkg/bob"
	"BobFS/pkg/sys"

	"github.com/urfave/cli/v2"
	"golang.org/x/sys/unix"
)

type containerInfo struct {
	Path           string
	BlockSize      int
	CueSize        int
	ObjectLength   int
	LogicalSize    int64
	AllocatedBytes int64
}

func printJson(v interface{}) {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logger.Fatalf("json: %s", err)
	}
	fmt.Println(string(output))
}

func infoFlags() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "show geometry and usage of a container file",
		ArgsUsage: "PATH",
		Action:    info,
	}
}

func info(ctx *cli.Context) error {
	setLoggerLevel(ctx)
	if ctx.Args().Len() < 1 {
		return fmt.Errorf("PATH is needed")
	}
	path := ctx.Args().Get(0)
	b, err := bob.Open(path)
	if err != nil {
		return err
	}
	defer b.Close()

	fd, err := sys.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		return err
	}
	var st unix.Stat_t
	err = sys.Fstat(fd, &st)
	_ = sys.Close(fd)
	if err != nil {
		return err
	}

	printJson(&containerInfo{
		Path:           path,
		BlockSize:      b.BlockSize(),
		CueSize:        b.CueSize(),
		ObjectLength:   b.Len(),
		LogicalSize:    st.Size,
		AllocatedBytes: st.Blocks * 512,
	})
	return nil
}
