package main

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"BobFS/pkg/bob"
	"BobFS/pkg/utils"

	"github.com/juju/ratelimit"
	"github.com/urfave/cli/v2"
)

func benchFlags() *cli.Command {
	return &cli.Command{
		Name:      "bench",
		Usage:     "measure repeated object replacement on a scratch container",
		ArgsUsage: "DIR",
		Action:    bench,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "count",
				Value: 1000,
				Usage: "number of replacements",
			},
			&cli.IntFlag{
				Name:  "size",
				Value: 4096,
				Usage: "object size in bytes",
			},
			&cli.Int64Flag{
				Name:  "bps",
				Usage: "limit write rate in bytes per second",
			},
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

func bench(ctx *cli.Context) error {
	setLoggerLevel(ctx)
	if ctx.Args().Len() < 1 {
		return fmt.Errorf("DIR is needed")
	}
	count := ctx.Int("count")
	size := ctx.Int("size")
	if count <= 0 || size < 0 {
		return fmt.Errorf("count must be positive and size non-negative")
	}

	path := filepath.Join(ctx.Args().Get(0), fmt.Sprintf("bench-%d.bob", os.Getpid()))
	cfg := &bob.Config{
		BlockSize: ctx.Uint64("blocksize"),
		CueSize:   ctx.Uint64("cuesize"),
	}
	b, err := bob.Create(cfg, path)
	if err != nil {
		return err
	}
	defer func() {
		_ = b.Close()
		_ = os.Remove(path)
	}()
	logger.Infof("benchmarking %s (block size %d, cue size %d)", path, b.BlockSize(), b.CueSize())

	var bucket *ratelimit.Bucket
	if bps := ctx.Int64("bps"); bps > 0 {
		bucket = ratelimit.NewBucketWithRate(float64(bps), bps)
	}

	payload := make([]byte, size)
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

	progress, bar := utils.NewDynProgressBar("replacing object: ", ctx.Bool("quiet"))
	bar.SetTotal(int64(count), false)

	start := time.Now()
	for i := 0; i < count; i++ {
		rnd.Read(payload)
		if bucket != nil {
			bucket.Wait(int64(len(payload)))
		}
		if err = b.Set(payload); err != nil {
			return err
		}
		bar.Increment()
	}
	if err = b.Flush(); err != nil {
		return err
	}
	elapsed := time.Since(start)
	bar.SetTotal(0, true)
	progress.Wait()

	written := int64(count) * int64(size)
	logger.Infof("%d replacements of %d bytes in %s (%.1f MiB/s)",
		count, size, elapsed.Round(time.Millisecond),
		float64(written)/1048576/elapsed.Seconds())
	return nil
}
