package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/CameronBrooks11/CRUMBS/pkg/comm"
	"github.com/CameronBrooks11/CRUMBS/pkg/comm/mqtt"
	"github.com/CameronBrooks11/CRUMBS/pkg/comm/stream"
	"github.com/CameronBrooks11/CRUMBS/pkg/env"
	"github.com/CameronBrooks11/CRUMBS/pkg/run"
)

//go-build: CGO_ENABLED=0

var (
	devicePath string
	sliceID    uint
)

func init() {
	env.SetupFlags()
	flag.StringVar(&devicePath, "device", devicePath, "Path of the bus adapter device.")
	flag.UintVar(&sliceID, "slice", sliceID, "Slice ID behind the device.")
}

func main() {
	flag.Parse()

	if devicePath == "" {
		log.Fatalln("-device required")
	}
	if sliceID > 255 {
		log.Fatalln("-slice must be 0-255")
	}

	dev, err := os.OpenFile(devicePath, os.O_RDWR, 0)
	if err != nil {
		log.Fatalln(err)
	}

	q := env.Default().MustNewQueue("crumbsbridge")
	rw := mqtt.NewPacketReadWriter(q).ForSlice(uint8(sliceID))
	bridge := &comm.Bridge{A: stream.New(dev), B: rw}

	runner := run.NewRunner().HandleSignals()
	runner.Go(
		run.NamedRun("mqtt", rw),
		// closing the device is the only way to abort a blocked read
		run.NamedRun("bridge", run.RunnableFunc(func(ctx context.Context) error {
			return run.RunWithContextCloser(ctx, dev, func() error {
				return bridge.Run(ctx)
			})
		})),
	)

	token := q.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		log.Fatalln(err)
	}
	defer q.Close()

	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}
