// The record tool dumps the raw camera feed to an AVI file, used when setting
// up a rig to confirm LED framing before calibration.
package main

import (
	"context"
	"flag"
	"time"

	"go.uber.org/zap"

	"keypad-hil/pkg/camera"
	"keypad-hil/pkg/utils"
	"keypad-hil/pkg/video"
)

var (
	devName = flag.String("device", camera.DefaultDevice, "v4l2 device")
	width   = flag.Int("width", 640, "frame width")
	height  = flag.Int("height", 480, "frame height")
	fps     = flag.Int("fps", camera.DefaultFPS, "frames per second")
	seconds = flag.Int("seconds", 10, "recording length")
	out     = flag.String("out", "feed.avi", "output file")

	logger *zap.SugaredLogger
)

func init() {
	logger = utils.GetLogger()
	flag.Parse()
}

func main() {
	defer logger.Sync()

	cam, err := camera.Open(*devName, *width, *height, *fps)
	if err != nil {
		logger.Fatal(err)
	}
	defer cam.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(*seconds)*time.Second)
	defer cancel()

	frames, err := cam.Start(ctx)
	if err != nil {
		logger.Fatal(err)
	}

	builder, err := video.NewBuilder(*out, *width, *height, *fps)
	if err != nil {
		logger.Fatal(err)
	}
	defer builder.Close()

	logger.Infof("recording %ds from %s to %s", *seconds, *devName, *out)
	for frame := range frames {
		if len(frame) == 0 {
			continue
		}
		if err := builder.Add(frame); err != nil {
			logger.Errorf("add frame: %v", err)
		}
	}
	logger.Infof("wrote %d frames to %s", builder.Frames(), *out)
}
