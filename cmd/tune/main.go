// The tune tool lists a camera's V4L2 controls or applies a settings file,
// pinning exposure and white balance so LED hues stay stable across runs.
package main

import (
	"flag"
	"fmt"

	"go.uber.org/zap"

	"keypad-hil/pkg/camera"
	"keypad-hil/pkg/utils"
)

var (
	devName  = flag.String("device", camera.DefaultDevice, "v4l2 device")
	settings = flag.String("settings", "", "settings file (json, control id -> value); empty applies the defaults")
	list     = flag.Bool("list", false, "list controls instead of applying settings")

	logger *zap.SugaredLogger
)

func init() {
	logger = utils.GetLogger()
	flag.Parse()
}

func main() {
	defer logger.Sync()

	cam, err := camera.Open(*devName, 320, 240, camera.DefaultFPS)
	if err != nil {
		logger.Fatal(err)
	}
	defer cam.Close()

	if *list {
		ctrls, err := cam.Controls()
		if err != nil {
			logger.Fatal(err)
		}
		for _, ctrl := range ctrls {
			fmt.Println(camera.CtrlString(ctrl))
		}
		return
	}

	s := camera.DefaultSettings()
	if *settings != "" {
		if s, err = camera.LoadSettings(*settings); err != nil {
			logger.Fatal(err)
		}
	}
	if err := cam.Apply(s); err != nil {
		logger.Fatal(err)
	}
}
