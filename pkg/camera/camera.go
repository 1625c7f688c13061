// Package camera wraps the V4L2 capture device used to film the keypad, for
// the calibration tools: raw feed dumps and hardware control tuning. The
// verification path reads frames through the checker, not through this
// package.
package camera

import (
	"context"
	"fmt"
	"sync"

	"github.com/vladimirvivien/go4vl/device"
	"github.com/vladimirvivien/go4vl/v4l2"
	"go.uber.org/zap"

	"keypad-hil/pkg/utils"
)

var logger *zap.SugaredLogger

func init() {
	logger = utils.GetLogger()
}

const (
	DefaultDevice = "/dev/video0"
	DefaultFPS    = 15
)

// Camera owns one open V4L2 device.
type Camera struct {
	devName string

	lock sync.Mutex
	dev  *device.Device
}

// Open opens the device for JPEG capture at the given size.
func Open(devName string, width, height, fps int) (*Camera, error) {
	if devName == "" {
		devName = DefaultDevice
	}
	if fps <= 0 {
		fps = DefaultFPS
	}
	dev, err := device.Open(
		devName,
		device.WithBufferSize(1),
		device.WithFPS(uint32(fps)),
		device.WithPixFormat(v4l2.PixFormat{
			PixelFormat: v4l2.PixelFmtJPEG,
			Width:       uint32(width),
			Height:      uint32(height),
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("open camera %s: %w", devName, err)
	}
	return &Camera{devName: devName, dev: dev}, nil
}

// Start begins streaming; frames arrive on the returned channel until the
// context is cancelled.
func (c *Camera) Start(ctx context.Context) (<-chan []byte, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if err := c.dev.Start(ctx); err != nil {
		return nil, fmt.Errorf("start camera %s: %w", c.devName, err)
	}
	return c.dev.GetOutput(), nil
}

func (c *Camera) Close() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.dev.Close()
}

// Controls queries every extended control the device exposes.
func (c *Camera) Controls() ([]v4l2.Control, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	ctrls, err := v4l2.QueryAllExtControls(c.dev.Fd())
	if err != nil {
		return nil, fmt.Errorf("query controls on %s: %w", c.devName, err)
	}
	return ctrls, nil
}

// Apply pushes a settings map onto the device. Unsupported controls are
// logged and skipped; fixing exposure and white balance on a partially
// capable camera is still worth doing.
func (c *Camera) Apply(s Settings) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	applied := 0
	for id, value := range s {
		if err := c.dev.SetControlValue(id, value); err != nil {
			logger.Warnf("set ctrl(%d) to %d: %v", id, value, err)
			continue
		}
		applied++
	}
	logger.Infof("applied %d/%d camera controls on %s", applied, len(s), c.devName)
	return nil
}
