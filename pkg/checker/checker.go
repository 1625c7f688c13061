// Package checker watches the device's LEDs through a camera and verifies
// solid states and timed blink patterns against it, with an instant-replay
// buffer that saves an annotated clip whenever a verification fails.
package checker

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"keypad-hil/pkg/led"
	"keypad-hil/pkg/utils"
	"keypad-hil/pkg/vision"
)

var logger *zap.SugaredLogger

func init() {
	logger = utils.GetLogger()
}

const stopTimeout = 5 * time.Second

// Options configures a Checker. Zero fields fall back to the defaults below.
type Options struct {
	// Device is the capture source, either a v4l2 path or a numeric index.
	Device string

	Width  int
	Height int
	FPS    float64

	// Tolerance loosens duration checks both ways: minimum holds may fall
	// short by this much and maximum holds may run over by this much.
	Tolerance float64

	// PreRoll and PostRoll bound the replay clip around a failure, in
	// seconds of footage.
	PreRoll  float64
	PostRoll float64

	// OutputDir receives replay clips. Empty disables replay.
	OutputDir string

	Leds   []led.Config
	Layout [][]string
}

func (o Options) withDefaults() Options {
	if o.Device == "" {
		o.Device = "0"
	}
	if o.Width == 0 {
		o.Width = 640
	}
	if o.Height == 0 {
		o.Height = 480
	}
	if o.FPS == 0 {
		o.FPS = 15
	}
	if o.Tolerance == 0 {
		o.Tolerance = 0.1
	}
	if o.PreRoll == 0 {
		o.PreRoll = 7.0
	}
	if o.PostRoll == 0 {
		o.PostRoll = 5.0
	}
	if o.Leds == nil {
		o.Leds = led.DefaultConfigs()
	}
	if o.Layout == nil {
		o.Layout = DefaultKeypadLayout
	}
	return o
}

// Checker runs the capture loop and exposes the LED verification primitives.
type Checker struct {
	opts Options

	buf  *ring
	keys *keyTracker

	cam    *gocv.VideoCapture
	fps    float64
	pollMs time.Duration

	dimMu  sync.Mutex
	frameW int
	frameH int

	initialized atomic.Bool
	stopCh      chan struct{}
	doneCh      chan struct{}
	stopOnce    sync.Once

	replayMu       sync.Mutex
	replayArmed    bool
	replayMethod   string
	replayContext  []string
	replayDisabled bool
}

// New prepares a Checker without touching the camera. Call Start to begin
// capturing.
func New(opts Options) *Checker {
	opts = opts.withDefaults()
	return &Checker{
		opts:   opts,
		fps:    opts.FPS,
		pollMs: 5 * time.Millisecond,
		buf:    newRing(int(opts.PreRoll*opts.FPS + 0.5)),
		keys:   newKeyTracker(),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start opens the capture device, applies the requested format and spawns the
// sampling loop.
func (c *Checker) Start() error {
	for _, cfg := range c.opts.Leds {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("led config %q: %w", cfg.Name, err)
		}
	}

	cam, err := gocv.OpenVideoCapture(c.opts.Device)
	if err != nil {
		return fmt.Errorf("open capture device %s: %w", c.opts.Device, err)
	}
	cam.Set(gocv.VideoCaptureFrameWidth, float64(c.opts.Width))
	cam.Set(gocv.VideoCaptureFrameHeight, float64(c.opts.Height))
	cam.Set(gocv.VideoCaptureFPS, c.opts.FPS)

	if fps := cam.Get(gocv.VideoCaptureFPS); fps > 0 {
		c.fps = fps
	}
	c.cam = cam

	if c.opts.OutputDir != "" {
		if err := os.MkdirAll(c.opts.OutputDir, 0o755); err != nil {
			// Replay is best-effort. Verification still works without it.
			logger.Errorf("replay output dir %s: %v, replay disabled", c.opts.OutputDir, err)
			c.replayDisabled = true
		}
	} else {
		c.replayDisabled = true
	}

	c.initialized.Store(true)
	go c.loop()

	logger.Infof("checker started on %s (%dx%d @ %.1f fps, buffer %d frames)",
		c.opts.Device, c.opts.Width, c.opts.Height, c.fps, c.buf.lenCap())
	return nil
}

// Stop halts the capture loop, waits bounded for it to exit and releases the
// camera and buffered frames.
func (c *Checker) Stop() {
	c.stopOnce.Do(func() {
		c.initialized.Store(false)
		close(c.stopCh)
		select {
		case <-c.doneCh:
		case <-time.After(stopTimeout):
			logger.Warn("capture loop did not stop in time")
		}
		c.keys.stopAll()
		if c.cam != nil {
			c.cam.Close()
			c.cam = nil
		}
		c.buf.clear()
		logger.Info("checker stopped")
	})
}

func (c *Checker) loop() {
	defer close(c.doneCh)

	img := gocv.NewMat()
	defer img.Close()

	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		if ok := c.cam.Read(&img); !ok || img.Empty() {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		c.dimMu.Lock()
		if c.frameW == 0 {
			c.frameW = img.Cols()
			c.frameH = img.Rows()
		}
		c.dimMu.Unlock()

		states := make(led.State, len(c.opts.Leds))
		for _, cfg := range c.opts.Leds {
			if vision.Lit(img, cfg) {
				states[cfg.Name] = 1
			} else {
				states[cfg.Name] = 0
			}
		}

		c.buf.push(frame{
			at:     time.Now(),
			img:    img.Clone(),
			hasImg: true,
			states: states,
			keys:   c.keys.snapshot(),
		})
	}
}

// LatestState returns the most recently observed LED state.
func (c *Checker) LatestState() (led.State, time.Time, bool) {
	return c.buf.latestState()
}

// Tolerance reports the duration tolerance applied to all checks.
func (c *Checker) Tolerance() float64 {
	return c.opts.Tolerance
}

// LogKeyPress records a momentary key press so replay clips show it on the
// keypad overlay.
func (c *Checker) LogKeyPress(name string, hold time.Duration) {
	c.keys.flash(name, hold)
}

// StartKeyHold marks a persistent channel (usb3, connect) as active until
// StopKeyHold is called.
func (c *Checker) StartKeyHold(name string) {
	c.keys.hold(name)
}

func (c *Checker) StopKeyHold(name string) {
	c.keys.release(name)
}

func (c *Checker) frameDims() (int, int) {
	c.dimMu.Lock()
	defer c.dimMu.Unlock()
	return c.frameW, c.frameH
}

func (r *ring) lenCap() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}
