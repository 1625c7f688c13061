// The run tool exercises one keypad unit through the standard out-of-box
// scenario: power on, enroll credentials, lock/unlock round trips, power off.
// Every trigger outcome lands in a session summary file.
package main

import (
	"flag"
	"os"
	"time"

	"go.uber.org/zap"

	"keypad-hil/pkg/checker"
	"keypad-hil/pkg/device"
	"keypad-hil/pkg/dut"
	"keypad-hil/pkg/hardware"
	"keypad-hil/pkg/led"
	"keypad-hil/pkg/rig"
	"keypad-hil/pkg/session"
	"keypad-hil/pkg/utils"
)

var (
	configPath  = flag.String("config", "", "rig config file (toml)")
	summaryPath = flag.String("summary", "session.json", "session summary output file")
	seed        = flag.Int64("seed", 0, "pin generator seed, 0 uses the clock")

	logger *zap.SugaredLogger
)

func init() {
	logger = utils.GetLogger()
	flag.Parse()
}

func main() {
	defer logger.Sync()

	cfg, err := rig.Load(*configPath)
	if err != nil {
		logger.Fatal(err)
	}

	leds := led.DefaultConfigs()
	if cfg.Checker.LedFile != "" {
		if leds, err = led.LoadConfigs(cfg.Checker.LedFile); err != nil {
			logger.Fatal(err)
		}
	}

	chk := checker.New(checker.Options{
		Device:    cfg.Camera.Device,
		Width:     cfg.Camera.Width,
		Height:    cfg.Camera.Height,
		FPS:       cfg.Camera.FPS,
		Tolerance: cfg.Checker.Tolerance,
		PreRoll:   cfg.Checker.PreRoll,
		PostRoll:  cfg.Checker.PostRoll,
		OutputDir: cfg.Checker.OutputDir,
		Leds:      leds,
	})
	if err := chk.Start(); err != nil {
		logger.Fatal(err)
	}
	defer chk.Stop()

	sess := session.New(cfg.Device.Name)

	act, err := buildActuator(cfg, chk, sess)
	if err != nil {
		logger.Fatal(err)
	}
	defer act.Close()

	profile := dut.DefaultProfile()
	if cfg.Device.ProfilesFile != "" {
		profiles, err := dut.LoadProfiles(cfg.Device.ProfilesFile)
		if err != nil {
			logger.Fatal(err)
		}
		p, ok := profiles[cfg.Device.Profile]
		if !ok {
			logger.Fatalf("profile %q not found in %s", cfg.Device.Profile, cfg.Device.ProfilesFile)
		}
		profile = p
	}

	dev := dut.New(cfg.Device.Name, profile, cfg.Device.Battery, cfg.Device.Serial)
	drv, err := device.New(device.Config{
		DUT:      dev,
		Actuator: act,
		Verifier: chk,
		Enum:     &device.HostEnumerator{},
		Reporter: sess,
	})
	if err != nil {
		logger.Fatal(err)
	}

	runScenario(drv, dev, sess)

	if err := sess.WriteSummary(*summaryPath); err != nil {
		logger.Fatal(err)
	}
	if !sess.Passed() {
		logger.Errorf("session failed with %d failures", len(sess.Failures()))
		os.Exit(1)
	}
	logger.Info("session passed")
}

func buildActuator(cfg rig.Config, chk *checker.Checker, sess *session.Session) (hardware.Actuator, error) {
	var act hardware.Actuator
	if cfg.Hardware.Sim {
		logger.Info("using the simulated actuator")
		act = hardware.NewSim()
	} else {
		box, err := hardware.NewGPIOBox(cfg.Hardware.Config)
		if err != nil {
			return nil, err
		}
		act = box
	}
	// Recorded feeds the replay keypad overlay; Counted feeds the summary.
	return hardware.NewCounted(hardware.NewRecorded(act, chk), sess.CountKeyPress), nil
}

// runScenario walks the out-of-box flow. A blocked trigger does not abort the
// run; later steps document how far the unit diverged.
func runScenario(drv *device.Driver, dev *dut.Device, sess *session.Session) {
	gen := dut.NewGenerator(dev, pinSeed())

	fire := func(trigger string, fn func() (bool, error)) bool {
		from := drv.State()
		start := time.Now()
		ok, err := fn()
		detail := ""
		if err != nil {
			detail = err.Error()
		}
		sess.RecordStep(trigger, string(from), string(drv.State()), ok && err == nil, detail, time.Since(start))
		return ok && err == nil
	}
	flow := func(name string, fn func() error) bool {
		from := drv.State()
		start := time.Now()
		err := fn()
		detail := ""
		if err != nil {
			detail = err.Error()
		}
		sess.RecordStep(name, string(from), string(drv.State()), err == nil, detail, time.Since(start))
		return err == nil
	}

	if !fire("power_on", func() (bool, error) { return drv.PowerOn(true) }) {
		return
	}

	if drv.State() == device.StateOOB {
		adminPin, err := gen.Valid(dev.MinPINLength)
		if err != nil {
			sess.LogFailure(err.Error())
			return
		}
		if !flow("enroll_admin_pin", func() error { return drv.EnrollAdminPIN(adminPin.Keys()) }) {
			return
		}

		userPin, err := gen.Valid(dev.MinPINLength)
		if err != nil {
			sess.LogFailure(err.Error())
			return
		}
		flow("enroll_user_pin", func() error { return drv.EnrollUserPIN(userPin.Keys()) })
		fire("lock_admin", drv.LockAdmin)
	}

	fire("unlock_admin", drv.UnlockAdmin)
	fire("lock_admin", drv.LockAdmin)
	fire("power_off", drv.PowerOff)
}

func pinSeed() int64 {
	if *seed != 0 {
		return *seed
	}
	return time.Now().UnixNano()
}
