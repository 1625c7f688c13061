package main

import (
	"context"
	"flag"
	"net/http"
	"sync"
	"time"

	"github.com/beevik/ntp"
	"github.com/gin-gonic/gin"
	"github.com/vincent-vinf/go-jsend"
	"go.uber.org/zap"

	"keypad-hil/pkg/checker"
	"keypad-hil/pkg/led"
	"keypad-hil/pkg/rig"
	"keypad-hil/pkg/store"
	"keypad-hil/pkg/utils"
	"keypad-hil/pkg/utils/ps"
	"keypad-hil/pkg/webdav"
)

const (
	webDavStart    = "start"
	webDavShutdown = "shutdown"
)

var (
	configPath = flag.String("config", "", "rig config file (toml)")

	cancelWebdav context.CancelFunc
	cancelLock   sync.Mutex

	cfg rig.Config
	chk *checker.Checker
	stg *store.Store

	logger *zap.SugaredLogger
)

func init() {
	logger = utils.GetLogger()
	flag.Parse()
}

func main() {
	defer logger.Sync()
	defer func() {
		if cancelWebdav != nil {
			cancelWebdav()
		}
	}()
	var err error

	cfg, err = rig.Load(*configPath)
	if err != nil {
		logger.Fatal(err)
	}

	logClockOffset(cfg.Server.NTPServer)

	stg, err = store.New(cfg.Checker.OutputDir)
	if err != nil {
		logger.Fatal(err)
	}
	if cfg.Store.BudgetBytes > 0 {
		if _, err := stg.Prune(cfg.Store.BudgetBytes); err != nil {
			logger.Warnf("prune replay store: %v", err)
		}
	}

	leds := led.DefaultConfigs()
	if cfg.Checker.LedFile != "" {
		if leds, err = led.LoadConfigs(cfg.Checker.LedFile); err != nil {
			logger.Fatal(err)
		}
	}

	chk = checker.New(checker.Options{
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

	// init gin
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(utils.Cors())
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, jsend.SimpleErr("page not found"))
	})

	apiRouter := r.Group("/api")
	apiRouter.GET("/status", getStatus)
	apiRouter.GET("/leds", getLeds)
	apiRouter.GET("/replays", listReplays)
	apiRouter.GET("/replays/:name", getReplay)
	apiRouter.PUT("/webdav", ctlWebdav)

	utils.ListenAndServe(r, cfg.Server.Port)
}

// logClockOffset sanity-checks the rig clock once at startup. Replay names
// and session summaries embed wall-clock time, so a large drift is worth a
// loud note in the log.
func logClockOffset(server string) {
	if server == "" {
		return
	}
	resp, err := ntp.Query(server)
	if err != nil {
		logger.Warnf("ntp query %s: %v", server, err)
		return
	}
	if err := resp.Validate(); err != nil {
		logger.Warnf("ntp response from %s invalid: %v", server, err)
		return
	}
	if off := resp.ClockOffset; off > time.Second || off < -time.Second {
		logger.Warnf("rig clock is off by %v from %s", off, server)
	} else {
		logger.Infof("rig clock offset %v from %s", off, server)
	}
}

func getStatus(c *gin.Context) {
	type status struct {
		CPU      ps.CPU    `json:"cpu"`
		Memory   ps.Memory `json:"memory"`
		Disk     ps.Disk   `json:"disk"`
		Replays  int       `json:"replays"`
		Usage    string    `json:"replayUsage"`
		ReplayAt string    `json:"replayDir"`
	}

	cpu, err := ps.CPUStatus()
	if err != nil {
		internalErr(c, err)
		return
	}
	memory, err := ps.MemoryStatus()
	if err != nil {
		internalErr(c, err)
		return
	}
	disk, err := ps.DiskStatus(stg.Dir())
	if err != nil {
		internalErr(c, err)
		return
	}
	clips, err := stg.List()
	if err != nil {
		internalErr(c, err)
		return
	}
	_, usage, err := stg.Usage()
	if err != nil {
		internalErr(c, err)
		return
	}

	c.JSON(http.StatusOK, jsend.Success(status{
		CPU:      cpu,
		Memory:   memory,
		Disk:     disk,
		Replays:  len(clips),
		Usage:    usage,
		ReplayAt: stg.Dir(),
	}))
}

func getLeds(c *gin.Context) {
	state, at, ok := chk.LatestState()
	if !ok {
		c.JSON(http.StatusOK, jsend.SimpleErr("no frames observed yet"))
		return
	}
	c.JSON(http.StatusOK, jsend.Success(gin.H{
		"state":      state,
		"observedAt": at,
		"ageSeconds": time.Since(at).Seconds(),
	}))
}

func listReplays(c *gin.Context) {
	clips, err := stg.List()
	if err != nil {
		internalErr(c, err)
		return
	}
	c.JSON(http.StatusOK, jsend.Success(clips))
}

func getReplay(c *gin.Context) {
	path, err := stg.Path(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, jsend.SimpleErr(err.Error()))
		return
	}
	c.File(path)
}

func ctlWebdav(c *gin.Context) {
	op := c.Query("op")
	switch op {
	case webDavStart:
		startWebdav(c)
	case webDavShutdown:
		shutdownWebdav(c)
	default:
		c.JSON(http.StatusBadRequest, jsend.SimpleErr("unknown operation"))
	}
}

func startWebdav(c *gin.Context) {
	cancelLock.Lock()
	defer cancelLock.Unlock()
	if cancelWebdav != nil {
		c.JSON(http.StatusOK, jsend.Success("the webdav service is already enabled"))
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	webdav.Serve(ctx, cfg.Server.WebdavPort, stg.Dir())
	cancelWebdav = cancel
	c.JSON(http.StatusOK, jsend.Success(c.Request.Host))
}

func shutdownWebdav(c *gin.Context) {
	cancelLock.Lock()
	defer cancelLock.Unlock()
	if cancelWebdav == nil {
		c.JSON(http.StatusOK, jsend.SimpleErr("the webdav service has been shut down"))
		return
	}
	cancelWebdav()
	cancelWebdav = nil

	c.JSON(http.StatusOK, jsend.Success(nil))
}

func internalErr(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, jsend.SimpleErr(err.Error()))
}
