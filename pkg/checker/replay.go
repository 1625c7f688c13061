package checker

import (
	"fmt"
	"path/filepath"
	"time"

	"gocv.io/x/gocv"

	"keypad-hil/pkg/utils"
	"keypad-hil/pkg/vision"
)

const replayFourCC = "mp4v"

// armReplay marks the continuous buffer as covering an active verification.
// Arming while already armed is a no-op so composed checks keep the outermost
// context.
func (c *Checker) armReplay(method string, o Opts) {
	c.replayMu.Lock()
	defer c.replayMu.Unlock()
	if c.replayDisabled || c.replayArmed {
		return
	}
	c.replayArmed = true
	c.replayMethod = method

	var lines []string
	if o.Current != "" {
		lines = append(lines, "current state: "+o.Current)
	}
	if o.Dest != "" {
		lines = append(lines, "destination state: "+o.Dest)
	}
	c.replayContext = lines
}

// disarmReplay finishes the armed window. On failure it snapshots the
// pre-roll footage, keeps recording for the post-roll window and writes the
// annotated clip.
func (c *Checker) disarmReplay(res Result) {
	c.replayMu.Lock()
	defer c.replayMu.Unlock()
	if c.replayDisabled || !c.replayArmed {
		return
	}
	method, lines := c.replayMethod, c.replayContext
	c.replayArmed = false
	c.replayMethod = ""
	c.replayContext = nil

	if res.OK {
		return
	}

	preRoll := c.buf.snapshot()
	logger.Infof("verification failed (%s), saving replay with %d pre-roll frames", res.Detail, len(preRoll))

	frames := append(preRoll, c.recordPostRoll()...)
	defer func() {
		for i := range frames {
			frames[i].release()
		}
	}()

	lines = append(lines, "check: "+method, "failed: "+res.Detail)
	c.saveReplay(frames, method, lines)
}

// recordPostRoll keeps pulling frames from the live buffer for the post-roll
// window, deduplicated by capture timestamp.
func (c *Checker) recordPostRoll() []frame {
	interval := utils.SecToDuration(1.0 / c.fps)
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	deadline := time.Now().Add(utils.SecToDuration(c.opts.PostRoll))

	var out []frame
	var lastAt time.Time
	for time.Now().Before(deadline) {
		f, ok := c.buf.latestClone()
		if ok && !f.at.Equal(lastAt) {
			lastAt = f.at
			out = append(out, f)
		} else if ok {
			f.release()
		}
		time.Sleep(interval)
	}
	logger.Debugf("replay: captured %d post-roll frames", len(out))
	return out
}

func (c *Checker) saveReplay(frames []frame, method string, lines []string) {
	w, h := c.frameDims()
	if w == 0 {
		for _, f := range frames {
			if f.hasImg {
				w, h = f.img.Cols(), f.img.Rows()
				break
			}
		}
	}
	if w == 0 {
		logger.Warn("replay: no image frames buffered, nothing to save")
		return
	}

	name := fmt.Sprintf("replay_%s_%s.mp4", time.Now().Format("15-04-05"), method)
	path := filepath.Join(c.opts.OutputDir, name)

	writer, err := gocv.VideoWriterFile(path, replayFourCC, c.fps, w, h, true)
	if err != nil {
		logger.Errorf("replay: open writer %s: %v", path, err)
		return
	}
	defer writer.Close()

	written := 0
	for _, f := range frames {
		if !f.hasImg {
			continue
		}
		img, resized := vision.ResizeTo(f.img, w, h)
		vision.DrawContext(&img, lines)
		vision.DrawKeypad(&img, c.opts.Layout, f.keys)
		vision.DrawLEDMarkers(&img, c.opts.Leds, f.states)
		if err := writer.Write(img); err != nil {
			logger.Errorf("replay: write frame: %v", err)
		} else {
			written++
		}
		if resized {
			img.Close()
		}
	}
	logger.Infof("replay saved: %s (%d frames)", path, written)
}
