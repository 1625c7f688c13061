// Package video builds MJPEG AVI files from raw JPEG camera frames. The
// calibration record tool uses it; failure replays go through the checker's
// own writer instead.
package video

import (
	"fmt"

	"github.com/icza/mjpeg"
)

type Builder struct {
	width  int
	height int
	fps    int

	frames int
	aw     mjpeg.AviWriter
}

func NewBuilder(path string, width, height, fps int) (*Builder, error) {
	aw, err := mjpeg.New(path, int32(width), int32(height), int32(fps))
	if err != nil {
		return nil, fmt.Errorf("create avi %s: %w", path, err)
	}
	return &Builder{
		width:  width,
		height: height,
		fps:    fps,
		aw:     aw,
	}, nil
}

// Add appends one JPEG frame.
func (b *Builder) Add(frame []byte) error {
	if err := b.aw.AddFrame(frame); err != nil {
		return err
	}
	b.frames++
	return nil
}

func (b *Builder) Close() error {
	return b.aw.Close()
}

// Frames reports how many frames were written.
func (b *Builder) Frames() int {
	return b.frames
}
