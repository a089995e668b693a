package render

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/sudorandom/netflow-map/pkg/logging"
)

// capturer writes a PNG of the screen at most once per interval.
type capturer struct {
	dir      string
	interval time.Duration
	last     time.Time
	logger   *logging.ComponentLogger
}

func (c *capturer) due(now time.Time) bool {
	if c == nil || c.dir == "" {
		return false
	}
	return c.last.IsZero() || now.Sub(c.last) >= c.interval
}

func frameName(ts time.Time) string {
	return fmt.Sprintf("netflow-%s.png", ts.Format("20060102-150405"))
}

// capture copies the pixels on the render goroutine and encodes them on another.
func (c *capturer) capture(img *ebiten.Image, now time.Time) {
	c.last = now
	rgba := image.NewRGBA(img.Bounds())
	img.ReadPixels(rgba.Pix)
	path := filepath.Join(c.dir, frameName(now))
	go func() {
		if err := writePNG(path, rgba); err != nil {
			c.logger.Error().Err(err).Str("path", path).Msg("Frame capture failed")
			return
		}
		c.logger.Info().Str("path", path).Msg("Captured frame")
	}()
}

func writePNG(path string, img image.Image) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating capture directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating capture file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("error closing capture file: %w", cerr)
		}
	}()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("error encoding capture: %w", err)
	}
	return nil
}
