// Package render shows the animated arcs in an ebiten window.
package render

import (
	"bytes"
	"context"
	"image"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/sudorandom/netflow-map/pkg/arcs"
	"github.com/sudorandom/netflow-map/pkg/ingest"
	"github.com/sudorandom/netflow-map/pkg/logging"
	"github.com/sudorandom/netflow-map/pkg/metrics"
)

// Game implements ebiten.Game on top of an arcs.Animator.
type Game struct {
	ctx           context.Context
	animator      *arcs.Animator
	width, height int

	background *ebiten.Image
	backdrop   image.Image
	labelFace  *text.GoTextFace
	monoSource *text.GoTextFaceSource

	status   func() ingest.Status
	metrics  *metrics.Collector
	capture  *capturer
	logger   *logging.ComponentLogger
	showHUD  bool
	lastTick time.Time
}

type Option func(*Game)

// WithBackground sets the image drawn under the arcs.
func WithBackground(img image.Image) Option {
	return func(g *Game) { g.backdrop = img }
}

// WithStatus feeds the poller state into the HUD.
func WithStatus(fn func() ingest.Status) Option {
	return func(g *Game) { g.status = fn }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(g *Game) { g.metrics = m }
}

func WithLogger(l *logging.ComponentLogger) Option {
	return func(g *Game) { g.logger = l }
}

// WithCapture saves a PNG of the screen into dir every interval.
func WithCapture(dir string, interval time.Duration) Option {
	return func(g *Game) {
		if dir != "" {
			g.capture = &capturer{dir: dir, interval: interval}
		}
	}
}

// WithHUD toggles the statistics box.
func WithHUD(show bool) Option {
	return func(g *Game) { g.showHUD = show }
}

// NewGame creates the game. The window closes once ctx is cancelled.
func NewGame(ctx context.Context, animator *arcs.Animator, opts ...Option) (*Game, error) {
	regular, err := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
	if err != nil {
		return nil, err
	}
	mono, err := text.NewGoTextFaceSource(bytes.NewReader(gomono.TTF))
	if err != nil {
		return nil, err
	}

	w, h := animator.Size()
	g := &Game{
		ctx:        ctx,
		animator:   animator,
		width:      w,
		height:     h,
		labelFace:  &text.GoTextFace{Source: regular, Size: arcs.LabelSize},
		monoSource: mono,
		logger:     logging.Nop(),
		showHUD:    true,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.capture != nil {
		g.capture.logger = g.logger
	}
	return g, nil
}

func (g *Game) Update() error {
	if g.ctx.Err() != nil {
		return ebiten.Termination
	}
	if ebiten.IsKeyPressed(ebiten.KeyH) && time.Since(g.lastTick) > 250*time.Millisecond {
		g.showHUD = !g.showHUD
		g.lastTick = time.Now()
	}

	g.animator.Advance()
	s := g.animator.Stats()
	g.metrics.SetAnimator(s.Live, s.Queued, s.Step)
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.background == nil && g.backdrop != nil {
		g.background = ebiten.NewImageFromImage(g.backdrop)
	}
	if g.background != nil {
		screen.DrawImage(g.background, nil)
	}

	g.animator.Render(&screenCanvas{dst: screen, face: g.labelFace})

	if g.showHUD {
		g.drawHUD(screen)
	}

	if now := time.Now(); g.capture.due(now) {
		g.capture.capture(screen, now)
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) { return g.width, g.height }
