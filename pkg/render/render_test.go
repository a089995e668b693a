package render

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/sudorandom/netflow-map/pkg/arcs"
	"github.com/sudorandom/netflow-map/pkg/ingest"
)

func TestHUDLines(t *testing.T) {
	stats := arcs.Stats{Live: 250, Queued: 3, Step: 2.5}
	ts := time.Date(2024, 5, 1, 13, 14, 15, 0, time.UTC)

	tests := []struct {
		name   string
		status ingest.Status
		want   []string
		alert  bool
	}{
		{"waiting", ingest.Status{}, []string{"250", "3", "2.50", "-", "waiting"}, false},
		{"ok", ingest.Status{Watermark: ts.UnixMilli(), LastPoll: ts}, []string{"250", "3", "2.50", "13:14:15", "ok"}, false},
		{"error", ingest.Status{Watermark: ts.UnixMilli(), LastPoll: ts, LastError: "refused"}, []string{"250", "3", "2.50", "13:14:15", "retrying"}, true},
	}
	for _, tt := range tests {
		lines := hudLines(stats, tt.status, time.UTC)
		if len(lines) != len(tt.want) {
			t.Fatalf("%s: %d lines; want %d", tt.name, len(lines), len(tt.want))
		}
		for i, want := range tt.want {
			if lines[i].value != want {
				t.Errorf("%s: %s = %q; want %q", tt.name, lines[i].label, lines[i].value, want)
			}
		}
		if last := lines[len(lines)-1]; last.alert != tt.alert {
			t.Errorf("%s: alert = %v; want %v", tt.name, last.alert, tt.alert)
		}
	}
}

func TestCapturerDue(t *testing.T) {
	var none *capturer
	if none.due(time.Now()) {
		t.Errorf("nil capturer should never be due")
	}

	c := &capturer{dir: "frames", interval: time.Minute}
	now := time.Now()
	if !c.due(now) {
		t.Errorf("Expected the first frame to be due")
	}
	c.last = now
	if c.due(now.Add(30 * time.Second)) {
		t.Errorf("Expected no capture within the interval")
	}
	if !c.due(now.Add(time.Minute)) {
		t.Errorf("Expected a capture after the interval")
	}
}

func TestFrameName(t *testing.T) {
	ts := time.Date(2024, 5, 1, 13, 14, 15, 0, time.UTC)
	if got := frameName(ts); got != "netflow-20240501-131415.png" {
		t.Errorf("frameName = %s", got)
	}
}

func TestWritePNG(t *testing.T) {
	dir, err := os.MkdirTemp("", "render-capture-*")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	img.SetRGBA(1, 1, color.RGBA{0, 255, 0, 255})
	path := filepath.Join(dir, "nested", frameName(time.Now()))
	if err := writePNG(path, img); err != nil {
		t.Fatalf("writePNG failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatalf("capture is not a PNG: %v", err)
	}
	if r, g, _, _ := decoded.At(1, 1).RGBA(); r != 0 || g != 0xffff {
		t.Errorf("Unexpected pixel in capture")
	}
}

func TestGameLifecycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	an := arcs.NewAnimator(1280, 700)
	g, err := NewGame(ctx, an, WithCapture("", time.Minute), WithHUD(false))
	if err != nil {
		t.Fatalf("NewGame failed: %v", err)
	}
	if w, h := g.Layout(100, 100); w != 1280 || h != 700 {
		t.Errorf("Layout = %dx%d; want 1280x700", w, h)
	}
	if g.capture != nil {
		t.Errorf("Expected capture to stay disabled without a directory")
	}

	cancel()
	if err := g.Update(); !errors.Is(err, ebiten.Termination) {
		t.Errorf("Update after cancel = %v; want ebiten.Termination", err)
	}
}
