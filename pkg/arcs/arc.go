// Package arcs animates flows as dotted arcs between two points on the map.
//
// An arc travels from source to destination, blooms at the destination for a
// fixed window, then fades out. All transitions are pure functions of the arc
// value and its projected geometry; the Animator owns the set of live arcs.
package arcs

import (
	"math"

	"github.com/sudorandom/netflow-map/pkg/geo"
)

const (
	// ImpactWindow is the phase span the bloom stays at full size after arrival.
	ImpactWindow = 50.0
	// FadeRate is the alpha lost per phase unit while fading.
	FadeRate = 3.0
	// BloomShrinkRate is the diameter lost per phase unit while fading.
	BloomShrinkRate = 0.25
	// MinStepSize keeps arcs moving when the backlog is small.
	MinStepSize = 1.0
	// BacklogDivisor converts the live arc count into a step size.
	BacklogDivisor = 100.0
)

type State int

const (
	Traveling State = iota
	Impacting
	Fading
	Done
)

func (s State) String() string {
	switch s {
	case Traveling:
		return "traveling"
	case Impacting:
		return "impacting"
	case Fading:
		return "fading"
	case Done:
		return "done"
	default:
		return "invalid"
	}
}

type Arc struct {
	Src, Dst   geo.Point
	ImpactSize float64
	Phase      float64
}

// New creates an arc at phase 0. bytes must be positive.
func New(src, dst geo.Point, bytes int64) Arc {
	return Arc{Src: src, Dst: dst, ImpactSize: ImpactSize(bytes)}
}

// ImpactSize scales the bloom logarithmically with the flow's byte count.
func ImpactSize(bytes int64) float64 {
	if bytes <= 0 {
		return 0
	}
	return math.Log(float64(bytes)) * 0.25
}

// StepSize is the phase increment for one frame given the number of live
// arcs. A larger backlog plays back faster so the queue drains.
func StepSize(live int) float64 {
	return math.Max(MinStepSize, float64(live)/BacklogDivisor)
}

// Advance returns the arc moved forward by step. Negative steps are ignored
// so the phase never decreases.
func Advance(a Arc, step float64) Arc {
	if step > 0 {
		a.Phase += step
	}
	return a
}

// fadeProgress is how far into the fade the arc is, or 0 before fading.
func fadeProgress(a Arc, g Geometry) float64 {
	return math.Max(0, a.Phase-(g.Length+ImpactWindow))
}

// Alpha is the opacity used for labels and fading shapes.
func Alpha(a Arc, g Geometry) float64 {
	return 255 - fadeProgress(a, g)*FadeRate
}

// BloomDiameter is the size of the impact circle for the arc's phase.
// It is zero while the arc is still traveling.
func BloomDiameter(a Arc, g Geometry) float64 {
	if a.Phase <= g.Length {
		return 0
	}
	d := a.ImpactSize*float64(g.Width)/160 - fadeProgress(a, g)*BloomShrinkRate
	return math.Max(0, d)
}

func StateOf(a Arc, g Geometry) State {
	switch {
	case g.Length == 0:
		return Done
	case a.Phase <= g.Length:
		return Traveling
	case a.Phase <= g.Length+ImpactWindow:
		return Impacting
	case Alpha(a, g) > 0:
		return Fading
	default:
		return Done
	}
}

func IsDone(a Arc, g Geometry) bool {
	return StateOf(a, g) == Done
}
