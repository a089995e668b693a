package arcs

import "sync"

type liveArc struct {
	arc  Arc
	geom Geometry
}

// Stats is a point-in-time snapshot of the animator.
type Stats struct {
	Live    int
	Queued  int
	Step    float64
	Retired uint64
}

// Animator owns the set of live arcs. Enqueue may be called from any
// goroutine; Advance and Render are called from the render loop.
type Animator struct {
	width, height int
	queue         Queue

	mu      sync.Mutex
	live    []liveArc
	step    float64
	retired uint64
}

func NewAnimator(width, height int) *Animator {
	return &Animator{
		width:  width,
		height: height,
		step:   StepSize(0),
	}
}

func (an *Animator) Size() (width, height int) { return an.width, an.height }

// Enqueue schedules arcs to start on the next Advance.
func (an *Animator) Enqueue(arcs ...Arc) {
	an.queue.Push(arcs...)
}

// Advance moves every live arc forward by the current step, retires the
// arcs that finished, starts the queued ones and recomputes the step from
// the new live count.
func (an *Animator) Advance() {
	pending := an.queue.Drain()

	an.mu.Lock()
	defer an.mu.Unlock()

	var done map[int]struct{}
	for i := range an.live {
		an.live[i].arc = Advance(an.live[i].arc, an.step)
		if IsDone(an.live[i].arc, an.live[i].geom) {
			if done == nil {
				done = make(map[int]struct{})
			}
			done[i] = struct{}{}
		}
	}

	if len(done) > 0 {
		kept := an.live[:0]
		for i, la := range an.live {
			if _, ok := done[i]; !ok {
				kept = append(kept, la)
			}
		}
		clear(an.live[len(kept):])
		an.live = kept
		an.retired += uint64(len(done))
	}

	for _, a := range pending {
		a.Phase = 0
		an.live = append(an.live, liveArc{arc: a, geom: NewGeometry(a.Src, a.Dst, an.width, an.height)})
	}

	an.step = StepSize(len(an.live))
}

// Render draws the live arcs, newest first.
func (an *Animator) Render(c Canvas) {
	an.mu.Lock()
	defer an.mu.Unlock()
	for i := len(an.live) - 1; i >= 0; i-- {
		Draw(c, an.live[i].arc, an.live[i].geom)
	}
}

func (an *Animator) Stats() Stats {
	queued := an.queue.Len()
	an.mu.Lock()
	defer an.mu.Unlock()
	return Stats{
		Live:    len(an.live),
		Queued:  queued,
		Step:    an.step,
		Retired: an.retired,
	}
}
