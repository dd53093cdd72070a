// Package animation runs the per-surface render loops. Each surface
// gets its own goroutine and frame counter; redraws are throttled to
// the target rate even though the underlying tick fires faster.
package animation

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vinayprograms/agentcam/internal/logging"
)

// RenderFunc presents one frame for a surface. It receives the
// surface's current frame counter.
type RenderFunc func(frame int64)

// frameOffsetRange bounds the random starting frame, so surfaces
// started together are not visually synchronized.
const frameOffsetRange = 1000

// tickRate is how often a loop wakes up. Faster than the redraw rate;
// the loop skips redraws until enough wall-clock time has passed.
const tickRate = 60

// Driver owns the registry of running loops, keyed by surface ID.
type Driver struct {
	mu    sync.Mutex
	fps   int
	rng   *rand.Rand
	loops map[string]*loop
	log   *logging.Logger
}

type loop struct {
	id      string
	surface string
	seed    int64
	frame   int64
	done    chan struct{}
	once    sync.Once
}

func (l *loop) stop() {
	l.once.Do(func() { close(l.done) })
}

// NewDriver creates a driver that redraws at most fps times per second
// per surface.
func NewDriver(fps int, logger *logging.Logger) *Driver {
	if fps <= 0 {
		fps = 15
	}
	if logger == nil {
		logger = logging.New()
	}
	return &Driver{
		fps:   fps,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		loops: make(map[string]*loop),
		log:   logger.WithComponent("animation"),
	}
}

// Start begins a loop for the surface and returns its handle ID.
// Starting a surface that is already running replaces its loop; the
// old loop's next tick sees it is no longer registered and exits.
func (d *Driver) Start(surface string, seed int64, render RenderFunc) string {
	d.mu.Lock()
	if old, ok := d.loops[surface]; ok {
		old.stop()
	}
	lp := &loop{
		id:      uuid.NewString(),
		surface: surface,
		seed:    seed,
		frame:   int64(d.rng.Intn(frameOffsetRange)),
		done:    make(chan struct{}),
	}
	d.loops[surface] = lp
	d.mu.Unlock()

	d.log.SurfaceStart(surface, seed)
	go d.run(lp, render)
	return lp.id
}

// run is the loop body. The registered-identity check makes a stale
// tick after replacement or teardown a no-op.
func (d *Driver) run(lp *loop, render RenderFunc) {
	ticker := time.NewTicker(time.Second / tickRate)
	defer ticker.Stop()

	minInterval := time.Second / time.Duration(d.fps)
	var lastDraw time.Time

	for {
		select {
		case <-lp.done:
			return
		case now := <-ticker.C:
			if !d.registered(lp) {
				return
			}
			if now.Sub(lastDraw) < minInterval {
				continue
			}
			lastDraw = now
			lp.frame++
			render(lp.frame)
		}
	}
}

func (d *Driver) registered(lp *loop) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	cur, ok := d.loops[lp.surface]
	return ok && cur.id == lp.id
}

// Stop cancels the surface's loop. Idempotent: stopping a surface
// with no loop is a no-op.
func (d *Driver) Stop(surface string) {
	d.mu.Lock()
	lp, ok := d.loops[surface]
	if ok {
		delete(d.loops, surface)
	}
	d.mu.Unlock()

	if ok {
		lp.stop()
		d.log.SurfaceStop(surface)
	}
}

// StopAll cancels every running loop.
func (d *Driver) StopAll() {
	d.mu.Lock()
	loops := d.loops
	d.loops = make(map[string]*loop)
	d.mu.Unlock()

	for surface, lp := range loops {
		lp.stop()
		d.log.SurfaceStop(surface)
	}
}

// Running returns the surface IDs with a registered loop.
func (d *Driver) Running() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	surfaces := make([]string, 0, len(d.loops))
	for s := range d.loops {
		surfaces = append(surfaces, s)
	}
	return surfaces
}

// Seed returns the seed a surface was started with.
func (d *Driver) Seed(surface string) (int64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	lp, ok := d.loops[surface]
	if !ok {
		return 0, false
	}
	return lp.seed, true
}
