package scene

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/vinayprograms/agentcam/internal/event"
	"github.com/vinayprograms/agentcam/internal/reaction"
)

// VariantCount is the number of desk/decoration layout variants.
const VariantCount = 3

// Renderer produces frames of the desk scene. Render is a pure
// function of its arguments; the renderer itself holds only immutable
// dimensions and palette overrides.
type Renderer struct {
	width     int
	height    int
	overrides map[layer]lipgloss.Style
}

// paletteLayers maps theme palette keys to scene layers.
var paletteLayers = map[string]layer{
	"wall":       layerWall,
	"window":     layerWindow,
	"desk":       layerDesk,
	"character":  layerCharacter,
	"monitor":    layerMonitorFrame,
	"decoration": layerDecoration,
	"particle":   layerParticle,
	"emote":      layerEmote,
}

// New creates a renderer for a surface of the given cell dimensions.
// Palette entries override layer colors; unknown keys are ignored.
func New(width, height int, palette map[string]string) *Renderer {
	if width < 20 {
		width = 20
	}
	if height < 10 {
		height = 10
	}
	r := &Renderer{width: width, height: height}
	for key, color := range palette {
		l, ok := paletteLayers[key]
		if !ok {
			continue
		}
		if r.overrides == nil {
			r.overrides = make(map[layer]lipgloss.Style)
		}
		r.overrides[l] = lipgloss.NewStyle().Foreground(lipgloss.Color(color))
	}
	return r
}

// Variant returns the layout variant for a seed. Derived from the
// seed alone so a surface keeps its layout across frames and seeks.
func (r *Renderer) Variant(seed int64) int {
	return pick(VariantCount, seed, 0x1a)
}

// grid is one frame being assembled, a rune plus a layer tag per cell.
type grid struct {
	w, h   int
	ch     [][]rune
	ly     [][]layer
	source event.Type
}

func newGrid(w, h int) *grid {
	g := &grid{w: w, h: h}
	g.ch = make([][]rune, h)
	g.ly = make([][]layer, h)
	for y := 0; y < h; y++ {
		g.ch[y] = make([]rune, w)
		g.ly[y] = make([]layer, w)
		for x := 0; x < w; x++ {
			g.ch[y][x] = ' '
		}
	}
	return g
}

func (g *grid) set(x, y int, ch rune, l layer) {
	if x < 0 || x >= g.w || y < 0 || y >= g.h {
		return
	}
	g.ch[y][x] = ch
	g.ly[y][x] = l
}

func (g *grid) text(x, y int, s string, l layer) {
	for i, ch := range s {
		g.set(x+i, y, ch, l)
	}
}

// Render draws one full frame. Layers are independent: each keys its
// own randomness off (seed, frame) and writes its own cells, later
// layers painting over earlier ones.
func (r *Renderer) Render(seed, frame int64, snap reaction.Snapshot) string {
	variant := r.Variant(seed)
	g := newGrid(r.width, r.height)
	g.source = snap.Monitor.Source

	r.drawBackground(g, seed, frame, variant)
	r.drawDesk(g, variant)
	r.drawDecorations(g, seed, variant)
	r.drawMonitor(g, frame, snap)
	r.drawCharacter(g, frame, snap)
	r.drawParticles(g, seed, frame, snap.Reaction)

	return r.paint(g)
}

func (r *Renderer) deskTop() int  { return r.height - 6 }
func (r *Renderer) deskLeft() int { return r.width / 8 }

// drawBackground fills the wall texture and a window. The wall is
// static per seed; the stars twinkle on a slow frame-derived cycle.
func (r *Renderer) drawBackground(g *grid, seed, frame int64, variant int) {
	for y := 0; y < r.deskTop(); y++ {
		for x := 0; x < r.width; x++ {
			if chance(17, seed, int64(x), int64(y), 0x2b) {
				g.set(x, y, '.', layerWall)
			}
		}
	}

	// Window placement flips side by variant.
	ww, wh := r.width/5, 4
	wx := r.width - ww - 3
	if variant == 1 {
		wx = 3
	}
	wy := 1
	for y := wy; y < wy+wh; y++ {
		for x := wx; x < wx+ww; x++ {
			ch := ' '
			onEdge := y == wy || y == wy+wh-1 || x == wx || x == wx+ww-1
			if onEdge {
				ch = '#'
				g.set(x, y, ch, layerWindow)
				continue
			}
			if chance(5, seed, int64(x), int64(y), 0x3c) {
				// Twinkle: each star has its own phase.
				if pick(3, seed, int64(x), int64(y), frame/12) != 0 {
					g.set(x, y, '*', layerWindow)
				}
			}
		}
	}
}

// deskEdges holds the surface glyph per layout variant.
var deskEdges = [VariantCount]rune{'═', '─', '▄'}

func (r *Renderer) drawDesk(g *grid, variant int) {
	top := r.deskTop()
	left := r.deskLeft()
	right := r.width - left

	for x := left; x < right; x++ {
		g.set(x, top, deskEdges[variant], layerDesk)
	}
	for y := top + 1; y < r.height-1; y++ {
		g.set(left+1, y, '║', layerDesk)
		g.set(right-2, y, '║', layerDesk)
	}
	for x := 0; x < r.width; x++ {
		g.set(x, r.height-1, '_', layerWall)
	}
}

// decoration glyph sets per variant.
var decorationSets = [VariantCount]string{"&u▤", "&u", "▤u☕"}

func (r *Renderer) drawDecorations(g *grid, seed int64, variant int) {
	top := r.deskTop()
	set := decorationSets[variant]
	x := r.deskLeft() + 3
	for i, ch := range set {
		// Presence and spacing come from the seed, never the frame.
		if pick(4, seed, int64(i), 0x4d) == 3 {
			continue
		}
		g.set(x, top-1, ch, layerDecoration)
		x += 2 + pick(3, seed, int64(i), 0x5e)
	}
}

func (r *Renderer) monitorBox() (x, y, w, h int) {
	w = r.width / 2
	if w > 30 {
		w = 30
	}
	h = 6
	x = r.width/2 - w + 2
	y = r.deskTop() - h
	return x, y, w, h
}

func (r *Renderer) drawMonitor(g *grid, frame int64, snap reaction.Snapshot) {
	mx, my, mw, mh := r.monitorBox()

	for y := my; y < my+mh; y++ {
		for x := mx; x < mx+mw; x++ {
			onEdge := y == my || y == my+mh-1 || x == mx || x == mx+mw-1
			if onEdge {
				g.set(x, y, '▒', layerMonitorFrame)
			} else {
				g.set(x, y, ' ', layerMonitorText)
			}
		}
	}
	// Stand.
	g.set(mx+mw/2, my+mh, '╨', layerMonitorFrame)

	inner := mw - 2
	if inner < 1 {
		return
	}
	lines := strings.Split(wordwrap.String(snap.Monitor.Content, inner), "\n")
	maxLines := mh - 2
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	for i, line := range lines {
		if len(line) > inner {
			line = line[:inner]
		}
		g.text(mx+1, my+1+i, line, layerMonitorText)
	}

	// Cursor blink on the line after the content.
	if snap.Typing != reaction.SpeedFrozen && len(lines) > 0 && len(lines) <= maxLines {
		if pick(2, frame/4) == 0 {
			last := lines[len(lines)-1]
			if len(last) < inner {
				g.set(mx+1+len(last), my+len(lines), '▌', layerMonitorText)
			}
		}
	}
}

// typingPeriod is the arm-swap interval in frames per typing speed.
func typingPeriod(s reaction.Speed) int64 {
	switch s {
	case reaction.SpeedFast:
		return 2
	case reaction.SpeedSlow:
		return 8
	case reaction.SpeedFrozen:
		return 0
	}
	return 4
}

// emotes maps reaction types to the glyph shown above the character.
var emotes = map[event.Type]rune{
	event.TypeError:    '!',
	event.TypeSpawn:    '+',
	event.TypeComplete: '✓',
	event.TypeThink:    '?',
	event.TypeUser:     '@',
}

func (r *Renderer) drawCharacter(g *grid, frame int64, snap reaction.Snapshot) {
	_, my, mw, mh := r.monitorBox()
	cx := r.width/2 + mw/2 + 4
	headY := my + mh - 3

	g.set(cx, headY, 'o', layerCharacter)
	g.set(cx, headY+1, '|', layerCharacter)

	// Hands over the keyboard; the swap rate is the typing signal.
	period := typingPeriod(snap.Typing)
	pose := int64(0)
	if period > 0 {
		pose = (frame / period) % 2
	}
	if pose == 0 {
		g.set(cx-1, headY+1, '/', layerCharacter)
		g.set(cx+1, headY+1, '\\', layerCharacter)
	} else {
		g.set(cx-1, headY+1, '_', layerCharacter)
		g.set(cx+1, headY+1, '_', layerCharacter)
	}
	g.set(cx-1, headY+2, '/', layerCharacter)
	g.set(cx+1, headY+2, '\\', layerCharacter)

	if snap.Reaction != nil {
		glyph, ok := emotes[snap.Reaction.Type]
		if !ok {
			glyph = '*'
		}
		// Pulse the emote so long reactions stay alive visually.
		if pick(4, frame/6) != 3 {
			g.set(cx, headY-1, glyph, layerEmote)
		}
	}
}

// particleGlyphs maps reaction types to their particle rune.
var particleGlyphs = map[event.Type]rune{
	event.TypeError:    '~',
	event.TypeComplete: '*',
	event.TypeSpawn:    '+',
}

// drawParticles rises a small deterministic particle field above the
// desk while a reaction is active.
func (r *Renderer) drawParticles(g *grid, seed, frame int64, re *reaction.Reaction) {
	if re == nil || re.StartFrame == reaction.StartUnset {
		return
	}
	glyph, ok := particleGlyphs[re.Type]
	if !ok {
		glyph = '·'
	}

	span := int64(r.deskTop() - 1)
	if span < 2 {
		return
	}
	elapsed := frame - re.StartFrame
	for i := int64(0); i < 6; i++ {
		x := r.deskLeft() + pick(r.width-2*r.deskLeft(), seed, i, 0x6f)
		phase := int64(pick(int(span), seed, i, 0x70))
		y := int(span - (elapsed/2+phase)%span)
		g.set(x, y, glyph, layerParticle)
	}
}

// paint renders the grid to a styled string, styling runs of cells
// that share a layer rather than every cell individually.
func (r *Renderer) paint(g *grid) string {
	var b strings.Builder
	for y := 0; y < g.h; y++ {
		runStart := 0
		runLayer := g.ly[y][0]
		for x := 1; x <= g.w; x++ {
			if x < g.w && g.ly[y][x] == runLayer {
				continue
			}
			text := string(g.ch[y][runStart:x])
			if runLayer == layerNone {
				b.WriteString(text)
			} else {
				b.WriteString(r.style(runLayer, g.source).Render(text))
			}
			if x < g.w {
				runStart = x
				runLayer = g.ly[y][x]
			}
		}
		if y < g.h-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (r *Renderer) style(l layer, source event.Type) lipgloss.Style {
	if s, ok := r.overrides[l]; ok {
		return s
	}
	return styleFor(l, source)
}
