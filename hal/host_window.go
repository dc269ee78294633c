//go:build !tinygo

package hal

import (
	"strings"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"lark/internal/buildinfo"
)

const (
	panelLines  = 30
	panelWidth  = 480
	panelHeight = 360
)

// RunWindow opens a desktop window showing the console panel and forwards
// typed keys to the key stream. It blocks until the window closes.
func RunWindow(newApp func(HAL) func() error) error {
	h := New().(*hostHAL)
	panel := &panelConsole{}
	keys := &windowKeys{ch: make(chan KeyEvent, 64)}
	h.console = panel
	h.keys = keys

	step := newApp(h)
	g := &hostGame{h: h, panel: panel, keys: keys, step: step}
	ebiten.SetWindowTitle("lark (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(panelWidth*2, panelHeight*2)
	ebiten.SetTPS(60)
	return ebiten.RunGame(g)
}

// panelConsole keeps the most recent console lines for the window to draw.
type panelConsole struct {
	mu    sync.Mutex
	lines []string
}

func (c *panelConsole) WriteLine(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, s)
	if len(c.lines) > panelLines {
		c.lines = c.lines[len(c.lines)-panelLines:]
	}
}

func (c *panelConsole) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = c.lines[:0]
}

func (c *panelConsole) render() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.lines, "\n")
}

type windowKeys struct {
	ch chan KeyEvent
}

func (k *windowKeys) Events() <-chan KeyEvent { return k.ch }

func (k *windowKeys) poll() {
	for _, r := range ebiten.AppendInputChars(nil) {
		select {
		case k.ch <- KeyEvent{Rune: r}:
		default:
		}
	}
}

type hostGame struct {
	h     *hostHAL
	panel *panelConsole
	keys  *windowKeys
	step  func() error
}

func (g *hostGame) Update() error {
	g.keys.poll()
	g.h.t.step()
	if g.step != nil {
		return g.step()
	}
	return nil
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	ebitenutil.DebugPrint(screen, g.panel.render())
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return panelWidth, panelHeight
}
