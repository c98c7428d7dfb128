// Package artwork generates initials placeholder images (circular avatars,
// rectangular posters), adapted from the teacher's user-avatar generator,
// for a video or page row that omits its cover URL and for every uploader
// avatar, since the data model carries no avatar URL. Without a placeholder
// the path planner has nothing to write to -poster.jpg/folder.jpg.
package artwork

import (
	"bytes"
	"fmt"
	"image/color"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
)

const size = 512

var palette = []color.NRGBA{
	{R: 0x5B, G: 0x8D, B: 0xEF, A: 0xFF},
	{R: 0xE0, G: 0x6C, B: 0x75, A: 0xFF},
	{R: 0x56, G: 0xB6, B: 0xC2, A: 0xFF},
	{R: 0x98, G: 0xC3, B: 0x79, A: 0xFF},
	{R: 0xC6, G: 0x78, B: 0xDD, A: 0xFF},
	{R: 0xD1, G: 0x9A, B: 0x66, A: 0xFF},
}

// Generator builds placeholder PNGs using a fixed embedded font face. It is
// safe for concurrent use: gg.Context instances are created per call, and
// drawLabel serializes every use of the shared font.Face through mu.
type Generator struct {
	mu   sync.Mutex
	face font.Face
}

// NewGenerator parses a TTF font's raw bytes once. Callers typically embed
// or ship a single font file and construct one Generator at startup.
func NewGenerator(fontBytes []byte) (*Generator, error) {
	parsed, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("parse placeholder font: %w", err)
	}
	face := truetype.NewFace(parsed, &truetype.Options{
		Size:    float64(size) / 2.5,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	return &Generator{face: face}, nil
}

// Avatar renders a circular initials placeholder for an uploader's
// folder.jpg, seeded deterministically by name so the same uploader always
// gets the same background color across runs.
func (g *Generator) Avatar(name string) ([]byte, error) {
	return g.render(initials(name), pickColor(name))
}

// Poster renders a rectangular (non-circular) placeholder for a video's
// -poster.jpg when the upstream cover URL is empty.
func (g *Generator) Poster(title string) ([]byte, error) {
	dc := gg.NewContext(size, size)
	dc.SetColor(pickColor(title))
	dc.DrawRectangle(0, 0, float64(size), float64(size))
	dc.Fill()
	if err := g.drawLabel(dc, initials(title)); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode poster placeholder: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *Generator) render(label string, bg color.NRGBA) ([]byte, error) {
	dc := gg.NewContext(size, size)
	dc.DrawCircle(float64(size)/2, float64(size)/2, float64(size)/2)
	dc.Clip()
	dc.SetColor(bg)
	dc.DrawRectangle(0, 0, float64(size), float64(size))
	dc.Fill()
	if err := g.drawLabel(dc, label); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode avatar placeholder: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *Generator) drawLabel(dc *gg.Context, label string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	dc.SetFontFace(g.face)
	tw, th := dc.MeasureString(label)
	cx, cy := float64(size)/2, float64(size)/2
	dc.SetColor(color.White)
	dc.DrawString(label, cx-(tw/2), cy+(th/2))
	return nil
}

func initials(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "?"
	}
	fields := strings.Fields(name)
	if len(fields) == 1 {
		r := []rune(fields[0])
		if len(r) == 0 {
			return "?"
		}
		if len(r) == 1 {
			return strings.ToUpper(string(r[0]))
		}
		return strings.ToUpper(string(r[:2]))
	}
	first := []rune(fields[0])
	last := []rune(fields[len(fields)-1])
	if len(first) == 0 || len(last) == 0 {
		return "?"
	}
	return strings.ToUpper(string(first[0]) + string(last[0]))
}

func pickColor(seed string) color.NRGBA {
	var sum int
	for _, r := range seed {
		sum += int(r)
	}
	if sum < 0 {
		sum = -sum
	}
	return palette[sum%len(palette)]
}
