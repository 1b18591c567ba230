package services

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rpupo63/portfolio-site-backend/models"
)

var hexColor = regexp.MustCompile(`(?i)^([a-f\d]{2})([a-f\d]{2})([a-f\d]{2})$`)

type RGB struct {
	R, G, B uint8
}

func (c RGB) String() string {
	return fmt.Sprintf("%d, %d, %d", c.R, c.G, c.B)
}

// HexToRGB parses a six digit hex color with or without a leading '#'.
func HexToRGB(hex string) (RGB, bool) {
	m := hexColor.FindStringSubmatch(strings.TrimPrefix(hex, "#"))
	if m == nil {
		return RGB{}, false
	}
	channel := func(s string) uint8 {
		v, _ := strconv.ParseUint(s, 16, 8)
		return uint8(v)
	}
	return RGB{R: channel(m[1]), G: channel(m[2]), B: channel(m[3])}, true
}

// AdjustLightness shifts the HSL lightness of hex by percent points, clamped
// to [0, 100]. An unparseable color is returned unchanged.
func AdjustLightness(hex string, percent float64) string {
	rgb, ok := HexToRGB(hex)
	if !ok {
		return hex
	}

	r := float64(rgb.R) / 255
	g := float64(rgb.G) / 255
	b := float64(rgb.B) / 255

	hi := math.Max(r, math.Max(g, b))
	lo := math.Min(r, math.Min(g, b))
	l := (hi + lo) / 2

	var h, s float64
	if hi != lo {
		d := hi - lo
		if l > 0.5 {
			s = d / (2 - hi - lo)
		} else {
			s = d / (hi + lo)
		}
		switch hi {
		case r:
			h = (g - b) / d
			if g < b {
				h += 6
			}
		case g:
			h = (b-r)/d + 2
		default:
			h = (r-g)/d + 4
		}
		h /= 6
	}

	l = math.Min(1, math.Max(0, l+percent/100))

	var r2, g2, b2 float64
	if s == 0 {
		r2, g2, b2 = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		r2 = hueToRGB(p, q, h+1.0/3)
		g2 = hueToRGB(p, q, h)
		b2 = hueToRGB(p, q, h-1.0/3)
	}

	toHex := func(c float64) string {
		return fmt.Sprintf("%02x", int(math.Round(c*255)))
	}
	return "#" + toHex(r2) + toHex(g2) + toHex(b2)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 1.0/2:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	default:
		return p
	}
}

// Palette is the set of accent values the site's stylesheet uses.
type Palette struct {
	Accent string
	Hover  string
	RGB    RGB
	Glow   string
}

// AccentPalette derives the palette for an accent color. Invalid or empty
// colors fall back to the default accent.
func AccentPalette(hex string) Palette {
	rgb, ok := HexToRGB(hex)
	if !ok {
		hex = models.DefaultAccentColor
		rgb, _ = HexToRGB(hex)
	}
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	return Palette{
		Accent: hex,
		Hover:  AdjustLightness(hex, 15),
		RGB:    rgb,
		Glow:   fmt.Sprintf("rgba(%d, %d, %d, 0.25)", rgb.R, rgb.G, rgb.B),
	}
}

// CSS renders the palette as custom properties on :root.
func (p Palette) CSS() string {
	var b strings.Builder
	b.WriteString(":root {\n")
	fmt.Fprintf(&b, "  --accent: %s;\n", p.Accent)
	fmt.Fprintf(&b, "  --accent-hover: %s;\n", p.Hover)
	fmt.Fprintf(&b, "  --accent-rgb: %s;\n", p.RGB)
	fmt.Fprintf(&b, "  --accent-glow: %s;\n", p.Glow)
	b.WriteString("}\n")
	return b.String()
}
