package settings

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type ColorKind string

const (
	ColorPrimary   ColorKind = "primary"
	ColorSecondary ColorKind = "secondary"
	ColorUser      ColorKind = "user"
	ColorOthers    ColorKind = "others"
)

const colorSaturation = 70

// HSL is a colour in degrees and percentages.
type HSL struct {
	H, S, L int
}

// HSLToHex converts a hue in degrees and saturation and lightness in percent
// to an upper-case #RRGGBB string.
func HSLToHex(h, s, l float64) string {
	h /= 360
	s /= 100
	l /= 100

	var r, g, b float64
	if s == 0 {
		r, g, b = l, l, l
	} else {
		q := l + s - l*s
		if l < 0.5 {
			q = l * (1 + s)
		}
		p := 2*l - q
		r = hueToRGB(p, q, h+1.0/3)
		g = hueToRGB(p, q, h)
		b = hueToRGB(p, q, h-1.0/3)
	}
	return fmt.Sprintf("#%02X%02X%02X", toByte(r), toByte(g), toByte(b))
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

func toByte(x float64) int {
	return int(math.Round(x * 255))
}

// HexToHSL parses #RGB or #RRGGBB. It reports false for anything else.
func HexToHSL(hex string) (HSL, bool) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return HSL{}, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return HSL{}, false
	}
	r := float64(v>>16&0xff) / 255
	g := float64(v>>8&0xff) / 255
	b := float64(v&0xff) / 255

	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	l := (max + min) / 2
	var h, s float64
	if max != min {
		d := max - min
		if l > 0.5 {
			s = d / (2 - max - min)
		} else {
			s = d / (max + min)
		}
		switch max {
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
	return HSL{
		H: int(math.Round(h * 360)),
		S: int(math.Round(s * 100)),
		L: int(math.Round(l * 100)),
	}, true
}

// UpdateColor sets the colour of kind from a hue and saves the settings.
// Primary colours are lighter than the others.
func (m *Manager) UpdateColor(ctx context.Context, kind ColorKind, hue float64) (string, error) {
	lightness := 50.0
	if kind == ColorPrimary {
		lightness = 63
	}
	hex := HSLToHex(hue, colorSaturation, lightness)

	err := m.Update(ctx, func(s *Settings) {
		if field := s.colorField(kind); field != nil {
			*field = hex
		}
	})
	if err != nil {
		return "", err
	}
	return hex, nil
}

func (s *Settings) colorField(kind ColorKind) *string {
	switch kind {
	case ColorPrimary:
		return &s.PrimaryColor
	case ColorSecondary:
		return &s.SecondaryColor
	case ColorUser:
		return &s.UserColor
	case ColorOthers:
		return &s.OthersColor
	}
	return nil
}

// Color returns the hex colour stored for kind, or "" for an unknown kind.
func (s Settings) Color(kind ColorKind) string {
	if field := s.colorField(kind); field != nil {
		return *field
	}
	return ""
}

// Hue returns the hue of the current colour of kind, the value a colour slider starts at.
// It reports false when the stored colour is not a hex colour.
func (m *Manager) Hue(kind ColorKind) (int, bool) {
	hsl, ok := HexToHSL(m.Current().Color(kind))
	if !ok {
		return 0, false
	}
	return hsl.H, true
}
