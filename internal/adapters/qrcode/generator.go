package qrcode

import (
	"fmt"

	"github.com/skip2/go-qrcode"

	"github.com/kamal-hamza/bx-cli/internal/core/ports"
)

// Generator renders QR codes as PNG images
type Generator struct {
	size  int
	level qrcode.RecoveryLevel
}

var _ ports.QRGenerator = (*Generator)(nil)

// NewGenerator creates a generator for size×size images. level is one of
// L, M, Q or H; anything else falls back to M.
func NewGenerator(size int, level string) *Generator {
	return &Generator{
		size:  size,
		level: ParseLevel(level),
	}
}

// ParseLevel maps a recovery level letter to its qrcode constant
func ParseLevel(level string) qrcode.RecoveryLevel {
	switch level {
	case "L":
		return qrcode.Low
	case "M":
		return qrcode.Medium
	case "Q":
		return qrcode.High
	case "H":
		return qrcode.Highest
	default:
		return qrcode.Medium
	}
}

// PNG encodes content as a QR code image
func (g *Generator) PNG(content string) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("nothing to encode")
	}

	code, err := qrcode.New(content, g.level)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}

	png, err := code.PNG(g.size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PNG: %w", err)
	}
	return png, nil
}
