// Package qr turns arbitrary text into QR code PNG files.
//
// It has no knowledge of student records; the web layer only uses it from
// the QR Code Generator page.
package qr

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// Extension is appended to every generated file name.
const Extension = ".png"

// DefaultName is the file name the form offers before the user types one.
const DefaultName = "my_qrcode"

const defaultSize = 256

var (
	// ErrEmptyText is returned when there is nothing to encode.
	ErrEmptyText = errors.New("qr: text is empty")
	// ErrInvalidName is returned for names that are empty or would leave
	// the output directory.
	ErrInvalidName = errors.New("qr: invalid file name")
)

// Generator writes QR code images into a single directory.
type Generator struct {
	dir   string
	size  int
	level qrcode.RecoveryLevel
}

// Image is the result of one Generate call.
type Image struct {
	// Path is where the PNG was written, dir joined with name+Extension.
	Path string
	// PNG is the encoded image, so callers can show it without reading
	// the file back.
	PNG []byte
}

// New returns a Generator writing into dir. The directory is created on
// the first Generate call.
func New(dir string) *Generator {
	return &Generator{
		dir:   dir,
		size:  defaultSize,
		level: qrcode.Medium,
	}
}

// Generate encodes text and saves it as <dir>/<name>.png, overwriting any
// earlier file of the same name.
func (g *Generator) Generate(text, name string) (Image, error) {
	if text == "" {
		return Image{}, ErrEmptyText
	}

	fileName, err := cleanName(name)
	if err != nil {
		return Image{}, err
	}

	png, err := qrcode.Encode(text, g.level, g.size)
	if err != nil {
		return Image{}, fmt.Errorf("qr: encode: %w", err)
	}

	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return Image{}, fmt.Errorf("qr: create dir: %w", err)
	}

	path := filepath.Join(g.dir, fileName)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return Image{}, fmt.Errorf("qr: write %s: %w", path, err)
	}

	return Image{Path: path, PNG: png}, nil
}

// cleanName accepts a bare file name, with or without the .png suffix.
func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	name = strings.TrimSuffix(name, Extension)

	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	return name + Extension, nil
}
