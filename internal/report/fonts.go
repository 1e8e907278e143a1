package report

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// ErrMissingResource is returned before any rendering when a font the report
// needs cannot be read.
var ErrMissingResource = errors.New("missing report resource")

// BuiltinFont selects the Go fonts compiled into the binary.
const BuiltinFont = "builtin"

// Fonts holds TrueType data for body text and the statistics table.
type Fonts struct {
	Regular []byte
	Mono    []byte
}

// LoadFonts resolves the body font (a TTF path or "builtin") and the mono
// font ("" or "builtin" for the compiled-in Go Mono, or a TTF path).
func LoadFonts(regularPath, monoPath string) (*Fonts, error) {
	regular, err := loadTTF(regularPath, goregular.TTF)
	if err != nil {
		return nil, err
	}
	if monoPath == "" {
		monoPath = BuiltinFont
	}
	mono, err := loadTTF(monoPath, gomono.TTF)
	if err != nil {
		return nil, err
	}
	return &Fonts{Regular: regular, Mono: mono}, nil
}

func loadTTF(path string, builtin []byte) ([]byte, error) {
	if path == BuiltinFont {
		return builtin, nil
	}
	if path == "" {
		return nil, fmt.Errorf("%w: no font configured", ErrMissingResource)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: font %s: %v", ErrMissingResource, path, err)
	}
	if !isTrueType(b) {
		return nil, fmt.Errorf("%w: font %s is not a TrueType file", ErrMissingResource, path)
	}
	return b, nil
}

// isTrueType checks the sfnt version tag. CFF-flavoured OpenType ("OTTO")
// is rejected because the PDF writer embeds glyf outlines only.
func isTrueType(b []byte) bool {
	if len(b) < 12 {
		return false
	}
	tag := b[:4]
	return bytes.Equal(tag, []byte{0x00, 0x01, 0x00, 0x00}) || bytes.Equal(tag, []byte("true"))
}
