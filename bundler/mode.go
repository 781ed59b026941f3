package bundler

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects what Concat produces.
type Mode string

const (
	// ModeJS inlines every required JS file.
	ModeJS Mode = "js"
	// ModeCSS concatenates required CSS with url() paths reduced to basenames.
	ModeCSS Mode = "css"
	// ModeImg lists the images referenced by required CSS, one per line.
	ModeImg Mode = "img"
	// ModeJSFiles lists the JS files in inclusion order, one per line.
	ModeJSFiles Mode = "jsfiles"
)

// ErrUnknownMode is returned for a mode outside Modes().
var ErrUnknownMode = errors.New("unknown mode")

// Modes returns every supported mode.
func Modes() []Mode {
	return []Mode{ModeJS, ModeCSS, ModeImg, ModeJSFiles}
}

// ParseMode maps a flag or URL value to a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if m.Valid() {
		return m, nil
	}
	return "", fmt.Errorf("%w %q (want js, css, img or jsfiles)", ErrUnknownMode, s)
}

func (m Mode) Valid() bool {
	switch m {
	case ModeJS, ModeCSS, ModeImg, ModeJSFiles:
		return true
	}
	return false
}

func (m Mode) String() string { return string(m) }
