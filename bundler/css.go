package bundler

import (
	"fmt"
	"strings"

	"github.com/YoungY620/mrequires/core/split"
)

// rewriteCSS reads the stylesheet at path. In ModeCSS it returns the sheet
// with every url() reduced to url('<basename>'), matching images copied
// next to the bundle. In ModeImg it returns each url resolved against the
// sheet's directory, one per line. Other modes yield "".
func (b *Bundler) rewriteCSS(path string, mode Mode) (string, error) {
	if mode != ModeCSS && mode != ModeImg {
		return "", nil
	}
	text, err := b.reader.Read(path)
	if err != nil {
		return "", err
	}
	segs, err := split.CSS(text)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}

	var out strings.Builder
	dir := dirPrefix(path)
	for _, seg := range segs {
		switch {
		case seg.Kind == split.KindSource && mode == ModeCSS:
			out.WriteString(seg.Value)
		case seg.Kind == split.KindURL && mode == ModeCSS:
			out.WriteString("url('")
			out.WriteString(baseName(seg.Value))
			out.WriteString("')")
		case seg.Kind == split.KindURL:
			out.WriteString(dir)
			out.WriteString(seg.Value)
			out.WriteByte('\n')
		}
	}
	return out.String(), nil
}

// baseName returns the part after the last slash, or u unchanged when u
// ends with a slash.
func baseName(u string) string {
	i := strings.LastIndexByte(u, '/')
	if i < 0 || i == len(u)-1 {
		return u
	}
	return u[i+1:]
}

// dirPrefix returns p up to and including its last slash.
func dirPrefix(p string) string {
	return p[:strings.LastIndexByte(p, '/')+1]
}
