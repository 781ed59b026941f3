// Package bundler walks mRequires dependencies from an entry file and
// concatenates what it finds according to a Mode.
package bundler

import (
	"fmt"
	"path"
	"strings"

	"github.com/YoungY620/mrequires/core/logging"
	"github.com/YoungY620/mrequires/core/resolve"
	"github.com/YoungY620/mrequires/core/split"
)

// Bundler resolves and reads dependencies. It holds no per-run state, so
// one Bundler may serve concurrent Concat calls when its Reader allows it.
type Bundler struct {
	ns     resolve.Namespaces
	reader Reader
	js     split.JSSplitter
	log    logging.Printer
}

// Option customises Bundler.
type Option func(*Bundler)

// WithDirective changes the JS directive name (default mRequires).
func WithDirective(name string) Option {
	return func(b *Bundler) {
		b.js.Directive = name
	}
}

func WithLogger(l logging.Printer) Option {
	return func(b *Bundler) {
		if l != nil {
			b.log = l
		}
	}
}

func New(ns resolve.Namespaces, reader Reader, opts ...Option) *Bundler {
	b := &Bundler{
		ns:     ns,
		reader: reader,
		log:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Namespaces returns the mapping used for resolution.
func (b *Bundler) Namespaces() resolve.Namespaces { return b.ns }

// Resolve maps a module name to a path with the bundler's namespaces.
func (b *Bundler) Resolve(name string) (string, error) {
	return resolve.Resolve(name, b.ns)
}

// Read exposes the underlying Reader.
func (b *Bundler) Read(path string) (string, error) {
	return b.reader.Read(path)
}

// Concat walks the dependencies of the JS file at path with a fresh Seen.
func (b *Bundler) Concat(path string, mode Mode) (string, error) {
	return b.ConcatWith(path, mode, NewSeen())
}

// frame is one JS file being walked.
type frame struct {
	path string
	segs []split.Segment
	next int
}

// ConcatWith walks the dependencies of entry, skipping anything already in
// seen and marking everything it includes. The walk is depth first and
// pre-order: a required file's output lands where its directive was.
// A nil seen behaves like a fresh one.
func (b *Bundler) ConcatWith(entry string, mode Mode, seen *Seen) (string, error) {
	if !mode.Valid() {
		return "", fmt.Errorf("%w %q", ErrUnknownMode, mode)
	}
	if seen == nil {
		seen = NewSeen()
	}

	var (
		out   strings.Builder
		stack []*frame
	)

	enter := func(p string) error {
		text, err := b.reader.Read(p)
		if err != nil {
			return err
		}
		segs, err := b.js.Split(text)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		if mode == ModeJSFiles {
			out.WriteString(p)
			out.WriteByte('\n')
		}
		b.log.Debugf("enter %s (%d segments)", p, len(segs))
		stack = append(stack, &frame{path: p, segs: segs})
		return nil
	}

	// seen is keyed by the cleaned path so "./js/Init.js" and a back-edge
	// resolving to "js/Init.js" are one file.
	seen.Mark(path.Clean(entry))
	if err := enter(entry); err != nil {
		return "", err
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next == len(top.segs) {
			stack = stack[:len(stack)-1]
			continue
		}
		seg := top.segs[top.next]
		top.next++

		switch seg.Kind {
		case split.KindSource:
			if mode == ModeJS {
				out.WriteString(seg.Value)
			}
		case split.KindRequires:
			dep, err := resolve.Resolve(seg.Value, b.ns)
			if err != nil {
				return "", fmt.Errorf("%s: %w", top.path, err)
			}
			if !seen.Mark(path.Clean(dep)) {
				b.log.Debugf("skip %s (already included)", dep)
				continue
			}
			if resolve.IsCSS(dep) {
				if mode != ModeCSS && mode != ModeImg {
					continue
				}
				css, err := b.rewriteCSS(dep, mode)
				if err != nil {
					return "", fmt.Errorf("required from %s: %w", top.path, err)
				}
				out.WriteString(css)
				continue
			}
			if err := enter(dep); err != nil {
				return "", fmt.Errorf("required from %s: %w", top.path, err)
			}
		}
	}
	return out.String(), nil
}
