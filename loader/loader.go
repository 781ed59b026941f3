package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/YoungY620/mrequires/bundler"
	"github.com/YoungY620/mrequires/core/logging"
	"github.com/YoungY620/mrequires/core/resolve"
	"github.com/YoungY620/mrequires/core/split"
)

// Module is one fetched file handed to Apply.
type Module struct {
	Name   string // name as it was required
	Path   string // resolved path, the dedup key
	Kind   string // "js" or "css"
	Source string
}

// Fetcher retrieves the text of a module.
type Fetcher interface {
	Fetch(ctx context.Context, name, path string) (string, error)
}

// FetchError reports a fetch that did not complete with 200.
type FetchError struct {
	URL    string
	Status int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("loading %s: got %d %s", e.URL, e.Status, http.StatusText(e.Status))
}

// HTTPFetcher loads modules from a loader server's /modules/ endpoint.
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
}

func (f HTTPFetcher) Fetch(ctx context.Context, name, path string) (string, error) {
	u := strings.TrimSuffix(f.BaseURL, "/") + "/modules/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &FetchError{URL: u, Status: resp.StatusCode}
	}
	if got := resp.Header.Get(PathHeader); got != "" && got != path {
		return "", fmt.Errorf("loading %s: server resolved %s, expected %s", u, got, path)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("loading %s: %w", u, err)
	}
	return string(body), nil
}

// ReaderFetcher loads modules straight from a bundler.Reader.
type ReaderFetcher struct {
	Reader bundler.Reader
}

func (f ReaderFetcher) Fetch(ctx context.Context, name, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.Reader.Read(path)
}

// Loader loads modules on demand, each resolved path at most once, and
// hands them to an apply callback in dependency order.
type Loader struct {
	ns      resolve.Namespaces
	fetcher Fetcher
	apply   func(Module) error
	js      split.JSSplitter
	log     logging.Printer

	mu   sync.Mutex // guards seen
	seen *bundler.Seen
}

// LoaderOption customises a Loader.
type LoaderOption func(*Loader)

func WithLoaderDirective(name string) LoaderOption {
	return func(l *Loader) {
		l.js.Directive = name
	}
}

func WithLoaderLogger(p logging.Printer) LoaderOption {
	return func(l *Loader) {
		if p != nil {
			l.log = p
		}
	}
}

// NewLoader creates a Loader. apply is called once per loaded module.
func NewLoader(ns resolve.Namespaces, fetcher Fetcher, apply func(Module) error, opts ...LoaderOption) *Loader {
	l := &Loader{
		ns:      ns,
		fetcher: fetcher,
		apply:   apply,
		log:     logging.NewNop(),
		seen:    bundler.NewSeen(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Require loads names in order. A JS module's own requirements are loaded
// before the module is applied. A path is marked loaded before it is
// fetched, so a failed fetch is not retried by this Loader.
//
// No lock is held while fetching or applying, so apply may call Require
// for modules a script asks for at run time. A path claimed by a concurrent
// Require is skipped, not awaited.
func (l *Loader) Require(ctx context.Context, names ...string) error {
	return l.require(ctx, names)
}

func (l *Loader) mark(p string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seen.Mark(p)
}

func (l *Loader) require(ctx context.Context, names []string) error {
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		p, err := resolve.Resolve(name, l.ns)
		if err != nil {
			return err
		}
		if !l.mark(p) {
			continue
		}

		text, err := l.fetcher.Fetch(ctx, name, p)
		if err != nil {
			return fmt.Errorf("require %s: %w", name, err)
		}
		l.log.Debugf("fetched %s (%d bytes)", p, len(text))

		m := Module{Name: name, Path: p, Kind: kindOf(p), Source: text}
		if m.Kind == "js" {
			segs, err := l.js.Split(text)
			if err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			var deps []string
			for _, seg := range segs {
				if seg.Kind == split.KindRequires {
					deps = append(deps, seg.Value)
				}
			}
			if err := l.require(ctx, deps); err != nil {
				return fmt.Errorf("required from %s: %w", p, err)
			}
		}
		if err := l.apply(m); err != nil {
			return fmt.Errorf("apply %s: %w", p, err)
		}
	}
	return nil
}

// Loaded returns the resolved paths marked so far, in marking order.
func (l *Loader) Loaded() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seen.Paths()
}
