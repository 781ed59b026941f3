package loader_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/YoungY620/mrequires/bundler"
	"github.com/YoungY620/mrequires/core/resolve"
	"github.com/YoungY620/mrequires/loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects applied modules.
type recorder struct {
	modules []loader.Module
	err     error
}

func (r *recorder) apply(m loader.Module) error {
	if r.err != nil {
		return r.err
	}
	r.modules = append(r.modules, m)
	return nil
}

func (r *recorder) paths() []string {
	var out []string
	for _, m := range r.modules {
		out = append(out, m.Path)
	}
	return out
}

func newLoader(ns resolve.Namespaces) (*loader.Loader, *recorder) {
	rec := &recorder{}
	f := loader.ReaderFetcher{Reader: bundler.FSReader{FS: mapFS(fixture)}}
	return loader.NewLoader(ns, f, rec.apply), rec
}

func TestLoader_DependenciesApplyFirst(t *testing.T) {
	l, rec := newLoader(resolve.Namespaces{"": "js/"})

	require.NoError(t, l.Require(context.Background(), "Init"))
	assert.Equal(t, []string{"js/Lang.js", "js/Haa/Haa.css", "js/View.js", "js/Init.js"}, rec.paths())

	css := rec.modules[1]
	assert.Equal(t, "Haa.Haa.css", css.Name)
	assert.Equal(t, "css", css.Kind)
	assert.Equal(t, "#haa{background:url('../haa.jpg')}", css.Source)
	assert.Equal(t, "js", rec.modules[3].Kind)
}

func TestLoader_LoadsEachPathOnce(t *testing.T) {
	l, rec := newLoader(resolve.Namespaces{"": "js/", "SeeMe": "js/"})
	ctx := context.Background()

	require.NoError(t, l.Require(ctx, "Lang", "Lang.js", "SeeMe.Lang"))
	require.NoError(t, l.Require(ctx, "Lang"))
	assert.Equal(t, []string{"js/Lang.js"}, rec.paths())
	assert.Equal(t, []string{"js/Lang.js"}, l.Loaded())
}

func TestLoader_FetchFailureAbortsWithoutApplying(t *testing.T) {
	l, rec := newLoader(resolve.Namespaces{"": "js/"})

	err := l.Require(context.Background(), "Lang", "Gone", "View")
	require.Error(t, err)
	assert.True(t, bundler.IsNotFound(err))
	assert.Contains(t, err.Error(), "file not found: js/Gone.js")
	assert.Equal(t, []string{"js/Lang.js"}, rec.paths(), "names after the failure are not loaded")
}

func TestLoader_FailedDependencyKeepsParentUnapplied(t *testing.T) {
	rec := &recorder{}
	files := mapFS(map[string]string{
		"js/Init.js": "mRequires('Gone');<init>",
	})
	l := loader.NewLoader(resolve.Namespaces{"": "js/"}, loader.ReaderFetcher{Reader: bundler.FSReader{FS: files}}, rec.apply)

	err := l.Require(context.Background(), "Init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required from js/Init.js")
	assert.Empty(t, rec.modules)
}

func TestLoader_Errors(t *testing.T) {
	t.Run("no default namespace", func(t *testing.T) {
		l, _ := newLoader(resolve.Namespaces{"SeeMe": "js/"})
		err := l.Require(context.Background(), "Lang")
		var cfgErr *resolve.ConfigurationError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("apply error", func(t *testing.T) {
		l, rec := newLoader(resolve.Namespaces{"": "js/"})
		rec.err = errors.New("eval failed")
		err := l.Require(context.Background(), "Lang")
		assert.ErrorContains(t, err, "eval failed")
	})

	t.Run("cancelled context", func(t *testing.T) {
		l, rec := newLoader(resolve.Namespaces{"": "js/"})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, l.Require(ctx, "Lang"), context.Canceled)
		assert.Empty(t, rec.modules)
	})
}

func TestLoader_CustomDirective(t *testing.T) {
	rec := &recorder{}
	files := mapFS(map[string]string{
		"js/Init.js": "load('Lang');mRequires('Ignored');<init>",
		"js/Lang.js": "<lang>",
	})
	l := loader.NewLoader(resolve.Namespaces{"": "js/"},
		loader.ReaderFetcher{Reader: bundler.FSReader{FS: files}}, rec.apply,
		loader.WithLoaderDirective("load"))

	require.NoError(t, l.Require(context.Background(), "Init"))
	assert.Equal(t, []string{"js/Lang.js", "js/Init.js"}, rec.paths())
}

func TestLoader_OverHTTP(t *testing.T) {
	ns := resolve.Namespaces{"": "js/"}
	s, _ := newServer(t, ns)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	rec := &recorder{}
	l := loader.NewLoader(ns, loader.HTTPFetcher{BaseURL: ts.URL + "/", Client: ts.Client()}, rec.apply)

	require.NoError(t, l.Require(context.Background(), "Init"))
	assert.Equal(t, []string{"js/Lang.js", "js/Haa/Haa.css", "js/View.js", "js/Init.js"}, rec.paths())
	assert.Equal(t, "<lang>", rec.modules[0].Source)

	err := l.Require(context.Background(), "Gone")
	var fetchErr *loader.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusNotFound, fetchErr.Status)
}

func TestLoader_HTTPPathMismatch(t *testing.T) {
	// server knows the module under a different directory than the client
	s, _ := newServer(t, resolve.Namespaces{"": "js/", "SeeMe": "js/"})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	rec := &recorder{}
	l := loader.NewLoader(resolve.Namespaces{"": "js/", "SeeMe": "lib/"}, loader.HTTPFetcher{BaseURL: ts.URL}, rec.apply)

	err := l.Require(context.Background(), "SeeMe.Lang")
	assert.ErrorContains(t, err, "expected lib/Lang.js")
	assert.Empty(t, rec.modules)
}

func TestLoader_ApplyMayRequire(t *testing.T) {
	f := loader.ReaderFetcher{Reader: bundler.FSReader{FS: mapFS(fixture)}}
	var (
		l       *loader.Loader
		applied []string
	)
	// Evaluating Lang asks for View at run time, the way a script calls
	// mRequires from inside a loaded module.
	l = loader.NewLoader(resolve.Namespaces{"": "js/"}, f, func(m loader.Module) error {
		applied = append(applied, m.Path)
		if m.Path == "js/Lang.js" {
			return l.Require(context.Background(), "View")
		}
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- l.Require(context.Background(), "Lang") }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Require called from apply did not return")
	}
	assert.Equal(t, []string{"js/Lang.js", "js/Haa/Haa.css", "js/View.js"}, applied)
	assert.Equal(t, []string{"js/Lang.js", "js/View.js", "js/Haa/Haa.css"}, l.Loaded())
}
