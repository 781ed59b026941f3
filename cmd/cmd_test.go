package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoungY620/mrequires/bundler/state"
	"github.com/YoungY620/mrequires/core/config"
	"github.com/YoungY620/mrequires/core/resolve"
)

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	return dir
}

// execute runs the root command with fresh flag values.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	pathFlag, logLevel, configFlag = "", "", config.DefaultFile
	typeFlag, confFlag, addrFlag, skipBuild = "", "", "", false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	err := rootCmd.Execute()
	return out.String(), err
}

var site = map[string]string{
	"js/Init.js":     "mRequires('View');mRequires('Foo.css');<init>",
	"js/View.js":     "mRequires('Lang');<view>",
	"js/Lang.js":     "<lang>",
	"js/Foo.css":     "#foo{background:url(img/foo.jpg)}",
	"lib/foo/Bar.js": "<bar>",
	"js/Uses.js":     "mRequires('Foo.Bar');<uses>",
}

func TestBuildFile(t *testing.T) {
	dir := writeProject(t, site)

	cases := []struct {
		name string
		args []string
		want string
	}{
		{"js", []string{"build", "-p", dir, "js/Init.js"}, "<lang><view><init>\n"},
		{"jsfiles", []string{"build", "-p", dir, "-t", "jsfiles", "js/Init.js"}, "js/Init.js\njs/View.js\njs/Lang.js\n"},
		{"css", []string{"build", "-p", dir, "--type=css", "js/Init.js"}, "#foo{background:url('foo.jpg')}\n"},
		{"img", []string{"build", "-p", dir, "-t", "img", "js/Init.js"}, "js/img/foo.jpg\n"},
		{"namespaces", []string{"build", "-p", dir, "-C", "Foo:lib/foo,:js", "js/Uses.js"}, "<bar><uses>\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := execute(t, tc.args...)
			require.NoError(t, err)
			assert.Equal(t, tc.want, out)
		})
	}
}

func TestBuildFileErrors(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"js/Init.js":   "mRequires('Gone');<init>",
		"js/Broken.js": "mRequires('Lang'",
	})

	out, err := execute(t, "build", "-p", dir, "js/Init.js")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file not found: js/Gone.js")
	assert.Empty(t, out, "nothing is printed on failure")

	_, err = execute(t, "build", "-p", dir, "js/Broken.js")
	assert.ErrorContains(t, err, "malformed directive")

	_, err = execute(t, "build", "-p", dir, "-t", "pdf", "js/Init.js")
	assert.ErrorContains(t, err, "unknown mode")

	_, err = execute(t, "build", "-p", dir, "-C", "Foo:lib/foo", "js/Init.js")
	var cfgErr *resolve.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)

	_, err = execute(t, "build", "-p", dir, "-C", "nocolon", "js/Init.js")
	assert.ErrorAs(t, err, &cfgErr)
}

func TestBuildTargets(t *testing.T) {
	files := map[string]string{
		"mrequires.yaml": `namespaces:
  "": js
targets:
  - entry: js/Init.js
    js: dist/app.js
    css: dist/app.css
    jsfiles: dist/files.txt
    copy_images: true
`,
		"js/img/foo.jpg": "FOO",
	}
	for k, v := range site {
		files[k] = v
	}
	dir := writeProject(t, files)

	out, err := execute(t, "build", "-p", dir)
	require.NoError(t, err)
	assert.Empty(t, out)

	app, err := os.ReadFile(filepath.Join(dir, "dist", "app.js"))
	require.NoError(t, err)
	assert.Equal(t, "<lang><view><init>", string(app))
	assert.FileExists(t, filepath.Join(dir, "dist", "foo.jpg"))

	data, err := os.ReadFile(filepath.Join(dir, config.StateDir, "manifest.json"))
	require.NoError(t, err)
	var manifest map[string]string
	require.NoError(t, json.Unmarshal(data, &manifest))
	assert.Len(t, manifest, 4)
	assert.Contains(t, manifest, "dist/app.js")

	assert.Equal(t, state.StatusIdle, state.GetStatus(filepath.Join(dir, config.StateDir)).Status)
	assert.FileExists(t, filepath.Join(dir, config.StateDir, ".history"))
}

func TestBuildTargetsErrors(t *testing.T) {
	dir := writeProject(t, site)
	_, err := execute(t, "build", "-p", dir)
	assert.ErrorContains(t, err, "no targets")

	_, err = execute(t, "build", "-p", dir, "-t", "css")
	assert.ErrorContains(t, err, "--type applies to a single file")

	dir = writeProject(t, map[string]string{
		"mrequires.yaml": "targets:\n  - entry: js/Init.js\n",
	})
	_, err = execute(t, "build", "-p", dir)
	assert.ErrorContains(t, err, "at least one of js/css/img/jsfiles required")

	dir = writeProject(t, map[string]string{
		"mrequires.yaml": "unknown_key: 1\n",
	})
	_, err = execute(t, "build", "-p", dir)
	assert.Error(t, err)

	dir = writeProject(t, map[string]string{
		"mrequires.yaml": "targets:\n  - entry: js/Gone.js\n    js: dist/app.js\n",
	})
	_, err = execute(t, "build", "-p", dir)
	assert.ErrorContains(t, err, "file not found: js/Gone.js")
	assert.Contains(t, state.GetStatus(filepath.Join(dir, config.StateDir)).LastError, "file not found: js/Gone.js")
}

func TestResolveCommand(t *testing.T) {
	dir := writeProject(t, nil)
	out, err := execute(t, "resolve", "-p", dir, "-C", "SeeMe:js/,:../lib/js/", "SeeMe.bar.baz", "SeeMe.bar.baz.css", "Median.foobar", "bar.JS")
	require.NoError(t, err)
	assert.Equal(t, "js/bar/baz.js\njs/bar/baz.css\n../lib/js/Median/foobar.js\n../lib/js/bar/JS.js\n", out)

	_, err = execute(t, "resolve", "-p", dir)
	assert.Error(t, err)
}

func TestPuts(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, puts(&buf, ""))
	require.NoError(t, puts(&buf, "a"))
	require.NoError(t, puts(&buf, "b\n"))
	assert.Equal(t, "\na\nb\n", buf.String())
}

func TestNamespaceDirsOutside(t *testing.T) {
	top := t.TempDir()
	root := filepath.Join(top, "app")
	shared := filepath.Join(top, "shared")
	cfg := &config.Config{
		Root: root,
		Namespaces: map[string]string{
			"":    "js",
			"Lib": "../lib/js/",
			"Dup": "../lib/js",
			"Abs": filepath.ToSlash(shared),
			"Dot": "..vendor/js",
			"In":  "js/../lib",
		},
	}
	assert.Equal(t, []string{filepath.Join(top, "lib", "js"), shared}, namespaceDirsOutside(cfg))
}

func TestNamespaceFlagShorthand(t *testing.T) {
	// -c is the config file, so the namespace flag takes -C on every command.
	assert.Equal(t, "c", rootCmd.PersistentFlags().Lookup("config").Shorthand)
	for _, c := range []*cobra.Command{buildCmd, resolveCmd, serveCmd} {
		f := c.Flags().Lookup("conf")
		require.NotNil(t, f, c.Name())
		assert.Equal(t, "C", f.Shorthand, c.Name())
	}
}
