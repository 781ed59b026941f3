package bundler_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/YoungY620/mrequires/bundler"
	"github.com/YoungY620/mrequires/core/resolve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProject(t *testing.T, targets ...bundler.Target) (*bundler.Project, string) {
	t.Helper()
	root := t.TempDir()
	tree := siteTree()
	tree["js/Other.js"] = "<other>"
	writeTree(t, root, tree)

	b := bundler.New(resolve.Namespaces{"": "js"}, bundler.DirReader{Root: root})
	return bundler.NewProject(b, root, targets), root
}

func jsTarget(entry, out string) bundler.Target {
	return bundler.Target{Entry: entry, Outputs: map[bundler.Mode]string{bundler.ModeJS: out}}
}

func TestProjectBuildAllAndAffected(t *testing.T) {
	p, root := newProject(t,
		jsTarget("js/Init.js", "dist/app.js"),
		jsTarget("js/Other.js", "dist/other.js"),
	)

	var built []string
	p.OnBuild = func(t bundler.Target, r *bundler.Result, err error) {
		built = append(built, t.Entry)
	}

	require.NoError(t, p.BuildAll(context.Background()))
	assert.Equal(t, []string{"js/Init.js", "js/Other.js"}, built)
	assert.Equal(t, "<view><init>", readFile(t, filepath.Join(root, "dist/app.js")))
	assert.Equal(t, sha("<other>"), p.Manifest()["dist/other.js"])

	in := func(rel string) string { return filepath.Join(root, filepath.FromSlash(rel)) }
	assert.Equal(t, []int{0}, p.Affected([]string{in("js/View.js")}))
	assert.Equal(t, []int{0}, p.Affected([]string{in("js/Haa/Haa.css")}), "stylesheets are dependencies too")
	assert.Equal(t, []int{1}, p.Affected([]string{in("js/Other.js")}))
	assert.Equal(t, []int{0, 1}, p.Affected([]string{in("js/Other.js"), in("js/Init.js")}))
	assert.Empty(t, p.Affected([]string{in("dist/app.js")}), "own outputs never trigger a rebuild")
	assert.Empty(t, p.Affected([]string{in("js/unrelated.jpg")}))
}

func TestProjectRebuild(t *testing.T) {
	p, root := newProject(t,
		jsTarget("js/Init.js", "dist/app.js"),
		jsTarget("js/Other.js", "dist/other.js"),
	)
	ctx := context.Background()
	require.NoError(t, p.BuildAll(ctx))

	view := filepath.Join(root, "js", "View.js")
	require.NoError(t, os.WriteFile(view, []byte("mRequires('Other');<view2>"), 0o644))

	n, err := p.Rebuild(ctx, []string{view})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "<other><view2><init>", readFile(t, filepath.Join(root, "dist/app.js")))

	// the new dependency is tracked after the rebuild
	assert.Equal(t, []int{0, 1}, p.Affected([]string{filepath.Join(root, "js", "Other.js")}))

	n, err = p.Rebuild(ctx, []string{filepath.Join(root, "dist", "app.js")})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestProjectFailingTarget(t *testing.T) {
	p, root := newProject(t,
		jsTarget("js/Gone.js", "dist/gone.js"),
		jsTarget("js/Other.js", "dist/other.js"),
	)

	err := p.BuildAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file not found: js/Gone.js")
	assert.FileExists(t, filepath.Join(root, "dist/other.js"), "other targets still build")
	assert.NoFileExists(t, filepath.Join(root, "dist/gone.js"))

	// a target that never built is rebuilt on any change
	assert.Equal(t, []int{0}, p.Affected([]string{filepath.Join(root, "js", "View.js")}))
}

func TestProjectDescribe(t *testing.T) {
	p, _ := newProject(t, bundler.Target{
		Entry: "js/Init.js",
		Outputs: map[bundler.Mode]string{
			bundler.ModeCSS: "dist/app.css",
			bundler.ModeJS:  "dist/app.js",
		},
	})
	assert.Equal(t, []string{"js/Init.js -> [dist/app.js dist/app.css]"}, p.Describe())
	assert.Len(t, p.Targets(), 1)
}
