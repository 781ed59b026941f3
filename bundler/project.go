package bundler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
)

// Project is a set of targets built against one root directory. It keeps
// the dependency set of each target's last successful build, so a change
// only rebuilds the targets that include the changed file.
type Project struct {
	b       *Bundler
	root    string
	targets []Target

	// OnBuild, when set, is called after every target build.
	OnBuild func(t Target, r *Result, err error)

	mu       sync.Mutex
	deps     []map[string]struct{} // nil entry: never built successfully
	outputs  map[string]struct{}
	manifest map[string]string
}

func NewProject(b *Bundler, root string, targets []Target) *Project {
	return &Project{
		b:        b,
		root:     root,
		targets:  targets,
		deps:     make([]map[string]struct{}, len(targets)),
		outputs:  make(map[string]struct{}),
		manifest: make(map[string]string),
	}
}

// Targets returns the configured targets.
func (p *Project) Targets() []Target { return p.targets }

// BuildAll builds every target. A failing target does not stop the others;
// their errors are joined.
func (p *Project) BuildAll(ctx context.Context) error {
	all := make([]int, len(p.targets))
	for i := range all {
		all[i] = i
	}
	return p.build(ctx, all)
}

// Rebuild builds the targets affected by changed (absolute paths) and
// returns how many it built.
func (p *Project) Rebuild(ctx context.Context, changed []string) (int, error) {
	idx := p.Affected(changed)
	if len(idx) == 0 {
		return 0, nil
	}
	return len(idx), p.build(ctx, idx)
}

// Affected returns the indexes of targets that depend on any of changed.
// Targets without a successful build are always affected. Files the
// project wrote itself never count as changes.
func (p *Project) Affected(changed []string) []int {
	p.mu.Lock()
	defer p.mu.Unlock()

	var real []string
	for _, c := range changed {
		c = filepath.Clean(c)
		if _, own := p.outputs[c]; !own {
			real = append(real, c)
		}
	}
	if len(real) == 0 {
		return nil
	}

	var idx []int
	for i, deps := range p.deps {
		if deps == nil {
			idx = append(idx, i)
			continue
		}
		for _, c := range real {
			if _, ok := deps[c]; ok {
				idx = append(idx, i)
				break
			}
		}
	}
	return idx
}

func (p *Project) build(ctx context.Context, idx []int) error {
	var errs []error
	for _, i := range idx {
		t := p.targets[i]
		res, err := p.b.Build(ctx, t, p.root)
		if p.OnBuild != nil {
			p.OnBuild(t, res, err)
		}
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			p.mu.Lock()
			p.deps[i] = nil
			p.mu.Unlock()
			errs = append(errs, err)
			continue
		}
		p.record(i, res)
	}
	return errors.Join(errs...)
}

func (p *Project) record(i int, res *Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	deps := make(map[string]struct{}, len(res.Files))
	for _, f := range res.Files {
		deps[p.abs(f)] = struct{}{}
	}
	// copied images
	for _, img := range res.Images {
		deps[p.abs(img)] = struct{}{}
	}
	p.deps[i] = deps

	for _, out := range res.Outputs {
		p.outputs[filepath.Clean(out)] = struct{}{}
	}
	for k, v := range res.Manifest {
		p.manifest[k] = v
		p.outputs[filepath.Clean(outputPath(p.root, k))] = struct{}{}
	}
}

func (p *Project) abs(f string) string {
	fp := filepath.FromSlash(f)
	if filepath.IsAbs(fp) {
		return filepath.Clean(fp)
	}
	return filepath.Join(p.root, fp)
}

// Manifest returns the merged manifest of every successful build.
func (p *Project) Manifest() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]string, len(p.manifest))
	for k, v := range p.manifest {
		out[k] = v
	}
	return out
}

// Describe returns one "entry -> outputs" line per target.
func (p *Project) Describe() []string {
	lines := make([]string, 0, len(p.targets))
	for _, t := range p.targets {
		var outs []string
		for _, m := range Modes() {
			if o, ok := t.Outputs[m]; ok && o != "" {
				outs = append(outs, o)
			}
		}
		lines = append(lines, fmt.Sprintf("%s -> %v", t.Entry, outs))
	}
	return lines
}
