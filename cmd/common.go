package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/YoungY620/mrequires/bundler"
	"github.com/YoungY620/mrequires/bundler/state"
	"github.com/YoungY620/mrequires/core/config"
	"github.com/YoungY620/mrequires/core/resolve"
	"github.com/YoungY620/mrequires/internal"
)

// confFlag is the --conf namespace string shared by build, resolve and serve.
var confFlag string

// parseConf turns --conf into namespaces; empty means "use the config file".
func parseConf() (resolve.Namespaces, error) {
	if confFlag == "" {
		return nil, nil
	}
	return resolve.ParseNamespaces(confFlag)
}

// loadConfigAndSetup loads config, applies flags and sets up logging.
// Commands that build targets pass validate so a broken target list is
// reported before anything is written.
func loadConfigAndSetup(workDir string, ns resolve.Namespaces, addr string, validate bool) (*config.Config, error) {
	cfgPath := configFlag
	if cfgPath == "" {
		cfgPath = config.DefaultFile
	}
	if !filepath.IsAbs(cfgPath) {
		cfgPath = filepath.Join(workDir, cfgPath)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyOverrides("", logLevel, addr, ns)
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}

	// Flag takes precedence over config (applied above)
	internal.SetLogLevel(cfg.LogLevel)

	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%s:\n%s", cfgPath, config.FormatValidationErrors(err))
		}
	}
	internal.LogDebug("Config loaded: root=%s, namespaces=%v, directive=%s",
		cfg.Root, cfg.Namespaces, cfg.Directive)

	// Merge .gitignore patterns if found
	if err := cfg.MergeGitignore(cfg.Root); err != nil {
		internal.LogError("Failed to load .gitignore: %v", err)
	}
	internal.LogDebug("Total ignore patterns: %d", len(cfg.Watch.IgnorePatterns))

	return cfg, nil
}

func newBundler(cfg *config.Config) *bundler.Bundler {
	return bundler.New(
		resolve.Namespaces(cfg.Namespaces),
		bundler.DirReader{Root: cfg.Root},
		bundler.WithDirective(cfg.Directive),
		bundler.WithLogger(internal.Logger("bundler")),
	)
}

// targetsOf converts configured targets to bundler targets.
func targetsOf(cfg *config.Config) ([]bundler.Target, error) {
	targets := make([]bundler.Target, 0, len(cfg.Targets))
	for i, t := range cfg.Targets {
		bt := bundler.Target{
			Entry:      t.Entry,
			Outputs:    make(map[bundler.Mode]string),
			CopyImages: t.CopyImages,
		}
		for name, out := range t.Outputs() {
			mode, err := bundler.ParseMode(name)
			if err != nil {
				return nil, fmt.Errorf("targets[%d]: %w", i, err)
			}
			bt.Outputs[mode] = out
		}
		targets = append(targets, bt)
	}
	return targets, nil
}

// newProject wires the configured targets to logging and build history.
func newProject(cfg *config.Config) (*bundler.Project, error) {
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets in %s; add targets or pass a file to build", cfg.Source())
	}
	targets, err := targetsOf(cfg)
	if err != nil {
		return nil, err
	}

	p := bundler.NewProject(newBundler(cfg), cfg.Root, targets)
	p.OnBuild = func(t bundler.Target, r *bundler.Result, err error) {
		rec := internal.BuildRecord{Entry: t.Entry, Mode: modeList(t), Err: err}
		if err != nil {
			internal.LogError("Build %s failed: %v", t.Entry, err)
		} else {
			rec.Files = r.Files
			rec.Duration = r.Duration
			internal.LogInfo("Built %s: %d files in %s", t.Entry, len(r.Files), r.Duration.Round(time.Millisecond))
		}
		internal.LogBuild(rec)
	}
	return p, nil
}

// runTracked marks stateDir as building while fn runs, then records the
// outcome and the merged manifest.
func runTracked(stateDir string, p *bundler.Project, fn func() error) error {
	if err := state.SetStatus(stateDir, state.StatusBuilding, nil); err != nil {
		internal.LogError("Failed to set status: %v", err)
	}
	err := fn()
	if serr := state.SetStatus(stateDir, state.StatusIdle, err); serr != nil {
		internal.LogError("Failed to set status: %v", serr)
	}
	if merr := bundler.WriteManifest(stateDir, p.Manifest()); merr != nil {
		internal.LogError("Failed to write manifest: %v", merr)
	}
	return err
}

func modeList(t bundler.Target) string {
	var modes []string
	for _, m := range bundler.Modes() {
		if _, ok := t.Outputs[m]; ok {
			modes = append(modes, m.String())
		}
	}
	return strings.Join(modes, ",")
}

// namespaceDirsOutside returns the namespace directories that are not under
// cfg.Root, sorted. watch adds them so edits to shared libraries rebuild too.
func namespaceDirsOutside(cfg *config.Config) []string {
	var dirs []string
	for _, base := range cfg.Namespaces {
		dir := filepath.FromSlash(base)
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(cfg.Root, dir)
		}
		dir = filepath.Clean(dir)
		rel, err := filepath.Rel(cfg.Root, dir)
		if err != nil || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
			continue
		}
		if !slices.Contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	return dirs
}

// puts writes s followed by a newline unless it already ends with one.
func puts(w io.Writer, s string) error {
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	_, err := io.WriteString(w, s)
	return err
}

// ms converts a millisecond config value.
func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}
