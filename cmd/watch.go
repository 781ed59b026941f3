package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/YoungY620/mrequires/bundler/state"
	"github.com/YoungY620/mrequires/core/watcher"
	"github.com/YoungY620/mrequires/internal"
)

var skipBuild bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Build every target, then rebuild when sources change",
	Long: `Builds every target in mrequires.yaml, then watches the project directory
and rebuilds the targets whose dependencies changed. Namespace directories
outside the project directory (such as ../lib/js/) are watched as well.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&skipBuild, "skip-build", false, "skip the initial build of all targets")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	workDir, err := resolveWorkDir()
	if err != nil {
		return err
	}

	cfg, err := loadConfigAndSetup(workDir, nil, "", true)
	if err != nil {
		return err
	}
	project, err := newProject(cfg)
	if err != nil {
		return err
	}

	stateDir := cfg.StatePath()
	if err := state.Init(stateDir); err != nil {
		return err
	}

	// Acquire single instance lock
	lockFile, err := state.TryLock(stateDir)
	if err != nil {
		return err
	}
	defer state.Unlock(lockFile)

	internal.InitHistoryLogger(stateDir, "watch")
	defer internal.CloseHistoryLogger()

	// Ensure status is idle on startup and exit
	if err := state.SetStatus(stateDir, state.StatusIdle, nil); err != nil {
		internal.LogError("Failed to set initial status: %v", err)
	}
	defer func() {
		if err := state.SetStatus(stateDir, state.StatusIdle, nil); err != nil {
			internal.LogError("Failed to reset status on exit: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := watcher.New(watcher.Config{
		Root:        cfg.Root,
		Extra:       namespaceDirsOutside(cfg),
		IgnoreGlobs: cfg.Watch.IgnorePatterns,
		Extensions:  cfg.Watch.Extensions,
		Debounce:    ms(cfg.Watch.DebounceMs),
		MaxWait:     ms(cfg.Watch.MaxWaitMs),
		Logger:      internal.Logger("watcher"),
	}, func(files []string) {
		internal.LogInfo("Triggered with %d changed files", len(files))
		internal.LogDebug("Changed files: %v", files)
		_ = runTracked(stateDir, project, func() error {
			n, err := project.Rebuild(ctx, files)
			if err == nil && n == 0 {
				internal.LogDebug("No target depends on the changed files")
			}
			return err
		})
	})
	if err != nil {
		return err
	}
	defer w.Close()

	state.PrintBanner(os.Stderr, state.BannerOptions{
		WorkDir: cfg.Root,
		Version: Version,
		Lines:   project.Describe(),
	})

	if !skipBuild {
		// Failures are logged by the project; keep watching so a fix rebuilds.
		_ = runTracked(stateDir, project, func() error {
			return project.BuildAll(ctx)
		})
	} else {
		internal.LogInfo("Skipping initial build (--skip-build)")
	}

	internal.LogNotice("Watching %s", cfg.Root)
	if err := w.Run(ctx); err != nil {
		internal.LogError("Watcher error: %v", err)
		return err
	}
	internal.LogInfo("Shutting down...")
	return nil
}
