package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/YoungY620/mrequires/bundler"
	"github.com/YoungY620/mrequires/bundler/state"
	"github.com/YoungY620/mrequires/core/resolve"
	"github.com/YoungY620/mrequires/internal"
)

var typeFlag string

var buildCmd = &cobra.Command{
	Use:   "build [file]",
	Short: "Bundle one file to stdout, or every configured target",
	Long: `With a file argument, follows its mRequires directives and prints the result
to stdout. The file is relative to the project directory.

Without arguments, builds every target in mrequires.yaml, writes the outputs
and records their sha256 in .mrequires/manifest.json.`,
	Example: `  mrequires build js/Init.js
  mrequires build -t css -C "SeeMe:js/,:../lib/js/" js/Init.js
  mrequires build`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&typeFlag, "type", "t", "", "result type for a single file: js, css, img, jsfiles (default js)")
	buildCmd.Flags().StringVarP(&confFlag, "conf", "C", "", "namespace paths: Namespace1:path1,NS2:path2,:default/path")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	workDir, err := resolveWorkDir()
	if err != nil {
		return err
	}
	ns, err := parseConf()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		if typeFlag != "" {
			return errors.New("--type applies to a single file; targets name their outputs")
		}
		return buildTargets(cmd, workDir, ns)
	}

	mode := bundler.ModeJS
	if typeFlag != "" {
		if mode, err = bundler.ParseMode(typeFlag); err != nil {
			return err
		}
	}

	cfg, err := loadConfigAndSetup(workDir, ns, "", false)
	if err != nil {
		return err
	}
	out, err := newBundler(cfg).Concat(args[0], mode)
	if err != nil {
		return err
	}
	return puts(cmd.OutOrStdout(), out)
}

func buildTargets(cmd *cobra.Command, workDir string, ns resolve.Namespaces) error {
	cfg, err := loadConfigAndSetup(workDir, ns, "", true)
	if err != nil {
		return err
	}
	p, err := newProject(cfg)
	if err != nil {
		return err
	}

	stateDir := cfg.StatePath()
	if err := state.Init(stateDir); err != nil {
		return err
	}
	internal.InitHistoryLogger(stateDir, "build")
	defer internal.CloseHistoryLogger()

	return runTracked(stateDir, p, func() error {
		return p.BuildAll(cmd.Context())
	})
}
