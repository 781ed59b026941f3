package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/YoungY620/mrequires/bundler/state"
	"github.com/YoungY620/mrequires/internal"
	"github.com/YoungY620/mrequires/loader"
)

var addrFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve modules to a page that loads them at runtime",
	Long: `Starts an HTTP server that resolves module names the same way build does.
A page includes /mrequires.js and calls mRequires(...) to load modules one
file at a time during development.

Routes:
  /mrequires.js          browser loader, initialised with the namespaces
  /modules/{name}        module source by name
  /resolve/{name}        resolved path as JSON
  /bundle/{mode}?entry=  bundle built on demand
  /metrics, /healthz`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&addrFlag, "addr", "", "listen address (default from config, :8080)")
	serveCmd.Flags().StringVarP(&confFlag, "conf", "C", "", "namespace paths: Namespace1:path1,NS2:path2,:default/path")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	workDir, err := resolveWorkDir()
	if err != nil {
		return err
	}
	ns, err := parseConf()
	if err != nil {
		return err
	}
	cfg, err := loadConfigAndSetup(workDir, ns, addrFlag, false)
	if err != nil {
		return err
	}

	srv := loader.NewServer(newBundler(cfg), loader.WithServerLogger(internal.Logger("loader")))

	state.PrintBanner(os.Stderr, state.BannerOptions{
		WorkDir: cfg.Root,
		Version: Version,
		Lines:   []string{"listening on " + cfg.Serve.Addr, "client: /mrequires.js"},
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Serve(ctx, cfg.Serve.Addr)
}
