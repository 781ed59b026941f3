package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YoungY620/mrequires/core/resolve"
)

var resolveCmd = &cobra.Command{
	Use:     "resolve NAME...",
	Short:   "Print the path a module name resolves to",
	Example: `  mrequires resolve SeeMe.bar.baz SeeMe.bar.baz.css`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runResolve,
}

func init() {
	resolveCmd.Flags().StringVarP(&confFlag, "conf", "C", "", "namespace paths: Namespace1:path1,NS2:path2,:default/path")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	workDir, err := resolveWorkDir()
	if err != nil {
		return err
	}
	ns, err := parseConf()
	if err != nil {
		return err
	}
	cfg, err := loadConfigAndSetup(workDir, ns, "", false)
	if err != nil {
		return err
	}

	for _, name := range args {
		p, err := resolve.Resolve(name, cfg.Namespaces)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}
