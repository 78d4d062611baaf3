package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the createrepo-go CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "createrepo-go",
		Short: "Generate RPM repository metadata (repodata/)",
		Long: `createrepo-go scans a directory of .rpm files and generates the
repodata/ metadata tree a yum/dnf client expects: primary.xml, filelists.xml,
other.xml, repomd.xml, and (optionally) their SQLite mirrors and a detached
repomd.xml signature.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}
		},
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(NewBuildCmd())

	return rootCmd
}
