// Package cmd implements the anchorcluster command-line tool: a thin Cobra
// wrapper over the github.com/anchorcluster/anchorcluster engine exposing
// every option in its flag table, plus a standalone scan-distance pre-pass.
package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var log = logrus.New()

var rootCmd = &cobra.Command{
	Use:   "anchorcluster",
	Short: "Online single-pass anchor-and-radius clustering over streams of numeric frames",
}

// Execute runs the root command, exiting the process with status 1 on
// error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scandistCmd)
	rootCmd.AddCommand(versionCmd)
}
