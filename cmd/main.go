package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "scout",
	Short: "A CLI for managing the EdTech Market Scout services",
	Long:  `EdTech Market Scout runs automated competitor research for education technology segments: an API service accepting research sessions, a worker service executing them, and a migration runner.`,
}

func main() {

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your CLI '%s'", err)
		os.Exit(1)
	}
}
