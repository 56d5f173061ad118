package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is stamped by the build (-ldflags "-X main.version=...").
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the routermedic version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("routermedic %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
