package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/safing/occbase/info"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of occbase",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(info.FullVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
