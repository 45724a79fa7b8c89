package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sitenav/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the default configuration",
	Long:  `Prints the default configuration as TOML. Redirect it to ~/.config/sitenav/config.toml and edit.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(config.DefaultTOML())
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
