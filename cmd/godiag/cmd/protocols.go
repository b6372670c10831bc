package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/roffe/godiag"
	"github.com/spf13/cobra"
)

var protocolsCmd = &cobra.Command{
	Use:   "protocols",
	Short: "list available protocols",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, p := range godiag.ListProtocols() {
			fmt.Printf("%-10s %s\n", color.CyanString(p.Name), p.Description)
			fmt.Printf("%-10s %s\n", "", p.Capabilities.String())
		}
	},
}

func init() {
	rootCmd.AddCommand(protocolsCmd)
}
