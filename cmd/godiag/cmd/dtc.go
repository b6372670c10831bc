package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var readDTCsCmd = &cobra.Command{
	Use:   "read-dtcs",
	Short: "read stored or pending DTCs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pending, _ := cmd.Flags().GetBool("pending")
		d, _, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		dtcs, err := d.ReadDTCs(cmd.Context(), pending)
		if err != nil {
			return err
		}
		if len(dtcs) == 0 {
			color.Green("no DTCs")
			return nil
		}
		for _, dtc := range dtcs {
			fmt.Println(dtc.String())
		}
		return nil
	},
}

var clearDTCsCmd = &cobra.Command{
	Use:   "clear-dtcs",
	Short: "clear all DTCs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirm(cmd, "Clear all DTCs and freeze frames?") {
			return nil
		}
		d, _, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		if err := d.ClearDTCs(cmd.Context()); err != nil {
			return err
		}
		color.Green("DTCs cleared")
		return nil
	},
}

func init() {
	readDTCsCmd.Flags().Bool("pending", false, "read pending instead of stored DTCs")
	rootCmd.AddCommand(readDTCsCmd, clearDTCsCmd)
}
