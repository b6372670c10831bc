package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/roffe/godiag"
	"github.com/spf13/cobra"
)

var adaptationCmd = &cobra.Command{
	Use:   "adaptation",
	Short: "KWP1281 adaptation channels",
}

var adaptationReadCmd = &cobra.Command{
	Use:   "read <channel>",
	Short: "read an adaptation channel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		channel, err := parseByte(args[0])
		if err != nil {
			return err
		}
		a, closeFn, err := openAdaptation(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		data, err := a.ReadAdaptation(cmd.Context(), channel)
		if err != nil {
			return err
		}
		fmt.Printf("%02X: % X\n", channel, data)
		return nil
	},
}

var adaptationWriteCmd = &cobra.Command{
	Use:   "write <channel> <value>",
	Short: "write a 16 bit value to an adaptation channel",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		channel, err := parseByte(args[0])
		if err != nil {
			return err
		}
		value, err := parseUint16(args[1])
		if err != nil {
			return err
		}
		test, _ := cmd.Flags().GetBool("test")
		if !test && !confirm(cmd, fmt.Sprintf("Write % X to channel 0x%02X?", value, channel)) {
			return nil
		}

		a, closeFn, err := openAdaptation(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		data, err := a.WriteAdaptation(cmd.Context(), channel, value, test)
		if err != nil {
			return err
		}
		if test {
			color.Cyan("test value accepted")
		} else {
			color.Green("value written")
		}
		fmt.Printf("%02X: % X\n", channel, data)
		return nil
	},
}

func openAdaptation(cmd *cobra.Command) (godiag.Adaptation, func() error, error) {
	d, _, err := openSession(cmd)
	if err != nil {
		return nil, nil, err
	}
	a, ok := d.(godiag.Adaptation)
	if !ok {
		d.Close()
		return nil, nil, fmt.Errorf("adaptation: %w", godiag.ErrUnsupported)
	}
	return a, d.Close, nil
}

func init() {
	adaptationWriteCmd.Flags().Bool("test", false, "only test the value, do not store it")
	adaptationCmd.AddCommand(adaptationReadCmd, adaptationWriteCmd)
	rootCmd.AddCommand(adaptationCmd)
}
