package cmd

import (
	"github.com/roffe/godiag/adapter"
	"github.com/roffe/godiag/pkg/kline"
	"github.com/spf13/cobra"
)

var testHardwareCmd = &cobra.Command{
	Use:   "test-hardware",
	Short: "send 0x55 on the K-line UART, or dump what it receives",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		transmit, _ := cmd.Flags().GetBool("transmit")
		cfg, err := newConfig(cmd)
		if err != nil {
			return err
		}
		baudrate := cfg.Baudrate
		if baudrate == 0 {
			baudrate = kline.KnownBaudRates[len(kline.KnownBaudRates)-1]
		}
		port, err := adapter.NewKLine(cfg).OpenUART(baudrate)
		if err != nil {
			return err
		}
		defer port.Close()
		return kline.TestHardware(cmd.Context(), cfg, port, transmit)
	},
}

func init() {
	testHardwareCmd.Flags().Bool("transmit", false, "transmit instead of receive")
	rootCmd.AddCommand(testHardwareCmd)
}
