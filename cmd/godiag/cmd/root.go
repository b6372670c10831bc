package cmd

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/roffe/godiag"
	"github.com/roffe/godiag/adapter"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "godiag",
	Short:        "OBD2 diagnostics over CAN, KWP2000 and KWP1281",
	Long:         `Read and clear DTCs, read live data and adaptation channels over SocketCAN or a bit-banged K-line`,
	SilenceUsage: true,
}

// Execute runs the command line, it is called by main.main.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

const (
	flagProtocol      = "protocol"
	flagAddress       = "address"
	flagTargetAddress = "target-address"
	flagBaudrate      = "baudrate"
	flagPort          = "port"
	flagCANRate       = "can-rate"
	flagInterface     = "interface"
	flagLinkMode      = "link-mode"
	flagWorkshopCode  = "workshop-code"
	flagDebug         = "debug"
	flagYes           = "yes"
)

// airbagAddress is the K-line init address of the airbag module.
const airbagAddress = 0x15

func init() {
	log.SetFlags(log.Lshortfile | log.LstdFlags)

	pf := rootCmd.PersistentFlags()
	pf.StringP(flagProtocol, "P", "can", "protocol, see the protocols command")
	pf.StringP(flagAddress, "a", "0x01", "K-line init address")
	pf.String(flagTargetAddress, "", "KWP2000 target address, derived from the init address when empty")
	pf.IntP(flagBaudrate, "b", 0, "K-line baudrate, 0 = measure")
	pf.StringP(flagPort, "p", godiag.DefaultPort, "K-line UART device")
	pf.Int(flagCANRate, godiag.DefaultCANRate, "CAN bitrate")
	pf.StringP(flagInterface, "i", godiag.DefaultInterface, "CAN interface")
	pf.String(flagLinkMode, godiag.LinkModeIP, "how to bring the CAN interface up, one of: "+strings.Join(adapter.ListLinkModes(), ", "))
	pf.Uint32(flagWorkshopCode, 0, "workshop code used for KWP1281 adaptation writes")
	pf.BoolP(flagDebug, "d", false, "debug mode")
	pf.BoolP(flagYes, "y", false, "do not ask for confirmation")
}

func newConfig(cmd *cobra.Command) (*godiag.Config, error) {
	pf := cmd.Flags()
	address, err := parseByte(mustString(pf.GetString(flagAddress)))
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", flagAddress, err)
	}
	var target byte
	if s := mustString(pf.GetString(flagTargetAddress)); s != "" {
		if target, err = parseByte(s); err != nil {
			return nil, fmt.Errorf("--%s: %w", flagTargetAddress, err)
		}
	}
	baudrate, _ := pf.GetInt(flagBaudrate)
	canRate, _ := pf.GetInt(flagCANRate)
	workshop, _ := pf.GetUint32(flagWorkshopCode)
	debug, _ := pf.GetBool(flagDebug)

	cfg := &godiag.Config{
		Debug:         debug,
		Address:       address,
		TargetAddress: target,
		Baudrate:      baudrate,
		Port:          mustString(pf.GetString(flagPort)),
		WorkshopCode:  workshop,
		CANRate:       canRate,
		Interface:     mustString(pf.GetString(flagInterface)),
		LinkMode:      mustString(pf.GetString(flagLinkMode)),
		OnMessage: func(msg string) {
			log.Println(color.YellowString("[warn]"), msg)
		},
	}
	cfg.SetDefaults()
	return cfg, nil
}

// openSession initialises the selected protocol and prints what the ECU
// tells about itself.
func openSession(cmd *cobra.Command) (godiag.Diagnoser, *godiag.Config, error) {
	cfg, err := newConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	name, _ := cmd.Flags().GetString(flagProtocol)
	if p, ok := godiag.GetProtocol(name); ok && p.Capabilities.KLine && cfg.Address == airbagAddress {
		color.Red("0x%02X is the airbag module, talking to it may deploy or disable it", airbagAddress)
		if !confirm(cmd, "Continue?") {
			return nil, nil, fmt.Errorf("aborted")
		}
	}

	d, err := godiag.NewProtocol(cmd.Context(), name, cfg)
	if err != nil {
		return nil, nil, err
	}

	if v, ok := d.(godiag.VINReader); ok {
		if vin, err := v.VIN(cmd.Context()); err != nil {
			cfg.Messagef("could not read VIN: %v", err)
		} else {
			fmt.Printf("%s %s\n", color.CyanString("VIN:"), vin)
		}
	}
	if e, ok := d.(interface{ ECUData() []byte }); ok {
		fmt.Printf("%s %s\n", color.CyanString("ECU:"), strings.TrimSpace(string(e.ECUData())))
	}
	return d, cfg, nil
}

func confirm(cmd *cobra.Command, label string) bool {
	if yes, _ := cmd.Flags().GetBool(flagYes); yes {
		return true
	}
	fmt.Println(label)
	return yesNo()
}

func yesNo() bool {
	prompt := promptui.Select{
		Label:    "[Yes/No]",
		HideHelp: true,
		Items:    []string{"Yes", "No"},
	}
	_, result, err := prompt.Run()
	if err != nil {
		log.Fatalf("Prompt failed %v\n", err)
	}
	return result == "Yes"
}

// parseByte accepts decimal or 0x prefixed hex.
func parseByte(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, err
	}
	return byte(v), nil
}

// parseUint16 parses a 16 bit value as two bytes, most significant first.
func parseUint16(s string) ([2]byte, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return [2]byte{}, err
	}
	return [2]byte{byte(v >> 8), byte(v)}, nil
}

func mustString(s string, err error) string {
	if err != nil {
		log.Fatal(err)
	}
	return s
}
