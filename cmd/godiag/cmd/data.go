package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/roffe/godiag"
	"github.com/roffe/godiag/pkg/bar"
	"github.com/spf13/cobra"
)

var readDataCmd = &cobra.Command{
	Use:   "read-data <pid>",
	Short: "read a PID, or a measuring block group on KWP1281",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := parseByte(args[0])
		if err != nil {
			return err
		}
		freeze, _ := cmd.Flags().GetBool("freeze")
		tail, _ := cmd.Flags().GetBool("tail")
		interval, _ := cmd.Flags().GetDuration("interval")
		csvFile, _ := cmd.Flags().GetString("csv")

		d, _, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		if !tail {
			data, err := d.ReadData(cmd.Context(), pid, freeze)
			if err != nil {
				return err
			}
			fmt.Printf("%02X: % X\n", pid, data)
			return nil
		}

		var w *csv.Writer
		if csvFile != "" {
			f, err := os.Create(csvFile)
			if err != nil {
				return err
			}
			defer f.Close()
			w = csv.NewWriter(f)
			defer w.Flush()
		}
		return tailData(cmd, d, pid, freeze, interval, w)
	},
}

// tailData reads pid until the command is cancelled, a failing read ends
// the tail.
func tailData(cmd *cobra.Command, d godiag.Diagnoser, pid byte, freeze bool, interval time.Duration, w *csv.Writer) error {
	ctx := cmd.Context()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		data, err := d.ReadData(ctx, pid, freeze)
		if err != nil {
			fmt.Println()
			return err
		}
		now := time.Now()
		bar.Overwrite("%s %02X: % X", now.Format("15:04:05.000"), pid, data)
		if w != nil {
			if err := w.Write([]string{now.Format(time.RFC3339Nano), fmt.Sprintf("%02X", pid), fmt.Sprintf("%X", data)}); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			fmt.Println()
			return nil
		case <-t.C:
		}
	}
}

var dumpDataCmd = &cobra.Command{
	Use:   "dump-data",
	Short: "read every PID from 0x00 to 0xFF",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		freeze, _ := cmd.Flags().GetBool("freeze")
		d, cfg, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		type result struct {
			pid  byte
			data []byte
		}
		var results []result
		pb := bar.New(0x100, "reading PIDs")
		err = godiag.Sweep(cmd.Context(), d, freeze, func(pid byte, data []byte, err error) {
			pb.Add(1)
			if err != nil {
				cfg.Debugf("PID 0x%02X: %v", pid, err)
				return
			}
			results = append(results, result{pid, data})
		})
		pb.Finish()
		for _, r := range results {
			fmt.Printf("%02X: % X\n", r.pid, r.data)
		}
		return err
	},
}

func init() {
	readDataCmd.Flags().Bool("tail", false, "keep reading until interrupted")
	readDataCmd.Flags().Duration("interval", 200*time.Millisecond, "time between reads when tailing")
	readDataCmd.Flags().String("csv", "", "log tailed values to a CSV file")
	for _, c := range []*cobra.Command{readDataCmd, dumpDataCmd} {
		c.Flags().Bool("freeze", false, "read freeze frame data")
	}
	rootCmd.AddCommand(readDataCmd, dumpDataCmd)
}
