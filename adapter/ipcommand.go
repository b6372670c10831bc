package adapter

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/roffe/godiag"
)

// IPCommand brings interfaces up and down with iproute2, through sudo when
// not running as root.
type IPCommand struct {
	cfg *godiag.Config
}

func NewIPCommand(cfg *godiag.Config) godiag.LinkController {
	return &IPCommand{cfg: cfg}
}

func (c *IPCommand) Up(ctx context.Context, iface string, bitrate int) error {
	return c.runAsRoot(ctx, "ip", "link", "set", iface, "up", "type", "can", "bitrate", strconv.Itoa(bitrate))
}

func (c *IPCommand) Down(ctx context.Context, iface string) error {
	return c.runAsRoot(ctx, "ip", "link", "set", iface, "down")
}

func (c *IPCommand) runAsRoot(ctx context.Context, name string, args ...string) error {
	if os.Geteuid() != 0 {
		args = append([]string{name}, args...)
		name = "sudo"
	}
	c.cfg.Debugf("$ %s %s", name, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return nil
}
