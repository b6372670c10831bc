package adapter

import (
	"context"

	"github.com/roffe/godiag"
	"go.einride.tech/can/pkg/candevice"
)

// Netlink configures the interface directly over netlink, which needs
// CAP_NET_ADMIN instead of sudo.
type Netlink struct {
	cfg *godiag.Config
}

func NewNetlink(cfg *godiag.Config) godiag.LinkController {
	return &Netlink{cfg: cfg}
}

func (n *Netlink) Up(_ context.Context, iface string, bitrate int) error {
	d, err := candevice.New(iface)
	if err != nil {
		return err
	}
	if err := d.SetBitrate(uint32(bitrate)); err != nil {
		return err
	}
	n.cfg.Debugf("netlink: %s up at %d bit/s", iface, bitrate)
	return d.SetUp()
}

func (n *Netlink) Down(_ context.Context, iface string) error {
	d, err := candevice.New(iface)
	if err != nil {
		return err
	}
	n.cfg.Debugf("netlink: %s down", iface)
	return d.SetDown()
}
