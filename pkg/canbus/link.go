package canbus

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/roffe/godiag"
)

const downTimeout = 5 * time.Second

// Link is a CAN network interface brought up by this process. Close brings
// it down again; a failure to do so is reported, never returned.
type Link struct {
	cfg   *godiag.Config
	ctrl  godiag.LinkController
	iface string
	once  sync.Once
}

// interfaceUp is replaced in tests.
var interfaceUp = func(iface string) bool {
	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		return false
	}
	return ifi.Flags&net.FlagUp != 0
}

// Up brings iface up at bitrate. It fails if the interface is already up,
// since it would then belong to someone else.
func Up(ctx context.Context, cfg *godiag.Config, ctrl godiag.LinkController, iface string, bitrate int) (*Link, error) {
	if interfaceUp(iface) {
		return nil, godiag.Initf("CAN interface %s is already up", iface)
	}
	if err := ctrl.Up(ctx, iface, bitrate); err != nil {
		return nil, godiag.Initf("failed to bring up CAN interface %s: %v", iface, err)
	}
	return &Link{
		cfg:   cfg,
		ctrl:  ctrl,
		iface: iface,
	}, nil
}

func (l *Link) Close() {
	l.once.Do(func() {
		// The caller's context is usually cancelled by now.
		ctx, cancel := context.WithTimeout(context.Background(), downTimeout)
		defer cancel()
		if err := l.ctrl.Down(ctx, l.iface); err != nil {
			l.cfg.Messagef("failed to shut down CAN interface %s: %v", l.iface, err)
		}
	})
}
