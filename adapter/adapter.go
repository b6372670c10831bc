// Package adapter holds the hardware drivers behind the godiag interfaces:
// the BeagleBone K-line (GPIO, pin multiplexer and UART) and SocketCAN.
package adapter

import (
	"fmt"
	"strings"

	"github.com/roffe/godiag"
)

type NewLinkFunc func(*godiag.Config) godiag.LinkController

type LinkItem struct {
	Name  string
	New   NewLinkFunc
	Alias []string
}

var linkList = []LinkItem{
	{
		Name:  godiag.LinkModeIP,
		New:   NewIPCommand,
		Alias: []string{"iproute2", "sudo"},
	},
	{
		Name: godiag.LinkModeNetlink,
		New:  NewNetlink,
	},
}

func ListLinkModes() []string {
	var out []string
	for _, l := range linkList {
		out = append(out, l.Name)
	}
	return out
}

// NewLinkController returns the controller named by cfg.LinkMode.
func NewLinkController(cfg *godiag.Config) (godiag.LinkController, error) {
	normalized := strings.ToLower(cfg.LinkMode)
	for _, l := range linkList {
		if strings.ToLower(l.Name) == normalized {
			return l.New(cfg), nil
		}
		for _, alias := range l.Alias {
			if normalized == strings.ToLower(alias) {
				return l.New(cfg), nil
			}
		}
	}
	return nil, fmt.Errorf("unknown link mode %q", cfg.LinkMode)
}
