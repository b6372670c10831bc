//go:build !linux

package adapter

import (
	"context"
	"errors"

	"github.com/roffe/godiag"
)

var errNoNetlink = errors.New("netlink is only available on linux")

type Netlink struct{}

func NewNetlink(*godiag.Config) godiag.LinkController {
	return &Netlink{}
}

func (*Netlink) Up(context.Context, string, int) error { return errNoNetlink }
func (*Netlink) Down(context.Context, string) error    { return errNoNetlink }
