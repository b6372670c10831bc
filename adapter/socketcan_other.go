//go:build !linux

package adapter

import (
	"context"
	"errors"

	"github.com/roffe/godiag"
)

func DialSocketCAN(context.Context, string) (godiag.CANSocket, error) {
	return nil, errors.New("SocketCAN is only available on linux")
}
