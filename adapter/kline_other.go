//go:build !linux

package adapter

import (
	"errors"

	"github.com/roffe/godiag"
)

func (k *KLine) OpenGPIO() (godiag.Line, godiag.Line, error) {
	return nil, nil, errors.New("GPIO character devices are only available on linux")
}
