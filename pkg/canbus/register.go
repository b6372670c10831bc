package canbus

import (
	"context"

	"github.com/roffe/godiag"
	"github.com/roffe/godiag/adapter"
)

func init() {
	if err := godiag.RegisterProtocol(&godiag.ProtocolInfo{
		Name:        "can",
		Description: "CAN bus / ISO 15765",
		Capabilities: godiag.ProtocolCapabilities{
			PendingDTCs: true,
			FreezeFrame: true,
		},
		New: func(ctx context.Context, cfg *godiag.Config) (godiag.Diagnoser, error) {
			ctrl, err := adapter.NewLinkController(cfg)
			if err != nil {
				return nil, err
			}
			c, err := Open(ctx, cfg, ctrl, adapter.DialSocketCAN)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
	}); err != nil {
		panic(err)
	}
}
