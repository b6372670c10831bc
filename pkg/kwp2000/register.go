package kwp2000

import (
	"context"

	"github.com/roffe/godiag"
	"github.com/roffe/godiag/adapter"
)

func init() {
	if err := godiag.RegisterProtocol(&godiag.ProtocolInfo{
		Name:        "kwp2000",
		Description: "KWP2000 / ISO 14230, K-line 5 baud init",
		Capabilities: godiag.ProtocolCapabilities{
			PendingDTCs: true,
			FreezeFrame: true,
			KLine:       true,
		},
		New: func(ctx context.Context, cfg *godiag.Config) (godiag.Diagnoser, error) {
			c, err := Open(ctx, cfg, adapter.NewKLine(cfg))
			if err != nil {
				return nil, err
			}
			return c, nil
		},
	}); err != nil {
		panic(err)
	}
}
