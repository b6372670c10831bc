package kwp1281

import (
	"context"

	"github.com/roffe/godiag"
	"github.com/roffe/godiag/adapter"
)

func init() {
	if err := godiag.RegisterProtocol(&godiag.ProtocolInfo{
		Name:        "kwp1281",
		Description: "KWP1281, K-line only",
		Capabilities: godiag.ProtocolCapabilities{
			Adaptation: true,
			KLine:      true,
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
