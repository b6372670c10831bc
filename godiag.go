// Package godiag talks to vehicle ECUs over the CAN bus (ISO 15765) and the
// K-line (KWP1281, KWP2000/ISO 14230).
//
// Functionality common to every protocol is described by Diagnoser. The OBD2
// request shapes shared by CAN and KWP2000 are implemented once, on top of
// the narrower Querier, by OBD and the ReadDTCs/ClearDTCs/ReadData helpers.
package godiag

import "context"

// Querier sends an OBD style query and returns the response value, stripped
// of the response service identifier (service + 0x40) and the echoed args.
type Querier interface {
	Query(ctx context.Context, service byte, args []byte) ([]byte, error)
}

type Diagnoser interface {
	ReadDTCs(ctx context.Context, pending bool) ([]DTC, error)
	ClearDTCs(ctx context.Context) error
	ReadData(ctx context.Context, pid byte, freezeFrame bool) ([]byte, error)
	Close() error
}

type VINReader interface {
	VIN(ctx context.Context) (string, error)
}

// Adaptation is implemented by protocols that can read and write adaptation
// channels (KWP1281).
type Adaptation interface {
	ReadAdaptation(ctx context.Context, channel byte) ([]byte, error)
	WriteAdaptation(ctx context.Context, channel byte, value [2]byte, test bool) ([]byte, error)
}
