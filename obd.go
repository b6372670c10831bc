package godiag

import (
	"bytes"
	"context"
)

const (
	ServiceCurrentData     = 0x01
	ServiceFreezeFrameData = 0x02
	ServiceStoredDTCs      = 0x03
	ServiceClearDTCs       = 0x04
	ServicePendingDTCs     = 0x07
	ServiceVehicleInfo     = 0x09

	PositiveResponseOffset = 0x40
	NegativeResponse       = 0x7F
)

// OBD implements ReadDTCs, ClearDTCs and ReadData for any Querier. Protocols
// embed it and override what they do natively.
type OBD struct {
	q Querier
}

func NewOBD(q Querier) *OBD {
	return &OBD{q: q}
}

func (o *OBD) ReadDTCs(ctx context.Context, pending bool) ([]DTC, error) {
	return ReadDTCs(ctx, o.q, pending)
}

func (o *OBD) ClearDTCs(ctx context.Context) error {
	return ClearDTCs(ctx, o.q)
}

func (o *OBD) ReadData(ctx context.Context, pid byte, freezeFrame bool) ([]byte, error) {
	return ReadData(ctx, o.q, pid, freezeFrame)
}

// ReadDTCs reads stored, or pending, DTCs. The response is a count byte
// followed by two bytes per code.
func ReadDTCs(ctx context.Context, q Querier, pending bool) ([]DTC, error) {
	service := byte(ServiceStoredDTCs)
	if pending {
		service = ServicePendingDTCs
	}
	resp, err := q.Query(ctx, service, nil)
	if err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		return nil, Protocolf("empty response to service 0x%02X", service)
	}

	data := resp[1:]
	dtcs := make([]DTC, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		dtcs = append(dtcs, ObdDTC(uint16(data[i])<<8|uint16(data[i+1])))
	}
	return dtcs, nil
}

func ClearDTCs(ctx context.Context, q Querier) error {
	_, err := q.Query(ctx, ServiceClearDTCs, nil)
	return err
}

func ReadData(ctx context.Context, q Querier, pid byte, freezeFrame bool) ([]byte, error) {
	service := byte(ServiceCurrentData)
	if freezeFrame {
		service = ServiceFreezeFrameData
	}
	return q.Query(ctx, service, []byte{pid})
}

// CheckResponse validates a raw response against the request that produced
// it and returns the value that follows the echoed args.
func CheckResponse(service byte, args, resp []byte) ([]byte, error) {
	if len(resp) == 0 {
		return nil, Protocolf("empty response to service 0x%02X", service)
	}
	if resp[0] == NegativeResponse {
		nre := &NegativeResponseError{Service: service}
		if len(resp) > 2 {
			nre.Code = resp[2]
		}
		return nil, nre
	}
	if resp[0] != service+PositiveResponseOffset {
		return nil, Protocolf("service identifier of response did not match: 0x%02X", resp[0])
	}
	if len(resp) < 1+len(args) || !bytes.Equal(resp[1:1+len(args)], args) {
		return nil, Protocolf("arguments/PIDs did not match: % X", resp[1:])
	}
	return resp[1+len(args):], nil
}

// Sweep reads every PID from 0x00 to 0xFF. A failing PID is handed to fn with
// its error and the sweep continues; cancelling ctx stops it.
func Sweep(ctx context.Context, d Diagnoser, freezeFrame bool, fn func(pid byte, data []byte, err error)) error {
	for i := 0x00; i <= 0xFF; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := d.ReadData(ctx, byte(i), freezeFrame)
		fn(byte(i), data, err)
	}
	return nil
}
