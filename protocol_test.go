package godiag

import (
	"context"
	"reflect"
	"testing"
)

type nopDiagnoser struct {
	*OBD
}

func (nopDiagnoser) Close() error { return nil }

func TestProtocolRegistry(t *testing.T) {
	saved := protocolMap
	protocolMap = make(map[string]*ProtocolInfo)
	defer func() { protocolMap = saved }()

	var gotCfg *Config
	newFn := func(_ context.Context, cfg *Config) (Diagnoser, error) {
		gotCfg = cfg
		return nopDiagnoser{}, nil
	}
	for _, name := range []string{"kwp2000", "CAN", "kwp1281"} {
		if err := RegisterProtocol(&ProtocolInfo{Name: name, New: newFn}); err != nil {
			t.Fatal(err)
		}
	}
	if err := RegisterProtocol(&ProtocolInfo{Name: "can", New: newFn}); err == nil {
		t.Error("duplicate registration succeeded")
	}

	if got, want := ListProtocolNames(), []string{"CAN", "kwp1281", "kwp2000"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ListProtocolNames() = %v, want %v", got, want)
	}
	if _, ok := GetProtocol("Kwp2000"); !ok {
		t.Error("GetProtocol is case sensitive")
	}

	cfg := &Config{}
	if _, err := NewProtocol(context.Background(), "can", cfg); err != nil {
		t.Fatal(err)
	}
	if gotCfg != cfg || cfg.OnMessage == nil || cfg.Interface != DefaultInterface || cfg.Address != DefaultAddress {
		t.Errorf("config not defaulted: %+v", cfg)
	}
	if _, err := NewProtocol(context.Background(), "iso9141", cfg); err == nil {
		t.Error("unknown protocol succeeded")
	}
}
