package godiag

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

type ProtocolInfo struct {
	Name         string
	Description  string
	Capabilities ProtocolCapabilities
	New          func(context.Context, *Config) (Diagnoser, error)
}

func (p *ProtocolInfo) String() string {
	return fmt.Sprintf("%s | %s, %s", p.Name, p.Description, p.Capabilities.String())
}

type ProtocolCapabilities struct {
	PendingDTCs bool
	FreezeFrame bool
	Adaptation  bool
	KLine       bool
}

func (p *ProtocolCapabilities) String() string {
	return fmt.Sprintf("pending DTCs: %v, freeze frame: %v, adaptation: %v, K-line: %v", p.PendingDTCs, p.FreezeFrame, p.Adaptation, p.KLine)
}

var protocolMap = make(map[string]*ProtocolInfo)

// NewProtocol initialises the named protocol. The returned Diagnoser owns its
// hardware until Close is called.
func NewProtocol(ctx context.Context, name string, cfg *Config) (Diagnoser, error) {
	if cfg.OnMessage == nil {
		cfg.OnMessage = func(msg string) {
			_, file, no, ok := runtime.Caller(2)
			if ok {
				log.Printf("%s#%d %v", filepath.Base(file), no, msg)
			} else {
				log.Println(msg)
			}
		}
	}
	cfg.SetDefaults()
	if p, found := protocolMap[strings.ToLower(name)]; found {
		return p.New(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown protocol %q", name)
}

func RegisterProtocol(p *ProtocolInfo) error {
	name := strings.ToLower(p.Name)
	if _, found := protocolMap[name]; !found {
		protocolMap[name] = p
		return nil
	}
	return fmt.Errorf("protocol %s already registered", p.Name)
}

func GetProtocol(name string) (ProtocolInfo, bool) {
	p, found := protocolMap[strings.ToLower(name)]
	if !found {
		return ProtocolInfo{}, false
	}
	return *p, true
}

func ListProtocolNames() []string {
	var out []string
	for _, p := range protocolMap {
		out = append(out, p.Name)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i]) < strings.ToLower(out[j]) })
	return out
}

func ListProtocols() []ProtocolInfo {
	var out []ProtocolInfo
	for _, name := range ListProtocolNames() {
		out = append(out, *protocolMap[strings.ToLower(name)])
	}
	return out
}
