package kwp1281

import "fmt"

// BlockType is a KWP1281 block title. Values without a name below are
// carried through unchanged.
type BlockType byte

const (
	ClearDTCs       BlockType = 0x05
	Quit            BlockType = 0x06
	GetDTCs         BlockType = 0x07
	Ack             BlockType = 0x09
	ReadAdaptation  BlockType = 0x21
	TestAdaptation  BlockType = 0x22
	ReadData        BlockType = 0x29
	WriteAdaptation BlockType = 0x2A
	AdaptationReply BlockType = 0xE6
	DataReply       BlockType = 0xE7
	ASCII           BlockType = 0xF6
)

var blockTypeNames = map[BlockType]string{
	ClearDTCs:       "ClearDTCs",
	Quit:            "Quit",
	GetDTCs:         "GetDTCs",
	Ack:             "Ack",
	ReadAdaptation:  "ReadAdaptation",
	TestAdaptation:  "TestAdaptation",
	ReadData:        "ReadData",
	WriteAdaptation: "WriteAdaptation",
	AdaptationReply: "AdaptationReply",
	DataReply:       "DataReply",
	ASCII:           "ASCII",
}

// IsOther reports whether t is not one of the named block types.
func (t BlockType) IsOther() bool {
	_, ok := blockTypeNames[t]
	return !ok
}

func (t BlockType) String() string {
	if name, ok := blockTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Other(0x%02X)", byte(t))
}

type Block struct {
	Type BlockType
	Data []byte
}

func (b Block) String() string {
	return fmt.Sprintf("%02X %s % X", byte(b.Type), b.Type, b.Data)
}
