package database

import (
	"bytes"

	"github.com/asdine/storm/v3/codec"
	"github.com/asdine/storm/v3/codec/msgpack"
	"github.com/pkg/errors"
	ugorji "github.com/ugorji/go/codec"
)

// Storm codec names.
const (
	CodecMsgpack = "msgpack"
	CodecCBOR    = "cbor"
	CodecBinc    = "binc"
)

// handleCodec encodes records with one of ugorji's binary handles.
type handleCodec struct {
	name   string
	handle ugorji.Handle
}

// StormCodec returns the codec used to store records for the given name.
// An empty name selects msgpack.
func StormCodec(name string) (codec.MarshalUnmarshaler, error) {
	switch name {
	case "", CodecMsgpack:
		return msgpack.Codec, nil
	case CodecCBOR:
		// CBOR (Concise Binary Object Representation), RFC 7049.
		return &handleCodec{name: name, handle: &ugorji.CborHandle{}}, nil
	case CodecBinc:
		// https://github.com/ugorji/binc
		return &handleCodec{name: name, handle: &ugorji.BincHandle{}}, nil
	default:
		return nil, errors.Errorf("unsupported storm codec: %s", name)
	}
}

func (c *handleCodec) Marshal(v any) ([]byte, error) {
	var b bytes.Buffer
	if err := ugorji.NewEncoder(&b, c.handle).Encode(v); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func (c *handleCodec) Unmarshal(b []byte, v any) error {
	return ugorji.NewDecoder(bytes.NewReader(b), c.handle).Decode(v)
}

func (c *handleCodec) Name() string {
	return c.name
}
