package wire

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Kind is the 1-byte tag identifying every message (§4.5). It travels
// as the "kind" entry of the message's field map; a payload does not
// start with a separate tag byte.
type Kind uint8

const (
	KindCreateChannel Kind = iota + 1
	KindKillChannel
	KindListChannels
	KindChannelStatus
	KindSubscribe
	KindUnsubscribe
	KindWriteInput
	KindResize
	KindPing

	KindOk
	KindErr

	KindOutput
	KindChannelCreated
	KindChannelExited
	KindDropNotice

	KindHandshake
)

// Message is anything that can be framed over the wire: its Kind tag
// plus a map of kind-specific fields. Encoding as a map (rather than a
// positional struct) is what lets new fields be tail-appended without
// breaking a peer that doesn't know about them yet (§4.5).
type Message interface {
	Kind() Kind
	toMap() map[string]interface{}
}

// Encode serializes msg into one frame payload: the msgpack-encoded
// field map, with the kind tag stored under the "kind" key.
func Encode(msg Message) ([]byte, error) {
	m := msg.toMap()
	m["kind"] = uint8(msg.Kind())
	return msgpack.Marshal(m)
}

// Decode parses a frame payload back into a concrete Message. Unknown
// trailing fields in the map are simply never read by the per-kind
// decode functions, which
// is what makes the format forward-compatible.
func Decode(payload []byte) (Message, error) {
	var m map[string]interface{}
	if err := msgpack.Unmarshal(payload, &m); err != nil {
		return nil, fmt.Errorf("wire: decode: %w", err)
	}

	kindVal, ok := mapGetUint64(m, "kind")
	if !ok {
		return nil, fmt.Errorf("wire: decode: missing kind tag")
	}
	kind := Kind(kindVal)

	ctor, ok := decoders[kind]
	if !ok {
		return nil, fmt.Errorf("wire: decode: unknown kind %d", kind)
	}
	return ctor(m)
}

var decoders = map[Kind]func(map[string]interface{}) (Message, error){
	KindCreateChannel:  decodeCreateChannel,
	KindKillChannel:    decodeKillChannel,
	KindListChannels:   decodeListChannels,
	KindChannelStatus:  decodeChannelStatus,
	KindSubscribe:      decodeSubscribe,
	KindUnsubscribe:    decodeUnsubscribe,
	KindWriteInput:     decodeWriteInput,
	KindResize:         decodeResize,
	KindPing:           decodePing,
	KindOk:             decodeOk,
	KindErr:            decodeErr,
	KindOutput:         decodeOutput,
	KindChannelCreated: decodeChannelCreated,
	KindChannelExited:  decodeChannelExited,
	KindDropNotice:     decodeDropNotice,
	KindHandshake:      decodeHandshake,
}
