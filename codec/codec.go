// Package codec holds the wire encoders consuming produced documents. The
// serialization core only ever hands a plain mapping or sequence to an
// Encoder; picking the format is the caller's concern.
package codec

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

// Format identifiers for the bundled encoders.
const (
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

// Encoder turns a document into wire bytes.
type Encoder interface {
	Format() string
	Marshal(v any) ([]byte, error)
}

type jsonEncoder struct{}

// JSON returns the JSON wire encoder.
func JSON() Encoder { return jsonEncoder{} }

func (jsonEncoder) Format() string { return FormatJSON }

func (jsonEncoder) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

type msgpackEncoder struct{}

// Msgpack returns the MessagePack wire encoder.
func Msgpack() Encoder { return msgpackEncoder{} }

func (msgpackEncoder) Format() string { return FormatMsgpack }

func (msgpackEncoder) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}
