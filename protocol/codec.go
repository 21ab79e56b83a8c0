// Package protocol describes the grpc services of the ledger and the price feed.
// Messages are plain structs carried by the json codec registered here.
package protocol

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"encoding/json"
)

// CodecName is the content-subtype of every call in this package
const CodecName = "json"

type codec struct{}

func (codec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (codec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (codec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(codec{})
}

// CallOption selects the json codec on a client call
func CallOption() grpc.CallOption {
	return grpc.CallContentSubtype(CodecName)
}
