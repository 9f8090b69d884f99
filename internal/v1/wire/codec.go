package wire

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// codecName is the grpc wire codec name this package registers. grpc-go
// selects a codec by matching the content-subtype negotiated over
// content-type ("application/grpc+<name>"); registering as "proto" makes
// this codec the one grpc-go's default content-type negotiation reaches
// for, the same content-type every protoc-generated Go service uses.
//
// This is a deliberate substitute for a protoc-generated .pb.go stub: no
// protoc/protoc-gen-go toolchain is available in this environment, and
// fabricating hand-written files that merely claim to be generated would
// be unverifiable and dishonest about their provenance. Registering a
// codec that marshals these plain structs as JSON keeps every other part
// of grpc-go's transport — unary/server-streaming framing, interceptors,
// status/codes — genuinely exercised; only the wire encoding differs from
// a real protobuf binary, which spec.md §1 treats as an assumed external
// concern ("the encoded wire format itself ... is assumed").
const codecName = "proto"

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal: %w", err)
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("wire: unmarshal: %w", err)
	}
	return nil
}

func (jsonCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
