package runner

import "encoding/json"

// jsonCodec is a grpc/encoding.Codec that carries plain Go structs as JSON
// instead of protobuf wire bytes. The sandbox runner's RunTests RPC is the
// only message on this service and has no need for a .proto-compiled
// schema; registering a codec is the documented grpc-go extension point for
// exactly this case (see encoding.RegisterCodec), so the service still
// rides real grpc transport, framing, and deadlines without a hand-authored
// protoc-gen-go stub standing in for a toolchain this kernel never runs.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return "json" }
