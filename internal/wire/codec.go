package wire

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// codecName intentionally shadows grpc-go's built-in "proto" codec name.
// grpc-go selects a codec by content-subtype, defaulting to "proto" when
// none is set on the call; registering under that name means every
// RPC in this package works with zero extra call options, exactly as
// if protoc-gen-go-grpc bindings were in play.
const codecName = "proto"

func init() {
	encoding.RegisterCodec(gobCodec{})
}

// gobCodec marshals wire messages with encoding/gob. It is registered as
// grpc's default codec (see codecName) so RegisterAgent/ReportState/
// SubscribeWorldState/IssueCommand all transport correctly without
// per-call configuration.
type gobCodec struct{}

func (gobCodec) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("wire: marshal: %w", err)
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v interface{}) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("wire: unmarshal: %w", err)
	}
	return nil
}

func (gobCodec) Name() string { return codecName }
