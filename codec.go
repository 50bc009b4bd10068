package userstore

import (
	"bytes"
	"encoding/gob"
)

// Codec converts values to and from the byte blobs held by a Driver.
// The store treats encoded blobs as opaque; cross-version compatibility
// of the encoded form is whatever the codec provides.
type Codec interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, out interface{}) error
}

// gobCodec is the default Codec. encoding/gob handles arbitrary Go value
// graphs (structs, maps, slices, pointers) without schema registration,
// at the cost of the blob only being readable by Go decoders with a
// matching destination type.
type gobCodec struct{}

func (gobCodec) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, out interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(out)
}
