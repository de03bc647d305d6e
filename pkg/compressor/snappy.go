package compressor

import (
	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

// snappyCodec is the snappy block-format baseline.
type snappyCodec struct{}

func newSnappy(Options) Codec {
	return snappyCodec{}
}

func (snappyCodec) Encode(record []byte) ([]byte, error) {
	return snappy.Encode(nil, record), nil
}

func (snappyCodec) Decode(frame []byte) ([]byte, error) {
	record, err := snappy.Decode(nil, frame)
	if err != nil {
		return nil, errors.Wrapf(ErrMalformed, "snappy decode: %v", err)
	}

	return record, nil
}
