package compressor

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"
)

// flateCodec is the stateless raw-deflate baseline: one self-contained
// deflate stream per record.
type flateCodec struct {
	buf bytes.Buffer
}

func newFlate(Options) Codec {
	return &flateCodec{}
}

func (c *flateCodec) Encode(record []byte) ([]byte, error) {
	c.buf.Reset()

	w, err := flate.NewWriter(&c.buf, flate.BestCompression)
	if err != nil {
		return nil, errors.Wrap(err, "creating deflate writer")
	}

	if _, err := w.Write(record); err != nil {
		return nil, errors.Wrap(err, "deflating record")
	}

	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "closing deflate stream")
	}

	out := make([]byte, c.buf.Len())
	copy(out, c.buf.Bytes())

	return out, nil
}

func (c *flateCodec) Decode(frame []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(frame))
	defer func() { _ = r.Close() }()

	record, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(ErrMalformed, "inflating record: %v", err)
	}

	return record, nil
}
