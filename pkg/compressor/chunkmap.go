package compressor

import "github.com/bahusvel/dssc/pkg/chunkmap"

// chunkmapCodec adapts the chunk-indexed delta codec to the Codec contract.
// The encode and decode directions own separate caches, exactly as two
// processes at either end of a pipe would.
type chunkmapCodec struct {
	enc *chunkmap.Encoder
	dec *chunkmap.Decoder
}

func newChunkmap(opts Options) Codec {
	codecOpts := chunkmap.Options{
		Threshold: opts.Threshold,
		Logger:    opts.Logger,
	}

	return &chunkmapCodec{
		enc: chunkmap.NewEncoder(codecOpts),
		dec: chunkmap.NewDecoder(codecOpts),
	}
}

func (c *chunkmapCodec) Encode(record []byte) ([]byte, error) {
	return c.enc.Encode(record), nil
}

func (c *chunkmapCodec) Decode(frame []byte) ([]byte, error) {
	return c.dec.Decode(frame)
}
