package compressor_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bahusvel/dssc/pkg/compressor"
)

var testRecords = [][]byte{
	[]byte("Hello World\n"),
	[]byte("Hello Brave World\n"),
	[]byte("GET /api/v1/users/42 200 17ms\n"),
	[]byte("GET /api/v1/users/43 200 21ms\n"),
	[]byte("GET /api/v1/users/44 500 3ms\n"),
	[]byte("short\n"),
	[]byte("\n"),
	[]byte("binary \x00\x00\x00\xff\x80 bytes pass through\n"),
	[]byte("Hello World\n"),
	bytes.Repeat([]byte("abcdefgh"), 512), // 4 KiB record
}

func TestRoundTripAllAlgorithms(t *testing.T) {
	t.Parallel()

	for _, name := range compressor.Names() {
		name := name

		t.Run(name, func(t *testing.T) {
			t.Parallel()

			codec, err := compressor.New(name, compressor.Options{})
			require.NoError(t, err)

			for i, record := range testRecords {
				frame, err := codec.Encode(record)
				require.NoError(t, err, "record %d", i)

				got, err := codec.Decode(frame)
				require.NoError(t, err, "record %d", i)
				require.Equal(t, record, got, "record %d", i)
			}
		})
	}
}

func TestNewUnknownAlgorithm(t *testing.T) {
	t.Parallel()

	_, err := compressor.New("zopfli", compressor.Options{})
	require.ErrorIs(t, err, compressor.ErrUnknownAlgorithm)
}

func TestNames(t *testing.T) {
	t.Parallel()

	names := compressor.Names()
	require.Equal(t, []string{"chunkmap", "convolve", "flate", "lz4", "snappy"}, names)
	require.Contains(t, names, compressor.DefaultAlgorithm)
}

func TestHistoryCodecsCompressRepetition(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"chunkmap", "convolve"} {
		name := name

		t.Run(name, func(t *testing.T) {
			t.Parallel()

			codec, err := compressor.New(name, compressor.Options{})
			require.NoError(t, err)

			first := []byte("service=checkout level=info msg=\"order placed\" order=1001\n")
			second := []byte("service=checkout level=info msg=\"order placed\" order=1002\n")

			frame, err := codec.Encode(first)
			require.NoError(t, err)

			_, err = codec.Decode(frame)
			require.NoError(t, err)

			frame, err = codec.Encode(second)
			require.NoError(t, err)
			require.Less(t, len(frame), len(second), "second record should delta against the first")

			got, err := codec.Decode(frame)
			require.NoError(t, err)
			require.Equal(t, second, got)
		})
	}
}

func TestDecodeGarbage(t *testing.T) {
	t.Parallel()

	for _, name := range compressor.Names() {
		name := name

		t.Run(name, func(t *testing.T) {
			t.Parallel()

			codec, err := compressor.New(name, compressor.Options{})
			require.NoError(t, err)

			// Arbitrary junk must error or round out cleanly, never panic.
			_, _ = codec.Decode([]byte{0xde, 0xad, 0xbe, 0xef, 0x80})
		})
	}
}

func TestLongStreamsStayInSync(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"chunkmap", "convolve"} {
		name := name

		t.Run(name, func(t *testing.T) {
			t.Parallel()

			codec, err := compressor.New(name, compressor.Options{})
			require.NoError(t, err)

			for i := 0; i < 400; i++ {
				record := []byte(fmt.Sprintf("host-%d dropped %d packets on eth%d\n", i%11, i*7%301, i%3))

				frame, err := codec.Encode(record)
				require.NoError(t, err)

				got, err := codec.Decode(frame)
				require.NoError(t, err)
				require.Equal(t, record, got, "record %d", i)
			}
		})
	}
}
