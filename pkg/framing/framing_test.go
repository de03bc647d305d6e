package framing_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bahusvel/dssc/pkg/framing"
	"github.com/bahusvel/dssc/pkg/varint"
)

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	records := [][]byte{
		[]byte("first frame\n"),
		[]byte(""),
		[]byte("third frame, after an empty one\n"),
		bytes.Repeat([]byte{0xAB}, 300), // length needs a two-byte varint
	}

	var wire bytes.Buffer

	w := framing.NewWriter(&wire)
	for _, r := range records {
		require.NoError(t, w.WriteRecord(r))
	}

	r := framing.NewReader(&wire)

	for i, want := range records {
		got, err := r.ReadRecord()
		require.NoError(t, err, "frame %d", i)
		require.Equal(t, want, got, "frame %d", i)
	}

	_, err := r.ReadRecord()
	require.ErrorIs(t, err, io.EOF)
}

func TestReadRecordReusesBuffer(t *testing.T) {
	t.Parallel()

	var wire bytes.Buffer

	w := framing.NewWriter(&wire)
	require.NoError(t, w.WriteRecord([]byte("aaaa")))
	require.NoError(t, w.WriteRecord([]byte("bb")))

	r := framing.NewReader(&wire)

	first, err := r.ReadRecord()
	require.NoError(t, err)

	copied := append([]byte(nil), first...)

	_, err = r.ReadRecord()
	require.NoError(t, err)

	// The first slice may now hold different bytes; the copy is stable.
	require.Equal(t, []byte("aaaa"), copied)
}

func TestTruncatedBody(t *testing.T) {
	t.Parallel()

	wire := []byte{0x05, 'a', 'b'} // claims 5 bytes, carries 2

	r := framing.NewReader(bytes.NewReader(wire))

	_, err := r.ReadRecord()
	require.ErrorIs(t, err, framing.ErrMalformed)
}

func TestTornLengthVarint(t *testing.T) {
	t.Parallel()

	r := framing.NewReader(bytes.NewReader([]byte{0x80}))

	_, err := r.ReadRecord()
	require.ErrorIs(t, err, framing.ErrMalformed)
}

func TestOversizedFrameRefused(t *testing.T) {
	t.Parallel()

	// A frame length beyond the cap must be refused before allocation.
	wire := varint.AppendUvarint(nil, framing.MaxFrameLen+1)

	r := framing.NewReader(bytes.NewReader(wire))

	_, err := r.ReadRecord()
	require.ErrorIs(t, err, framing.ErrMalformed)
}

func TestLenPrefixSize(t *testing.T) {
	t.Parallel()

	require.Equal(t, 1, framing.LenPrefixSize(0))
	require.Equal(t, 1, framing.LenPrefixSize(127))
	require.Equal(t, 2, framing.LenPrefixSize(128))
	require.Equal(t, 3, framing.LenPrefixSize(16384))
}
