package serialization

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/stgraph/internal/data"
	"github.com/born-ml/stgraph/internal/tensor"
)

func sample(t *testing.T) *data.Record {
	t.Helper()
	r, err := data.New(
		data.WithInput(
			data.E("x", tensor.Arange(tensor.Shape{4, 3, 2}, tensor.Float32)),
			data.E("u", tensor.Arange(tensor.Shape{4, 1}, tensor.Float64)),
		),
		data.WithTarget(data.E("y", tensor.Arange(tensor.Shape{1, 3, 2}, tensor.Float32))),
		data.WithMask(tensor.Full(tensor.Shape{1, 3, 2}, tensor.Bool, 1)),
		data.WithConnectivity(tensor.MustFromSlice([]int64{0, 1, 1, 2}, tensor.Shape{2, 2}), nil),
		data.WithPattern(map[string]string{"x": "t n f", "y": "t n f", "u": "t f"}),
	)
	require.NoError(t, err)
	return r
}

func TestRecordRoundTrip(t *testing.T) {
	rec := sample(t)
	path := filepath.Join(t.TempDir(), "sample.safetensors")

	id, err := WriteRecord(path, rec)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)

	got, meta, err := ReadRecord(path)
	require.NoError(t, err)
	assert.Equal(t, id, meta.ID)

	assert.Equal(t, rec.Keys(), got.Keys())
	assert.Equal(t, []string{"x", "u"}, got.Input().KeyList())
	assert.Equal(t, []string{"y"}, got.Target().KeyList())
	assert.Equal(t, rec.Patterns(), got.Patterns())
	assert.True(t, got.HasMask())
	for _, k := range rec.Keys() {
		want, _ := rec.Get(k)
		have, ok := got.Get(k)
		require.True(t, ok, k)
		assert.True(t, tensor.Equal(want, have), k)
	}
	assert.Equal(t, rec.String(), got.String())
}

func TestDeviceTensorsAreWrittenFromHost(t *testing.T) {
	rec := sample(t).ToDevice(tensor.WebGPU)
	var buf bytes.Buffer
	_, err := EncodeRecord(&buf, rec)
	require.NoError(t, err)

	got, _, err := DecodeRecord(buf.Bytes())
	require.NoError(t, err)
	x, _ := got.Get("x")
	assert.Equal(t, tensor.CPU, x.Device())
}

func TestDecodeErrors(t *testing.T) {
	var buf bytes.Buffer
	_, err := EncodeRecord(&buf, sample(t))
	require.NoError(t, err)
	good := buf.Bytes()

	t.Run("short", func(t *testing.T) {
		_, _, err := DecodeRecord(good[:4])
		require.ErrorIs(t, err, ErrInvalidHeader)
	})

	t.Run("truncated header", func(t *testing.T) {
		_, _, err := DecodeRecord(good[:20])
		require.ErrorIs(t, err, ErrInvalidHeader)
	})

	t.Run("truncated data", func(t *testing.T) {
		_, _, err := DecodeRecord(good[:len(good)-3])
		require.ErrorIs(t, err, ErrOutOfBounds)
	})

	t.Run("tampered data", func(t *testing.T) {
		bad := bytes.Clone(good)
		bad[len(bad)-1] ^= 0xff
		_, _, err := DecodeRecord(bad)
		require.ErrorIs(t, err, ErrChecksumMismatch)
	})

	t.Run("header too large", func(t *testing.T) {
		bad := make([]byte, 8)
		binary.LittleEndian.PutUint64(bad, MaxHeaderSize+1)
		_, _, err := DecodeRecord(bad)
		require.ErrorIs(t, err, ErrHeaderTooLarge)
	})

	t.Run("unsupported dtype", func(t *testing.T) {
		_, _, err := DecodeRecord(rawFile(`{"x":{"dtype":"F16","shape":[1],"data_offsets":[0,2]}}`, 2))
		require.ErrorIs(t, err, ErrUnsupportedDType)
	})

	t.Run("shape and region disagree", func(t *testing.T) {
		_, _, err := DecodeRecord(rawFile(`{"x":{"dtype":"F32","shape":[2],"data_offsets":[0,4]}}`, 4))
		require.ErrorIs(t, err, ErrOutOfBounds)
	})

	t.Run("element count overflows", func(t *testing.T) {
		for _, shape := range []string{"[4611686018427387904,4]", "[4611686018427387904,1,4]", "[3,-1]"} {
			header := `{"x":{"dtype":"F32","shape":` + shape + `,"data_offsets":[0,0]}}`
			_, _, err := DecodeRecord(rawFile(header, 0))
			require.ErrorIs(t, err, ErrInvalidHeader, shape)
		}
	})

	t.Run("bad record id", func(t *testing.T) {
		header := `{"__metadata__":{"format":"stgraph.record","record_id":"nope"}}`
		_, _, err := DecodeRecord(rawFile(header, 0))
		require.ErrorIs(t, err, ErrInvalidHeader)
	})
}

func TestDecodePlainSafeTensors(t *testing.T) {
	var buf bytes.Buffer
	err := WriteSafeTensors(&buf, map[string]*tensor.RawTensor{
		"weight": tensor.Arange(tensor.Shape{2, 2}, tensor.Float32),
		"bias":   tensor.Zeros(tensor.Shape{2}, tensor.Float32),
	}, nil)
	require.NoError(t, err)

	rec, meta, err := DecodeRecord(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, meta.ID)
	assert.Equal(t, []string{"bias", "weight"}, rec.Keys())
	assert.Zero(t, rec.Input().Len())
}

func TestWriteSafeTensorsRejectsBadNames(t *testing.T) {
	var buf bytes.Buffer
	err := WriteSafeTensors(&buf, map[string]*tensor.RawTensor{
		"../x": tensor.Zeros(tensor.Shape{1}, tensor.Float32),
	}, nil)
	require.ErrorIs(t, err, ErrInvalidTensorName)
}

// rawFile assembles a SafeTensors file from a header and n zero data bytes.
func rawFile(header string, n int) []byte {
	out := make([]byte, 8, 8+len(header)+n)
	binary.LittleEndian.PutUint64(out, uint64(len(header)))
	out = append(out, header...)
	return append(out, make([]byte, n)...)
}
