package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/bits"
	"sort"

	"github.com/born-ml/stgraph/internal/tensor"
)

const (
	metadataKey = "__metadata__"
	checksumKey = "checksum"
)

// TensorInfo describes one tensor in the SafeTensors header.
type TensorInfo struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"` // [start, end)
}

// TensorMeta is a tensor's byte region inside the data section.
type TensorMeta struct {
	Name   string
	Offset int64
	Size   int64
}

// Header is a decoded SafeTensors header.
type Header struct {
	Metadata map[string]string
	Tensors  map[string]TensorInfo
}

// UnmarshalJSON splits the metadata entry from the tensor entries.
func (h *Header) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if m, ok := raw[metadataKey]; ok {
		if err := json.Unmarshal(m, &h.Metadata); err != nil {
			return fmt.Errorf("metadata: %w", err)
		}
	}
	h.Tensors = make(map[string]TensorInfo, len(raw))
	for name, v := range raw {
		if name == metadataKey {
			continue
		}
		var info TensorInfo
		if err := json.Unmarshal(v, &info); err != nil {
			return fmt.Errorf("tensor %s: %w", name, err)
		}
		h.Tensors[name] = info
	}
	return nil
}

// Metas returns the tensor regions of h.
func (h *Header) Metas() []TensorMeta {
	out := make([]TensorMeta, 0, len(h.Tensors))
	for name, info := range h.Tensors {
		out = append(out, TensorMeta{
			Name:   name,
			Offset: info.DataOffsets[0],
			Size:   info.DataOffsets[1] - info.DataOffsets[0],
		})
	}
	return out
}

// WriteSafeTensors encodes tensors to w, in name order. The metadata digest
// entry "checksum" is filled in when the caller sets it to "".
func WriteSafeTensors(w io.Writer, tensors map[string]*tensor.RawTensor, metadata map[string]string) error {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		names = append(names, name)
	}
	sort.Strings(names)

	header := make(map[string]any, len(names)+1)
	var body bytes.Buffer
	for _, name := range names {
		raw := tensors[name]
		dtype, err := dtypeToSafeTensors(raw.DType())
		if err != nil {
			return fmt.Errorf("tensor %s: %w", name, err)
		}
		shape := make([]int64, raw.NDim())
		for i, dim := range raw.Shape() {
			shape[i] = int64(dim)
		}
		start := int64(body.Len())
		body.Write(raw.Data())
		header[name] = TensorInfo{
			DType:       dtype,
			Shape:       shape,
			DataOffsets: [2]int64{start, int64(body.Len())},
		}
	}

	if sum, ok := metadata[checksumKey]; ok && sum == "" {
		metadata[checksumKey] = ComputeChecksum(body.Bytes())
	}
	if len(metadata) > 0 {
		header[metadataKey] = metadata
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := w.Write(body.Bytes()); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}
	return nil
}

// ReadSafeTensors decodes a SafeTensors file held in b. Offsets are validated
// and, when the metadata carries a checksum, the data section is verified.
func ReadSafeTensors(b []byte) (map[string]*tensor.RawTensor, map[string]string, error) {
	if len(b) < 8 {
		return nil, nil, fmt.Errorf("%w: %d bytes, file too short", ErrInvalidHeader, len(b))
	}
	size := binary.LittleEndian.Uint64(b[:8])
	if size > MaxHeaderSize {
		return nil, nil, fmt.Errorf("%w: %d bytes", ErrHeaderTooLarge, size)
	}
	if size > uint64(len(b)-8) {
		return nil, nil, fmt.Errorf("%w: header size %d exceeds file size %d", ErrInvalidHeader, size, len(b))
	}

	var h Header
	if err := json.Unmarshal(b[8:8+size], &h); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}
	body := b[8+size:]
	if err := ValidateTensorOffsets(h.Metas(), int64(len(body))); err != nil {
		return nil, nil, err
	}
	if err := ValidateChecksum(body, h.Metadata[checksumKey]); err != nil {
		return nil, nil, err
	}

	out := make(map[string]*tensor.RawTensor, len(h.Tensors))
	for name, info := range h.Tensors {
		if err := ValidateTensorName(name); err != nil {
			return nil, nil, err
		}
		raw, err := decodeTensor(name, info, body)
		if err != nil {
			return nil, nil, err
		}
		out[name] = raw
	}
	return out, h.Metadata, nil
}

func decodeTensor(name string, info TensorInfo, body []byte) (*tensor.RawTensor, error) {
	dtype, err := dtypeFromSafeTensors(info.DType)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}
	start, end := info.DataOffsets[0], info.DataOffsets[1]
	need, err := byteSize(info.Shape, dtype.Size())
	if err != nil {
		return nil, &ValidationError{Err: ErrInvalidHeader, Tensor: name, Details: err.Error()}
	}
	if need != uint64(end-start) {
		return nil, &ValidationError{
			Err:     ErrOutOfBounds,
			Tensor:  name,
			Details: fmt.Sprintf("shape %v needs %d bytes, region holds %d", info.Shape, need, end-start),
		}
	}
	shape := make(tensor.Shape, len(info.Shape))
	for i, dim := range info.Shape {
		shape[i] = int(dim)
	}
	raw, err := tensor.NewRaw(shape, dtype, tensor.CPU)
	if err != nil {
		return nil, err
	}
	copy(raw.Data(), body[start:end])
	return raw, nil
}

// byteSize returns the bytes a tensor of shape occupies, failing on negative
// dimensions and on products that do not fit in an int.
func byteSize(shape []int64, elemSize int) (uint64, error) {
	total := uint64(elemSize)
	for _, dim := range shape {
		if dim < 0 {
			return 0, fmt.Errorf("negative dimension %d in %v", dim, shape)
		}
		hi, lo := bits.Mul64(total, uint64(dim))
		if hi != 0 || lo > math.MaxInt {
			return 0, fmt.Errorf("shape %v overflows", shape)
		}
		total = lo
	}
	return total, nil
}

func dtypeToSafeTensors(dt tensor.DataType) (string, error) {
	switch dt {
	case tensor.Float32:
		return "F32", nil
	case tensor.Float64:
		return "F64", nil
	case tensor.Int32:
		return "I32", nil
	case tensor.Int64:
		return "I64", nil
	case tensor.Uint8:
		return "U8", nil
	case tensor.Bool:
		return "BOOL", nil
	}
	return "", fmt.Errorf("%w: %v", ErrUnsupportedDType, dt)
}

func dtypeFromSafeTensors(s string) (tensor.DataType, error) {
	switch s {
	case "F32":
		return tensor.Float32, nil
	case "F64":
		return tensor.Float64, nil
	case "I32":
		return tensor.Int32, nil
	case "I64":
		return tensor.Int64, nil
	case "U8":
		return tensor.Uint8, nil
	case "BOOL":
		return tensor.Bool, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedDType, s)
}
