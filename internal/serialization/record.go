package serialization

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/google/uuid"

	"github.com/born-ml/stgraph/internal/data"
	"github.com/born-ml/stgraph/internal/tensor"
)

// Metadata keys of a record file.
const (
	metaFormat   = "format"
	metaKeys     = "keys"
	metaInput    = "input"
	metaTarget   = "target"
	metaPattern  = "pattern"
	metaRecordID = "record_id"

	formatName = "stgraph.record"
)

// RecordMeta is the record layout stored in a file header.
type RecordMeta struct {
	ID       uuid.UUID
	Keys     []string
	Input    []string
	Target   []string
	Patterns map[string]string
}

// WriteRecord writes every stored attribute of rec to path and returns the
// id assigned to the file.
func WriteRecord(path string, rec *data.Record) (uuid.UUID, error) {
	var buf bytes.Buffer
	id, err := EncodeRecord(&buf, rec)
	if err != nil {
		return uuid.Nil, err
	}
	//nolint:gosec // G306: record files are not secrets
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return uuid.Nil, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return id, nil
}

// EncodeRecord writes rec to w under a fresh id.
func EncodeRecord(w io.Writer, rec *data.Record) (uuid.UUID, error) {
	id := uuid.New()
	tensors := make(map[string]*tensor.RawTensor, len(rec.Keys()))
	for k, v := range rec.Store().Items() {
		tensors[k] = v.Host()
	}

	meta := map[string]string{
		metaFormat:   formatName,
		metaRecordID: id.String(),
		checksumKey:  "",
	}
	for key, value := range map[string]any{
		metaKeys:    rec.Keys(),
		metaInput:   rec.Input().KeyList(),
		metaTarget:  rec.Target().KeyList(),
		metaPattern: rec.Patterns(),
	} {
		b, err := json.Marshal(value)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to marshal %s: %w", key, err)
		}
		meta[key] = string(b)
	}

	if err := WriteSafeTensors(w, tensors, meta); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// ReadRecord reads a record written by WriteRecord. Tensors are returned on
// the CPU.
func ReadRecord(path string) (*data.Record, RecordMeta, error) {
	//nolint:gosec // G304: reading a caller-chosen file is the point
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, RecordMeta{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return DecodeRecord(b)
}

// DecodeRecord decodes a record file held in b. Plain SafeTensors files
// without record metadata decode to a record with every tensor as an
// attribute, in name order.
func DecodeRecord(b []byte) (*data.Record, RecordMeta, error) {
	tensors, raw, err := ReadSafeTensors(b)
	if err != nil {
		return nil, RecordMeta{}, err
	}
	meta, err := parseMeta(raw, tensors)
	if err != nil {
		return nil, RecordMeta{}, err
	}

	opts := make([]data.Option, 0, len(meta.Keys)+1)
	for _, k := range meta.Keys {
		opts = append(opts, data.WithAttr(k, tensors[k]))
	}
	opts = append(opts, data.WithPattern(meta.Patterns))
	rec, err := data.New(opts...)
	if err != nil {
		return nil, RecordMeta{}, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}
	rec.Input().SetKeys(meta.Input...)
	rec.Target().SetKeys(meta.Target...)
	return rec, meta, nil
}

func parseMeta(raw map[string]string, tensors map[string]*tensor.RawTensor) (RecordMeta, error) {
	var meta RecordMeta
	if raw[metaFormat] != formatName {
		meta.Keys = make([]string, 0, len(tensors))
		for k := range tensors {
			meta.Keys = append(meta.Keys, k)
		}
		slices.Sort(meta.Keys)
		return meta, nil
	}

	id, err := uuid.Parse(raw[metaRecordID])
	if err != nil {
		return meta, fmt.Errorf("%w: record id: %w", ErrInvalidHeader, err)
	}
	meta.ID = id
	for key, dst := range map[string]any{
		metaKeys:    &meta.Keys,
		metaInput:   &meta.Input,
		metaTarget:  &meta.Target,
		metaPattern: &meta.Patterns,
	} {
		if err := json.Unmarshal([]byte(raw[key]), dst); err != nil {
			return meta, fmt.Errorf("%w: %s: %w", ErrInvalidHeader, key, err)
		}
	}
	if len(meta.Keys) != len(tensors) {
		return meta, fmt.Errorf("%w: %d keys listed, %d tensors stored", ErrInvalidHeader, len(meta.Keys), len(tensors))
	}
	for _, k := range meta.Keys {
		if _, ok := tensors[k]; !ok {
			return meta, fmt.Errorf("%w: key %q has no tensor", ErrInvalidHeader, k)
		}
	}
	return meta, nil
}
