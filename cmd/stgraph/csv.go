package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/stgraph/internal/tensor"
)

var errEmptyCSV = errors.New("csv has no rows")

// readCSV parses a numeric CSV. Empty cells and "nan" read as NaN; a first
// row that does not parse is taken as a header and skipped.
func readCSV(path string) ([][]float64, error) {
	//nolint:gosec // G304: path is given on the command line
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	var rows [][]float64
	for line := 1; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		row, err := parseRow(rec)
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", path, errEmptyCSV)
	}
	return rows, nil
}

func parseRow(rec []string) ([]float64, error) {
	row := make([]float64, len(rec))
	for i, cell := range rec {
		cell = strings.TrimSpace(cell)
		if cell == "" || strings.EqualFold(cell, "nan") {
			row[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}

// loadSeries reads a (T, N*channels) node-major CSV into a Float32 series of
// shape [T, N, channels] and a Bool mask that is false on missing values.
func loadSeries(path string, channels int) (series, mask *tensor.RawTensor, err error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, nil, err
	}
	cols := len(rows[0])
	if cols%channels != 0 {
		return nil, nil, fmt.Errorf("%s: %d columns is not a multiple of %d channels", path, cols, channels)
	}

	values := make([]float64, 0, len(rows)*cols)
	valid := make([]float64, 0, len(rows)*cols)
	for _, row := range rows {
		for _, v := range row {
			if math.IsNaN(v) {
				values, valid = append(values, 0), append(valid, 0)
				continue
			}
			values, valid = append(values, v), append(valid, 1)
		}
	}
	shape := tensor.Shape{len(rows), cols / channels, channels}
	if series, err = tensor.FromFloat64s(values, shape, tensor.Float32); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	if mask, err = tensor.FromFloat64s(valid, shape, tensor.Bool); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return series, mask, nil
}

// loadDistances reads a square CSV matrix. NaN entries mean unreachable.
func loadDistances(path string) (*mat.Dense, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	n := len(rows)
	flat := make([]float64, 0, n*n)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("%s: row %d has %d values, want %d", path, i, len(row), n)
		}
		for _, v := range row {
			if math.IsNaN(v) {
				v = math.Inf(1)
			}
			flat = append(flat, v)
		}
	}
	return mat.NewDense(n, n, flat), nil
}
