package index

import (
	"errors"
	"fmt"
	"io"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// writeNpy writes vectors as a 2-D array of shape (len(vectors), dim).
// Values are stored as float64, which holds every float32 exactly.
func writeNpy(w io.Writer, vectors [][]float32, dim int) error {
	if len(vectors) == 0 || dim < 1 {
		return errors.New("no vectors to write")
	}

	data := make([]float64, 0, len(vectors)*dim)
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), dim)
		}
		for _, x := range v {
			data = append(data, float64(x))
		}
	}
	return npyio.Write(w, mat.NewDense(len(vectors), dim, data))
}

// readNpy reads a 2-D little endian float32 or float64 array in C order and
// returns its rows and column count. size is the length of the file; a
// header claiming more data than that is rejected before anything is
// allocated.
func readNpy(r io.Reader, size int64) ([][]float32, int, error) {
	nr, err := npyio.NewReader(r)
	if err != nil {
		return nil, 0, fmt.Errorf("reading npy header: %w", err)
	}

	descr := nr.Header.Descr
	var width int64
	switch descr.Type {
	case "<f4":
		width = 4
	case "<f8":
		width = 8
	default:
		return nil, 0, fmt.Errorf("unsupported npy dtype %q", descr.Type)
	}
	if descr.Fortran {
		return nil, 0, errors.New("npy array must be in C order")
	}
	if len(descr.Shape) != 2 {
		return nil, 0, fmt.Errorf("npy array must be 2-D, got shape %v", descr.Shape)
	}

	rows, cols := descr.Shape[0], descr.Shape[1]
	if rows < 0 || cols < 1 {
		return nil, 0, fmt.Errorf("invalid npy shape %v", descr.Shape)
	}
	if int64(cols) > size/width || int64(rows) > size/(width*int64(cols)) {
		return nil, 0, fmt.Errorf("npy shape %v does not fit in a %d byte file", descr.Shape, size)
	}

	var flat []float32
	if width == 4 {
		if err := nr.Read(&flat); err != nil {
			return nil, 0, fmt.Errorf("reading npy data: %w", err)
		}
	} else {
		var wide []float64
		if err := nr.Read(&wide); err != nil {
			return nil, 0, fmt.Errorf("reading npy data: %w", err)
		}
		flat = make([]float32, len(wide))
		for i, x := range wide {
			flat[i] = float32(x)
		}
	}
	if len(flat) != rows*cols {
		return nil, 0, fmt.Errorf("npy data has %d values, shape %v needs %d", len(flat), descr.Shape, rows*cols)
	}

	vectors := make([][]float32, rows)
	for i := range vectors {
		vectors[i] = flat[i*cols : (i+1)*cols : (i+1)*cols]
	}
	return vectors, cols, nil
}
