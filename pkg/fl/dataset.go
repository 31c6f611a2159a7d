package fl

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strconv"
	"sync"

	"github.com/absmach/cortex/pkg/dp"
)

// Dataset hands out fixed size batches round robin, wrapping at the end.
type Dataset struct {
	mu        sync.Mutex
	samples   []Sample
	batchSize int
	cursor    int
}

func NewDataset(samples []Sample, batchSize int) (*Dataset, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyDataset
	}

	return &Dataset{
		samples:   samples,
		batchSize: max(batchSize, 1),
	}, nil
}

// LoadCSV reads one sample per record. The last column is the label and
// every record must have the same number of columns.
func LoadCSV(r io.Reader, batchSize int) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.TrimLeadingSpace = true

	var samples []Sample
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read dataset: %w", err)
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("record %d: need at least one feature and a label", line)
		}

		values := make([]float32, len(record))
		for i, field := range record {
			v, err := strconv.ParseFloat(field, 32)
			if err != nil {
				return nil, fmt.Errorf("record %d column %d: %w", line, i+1, err)
			}
			values[i] = float32(v)
		}
		samples = append(samples, Sample{Features: values[:len(values)-1], Label: values[len(values)-1]})
	}

	return NewDataset(samples, batchSize)
}

func LoadCSVFile(path string, batchSize int) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	return LoadCSV(f, batchSize)
}

// Synthetic draws samples of y = w·x + b with fixed random w and b and
// small label noise.
func Synthetic(n, features, batchSize int, src dp.Source) (*Dataset, error) {
	w := make([]float32, features)
	for i := range w {
		w[i] = 2*dp.Float32(src) - 1
	}
	b := 2*dp.Float32(src) - 1

	samples := make([]Sample, n)
	for i := range samples {
		x := make([]float32, features)
		y := b
		for j := range x {
			x[j] = 2*dp.Float32(src) - 1
			y += w[j] * x[j]
		}
		y += (dp.Float32(src) - 0.5) * 0.01
		samples[i] = Sample{Features: x, Label: y}
	}

	return NewDataset(samples, batchSize)
}

func (d *Dataset) Len() int {
	return len(d.samples)
}

func (d *Dataset) Features() int {
	return len(d.samples[0].Features)
}

func (d *Dataset) BatchSize() int {
	return d.batchSize
}

// Batches yields up to n batches starting where the previous call stopped.
func (d *Dataset) Batches(n int) iter.Seq[[]Sample] {
	return func(yield func([]Sample) bool) {
		for range n {
			if !yield(d.next()) {
				return
			}
		}
	}
}

func (d *Dataset) next() []Sample {
	d.mu.Lock()
	defer d.mu.Unlock()

	batch := make([]Sample, 0, d.batchSize)
	for range d.batchSize {
		batch = append(batch, d.samples[d.cursor])
		d.cursor = (d.cursor + 1) % len(d.samples)
	}

	return batch
}
