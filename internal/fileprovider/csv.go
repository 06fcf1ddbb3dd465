package fileprovider

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/sanix-darker/loadgun/internal/jsonvalue"
)

func init() {
	Register("csv", newCSVReader)
}

type csvReader struct {
	opts    Options
	file    *os.File
	reader  *csv.Reader
	headers []string
}

func newCSVReader(opts Options) (Reader, error) {
	f, err := os.Open(opts.Path)
	if err != nil {
		return nil, err
	}
	r := &csvReader{opts: opts, file: f}
	if err := r.restart(); err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func (r *csvReader) newCSVDecoder() *csv.Reader {
	cr := csv.NewReader(r.file)
	if r.opts.Delimiter != 0 {
		cr.Comma = r.opts.Delimiter
	}
	cr.FieldsPerRecord = -1
	return cr
}

func (r *csvReader) restart() error {
	if _, err := r.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	r.reader = r.newCSVDecoder()

	switch {
	case len(r.opts.Headers.Names) > 0:
		r.headers = r.opts.Headers.Names
	case r.opts.Headers.Auto:
		row, err := r.reader.Read()
		if err != nil {
			return err
		}
		r.headers = row
	default:
		r.headers = nil // positional, resolved lazily from the first data row
	}
	return nil
}

// Next reads the next data row and returns it as a JSON object keyed by
// header name, with each cell optimistically coerced to number/bool/null/
// string (spec.md §4.B).
func (r *csvReader) Next() (jsonvalue.V, error) {
	for {
		row, err := r.reader.Read()
		if err == io.EOF {
			if !r.opts.Repeat {
				return nil, io.EOF
			}
			if restartErr := r.restart(); restartErr != nil {
				return nil, restartErr
			}
			continue
		}
		if err != nil {
			return nil, err
		}

		headers := r.headers
		if headers == nil {
			headers = make([]string, len(row))
			for i := range row {
				headers[i] = strconv.Itoa(i)
			}
		}

		obj := jsonvalue.NewObject()
		for i, cell := range row {
			key := strconv.Itoa(i)
			if i < len(headers) {
				key = headers[i]
			}
			obj[key] = jsonvalue.ParseScalar(cell)
		}
		return obj, nil
	}
}

func (r *csvReader) Close() error { return r.file.Close() }
