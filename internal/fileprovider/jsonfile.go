package fileprovider

import (
	"bufio"
	"encoding/json"
	"io"
	"os"

	"github.com/sanix-darker/loadgun/internal/jsonvalue"
)

func init() {
	Register("json", newJSONReader)
}

type jsonReader struct {
	opts Options
	file *os.File

	// NDJSON mode
	scanner *bufio.Scanner

	// array mode
	dec        *json.Decoder
	arrayDone  bool
	arrayOpens bool
}

func newJSONReader(opts Options) (Reader, error) {
	f, err := os.Open(opts.Path)
	if err != nil {
		return nil, err
	}
	r := &jsonReader{opts: opts, file: f}
	if err := r.restart(); err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func (r *jsonReader) restart() error {
	if _, err := r.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if r.opts.NDJSON {
		r.scanner = bufio.NewScanner(r.file)
		r.scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
		return nil
	}
	r.dec = json.NewDecoder(r.file)
	tok, err := r.dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '[' {
		return &json.SyntaxError{}
	}
	r.arrayDone = false
	return nil
}

func (r *jsonReader) Next() (jsonvalue.V, error) {
	if r.opts.NDJSON {
		return r.nextNDJSON()
	}
	return r.nextArrayElement()
}

func (r *jsonReader) nextNDJSON() (jsonvalue.V, error) {
	for {
		if r.scanner.Scan() {
			line := r.scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var v jsonvalue.V
			if err := json.Unmarshal(line, &v); err != nil {
				return nil, err
			}
			return v, nil
		}
		if err := r.scanner.Err(); err != nil {
			return nil, err
		}
		if !r.opts.Repeat {
			return nil, io.EOF
		}
		if err := r.restart(); err != nil {
			return nil, err
		}
	}
}

func (r *jsonReader) nextArrayElement() (jsonvalue.V, error) {
	for {
		if !r.arrayDone && r.dec.More() {
			var v jsonvalue.V
			if err := r.dec.Decode(&v); err != nil {
				return nil, err
			}
			return v, nil
		}
		r.arrayDone = true
		if !r.opts.Repeat {
			return nil, io.EOF
		}
		if err := r.restart(); err != nil {
			return nil, err
		}
	}
}

func (r *jsonReader) Close() error { return r.file.Close() }
