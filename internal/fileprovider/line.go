package fileprovider

import (
	"bufio"
	"io"
	"os"

	"github.com/sanix-darker/loadgun/internal/jsonvalue"
)

func init() {
	Register("line", newLineReader)
}

type lineReader struct {
	opts    Options
	file    *os.File
	scanner *bufio.Scanner
}

func newLineReader(opts Options) (Reader, error) {
	f, err := os.Open(opts.Path)
	if err != nil {
		return nil, err
	}
	return &lineReader{opts: opts, file: f, scanner: bufio.NewScanner(f)}, nil
}

// Next returns the next non-empty line as a JSON string, UTF-8, LF or CRLF
// terminated (bufio.Scanner's default line-split strips both).
func (r *lineReader) Next() (jsonvalue.V, error) {
	for {
		if r.scanner.Scan() {
			line := r.scanner.Text()
			if line == "" {
				continue
			}
			return line, nil
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

func (r *lineReader) restart() error {
	if _, err := r.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	r.scanner = bufio.NewScanner(r.file)
	return nil
}

func (r *lineReader) Close() error { return r.file.Close() }
