package fileprovider_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sanix-darker/loadgun/internal/fileprovider"
	"github.com/sanix-darker/loadgun/internal/jsonvalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func drainAll(t *testing.T, r fileprovider.Reader) []jsonvalue.V {
	t.Helper()
	var out []jsonvalue.V
	for {
		v, err := r.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, v)
	}
}

func TestLineReader_NonRepeat_ExactlyNThenEOF(t *testing.T) {
	path := writeTemp(t, "lines.txt", "a\n\nb\nc\n")
	r, err := fileprovider.New("line", fileprovider.Options{Path: path})
	require.NoError(t, err)
	defer r.Close()

	values := drainAll(t, r)
	assert.Equal(t, []jsonvalue.V{"a", "b", "c"}, values)
}

func TestCSVReader_HeaderRow(t *testing.T) {
	path := writeTemp(t, "data.csv", "name,age,active\nbob,30,true\nsue,25,false\n")
	r, err := fileprovider.New("csv", fileprovider.Options{
		Path:    path,
		Headers: fileprovider.CSVHeaders{Auto: true},
	})
	require.NoError(t, err)
	defer r.Close()

	values := drainAll(t, r)
	require.Len(t, values, 2)
	obj, ok := jsonvalue.AsObject(values[0])
	require.True(t, ok)
	assert.Equal(t, "bob", obj["name"])
	assert.Equal(t, float64(30), obj["age"])
	assert.Equal(t, true, obj["active"])
}

func TestCSVReader_Repeat(t *testing.T) {
	path := writeTemp(t, "data.csv", "a,b\n1,2\n")
	r, err := fileprovider.New("csv", fileprovider.Options{
		Path:    path,
		Repeat:  true,
		Headers: fileprovider.CSVHeaders{Auto: true},
	})
	require.NoError(t, err)
	defer r.Close()

	for i := 0; i < 5; i++ {
		v, err := r.Next()
		require.NoError(t, err)
		obj, _ := jsonvalue.AsObject(v)
		assert.Equal(t, float64(1), obj["a"])
	}
}

func TestJSONReader_Array(t *testing.T) {
	path := writeTemp(t, "data.json", `[1, "two", {"three": 3}]`)
	r, err := fileprovider.New("json", fileprovider.Options{Path: path})
	require.NoError(t, err)
	defer r.Close()

	values := drainAll(t, r)
	require.Len(t, values, 3)
	assert.Equal(t, float64(1), values[0])
	assert.Equal(t, "two", values[1])
}

func TestJSONReader_NDJSON(t *testing.T) {
	path := writeTemp(t, "data.ndjson", "{\"a\":1}\n\n{\"a\":2}\n")
	r, err := fileprovider.New("json", fileprovider.Options{Path: path, NDJSON: true})
	require.NoError(t, err)
	defer r.Close()

	values := drainAll(t, r)
	require.Len(t, values, 2)
}

func TestRegistry_UnknownFormat(t *testing.T) {
	_, err := fileprovider.New("xml", fileprovider.Options{})
	assert.Error(t, err)
}
