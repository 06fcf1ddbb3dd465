// Package pathutil resolves provider and logger file paths the way pewpew's
// util.rs tweak_path does: relative to the test declaration's own directory,
// not the process's current working directory, so a config file can be
// invoked from anywhere.
package pathutil

import (
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
)

// Resolve rewrites rest to be relative to base's directory when rest itself
// is a relative path. base is normally the path to the YAML test
// declaration currently being loaded.
func Resolve(rest string, base string) string {
	expanded, err := homedir.Expand(rest)
	if err == nil {
		rest = expanded
	}
	if filepath.IsAbs(rest) {
		return rest
	}
	return filepath.Join(filepath.Dir(base), rest)
}
