// Package reader recovers the type information embedded in a compiled
// script.
package reader

import (
	"bufio"
	stderrors "errors"
	"strings"

	"github.com/pontaoski/tawash/emit"
	"github.com/spf13/afero"
	"github.com/ztrue/tracerr"
)

// ErrNoTypeInfo is returned for scripts compiled without type information.
var ErrNoTypeInfo = stderrors.New("script carries no type information")

// ReadTypeInfo returns the JSON type information from the header of the
// script at path.
func ReadTypeInfo(fs afero.Fs, from string) (string, error) {
	f, err := fs.Open(from)
	if err != nil {
		return "", tracerr.Wrap(err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "#") {
			// the header ends at the first line that is not a comment
			break
		}
		if strings.HasPrefix(line, emit.TypeInfoPrefix) {
			return strings.TrimPrefix(line, emit.TypeInfoPrefix), nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", tracerr.Wrap(err)
	}
	return "", tracerr.Wrap(ErrNoTypeInfo)
}
