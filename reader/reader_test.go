package reader

import (
	stderrors "errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ztrue/tracerr"
)

func TestReadTypeInfo(t *testing.T) {
	fs := afero.NewMemMapFs()
	script := "#!/bin/sh\n" +
		"# Code generated by tawash. DO NOT EDIT.\n" +
		"# tawash:typeinfo {\"functions\":{\"main\":\"fn()\"}}\n" +
		"exec 3>&1\n" +
		"\n" +
		"main() {\n    :\n}\n\nmain \"$@\"\n"
	require.NoError(t, afero.WriteFile(fs, "prog", []byte(script), 0755))

	data, err := ReadTypeInfo(fs, "prog")
	require.NoError(t, err)
	assert.Equal(t, `{"functions":{"main":"fn()"}}`, data)
}

func TestReadTypeInfoMissing(t *testing.T) {
	fs := afero.NewMemMapFs()
	// a comment after the header is not part of it
	script := "#!/bin/sh\n\nmain() {\n    :\n}\n# tawash:typeinfo {}\n"
	require.NoError(t, afero.WriteFile(fs, "prog", []byte(script), 0755))

	_, err := ReadTypeInfo(fs, "prog")
	require.Error(t, err)
	assert.True(t, stderrors.Is(tracerr.Unwrap(err), ErrNoTypeInfo))

	_, err = ReadTypeInfo(fs, "absent")
	assert.Error(t, err)
}
