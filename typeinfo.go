package main

import (
	"fmt"

	"github.com/pontaoski/tawash/compiler"
	"github.com/pontaoski/tawash/reader"
	"github.com/spf13/afero"
	"github.com/ztrue/tracerr"
)

func getTypeInfoFromFile(fs afero.Fs, f string) (compiler.TypeInfo, error) {
	if f == "" {
		return compiler.TypeInfo{}, fmt.Errorf("no script provided")
	}
	data, err := reader.ReadTypeInfo(fs, f)
	if err != nil {
		return compiler.TypeInfo{}, err
	}

	t, err := compiler.DecodeTypeInfo(data)
	if err != nil {
		return compiler.TypeInfo{}, tracerr.Wrap(err)
	}
	return t, nil
}
