package config

import (
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func TestFieldsHaveYamlNames(t *testing.T) {
	rt := reflect.TypeOf(Module{})
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		name := strings.Split(field.Tag.Get("yaml"), ",")[0]
		assert.Equal(t, field.Name, name)
	}
}

func TestSaveLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, Save(fs, "proj", Module{Package: "hello", MaxDepth: 512}))

	raw, err := afero.ReadFile(fs, "proj/"+FileName)
	require.NoError(t, err)
	var fields map[string]interface{}
	require.NoError(t, yaml.Unmarshal(raw, &fields))
	assert.Equal(t, map[string]interface{}{"Package": "hello", "MaxDepth": 512}, fields)

	m, err := Load(fs, "proj")
	require.NoError(t, err)
	assert.Equal(t, Module{Package: "hello", MaxDepth: 512}, *m)
	assert.Equal(t, Module{Package: "hello", Entry: "main", MaxDepth: 512, Output: "hello"}, m.WithDefaults())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		m     Module
		field string
	}{
		{Module{}, "Package"},
		{Module{Package: "a/b"}, "Package"},
		{Module{Package: "p", Entry: "not-a-name"}, "Entry"},
		{Module{Package: "p", MaxDepth: 4}, "MaxDepth"},
		{Module{Package: "p", MaxDepth: 200000}, "MaxDepth"},
	}
	for _, tt := range tests {
		err := tt.m.Validate()
		require.Error(t, err, "%+v", tt.m)
		assert.Contains(t, err.Error(), tt.field)
	}
	assert.NoError(t, (&Module{Package: "p", Entry: "start", MaxDepth: 8, TypeInfo: true, Output: "bin/p"}).Validate())
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, FileName, []byte("Package: p\nLibrary: true\n"), 0644))
	_, err := Load(fs, ".")
	assert.Error(t, err)

	_, err = Load(fs, "missing")
	assert.Error(t, err)
}
