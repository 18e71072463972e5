// Package config reads and writes the module information file that sits at
// the root of a tawash project.
package config

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"github.com/ztrue/tracerr"
	"gopkg.in/yaml.v2"
)

const FileName = "Tawash Module Information"

const (
	DefaultEntry    = "main"
	DefaultMaxDepth = 256
)

type Module struct {
	Package string `yaml:"Package" validate:"required,excludesall=/\\"`
	// Entry names the function the script runs.
	Entry    string `yaml:"Entry,omitempty" validate:"omitempty,ident"`
	MaxDepth int    `yaml:"MaxDepth,omitempty" validate:"omitempty,gte=8,lte=100000"`
	TypeInfo bool   `yaml:"TypeInfo,omitempty"`
	// Output is the script written by `build`; the package name when
	// empty.
	Output string `yaml:"Output,omitempty"`
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate the module information for basic semantic errors.
func (m *Module) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
	})
	if err := validate.RegisterValidation("ident", func(fl validator.FieldLevel) bool {
		return identifier.MatchString(fl.Field().String())
	}); err != nil {
		return err
	}
	return validate.Struct(m)
}

// WithDefaults fills in the fields left empty.
func (m Module) WithDefaults() Module {
	if m.Entry == "" {
		m.Entry = DefaultEntry
	}
	if m.MaxDepth == 0 {
		m.MaxDepth = DefaultMaxDepth
	}
	if m.Output == "" {
		m.Output = m.Package
	}
	return m
}

// Load reads the module information in dir.
func Load(fs afero.Fs, dir string) (*Module, error) {
	data, err := afero.ReadFile(fs, joinPath(dir, FileName))
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	var out Module
	if err := yaml.UnmarshalStrict(data, &out); err != nil {
		return nil, tracerr.Wrap(err)
	}
	if err := out.Validate(); err != nil {
		return nil, tracerr.Wrap(err)
	}
	return &out, nil
}

// Save writes m as the module information in dir.
func Save(fs afero.Fs, dir string, m Module) error {
	if err := m.Validate(); err != nil {
		return tracerr.Wrap(err)
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return tracerr.Wrap(err)
	}
	if dir != "" && dir != "." {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return tracerr.Wrap(err)
		}
	}
	return tracerr.Wrap(afero.WriteFile(fs, joinPath(dir, FileName), data, 0644))
}

func joinPath(dir, name string) string {
	if dir == "" || dir == "." {
		return name
	}
	return strings.TrimSuffix(dir, "/") + "/" + name
}
