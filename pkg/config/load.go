package config

import (
	"bytes"
	stderrors "errors"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/vnykmshr/flowgate/pkg/common/errors"
)

// Environment variables that override the defaults section.
const (
	EnvDebug    = "FLOWGATE_DEBUG"
	EnvDisabled = "FLOWGATE_DISABLED"
)

// Load reads and validates the configuration file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewOperationError("config", "load", err).WithContext(path)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, errors.NewOperationError("config", "load", err).WithContext(path)
	}
	return f, nil
}

// LoadWithEnvOverrides loads path, then applies FLOWGATE_DEBUG and
// FLOWGATE_DISABLED on top of the defaults section.
func LoadWithEnvOverrides(path string) (*File, error) {
	f, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := f.applyEnv(); err != nil {
		return nil, err
	}
	return f, nil
}

// Parse decodes and validates a YAML document. Unknown fields are
// rejected. An empty document yields an empty File.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, errors.NewOperationError("config", "parse", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) applyEnv() error {
	for name, target := range map[string]*bool{
		EnvDebug:    &f.Defaults.Debug,
		EnvDisabled: &f.Defaults.Disabled,
	} {
		val := os.Getenv(name)
		if val == "" {
			continue
		}
		b, err := strconv.ParseBool(val)
		if err != nil {
			return errors.NewValidationError("config", name, val, "not a boolean").
				WithHint("use true or false")
		}
		*target = b
	}
	return nil
}
