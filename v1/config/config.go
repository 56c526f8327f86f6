// Package config loads a YAML file into a configuration struct and then applies
// environment overrides from the envconfig tags of its fields.
//
// Package configs across this module carry both tags, for example
//
//	Level string `yaml:"level" envconfig:"ZAP_LOGGER_LEVEL"`
//
// so a nested application struct can be filled from a file and selectively
// overridden by ZAP_LOGGER_LEVEL, regardless of nesting.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// ErrInvalidTarget is returned when the target is not a non-nil struct pointer.
var ErrInvalidTarget = errors.New("config: target must be a non-nil pointer to a struct")

// Validator is implemented by configs that can check themselves after loading.
type Validator interface {
	Validate() error
}

// Load decodes the YAML file at path into target (skipped when path is empty), then
// applies environment overrides. If target implements Validator, it is validated last.
func Load(path string, target interface{}) error {
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("config: open %s: %w", path, err)
		}
		defer f.Close()

		if err := Decode(f, target); err != nil {
			return fmt.Errorf("config: %s: %w", path, err)
		}
	}

	if err := envconfig.Process("", target); err != nil {
		if errors.Is(err, envconfig.ErrInvalidSpecification) {
			return ErrInvalidTarget
		}
		return fmt.Errorf("config: environment: %w", err)
	}

	if v, ok := target.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config: invalid: %w", err)
		}
	}
	return nil
}

// Decode strictly decodes YAML from r into target. Unknown keys are errors.
// An empty document leaves target untouched.
func Decode(r io.Reader, target interface{}) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
