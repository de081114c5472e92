package resource

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// definitionsFile is the on-disk shape of the resource definition list.
type definitionsFile struct {
	Resources []*Definition `yaml:"resources"`
}

// LoadDefinitions reads the resource definition file. A missing file is
// not an error: it yields zero definitions and every metric is reported
// as unhandled at routing time.
func LoadDefinitions(path string) ([]*Definition, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resource: read definitions %s: %w", path, err)
	}
	var file definitionsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("resource: parse definitions %s: %w", path, err)
	}
	return file.Resources, nil
}

// LoadPolicyMap reads the legacy archive policy file. A missing file
// yields an empty map; rule order in the file is preserved.
func LoadPolicyMap(path string) (*PolicyMap, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewPolicyMap(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("resource: read archive policy map %s: %w", path, err)
	}
	var rules []PolicyRule
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return nil, fmt.Errorf("resource: parse archive policy map %s: %w", path, err)
	}
	m, err := NewPolicyMap(rules)
	if err != nil {
		return nil, fmt.Errorf("%w (in %s)", err, path)
	}
	return m, nil
}
