package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WriteDefault writes the default configuration to path as YAML.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	header := []byte(`# ocrsplit configuration
# Every key can be overridden with an OCRSPLIT_ environment variable,
# e.g. OCRSPLIT_OCR_LANGUAGE=deu or OCRSPLIT_CHAPTERS_KEEP_PREAMBLE=true

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
