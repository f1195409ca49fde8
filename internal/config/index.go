package config

import (
	"os"
	"strconv"

	"dewey/internal/index"
)

// IndexSetConfig controls how the default index family is installed on a
// freshly bootstrapped catalog.
type IndexSetConfig struct {
	CaseSensitive bool
}

// LoadIndexSetConfigFromEnv loads index configuration from environment
// variables:
//   - DEWEY_CASE_SENSITIVE: "true"/"false" (default true), applied to the
//     String and Path indices in Default.
func LoadIndexSetConfigFromEnv() IndexSetConfig {
	cfg := IndexSetConfig{CaseSensitive: true}
	if v := os.Getenv("DEWEY_CASE_SENSITIVE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.CaseSensitive = b
		}
	}
	return cfg
}

// Default builds the standard index set for catalog.FileResource: String
// indices over name and ext, an Enumeration over isdir, and a Path index
// over path.
func (c IndexSetConfig) Default() map[string]index.Index {
	return map[string]index.Index{
		"name":  index.NewString("name", c.CaseSensitive),
		"ext":   index.NewString("ext", c.CaseSensitive),
		"isdir": index.NewEnumeration("isdir", "true", "false"),
		"path":  index.NewPath("path", c.CaseSensitive),
	}
}
