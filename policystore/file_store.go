// Package policystore provides file-based persistence for per-command
// untrusted-access overrides.
package policystore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/reglet-dev/reglet-command-host/policy"
	jsv "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// fileStoreConfig holds configuration for the FileStore.
type fileStoreConfig struct {
	path     string
	dirPerm  os.FileMode
	filePerm os.FileMode
}

func defaultFileStoreConfig() fileStoreConfig {
	return fileStoreConfig{
		path:     filepath.Join(os.Getenv("HOME"), ".reglet", "slurl-overrides.yaml"),
		dirPerm:  0o755,
		filePerm: 0o600,
	}
}

// FileStoreOption configures a FileStore instance.
type FileStoreOption func(*fileStoreConfig)

// WithPath sets the path to the overrides file.
func WithPath(path string) FileStoreOption {
	return func(c *fileStoreConfig) {
		if path != "" {
			c.path = path
		}
	}
}

// WithFilePermissions sets the file permissions for the overrides file.
func WithFilePermissions(perm os.FileMode) FileStoreOption {
	return func(c *fileStoreConfig) {
		c.filePerm = perm
	}
}

// WithDirPermissions sets the directory permissions for the overrides directory.
func WithDirPermissions(perm os.FileMode) FileStoreOption {
	return func(c *fileStoreConfig) {
		c.dirPerm = perm
	}
}

// FileStore persists Overrides as YAML.
type FileStore struct {
	config fileStoreConfig
}

// NewFileStore creates a new FileStore with the given options.
func NewFileStore(opts ...FileStoreOption) *FileStore {
	cfg := defaultFileStoreConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &FileStore{config: cfg}
}

// Load reads the overrides. A missing file yields empty overrides.
func (s *FileStore) Load() (*Overrides, error) {
	data, err := os.ReadFile(s.config.path)
	if os.IsNotExist(err) {
		return &Overrides{Version: CurrentVersion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read overrides: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates an overrides document.
func Parse(data []byte) (*Overrides, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse overrides: %w", err)
	}
	if raw == nil {
		return &Overrides{Version: CurrentVersion}, nil
	}
	if err := validateDocument(raw); err != nil {
		return nil, err
	}

	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("failed to parse overrides: %w", err)
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return &o, nil
}

// Save writes the overrides.
func (s *FileStore) Save(o *Overrides) error {
	if o == nil {
		o = &Overrides{}
	}
	if err := o.Validate(); err != nil {
		return err
	}
	out := *o
	if out.Version == 0 {
		out.Version = CurrentVersion
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to marshal overrides: %w", err)
	}

	dir := filepath.Dir(s.config.path)
	if err := os.MkdirAll(dir, s.config.dirPerm); err != nil {
		return fmt.Errorf("failed to create overrides directory: %w", err)
	}

	if err := os.WriteFile(s.config.path, data, s.config.filePerm); err != nil {
		return fmt.Errorf("failed to write overrides: %w", err)
	}
	return nil
}

// ConfigPath returns the path to the backing file.
func (s *FileStore) ConfigPath() string {
	return s.config.path
}

const schemaURL = "mem://policystore/overrides.schema.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsv.Schema
	schemaErr      error
)

// Schema returns the JSON schema of the overrides document.
func Schema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	r.Mapper = func(t reflect.Type) *jsonschema.Schema {
		if t == reflect.TypeOf(policy.Access(0)) {
			return &jsonschema.Schema{
				Type:    "string",
				Pattern: "^(?i:(untrusted_?)?(allow|block|throttle))$",
			}
		}
		return nil
	}
	s := r.Reflect(&Overrides{})
	s.Title = "SLURL access overrides"
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal overrides schema: %w", err)
	}
	return b, nil
}

func validateDocument(raw any) error {
	schemaOnce.Do(func() {
		var b []byte
		b, schemaErr = Schema()
		if schemaErr != nil {
			return
		}
		compiledSchema, schemaErr = jsv.CompileString(schemaURL, string(b))
	})
	if schemaErr != nil {
		return fmt.Errorf("failed to compile overrides schema: %w", schemaErr)
	}

	// Round-trip through JSON so numbers and maps have the shapes the validator expects.
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to normalise overrides: %w", err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("failed to normalise overrides: %w", err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOverrides, err)
	}
	return nil
}
