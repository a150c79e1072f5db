// Package config implements xpvm.yaml: an optional file that seeds a
// StaticContext's defaults (namespace bindings, default collation, xsd
// version) before a query or stylesheet is compiled, plus the engine-wide
// ambient constants (source extensions, error-code prefix) and the cache
// location lookup.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/arborxml/xpvm/internal/runtimectx"
)

// SourceFileExt is the canonical extension for standalone XPath query files.
const SourceFileExt = ".xpath"

// SourceFileExtensions lists the file extensions of XPath query and XSLT
// stylesheet sources.
var SourceFileExtensions = []string{".xpath", ".xsl", ".xslt"}

// ConfigFileNames are the file names FindConfig looks for, preferred first.
var ConfigFileNames = []string{"xpvm.yaml", "xpvm.yml"}

// ErrorCodePrefix is the prefix of the engine's own diagnostics.Error codes
// (XPVM0001 and the like), as opposed to the standard XPath error codes.
const ErrorCodePrefix = "XPVM"

// Namespace is a single prefix -> URI binding, as written in xpvm.yaml's
// namespaces list.
type Namespace struct {
	Prefix string `yaml:"prefix"`
	URI    string `yaml:"uri"`
}

// Config is the top-level xpvm.yaml document.
type Config struct {
	// DefaultCollation overrides the engine's default string collation URI.
	// Empty means the codepoint collation (runtimectx.UnicodeCodepointURI).
	DefaultCollation string `yaml:"default_collation,omitempty"`

	// Namespaces are additional prefix -> URI bindings merged into every
	// compiled StaticContext's namespace scope, alongside the fixed
	// xml/xs/fn/math/map/array/xsl bindings name.NewNamespaceContext seeds.
	Namespaces []Namespace `yaml:"namespaces,omitempty"`

	// DefaultElementNamespace and DefaultFunctionNamespace seed the
	// StaticContext fields of the same name.
	DefaultElementNamespace  string `yaml:"default_element_namespace,omitempty"`
	DefaultFunctionNamespace string `yaml:"default_function_namespace,omitempty"`

	// XSDVersion records the XSD version, "1.0" or "1.1"; validate rejects
	// any other value. No package outside config reads it.
	// Defaults to "1.1" if omitted.
	XSDVersion string `yaml:"xsd_version,omitempty"`

	// CacheDir overrides the directory CacheDirOrDefault reports for the
	// SQLite program cache. If omitted, CacheDirOrDefault falls back to an
	// os.UserCacheDir()-relative path.
	CacheDir string `yaml:"cache_dir,omitempty"`
}

// LoadConfig reads and parses an xpvm.yaml file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses xpvm.yaml content from bytes. path is used only for
// error messages.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &cfg, nil
}

// FindConfig searches for xpvm.yaml (or .yml) starting from dir and walking
// up to parent directories. Returns "" with a nil error if none is found.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		for _, name := range ConfigFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func (c *Config) validate(path string) error {
	seen := make(map[string]string)
	for i, ns := range c.Namespaces {
		if ns.Prefix == "" {
			return fmt.Errorf("%s: namespaces[%d]: prefix is required", path, i)
		}
		if ns.URI == "" {
			return fmt.Errorf("%s: namespaces[%d] (%s): uri is required", path, i, ns.Prefix)
		}
		if prev, ok := seen[ns.Prefix]; ok && prev != ns.URI {
			return fmt.Errorf("%s: namespaces[%d]: prefix %q rebinds %s to %s", path, i, ns.Prefix, prev, ns.URI)
		}
		seen[ns.Prefix] = ns.URI
	}
	if c.XSDVersion != "" && c.XSDVersion != "1.0" && c.XSDVersion != "1.1" {
		return fmt.Errorf("%s: xsd_version must be \"1.0\" or \"1.1\", got %q", path, c.XSDVersion)
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.XSDVersion == "" {
		c.XSDVersion = "1.1"
	}
}

// NewStaticContext builds a runtimectx.StaticContext seeded with this
// config's defaults, layered on top of runtimectx.NewStaticContext's fixed
// bindings. A nil Config is equivalent to an empty one.
func (c *Config) NewStaticContext() *runtimectx.StaticContext {
	sc := runtimectx.NewStaticContext()
	if c == nil {
		return sc
	}
	for _, ns := range c.Namespaces {
		sc.Namespaces.Bind(ns.Prefix, ns.URI)
	}
	if c.DefaultCollation != "" {
		sc.DefaultCollation = c.DefaultCollation
	}
	if c.DefaultElementNamespace != "" {
		sc.DefaultElementNamespace = c.DefaultElementNamespace
	}
	if c.DefaultFunctionNamespace != "" {
		sc.DefaultFunctionNamespace = c.DefaultFunctionNamespace
	}
	return sc
}

// CacheDirOrDefault returns where the program cache's database goes: the
// config's override if set, otherwise a subdirectory of os.UserCacheDir().
func (c *Config) CacheDirOrDefault() (string, error) {
	if c != nil && c.CacheDir != "" {
		return c.CacheDir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolving default cache dir: %w", err)
	}
	return filepath.Join(base, "xpvm"), nil
}
