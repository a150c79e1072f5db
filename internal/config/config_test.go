package config

import "testing"

func TestParseConfig_Minimal(t *testing.T) {
	cfg, err := ParseConfig([]byte(""), "test.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.XSDVersion != "1.1" {
		t.Errorf("xsd_version default = %q, want 1.1", cfg.XSDVersion)
	}
}

func TestParseConfig_Namespaces(t *testing.T) {
	yaml := `
default_collation: http://www.w3.org/2005/xpath-functions/collation/html-ascii-case-insensitive
namespaces:
  - prefix: foo
    uri: urn:example:foo
  - prefix: bar
    uri: urn:example:bar
`
	cfg, err := ParseConfig([]byte(yaml), "test.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Namespaces) != 2 {
		t.Fatalf("expected 2 namespaces, got %d", len(cfg.Namespaces))
	}
	if cfg.Namespaces[0].Prefix != "foo" || cfg.Namespaces[0].URI != "urn:example:foo" {
		t.Errorf("namespaces[0] = %+v", cfg.Namespaces[0])
	}

	sc := cfg.NewStaticContext()
	uri, ok := sc.Namespaces.Resolve("foo")
	if !ok || uri != "urn:example:foo" {
		t.Errorf("Resolve(foo) = %q, %v, want urn:example:foo, true", uri, ok)
	}
	if sc.DefaultCollation != cfg.DefaultCollation {
		t.Errorf("DefaultCollation = %q, want %q", sc.DefaultCollation, cfg.DefaultCollation)
	}

	// The fixed bindings from name.NewNamespaceContext are still present.
	if uri, ok := sc.Namespaces.Resolve("xs"); !ok || uri != "http://www.w3.org/2001/XMLSchema" {
		t.Errorf("Resolve(xs) = %q, %v", uri, ok)
	}
}

func TestParseConfig_RejectsPrefixConflict(t *testing.T) {
	yaml := `
namespaces:
  - prefix: foo
    uri: urn:example:one
  - prefix: foo
    uri: urn:example:two
`
	if _, err := ParseConfig([]byte(yaml), "test.yaml"); err == nil {
		t.Fatal("expected error for conflicting prefix rebinding")
	}
}

func TestParseConfig_RejectsBadXSDVersion(t *testing.T) {
	yaml := `xsd_version: "2.0"`
	if _, err := ParseConfig([]byte(yaml), "test.yaml"); err == nil {
		t.Fatal("expected error for unsupported xsd_version")
	}
}

func TestNewStaticContext_NilConfig(t *testing.T) {
	var cfg *Config
	sc := cfg.NewStaticContext()
	if sc == nil {
		t.Fatal("expected non-nil StaticContext for nil Config")
	}
}

func TestCacheDirOrDefault_Override(t *testing.T) {
	cfg := &Config{CacheDir: "/tmp/xpvm-cache"}
	dir, err := cfg.CacheDirOrDefault()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dir != "/tmp/xpvm-cache" {
		t.Errorf("dir = %q, want /tmp/xpvm-cache", dir)
	}
}
