// Package tests drives the compiled xpath binary end to end: build once,
// then run every testdata/*.expr fixture through `xpath eval` and compare
// stdout against the matching *.want file. This exercises the CLI the way
// a user actually invokes it, not just the library underneath it.
package tests

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func buildBinary(t *testing.T) string {
	t.Helper()
	projectRoot, err := filepath.Abs("..")
	if err != nil {
		t.Fatalf("resolving project root: %v", err)
	}

	binaryPath := filepath.Join(t.TempDir(), "xpath-test-binary")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/xpath")
	cmd.Dir = projectRoot
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("building cmd/xpath: %v\n%s", err, out)
	}
	return binaryPath
}

// fixture is one testdata/*.expr file paired with its *.want file and, if
// present, a *.doc file naming the XML document (also under testdata) to
// evaluate it against; loadFixtures collects them.
type fixture struct {
	name     string
	exprPath string
	wantPath string
	docPath  string // "" when the fixture has no document
}

func loadFixtures(t *testing.T) []fixture {
	t.Helper()
	entries, err := os.ReadDir("testdata")
	if err != nil {
		t.Fatalf("reading testdata: %v", err)
	}

	var out []fixture
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".expr") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".expr")
		f := fixture{
			name:     name,
			exprPath: filepath.Join("testdata", e.Name()),
			wantPath: filepath.Join("testdata", name+".want"),
		}
		if _, err := os.Stat(f.wantPath); err != nil {
			t.Fatalf("fixture %q has no matching .want file", name)
		}
		docRef := filepath.Join("testdata", name+".doc")
		if b, err := os.ReadFile(docRef); err == nil {
			f.docPath = filepath.Join("testdata", strings.TrimSpace(string(b)))
		}
		out = append(out, f)
	}
	return out
}

func TestFunctionalEval(t *testing.T) {
	binaryPath := buildBinary(t)
	fixtures := loadFixtures(t)
	if len(fixtures) == 0 {
		t.Fatal("no testdata/*.expr fixtures found")
	}

	for _, f := range fixtures {
		f := f
		t.Run(f.name, func(t *testing.T) {
			exprBytes, err := os.ReadFile(f.exprPath)
			if err != nil {
				t.Fatalf("reading %s: %v", f.exprPath, err)
			}
			wantBytes, err := os.ReadFile(f.wantPath)
			if err != nil {
				t.Fatalf("reading %s: %v", f.wantPath, err)
			}

			args := []string{"eval", string(exprBytes)}
			if f.docPath != "" {
				args = append(args, "-doc", f.docPath)
			}

			cmd := exec.Command(binaryPath, args...)
			out, err := cmd.CombinedOutput()
			if err != nil {
				t.Fatalf("xpath eval failed: %v\n%s", err, out)
			}

			got := strings.TrimRight(string(out), "\n")
			want := strings.TrimRight(string(wantBytes), "\n")
			if got != want {
				t.Errorf("output mismatch:\n--- want ---\n%s\n--- got ---\n%s", want, got)
			}
		})
	}
}

// TestFunctionalEvalReportsSyntaxErrors checks that a malformed expression
// exits non-zero and names the failure on stderr, the one behavior no
// *.want fixture can express since it's diagnosing failure, not output.
func TestFunctionalEvalReportsSyntaxErrors(t *testing.T) {
	binaryPath := buildBinary(t)

	cmd := exec.Command(binaryPath, "eval", "1 +")
	out, err := cmd.CombinedOutput()
	if err == nil {
		t.Fatalf("expected a non-zero exit for a malformed expression, got output: %s", out)
	}
	if !strings.Contains(string(out), "xpath:") {
		t.Errorf("expected stderr to be prefixed by the program name, got: %s", out)
	}
}
