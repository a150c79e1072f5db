package rpcserver

import (
	"context"
	"testing"

	"github.com/jhump/protoreflect/dynamic"
)

// newMessage builds a dynamic.Message for one of schemaSource's messages,
// the same way the gRPC handler builds request/response values.
func newMessage(t *testing.T, messageName string) *dynamic.Message {
	t.Helper()
	fd, err := loadSchema()
	if err != nil {
		t.Fatalf("loadSchema: %v", err)
	}
	md := fd.FindMessage("xpvm." + messageName)
	if md == nil {
		t.Fatalf("schema has no message %q", messageName)
	}
	return dynamic.NewMessage(md)
}

func TestLoadSchemaFindsServiceAndMethods(t *testing.T) {
	fd, err := loadSchema()
	if err != nil {
		t.Fatalf("loadSchema: %v", err)
	}
	sd := fd.FindService("xpvm.XPathService")
	if sd == nil {
		t.Fatal("expected xpvm.XPathService in the parsed schema")
	}
	names := map[string]bool{}
	for _, m := range sd.GetMethods() {
		names[m.GetName()] = true
	}
	for _, want := range []string{"Compile", "Execute", "Introspect"} {
		if !names[want] {
			t.Errorf("expected method %q in service descriptor, got %v", want, names)
		}
	}
}

func TestNewBuildsServiceDescForEveryUnaryMethod(t *testing.T) {
	s, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.grpcServer == nil {
		t.Fatal("expected a non-nil grpc.Server")
	}
	if s.eng == nil {
		t.Fatal("expected a non-nil engine.Engine")
	}
}

func TestCompileStoresProgramAndReturnsDigest(t *testing.T) {
	s, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	in := newMessage(t, "CompileRequest")
	setString(in, "source", "1 + 2")
	out := newMessage(t, "CompileResponse")

	s.compile(in, out)

	if got := getString(out, "error"); got != "" {
		t.Fatalf("unexpected compile error: %s", got)
	}
	digest := getString(out, "digest")
	if digest == "" {
		t.Fatal("expected a non-empty digest")
	}
	if got := getString(out, "return_type"); got == "" {
		t.Fatal("expected a non-empty return_type")
	}

	s.mu.Lock()
	_, ok := s.programs[digest]
	s.mu.Unlock()
	if !ok {
		t.Fatal("expected compile to cache the program under its digest")
	}
}

func TestCompileReportsSyntaxErrors(t *testing.T) {
	s, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	in := newMessage(t, "CompileRequest")
	setString(in, "source", "1 +")
	out := newMessage(t, "CompileResponse")

	s.compile(in, out)

	if got := getString(out, "error"); got == "" {
		t.Fatal("expected a non-empty error for a malformed expression")
	}
	if got := getString(out, "digest"); got != "" {
		t.Fatalf("expected no digest on a failed compile, got %q", got)
	}
}

func TestExecuteRunsAgainstADocumentByDigest(t *testing.T) {
	s, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	compileIn := newMessage(t, "CompileRequest")
	setString(compileIn, "source", "//name/text()")
	compileOut := newMessage(t, "CompileResponse")
	s.compile(compileIn, compileOut)
	if got := getString(compileOut, "error"); got != "" {
		t.Fatalf("compile: %s", got)
	}
	digest := getString(compileOut, "digest")

	execIn := newMessage(t, "ExecuteRequest")
	setString(execIn, "digest", digest)
	setBytes(execIn, "document", []byte(`<root><name>Ada</name></root>`))
	setString(execIn, "base_uri", "urn:test:exec")
	execOut := newMessage(t, "ExecuteResponse")

	s.execute(context.Background(), execIn, execOut)

	if got := getString(execOut, "error"); got != "" {
		t.Fatalf("execute: %s", got)
	}
	items := getStringRepeated(execOut, "items")
	if len(items) != 1 || items[0] != "Ada" {
		t.Fatalf("got items %v, want [Ada]", items)
	}
}

func TestExecuteRecompilesFromSourceOnUnknownDigest(t *testing.T) {
	s, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	execIn := newMessage(t, "ExecuteRequest")
	setString(execIn, "digest", "not-a-real-digest")
	setString(execIn, "source", "1 + 2")
	setBytes(execIn, "document", []byte(`<root/>`))
	execOut := newMessage(t, "ExecuteResponse")

	s.execute(context.Background(), execIn, execOut)

	if got := getString(execOut, "error"); got != "" {
		t.Fatalf("execute: %s", got)
	}
	items := getStringRepeated(execOut, "items")
	if len(items) != 1 || items[0] != "3" {
		t.Fatalf("got items %v, want [3]", items)
	}
}

func TestExecuteReportsUnknownDigestWithNoSource(t *testing.T) {
	s, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	execIn := newMessage(t, "ExecuteRequest")
	setString(execIn, "digest", "not-a-real-digest")
	setBytes(execIn, "document", []byte(`<root/>`))
	execOut := newMessage(t, "ExecuteResponse")

	s.execute(context.Background(), execIn, execOut)

	if got := getString(execOut, "error"); got == "" {
		t.Fatal("expected an error for an unresolvable digest with no fallback source")
	}
}

func TestIntrospectReportsProgramShape(t *testing.T) {
	s, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	compileIn := newMessage(t, "CompileRequest")
	setString(compileIn, "source", "1 + 2")
	compileOut := newMessage(t, "CompileResponse")
	s.compile(compileIn, compileOut)
	digest := getString(compileOut, "digest")

	introIn := newMessage(t, "IntrospectRequest")
	setString(introIn, "digest", digest)
	introOut := newMessage(t, "IntrospectResponse")

	s.introspect(introIn, introOut)

	if got := getString(introOut, "error"); got != "" {
		t.Fatalf("introspect: %s", got)
	}
	if got := getString(introOut, "source"); got != "1 + 2" {
		t.Fatalf("got source %q, want %q", got, "1 + 2")
	}
	if got := getString(introOut, "digest"); got != digest {
		t.Fatalf("got digest %q, want %q", got, digest)
	}
}

func setBytes(msg *dynamic.Message, field string, value []byte) {
	fd := msg.GetMessageDescriptor().FindFieldByName(field)
	if fd == nil {
		return
	}
	msg.SetField(fd, value)
}

func getStringRepeated(msg *dynamic.Message, field string) []string {
	fd := msg.GetMessageDescriptor().FindFieldByName(field)
	if fd == nil {
		return nil
	}
	raw, ok := msg.GetField(fd).([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, len(raw))
	for i, v := range raw {
		out[i], _ = v.(string)
	}
	return out
}
