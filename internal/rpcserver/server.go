// Package rpcserver exposes pkg/engine's Compile/Execute/Introspect over
// gRPC, using dynamically-built proto messages rather than a protoc-
// generated client stub — the same jhump/protoreflect dynamic-message
// approach internal/evaluator/builtins_grpc.go uses to let a stylesheet
// register an arbitrary, only-known-at-runtime gRPC service.
package rpcserver

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"

	"github.com/arborxml/xpvm/internal/config"
	"github.com/arborxml/xpvm/pkg/engine"
)

// Server runs pkg/engine's three operations as gRPC methods. Compiled
// programs are kept in an in-memory digest-keyed table for the lifetime of
// the process — a network caller sends either a digest it already compiled
// or the source text to compile (and cache) on the spot.
type Server struct {
	grpcServer *grpc.Server
	eng        *engine.Engine

	mu       sync.Mutex
	programs map[string]*engine.Program
}

// New parses the fixed service schema and builds a Server backed by an
// Engine constructed from cfg (nil for built-in defaults).
func New(cfg *config.Config) (*Server, error) {
	fd, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("loading rpc schema: %w", err)
	}
	sd := fd.FindService("xpvm.XPathService")
	if sd == nil {
		return nil, fmt.Errorf("xpath_service.proto: service xpvm.XPathService not found")
	}

	s := &Server{
		eng:      engine.New(cfg),
		programs: make(map[string]*engine.Program),
	}
	handler := &serviceHandler{s: s}

	svcDesc := &grpc.ServiceDesc{
		ServiceName: sd.GetFullyQualifiedName(),
		HandlerType: (*interface{})(nil),
		Metadata:    sd.GetFile().GetName(),
	}
	for _, method := range sd.GetMethods() {
		if method.IsClientStreaming() || method.IsServerStreaming() {
			continue
		}
		md := method
		svcDesc.Methods = append(svcDesc.Methods, grpc.MethodDesc{
			MethodName: md.GetName(),
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
				h := srv.(*serviceHandler)
				return h.handle(ctx, md, dec)
			},
		})
	}

	gs := grpc.NewServer()
	gs.RegisterService(svcDesc, handler)
	s.grpcServer = gs
	return s, nil
}

// Serve blocks, accepting connections on addr until Stop is called or
// listening fails.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.grpcServer.Serve(lis)
}

// Stop gracefully shuts down the server, letting in-flight RPCs finish.
func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
}

type serviceHandler struct {
	s *Server
}

func (h *serviceHandler) handle(ctx context.Context, md *desc.MethodDescriptor, dec func(interface{}) error) (interface{}, error) {
	in := dynamic.NewMessage(md.GetInputType())
	if err := dec(in); err != nil {
		return nil, err
	}
	out := dynamic.NewMessage(md.GetOutputType())

	switch md.GetName() {
	case "Compile":
		h.s.compile(in, out)
	case "Execute":
		h.s.execute(ctx, in, out)
	case "Introspect":
		h.s.introspect(in, out)
	default:
		return nil, fmt.Errorf("unknown method %q", md.GetName())
	}
	return out, nil
}

func (s *Server) compile(in, out *dynamic.Message) {
	prog, err := s.eng.Compile(getString(in, "source"))
	if err != nil {
		setString(out, "error", err.Error())
		return
	}
	s.store(prog)
	setString(out, "digest", prog.Digest())
	setString(out, "return_type", engine.Introspect(prog).Return.String())
}

func (s *Server) execute(ctx context.Context, in, out *dynamic.Message) {
	prog, err := s.resolveProgram(getString(in, "digest"), getString(in, "source"))
	if err != nil {
		setString(out, "error", err.Error())
		return
	}
	seq, err := s.eng.Execute(ctx, prog, getBytes(in, "document"), getString(in, "base_uri"))
	if err != nil {
		setString(out, "error", err.Error())
		return
	}
	items, err := engine.FormatItems(seq)
	if err != nil {
		setString(out, "error", err.Error())
		return
	}
	setStringRepeated(out, "items", items)
}

func (s *Server) introspect(in, out *dynamic.Message) {
	prog, err := s.resolveProgram(getString(in, "digest"), "")
	if err != nil {
		setString(out, "error", err.Error())
		return
	}
	info := engine.Introspect(prog)
	setString(out, "source", info.Source)
	setString(out, "digest", info.Digest)
	setInt32(out, "instructions", int32(info.Instructions))
	setInt32(out, "param_count", int32(info.ParamCount))
	setString(out, "return_type", info.Return.String())
	setInt32(out, "constant_count", int32(info.ConstantCount))
}

func (s *Server) store(prog *engine.Program) {
	s.mu.Lock()
	s.programs[prog.Digest()] = prog
	s.mu.Unlock()
}

// resolveProgram looks up digest in the program table, falling back to
// compiling (and caching) source when the caller didn't compile ahead of
// time or hit against a different server process.
func (s *Server) resolveProgram(digest, source string) (*engine.Program, error) {
	s.mu.Lock()
	prog, ok := s.programs[digest]
	s.mu.Unlock()
	if ok {
		return prog, nil
	}
	if source == "" {
		return nil, fmt.Errorf("unknown program digest %q and no source given to recompile it", digest)
	}
	prog, err := s.eng.Compile(source)
	if err != nil {
		return nil, err
	}
	s.store(prog)
	return prog, nil
}

func getString(msg *dynamic.Message, field string) string {
	fd := msg.GetMessageDescriptor().FindFieldByName(field)
	if fd == nil {
		return ""
	}
	s, _ := msg.GetField(fd).(string)
	return s
}

func getBytes(msg *dynamic.Message, field string) []byte {
	fd := msg.GetMessageDescriptor().FindFieldByName(field)
	if fd == nil {
		return nil
	}
	b, _ := msg.GetField(fd).([]byte)
	return b
}

func setString(msg *dynamic.Message, field, value string) {
	fd := msg.GetMessageDescriptor().FindFieldByName(field)
	if fd == nil {
		return
	}
	msg.SetField(fd, value)
}

func setInt32(msg *dynamic.Message, field string, value int32) {
	fd := msg.GetMessageDescriptor().FindFieldByName(field)
	if fd == nil {
		return
	}
	msg.SetField(fd, value)
}

func setStringRepeated(msg *dynamic.Message, field string, values []string) {
	fd := msg.GetMessageDescriptor().FindFieldByName(field)
	if fd == nil {
		return
	}
	slice := make([]interface{}, len(values))
	for i, v := range values {
		slice[i] = v
	}
	msg.SetField(fd, slice)
}
