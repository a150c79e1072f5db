package rpcserver

import (
	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
)

// schemaSource is the service definition internal/rpcserver exposes, parsed
// at startup into descriptors the same way internal/evaluator/
// builtins_grpc.go's grpcLoadProto parses a stylesheet-supplied .proto file
// — except here the schema is fixed and known at compile time, so it is
// parsed from memory instead of from a path on disk.
const schemaSource = `
syntax = "proto3";

package xpvm;

service XPathService {
  rpc Compile(CompileRequest) returns (CompileResponse);
  rpc Execute(ExecuteRequest) returns (ExecuteResponse);
  rpc Introspect(IntrospectRequest) returns (IntrospectResponse);
}

message CompileRequest {
  string source = 1;
}

message CompileResponse {
  string digest = 1;
  string return_type = 2;
  string error = 3;
}

message ExecuteRequest {
  string digest = 1;
  string source = 2;
  bytes document = 3;
  string base_uri = 4;
}

message ExecuteResponse {
  repeated string items = 1;
  string error = 2;
}

message IntrospectRequest {
  string digest = 1;
}

message IntrospectResponse {
  string source = 1;
  string digest = 2;
  int32 instructions = 3;
  int32 param_count = 4;
  string return_type = 5;
  int32 constant_count = 6;
  string error = 7;
}
`

const schemaFile = "xpath_service.proto"

// loadSchema parses schemaSource into a FileDescriptor, the same
// protoparse.Parser the teacher's grpcLoadProto uses, pointed at an
// in-memory accessor instead of the filesystem.
func loadSchema() (*desc.FileDescriptor, error) {
	parser := protoparse.Parser{
		Accessor: protoparse.FileContentsFromMap(map[string]string{
			schemaFile: schemaSource,
		}),
	}
	fds, err := parser.ParseFiles(schemaFile)
	if err != nil {
		return nil, err
	}
	return fds[0], nil
}
