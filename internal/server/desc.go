package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "docbatch.v1.BatchService"

// BatchServer is the server API for the batch service. Messages use the well-known types so the
// service needs no generated code; structured payloads travel as google.protobuf.Struct.
type BatchServer interface {
	SelectFiles(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetTemplate(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	SetOptions(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	ProcessFiles(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	CancelRun(context.Context, *emptypb.Empty) (*wrapperspb.BoolValue, error)
	GetState(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ResolveApproval(context.Context, *wrapperspb.BoolValue) (*wrapperspb.BoolValue, error)
	ExportReport(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListReports(context.Context, *wrapperspb.Int32Value) (*structpb.Struct, error)
	Reset(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
}

// RegisterBatchServer registers srv on s.
func RegisterBatchServer(s grpc.ServiceRegistrar, srv BatchServer) {
	s.RegisterService(&BatchServiceDesc, srv)
}

func fullMethod(name string) string { return "/" + ServiceName + "/" + name }

// unary builds a method handler the way protoc-gen-go-grpc does for each RPC.
func unary[Req proto.Message, Resp proto.Message](name string, newReq func() Req, call func(BatchServer, context.Context, Req) (Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(BatchServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(BatchServer), ctx, req.(Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func newStruct() *structpb.Struct { return &structpb.Struct{} }
func newEmpty() *emptypb.Empty { return &emptypb.Empty{} }
func newString() *wrapperspb.StringValue { return &wrapperspb.StringValue{} }
func newBool() *wrapperspb.BoolValue { return &wrapperspb.BoolValue{} }
func newInt32() *wrapperspb.Int32Value { return &wrapperspb.Int32Value{} }

// BatchServiceDesc is the grpc.ServiceDesc for the batch service.
var BatchServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BatchServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("SelectFiles", newStruct, BatchServer.SelectFiles),
		unary("SetTemplate", newString, BatchServer.SetTemplate),
		unary("SetOptions", newStruct, BatchServer.SetOptions),
		unary("ProcessFiles", newString, BatchServer.ProcessFiles),
		unary("CancelRun", newEmpty, BatchServer.CancelRun),
		unary("GetState", newEmpty, BatchServer.GetState),
		unary("ResolveApproval", newBool, BatchServer.ResolveApproval),
		unary("ExportReport", newStruct, BatchServer.ExportReport),
		unary("ListReports", newInt32, BatchServer.ListReports),
		unary("Reset", newEmpty, BatchServer.Reset),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "docbatch/v1/batch.proto",
}
