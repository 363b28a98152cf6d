package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified name of the node callback service.
const ServiceName = "tradeportal.node.v1.NodeCallback"

const (
	MethodPing           = "/" + ServiceName + "/Ping"
	MethodDeliverMessage = "/" + ServiceName + "/DeliverMessage"
	MethodUpdateStatus   = "/" + ServiceName + "/UpdateStatus"
	MethodLearnLocator   = "/" + ServiceName + "/LearnLocator"
	MethodAttachObject   = "/" + ServiceName + "/AttachObject"
	MethodImportDocument = "/" + ServiceName + "/ImportDocument"
)

// NodeCallbackServer is what peer nodes call. Requests and responses are
// google.protobuf.Struct so the wire contract needs no generated code.
type NodeCallbackServer interface {
	Ping(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeliverMessage(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LearnLocator(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AttachObject(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ImportDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(NodeCallbackServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(fullMethod string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(NodeCallbackServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(NodeCallbackServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var nodeCallbackServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*NodeCallbackServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ping", Handler: unary(MethodPing, NodeCallbackServer.Ping)},
		{MethodName: "DeliverMessage", Handler: unary(MethodDeliverMessage, NodeCallbackServer.DeliverMessage)},
		{MethodName: "UpdateStatus", Handler: unary(MethodUpdateStatus, NodeCallbackServer.UpdateStatus)},
		{MethodName: "LearnLocator", Handler: unary(MethodLearnLocator, NodeCallbackServer.LearnLocator)},
		{MethodName: "AttachObject", Handler: unary(MethodAttachObject, NodeCallbackServer.AttachObject)},
		{MethodName: "ImportDocument", Handler: unary(MethodImportDocument, NodeCallbackServer.ImportDocument)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tradeportal/node/v1/callback.proto",
}

func RegisterNodeCallbackServer(s grpc.ServiceRegistrar, srv NodeCallbackServer) {
	s.RegisterService(&nodeCallbackServiceDesc, srv)
}
