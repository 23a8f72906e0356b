package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// LedgerServiceName is the fully qualified name of the ledger gRPC service.
const LedgerServiceName = "chatdata.v1.Ledger"

// LedgerServer is the server API for the chatdata.v1.Ledger service. Requests
// and responses are JSON-shaped google.protobuf.Struct values carrying the same
// fields as the HTTP API.
type LedgerServer interface {
	ListProfiles(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetProfile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	AppendMessage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Reconcile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	MarkSeen(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	MarkMessageSeen(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type ledgerMethod func(srv LedgerServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call ledgerMethod) grpc.MethodDesc {
	fullMethod := "/" + LedgerServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(LedgerServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(LedgerServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// LedgerServiceDesc describes chatdata.v1.Ledger for grpc.Server.RegisterService.
var LedgerServiceDesc = grpc.ServiceDesc{
	ServiceName: LedgerServiceName,
	HandlerType: (*LedgerServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("ListProfiles", LedgerServer.ListProfiles),
		unaryHandler("GetProfile", LedgerServer.GetProfile),
		unaryHandler("AppendMessage", LedgerServer.AppendMessage),
		unaryHandler("Reconcile", LedgerServer.Reconcile),
		unaryHandler("MarkSeen", LedgerServer.MarkSeen),
		unaryHandler("MarkMessageSeen", LedgerServer.MarkMessageSeen),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "chatdata/v1/ledger.proto",
}

// RegisterLedgerServer registers srv on s.
func RegisterLedgerServer(s grpc.ServiceRegistrar, srv LedgerServer) {
	s.RegisterService(&LedgerServiceDesc, srv)
}

// LedgerClient calls chatdata.v1.Ledger methods over a client connection.
type LedgerClient struct {
	cc grpc.ClientConnInterface
}

// NewLedgerClient creates a LedgerClient.
func NewLedgerClient(cc grpc.ClientConnInterface) *LedgerClient {
	return &LedgerClient{cc: cc}
}

// Call invokes method with req and returns the response struct.
func (c *LedgerClient) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+LedgerServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
