package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "phishguard.v1.DetectService"

const detectFullMethod = "/" + ServiceName + "/Detect"

// DetectServiceServer is the server API for DetectService.
// Messages are google.protobuf.Struct:
//
//	request:  {"message": string}
//	response: {"safe": bool, "reason": string}
type DetectServiceServer interface {
	Detect(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// DetectServiceDesc describes DetectService for grpc.Server registration.
var DetectServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DetectServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Detect",
			Handler:    detectHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "phishguard/v1/detect.proto",
}

// RegisterDetectServiceServer registers srv on s.
func RegisterDetectServiceServer(s grpc.ServiceRegistrar, srv DetectServiceServer) {
	s.RegisterService(&DetectServiceDesc, srv)
}

func detectHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DetectServiceServer).Detect(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: detectFullMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DetectServiceServer).Detect(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// DetectServiceClient calls DetectService over a client connection.
type DetectServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewDetectServiceClient(cc grpc.ClientConnInterface) *DetectServiceClient {
	return &DetectServiceClient{cc: cc}
}

// Detect sends a raw request struct.
func (c *DetectServiceClient) Detect(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, detectFullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// DetectMessage checks a single message and decodes the verdict fields.
func (c *DetectServiceClient) DetectMessage(ctx context.Context, message string, opts ...grpc.CallOption) (safe bool, reason string, err error) {
	in, err := structpb.NewStruct(map[string]any{"message": message})
	if err != nil {
		return false, "", err
	}
	out, err := c.Detect(ctx, in, opts...)
	if err != nil {
		return false, "", err
	}
	fields := out.GetFields()
	return fields["safe"].GetBoolValue(), fields["reason"].GetStringValue(), nil
}
