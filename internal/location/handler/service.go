package handler

import (
	"context"

	"github.com/reliefhub/stock-service/internal/transport"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "reliefhub.stock.v1.LocationService"

type LocationServiceServer interface {
	CreateLocation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetLocation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListLocations(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateLocation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SetLocationActive(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	NearestLocations(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func method(name string, call func(LocationServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: transport.MethodHandler(ServiceName, name, func(srv interface{}, ctx context.Context, req *structpb.Struct) (proto.Message, error) {
			resp, err := call(srv.(LocationServiceServer), ctx, req)
			if err != nil {
				return nil, err
			}
			return resp, nil
		}),
	}
}

var LocationService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LocationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		method("CreateLocation", LocationServiceServer.CreateLocation),
		method("GetLocation", LocationServiceServer.GetLocation),
		method("ListLocations", LocationServiceServer.ListLocations),
		method("UpdateLocation", LocationServiceServer.UpdateLocation),
		method("SetLocationActive", LocationServiceServer.SetLocationActive),
		method("NearestLocations", LocationServiceServer.NearestLocations),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "reliefhub/stock/v1/location.proto",
}

func RegisterLocationServiceServer(s grpc.ServiceRegistrar, srv LocationServiceServer) {
	s.RegisterService(&LocationService_ServiceDesc, srv)
}
