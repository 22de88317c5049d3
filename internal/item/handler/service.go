package handler

import (
	"context"

	"github.com/reliefhub/stock-service/internal/transport"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "reliefhub.stock.v1.ItemService"

type ItemServiceServer interface {
	CreateItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListItems(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SetItemActive(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func method(name string, call func(ItemServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: transport.MethodHandler(ServiceName, name, func(srv interface{}, ctx context.Context, req *structpb.Struct) (proto.Message, error) {
			resp, err := call(srv.(ItemServiceServer), ctx, req)
			if err != nil {
				return nil, err
			}
			return resp, nil
		}),
	}
}

var ItemService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ItemServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		method("CreateItem", ItemServiceServer.CreateItem),
		method("GetItem", ItemServiceServer.GetItem),
		method("ListItems", ItemServiceServer.ListItems),
		method("UpdateItem", ItemServiceServer.UpdateItem),
		method("SetItemActive", ItemServiceServer.SetItemActive),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "reliefhub/stock/v1/item.proto",
}

func RegisterItemServiceServer(s grpc.ServiceRegistrar, srv ItemServiceServer) {
	s.RegisterService(&ItemService_ServiceDesc, srv)
}
