package handler

import (
	"context"

	"github.com/reliefhub/stock-service/internal/transport"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "reliefhub.stock.v1.StockService"

type StockServiceServer interface {
	Upsert(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	StockFromCatalog(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Adjust(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Reserve(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Transfer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	AppendAction(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error)
	AppendAuditEntry(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error)
	GetEntry(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListEntries(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RefreshExpired(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func method[R proto.Message](name string, call func(StockServiceServer, context.Context, *structpb.Struct) (R, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: transport.MethodHandler(ServiceName, name, func(srv interface{}, ctx context.Context, req *structpb.Struct) (proto.Message, error) {
			resp, err := call(srv.(StockServiceServer), ctx, req)
			if err != nil {
				return nil, err
			}
			return resp, nil
		}),
	}
}

var StockService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StockServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		method("Upsert", StockServiceServer.Upsert),
		method("StockFromCatalog", StockServiceServer.StockFromCatalog),
		method("Adjust", StockServiceServer.Adjust),
		method("Reserve", StockServiceServer.Reserve),
		method("Transfer", StockServiceServer.Transfer),
		method("AppendAction", StockServiceServer.AppendAction),
		method("AppendAuditEntry", StockServiceServer.AppendAuditEntry),
		method("GetEntry", StockServiceServer.GetEntry),
		method("ListEntries", StockServiceServer.ListEntries),
		method("RefreshExpired", StockServiceServer.RefreshExpired),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "reliefhub/stock/v1/stock.proto",
}

func RegisterStockServiceServer(s grpc.ServiceRegistrar, srv StockServiceServer) {
	s.RegisterService(&StockService_ServiceDesc, srv)
}
