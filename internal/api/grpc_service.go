package api

import (
	"context"
	"encoding/json"

	"travelbooking/internal/auth"
	"travelbooking/internal/service"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const bookingQueryServiceName = "travelbooking.v1.BookingQuery"

// BookingQuery is a read-only gRPC view of packages and bookings. Messages
// are protobuf well-known types so clients need no generated stubs.
type BookingQuery interface {
	ListPackages(ctx context.Context, in *emptypb.Empty) (*structpb.ListValue, error)
	GetPackage(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error)
	GetBooking(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error)
}

type bookingQueryServer struct {
	packages  *service.PackageService
	analytics *service.AnalyticsService
}

func newBookingQueryServer(packages *service.PackageService, analytics *service.AnalyticsService) *bookingQueryServer {
	return &bookingQueryServer{packages: packages, analytics: analytics}
}

func (s *bookingQueryServer) ListPackages(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	packages, err := s.packages.List(ctx)
	if err != nil {
		return nil, grpcError(err)
	}
	out := &structpb.ListValue{}
	if err := toProto(nonNil(packages), out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *bookingQueryServer) GetPackage(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	pkg, err := s.packages.Get(ctx, in.GetValue())
	if err != nil {
		return nil, grpcError(err)
	}
	out := &structpb.Struct{}
	if err := toProto(pkg, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *bookingQueryServer) GetBooking(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	booking, err := s.analytics.GetBookingByID(ctx, auth.CallerFrom(ctx), in.GetValue())
	if err != nil {
		return nil, grpcError(err)
	}
	out := &structpb.Struct{}
	if err := toProto(booking, out); err != nil {
		return nil, err
	}
	return out, nil
}

func grpcError(err error) error {
	return status.Error(grpcCode(err), err.Error())
}

// toProto converts a JSON-tagged model into a structpb message.
func toProto(v any, out proto.Message) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return status.Errorf(codes.Internal, "encode response: %v", err)
	}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return nil
}

func registerBookingQuery(s *grpc.Server, srv BookingQuery) {
	s.RegisterService(&bookingQueryDesc, srv)
}

var bookingQueryDesc = grpc.ServiceDesc{
	ServiceName: bookingQueryServiceName,
	HandlerType: (*BookingQuery)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListPackages", Handler: listPackagesHandler},
		{MethodName: "GetPackage", Handler: getPackageHandler},
		{MethodName: "GetBooking", Handler: getBookingHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func listPackagesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BookingQuery).ListPackages(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + bookingQueryServiceName + "/ListPackages"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BookingQuery).ListPackages(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func getPackageHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BookingQuery).GetPackage(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + bookingQueryServiceName + "/GetPackage"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BookingQuery).GetPackage(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func getBookingHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BookingQuery).GetBooking(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + bookingQueryServiceName + "/GetBooking"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BookingQuery).GetBooking(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}
