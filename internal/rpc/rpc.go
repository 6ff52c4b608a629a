// Package rpc carries the transport description of the SocialNetwork gRPC
// service: a codec bridging the wire package into grpc, the service
// interface, and a hand-maintained service descriptor. No generated stubs
// are checked in; the descriptor mirrors the published .proto contract, so
// generated clients in any language interoperate.
package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"

	"github.com/hsabouri/the-social-network/internal/wire"
)

const ServiceName = "socialnetwork.SocialNetwork"

// Codec (de)serializes the wire package's RPC messages for grpc. It
// registers under the standard "proto" name because the payloads are plain
// protobuf, just not produced by generated code.
type Codec struct{}

func (Codec) Name() string { return "proto" }

func (Codec) Marshal(v any) ([]byte, error) {
	m, ok := v.(wire.Marshaler)
	if !ok {
		return nil, fmt.Errorf("cannot marshal %T", v)
	}
	return m.AppendWire(nil), nil
}

func (Codec) Unmarshal(data []byte, v any) error {
	u, ok := v.(wire.Unmarshaler)
	if !ok {
		return fmt.Errorf("cannot unmarshal into %T", v)
	}
	return u.UnmarshalWire(data)
}

// SocialNetworkServer is the service contract.
type SocialNetworkServer interface {
	GetUserByName(ctx context.Context, req *wire.UserByNameRequest) (*wire.UserResponse, error)
	AddFriend(ctx context.Context, req *wire.FriendRequest) (*wire.FriendResponse, error)
	RemoveFriend(ctx context.Context, req *wire.FriendRequest) (*wire.FriendResponse, error)
	PostMessage(ctx context.Context, req *wire.PostMessageRequest) (*wire.MessageStatusResponse, error)
	TagReadMessage(ctx context.Context, req *wire.TagMessageRequest) (*wire.MessageStatusResponse, error)
	TagUnreadMessage(ctx context.Context, req *wire.TagMessageRequest) (*wire.MessageStatusResponse, error)
	Timeline(req *wire.TimelineRequest, stream grpc.ServerStreamingServer[wire.TimelineResponse]) error
	RealTimeNotifications(req *wire.NotificationsRequest, stream grpc.ServerStreamingServer[wire.NotificationsResponse]) error
}

// RegisterSocialNetworkServer attaches an implementation to a grpc server.
// The server must be built with grpc.ForceServerCodec(Codec{}).
func RegisterSocialNetworkServer(s grpc.ServiceRegistrar, srv SocialNetworkServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unaryHandler[Req, Resp any](
	method string,
	call func(SocialNetworkServer, context.Context, *Req) (*Resp, error),
) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	full := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SocialNetworkServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(SocialNetworkServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func timelineHandler(srv any, stream grpc.ServerStream) error {
	in := new(wire.TimelineRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(SocialNetworkServer).Timeline(in,
		&grpc.GenericServerStream[wire.TimelineRequest, wire.TimelineResponse]{ServerStream: stream})
}

func realTimeNotificationsHandler(srv any, stream grpc.ServerStream) error {
	in := new(wire.NotificationsRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(SocialNetworkServer).RealTimeNotifications(in,
		&grpc.GenericServerStream[wire.NotificationsRequest, wire.NotificationsResponse]{ServerStream: stream})
}

// ServiceDesc describes the service to grpc. Method names match the proto
// contract verbatim.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SocialNetworkServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "getUserByName",
			Handler:    unaryHandler("getUserByName", SocialNetworkServer.GetUserByName),
		},
		{
			MethodName: "addFriend",
			Handler:    unaryHandler("addFriend", SocialNetworkServer.AddFriend),
		},
		{
			MethodName: "removeFriend",
			Handler:    unaryHandler("removeFriend", SocialNetworkServer.RemoveFriend),
		},
		{
			MethodName: "postMessage",
			Handler:    unaryHandler("postMessage", SocialNetworkServer.PostMessage),
		},
		{
			MethodName: "tagReadMessage",
			Handler:    unaryHandler("tagReadMessage", SocialNetworkServer.TagReadMessage),
		},
		{
			MethodName: "tagUnreadMessage",
			Handler:    unaryHandler("tagUnreadMessage", SocialNetworkServer.TagUnreadMessage),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "timeline",
			Handler:       timelineHandler,
			ServerStreams: true,
		},
		{
			StreamName:    "realTimeNotifications",
			Handler:       realTimeNotificationsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "socialnetwork.proto",
}
