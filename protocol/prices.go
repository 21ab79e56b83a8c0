package protocol

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"context"
)

// Request subscribes to the price stream
type Request struct {
	Symbols []string `json:"symbols,omitempty"` // empty means all
}

// Stock is one price update
type Stock struct {
	Symbol string `json:"symbol"`
	Title  string `json:"title"`
	Price  string `json:"price"`
	Update int64  `json:"update"` // unix milliseconds
}

// PricesClient is the client API for the Prices service
type PricesClient interface {
	SubAll(ctx context.Context, in *Request, opts ...grpc.CallOption) (Prices_SubAllClient, error)
}

type pricesClient struct {
	cc grpc.ClientConnInterface
}

// NewPricesClient is constructor
func NewPricesClient(cc grpc.ClientConnInterface) PricesClient {
	return &pricesClient{cc}
}

func (c *pricesClient) SubAll(ctx context.Context, in *Request, opts ...grpc.CallOption) (Prices_SubAllClient, error) {
	opts = append([]grpc.CallOption{CallOption()}, opts...)
	stream, err := c.cc.NewStream(ctx, &Prices_ServiceDesc.Streams[0], "/protocol.Prices/SubAll", opts...)
	if err != nil {
		return nil, err
	}
	x := &pricesSubAllClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// Prices_SubAllClient receives price updates
type Prices_SubAllClient interface {
	Recv() (*Stock, error)
	grpc.ClientStream
}

type pricesSubAllClient struct {
	grpc.ClientStream
}

func (x *pricesSubAllClient) Recv() (*Stock, error) {
	m := new(Stock)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// PricesServer is the server API for the Prices service
type PricesServer interface {
	SubAll(*Request, Prices_SubAllServer) error
}

// UnimplementedPricesServer can be embedded to have forward compatible implementations
type UnimplementedPricesServer struct{}

// SubAll is not implemented
func (UnimplementedPricesServer) SubAll(*Request, Prices_SubAllServer) error {
	return status.Errorf(codes.Unimplemented, "method SubAll not implemented")
}

// RegisterPricesServer registers srv on s
func RegisterPricesServer(s grpc.ServiceRegistrar, srv PricesServer) {
	s.RegisterService(&Prices_ServiceDesc, srv)
}

func _Prices_SubAll_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(Request)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(PricesServer).SubAll(m, &pricesSubAllServer{stream})
}

// Prices_SubAllServer sends price updates
type Prices_SubAllServer interface {
	Send(*Stock) error
	grpc.ServerStream
}

type pricesSubAllServer struct {
	grpc.ServerStream
}

func (x *pricesSubAllServer) Send(m *Stock) error {
	return x.ServerStream.SendMsg(m)
}

// Prices_ServiceDesc is the grpc.ServiceDesc for the Prices service
var Prices_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "protocol.Prices",
	HandlerType: (*PricesServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "SubAll",
			Handler:       _Prices_SubAll_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "protocol/prices.go",
}
