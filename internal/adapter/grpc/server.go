package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/remitflow/remitflow-backend/internal/adapter/dto"
	"github.com/remitflow/remitflow-backend/internal/domain"
	"github.com/remitflow/remitflow-backend/internal/usecase/remittance"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "remitflow.v1.RemittanceService"

// RemittanceServer is the server API for the RemittanceService.
// Requests and responses are google.protobuf.Struct messages whose fields
// follow the dto package.
type RemittanceServer interface {
	ResolveCorridor(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListCorridors(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRateSnapshot(context.Context, *structpb.Struct) (*structpb.Struct, error)
	QuoteTransfer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateTransfer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTransferStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTransfers(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StoreRecipientDetails(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FundTransferFromSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EndSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes the RemittanceService for grpc.Server.RegisterService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RemittanceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ResolveCorridor", RemittanceServer.ResolveCorridor),
		unary("ListCorridors", RemittanceServer.ListCorridors),
		unary("GetRateSnapshot", RemittanceServer.GetRateSnapshot),
		unary("QuoteTransfer", RemittanceServer.QuoteTransfer),
		unary("CreateTransfer", RemittanceServer.CreateTransfer),
		unary("GetTransferStatus", RemittanceServer.GetTransferStatus),
		unary("ListTransfers", RemittanceServer.ListTransfers),
		unary("StoreRecipientDetails", RemittanceServer.StoreRecipientDetails),
		unary("FundTransferFromSession", RemittanceServer.FundTransferFromSession),
		unary("EndSession", RemittanceServer.EndSession),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "remitflow/v1/remittance.proto",
}

// RegisterRemittanceServer registers the service implementation on s
func RegisterRemittanceServer(s grpc.ServiceRegistrar, srv RemittanceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unary(method string, call func(RemittanceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(RemittanceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(RemittanceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Server implements the RemittanceService gRPC server
type Server struct {
	Service *remittance.Service
}

// NewServer creates a new gRPC server instance
func NewServer(service *remittance.Service) *Server {
	return &Server{Service: service}
}

// ResolveCorridor handles the ResolveCorridor RPC
func (s *Server) ResolveCorridor(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in dto.CountryRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	cor, found := s.Service.ResolveCorridor(in.Country)
	return encode(dto.NewCorridorLookupView(cor, found))
}

// ListCorridors handles the ListCorridors RPC
func (s *Server) ListCorridors(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in dto.RegionRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	return encode(dto.NewCorridorListView(s.Service.ListCorridors(in.Region)))
}

// GetRateSnapshot handles the GetRateSnapshot RPC
func (s *Server) GetRateSnapshot(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return encode(dto.NewRatesView(s.Service.GetRateSnapshot(ctx)))
}

// QuoteTransfer handles the QuoteTransfer RPC
func (s *Server) QuoteTransfer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in dto.QuoteRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	input, err := in.Input()
	if err != nil {
		return nil, mapError(err)
	}

	quote, err := s.Service.QuoteTransfer(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}
	return encode(dto.NewQuoteView(quote))
}

// CreateTransfer handles the CreateTransfer RPC
func (s *Server) CreateTransfer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in dto.CreateTransferRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	input, err := in.Input()
	if err != nil {
		return nil, mapError(err)
	}

	t, err := s.Service.PriceAndCreateTransfer(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}
	return encode(dto.NewTransferView(t))
}

// GetTransferStatus handles the GetTransferStatus RPC
func (s *Server) GetTransferStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in dto.TransferIDRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}

	t, err := s.Service.GetTransferStatus(ctx, in.ID)
	if err != nil {
		return nil, mapError(err)
	}
	return encode(dto.NewTransferView(t))
}

// ListTransfers handles the ListTransfers RPC
func (s *Server) ListTransfers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in dto.ListTransfersRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	// Validate limit (must be non-negative; zero means the default)
	if in.Limit < 0 {
		return nil, status.Errorf(codes.InvalidArgument, "limit must be non-negative")
	}
	return encode(dto.NewTransferListView(s.Service.ListTransfers(ctx, in.Limit)))
}

// StoreRecipientDetails handles the StoreRecipientDetails RPC
func (s *Server) StoreRecipientDetails(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in dto.StoreRecipientRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}

	receipt, err := s.Service.StoreRecipientDetails(in.SessionID, in.Details())
	if err != nil {
		return nil, mapError(err)
	}
	return encode(dto.NewReceiptView(receipt))
}

// FundTransferFromSession handles the FundTransferFromSession RPC
func (s *Server) FundTransferFromSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in dto.FundTransferRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	input, err := in.Input()
	if err != nil {
		return nil, mapError(err)
	}

	t, err := s.Service.FundTransferFromSession(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}
	return encode(dto.NewTransferView(t))
}

// EndSession handles the EndSession RPC
func (s *Server) EndSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in dto.SessionRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	return encode(dto.EndSessionView{Forgotten: s.Service.EndSession(in.SessionID)})
}

// decode converts a Struct request into a dto request
func decode(req *structpb.Struct, out interface{}) error {
	if req == nil {
		return nil
	}
	raw, err := req.MarshalJSON()
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request payload")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request payload")
	}
	return nil
}

// encode converts a dto view into a Struct response
func encode(view interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(view)
	if err != nil {
		return nil, status.Error(codes.Internal, domain.PublicMessage(err))
	}
	out := new(structpb.Struct)
	if err := out.UnmarshalJSON(raw); err != nil {
		return nil, status.Error(codes.Internal, domain.PublicMessage(err))
	}
	return out, nil
}

// mapError converts domain errors to gRPC status errors. The message is
// always the fixed public text for the error kind.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	msg := domain.PublicMessage(err)
	switch {
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, msg)
	case errors.Is(err, domain.ErrLimitExceeded), errors.Is(err, domain.ErrUnsupportedCorridor):
		return status.Error(codes.FailedPrecondition, msg)
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, msg)
	case errors.Is(err, domain.ErrRateUnavailable):
		return status.Error(codes.Unavailable, msg)
	default:
		log.Printf("level=error component=grpc msg=\"internal error\" err=%v", err)
		return status.Error(codes.Internal, msg)
	}
}
