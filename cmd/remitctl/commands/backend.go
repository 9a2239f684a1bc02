package commands

import (
	"context"
	"errors"

	"github.com/remitflow/remitflow-backend/internal/adapter/dto"
	grpcadapter "github.com/remitflow/remitflow-backend/internal/adapter/grpc"
	"github.com/remitflow/remitflow-backend/internal/usecase/remittance"
)

var errNeedsServer = errors.New("transfer commands need a running server (--server)")

// backend answers CLI commands either in-process or over gRPC
type backend interface {
	ListCorridors(ctx context.Context, region string) (dto.CorridorListView, error)
	Rates(ctx context.Context) (dto.RatesView, error)
	Quote(ctx context.Context, req dto.QuoteRequest) (dto.QuoteView, error)
	TransferStatus(ctx context.Context, id string) (dto.TransferView, error)
	ListTransfers(ctx context.Context, limit int) (dto.TransferListView, error)
}

type localBackend struct {
	service *remittance.Service
}

func (b localBackend) ListCorridors(ctx context.Context, region string) (dto.CorridorListView, error) {
	return dto.NewCorridorListView(b.service.ListCorridors(region)), nil
}

func (b localBackend) Rates(ctx context.Context) (dto.RatesView, error) {
	return dto.NewRatesView(b.service.GetRateSnapshot(ctx)), nil
}

func (b localBackend) Quote(ctx context.Context, req dto.QuoteRequest) (dto.QuoteView, error) {
	input, err := req.Input()
	if err != nil {
		return dto.QuoteView{}, err
	}
	quote, err := b.service.QuoteTransfer(ctx, input)
	if err != nil {
		return dto.QuoteView{}, err
	}
	return dto.NewQuoteView(quote), nil
}

// The in-process ledger starts empty on every invocation
func (b localBackend) TransferStatus(context.Context, string) (dto.TransferView, error) {
	return dto.TransferView{}, errNeedsServer
}

func (b localBackend) ListTransfers(context.Context, int) (dto.TransferListView, error) {
	return dto.TransferListView{}, errNeedsServer
}

type remoteBackend struct {
	client *grpcadapter.Client
}

func (b remoteBackend) ListCorridors(ctx context.Context, region string) (dto.CorridorListView, error) {
	var out dto.CorridorListView
	err := b.client.Call(ctx, "ListCorridors", dto.RegionRequest{Region: region}, &out)
	return out, err
}

func (b remoteBackend) Rates(ctx context.Context) (dto.RatesView, error) {
	var out dto.RatesView
	err := b.client.Call(ctx, "GetRateSnapshot", struct{}{}, &out)
	return out, err
}

func (b remoteBackend) Quote(ctx context.Context, req dto.QuoteRequest) (dto.QuoteView, error) {
	var out dto.QuoteView
	err := b.client.Call(ctx, "QuoteTransfer", req, &out)
	return out, err
}

func (b remoteBackend) TransferStatus(ctx context.Context, id string) (dto.TransferView, error) {
	var out dto.TransferView
	err := b.client.Call(ctx, "GetTransferStatus", dto.TransferIDRequest{ID: id}, &out)
	return out, err
}

func (b remoteBackend) ListTransfers(ctx context.Context, limit int) (dto.TransferListView, error) {
	var out dto.TransferListView
	err := b.client.Call(ctx, "ListTransfers", dto.ListTransfersRequest{Limit: limit}, &out)
	return out, err
}
