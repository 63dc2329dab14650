package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rl1809/sales/internal/core/service"
)

const saleServiceName = "sales.v1.SaleService"

// SaleServiceServer is the gRPC surface of the sale use cases. Requests and
// responses are free-form structs keyed like the HTTP JSON bodies.
type SaleServiceServer interface {
	CreateSale(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateSale(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetSale(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CancelSale(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CompleteSale(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	DeleteSale(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var SaleServiceDesc = grpc.ServiceDesc{
	ServiceName: saleServiceName,
	HandlerType: (*SaleServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateSale", Handler: unaryHandler("CreateSale", SaleServiceServer.CreateSale)},
		{MethodName: "UpdateSale", Handler: unaryHandler("UpdateSale", SaleServiceServer.UpdateSale)},
		{MethodName: "GetSale", Handler: unaryHandler("GetSale", SaleServiceServer.GetSale)},
		{MethodName: "CancelSale", Handler: unaryHandler("CancelSale", SaleServiceServer.CancelSale)},
		{MethodName: "CompleteSale", Handler: unaryHandler("CompleteSale", SaleServiceServer.CompleteSale)},
		{MethodName: "DeleteSale", Handler: unaryHandler("DeleteSale", SaleServiceServer.DeleteSale)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sales/v1/sale_service.proto",
}

func RegisterSaleServiceServer(s grpc.ServiceRegistrar, srv SaleServiceServer) {
	s.RegisterService(&SaleServiceDesc, srv)
}

type unaryMethod func(SaleServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SaleServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + saleServiceName + "/" + method,
		}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(SaleServiceServer), ctx, req.(*structpb.Struct))
		})
	}
}

// SaleServiceClient calls SaleService over an established connection.
type SaleServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSaleServiceClient(cc grpc.ClientConnInterface) *SaleServiceClient {
	return &SaleServiceClient{cc: cc}
}

// Call invokes method ("CreateSale", "GetSale", ...) with req.
func (c *SaleServiceClient) Call(ctx context.Context, method string, req map[string]any, opts ...grpc.CallOption) (map[string]any, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+saleServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

type GRPCHandler struct {
	sales  SaleService
	logger *zap.Logger
}

func NewGRPCHandler(sales SaleService, logger *zap.Logger) *GRPCHandler {
	return &GRPCHandler{sales: sales, logger: logger}
}

func (h *GRPCHandler) CreateSale(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	customerID, branchID, err := partiesFrom(req)
	if err != nil {
		return nil, err
	}
	items, err := itemsFrom(req)
	if err != nil {
		return nil, err
	}
	id, err := h.sales.CreateSale(ctx, service.CreateSaleCommand{
		CustomerID: customerID,
		BranchID:   branchID,
		Items:      items,
	})
	if err != nil {
		return nil, h.toStatus(err)
	}
	return structpb.NewStruct(map[string]any{"id": id})
}

func (h *GRPCHandler) UpdateSale(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	customerID, branchID, err := partiesFrom(req)
	if err != nil {
		return nil, err
	}
	// id addresses the sale like the HTTP route does; sale_id is the body
	// field that has to match it.
	if _, ok := req.GetFields()["id"]; !ok {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	routeID, err := int64Field(req, "id")
	if err != nil {
		return nil, err
	}
	saleID, err := int64Field(req, "sale_id")
	if err != nil {
		return nil, err
	}
	items, err := itemsFrom(req)
	if err != nil {
		return nil, err
	}
	ok, err := h.sales.UpdateSale(ctx, routeID, service.UpdateSaleCommand{
		SaleID:     saleID,
		CustomerID: customerID,
		BranchID:   branchID,
		Items:      items,
	})
	return h.mutationResult(ok, err)
}

func (h *GRPCHandler) GetSale(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := int64Field(req, "id")
	if err != nil {
		return nil, err
	}
	view, err := h.sales.GetSale(ctx, id)
	if err != nil {
		return nil, h.toStatus(err)
	}

	data, err := json.Marshal(view)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode sale: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "encode sale: %v", err)
	}
	return structpb.NewStruct(m)
}

func (h *GRPCHandler) CancelSale(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return h.byID(ctx, req, h.sales.CancelSale)
}

func (h *GRPCHandler) CompleteSale(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return h.byID(ctx, req, h.sales.CompleteSale)
}

func (h *GRPCHandler) DeleteSale(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return h.byID(ctx, req, h.sales.DeleteSale)
}

func (h *GRPCHandler) byID(ctx context.Context, req *structpb.Struct, mutate func(context.Context, int64) (bool, error)) (*structpb.Struct, error) {
	id, err := int64Field(req, "id")
	if err != nil {
		return nil, err
	}
	return h.mutationResult(mutate(ctx, id))
}

func (h *GRPCHandler) mutationResult(ok bool, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, h.toStatus(err)
	}
	return structpb.NewStruct(map[string]any{"success": ok})
}

func (h *GRPCHandler) toStatus(err error) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		br := &errdetails.BadRequest{}
		for _, f := range verr.Failures {
			br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
				Field:       f.Field,
				Description: f.Message,
			})
		}
		st, detailErr := status.New(codes.InvalidArgument, "Validation failed").WithDetails(br)
		if detailErr != nil {
			return status.Error(codes.InvalidArgument, verr.Error())
		}
		return st.Err()
	case errors.Is(err, service.ErrSaleNotFound):
		return status.Error(codes.NotFound, "Sale not found")
	case errors.Is(err, service.ErrSaleConflict):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		if msg, ok := notPersistedMessage(err); ok {
			h.logger.Error("grpc request persisted nothing", zap.Error(err))
			return status.Error(codes.Internal, msg)
		}
		h.logger.Error("grpc request failed", zap.Error(err))
		return status.Error(codes.Internal, "internal error")
	}
}

func partiesFrom(req *structpb.Struct) (uuid.UUID, uuid.UUID, error) {
	customerID, err := uuidField(req, "customer_id")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	branchID, err := uuidField(req, "branch_id")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return customerID, branchID, nil
}

// uuidField returns uuid.Nil for an absent or empty field so the service
// reports it as missing.
func uuidField(req *structpb.Struct, name string) (uuid.UUID, error) {
	raw := req.GetFields()[name].GetStringValue()
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "%s is not a valid UUID", name)
	}
	return id, nil
}

// int64Field returns 0 for an absent or null field so the service reports it
// as missing. Anything but a whole number in int64 range is rejected.
func int64Field(req *structpb.Struct, name string) (int64, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return 0, nil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return 0, nil
	case *structpb.Value_NumberValue:
		n := kind.NumberValue
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, status.Errorf(codes.InvalidArgument, "%s must be a whole number", name)
		}
		return int64(n), nil
	default:
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a number", name)
	}
}

func itemsFrom(req *structpb.Struct) ([]service.SaleItemInput, error) {
	values := req.GetFields()["items"].GetListValue().GetValues()
	items := make([]service.SaleItemInput, 0, len(values))
	for i, v := range values {
		item := v.GetStructValue()
		productID, err := int64Field(item, "product_id")
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "items[%d]: %s", i, status.Convert(err).Message())
		}
		quantity, err := int64Field(item, "quantity")
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "items[%d]: %s", i, status.Convert(err).Message())
		}
		items = append(items, service.SaleItemInput{ProductID: productID, Quantity: int(quantity)})
	}
	return items, nil
}
