package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/storefront-edge-go/internal/catalog"
	"go.uber.org/zap"
)

// CatalogService is the read side of the catalog used by the handlers.
type CatalogService interface {
	Product(ctx context.Context, id string) (*catalog.Product, error)
	CategoryProducts(ctx context.Context, categoryID string) ([]catalog.Product, error)
	Home(ctx context.Context) (*catalog.Home, error)
}

// CatalogHandler serves catalog reads.
type CatalogHandler struct {
	service CatalogService
	logger  *zap.Logger
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(service CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		logger:  logger,
	}
}

func (h *CatalogHandler) GetProduct(ctx context.Context, req *GetProductRequest) (*GetProductResponse, error) {
	product, err := h.service.Product(ctx, req.ID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, huma.Error404NotFound("product not found")
		}

		h.logger.Error("failed to get product", zap.String("id", req.ID), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to get product")
	}

	return &GetProductResponse{Body: toProductBody(*product)}, nil
}

func (h *CatalogHandler) ListCategoryProducts(
	ctx context.Context,
	req *ListCategoryProductsRequest,
) (*ListCategoryProductsResponse, error) {
	products, err := h.service.CategoryProducts(ctx, req.ID)
	if err != nil {
		h.logger.Error("failed to list category products", zap.String("category_id", req.ID), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to list products")
	}

	return &ListCategoryProductsResponse{Body: toProductBodies(products)}, nil
}

func (h *CatalogHandler) GetHome(ctx context.Context, _ *struct{}) (*HomeResponse, error) {
	home, err := h.service.Home(ctx)
	if err != nil {
		h.logger.Error("failed to load home", zap.Error(err))

		return nil, huma.Error502BadGateway("failed to load home page")
	}

	resp := &HomeResponse{}
	resp.Body.NewArrivals = toProductBodies(home.NewArrivals)
	resp.Body.Categories = toCategoryBodies(home.Categories)

	return resp, nil
}
