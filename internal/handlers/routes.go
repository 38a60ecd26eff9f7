package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// RegisterRoutes registers the catalog read routes.
func RegisterRoutes(api huma.API, catalogHandler *CatalogHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-product",
		Method:      http.MethodGet,
		Path:        "/api/products/{id}",
		Summary:     "Get product",
		Description: "Returns a single product by ID.",
		Tags:        []string{"Catalog"},
	}, catalogHandler.GetProduct)

	huma.Register(api, huma.Operation{
		OperationID: "list-category-products",
		Method:      http.MethodGet,
		Path:        "/api/categories/{id}/products",
		Summary:     "List category products",
		Description: "Returns every product in a category.",
		Tags:        []string{"Catalog"},
	}, catalogHandler.ListCategoryProducts)

	// Served through the shared data cache.
	huma.Register(api, huma.Operation{
		OperationID: "get-home",
		Method:      http.MethodGet,
		Path:        "/api/home",
		Summary:     "Landing page sections",
		Description: "Returns the newest products and featured categories.",
		Tags:        []string{"Catalog"},
	}, catalogHandler.GetHome)
}
