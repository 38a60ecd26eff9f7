package handlers

import (
	"time"

	"github.com/serroba/storefront-edge-go/internal/catalog"
)

// ProductBody is the wire form of a product. Field names follow the catalog columns.
type ProductBody struct {
	ID            string    `doc:"Product ID"                            json:"id"`
	Name          string    `doc:"English name"                          json:"name"`
	NameAR        string    `doc:"Arabic name"                           json:"name_ar,omitempty"`
	Description   string    `doc:"English description"                   json:"description,omitempty"`
	DescriptionAR string    `doc:"Arabic description"                    json:"description_ar,omitempty"`
	Price         float64   `doc:"Current price"                         json:"price"`
	OriginalPrice float64   `doc:"Price before discount, absent if none" json:"original_price,omitempty"`
	ImageURL      string    `doc:"Image URL"                             json:"image_url,omitempty"`
	CategoryID    string    `doc:"Owning category ID"                    json:"category_id,omitempty"`
	CreatedAt     time.Time `doc:"Creation time"                         json:"created_at"`
}

// CategoryBody is the wire form of a category.
type CategoryBody struct {
	ID            string `doc:"Category ID"         json:"id"`
	Name          string `doc:"English name"        json:"name"`
	NameAR        string `doc:"Arabic name"         json:"name_ar,omitempty"`
	Description   string `doc:"English description" json:"description,omitempty"`
	DescriptionAR string `doc:"Arabic description"  json:"description_ar,omitempty"`
	ImageURL      string `doc:"Image URL"           json:"image_url,omitempty"`
}

// GetProductRequest is the request for a single product.
type GetProductRequest struct {
	ID string `doc:"Product ID" example:"3f6c1a9e" path:"id"`
}

// GetProductResponse is the response for a single product.
type GetProductResponse struct {
	Body ProductBody
}

// ListCategoryProductsRequest is the request for the products of a category.
type ListCategoryProductsRequest struct {
	ID string `doc:"Category ID" example:"b71d04c2" path:"id"`
}

// ListCategoryProductsResponse is the response for the products of a category.
type ListCategoryProductsResponse struct {
	Body []ProductBody
}

// HomeResponse is the response for the landing page sections.
type HomeResponse struct {
	Body struct {
		NewArrivals []ProductBody  `doc:"Most recently added products" json:"newArrivals"`
		Categories  []CategoryBody `doc:"Featured categories"          json:"categories"`
	}
}

func toProductBody(p catalog.Product) ProductBody {
	return ProductBody{
		ID:            p.ID,
		Name:          p.Name,
		NameAR:        p.NameAR,
		Description:   p.Description,
		DescriptionAR: p.DescriptionAR,
		Price:         p.Price,
		OriginalPrice: p.OriginalPrice,
		ImageURL:      p.ImageURL,
		CategoryID:    p.CategoryID,
		CreatedAt:     p.CreatedAt,
	}
}

func toProductBodies(products []catalog.Product) []ProductBody {
	out := make([]ProductBody, 0, len(products))
	for _, p := range products {
		out = append(out, toProductBody(p))
	}

	return out
}

func toCategoryBodies(categories []catalog.Category) []CategoryBody {
	out := make([]CategoryBody, 0, len(categories))
	for _, c := range categories {
		out = append(out, CategoryBody{
			ID:            c.ID,
			Name:          c.Name,
			NameAR:        c.NameAR,
			Description:   c.Description,
			DescriptionAR: c.DescriptionAR,
			ImageURL:      c.ImageURL,
		})
	}

	return out
}
