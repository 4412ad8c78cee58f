package transport

import (
	"time"

	"github.com/google/uuid"

	"marketplace_backend/internal/products/repository"
)

// Request DTOs

type CreateProductRequest struct {
	Title       string  `json:"title" validate:"required,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=5000"`
	PriceCents  int64   `json:"priceCents" validate:"required,gt=0"`
	Currency    string  `json:"currency" validate:"required,len=3,uppercase"`
	FeedType    string  `json:"feedType" validate:"required,oneof=discover community"`
}

type UpdateProductRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=5000"`
	PriceCents  *int64  `json:"priceCents,omitempty" validate:"omitempty,gt=0"`
	IsAvailable *bool   `json:"isAvailable,omitempty"`
}

type PresignPhotoRequest struct {
	FileName    string `json:"fileName" validate:"required,min=1,max=255"`
	ContentType string `json:"contentType" validate:"required"`
	SizeBytes   int64  `json:"sizeBytes" validate:"required,gt=0"`
}

type AttachPhotoRequest struct {
	FileKey string `json:"fileKey" validate:"required,min=1,max=512"`
}

// Response DTOs

type ProductResponse struct {
	ID          uuid.UUID  `json:"id"`
	SellerID    uuid.UUID  `json:"sellerId"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	PriceCents  int64      `json:"priceCents"`
	Currency    string     `json:"currency"`
	FeedType    string     `json:"feedType"`
	IsAvailable bool       `json:"isAvailable"`
	SoldAt      *time.Time `json:"soldAt,omitempty"`
	PhotoURLs   []string   `json:"photoUrls,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type ProductListResponse struct {
	Items   []ProductResponse `json:"items"`
	Total   int               `json:"total"`
	Page    int               `json:"page"`
	PerPage int               `json:"perPage"`
}

// FromRepo maps a stored product to its API representation.
func FromRepo(p repository.Product, photoURLs []string) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		SellerID:    p.SellerID,
		Title:       p.Title,
		Description: p.Description,
		PriceCents:  p.PriceCents,
		Currency:    p.Currency,
		FeedType:    p.FeedType,
		IsAvailable: p.IsAvailable,
		SoldAt:      p.SoldAt,
		PhotoURLs:   photoURLs,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
