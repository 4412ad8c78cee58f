// Package service implements listing management: create, update, browse,
// and presigned photo uploads.
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"marketplace_backend/internal/adapters/storage"
	"marketplace_backend/internal/offers/domain"
	"marketplace_backend/internal/products/repository"
	"marketplace_backend/platform/apperr"
)

// Service manages product listings.
type Service struct {
	repo        repository.Repository
	storage     storage.StorageService
	photoBucket string
}

// New creates the products service. Storage may be nil when MinIO is not
// configured; photo endpoints then report a conflict.
func New(repo repository.Repository) *Service {
	return &Service{repo: repo}
}

// SetStorage injects the object storage used for listing photos.
func (s *Service) SetStorage(svc storage.StorageService, bucket string) {
	s.storage = svc
	s.photoBucket = bucket
}

// CreateInput carries a new listing.
type CreateInput struct {
	SellerID    uuid.UUID
	Title       string
	Description *string
	PriceCents  int64
	Currency    string
	FeedType    string
}

// Create validates and persists a new listing.
func (s *Service) Create(ctx context.Context, input CreateInput) (repository.Product, error) {
	if input.PriceCents <= 0 {
		return repository.Product{}, apperr.Validation("price must be positive")
	}
	if input.FeedType != domain.FeedTypeDiscover && input.FeedType != domain.FeedTypeCommunity {
		return repository.Product{}, apperr.Validation(fmt.Sprintf("unknown feed type %q", input.FeedType))
	}

	return s.repo.Create(ctx, repository.CreateParams{
		SellerID:    input.SellerID,
		Title:       input.Title,
		Description: input.Description,
		PriceCents:  input.PriceCents,
		Currency:    input.Currency,
		FeedType:    input.FeedType,
	})
}

// Get returns a single listing.
func (s *Service) Get(ctx context.Context, productID uuid.UUID) (repository.Product, error) {
	return s.repo.GetByID(ctx, productID)
}

// Update applies a partial edit. Seller only; sold listings are frozen.
func (s *Service) Update(ctx context.Context, callerID, productID uuid.UUID, params repository.UpdateParams) (repository.Product, error) {
	product, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return repository.Product{}, err
	}
	if product.SellerID != callerID {
		return repository.Product{}, apperr.Forbidden("only the seller can edit this listing")
	}
	if product.SoldAt != nil {
		return repository.Product{}, apperr.Conflict("a sold listing can no longer be edited")
	}
	if params.PriceCents != nil && *params.PriceCents <= 0 {
		return repository.Product{}, apperr.Validation("price must be positive")
	}

	return s.repo.Update(ctx, productID, params)
}

// List browses listings.
func (s *Service) List(ctx context.Context, params repository.ListParams) ([]repository.Product, int, error) {
	if params.FeedType != nil &&
		*params.FeedType != domain.FeedTypeDiscover && *params.FeedType != domain.FeedTypeCommunity {
		return nil, 0, apperr.Validation(fmt.Sprintf("unknown feed type %q", *params.FeedType))
	}
	if params.Limit <= 0 || params.Limit > 100 {
		params.Limit = 20
	}
	if params.Offset < 0 {
		params.Offset = 0
	}
	return s.repo.List(ctx, params)
}

// PresignPhotoUpload returns a presigned PUT URL for a listing photo.
// Seller only.
func (s *Service) PresignPhotoUpload(ctx context.Context, callerID, productID uuid.UUID, fileName, contentType string, sizeBytes int64) (*storage.PresignedURL, error) {
	if s.storage == nil {
		return nil, apperr.Conflict("media storage is not configured")
	}

	product, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.SellerID != callerID {
		return nil, apperr.Forbidden("only the seller can upload photos for this listing")
	}
	if !storage.IsImageContentType(contentType) {
		return nil, apperr.Validation("listing photos must be images")
	}

	folder := fmt.Sprintf("%s/%s", product.SellerID, product.ID)
	presigned, err := s.storage.GenerateUploadURL(ctx, s.photoBucket, folder, fileName, contentType, sizeBytes)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, err.Error(), err)
	}

	return presigned, nil
}

// AttachPhoto records an uploaded photo key on the listing. Seller only.
func (s *Service) AttachPhoto(ctx context.Context, callerID, productID uuid.UUID, fileKey string) error {
	product, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	if product.SellerID != callerID {
		return apperr.Forbidden("only the seller can attach photos to this listing")
	}

	return s.repo.AddPhotoKey(ctx, productID, fileKey)
}

// PhotoURLs resolves the listing's photo keys into presigned GET URLs.
func (s *Service) PhotoURLs(ctx context.Context, product repository.Product) ([]string, error) {
	if s.storage == nil || len(product.PhotoKeys) == 0 {
		return nil, nil
	}

	urls := make([]string, 0, len(product.PhotoKeys))
	for _, key := range product.PhotoKeys {
		presigned, err := s.storage.GenerateDownloadURL(ctx, s.photoBucket, key)
		if err != nil {
			return nil, fmt.Errorf("presign photo %s: %w", key, err)
		}
		urls = append(urls, presigned.URL)
	}

	return urls, nil
}
