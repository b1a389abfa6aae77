package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// StoredObject identifies an uploaded file at the provider.
type StoredObject struct {
	URL          string
	PublicID     string
	ResourceType string
	Bytes        int
}

// FileStorage keeps private applicant files. Objects are not publicly
// reachable; callers hand out short-lived links instead.
type FileStorage interface {
	UploadFile(ctx context.Context, r io.Reader, publicID string) (*StoredObject, error)
	DeleteFile(ctx context.Context, publicID, resourceType string) error
}

const deliveryType = api.DeliveryType("authenticated")

type cloudinaryStorage struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryStorage uses the explicit credentials when given and falls back
// to CLOUDINARY_URL otherwise.
func NewCloudinaryStorage(cloudName, apiKey, apiSecret, folder string) (FileStorage, error) {
	var (
		cld *cloudinary.Cloudinary
		err error
	)
	if cloudName != "" && apiKey != "" && apiSecret != "" {
		cld, err = cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	} else {
		cld, err = cloudinary.New()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary client: %w", err)
	}

	// Ensure HTTPS URLs by default.
	cld.Config.URL.Secure = true

	return &cloudinaryStorage{cld: cld, folder: folder}, nil
}

func (s *cloudinaryStorage) UploadFile(ctx context.Context, r io.Reader, publicID string) (*StoredObject, error) {
	if s == nil || s.cld == nil {
		return nil, fmt.Errorf("cloudinary storage is not initialized")
	}

	params := uploader.UploadParams{
		PublicID:       publicID,
		Folder:         s.folder,
		ResourceType:   "auto",
		Type:           deliveryType,
		UseFilename:    api.Bool(false),
		UniqueFilename: api.Bool(false),
		Overwrite:      api.Bool(false),
	}

	resp, err := s.cld.Upload.Upload(ctx, r, params)
	if err != nil {
		return nil, fmt.Errorf("failed to upload file to cloudinary: %w", err)
	}
	if resp.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload failed: %s", resp.Error.Message)
	}
	if resp.SecureURL == "" {
		return nil, fmt.Errorf("cloudinary upload succeeded but secure URL is empty")
	}

	return &StoredObject{
		URL:          resp.SecureURL,
		PublicID:     resp.PublicID,
		ResourceType: resp.ResourceType,
		Bytes:        resp.Bytes,
	}, nil
}

func (s *cloudinaryStorage) DeleteFile(ctx context.Context, publicID, resourceType string) error {
	if s == nil || s.cld == nil {
		return fmt.Errorf("cloudinary storage is not initialized")
	}

	// Invalidate: true helps to clear CDN cache
	params := uploader.DestroyParams{
		PublicID:     publicID,
		Type:         string(deliveryType),
		ResourceType: resourceType,
		Invalidate:   api.Bool(true),
	}

	resp, err := s.cld.Upload.Destroy(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to delete file from cloudinary: %w", err)
	}

	if resp.Result != "ok" && resp.Result != "not found" {
		return fmt.Errorf("cloudinary destroy api returned result: %s", resp.Result)
	}

	return nil
}
