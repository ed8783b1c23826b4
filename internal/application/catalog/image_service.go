package catalog

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// MaxImageSize is the largest accepted upload in bytes
const MaxImageSize = 10 << 20 // 10MB

// allowedImageTypes maps accepted content types to file extensions
var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// ImageStorage abstracts where uploaded product images live
type ImageStorage interface {
	// Put stores the image under key and returns its public URL
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	// Delete removes a stored image
	Delete(ctx context.Context, key string) error
	// Exists reports whether an image is stored under key
	Exists(ctx context.Context, key string) (bool, error)
}

// UploadResult describes a stored image
type UploadResult struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// ImageService validates and stores product image uploads
type ImageService struct {
	storage ImageStorage
}

// NewImageService creates a new ImageService
func NewImageService(storage ImageStorage) *ImageService {
	return &ImageService{storage: storage}
}

// Upload validates the image and stores it under a generated key.
// size is the declared content length; the reader is additionally
// capped so a lying client cannot exceed the limit
func (s *ImageService) Upload(ctx context.Context, filename, contentType string, size int64, body io.Reader) (*UploadResult, error) {
	ext, ok := allowedImageTypes[strings.ToLower(contentType)]
	if !ok {
		return nil, shared.NewDomainError("UNSUPPORTED_IMAGE_TYPE",
			"Only JPEG, PNG and WebP images are accepted")
	}
	if size > MaxImageSize {
		return nil, shared.NewDomainError("IMAGE_TOO_LARGE",
			fmt.Sprintf("Image exceeds the %dMB limit", MaxImageSize>>20))
	}

	key := "products/" + uuid.New().String() + ext

	limited := &limitedReader{r: body, remaining: MaxImageSize}
	url, err := s.storage.Put(ctx, key, contentType, limited)
	if err != nil {
		return nil, err
	}
	if limited.exceeded {
		// The declared size lied; remove the truncated object
		_ = s.storage.Delete(ctx, key)
		return nil, shared.NewDomainError("IMAGE_TOO_LARGE",
			fmt.Sprintf("Image exceeds the %dMB limit", MaxImageSize>>20))
	}

	return &UploadResult{Key: key, URL: url}, nil
}

// Delete removes a stored image by key
func (s *ImageService) Delete(ctx context.Context, key string) error {
	if key == "" || path.Clean(key) != key {
		return shared.NewDomainError("INVALID_IMAGE_KEY", "Invalid image key")
	}
	return s.storage.Delete(ctx, key)
}

// limitedReader reads at most remaining bytes and flags overruns
type limitedReader struct {
	r         io.Reader
	remaining int64
	exceeded  bool
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining <= 0 {
		// Probe for trailing bytes: any data past the limit marks the
		// upload as oversized
		var probe [1]byte
		n, err := l.r.Read(probe[:])
		if n > 0 {
			l.exceeded = true
		}
		if err != nil && err != io.EOF {
			return 0, err
		}
		return 0, io.EOF
	}
	if int64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	return n, err
}
