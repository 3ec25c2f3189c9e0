package storage

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

type cloudinaryStore struct {
	cld       *cloudinary.Cloudinary
	cloudName string
	apiSecret string
}

// NewCloudinaryStore builds the cloud-backed attachment store.
func NewCloudinaryStore(cloudName, apiKey, apiSecret string) (Store, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}
	return &cloudinaryStore{
		cld:       cld,
		cloudName: cloudName,
		apiSecret: apiSecret,
	}, nil
}

func (s *cloudinaryStore) Upload(ctx context.Context, key string, r io.Reader) (string, error) {
	overwrite := true
	result, err := s.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		PublicID:  key,
		Overwrite: &overwrite,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	if result.PublicID == "" {
		return "", fmt.Errorf("no public ID returned for %s", key)
	}
	return result.PublicID, nil
}

// URL returns a signed, short-lived URL for an authenticated resource.
// The signature is SHA-1 over expires_at and public_id plus the API
// secret, matching the provider's authenticated-delivery scheme.
func (s *cloudinaryStore) URL(ctx context.Context, key string, expires time.Duration) (string, error) {
	expiresAt := time.Now().Add(expires).Unix()
	stringToSign := fmt.Sprintf("expires_at=%d&public_id=%s%s", expiresAt, key, s.apiSecret)
	h := sha1.New()
	h.Write([]byte(stringToSign))
	signature := hex.EncodeToString(h.Sum(nil))

	return fmt.Sprintf("https://res.cloudinary.com/%s/image/authenticated/s--%s--/expires_%d/%s",
		s.cloudName, signature, expiresAt, key), nil
}

func (s *cloudinaryStore) DeleteByPrefix(ctx context.Context, prefix string) error {
	_, err := s.cld.Admin.DeleteAssetsByPrefix(ctx, admin.DeleteAssetsByPrefixParams{
		Prefix: api.CldAPIArray{prefix},
	})
	if err != nil {
		return fmt.Errorf("failed to delete assets under %s: %w", prefix, err)
	}
	return nil
}
