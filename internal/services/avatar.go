package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gosimple/slug"
)

const (
	AvatarFolder   = "bolt/avatars"
	MaxAvatarBytes = 5 << 20
)

var (
	ErrAvatarsDisabled = errors.New("avatar uploads are not configured")
	ErrAvatarTooLarge  = errors.New("avatar exceeds 5MB")
)

// AvatarUploader stores an image and returns its public URL.
type AvatarUploader interface {
	UploadAvatar(ctx context.Context, fh *multipart.FileHeader, username, accountID string) (string, error)
}

type CloudinaryService struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinaryService(cloudName, apiKey, apiSecret string) (*CloudinaryService, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &CloudinaryService{cld: cld}, nil
}

// UploadAvatar uploads into the avatars folder under a stable per-account id,
// so a new upload replaces the previous image.
func (s *CloudinaryService) UploadAvatar(ctx context.Context, fh *multipart.FileHeader, username, accountID string) (string, error) {
	if fh.Size > MaxAvatarBytes {
		return "", ErrAvatarTooLarge
	}
	file, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxAvatarBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) > MaxAvatarBytes {
		return "", ErrAvatarTooLarge
	}

	res, err := s.cld.Upload.Upload(ctx, data, uploader.UploadParams{
		Folder:       AvatarFolder,
		PublicID:     AvatarPublicID(username, accountID),
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to Cloudinary: %w", err)
	}
	return res.SecureURL, nil
}

// AvatarPublicID builds a readable, URL-safe asset name.
func AvatarPublicID(username, accountID string) string {
	return slug.Make(username) + "-" + accountID
}
