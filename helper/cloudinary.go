package helper

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"grocery_store/config"
)

func InitCloudinary(settings config.CloudinarySettings) (*cloudinary.Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(settings.CloudName, settings.APIKey, settings.APISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary init: %w", err)
	}
	return cld, nil
}

// CloudinaryStore keeps payment and refund screenshots in a single Cloudinary folder.
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryStore(cld *cloudinary.Cloudinary, folder string) *CloudinaryStore {
	return &CloudinaryStore{cld: cld, folder: folder}
}

func (s *CloudinaryStore) Store(ctx context.Context, name string, data []byte) (string, error) {
	publicID := slug.Make(name) + "-" + uuid.NewString()[:8]
	res, err := s.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     publicID,
		ResourceType: "image",
	})
	if err != nil {
		return "", err
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	return res.SecureURL, nil
}

func (s *CloudinaryStore) Delete(ctx context.Context, rawURL string) error {
	publicID, err := PublicIDFromURL(rawURL)
	if err != nil {
		return err
	}
	res, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID, ResourceType: "image"})
	if err != nil {
		return err
	}
	if res.Error.Message != "" {
		return fmt.Errorf("cloudinary destroy: %s", res.Error.Message)
	}
	return nil
}

// PublicIDFromURL recovers "folder/name" from a delivery URL such as
// https://res.cloudinary.com/demo/image/upload/v1712/grocery/pay-ab12cd34.png.
func PublicIDFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse blob url: %w", err)
	}
	_, rest, ok := strings.Cut(u.Path, "/upload/")
	if !ok || rest == "" {
		return "", fmt.Errorf("not a cloudinary upload url: %q", rawURL)
	}
	segments := strings.Split(rest, "/")
	if first := segments[0]; len(first) > 1 && first[0] == 'v' && isDigits(first[1:]) {
		segments = segments[1:]
	}
	if len(segments) == 0 {
		return "", fmt.Errorf("not a cloudinary upload url: %q", rawURL)
	}
	id := strings.Join(segments, "/")
	return strings.TrimSuffix(id, path.Ext(id)), nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
