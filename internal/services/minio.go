package services

import (
	"context"
	"fmt"
	"log"
	"mime/multipart"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"sacoche_back_end/internal/shop"
)

// ImageStore range les images produits et les avatars dans le bucket MinIO.
// Les objets d'un utilisateur vivent sous users/<email>/ pour être supprimés d'un bloc.
type ImageStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

// NewImageStore : baseURL est l'URL publique du bucket (ex. http://minio:9000/sacoche)
func NewImageStore(client *minio.Client, bucket, baseURL string) *ImageStore {
	return &ImageStore{client: client, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}
}

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// ObjectName construit <prefix>/<uuid><ext> ; l'extension vient du type MIME
func ObjectName(prefix, contentType string) (string, error) {
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return "", &shop.ValidationError{Field: "file", Message: fmt.Sprintf("type non supporté: %q", contentType)}
	}
	return path.Join(prefix, uuid.NewString()+ext), nil
}

func (s *ImageStore) Upload(ctx context.Context, prefix string, file *multipart.FileHeader) (string, error) {
	contentType := file.Header.Get("Content-Type")
	name, err := ObjectName(prefix, contentType)
	if err != nil {
		return "", err
	}

	f, err := file.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	_, err = s.client.PutObject(ctx, s.bucket, name, f, file.Size,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("upload MinIO: %w", err)
	}
	log.Printf("✅ Image envoyée sur MinIO: %s", name)
	return s.baseURL + "/" + name, nil
}

// RemovePrefix supprime tous les objets sous prefix et renvoie le nombre supprimé
func (s *ImageStore) RemovePrefix(ctx context.Context, prefix string) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true})

	removed := 0
	for obj := range objects {
		if obj.Err != nil {
			return removed, obj.Err
		}
		if err := s.client.RemoveObject(ctx, s.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return removed, fmt.Errorf("suppression %s: %w", obj.Key, err)
		}
		removed++
	}
	return removed, nil
}
