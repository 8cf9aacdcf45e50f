package minio

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	mclient "github.com/minio/minio-go/v7"

	"github.com/savelyevam/vidhub/internal/storage"
)

// Upload валидирует размер/тип содержимого, стримит r в бакет под ключом
// "<folder>/<uuid>.<ext>" и возвращает публичный URL объекта.
// Промежуточных файлов на диске нет: multipart-поток уходит прямо в PutObject.
func (s *MediaStorage) Upload(ctx context.Context, folder string, r io.Reader, size int64, contentType string) (string, error) {
	const op = "storage/minio/Upload"

	if size <= 0 || size > s.cfg.Upload.MaxSizeBytes {
		return "", fmt.Errorf("%s: %w", op, storage.ErrInvalidMedia)
	}

	if !isAllowedContentType(s.cfg.Upload.AllowedContentTypes, contentType) {
		return "", fmt.Errorf("%s: %w", op, storage.ErrInvalidMedia)
	}

	key := path.Join(folder, uuid.NewString()+extByContentType(contentType))

	_, err := s.client.PutObject(ctx, s.cfg.S3.Bucket, key, r, size, mclient.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	base := strings.TrimRight(s.cfg.S3.PublicBaseURL, "/")
	return base + "/" + key, nil
}

// Delete удаляет объект по его публичному URL.
// URL вне PublicBaseURL (чужой хост, старый формат) — молчаливый no-op:
// медиахост для ядра — побочный ресурс, его мусор не должен ронять запрос.
func (s *MediaStorage) Delete(ctx context.Context, publicURL string) error {
	const op = "storage/minio/Delete"

	key, ok := s.keyFromURL(publicURL)
	if !ok {
		return nil
	}

	if err := s.client.RemoveObject(ctx, s.cfg.S3.Bucket, key, mclient.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// keyFromURL извлекает ключ объекта из публичного URL.
func (s *MediaStorage) keyFromURL(publicURL string) (string, bool) {
	base := strings.TrimRight(s.cfg.S3.PublicBaseURL, "/") + "/"
	if !strings.HasPrefix(publicURL, base) {
		return "", false
	}

	key := strings.TrimPrefix(publicURL, base)
	if key == "" {
		return "", false
	}

	return key, true
}

// extByContentType подбирает расширение для ключа объекта.
func extByContentType(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}

// isAllowedContentType проверяет, что тип содержимого входит в allow-list.
func isAllowedContentType(allow []string, contentType string) bool {
	for _, a := range allow {
		if a == contentType {
			return true
		}
	}

	return false
}
