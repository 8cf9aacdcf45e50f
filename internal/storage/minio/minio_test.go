package minio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/savelyevam/vidhub/internal/config"
	"github.com/savelyevam/vidhub/internal/storage"
)

// Интеграционные тесты медиахранилища: реальный MinIO через testcontainers-go.
//
// Запуск:
//
//	GO_TEST_INTEGRATION=1 go test ./internal/storage/minio -v -race -count=1

func startMinio(t *testing.T, createBucket bool) (*MediaStorage, *config.Config) {
	t.Helper()

	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	const (
		image        = "docker.io/minio/minio:latest"
		rootUser     = "root"
		rootPassword = "rootpass"
		bucket       = "vidhub-media"
	)

	req := tc.ContainerRequest{
		Image: image,
		Env: map[string]string{
			"MINIO_ROOT_USER":     rootUser,
			"MINIO_ROOT_PASSWORD": rootPassword,
		},
		Cmd:          []string{"server", "/data"},
		ExposedPorts: []string{"9000/tcp"},
		WaitingFor:   wait.ForListeningPort("9000/tcp").WithStartupTimeout(60 * time.Second),
	}

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "9000/tcp")
	require.NoError(t, err)

	endpoint := fmt.Sprintf("%s:%s", host, port.Port())

	if createBucket {
		admin, err := mclient.New(endpoint, &mclient.Options{
			Creds: credentials.NewStaticV4(rootUser, rootPassword, ""),
		})
		require.NoError(t, err)
		require.NoError(t, admin.MakeBucket(ctx, bucket, mclient.MakeBucketOptions{}))
	}

	cfg := &config.Config{
		S3: config.S3Config{
			Endpoint:      "http://" + endpoint,
			RootUser:      rootUser,
			RootPassword:  rootPassword,
			Bucket:        bucket,
			PublicBaseURL: "http://" + endpoint + "/" + bucket,
		},
		Upload: config.UploadConfig{
			MaxSizeBytes:        1 << 20,
			AllowedContentTypes: []string{"image/jpeg", "image/png", "image/webp"},
		},
	}

	if !createBucket {
		return nil, cfg
	}

	ms, err := New(ctx, cfg)
	require.NoError(t, err)
	return ms, cfg
}

func TestNew_BucketMissing(t *testing.T) {
	_, cfg := startMinio(t, false)

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not exist")
}

func TestUpload_AndDelete(t *testing.T) {
	ms, cfg := startMinio(t, true)
	ctx := context.Background()

	payload := []byte("png-bytes")
	url, err := ms.Upload(ctx, "avatars", bytes.NewReader(payload), int64(len(payload)), "image/png")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, cfg.S3.PublicBaseURL+"/avatars/"))
	require.True(t, strings.HasSuffix(url, ".png"))

	// Объект действительно лежит в бакете.
	key, ok := ms.keyFromURL(url)
	require.True(t, ok)

	obj, err := ms.client.StatObject(ctx, cfg.S3.Bucket, key, mclient.StatObjectOptions{})
	require.NoError(t, err)
	require.Equal(t, int64(len(payload)), obj.Size)
	require.Equal(t, "image/png", obj.ContentType)

	// Удаление по публичному URL.
	require.NoError(t, ms.Delete(ctx, url))

	_, err = ms.client.StatObject(ctx, cfg.S3.Bucket, key, mclient.StatObjectOptions{})
	require.Error(t, err)
}

func TestUpload_Validation(t *testing.T) {
	ms, cfg := startMinio(t, true)
	ctx := context.Background()

	payload := []byte("data")

	// Недопустимый content-type.
	_, err := ms.Upload(ctx, "avatars", bytes.NewReader(payload), int64(len(payload)), "application/pdf")
	require.ErrorIs(t, err, storage.ErrInvalidMedia)

	// Нулевой размер.
	_, err = ms.Upload(ctx, "avatars", bytes.NewReader(nil), 0, "image/png")
	require.ErrorIs(t, err, storage.ErrInvalidMedia)

	// Превышение лимита.
	_, err = ms.Upload(ctx, "avatars", bytes.NewReader(payload), cfg.Upload.MaxSizeBytes+1, "image/png")
	require.ErrorIs(t, err, storage.ErrInvalidMedia)
}

func TestDelete_ForeignURLIsNoop(t *testing.T) {
	ms, _ := startMinio(t, true)
	ctx := context.Background()

	// Чужой хост и пустой ключ — no-op без ошибки.
	require.NoError(t, ms.Delete(ctx, "http://other.host/bucket/key.png"))
	require.NoError(t, ms.Delete(ctx, ""))
}

func TestUpload_UniqueKeys(t *testing.T) {
	ms, _ := startMinio(t, true)
	ctx := context.Background()

	payload := []byte("same-bytes")

	first, err := ms.Upload(ctx, "covers", bytes.NewReader(payload), int64(len(payload)), "image/webp")
	require.NoError(t, err)

	second, err := ms.Upload(ctx, "covers", bytes.NewReader(payload), int64(len(payload)), "image/webp")
	require.NoError(t, err)

	// Одинаковое содержимое не затирает предыдущий объект.
	require.NotEqual(t, first, second)
	require.True(t, strings.HasSuffix(first, ".webp"))
}
