package mongo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/savelyevam/vidhub/internal/config"
	"github.com/savelyevam/vidhub/internal/models"
	"github.com/savelyevam/vidhub/internal/storage"
)

// Интеграционные тесты хранилища: реальная MongoDB через testcontainers-go.
//
// Запуск:
//
//	GO_TEST_INTEGRATION=1 go test ./internal/storage/mongo -v -race -count=1

// testTimeout — общий дедлайн на операции с БД в тестах.
const testTimeout = 10 * time.Second

// TestMain запускает MongoDB в контейнере один раз на весь пакет тестов.
// Адрес контейнера прокидывается в ENV DATABASE_URL, а каждый тест
// создаёт свою БД с уникальным именем (см. newTestConfig).
func TestMain(m *testing.M) {
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		os.Exit(m.Run())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	req := testcontainers.ContainerRequest{
		Image:        "mongo:7.0",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(90 * time.Second),
	}

	mongoC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start mongo testcontainer: %v\n", err)
		os.Exit(1)
	}

	host, err := mongoC.Host(ctx)
	if err != nil {
		_ = mongoC.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get container host: %v\n", err)
		os.Exit(1)
	}

	port, err := mongoC.MappedPort(ctx, "27017/tcp")
	if err != nil {
		_ = mongoC.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get mapped port: %v\n", err)
		os.Exit(1)
	}

	uri := fmt.Sprintf("mongodb://%s:%s", host, port.Port())
	_ = os.Setenv("DATABASE_URL", uri)

	code := m.Run()

	_ = mongoC.Terminate(context.Background())
	os.Exit(code)
}

// newTestConfig создаёт конфиг с отдельной тестовой БД.
func newTestConfig(t *testing.T) *config.Config {
	t.Helper()

	baseURL := os.Getenv("DATABASE_URL")
	if baseURL == "" {
		baseURL = "mongodb://localhost:27017"
	}

	dbName := "vidhub_test_" + uuid.New().String()

	return &config.Config{
		DB: config.DBConfig{
			URL: baseURL + "/" + dbName,
		},
	}
}

// mustNewMongo подключается к тестовой БД и регистрирует очистку.
func mustNewMongo(t *testing.T) *Mongo {
	t.Helper()

	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	cfg := newTestConfig(t)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	m, err := New(ctx, cfg)
	require.NoError(t, err, "cannot connect to MongoDB in container (DATABASE_URL=%s)", cfg.DB.URL)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
		defer cancel()
		_ = m.db.Drop(ctx)
		_ = m.Close(ctx)
	})

	return m
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	t.Cleanup(cancel)
	return ctx
}

func seedUser(t *testing.T, m *Mongo, username, email string) *models.User {
	t.Helper()

	u, err := m.SaveUser(testCtx(t), &models.User{
		Username:     username,
		Email:        email,
		FullName:     "Test " + username,
		Avatar:       "http://media.local/avatars/" + username + ".png",
		PasswordHash: "bcrypt-hash",
	})
	require.NoError(t, err)
	return u
}

func TestSaveUser_AssignsIDAndTimestamps(t *testing.T) {
	m := mustNewMongo(t)

	before := time.Now().UTC().Add(-time.Second)
	u := seedUser(t, m, "alice", "alice@example.com")

	require.NotEmpty(t, u.ID)
	_, err := primitive.ObjectIDFromHex(u.ID)
	require.NoError(t, err)
	require.True(t, u.CreatedAt.After(before))
	require.Equal(t, u.CreatedAt, u.UpdatedAt)
}

func TestSaveUser_UniqueIndexConflicts(t *testing.T) {
	m := mustNewMongo(t)
	ctx := testCtx(t)

	seedUser(t, m, "alice", "alice@example.com")

	// Занятый username.
	_, err := m.SaveUser(ctx, &models.User{
		Username: "alice", Email: "other@example.com",
		FullName: "X", Avatar: "a", PasswordHash: "h",
	})
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	// Занятый email.
	_, err = m.SaveUser(ctx, &models.User{
		Username: "other", Email: "alice@example.com",
		FullName: "X", Avatar: "a", PasswordHash: "h",
	})
	require.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestUserByID(t *testing.T) {
	m := mustNewMongo(t)
	ctx := testCtx(t)

	saved := seedUser(t, m, "alice", "alice@example.com")

	got, err := m.UserByID(ctx, saved.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", got.Username)
	require.Equal(t, "bcrypt-hash", got.PasswordHash)

	_, err = m.UserByID(ctx, primitive.NewObjectID().Hex())
	require.ErrorIs(t, err, storage.ErrNotFound)

	// Не-hex id не является ошибкой запроса, это просто «не найдено».
	_, err = m.UserByID(ctx, "not-a-hex")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUserByLogin(t *testing.T) {
	m := mustNewMongo(t)
	ctx := testCtx(t)

	seedUser(t, m, "alice", "alice@example.com")

	byName, err := m.UserByLogin(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", byName.Email)

	// Вход по email, регистр и пробелы нормализуются.
	byEmail, err := m.UserByLogin(ctx, "  Alice@Example.COM ")
	require.NoError(t, err)
	require.Equal(t, byName.ID, byEmail.ID)

	_, err = m.UserByLogin(ctx, "ghost")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUserExists(t *testing.T) {
	m := mustNewMongo(t)
	ctx := testCtx(t)

	seedUser(t, m, "alice", "alice@example.com")

	taken, err := m.UserExists(ctx, "alice", "")
	require.NoError(t, err)
	require.True(t, taken)

	taken, err = m.UserExists(ctx, "", "alice@example.com")
	require.NoError(t, err)
	require.True(t, taken)

	taken, err = m.UserExists(ctx, "bob", "bob@example.com")
	require.NoError(t, err)
	require.False(t, taken)

	taken, err = m.UserExists(ctx, "", "")
	require.NoError(t, err)
	require.False(t, taken)
}

func TestUpdateUser_PartialPatch(t *testing.T) {
	m := mustNewMongo(t)
	ctx := testCtx(t)

	saved := seedUser(t, m, "alice", "alice@example.com")

	fullName := "Alice in Wonderland"
	got, err := m.UpdateUser(ctx, saved.ID, models.UserPatch{FullName: &fullName})
	require.NoError(t, err)
	require.Equal(t, fullName, got.FullName)

	// Остальные поля не тронуты, updated_at сдвинулся.
	require.Equal(t, "alice", got.Username)
	require.Equal(t, "alice@example.com", got.Email)
	require.True(t, got.UpdatedAt.After(saved.UpdatedAt) || got.UpdatedAt.Equal(saved.UpdatedAt))

	_, err = m.UpdateUser(ctx, primitive.NewObjectID().Hex(), models.UserPatch{FullName: &fullName})
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdateUser_UniqueConflict(t *testing.T) {
	m := mustNewMongo(t)
	ctx := testCtx(t)

	seedUser(t, m, "alice", "alice@example.com")
	bob := seedUser(t, m, "bob", "bob@example.com")

	username := "alice"
	_, err := m.UpdateUser(ctx, bob.ID, models.UserPatch{Username: &username})
	require.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestSetRefreshToken_SetAndClear(t *testing.T) {
	m := mustNewMongo(t)
	ctx := testCtx(t)

	saved := seedUser(t, m, "alice", "alice@example.com")

	require.NoError(t, m.SetRefreshToken(ctx, saved.ID, "refresh-jwt"))

	got, err := m.UserByID(ctx, saved.ID)
	require.NoError(t, err)
	require.Equal(t, "refresh-jwt", got.RefreshToken)

	// Пустое значение — logout: в документе refresh_token становится null.
	require.NoError(t, m.SetRefreshToken(ctx, saved.ID, ""))

	got, err = m.UserByID(ctx, saved.ID)
	require.NoError(t, err)
	require.Empty(t, got.RefreshToken)

	var raw bson.M
	require.NoError(t, m.users.FindOne(ctx, bson.M{"username": "alice"}).Decode(&raw))
	require.Contains(t, raw, "refresh_token")
	require.Nil(t, raw["refresh_token"])

	require.ErrorIs(t, m.SetRefreshToken(ctx, primitive.NewObjectID().Hex(), "x"), storage.ErrNotFound)
}

func TestChannelByUsername(t *testing.T) {
	m := mustNewMongo(t)
	ctx := testCtx(t)

	alice := seedUser(t, m, "alice", "alice@example.com")
	bob := seedUser(t, m, "bob", "bob@example.com")
	carol := seedUser(t, m, "carol", "carol@example.com")

	bobOID, err := primitive.ObjectIDFromHex(bob.ID)
	require.NoError(t, err)
	aliceOID, err := primitive.ObjectIDFromHex(alice.ID)
	require.NoError(t, err)
	carolOID, err := primitive.ObjectIDFromHex(carol.ID)
	require.NoError(t, err)

	// alice и carol подписаны на канал bob.
	_, err = m.subscriptions.InsertMany(ctx, []interface{}{
		bson.M{"channel": bobOID, "subscriber": aliceOID},
		bson.M{"channel": bobOID, "subscriber": carolOID},
	})
	require.NoError(t, err)

	// Глазами alice: подписана.
	ch, err := m.ChannelByUsername(ctx, "Bob", alice.ID)
	require.NoError(t, err)
	require.Equal(t, "bob", ch.Username)
	require.Equal(t, int64(2), ch.SubscriberCount)
	require.True(t, ch.IsSubscribed)

	// Глазами bob: не подписан сам на себя.
	ch, err = m.ChannelByUsername(ctx, "bob", bob.ID)
	require.NoError(t, err)
	require.False(t, ch.IsSubscribed)

	// Анонимный просмотр.
	ch, err = m.ChannelByUsername(ctx, "bob", "")
	require.NoError(t, err)
	require.Equal(t, int64(2), ch.SubscriberCount)
	require.False(t, ch.IsSubscribed)

	// Учётные поля не попадают в read-model.
	require.NotEmpty(t, ch.Avatar)

	_, err = m.ChannelByUsername(ctx, "ghost", alice.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestWatchHistory(t *testing.T) {
	m := mustNewMongo(t)
	ctx := testCtx(t)

	alice := seedUser(t, m, "alice", "alice@example.com")
	bob := seedUser(t, m, "bob", "bob@example.com")

	bobOID, err := primitive.ObjectIDFromHex(bob.ID)
	require.NoError(t, err)
	aliceOID, err := primitive.ObjectIDFromHex(alice.ID)
	require.NoError(t, err)

	videoID := primitive.NewObjectID()
	_, err = m.videos.InsertOne(ctx, bson.M{
		"_id":        videoID,
		"title":      "How to build",
		"thumbnail":  "http://media.local/thumbs/1.png",
		"duration":   12.5,
		"views":      int64(100),
		"owner":      bobOID,
		"created_at": time.Now().UTC(),
	})
	require.NoError(t, err)

	_, err = m.users.UpdateOne(ctx,
		bson.M{"_id": aliceOID},
		bson.M{"$set": bson.M{"watch_history": []primitive.ObjectID{videoID}}},
	)
	require.NoError(t, err)

	history, err := m.WatchHistory(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "How to build", history[0].Title)
	require.Equal(t, 12.5, history[0].Duration)
	require.Equal(t, "bob", history[0].Owner.Username)
	require.Equal(t, "Test bob", history[0].Owner.FullName)

	// Пустая история — пустой срез, не ошибка.
	history, err = m.WatchHistory(ctx, bob.ID)
	require.NoError(t, err)
	require.Empty(t, history)

	_, err = m.WatchHistory(ctx, primitive.NewObjectID().Hex())
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestEnsureIndexes_Created(t *testing.T) {
	m := mustNewMongo(t)
	ctx := testCtx(t)

	cur, err := m.users.Indexes().List(ctx)
	require.NoError(t, err)

	var idx []bson.M
	require.NoError(t, cur.All(ctx, &idx))

	names := map[string]bool{}
	for _, i := range idx {
		if n, ok := i["name"].(string); ok {
			names[n] = true
		}
	}

	require.True(t, names["uniq_username"])
	require.True(t, names["uniq_email"])
}
