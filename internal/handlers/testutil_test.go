package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/incubrix/cms/internal/database"
	"github.com/incubrix/cms/internal/feed"
	"github.com/incubrix/cms/internal/middleware"
	"github.com/incubrix/cms/internal/services"
	"github.com/incubrix/cms/internal/storage"
	"gorm.io/gorm"
)

type testEnv struct {
	app   *fiber.App
	db    *gorm.DB
	blobs *storage.MemoryBackend
	feeds *services.FeedService
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), database.GormConfig())
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed migrating models: %v", err)
	}
	if err := database.SeedSettings(db); err != nil {
		t.Fatalf("failed seeding settings: %v", err)
	}

	blobs := storage.NewMemoryBackend()
	store := services.NewAssetStore(db)
	hierarchy := services.NewHierarchyService(store, blobs, nil)
	settings := services.NewSettingsService(db, store, nil)
	filter := services.NewFeedFilterEngine(store, hierarchy)
	renderer := feed.NewRenderer()
	feeds := services.NewFeedService(store, settings, filter, renderer, "")
	hierarchy.Notifier = feeds
	settings.Notifier = feeds

	assets := services.NewAssetService(store, blobs, feeds)
	ingest := services.NewIngestService(store, hierarchy, settings, blobs, services.NoopExtractor{}, feeds)
	registry := services.NewPublicFeedRegistry(db, store, settings, filter, renderer)

	app := fiber.New(fiber.Config{BodyLimit: 100 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS("*"))
	app.Use(middleware.RequestLogger())
	app.Use(middleware.NotFoundLogger())
	app.Use(middleware.Metrics())

	Register(app, Handlers{
		System:      NewSystemHandler(feeds),
		Assets:      NewAssetsHandler(store, assets, ingest, hierarchy),
		Feeds:       NewFeedsHandler(feeds, registry),
		Settings:    NewSettingsHandler(settings),
		PublicFeeds: NewPublicFeedsHandler(registry),
	})

	return &testEnv{app: app, db: db, blobs: blobs, feeds: feeds}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any) *http.Response {
	t.Helper()

	var body io.Reader
	headers := map[string]string{}
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
		headers["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, headers)
}

type uploadPart struct {
	filename     string
	relativePath string
	contentType  string
	content      string
}

// performUpload posts a multipart batch the way the admin UI does: one
// "files" part per file, with relative paths sent alongside in order.
func performUpload(t *testing.T, app *fiber.App, parentID string, parts ...uploadPart) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if parentID != "" {
		if err := w.WriteField("parentId", parentID); err != nil {
			t.Fatalf("failed writing parentId field: %v", err)
		}
	}
	for _, p := range parts {
		if err := w.WriteField("relativePaths", p.relativePath); err != nil {
			t.Fatalf("failed writing relativePaths field: %v", err)
		}
	}
	for _, p := range parts {
		header := make(map[string][]string)
		header["Content-Disposition"] = []string{`form-data; name="files"; filename="` + p.filename + `"`}
		header["Content-Type"] = []string{p.contentType}
		fw, err := w.CreatePart(header)
		if err != nil {
			t.Fatalf("failed creating file part: %v", err)
		}
		if _, err := io.WriteString(fw, p.content); err != nil {
			t.Fatalf("failed writing file part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed closing multipart writer: %v", err)
	}

	return performRequest(t, app, http.MethodPost, "/api/assets/upload", &buf, map[string]string{
		"Content-Type": w.FormDataContentType(),
	})
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}
	return string(raw)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	raw := readBody(t, resp)
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, raw)
	}

	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func assertEnvelopeError(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if success, _ := body["success"].(bool); success {
		t.Fatalf("expected success=false, got %+v", body)
	}
	if got, _ := body["error"].(string); got != expected {
		t.Fatalf("expected error %q, got %q", expected, got)
	}
}

func dataMap(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %T (%+v)", body["data"], body)
	}
	return data
}

func dataList(t *testing.T, body map[string]any) []any {
	t.Helper()
	data, ok := body["data"].([]any)
	if !ok {
		t.Fatalf("expected data array, got %T (%+v)", body["data"], body)
	}
	return data
}

// createFolder creates a folder through the API and returns its id.
func createFolder(t *testing.T, app *fiber.App, name, parentID string) string {
	t.Helper()

	resp := performJSONRequest(t, app, http.MethodPost, "/api/folders", map[string]any{
		"name":     name,
		"parentId": parentID,
	})
	assertStatus(t, resp, http.StatusCreated)
	id, _ := dataMap(t, decodeJSONMap(t, resp))["id"].(string)
	if id == "" {
		t.Fatal("expected folder id in response")
	}
	return id
}
