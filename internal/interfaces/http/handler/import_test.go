package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newImportRouter(t *testing.T, mockRepo *MockProductRepository) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwtSvc := newTestJWTService()
	h := NewImportHandler(catalogapp.NewImportService(mockRepo, nil), jwtSvc, nil)

	r := gin.New()
	api := r.Group("/api/v1")
	h.RegisterRoutes(api)

	return r, issueToken(jwtSvc, "admin")
}

func csvUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = io.Copy(part, strings.NewReader(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestImportHandler_JSON(t *testing.T) {
	mockRepo := new(MockProductRepository)
	r, adminToken := newImportRouter(t, mockRepo)

	mockRepo.On("SaveBatch", mock.Anything, mock.Anything).Return(nil)

	body := `[{"name": "Oak Table", "price": "129.00", "status": "published"}]`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products/import/json", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+adminToken)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"imported":1`)
	mockRepo.AssertExpectations(t)
}

func TestImportHandler_JSON_RequiresAdmin(t *testing.T) {
	mockRepo := new(MockProductRepository)
	r, _ := newImportRouter(t, mockRepo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products/import/json", strings.NewReader(`[]`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestImportHandler_CSV(t *testing.T) {
	mockRepo := new(MockProductRepository)
	r, adminToken := newImportRouter(t, mockRepo)

	mockRepo.On("SaveBatch", mock.Anything, mock.Anything).Return(nil)

	buf, contentType := csvUpload(t, "products.csv", "name,price\nOak Table,129.00\n")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products/import/csv", buf)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"imported":1`)
}

func TestImportHandler_CSV_WrongExtension(t *testing.T) {
	mockRepo := new(MockProductRepository)
	r, adminToken := newImportRouter(t, mockRepo)

	buf, contentType := csvUpload(t, "products.xlsx", "name,price\nOak Table,129.00\n")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products/import/csv", buf)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockRepo.AssertNotCalled(t, "SaveBatch")
}

func TestUploadHandler_Upload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwtSvc := newTestJWTService()
	store := &memoryImageStore{objects: map[string][]byte{}}
	h := NewUploadHandler(catalogapp.NewImageService(store), jwtSvc, nil)

	r := gin.New()
	api := r.Group("/api/v1")
	h.RegisterRoutes(api)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="image"; filename="photo.png"`)
	header.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("fake png bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products/images", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+issueToken(jwtSvc, "admin"))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "products/")
	assert.Len(t, store.objects, 1)
}

// memoryImageStore is an in-memory catalogapp.ImageStorage for handler tests
type memoryImageStore struct {
	objects map[string][]byte
}

func (s *memoryImageStore) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.objects[key] = data
	return "/uploads/" + key, nil
}

func (s *memoryImageStore) Delete(ctx context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

func (s *memoryImageStore) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := s.objects[key]
	return ok, nil
}
