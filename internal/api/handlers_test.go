package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gen2brain/go-fitz"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"receiptvault/internal/auth"
	"receiptvault/internal/report"
	"receiptvault/internal/repository"
	"receiptvault/internal/stats"
	"receiptvault/internal/storage"
	"receiptvault/pkg/database"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	dir := t.TempDir()

	db, err := database.New(database.Config{
		Path:            filepath.Join(dir, "test.db"),
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	migrator := database.NewMigrator(db, logger)
	require.NoError(t, migrator.RunMigrations("../../migrations"))

	imageStore, err := storage.NewImageStore(filepath.Join(dir, "images"), logger)
	require.NoError(t, err)

	userRepo := repository.NewUserRepository(db.DB, logger)
	receiptRepo := repository.NewReceiptRepository(db.DB, logger)
	authService := auth.NewService(userRepo, logger)

	resolver := report.NewImageResolver(imageStore, logger)
	composer := report.NewComposer(receiptRepo, resolver, report.NewPageLayoutEngine(), 2, logger)
	serializer, err := report.NewDocumentSerializer(filepath.Join(dir, "reports"), logger)
	require.NoError(t, err)

	handlers := NewHandlers(authService, receiptRepo, imageStore, composer, serializer, stats.NewExporter(logger), logger)
	server := NewServer(ServerConfig{Host: "127.0.0.1", Port: 0}, handlers, logger)
	return server.Router()
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func signupTestUser(t *testing.T, router *gin.Engine, username string) string {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/v1/signup", "", gin.H{
		"username": username,
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func uploadTestReceipt(t *testing.T, router *gin.Engine, token, date, tm, shop string, amount float64) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 40, 30))))

	w := doJSON(t, router, http.MethodPost, "/api/v1/receipts", token, gin.H{
		"filename":  "receipt.png",
		"image":     base64.StdEncoding.EncodeToString(buf.Bytes()),
		"amount":    amount,
		"bill_date": date,
		"bill_time": tm,
		"shop":      shop,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestAPI_EndToEnd(t *testing.T) {
	router := newTestRouter(t)
	token := signupTestUser(t, router, "frank")

	uploadTestReceipt(t, router, token, "2024-03-02", "09:15", "Bakery", 12.50)
	uploadTestReceipt(t, router, token, "2024-03-15", "18:40", "Pharmacy", 9.00)
	uploadTestReceipt(t, router, token, "2024-03-28", "12:00", "Hardware", 42.10)

	t.Run("stats aggregates by month", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/stats", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Stats map[string]float64 `json:"stats"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.InDelta(t, 63.60, resp.Stats["2024-03"], 0.001)
	})

	t.Run("stats export returns a workbook", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/stats/export", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
		assert.NotEmpty(t, w.Body.Bytes())
	})

	t.Run("monthly report streams a PDF with one page per receipt", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/reports/2024-03", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "report_2024-03.pdf")

		pdf, err := fitz.NewFromMemory(w.Body.Bytes())
		require.NoError(t, err)
		defer pdf.Close()
		assert.Equal(t, 3, pdf.NumPage())
	})

	t.Run("month without receipts yields one-page report", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/reports/2024-04", token, nil)
		require.Equal(t, http.StatusOK, w.Code)

		pdf, err := fitz.NewFromMemory(w.Body.Bytes())
		require.NoError(t, err)
		defer pdf.Close()
		assert.Equal(t, 1, pdf.NumPage())
	})

	t.Run("malformed month key rejected", func(t *testing.T) {
		for _, month := range []string{"2024", "2024-3", "2024-13", "notamonth"} {
			w := doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/v1/reports/%s", month), token, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, "month %q", month)
		}
	})
}

func TestAPI_Auth(t *testing.T) {
	router := newTestRouter(t)

	t.Run("report requires token", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/reports/2024-03", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("bogus token rejected", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/stats", "deadbeef", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("token accepted as query parameter", func(t *testing.T) {
		token := signupTestUser(t, router, "grace")
		w := doJSON(t, router, http.MethodGet, "/api/v1/stats?token="+token, "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("login returns the signup token", func(t *testing.T) {
		token := signupTestUser(t, router, "heidi")
		w := doJSON(t, router, http.MethodPost, "/api/v1/login", "", gin.H{
			"username": "heidi",
			"password": "secret123",
		})
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Token string `json:"token"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, token, resp.Token)
	})

	t.Run("negative amount rejected at upload", func(t *testing.T) {
		token := signupTestUser(t, router, "ivan")
		w := doJSON(t, router, http.MethodPost, "/api/v1/receipts", token, gin.H{
			"filename":  "r.png",
			"image":     base64.StdEncoding.EncodeToString([]byte{1}),
			"amount":    -5.0,
			"bill_date": "2024-03-01",
			"bill_time": "10:00",
			"shop":      "Shop",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid base64 rejected at upload", func(t *testing.T) {
		token := signupTestUser(t, router, "judy")
		w := doJSON(t, router, http.MethodPost, "/api/v1/receipts", token, gin.H{
			"filename":  "r.png",
			"image":     "!!!not-base64!!!",
			"amount":    5.0,
			"bill_date": "2024-03-01",
			"bill_time": "10:00",
			"shop":      "Shop",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
