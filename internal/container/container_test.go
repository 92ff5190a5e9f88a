package container

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anime-shed/certscan-go/internal/config"

	"github.com/gin-gonic/gin"
)

func TestNewContainer(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Host:               "127.0.0.1",
		Port:               "8080",
		RequestTimeout:     time.Second,
		MaxRequestBodySize: 1 << 20,
		ScanProfile:        "mobile",
		VerifyAPIURL:       "http://verify.local",
		VerifyWorkers:      1,
	}
	c, err := NewContainer(cfg)
	if err != nil {
		t.Fatalf("NewContainer failed: %v", err)
	}
	defer c.Close()

	if c.Config() != cfg || c.ScanService() == nil {
		t.Fatal("Container not wired")
	}

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 from health, got %d", w.Code)
	}
}

func TestNewContainer_Errors(t *testing.T) {
	if _, err := NewContainer(nil); err == nil {
		t.Error("Expected error for nil config")
	}

	cfg := &config.Config{
		MaxRequestBodySize:  1 << 20,
		VerifyWorkers:       1,
		AzureStorageAccount: "acct",
		AzureStorageKey:     "%%not-base64%%",
	}
	if _, err := NewContainer(cfg); err == nil {
		t.Error("Expected error for invalid blob credentials")
	}
}
