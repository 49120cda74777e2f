package upload

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload", r.URL.Path)
		assert.Equal(t, "Bearer tkn", r.Header.Get("Authorization"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "pic.png", header.Filename)

		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "imagebytes", string(data))

		_ = json.NewEncoder(w).Encode(map[string]string{"fileUrl": "/files/pic.png"})
	}))
	defer srv.Close()

	c := NewClient(zap.NewNop(), srv.URL, 2*time.Second)
	url, err := c.Upload(context.Background(), "tkn", "pic.png", strings.NewReader("imagebytes"))
	require.NoError(t, err)
	assert.Equal(t, "/files/pic.png", url)
}

func TestUploadServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(zap.NewNop(), srv.URL, 2*time.Second)
	_, err := c.Upload(context.Background(), "tkn", "pic.png", strings.NewReader("x"))
	assert.Error(t, err)
}

func TestUploadMissingFileURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{}"))
	}))
	defer srv.Close()

	c := NewClient(zap.NewNop(), srv.URL, 2*time.Second)
	_, err := c.Upload(context.Background(), "tkn", "pic.png", strings.NewReader("x"))
	assert.Error(t, err)
}
