package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"marathononline/training-api/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewS3Storage_RequiresBucket(t *testing.T) {
	_, err := NewS3Storage(context.Background(), config.S3Config{Region: "us-east-1"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestS3Storage_PutAndPresign(t *testing.T) {
	var gotPath, gotBody, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store, err := NewS3Storage(context.Background(), config.S3Config{
		Endpoint:        srv.URL,
		Region:          "us-east-1",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		BucketName:      "exports",
	})
	require.NoError(t, err)

	require.NoError(t, store.PutObject(context.Background(), "plans/p1.json", "application/json", []byte(`{"a":1}`)))
	assert.Equal(t, "/exports/plans/p1.json", gotPath)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, `{"a":1}`, gotBody)

	url, err := store.GeneratePresignedDownloadURL(context.Background(), "plans/p1.json", time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, srv.URL+"/exports/plans/p1.json?"), url)
	assert.Contains(t, url, "X-Amz-Expires=60")
}
