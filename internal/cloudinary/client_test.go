package cloudinary

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignSortsAndSkipsUnsignedKeys(t *testing.T) {
	c := New("demo", "key", "secret", "")
	got := c.sign(map[string]string{"timestamp": "100", "folder": "hw", "api_key": "key", "file": "x"})
	want := fmt.Sprintf("%x", sha1.Sum([]byte("folder=hw&timestamp=100secret")))
	assert.Equal(t, want, got)
}

func TestStoreUploadsRawFile(t *testing.T) {
	var gotPath, gotFile, gotSig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		gotSig = r.FormValue("signature")
		f, _, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		b, _ := io.ReadAll(f)
		gotFile = string(b)
		_, _ = w.Write([]byte(`{"public_id":"hw/abc","secure_url":"https://cdn.test/hw/abc.pdf","resource_type":"raw"}`))
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "hw")
	c.BaseURL = srv.URL
	c.now = func() time.Time { return time.Unix(100, 0) }

	url, err := c.Store(context.Background(), "worksheet.pdf", []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/hw/abc.pdf", url)
	assert.Equal(t, "/demo/raw/upload", gotPath)
	assert.Equal(t, "%PDF", gotFile)
	assert.Equal(t, fmt.Sprintf("%x", sha1.Sum([]byte("folder=hw&timestamp=100secret"))), gotSig)
}

func TestUploadReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad signature"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "")
	c.BaseURL = srv.URL
	_, err := c.Upload(context.Background(), []byte("x"), "a.txt", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
