package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/config"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/serializer"
)

// fakeS3 answers the path style requests issued by S3ObjectStorage.
type fakeS3 struct {
	mu           sync.Mutex
	buckets      map[string]bool
	objects      map[string][]byte
	contentTypes map[string]string
}

func newFakeS3(buckets ...string) *fakeS3 {
	f := &fakeS3{
		buckets:      map[string]bool{},
		objects:      map[string][]byte{},
		contentTypes: map[string]string{},
	}
	for _, b := range buckets {
		f.buckets[b] = true
	}
	return f
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.SplitN(strings.Trim(r.URL.Path, "/"), "/", 2)
	bucket := parts[0]
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	name := bucket + "/" + key

	switch {
	case key == "" && r.Method == http.MethodHead:
		if !f.buckets[bucket] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case key == "" && r.Method == http.MethodPut:
		f.buckets[bucket] = true
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.objects[name] = body
		f.contentTypes[name] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodHead:
		if _, ok := f.objects[name]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodDelete:
		delete(f.objects, name)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func (f *fakeS3) object(name string) ([]byte, string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[name]
	return data, f.contentTypes[name], ok
}

func (f *fakeS3) hasBucket(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buckets[name]
}

func newTestStorage(t *testing.T, endpoint string) *S3ObjectStorage {
	t.Helper()
	s, err := NewS3ObjectStorage(context.Background(), &config.StorageConfig{
		Bucket:       "exports",
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		Region:       "us-east-1",
		Endpoint:     endpoint,
		UsePathStyle: true,
	}, WithLogger(zaptest.NewLogger(t)), WithPresignExpiration(15*time.Minute))
	require.NoError(t, err)
	return s
}

func TestNewS3ObjectStorage_Validation(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		cfg  *config.StorageConfig
		want string
	}{
		{name: "nil config", cfg: nil, want: "configuration is required"},
		{name: "missing bucket", cfg: &config.StorageConfig{AccessKey: "k", SecretKey: "s"}, want: "bucket is required"},
		{name: "missing access key", cfg: &config.StorageConfig{Bucket: "b", SecretKey: "s"}, want: "access key is required"},
		{name: "missing secret key", cfg: &config.StorageConfig{Bucket: "b", AccessKey: "k"}, want: "secret key is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewS3ObjectStorage(ctx, tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("valid config", func(t *testing.T) {
		s, err := NewS3ObjectStorage(ctx, &config.StorageConfig{
			Bucket:    "exports",
			AccessKey: "k",
			SecretKey: "s",
			Endpoint:  "localhost:9000",
		})
		require.NoError(t, err)
		assert.Equal(t, "exports", s.Bucket())
		assert.Equal(t, 24*time.Hour, s.presignExpiration)
	})
}

func TestS3ObjectStorage_EnsureBucket(t *testing.T) {
	fake := newFakeS3()
	srv := httptest.NewServer(fake)
	defer srv.Close()

	s := newTestStorage(t, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, s.EnsureBucket(ctx))
	assert.True(t, fake.hasBucket("exports"))

	// An existing bucket is left alone.
	require.NoError(t, s.EnsureBucket(ctx))
}

func TestS3ObjectStorage_Objects(t *testing.T) {
	fake := newFakeS3("exports")
	srv := httptest.NewServer(fake)
	defer srv.Close()

	s := newTestStorage(t, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	data := []byte(`<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"/>`)
	require.NoError(t, s.Upload(ctx, "grid/EQ.xml", data, ContentTypeXML))

	stored, contentType, ok := fake.object("exports/grid/EQ.xml")
	require.True(t, ok)
	assert.Equal(t, data, stored)
	assert.Equal(t, ContentTypeXML, contentType)

	exists, err := s.ObjectExists(ctx, "grid/EQ.xml")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.ObjectExists(ctx, "grid/TP.xml")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.DeleteObject(ctx, "grid/EQ.xml"))
	_, _, ok = fake.object("exports/grid/EQ.xml")
	assert.False(t, ok)

	t.Run("empty key", func(t *testing.T) {
		assert.Error(t, s.Upload(ctx, "", data, ContentTypeXML))
		_, err := s.ObjectExists(ctx, "")
		assert.Error(t, err)
		assert.Error(t, s.DeleteObject(ctx, ""))
		_, err = s.Location(ctx, "")
		assert.Error(t, err)
	})
}

func TestS3ObjectStorage_Location(t *testing.T) {
	s := newTestStorage(t, "http://localhost:9000")

	loc, err := s.Location(context.Background(), "grid/EQ.xml")
	require.NoError(t, err)
	assert.Contains(t, loc, "/exports/grid/EQ.xml")
	assert.Contains(t, loc, "X-Amz-Signature=")
	assert.Contains(t, loc, "X-Amz-Expires=900")
}

func TestStoreUploadsDocuments(t *testing.T) {
	fake := newFakeS3("exports")
	srv := httptest.NewServer(fake)
	defer srv.Close()

	s := newTestStorage(t, srv.URL)
	docs := []serializer.Document{
		{Name: "EQ", Data: []byte("<eq/>")},
		{Name: "TP", Data: []byte("<tp/>")},
	}
	locations, err := Store(context.Background(), s, "/runs/1/", docs)
	require.NoError(t, err)
	require.Len(t, locations, 2)
	assert.Contains(t, locations[1], "/exports/runs/1/TP.xml")

	stored, _, ok := fake.object("exports/runs/1/EQ.xml")
	require.True(t, ok)
	assert.Equal(t, "<eq/>", string(stored))
}
