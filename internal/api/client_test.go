package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andresmejia3/goober/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFaces_SendsImageAndDecodesBoxes(t *testing.T) {
	var got types.ImageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/detect_faces", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"faces":[{"x":10,"y":20,"width":30,"height":40}],"face_count":1}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", time.Second)
	res, err := c.DetectFaces(context.Background(), "data:image/jpeg;base64,AAAA")
	require.NoError(t, err)

	assert.Equal(t, "data:image/jpeg;base64,AAAA", got.Image)
	assert.Equal(t, 1, res.FaceCount)
	assert.Equal(t, []types.FaceBox{{X: 10, Y: 20, Width: 30, Height: 40}}, res.Faces)
	assert.Empty(t, res.Error)
}

func TestSavePhoto_ErrorFieldOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"No image data provided"}`))
	}))
	defer srv.Close()

	res, err := New(srv.URL, time.Second).SavePhoto(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "No image data provided", res.Error)
}

func TestListPhotos(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/photos", r.URL.Path)
		w.Write([]byte(`[{"id":1,"filename":"a.jpg","saved_at":"2024-01-02T03:04:05.123456","face_count":2},{"id":2,"filename":"b.jpg","saved_at":"2024-01-01T00:00:00","face_count":1}]`))
	}))
	defer srv.Close()

	photos, err := New(srv.URL, time.Second).ListPhotos(context.Background())
	require.NoError(t, err)
	require.Len(t, photos, 2)
	assert.Equal(t, 1, photos[0].ID)
	assert.Equal(t, 2, photos[0].FaceCount)

	ts, err := photos[0].SavedTime()
	require.NoError(t, err)
	assert.Equal(t, 2024, ts.Year())
}

func TestListPhotos_EmptyArrayIsNotNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	photos, err := New(srv.URL, time.Second).ListPhotos(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, photos)
	assert.Empty(t, photos)
}

func TestListPhotos_ErrorObjectIsBadResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Failed to fetch photos"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).ListPhotos(context.Background())
	require.ErrorIs(t, err, ErrBadResponse)
	assert.Contains(t, err.Error(), "Failed to fetch photos")
}

func TestDeletePhoto_UsesIDInPath(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/delete_photo/42", r.URL.Path)
		w.Write([]byte(`{"message":"Photo deleted successfully"}`))
	}))
	defer srv.Close()

	res, err := New(srv.URL, time.Second).DeletePhoto(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "Photo deleted successfully", res.Message)
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(url, time.Second).DetectFaces(context.Background(), "x")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestTimeoutIsUnavailable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := New(srv.URL, 50*time.Millisecond).ListPhotos(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNonJSONBodyIsBadResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).SavePhoto(context.Background(), "x")
	assert.ErrorIs(t, err, ErrBadResponse)
}

func TestFetchPhoto(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/photos/face_1.jpg" {
			w.Write([]byte{0xFF, 0xD8, 0xFF, 0xD9})
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)

	var buf bytes.Buffer
	n, err := c.FetchPhoto(context.Background(), "face_1.jpg", &buf)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)

	_, err = c.FetchPhoto(context.Background(), "missing.jpg", &buf)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInitDatabase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/init_db", r.URL.Path)
		w.Write([]byte(`{"message":"Database initialized successfully"}`))
	}))
	defer srv.Close()

	res, err := New(srv.URL, time.Second).InitDatabase(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Database initialized successfully", res.Message)
}
