package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"admin-dashboard/internal/imagecheck"
	"admin-dashboard/internal/models"
	"admin-dashboard/internal/repository/uploads"
	redisclient "admin-dashboard/pkg/database/redis"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

type memUploads struct {
	mu        sync.Mutex
	rows      map[uuid.UUID]models.Upload
	getCalls  int
	createErr error
}

func newMemUploads() *memUploads {
	return &memUploads{rows: map[uuid.UUID]models.Upload{}}
}

func (m *memUploads) Create(_ context.Context, u *models.Upload) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	m.rows[u.ID] = *u
	return nil
}

func (m *memUploads) Get(_ context.Context, id uuid.UUID) (*models.Upload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	u, ok := m.rows[id]
	if !ok {
		return nil, uploads.ErrNotFound
	}
	return &u, nil
}

func (m *memUploads) sorted(profile string) []models.Upload {
	out := []models.Upload{}
	for _, u := range m.rows {
		if profile == "" || u.Profile == profile {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out
}

func (m *memUploads) List(_ context.Context, profile string, limit, offset int) ([]models.Upload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sorted(profile)
	if offset >= len(all) {
		return nil, nil
	}
	return all[offset:min(offset+limit, len(all))], nil
}

func (m *memUploads) Count(_ context.Context, profile string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sorted(profile)), nil
}

func (m *memUploads) UpdateStatus(_ context.Context, id uuid.UUID, status models.UploadStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return uploads.ErrNotFound
	}
	u.Status = status
	m.rows[id] = u
	return nil
}

func (m *memUploads) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return uploads.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	removed []string
}

func (f *fakeObjects) UploadFile(_ context.Context, bucket, object string, r io.Reader, _ int64, _ string) (minio.UploadInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[bucket+"/"+object] = data
	return minio.UploadInfo{Bucket: bucket, Key: object, Size: int64(len(data))}, nil
}

func (f *fakeObjects) GetFileLink(_ context.Context, bucket, object string, _ time.Duration) (string, error) {
	return "https://files.example.com/" + bucket + "/" + object, nil
}

func (f *fakeObjects) RemoveFile(_ context.Context, bucket, object string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, bucket+"/"+object)
	f.removed = append(f.removed, bucket+"/"+object)
	return nil
}

type fakePublisher struct {
	bodies [][]byte
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, body []byte) error {
	if f.err != nil {
		return f.err
	}
	f.bodies = append(f.bodies, body)
	return nil
}

type env struct {
	router    *gin.Engine
	store     *memUploads
	objects   *fakeObjects
	publisher *fakePublisher
	redis     *miniredis.Miniredis
}

func newEnv(t *testing.T) *env {
	t.Helper()
	mr := miniredis.RunT(t)
	cache, err := redisclient.NewClient(mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	e := &env{
		store:     newMemUploads(),
		objects:   &fakeObjects{objects: map[string][]byte{}},
		publisher: &fakePublisher{},
		redis:     mr,
	}
	h := NewHandler(e.store, e.objects, e.publisher, cache, Options{MaxUploadSize: 1 << 20})
	e.router = NewRouter(h, RouterOptions{GinMode: gin.TestMode})
	return e
}

func (e *env) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func bmpBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func tiffBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, tiff.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, url, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestValidateImage(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name       string
		profile    string
		filename   string
		data       []byte
		wantStatus int
		want       imagecheck.Result
	}{
		{
			name: "category ok", profile: "category", filename: "icon.png", data: pngBytes(t, 300, 300),
			wantStatus: http.StatusOK,
			want:       imagecheck.Result{Valid: true, Dimensions: &imagecheck.Dimensions{Width: 300, Height: 300}},
		},
		{
			name: "category wrong size", profile: "category", filename: "icon.png", data: pngBytes(t, 600, 480),
			wantStatus: http.StatusOK,
			want: imagecheck.Result{
				Error:      "Category image must be exactly 300x300px (got 600x480px)",
				Dimensions: &imagecheck.Dimensions{Width: 600, Height: 480},
			},
		},
		{
			name: "avatar bmp", profile: "avatar", filename: "me.bmp", data: bmpBytes(t, 400, 400),
			wantStatus: http.StatusOK,
			want:       imagecheck.Result{Valid: true, Dimensions: &imagecheck.Dimensions{Width: 400, Height: 400}},
		},
		{
			name: "product tiff too small", profile: "product", filename: "shoe.tiff", data: tiffBytes(t, 500, 500),
			wantStatus: http.StatusOK,
			want: imagecheck.Result{
				Error:      "Product image must be at least 800x800px",
				Dimensions: &imagecheck.Dimensions{Width: 500, Height: 500},
			},
		},
		{
			name: "banner corrupt", profile: "banner", filename: "banner.jpg", data: []byte("nope"),
			wantStatus: http.StatusOK,
			want:       imagecheck.Result{Error: imagecheck.FailedMessage},
		},
		{
			name: "variant corrupt fails open", profile: "variant", filename: "v.webp", data: []byte("nope"),
			wantStatus: http.StatusOK,
			want:       imagecheck.Result{Valid: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(multipartRequest(t, "/api/validate/"+tt.profile, tt.filename, tt.data))
			require.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.want, decode[imagecheck.Result](t, w))
		})
	}
}

func TestValidateImage_BadRequests(t *testing.T) {
	e := newEnv(t)

	w := e.do(multipartRequest(t, "/api/validate/poster", "p.png", pngBytes(t, 10, 10)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(multipartRequest(t, "/api/validate/category", "icon.svg", []byte("<svg/>")))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(httptest.NewRequest(http.MethodPost, "/api/validate/category", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadImage_Accepted(t *testing.T) {
	e := newEnv(t)

	w := e.do(multipartRequest(t, "/api/uploads/product", "Shoe.PNG", pngBytes(t, 800, 800)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decode[UploadResponse](t, w)
	assert.Equal(t, "product", resp.Profile)
	assert.Equal(t, string(models.UploadStatusPending), resp.Status)
	assert.Equal(t, &imagecheck.Dimensions{Width: 800, Height: 800}, resp.Dimensions)

	id := uuid.MustParse(resp.ID)
	row, ok := e.store.rows[id]
	require.True(t, ok)
	assert.Equal(t, 800, row.Width)
	assert.Equal(t, "image/png", row.ContentType)
	assert.Equal(t, id.String()+".png", row.ObjectName)
	assert.Contains(t, e.objects.objects, models.OriginalsBucket+"/"+row.ObjectName)

	require.Len(t, e.publisher.bodies, 1)
	var task models.TaskMessage
	require.NoError(t, json.Unmarshal(e.publisher.bodies[0], &task))
	assert.Equal(t, models.TaskMessage{UploadID: id.String(), BucketName: models.OriginalsBucket, ObjectName: row.ObjectName}, task)
}

func TestUploadImage_Rejected(t *testing.T) {
	e := newEnv(t)

	w := e.do(multipartRequest(t, "/api/uploads/product", "wide.png", pngBytes(t, 800, 600)))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	res := decode[imagecheck.Result](t, w)
	assert.False(t, res.Valid)
	assert.Equal(t, "Product image must be square (1:1 aspect ratio)", res.Error)
	assert.Empty(t, e.store.rows)
	assert.Empty(t, e.objects.objects)
	assert.Empty(t, e.publisher.bodies)
}

func TestUploadImage_Failures(t *testing.T) {
	t.Run("database", func(t *testing.T) {
		e := newEnv(t)
		e.store.createErr = errors.New("db down")

		w := e.do(multipartRequest(t, "/api/uploads/avatar", "me.png", pngBytes(t, 400, 400)))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Empty(t, e.objects.objects)
		assert.Len(t, e.objects.removed, 1)
	})

	t.Run("queue", func(t *testing.T) {
		e := newEnv(t)
		e.publisher.err = errors.New("broker down")

		w := e.do(multipartRequest(t, "/api/uploads/avatar", "me.png", pngBytes(t, 400, 400)))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		require.Len(t, e.store.rows, 1)
		for _, row := range e.store.rows {
			assert.Equal(t, models.UploadStatusFailed, row.Status)
		}
	})
}

func seed(t *testing.T, e *env, profile, filename string, status models.UploadStatus) models.Upload {
	t.Helper()
	u := models.Upload{
		ID:         uuid.New(),
		Profile:    profile,
		Filename:   filename,
		Width:      300,
		Height:     300,
		Status:     status,
		BucketName: models.OriginalsBucket,
		ObjectName: filename,
	}
	if status == models.UploadStatusCompleted {
		u.Thumbnail = u.ID.String() + ".png"
	}
	require.NoError(t, e.store.Create(context.Background(), &u))
	return u
}

func TestGetUpload_CachesRecord(t *testing.T) {
	e := newEnv(t)
	u := seed(t, e, "category", "icon.png", models.UploadStatusCompleted)

	for i := 0; i < 2; i++ {
		w := e.do(httptest.NewRequest(http.MethodGet, "/api/uploads/"+u.ID.String(), nil))
		require.Equal(t, http.StatusOK, w.Code)

		resp := decode[ImageResponse](t, w)
		assert.Equal(t, u.ID.String(), resp.ID)
		assert.Equal(t, "https://files.example.com/dashboard-originals/icon.png", resp.DownloadURL)
		assert.Equal(t, "https://files.example.com/dashboard-thumbnails/"+u.Thumbnail, resp.ThumbnailURL)
	}
	assert.Equal(t, 1, e.store.getCalls)

	cached, err := e.redis.Get(models.CacheKey(u.ID))
	require.NoError(t, err)
	assert.NotContains(t, cached, "download_url")
}

func TestGetUpload_SkipsCacheWhileInFlight(t *testing.T) {
	for _, status := range []models.UploadStatus{models.UploadStatusPending, models.UploadStatusProcessing} {
		t.Run(string(status), func(t *testing.T) {
			e := newEnv(t)
			u := seed(t, e, "category", "icon.png", status)

			w := e.do(httptest.NewRequest(http.MethodGet, "/api/uploads/"+u.ID.String(), nil))
			require.Equal(t, http.StatusOK, w.Code)
			assert.False(t, e.redis.Exists(models.CacheKey(u.ID)))

			// the worker finishes after the first read
			require.NoError(t, e.store.UpdateStatus(context.Background(), u.ID, models.UploadStatusCompleted))

			w = e.do(httptest.NewRequest(http.MethodGet, "/api/uploads/"+u.ID.String(), nil))
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, string(models.UploadStatusCompleted), decode[ImageResponse](t, w).Status)
			assert.Equal(t, 2, e.store.getCalls)
			assert.True(t, e.redis.Exists(models.CacheKey(u.ID)))
		})
	}
}

func TestGetUpload_Errors(t *testing.T) {
	e := newEnv(t)

	w := e.do(httptest.NewRequest(http.MethodGet, "/api/uploads/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(httptest.NewRequest(http.MethodGet, "/api/uploads/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteUpload(t *testing.T) {
	e := newEnv(t)
	u := seed(t, e, "banner", "sale.png", models.UploadStatusCompleted)
	require.NoError(t, e.redis.Set(models.CacheKey(u.ID), "{}"))

	w := e.do(httptest.NewRequest(http.MethodDelete, "/api/uploads/"+u.ID.String(), nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	assert.Empty(t, e.store.rows)
	assert.ElementsMatch(t, []string{
		models.OriginalsBucket + "/sale.png",
		models.ThumbnailsBucket + "/" + u.Thumbnail,
	}, e.objects.removed)
	assert.False(t, e.redis.Exists(models.CacheKey(u.ID)))

	w = e.do(httptest.NewRequest(http.MethodDelete, "/api/uploads/"+u.ID.String(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListUploads(t *testing.T) {
	e := newEnv(t)
	for _, name := range []string{"a.png", "b.png", "c.png", "d.png", "e.png"} {
		seed(t, e, "category", name, models.UploadStatusPending)
	}
	seed(t, e, "product", "z.png", models.UploadStatusPending)

	w := e.do(httptest.NewRequest(http.MethodGet, "/api/uploads?profile=category&page=2&limit=2", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Items []ImageResponse `json:"items"`
		Meta  struct {
			Page       int   `json:"page"`
			Limit      int   `json:"limit"`
			Total      int   `json:"total"`
			TotalPages int   `json:"total_pages"`
			Window     []any `json:"window"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Len(t, resp.Items, 2)
	assert.Equal(t, "c.png", resp.Items[0].Filename)
	assert.Equal(t, "d.png", resp.Items[1].Filename)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 5, resp.Meta.Total)
	assert.Equal(t, 3, resp.Meta.TotalPages)
	assert.Equal(t, []any{1.0, 2.0, 3.0}, resp.Meta.Window)
}

func TestListUploads_BadQuery(t *testing.T) {
	e := newEnv(t)

	for _, q := range []string{"page=-1", "limit=1000", "page=abc", "profile=poster"} {
		w := e.do(httptest.NewRequest(http.MethodGet, "/api/uploads?"+q, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestPageWindow(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		query      string
		wantStatus int
		wantBody   string
	}{
		{query: "page=7&total=20", wantStatus: http.StatusOK, wantBody: `{"window":[1,"...",5,6,7,8,9,"...",20]}`},
		{query: "page=1&total=1", wantStatus: http.StatusOK, wantBody: `{"window":[1]}`},
		{query: "page=5&total=10&radius=0", wantStatus: http.StatusOK, wantBody: `{"window":[1,"...",5,"...",10]}`},
		{query: "page=0&total=10", wantStatus: http.StatusBadRequest},
		{query: "page=1", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := e.do(httptest.NewRequest(http.MethodGet, "/api/pagination?"+tt.query, nil))
			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestRouter_AuthGuard(t *testing.T) {
	h := NewHandler(newMemUploads(), &fakeObjects{objects: map[string][]byte{}}, &fakePublisher{}, nil, Options{})
	deny := func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
	}
	router := NewRouter(h, RouterOptions{GinMode: gin.TestMode, Auth: deny})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/profiles", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListProfiles(t *testing.T) {
	e := newEnv(t)
	w := e.do(httptest.NewRequest(http.MethodGet, "/api/profiles", nil))
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[struct {
		Profiles []imagecheck.Profile `json:"profiles"`
	}](t, w)
	require.Len(t, resp.Profiles, 4)
	assert.Equal(t, imagecheck.CustomerAvatar, resp.Profiles[0])
}
