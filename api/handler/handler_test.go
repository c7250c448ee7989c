package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/alief-faisal/portofoliowidia/backend"
	"github.com/alief-faisal/portofoliowidia/cache"
	"github.com/alief-faisal/portofoliowidia/config"
	"github.com/alief-faisal/portofoliowidia/gallery"
	"github.com/alief-faisal/portofoliowidia/settings"
)

// fakeBackend is a minimal in-memory rendition of the hosted backend:
// the two tables plus the object store endpoints the stores touch.
type fakeBackend struct {
	mu       sync.Mutex
	settings map[string]string
	photos   []gallery.Photo
	objects  map[string][]byte
	failAll  bool
}

type HandlerTestSuite struct {
	suite.Suite
	router  *gin.Engine
	fake    *fakeBackend
	server  *httptest.Server
	handler *Handler
}

func (s *HandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	s.fake = &fakeBackend{
		settings: make(map[string]string),
		objects:  make(map[string][]byte),
	}
	s.server = httptest.NewServer(s.fake)

	client, err := backend.New(backend.Config{URL: s.server.URL, AnonKey: "anon-key"})
	require.NoError(s.T(), err)

	settingsStore := settings.NewStore(client)
	galleryStore := gallery.NewStore(client, "gallery")
	backing := cache.NewBacking(&config.CacheConfig{Type: "memory", TTL: 60})
	views := NewViews(settingsStore, galleryStore, backing)
	s.handler = New(settingsStore, galleryStore, views)

	s.router = gin.New()
	s.router.GET("/api/views/about", s.handler.AboutView)
	s.router.GET("/api/views/social", s.handler.SocialView)
	s.router.GET("/api/views/resume", s.handler.ResumeView)
	s.router.GET("/api/views/gallery", s.handler.GalleryView)
	s.router.GET("/resume", s.handler.ResumeDownload)
	s.router.POST("/admin/photos", s.handler.AddPhoto)
	s.router.POST("/admin/photos/:id/delete", s.handler.DeletePhoto)
	s.router.POST("/admin/settings", s.handler.SaveSettings)
}

func (s *HandlerTestSuite) TearDownTest() {
	s.server.Close()
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failAll {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"message": "backend down"}) //nolint:errcheck
		return
	}

	switch {
	case r.URL.Path == "/rest/v1/site_settings":
		f.serveSettings(w, r)
	case r.URL.Path == "/rest/v1/gallery_photos":
		f.servePhotos(w, r)
	case strings.HasPrefix(r.URL.Path, "/storage/v1/object/gallery/"):
		f.serveStorage(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeBackend) serveSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rows := make([]settings.Entry, 0, len(f.settings))
		for k, v := range f.settings {
			rows = append(rows, settings.Entry{Key: k, Value: v})
		}
		json.NewEncoder(w).Encode(rows) //nolint:errcheck
	case http.MethodPost:
		var entry settings.Entry
		if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.settings[entry.Key] = entry.Value
		w.WriteHeader(http.StatusCreated)
	}
}

func (f *fakeBackend) servePhotos(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if filter := r.URL.Query().Get("image_url"); filter != "" {
			target := strings.TrimPrefix(filter, "eq.")
			matches := []gallery.Photo{}
			for _, p := range f.photos {
				if p.ImageURL == target {
					matches = append(matches, p)
				}
			}
			json.NewEncoder(w).Encode(matches) //nolint:errcheck
			return
		}
		json.NewEncoder(w).Encode(f.photos) //nolint:errcheck
	case http.MethodPost:
		var row struct {
			Title    string `json:"title"`
			ImageURL string `json:"image_url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for _, p := range f.photos {
			if p.ImageURL == row.ImageURL {
				w.WriteHeader(http.StatusConflict)
				json.NewEncoder(w).Encode(map[string]string{ //nolint:errcheck
					"message": "duplicate key value", "code": "23505",
				})
				return
			}
		}
		f.photos = append(f.photos, gallery.Photo{
			ID: fmt.Sprintf("p%d", len(f.photos)+1), Title: row.Title, ImageURL: row.ImageURL,
		})
		w.WriteHeader(http.StatusCreated)
	case http.MethodDelete:
		id := strings.TrimPrefix(r.URL.Query().Get("id"), "eq.")
		f.photos = lo.Reject(f.photos, func(p gallery.Photo, _ int) bool { return p.ID == id })
		w.WriteHeader(http.StatusNoContent)
	}
}

func (f *fakeBackend) serveStorage(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/storage/v1/object/gallery/")
	switch r.Method {
	case http.MethodPost:
		body, _ := io.ReadAll(r.Body)
		f.objects[path] = body
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		delete(f.objects, path)
		w.WriteHeader(http.StatusOK)
	}
}

func (s *HandlerTestSuite) get(path string) (int, map[string]any) {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
	var body map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func (s *HandlerTestSuite) postForm(path string, form url.Values) (int, map[string]any) {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	var body map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func (s *HandlerTestSuite) TestAboutView_Default() {
	code, body := s.get("/api/views/about")
	s.Equal(http.StatusOK, code)
	s.Contains(body["about"], "Widia Sari")
}

func (s *HandlerTestSuite) TestAboutView_Stored() {
	s.fake.settings[settings.KeyAboutMe] = "Cerita baru"

	code, body := s.get("/api/views/about")
	s.Equal(http.StatusOK, code)
	s.Equal("Cerita baru", body["about"])
}

func (s *HandlerTestSuite) TestViews_DefaultsWhenBackendDown() {
	s.fake.failAll = true

	code, body := s.get("/api/views/about")
	s.Equal(http.StatusOK, code)
	s.Contains(body["about"], "Widia Sari")

	code, body = s.get("/api/views/social")
	s.Equal(http.StatusOK, code)
	s.Equal("https://instagram.com/widia_sari", body["instagram"])
	s.Equal("https://wa.me/6281234567890", body["whatsapp"])
	s.Equal("https://tiktok.com/@widia_sari", body["tiktok"])

	code, body = s.get("/api/views/gallery")
	s.Equal(http.StatusOK, code)
	s.Empty(body["photos"])
}

func (s *HandlerTestSuite) TestResumeView() {
	code, body := s.get("/api/views/resume")
	s.Equal(http.StatusOK, code)
	s.Equal("https://drive.google.com/uc?export=download&id=DUMMY_FILE_ID", body["url"])
	s.Equal("Widia_Sari_Resume.pdf", body["filename"])

	s.fake.settings[settings.KeyResumeLink] = "https://drive.google.com/real"
	s.handler.views.Invalidate(context.Background())

	code, body = s.get("/api/views/resume")
	s.Equal(http.StatusOK, code)
	s.Equal("https://drive.google.com/real", body["url"])
}

func (s *HandlerTestSuite) TestResumeDownload_Redirects() {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest("GET", "/resume", nil))
	s.Equal(http.StatusFound, w.Code)
	s.Equal("https://drive.google.com/uc?export=download&id=DUMMY_FILE_ID", w.Header().Get("Location"))
}

func (s *HandlerTestSuite) TestAddPhoto_ByURL() {
	code, body := s.postForm("/admin/photos", url.Values{
		"mode":      {"url"},
		"title":     {"Pantai"},
		"image_url": {"https://x/1.jpg"},
	})
	s.Equal(http.StatusOK, code)
	s.Equal(true, body["success"])
	s.Equal("Berhasil", body["title"])
	s.Len(s.fake.photos, 1)
}

func (s *HandlerTestSuite) TestAddPhoto_DuplicateIsInformational() {
	s.fake.photos = []gallery.Photo{{ID: "p1", Title: "Pantai", ImageURL: "https://x/1.jpg"}}

	code, body := s.postForm("/admin/photos", url.Values{
		"mode":      {"url"},
		"title":     {"Pantai lagi"},
		"image_url": {"https://x/1.jpg"},
	})
	s.Equal(http.StatusOK, code)
	s.Equal(true, body["success"])
	s.Equal("Sudah ada", body["title"])
	s.Equal("Foto ini sudah pernah ditambahkan", body["description"])
	s.Len(s.fake.photos, 1)
}

func (s *HandlerTestSuite) TestAddPhoto_ValidationToast() {
	code, body := s.postForm("/admin/photos", url.Values{
		"mode":      {"url"},
		"title":     {""},
		"image_url": {"https://x/1.jpg"},
	})
	s.Equal(http.StatusBadRequest, code)
	s.Equal(false, body["success"])
	s.Equal("destructive", body["variant"])
	s.Equal("Mohon isi judul dan URL gambar", body["description"])
}

func (s *HandlerTestSuite) TestAddPhoto_ByFile() {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(s.T(), mw.WriteField("mode", "file"))
	require.NoError(s.T(), mw.WriteField("title", "Pantai"))
	fw, err := mw.CreateFormFile("file", "foto.jpg")
	require.NoError(s.T(), err)
	_, err = fw.Write([]byte("fake image bytes"))
	require.NoError(s.T(), err)
	require.NoError(s.T(), mw.Close())

	req := httptest.NewRequest("POST", "/admin/photos", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "Foto berhasil diupload!")
	s.Len(s.fake.objects, 1)
	s.Require().Len(s.fake.photos, 1)
	s.Contains(s.fake.photos[0].ImageURL, "/storage/v1/object/public/gallery/")
	s.Contains(s.fake.photos[0].ImageURL, "_foto.jpg")
}

func (s *HandlerTestSuite) TestAddPhoto_FileMissing() {
	code, body := s.postForm("/admin/photos", url.Values{
		"mode":  {"file"},
		"title": {"Pantai"},
	})
	s.Equal(http.StatusBadRequest, code)
	s.Equal(false, body["success"])
}

func (s *HandlerTestSuite) TestDeletePhoto() {
	s.fake.photos = []gallery.Photo{{ID: "p1", Title: "Pantai", ImageURL: "https://elsewhere/1.jpg"}}

	code, body := s.postForm("/admin/photos/p1/delete", url.Values{
		"image_url": {"https://elsewhere/1.jpg"},
	})
	s.Equal(http.StatusOK, code)
	s.Equal("Dihapus", body["title"])
	s.Empty(s.fake.photos)
}

func (s *HandlerTestSuite) TestDeletePhoto_RemovesStoredObject() {
	imageURL := s.server.URL + "/storage/v1/object/public/gallery/123_foto.jpg"
	s.fake.photos = []gallery.Photo{{ID: "p1", Title: "Pantai", ImageURL: imageURL}}
	s.fake.objects["123_foto.jpg"] = []byte("bytes")

	code, _ := s.postForm("/admin/photos/p1/delete", url.Values{"image_url": {imageURL}})
	s.Equal(http.StatusOK, code)
	s.Empty(s.fake.photos)
	s.Empty(s.fake.objects)
}

func (s *HandlerTestSuite) TestSaveSettings() {
	code, body := s.postForm("/admin/settings", url.Values{
		"about_me":         {"Cerita baru"},
		"resume_link":      {"https://drive.google.com/real"},
		"social_instagram": {"https://instagram.com/baru"},
		"social_whatsapp":  {"https://wa.me/628"},
		"social_tiktok":    {"https://tiktok.com/@baru"},
	})
	s.Equal(http.StatusOK, code)
	s.Equal("Tersimpan!", body["title"])
	s.Equal("Pengaturan berhasil disimpan", body["description"])
	s.Equal("Cerita baru", s.fake.settings[settings.KeyAboutMe])
	s.Equal("https://drive.google.com/real", s.fake.settings[settings.KeyResumeLink])
}

func (s *HandlerTestSuite) TestSaveSettings_BackendDown() {
	s.fake.failAll = true

	code, body := s.postForm("/admin/settings", url.Values{"about_me": {"x"}})
	s.Equal(http.StatusBadGateway, code)
	s.Equal("Gagal simpan", body["title"])
	s.Contains(body["description"], "backend down")
}

func TestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}
