// Package handler holds the gin handlers for the public site and the
// admin panel. Admin mutation outcomes are JSON toasts the panel scripts
// render; public views always recover to defaults.
package handler

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/mergestat/timediff"
	"github.com/samber/lo"

	"github.com/alief-faisal/portofoliowidia/gallery"
	"github.com/alief-faisal/portofoliowidia/settings"
)

// Handler bundles the stores behind the routes.
type Handler struct {
	settings *settings.Store
	gallery  *gallery.Store
	views    *Views
}

// New creates the handler set.
func New(settingsStore *settings.Store, galleryStore *gallery.Store, views *Views) *Handler {
	return &Handler{
		settings: settingsStore,
		gallery:  galleryStore,
		views:    views,
	}
}

// toast is the JSON outcome of an admin mutation, rendered client-side.
func toast(success bool, title, description, variant string) gin.H {
	return gin.H{
		"success":     success,
		"title":       title,
		"description": description,
		"variant":     variant,
	}
}

// adminPhoto is a gallery photo decorated for the admin list.
type adminPhoto struct {
	gallery.Photo
	Uploaded string `json:"uploaded"`
}

// LoginPage renders the login form, or skips straight to the panel when
// the marker is already set.
func (h *Handler) LoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{})
}

// AdminPage renders the editor with the current photos and settings. Load
// failures leave the fields empty; the mutation toasts carry the errors.
func (h *Handler) AdminPage(c *gin.Context) {
	ctx := c.Request.Context()

	photos, err := h.gallery.List(ctx)
	if err != nil {
		log.Error("failed to load gallery for admin", "error", err)
	}
	values, err := h.settings.Load(ctx)
	if err != nil {
		log.Error("failed to load settings for admin", "error", err)
	}

	c.HTML(http.StatusOK, "admin.html", gin.H{
		"Photos": lo.Map(photos, func(p gallery.Photo, _ int) adminPhoto {
			return adminPhoto{Photo: p, Uploaded: timediff.TimeDiff(p.CreatedAt)}
		}),
		"AboutMe":         values[settings.KeyAboutMe],
		"ResumeLink":      values[settings.KeyResumeLink],
		"SocialInstagram": values[settings.KeySocialInstagram],
		"SocialWhatsapp":  values[settings.KeySocialWhatsapp],
		"SocialTiktok":    values[settings.KeySocialTiktok],
		"UserEmail":       c.GetString("user_email"),
	})
}

// AddPhoto handles both add modes: mode=url inserts the pasted URL,
// mode=file uploads the blob through the object store first.
func (h *Handler) AddPhoto(c *gin.Context) {
	ctx := c.Request.Context()
	title := c.PostForm("title")

	var err error
	var successMsg string
	if c.PostForm("mode") == "url" {
		err = h.gallery.AddByURL(ctx, title, c.PostForm("image_url"))
		successMsg = "Foto berhasil ditambahkan!"
	} else {
		file, fileErr := c.FormFile("file")
		if fileErr != nil {
			c.JSON(http.StatusBadRequest, toast(false, "Error", "Mohon isi judul dan pilih file", "destructive"))
			return
		}
		src, openErr := file.Open()
		if openErr != nil {
			c.JSON(http.StatusBadRequest, toast(false, "Upload gagal", openErr.Error(), "destructive"))
			return
		}
		defer src.Close() //nolint:errcheck
		err = h.gallery.AddByFile(ctx, title, file.Filename, src, file.Size, file.Header.Get("Content-Type"))
		successMsg = "Foto berhasil diupload!"
	}

	switch {
	case err == nil:
		h.views.Invalidate(ctx)
		c.JSON(http.StatusOK, toast(true, "Berhasil", successMsg, "default"))
	case errors.Is(err, gallery.ErrDuplicate):
		// Informational: the inputs are cleared and the list refreshed as
		// if the add had succeeded.
		c.JSON(http.StatusOK, toast(true, "Sudah ada", "Foto ini sudah pernah ditambahkan", "default"))
	case errors.Is(err, gallery.ErrValidation):
		c.JSON(http.StatusBadRequest, toast(false, "Error", "Mohon isi judul dan URL gambar", "destructive"))
	case errors.Is(err, gallery.ErrBusy):
		c.JSON(http.StatusTooManyRequests, toast(false, "Sabar", "Upload sebelumnya masih berjalan", "destructive"))
	default:
		log.Error("failed to add photo", "error", err)
		c.JSON(http.StatusBadGateway, toast(false, "Gagal simpan", err.Error(), "destructive"))
	}
}

// DeletePhoto removes a photo row and, for store-hosted images, the
// underlying object.
func (h *Handler) DeletePhoto(c *gin.Context) {
	ctx := c.Request.Context()
	photo := gallery.Photo{
		ID:       c.Param("id"),
		ImageURL: c.PostForm("image_url"),
	}

	if err := h.gallery.Delete(ctx, photo); err != nil {
		log.Error("failed to delete photo", "id", photo.ID, "error", err)
		c.JSON(http.StatusBadGateway, toast(false, "Error", err.Error(), "destructive"))
		return
	}

	h.views.Invalidate(ctx)
	c.JSON(http.StatusOK, toast(true, "Dihapus", "Foto telah dihapus", "default"))
}

// SaveSettings bulk-upserts all five entries, shared by the Settings and
// About tabs.
func (h *Handler) SaveSettings(c *gin.Context) {
	entries := []settings.Entry{
		{Key: settings.KeyResumeLink, Value: c.PostForm("resume_link")},
		{Key: settings.KeySocialInstagram, Value: c.PostForm("social_instagram")},
		{Key: settings.KeySocialWhatsapp, Value: c.PostForm("social_whatsapp")},
		{Key: settings.KeySocialTiktok, Value: c.PostForm("social_tiktok")},
		{Key: settings.KeyAboutMe, Value: c.PostForm("about_me")},
	}

	if err := h.settings.Save(c.Request.Context(), entries); err != nil {
		log.Error("failed to save settings", "error", err)
		c.JSON(http.StatusBadGateway, toast(false, "Gagal simpan", err.Error(), "destructive"))
		return
	}

	c.JSON(http.StatusOK, toast(true, "Tersimpan!", "Pengaturan berhasil disimpan", "default"))
}
