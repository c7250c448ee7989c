package handler

import (
	"context"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/alief-faisal/portofoliowidia/cache"
	"github.com/alief-faisal/portofoliowidia/gallery"
	"github.com/alief-faisal/portofoliowidia/settings"
)

// Per-view defaults, shown whenever the backend is unconfigured, a read
// fails, or the key is absent.
const (
	defaultAbout = `Halo! Saya Widia Sari, seorang lulusan Sarjana Komunikasi yang memiliki passion di bidang media, storytelling, dan komunikasi visual. Saya percaya bahwa setiap cerita layak untuk diceritakan dengan cara yang menarik dan bermakna.

Selama perjalanan akademik dan profesional saya, saya telah mengembangkan keterampilan dalam public relations, content creation, social media management, serta fotografi. Saya senang mengeksplorasi berbagai medium untuk menyampaikan pesan yang efektif dan membangun koneksi dengan audiens.

Di waktu luang, saya gemar memotret momen-momen sederhana dalam kehidupan sehari-hari, membaca buku non-fiksi, dan mengikuti perkembangan tren digital. Saya selalu terbuka untuk kolaborasi dan kesempatan baru yang memungkinkan saya untuk terus berkembang.`

	defaultInstagram = "https://instagram.com/widia_sari"
	defaultWhatsapp  = "https://wa.me/6281234567890"
	defaultTiktok    = "https://tiktok.com/@widia_sari"

	fallbackResumeURL = "https://drive.google.com/uc?export=download&id=DUMMY_FILE_ID"

	// ResumeFilename is the suggested filename for the résumé download.
	ResumeFilename = "Widia_Sari_Resume.pdf"
)

const (
	settingsCacheKey = "all"
	galleryCacheKey  = "all"
)

// Views serves the public landing page data: cached reads over the
// settings and gallery stores with per-view defaults.
type Views struct {
	settings *settings.Store
	gallery  *gallery.Store

	settingsCache *cache.Typed[map[string]string]
	galleryCache  *cache.Typed[[]gallery.Photo]
}

// NewViews creates the public views over the given stores and cache.
func NewViews(settingsStore *settings.Store, galleryStore *gallery.Store, backing *cache.Backing) *Views {
	return &Views{
		settings:      settingsStore,
		gallery:       galleryStore,
		settingsCache: cache.NewTyped[map[string]string](backing, "settings:"),
		galleryCache:  cache.NewTyped[[]gallery.Photo](backing, "gallery:"),
	}
}

// settingValue returns the stored value for key, or fallback when the
// read fails or the key is absent. Read failures never surface to the
// public page.
func (v *Views) settingValue(ctx context.Context, key, fallback string) string {
	values, ok := v.settingsCache.Get(ctx, settingsCacheKey)
	if !ok {
		var err error
		values, err = v.settings.Load(ctx)
		if err != nil {
			log.Warn("could not load site settings, using defaults", "error", err)
			return fallback
		}
		if err := v.settingsCache.Set(ctx, settingsCacheKey, values); err != nil {
			log.Warn("failed to cache site settings", "error", err)
		}
	}
	if value := values[key]; value != "" {
		return value
	}
	return fallback
}

func (v *Views) photos(ctx context.Context) []gallery.Photo {
	if photos, ok := v.galleryCache.Get(ctx, galleryCacheKey); ok {
		return photos
	}
	photos, err := v.gallery.List(ctx)
	if err != nil {
		log.Warn("could not load gallery, showing empty list", "error", err)
		return []gallery.Photo{}
	}
	if err := v.galleryCache.Set(ctx, galleryCacheKey, photos); err != nil {
		log.Warn("failed to cache gallery", "error", err)
	}
	return photos
}

// Invalidate drops the cached reads. Wired to the settings-updated signal
// and to gallery mutations.
func (v *Views) Invalidate(ctx context.Context) {
	if err := v.settingsCache.Delete(ctx, settingsCacheKey); err != nil {
		log.Warn("failed to invalidate settings cache", "error", err)
	}
	if err := v.galleryCache.Delete(ctx, galleryCacheKey); err != nil {
		log.Warn("failed to invalidate gallery cache", "error", err)
	}
}

// Refresh re-reads settings and gallery into the cache. The scheduler
// runs it periodically so the landing page stays warm.
func (v *Views) Refresh(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		values, err := v.settings.Load(ctx)
		if err != nil {
			return err
		}
		return v.settingsCache.Set(ctx, settingsCacheKey, values)
	})
	g.Go(func() error {
		photos, err := v.gallery.List(ctx)
		if err != nil {
			return err
		}
		return v.galleryCache.Set(ctx, galleryCacheKey, photos)
	})
	return g.Wait()
}

// Home renders the landing page shell; the page scripts fetch the view
// data below.
func (h *Handler) Home(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{})
}

// AboutView returns the About Me text.
func (h *Handler) AboutView(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"about": h.views.settingValue(c.Request.Context(), settings.KeyAboutMe, defaultAbout),
	})
}

// SocialView returns the social profile links.
func (h *Handler) SocialView(c *gin.Context) {
	ctx := c.Request.Context()
	c.JSON(http.StatusOK, gin.H{
		"instagram": h.views.settingValue(ctx, settings.KeySocialInstagram, defaultInstagram),
		"whatsapp":  h.views.settingValue(ctx, settings.KeySocialWhatsapp, defaultWhatsapp),
		"tiktok":    h.views.settingValue(ctx, settings.KeySocialTiktok, defaultTiktok),
	})
}

// ResumeView returns the résumé link and suggested filename.
func (h *Handler) ResumeView(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"url":      h.views.settingValue(c.Request.Context(), settings.KeyResumeLink, fallbackResumeURL),
		"filename": ResumeFilename,
	})
}

// GalleryView returns the photo list, newest first.
func (h *Handler) GalleryView(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"photos": h.views.photos(c.Request.Context()),
	})
}

// ResumeDownload redirects to the stored résumé link, falling back to the
// hard-coded URL when the setting is empty.
func (h *Handler) ResumeDownload(c *gin.Context) {
	c.Redirect(http.StatusFound, h.views.settingValue(c.Request.Context(), settings.KeyResumeLink, fallbackResumeURL))
}
