// Package reader serves the public pages: the latest entry, the list,
// single entries, and the dwell stream that counts engaged reads.
package reader

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"quiettime/auth"
	"quiettime/cache"
	"quiettime/clock"
	"quiettime/content"
	"quiettime/engagement"
	"quiettime/logging"
	"quiettime/models"
	"quiettime/selection"
	"quiettime/store"
)

// SiteInfo is the site-wide copy shown around entries.
type SiteInfo struct {
	Title string
	// Intro is markdown.
	Intro string
}

type ReaderModule struct {
	entries store.Gateway
	tracker *engagement.Tracker
	pages   *cache.PageCache
	clock   clock.Clock
	logger  logging.Logger
	site    SiteInfo
}

func NewReaderModule(entries store.Gateway, tracker *engagement.Tracker, pages *cache.PageCache, clk clock.Clock, logger logging.Logger, site SiteInfo) *ReaderModule {
	return &ReaderModule{
		entries: entries,
		tracker: tracker,
		pages:   pages,
		clock:   clk,
		logger:  logger.With("module", "reader"),
		site:    site,
	}
}

func (r *ReaderModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/", r.latest)
	router.GET("/list", r.list)
	router.GET("/dwell/:id", r.dwell)

	detail := []gin.HandlerFunc{r.detail}
	if r.pages != nil {
		detail = append([]gin.HandlerFunc{r.pages.Middleware(isAuthor)}, detail...)
	}
	router.GET("/meditation/:id", detail...)
}

func isAuthor(c *gin.Context) bool {
	return auth.FromContext(c).Authorized
}

// entryView is what the latest and detail templates render.
func (r *ReaderModule) entryView(c *gin.Context, entry *models.Entry) gin.H {
	return gin.H{
		"site":        r.site,
		"access":      auth.FromContext(c),
		"entry":       entry,
		"displayDate": entry.DisplayDate(),
		"fontSize":    entry.BodyFontSize(),
		"contentHTML": template.HTML(content.RenderableContent(entry)),
	}
}

func (r *ReaderModule) latest(c *gin.Context) {
	ctx := c.Request.Context()

	entry, err := selection.Latest(ctx, r.entries, r.clock.Now())
	if err != nil {
		r.logger.Error(ctx, "loading latest entry failed", "err", err)
		entry = nil
	}

	if entry == nil {
		c.HTML(http.StatusOK, "reader_latest.html", gin.H{
			"site":      r.site,
			"access":    auth.FromContext(c),
			"introHTML": template.HTML(content.RenderMarkdown(r.site.Intro)),
		})
		return
	}

	c.HTML(http.StatusOK, "reader_latest.html", r.entryView(c, entry))
}

func (r *ReaderModule) list(c *gin.Context) {
	ctx := c.Request.Context()

	entries, err := r.entries.ListAll(ctx)
	if err != nil {
		r.logger.Error(ctx, "loading entry list failed", "err", err)
		c.HTML(http.StatusOK, "reader_list.html", gin.H{
			"site":    r.site,
			"access":  auth.FromContext(c),
			"entries": []models.Entry{},
			"error":   "Could not load the list. Please reload the page.",
		})
		return
	}

	c.HTML(http.StatusOK, "reader_list.html", gin.H{
		"site":    r.site,
		"access":  auth.FromContext(c),
		"entries": entries,
	})
}

func (r *ReaderModule) detail(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	entry, err := r.entries.GetByID(ctx, id)
	if err != nil {
		r.logger.Error(ctx, "loading entry failed", "entry_id", id, "err", err)
	}
	if entry == nil {
		c.HTML(http.StatusNotFound, "reader_not_found.html", gin.H{
			"site": r.site,
		})
		return
	}

	c.HTML(http.StatusOK, "reader_detail.html", r.entryView(c, entry))
}

// dwell holds a server-sent-events stream open while the reader stays
// on an entry page. The stream's lifetime is the view activation: the
// tracker counts the read after the dwell threshold, and the stream
// closing earlier cancels it. After counting, the stream stays open so
// the browser does not reconnect and start a second activation.
func (r *ReaderModule) dwell(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	entry, err := r.entries.GetByID(ctx, id)
	if err != nil {
		r.logger.Error(ctx, "loading entry for dwell failed", "entry_id", id, "err", err)
	}
	if entry == nil {
		c.Status(http.StatusNotFound)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("start", id)
	c.Writer.Flush()

	if !r.tracker.Track(ctx, id) {
		return
	}

	c.SSEvent("counted", id)
	c.Writer.Flush()
	<-ctx.Done()
}
