package site

import (
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"quiettime/logging"
	"quiettime/store"
)

type SiteModule struct {
	entries store.Gateway
	domain  string
	logger  logging.Logger
}

func NewSiteModule(entries store.Gateway, domain string, logger logging.Logger) *SiteModule {
	return &SiteModule{
		entries: entries,
		domain:  strings.TrimSuffix(domain, "/"),
		logger:  logger.With("module", "site"),
	}
}

func (s *SiteModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/sitemap.xml", s.sitemap)
}

func writeURL(b *strings.Builder, loc, lastmod, changefreq, priority string) {
	b.WriteString("  <url>\n")
	b.WriteString("    <loc>" + html.EscapeString(loc) + "</loc>\n")
	if lastmod != "" {
		b.WriteString("    <lastmod>" + lastmod + "</lastmod>\n")
	}
	b.WriteString("    <changefreq>" + changefreq + "</changefreq>\n")
	b.WriteString("    <priority>" + priority + "</priority>\n")
	b.WriteString("  </url>\n")
}

func (s *SiteModule) sitemap(c *gin.Context) {
	ctx := c.Request.Context()

	entries, err := s.entries.ListAll(ctx)
	if err != nil {
		s.logger.Error(ctx, "loading entries for sitemap failed", "err", err)
		c.String(http.StatusInternalServerError, "sitemap unavailable")
		return
	}

	var sitemap strings.Builder
	sitemap.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	sitemap.WriteString("\n")
	sitemap.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	sitemap.WriteString("\n")

	writeURL(&sitemap, s.domain+"/", "", "daily", "1.0")
	writeURL(&sitemap, s.domain+"/list", "", "daily", "0.8")

	for _, entry := range entries {
		modified := entry.CreatedAt
		if entry.UpdatedAt != nil {
			modified = *entry.UpdatedAt
		}
		lastmod := ""
		if !modified.IsZero() {
			lastmod = modified.UTC().Format(time.RFC3339)
		}
		writeURL(&sitemap, s.domain+"/meditation/"+url.PathEscape(entry.ID), lastmod, "monthly", "0.6")
	}

	sitemap.WriteString("</urlset>\n")

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.String(http.StatusOK, sitemap.String())
}
