package admin

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"quiettime/analytics"
	"quiettime/auth"
	"quiettime/cache"
	"quiettime/clock"
	"quiettime/content"
	"quiettime/logging"
	"quiettime/models"
	"quiettime/selection"
	"quiettime/store"
)

const (
	dashboardDays    = 14
	dashboardTopDays = 30
	dashboardTopN    = 10
)

// Providers are the configured sign-in methods. Either may be nil.
type Providers struct {
	Google auth.Provider
	Local  *auth.LocalProvider
}

type AdminModule struct {
	entries   store.Gateway
	gate      *auth.Gate
	providers Providers
	analytics *analytics.AnalyticsModule
	pages     *cache.PageCache
	clock     clock.Clock
	logger    logging.Logger
}

func NewAdminModule(entries store.Gateway, gate *auth.Gate, providers Providers, analyticsModule *analytics.AnalyticsModule, pages *cache.PageCache, clk clock.Clock, logger logging.Logger) *AdminModule {
	return &AdminModule{
		entries:   entries,
		gate:      gate,
		providers: providers,
		analytics: analyticsModule,
		pages:     pages,
		clock:     clk,
		logger:    logger.With("module", "admin"),
	}
}

func (a *AdminModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/login", a.loginPage)
	router.POST("/login", a.loginPost)
	router.GET("/login/google", a.googleLogin)
	router.GET("/auth/google/callback", a.googleCallback)
	router.GET("/logout", a.logout)

	authorGroup := router.Group("/")
	authorGroup.Use(a.gate.RequireAuthor())
	{
		authorGroup.GET("/admin", a.dashboard)
		authorGroup.GET("/write", a.writePage)
		authorGroup.POST("/write", a.writePost)
		authorGroup.DELETE("/admin/entry/:id", a.deleteEntry)
		authorGroup.POST("/admin/cache/clear", a.clearCache)
	}
}

func (a *AdminModule) loginData(c *gin.Context) gin.H {
	access := auth.FromContext(c)
	data := gin.H{
		"googleEnabled": a.providers.Google != nil,
		"localEnabled":  a.providers.Local.Enabled(),
		"signedInAs":    access.Email(),
	}
	if notice, blocked := auth.BlockedEnvironment(c.Request.UserAgent()); blocked {
		data["notice"] = notice
	}
	return data
}

func (a *AdminModule) renderLogin(c *gin.Context, status int, errMsg string) {
	data := a.loginData(c)
	if errMsg != "" {
		data["error"] = errMsg
	}
	c.HTML(status, "admin_login.html", data)
}

func (a *AdminModule) loginPage(c *gin.Context) {
	if auth.FromContext(c).Authorized {
		c.Redirect(http.StatusFound, "/admin")
		return
	}

	c.HTML(http.StatusOK, "admin_login.html", a.loginData(c))
}

// blocked answers with the in-app browser notice and reports whether it
// did. Sign-in never reaches a provider from such a browser.
func (a *AdminModule) blocked(c *gin.Context) bool {
	if _, blocked := auth.BlockedEnvironment(c.Request.UserAgent()); !blocked {
		return false
	}
	c.HTML(http.StatusForbidden, "admin_login.html", a.loginData(c))
	return true
}

func (a *AdminModule) loginPost(c *gin.Context) {
	if a.blocked(c) {
		return
	}
	if !a.providers.Local.Enabled() {
		a.renderLogin(c, http.StatusNotFound, "Password sign-in is not enabled.")
		return
	}

	email := c.PostForm("email")
	password := c.PostForm("password")

	identity, err := a.providers.Local.Authenticate(email, password)
	if err != nil {
		data := a.loginData(c)
		data["error"] = "Incorrect email or password."
		data["email"] = email
		c.HTML(http.StatusUnauthorized, "admin_login.html", data)
		return
	}

	a.signIn(c, identity)
}

func (a *AdminModule) googleLogin(c *gin.Context) {
	if a.blocked(c) {
		return
	}
	if a.providers.Google == nil {
		a.renderLogin(c, http.StatusNotFound, "Google sign-in is not configured.")
		return
	}

	state, err := auth.NewState()
	if err != nil {
		a.logger.Error(c.Request.Context(), "generating oauth state failed", "err", err)
		a.renderLogin(c, http.StatusInternalServerError, "Could not start sign-in. Please try again.")
		return
	}
	if err := a.gate.Sessions().SaveState(c, state); err != nil {
		a.logger.Error(c.Request.Context(), "saving oauth state failed", "err", err)
		a.renderLogin(c, http.StatusInternalServerError, "Could not start sign-in. Please try again.")
		return
	}

	c.Redirect(http.StatusFound, a.providers.Google.AuthCodeURL(state))
}

func (a *AdminModule) googleCallback(c *gin.Context) {
	ctx := c.Request.Context()
	if a.providers.Google == nil {
		a.renderLogin(c, http.StatusNotFound, "Google sign-in is not configured.")
		return
	}

	expected := a.gate.Sessions().TakeState(c)
	if expected == "" || c.Query("state") != expected {
		a.renderLogin(c, http.StatusBadRequest, "Sign-in expired. Please try again.")
		return
	}
	if errParam := c.Query("error"); errParam != "" {
		a.renderLogin(c, http.StatusUnauthorized, "Sign-in was cancelled.")
		return
	}

	identity, err := a.providers.Google.Exchange(ctx, c.Query("code"))
	if err != nil {
		a.logger.Warn(ctx, "google sign-in failed", "err", err)
		msg := "Google sign-in failed. Please try again."
		if errors.Is(err, auth.ErrUnverifiedEmail) {
			msg = "This Google account has no verified email."
		}
		a.renderLogin(c, http.StatusUnauthorized, msg)
		return
	}

	a.signIn(c, identity)
}

func (a *AdminModule) signIn(c *gin.Context, identity *auth.Identity) {
	ctx := c.Request.Context()
	if err := a.gate.Sessions().SignIn(c, identity); err != nil {
		a.logger.Error(ctx, "saving session failed", "err", err)
		a.renderLogin(c, http.StatusInternalServerError, "Could not sign in. Please try again.")
		return
	}

	if !a.gate.Authorized(identity) {
		a.logger.Info(ctx, "sign-in by unlisted account", "email", identity.Email)
	}
	c.Redirect(http.StatusFound, "/admin")
}

func (a *AdminModule) logout(c *gin.Context) {
	if err := a.gate.Sessions().SignOut(c); err != nil {
		a.logger.Error(c.Request.Context(), "clearing session failed", "err", err)
	}

	c.Redirect(http.StatusFound, "/")
}

type topEntry struct {
	EntryID string
	Title   string
	Count   int64
}

func (a *AdminModule) dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	access := auth.FromContext(c)

	if a.analytics == nil {
		c.HTML(http.StatusOK, "admin_dashboard.html", gin.H{
			"email":            access.Email(),
			"analyticsEnabled": false,
		})
		return
	}

	readsByDay := a.analytics.GetReadsByDay(dashboardDays)

	var total int64
	for _, day := range readsByDay {
		total += day.Count
	}

	var top []topEntry
	for _, row := range a.analytics.GetTopEntries(dashboardTopDays, dashboardTopN) {
		title := "(deleted entry)"
		entry, err := a.entries.GetByID(ctx, row.EntryID)
		if err != nil {
			a.logger.Error(ctx, "loading entry title failed", "entry_id", row.EntryID, "err", err)
		}
		if entry != nil {
			title = entry.Title
		}
		top = append(top, topEntry{EntryID: row.EntryID, Title: title, Count: row.Count})
	}

	c.HTML(http.StatusOK, "admin_dashboard.html", gin.H{
		"email":            access.Email(),
		"analyticsEnabled": true,
		"readsByDay":       readsByDay,
		"totalReads":       total,
		"topEntries":       top,
		"days":             dashboardDays,
	})
}

func formData(id string, fields models.EntryFields) gin.H {
	return gin.H{
		"id":          id,
		"editing":     id != "",
		"serviceDate": fields.ServiceDate,
		"title":       fields.Title,
		"verse":       fields.Verse,
		"content":     fields.Content,
		"contentHTML": template.HTML(fields.Content),
	}
}

func (a *AdminModule) writePage(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Query("id")

	if id == "" {
		c.HTML(http.StatusOK, "admin_write.html", formData("", models.EntryFields{
			ServiceDate: selection.Today(a.clock.Now()),
		}))
		return
	}

	entry, err := a.entries.GetByID(ctx, id)
	if err != nil {
		a.logger.Error(ctx, "loading entry for edit failed", "entry_id", id, "err", err)
		c.HTML(http.StatusInternalServerError, "admin_error.html", gin.H{
			"error": "Could not load the entry.",
		})
		return
	}
	if entry == nil {
		c.HTML(http.StatusNotFound, "admin_error.html", gin.H{
			"error": "Entry not found.",
		})
		return
	}

	c.HTML(http.StatusOK, "admin_write.html", formData(entry.ID, models.EntryFields{
		ServiceDate: entry.ServiceDate,
		Title:       entry.Title,
		Verse:       entry.Verse,
		Content:     content.RenderableHTML(entry.Content),
	}))
}

func (a *AdminModule) writePost(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.PostForm("id")

	fields := models.EntryFields{
		ServiceDate: c.PostForm("serviceDate"),
		Title:       c.PostForm("title"),
		Verse:       c.PostForm("verse"),
		Content:     c.PostForm("content"),
	}.Normalize()

	data := formData(id, fields)

	if err := fields.Validate(content.IsEditorEmpty); err != nil {
		data["error"] = "Date, title, verse and content are all required."
		c.HTML(http.StatusBadRequest, "admin_write.html", data)
		return
	}

	if id == "" {
		email := auth.FromContext(c).Email()
		newID, err := a.entries.CreateEntry(ctx, fields, &email)
		if err != nil {
			a.logger.Error(ctx, "creating entry failed", "err", err)
			data["error"] = "Could not save the entry. Please try again."
			c.HTML(http.StatusInternalServerError, "admin_write.html", data)
			return
		}
		a.logger.Info(ctx, "entry created", "entry_id", newID, "author", email)
		c.Redirect(http.StatusFound, "/meditation/"+newID)
		return
	}

	if err := a.entries.UpdateEntry(ctx, id, fields); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			data["error"] = "This entry no longer exists."
			c.HTML(http.StatusNotFound, "admin_write.html", data)
			return
		}
		a.logger.Error(ctx, "updating entry failed", "entry_id", id, "err", err)
		data["error"] = "Could not save the entry. Please try again."
		c.HTML(http.StatusInternalServerError, "admin_write.html", data)
		return
	}

	a.clearPage(c, id)
	a.logger.Info(ctx, "entry updated", "entry_id", id)
	c.Redirect(http.StatusFound, "/meditation/"+id)
}

func (a *AdminModule) deleteEntry(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if err := a.entries.DeleteEntry(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Entry not found"})
			return
		}
		a.logger.Error(ctx, "deleting entry failed", "entry_id", id, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not delete the entry"})
		return
	}

	a.clearPage(c, id)
	a.logger.Info(ctx, "entry deleted", "entry_id", id)
	c.JSON(http.StatusOK, gin.H{"message": "Entry deleted"})
}

func (a *AdminModule) clearPage(c *gin.Context, id string) {
	if a.pages == nil {
		return
	}
	if err := a.pages.ClearCache(id); err != nil {
		a.logger.Warn(c.Request.Context(), "clearing cached page failed", "entry_id", id, "err", err)
	}
}

// clearCache drops every cached entry page.
func (a *AdminModule) clearCache(c *gin.Context) {
	if a.pages == nil {
		c.JSON(http.StatusOK, gin.H{"message": "Page cache is disabled"})
		return
	}
	if err := a.pages.ClearAll(); err != nil {
		a.logger.Error(c.Request.Context(), "clearing page cache failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not clear the cache"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Cache cleared"})
}
