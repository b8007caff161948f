package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tyemirov/folio/internal/authgate"
	"github.com/tyemirov/folio/internal/store"
)

const storeCallTimeout = 5 * time.Second

// ContentHandlers bundles the dependencies of the content endpoints.
type ContentHandlers struct {
	Content       *store.Content
	Messages      store.MessageStore
	Logger        *zap.Logger
	DefaultLocale string
}

// MountContentRoutes registers the public reads, the public contact form,
// and the admin CRUD surface. Admin routes answer JSON 401/403 rather than
// redirecting; the page-level Route Gate never applies under /api.
func MountContentRoutes(router gin.IRouter, configuration authgate.ServerConfig, verifier *authgate.SessionVerifier, handlers ContentHandlers) {
	if handlers.Logger == nil {
		handlers.Logger = zap.NewNop()
	}
	if handlers.DefaultLocale == "" {
		handlers.DefaultLocale = "en"
	}

	router.GET("/api/profile", handlers.getProfile)
	router.GET("/api/experience", handlers.listExperience)
	router.GET("/api/education", handlers.listEducation)
	router.GET("/api/projects", handlers.listProjects(configuration))
	router.GET("/api/posts", handlers.listPosts(configuration))
	router.GET("/api/posts/:slug", handlers.getPost(configuration))
	router.GET("/api/reviews", handlers.listReviews)
	router.POST("/api/messages", handlers.createMessage)

	admin := router.Group("/api", authgate.RequireSession(configuration, verifier), authgate.RequireAdmin())
	admin.PUT("/profile", handlers.putProfile)
	admin.POST("/experience", handlers.saveExperience)
	admin.PUT("/experience/:id", handlers.saveExperience)
	admin.DELETE("/experience/:id", handlers.deleteByID(func(ctx context.Context, id uint) error {
		return handlers.Content.DeleteExperience(ctx, id)
	}))
	admin.POST("/education", handlers.saveEducation)
	admin.PUT("/education/:id", handlers.saveEducation)
	admin.DELETE("/education/:id", handlers.deleteByID(func(ctx context.Context, id uint) error {
		return handlers.Content.DeleteEducation(ctx, id)
	}))
	admin.POST("/projects", handlers.saveProject)
	admin.PUT("/projects/:id", handlers.saveProject)
	admin.DELETE("/projects/:id", handlers.deleteByID(func(ctx context.Context, id uint) error {
		return handlers.Content.DeleteProject(ctx, id)
	}))
	admin.POST("/posts", handlers.savePost)
	admin.PUT("/posts/:id", handlers.savePost)
	admin.DELETE("/posts/:id", handlers.deleteByID(func(ctx context.Context, id uint) error {
		return handlers.Content.DeletePost(ctx, id)
	}))
	admin.GET("/drafts", handlers.listDrafts)
	admin.POST("/reviews", handlers.saveReview)
	admin.PUT("/reviews/:id", handlers.saveReview)
	admin.DELETE("/reviews/:id", handlers.deleteByID(func(ctx context.Context, id uint) error {
		return handlers.Content.DeleteReview(ctx, id)
	}))
	admin.GET("/messages", handlers.listMessages)
	admin.DELETE("/messages/:id", handlers.deleteByID(func(ctx context.Context, id uint) error {
		return handlers.Messages.Delete(ctx, id)
	}))
}

func (handlers ContentHandlers) getProfile(contextGin *gin.Context) {
	ctx, cancel := context.WithTimeout(contextGin.Request.Context(), storeCallTimeout)
	defer cancel()
	record, err := handlers.Content.Profile(ctx)
	if err != nil {
		handlers.fail(contextGin, "web.profile.load", err)
		return
	}
	contextGin.JSON(http.StatusOK, record)
}

func (handlers ContentHandlers) putProfile(contextGin *gin.Context) {
	var inbound store.ProfileRecord
	if bindErr := contextGin.BindJSON(&inbound); bindErr != nil {
		contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_json"})
		return
	}
	ctx, cancel := context.WithTimeout(contextGin.Request.Context(), storeCallTimeout)
	defer cancel()
	if err := handlers.Content.SaveProfile(ctx, inbound); err != nil {
		handlers.fail(contextGin, "web.profile.save", err)
		return
	}
	contextGin.JSON(http.StatusOK, gin.H{"message": "saved"})
}

func (handlers ContentHandlers) listExperience(contextGin *gin.Context) {
	ctx, cancel := context.WithTimeout(contextGin.Request.Context(), storeCallTimeout)
	defer cancel()
	rows, err := handlers.Content.ListExperience(ctx)
	if err != nil {
		handlers.fail(contextGin, "web.experience.list", err)
		return
	}
	contextGin.JSON(http.StatusOK, rows)
}

func (handlers ContentHandlers) saveExperience(contextGin *gin.Context) {
	var inbound store.ExperienceRecord
	if bindErr := contextGin.BindJSON(&inbound); bindErr != nil {
		contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_json"})
		return
	}
	if inbound.Company == "" || inbound.Position == "" {
		contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "company and position are required"})
		return
	}
	if !applyPathID(contextGin, &inbound.ID) {
		return
	}
	ctx, cancel := context.WithTimeout(contextGin.Request.Context(), storeCallTimeout)
	defer cancel()
	if err := handlers.Content.SaveExperience(ctx, &inbound); err != nil {
		handlers.fail(contextGin, "web.experience.save", err)
		return
	}
	contextGin.JSON(http.StatusOK, inbound)
}

func (handlers ContentHandlers) listEducation(contextGin *gin.Context) {
	ctx, cancel := context.WithTimeout(contextGin.Request.Context(), storeCallTimeout)
	defer cancel()
	rows, err := handlers.Content.ListEducation(ctx)
	if err != nil {
		handlers.fail(contextGin, "web.education.list", err)
		return
	}
	contextGin.JSON(http.StatusOK, rows)
}

func (handlers ContentHandlers) saveEducation(contextGin *gin.Context) {
	var inbound store.EducationRecord
	if bindErr := contextGin.BindJSON(&inbound); bindErr != nil {
		contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_json"})
		return
	}
	if inbound.School == "" {
		contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "school is required"})
		return
	}
	if !applyPathID(contextGin, &inbound.ID) {
		return
	}
	ctx, cancel := context.WithTimeout(contextGin.Request.Context(), storeCallTimeout)
	defer cancel()
	if err := handlers.Content.SaveEducation(ctx, &inbound); err != nil {
		handlers.fail(contextGin, "web.education.save", err)
		return
	}
	contextGin.JSON(http.StatusOK, inbound)
}

func (handlers ContentHandlers) listProjects(configuration authgate.ServerConfig) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		ctx, cancel := context.WithTimeout(contextGin.Request.Context(), storeCallTimeout)
		defer cancel()
		rows, err := handlers.Content.ListProjects(ctx, requestLocale(contextGin, configuration, handlers.DefaultLocale), handlers.DefaultLocale)
		if err != nil {
			handlers.fail(contextGin, "web.projects.list", err)
			return
		}
		contextGin.JSON(http.StatusOK, rows)
	}
}

func (handlers ContentHandlers) saveProject(contextGin *gin.Context) {
	var inbound store.ProjectRecord
	if bindErr := contextGin.BindJSON(&inbound); bindErr != nil {
		contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_json"})
		return
	}
	if inbound.Slug == "" || inbound.Title == "" {
		contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "slug and title are required"})
		return
	}
	if inbound.Locale == "" {
		inbound.Locale = handlers.DefaultLocale
	}
	if !applyPathID(contextGin, &inbound.ID) {
		return
	}
	ctx, cancel := context.WithTimeout(contextGin.Request.Context(), storeCallTimeout)
	defer cancel()
	if err := handlers.Content.SaveProject(ctx, &inbound); err != nil {
		handlers.fail(contextGin, "web.projects.save", err)
		return
	}
	contextGin.JSON(http.StatusOK, inbound)
}

func (handlers ContentHandlers) listPosts(configuration authgate.ServerConfig) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		ctx, cancel := context.WithTimeout(contextGin.Request.Context(), storeCallTimeout)
		defer cancel()
		rows, err := handlers.Content.ListPosts(ctx, requestLocale(contextGin, configuration, handlers.DefaultLocale), handlers.DefaultLocale, false)
		if err != nil {
			handlers.fail(contextGin, "web.posts.list", err)
			return
		}
		contextGin.JSON(http.StatusOK, rows)
	}
}

func (handlers ContentHandlers) listDrafts(contextGin *gin.Context) {
	ctx, cancel := context.WithTimeout(contextGin.Request.Context(), storeCallTimeout)
	defer cancel()
	rows, err := handlers.Content.ListPosts(ctx, handlers.DefaultLocale, handlers.DefaultLocale, true)
	if err != nil {
		handlers.fail(contextGin, "web.posts.drafts", err)
		return
	}
	contextGin.JSON(http.StatusOK, rows)
}

func (handlers ContentHandlers) getPost(configuration authgate.ServerConfig) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		ctx, cancel := context.WithTimeout(contextGin.Request.Context(), storeCallTimeout)
		defer cancel()
		record, err := handlers.Content.PostBySlug(ctx, contextGin.Param("slug"), requestLocale(contextGin, configuration, handlers.DefaultLocale), handlers.DefaultLocale)
		if err != nil {
			handlers.fail(contextGin, "web.posts.get", err)
			return
		}
		contextGin.JSON(http.StatusOK, record)
	}
}

func (handlers ContentHandlers) savePost(contextGin *gin.Context) {
	var inbound store.PostRecord
	if bindErr := contextGin.BindJSON(&inbound); bindErr != nil {
		contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_json"})
		return
	}
	if inbound.Slug == "" || inbound.Title == "" {
		contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "slug and title are required"})
		return
	}
	if inbound.Locale == "" {
		inbound.Locale = handlers.DefaultLocale
	}
	if !applyPathID(contextGin, &inbound.ID) {
		return
	}
	ctx, cancel := context.WithTimeout(contextGin.Request.Context(), storeCallTimeout)
	defer cancel()
	if err := handlers.Content.SavePost(ctx, &inbound); err != nil {
		handlers.fail(contextGin, "web.posts.save", err)
		return
	}
	contextGin.JSON(http.StatusOK, inbound)
}

func (handlers ContentHandlers) listReviews(contextGin *gin.Context) {
	ctx, cancel := context.WithTimeout(contextGin.Request.Context(), storeCallTimeout)
	defer cancel()
	rows, err := handlers.Content.ListReviews(ctx)
	if err != nil {
		handlers.fail(contextGin, "web.reviews.list", err)
		return
	}
	contextGin.JSON(http.StatusOK, rows)
}

func (handlers ContentHandlers) saveReview(contextGin *gin.Context) {
	var inbound store.ReviewRecord
	if bindErr := contextGin.BindJSON(&inbound); bindErr != nil {
		contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_json"})
		return
	}
	if inbound.Author == "" || inbound.Quote == "" {
		contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "author and quote are required"})
		return
	}
	if !applyPathID(contextGin, &inbound.ID) {
		return
	}
	ctx, cancel := context.WithTimeout(contextGin.Request.Context(), storeCallTimeout)
	defer cancel()
	if err := handlers.Content.SaveReview(ctx, &inbound); err != nil {
		handlers.fail(contextGin, "web.reviews.save", err)
		return
	}
	contextGin.JSON(http.StatusOK, inbound)
}

func (handlers ContentHandlers) deleteByID(remove func(ctx context.Context, id uint) error) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		id, ok := pathID(contextGin)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(contextGin.Request.Context(), storeCallTimeout)
		defer cancel()
		if err := remove(ctx, id); err != nil {
			handlers.fail(contextGin, "web.delete", err)
			return
		}
		contextGin.JSON(http.StatusOK, gin.H{"message": "deleted"})
	}
}

func (handlers ContentHandlers) fail(contextGin *gin.Context, code string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		contextGin.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	handlers.Logger.Error("store call failed",
		zap.String("code", code),
		zap.Error(err))
	contextGin.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "temporarily unavailable"})
}

// pathID parses the :id segment; answers 400 itself on garbage.
func pathID(contextGin *gin.Context) (uint, bool) {
	raw := contextGin.Param("id")
	parsed, parseErr := strconv.ParseUint(raw, 10, 32)
	if parseErr != nil || parsed == 0 {
		contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(parsed), true
}

// applyPathID copies the :id segment into the record for PUT routes. POST
// routes carry no :id and leave the record's own id untouched.
func applyPathID(contextGin *gin.Context, target *uint) bool {
	if contextGin.Param("id") == "" {
		return true
	}
	id, ok := pathID(contextGin)
	if !ok {
		return false
	}
	*target = id
	return true
}

// requestLocale resolves the locale for an API read: explicit query
// parameter first, then the locale cookie, then the site default.
func requestLocale(contextGin *gin.Context, configuration authgate.ServerConfig, fallback string) string {
	if queryLocale := contextGin.Query("locale"); queryLocale != "" {
		return queryLocale
	}
	cookieName := configuration.LocaleCookieName
	if cookieName == "" {
		cookieName = "locale"
	}
	if cookie, cookieErr := contextGin.Request.Cookie(cookieName); cookieErr == nil && cookie != nil && cookie.Value != "" {
		return cookie.Value
	}
	return fallback
}
