package app

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/garyellow/course-advisor/internal/catalog"
	"github.com/garyellow/course-advisor/internal/config"
	"github.com/garyellow/course-advisor/internal/ctxutil"
	"github.com/garyellow/course-advisor/internal/dialogue"
	domerrors "github.com/garyellow/course-advisor/internal/errors"
	"github.com/garyellow/course-advisor/internal/retrieval"
	"github.com/garyellow/course-advisor/internal/webhook"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// maxPageSize caps the page size of /api/sessions/:id/results.
const maxPageSize = 50

type chatRequest struct {
	SessionID string `json:"session_id" binding:"omitempty,max=128"`
	Message   string `json:"message" binding:"max=1000"`
}

type chatResponse struct {
	SessionID string         `json:"session_id"`
	Reply     dialogue.Reply `json:"reply"`
}

type resultsResponse struct {
	Page    int                      `json:"page"`
	Size    int                      `json:"size"`
	Pages   int                      `json:"pages"`
	Total   int                      `json:"total"`
	Results []retrieval.RankedResult `json:"results"`
}

type courseResponse struct {
	Course      catalog.Course `json:"course"`
	Description string         `json:"description"`
}

func errorJSON(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// handleChat runs one conversation turn. A missing session_id starts a new
// conversation and the generated id is returned.
func (a *Application) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if strings.HasPrefix(req.SessionID, webhook.SessionPrefix) {
		errorJSON(c, http.StatusBadRequest, "session id is reserved")
		return
	}

	limitKey := req.SessionID
	if limitKey == "" {
		limitKey = "ip:" + c.ClientIP()
		req.SessionID = uuid.NewString()
	}
	if !a.chatLimiter.Allow(limitKey) {
		retry := a.chatLimiter.RetryAfter(limitKey)
		c.Header("Retry-After", strconv.Itoa(max(1, int(retry.Seconds()+0.5))))
		errorJSON(c, http.StatusTooManyRequests, domerrors.ErrRateLimitExceeded.Error())
		return
	}

	ctx := ctxutil.WithChannel(c.Request.Context(), ctxutil.ChannelHTTP)
	ctx = ctxutil.WithSessionID(ctx, req.SessionID)
	ctx, cancel := context.WithTimeout(ctx, config.ChatTurn)
	defer cancel()

	session := a.sessions.GetOrCreate(req.SessionID)
	reply := a.engine.Handle(ctx, session, req.Message)

	c.JSON(http.StatusOK, chatResponse{SessionID: session.ID, Reply: reply})
}

// session resolves the :id path parameter, rejecting LINE conversations.
func (a *Application) session(c *gin.Context) (*dialogue.Session, bool) {
	id := c.Param("id")
	if strings.HasPrefix(id, webhook.SessionPrefix) {
		errorJSON(c, http.StatusBadRequest, "session id is reserved")
		return nil, false
	}
	s, ok := a.sessions.Get(id)
	if !ok {
		errorJSON(c, http.StatusNotFound, "session not found")
		return nil, false
	}
	return s, true
}

func (a *Application) handleGetSession(c *gin.Context) {
	s, ok := a.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

func (a *Application) handleSessionResults(c *gin.Context) {
	s, ok := a.session(c)
	if !ok {
		return
	}

	page, err := queryInt(c, "page", 1)
	if err != nil || page < 1 {
		errorJSON(c, http.StatusBadRequest, "page must be a positive integer")
		return
	}
	size, err := queryInt(c, "size", dialogue.DefaultPageSize)
	if err != nil || size < 1 || size > maxPageSize {
		errorJSON(c, http.StatusBadRequest, "size must be between 1 and 50")
		return
	}

	snap := s.Snapshot()
	items, pages := snap.Page(page, size)
	c.JSON(http.StatusOK, resultsResponse{
		Page:    page,
		Size:    size,
		Pages:   pages,
		Total:   snap.Total,
		Results: items,
	})
}

func (a *Application) handleDeleteSession(c *gin.Context) {
	id := c.Param("id")
	if strings.HasPrefix(id, webhook.SessionPrefix) {
		errorJSON(c, http.StatusBadRequest, "session id is reserved")
		return
	}
	if !a.sessions.Delete(id) {
		errorJSON(c, http.StatusNotFound, "session not found")
		return
	}
	c.Status(http.StatusNoContent)
}

// handleGetCourse returns one course with its generated overview.
func (a *Application) handleGetCourse(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		errorJSON(c, http.StatusBadRequest, "course id must be a positive integer")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), config.ChatTurn)
	defer cancel()

	course, description, err := a.details.CourseDetail(ctx, id)
	if err != nil {
		if domerrors.IsNotFound(err) {
			errorJSON(c, http.StatusNotFound, "course not found")
			return
		}
		a.logger.WithError(err).WithField("course_id", id).Error("Course lookup failed")
		errorJSON(c, http.StatusInternalServerError, domerrors.GetUserMessage(err))
		return
	}
	c.JSON(http.StatusOK, courseResponse{Course: course, Description: description})
}

func (a *Application) handleCatalogStats(c *gin.Context) {
	stats, err := a.db.Stats(c.Request.Context())
	if err != nil {
		a.logger.WithError(err).Error("Catalog stats failed")
		errorJSON(c, http.StatusInternalServerError, "catalog stats unavailable")
		return
	}

	body := gin.H{
		"courses":      stats.Courses,
		"paid":         stats.Paid,
		"free":         stats.Free,
		"descriptions": stats.Descriptions,
		"by_subject":   stats.BySubject,
		"by_level":     stats.ByLevel,
		"source":       stats.Source,
	}
	if !stats.ImportedAt.IsZero() {
		body["imported_at"] = stats.ImportedAt
	}
	if idx := a.retriever.Index(); idx != nil {
		body["index"] = gin.H{"courses": idx.Len(), "vocabulary": idx.VocabularySize()}
	}
	c.JSON(http.StatusOK, body)
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
