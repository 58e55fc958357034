package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"callscribe/internal/auth"
	"callscribe/internal/model"
	"callscribe/internal/pipeline"
	"callscribe/internal/repository"
	"callscribe/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BatchProcessor is the pipeline surface the handlers depend on.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, files []pipeline.UploadedFile, meta model.CallMetadata) ([]model.FileResult, error)
}

// Handler carries the wired collaborators for every endpoint.
type Handler struct {
	pipeline BatchProcessor
	store    repository.ConversationRepository
	gateway  *auth.Gateway
	log      *zap.Logger
}

// NewHandler creates the API handler set.
func NewHandler(p BatchProcessor, store repository.ConversationRepository, gateway *auth.Gateway, log *zap.Logger) *Handler {
	return &Handler{pipeline: p, store: store, gateway: gateway, log: log}
}

// RegisterRoutes attaches all endpoints. Everything except /token and
// /health sits behind the bearer middleware.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.healthCheck)
	r.POST("/token", h.issueToken)

	authed := r.Group("/", h.gateway.Middleware())
	{
		authed.POST("/upload-audio", h.uploadAudio)
		authed.GET("/conversations", h.getConversations)
	}
}

// healthCheck returns server health status
func (h *Handler) healthCheck(c *gin.Context) {
	utils.Success(c, gin.H{
		"status":  "ok",
		"service": "callscribe",
	})
}

// issueToken exchanges form credentials for a bearer token.
func (h *Handler) issueToken(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	if username == "" || password == "" {
		utils.Error(c, http.StatusBadRequest, "username and password are required")
		return
	}

	cred, err := h.gateway.Authenticate(c.Request.Context(), username, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.Header("WWW-Authenticate", "Bearer")
			utils.Error(c, http.StatusUnauthorized, err.Error())
			return
		}
		h.log.Error("authentication lookup failed", zap.Error(err))
		utils.Error(c, http.StatusInternalServerError, "internal server error")
		return
	}

	token, err := h.gateway.IssueToken(cred)
	if err != nil {
		h.log.Error("token issuance failed", zap.Error(err))
		utils.Error(c, http.StatusInternalServerError, "internal server error")
		return
	}

	h.log.Info("user authenticated", zap.String("username", cred.Username))
	c.JSON(http.StatusOK, token)
}

// uploadAudio handles a batch upload of 1-10 audio files sharing one
// set of call metadata. The response is a JSON list with exactly one
// entry per file, in input order; batch-level violations come back as
// a single 400 error with no per-file results.
func (h *Handler) uploadAudio(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "failed to parse multipart form: "+err.Error())
		return
	}

	meta, err := parseCallMetadata(c)
	if err != nil {
		utils.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	headers := form.File["files"]
	files := make([]pipeline.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		fh := fh
		files = append(files, pipeline.UploadedFile{
			Filename: fh.Filename,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}

	results, err := h.pipeline.ProcessBatch(c.Request.Context(), files, meta)
	if err != nil {
		var ve *pipeline.ValidationError
		if errors.As(err, &ve) {
			utils.Error(c, http.StatusBadRequest, ve.Error())
			return
		}
		h.log.Error("batch processing failed", zap.Error(err))
		utils.Error(c, http.StatusInternalServerError, "internal server error")
		return
	}

	c.JSON(http.StatusOK, results)
}

// getConversations returns conversations matching the optional filter
// query parameters.
func (h *Handler) getConversations(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		utils.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.store.Query(c.Request.Context(), f)
	if err != nil {
		h.log.Error("failed to retrieve conversations", zap.Error(err))
		utils.Error(c, http.StatusInternalServerError, "internal server error")
		return
	}

	h.log.Info("retrieved conversations", zap.Int("count", len(records)))
	c.JSON(http.StatusOK, gin.H{"conversations": records})
}

// timestampLayouts are the accepted wire formats for timestamp form
// fields and date query parameters.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(field, value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errInvalidField(field, value)
}

func errInvalidField(field, value string) error {
	return &fieldError{field: field, value: value}
}

type fieldError struct {
	field string
	value string
}

func (e *fieldError) Error() string {
	return "invalid value for " + e.field + ": " + e.value
}

func parseCallMetadata(c *gin.Context) (model.CallMetadata, error) {
	var meta model.CallMetadata

	tenantID, err := strconv.Atoi(c.PostForm("tenant_id"))
	if err != nil {
		return meta, errInvalidField("tenant_id", c.PostForm("tenant_id"))
	}
	meta.TenantID = tenantID

	meta.InsentTimestamp, err = parseTimestamp("insent_timestamp", c.PostForm("insent_timestamp"))
	if err != nil {
		return meta, err
	}
	meta.CallStartTimestamp, err = parseTimestamp("call_start_timestamp", c.PostForm("call_start_timestamp"))
	if err != nil {
		return meta, err
	}
	meta.CallEndTimestamp, err = parseTimestamp("call_end_timestamp", c.PostForm("call_end_timestamp"))
	if err != nil {
		return meta, err
	}

	meta.CallerPhoneNumber = c.PostForm("caller_phone_number")
	meta.CalleePhoneNumber = c.PostForm("callee_phone_number")
	meta.RepresentativeID = c.PostForm("representative_id")
	meta.RepresentativeName = c.PostForm("representative_name")
	meta.CallType = c.DefaultPostForm("call_type", "inbound")
	meta.Language = c.PostForm("audio_file_language")

	return meta, nil
}

func parseFilter(c *gin.Context) (repository.Filter, error) {
	var f repository.Filter

	if v := c.Query("tenant_id"); v != "" {
		tenantID, err := strconv.Atoi(v)
		if err != nil {
			return f, errInvalidField("tenant_id", v)
		}
		f.TenantID = &tenantID
	}
	if v := c.Query("conversation_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, errInvalidField("conversation_id", v)
		}
		f.ConversationID = &id
	}
	if v := c.Query("representative_id"); v != "" {
		f.RepresentativeID = &v
	}
	if v := c.Query("start_date"); v != "" {
		t, err := parseTimestamp("start_date", v)
		if err != nil {
			return f, err
		}
		f.StartDate = &t
	}
	if v := c.Query("end_date"); v != "" {
		t, err := parseTimestamp("end_date", v)
		if err != nil {
			return f, err
		}
		f.EndDate = &t
	}

	return f, nil
}
