package flow

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"readiness-backend/internal/analysis"
	"readiness-backend/internal/assessment"
	"readiness-backend/internal/extract"
	"readiness-backend/internal/session"
	"readiness-backend/internal/shared/server/middleware"
	"readiness-backend/internal/shared/server/respond"
)

// maxUploadBody leaves room for multipart framing above the 5MB file limit.
const maxUploadBody = 16 << 20

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches assessment routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/questions", h.questions)
	rg.GET("/assessment", h.state)
	rg.POST("/assessment/start", h.start)
	rg.POST("/assessment/resume", h.resume)
	rg.POST("/assessment/clear", h.clear)
	rg.PUT("/assessment/answers/:id", h.answer)
	rg.POST("/assessment/next", h.next)
	rg.POST("/assessment/back", h.back)
	rg.POST("/assessment/resume-document", h.uploadResume)
}

func (h *Handler) questions(c *gin.Context) {
	respond.OK(c, gin.H{"questions": assessment.Questions(), "categories": assessment.Categories})
}

func (h *Handler) state(c *gin.Context) {
	h.ok(c, http.StatusOK, h.Svc.State())
}

func (h *Handler) start(c *gin.Context) {
	h.ok(c, http.StatusOK, h.Svc.Begin(requestContext(c)))
}

func (h *Handler) resume(c *gin.Context) {
	h.ok(c, http.StatusOK, h.Svc.ResumeSaved(requestContext(c)))
}

func (h *Handler) clear(c *gin.Context) {
	h.ok(c, http.StatusOK, h.Svc.Reset(requestContext(c)))
}

type answerRequest struct {
	Value string `json:"value"`
}

func (h *Handler) answer(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "question id must be an integer", nil)
		return
	}
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	st, err := h.Svc.Answer(requestContext(c), id, req.Value)
	if err != nil {
		writeError(c, err)
		return
	}
	h.ok(c, http.StatusOK, st)
}

func (h *Handler) next(c *gin.Context) {
	st, err := h.Svc.Next(requestContext(c), true)
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusOK
	if st.Analyzing {
		status = http.StatusAccepted
	}
	h.ok(c, status, st)
}

func (h *Handler) back(c *gin.Context) {
	st, err := h.Svc.Back(requestContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	h.ok(c, http.StatusOK, st)
}

func (h *Handler) uploadResume(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBody)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, &extract.ValidationError{Message: extract.MsgTooLarge})
			return
		}
		writeError(c, &extract.ValidationError{Message: extract.MsgNoFile})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	doc, err := h.Svc.UploadResume(requestContext(c), fileHeader.Filename, contentType, fileHeader.Size, file)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set(middleware.SessionIDKey, h.Svc.Session().Snapshot().SessionID)
	respond.OK(c, doc)
}

// ok tags the request log with the session and writes the state.
func (h *Handler) ok(c *gin.Context, status int, st State) {
	c.Set(middleware.SessionIDKey, st.SessionID)
	c.Set(middleware.StepKey, string(st.Step))
	respond.JSON(c, status, st)
}

func writeError(c *gin.Context, err error) {
	var validation *extract.ValidationError
	var parse *extract.ParseError
	switch {
	case errors.As(err, &validation):
		respond.Error(c, http.StatusBadRequest, "validation_error", validation.Message, nil)
	case errors.As(err, &parse):
		respond.Error(c, http.StatusUnprocessableEntity, "parse_error", parse.Error(), nil)
	case errors.Is(err, session.ErrUnknownQuestion):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrStepIncomplete):
		respond.Error(c, http.StatusBadRequest, "step_incomplete", err.Error(), nil)
	case errors.Is(err, session.ErrNotActive):
		respond.Error(c, http.StatusConflict, "not_active", err.Error(), nil)
	case errors.Is(err, session.ErrSubmitInProgress), errors.Is(err, ErrUploadInProgress):
		respond.Error(c, http.StatusConflict, "in_progress", err.Error(), nil)
	case errors.Is(err, session.ErrSessionReset):
		respond.Error(c, http.StatusConflict, "session_reset", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal", "Unexpected server error", nil)
	}
}

func requestContext(c *gin.Context) context.Context {
	return analysis.WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
}
