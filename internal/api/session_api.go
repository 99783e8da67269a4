package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pdfagent/internal/models"
	"pdfagent/internal/session"
	"pdfagent/internal/worker"
)

const (
	sseHeartbeat   = 15 * time.Second
	submissionsMax = 50
)

var errNoUpload = errors.New("file is required")

// acceptUpload stores the multipart "file" field and selects it.
func (h *Handler) acceptUpload(c *gin.Context, s *session.Session) (int, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		if isTooLarge(err) {
			return http.StatusRequestEntityTooLarge, err
		}
		return http.StatusBadRequest, errNoUpload
	}
	if fh.Size > h.maxUpload {
		return http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds %d bytes", h.maxUpload)
	}
	f, err := h.uploads.Save(s.ID(), fh)
	if err != nil {
		return http.StatusInternalServerError, fmt.Errorf("save file: %w", err)
	}
	if err := s.SelectFile(f); err != nil {
		return http.StatusGone, err
	}
	if h.counter != nil {
		h.counter.UploadSelected(f.Size())
	}
	return http.StatusCreated, nil
}

func (h *Handler) getSession(c *gin.Context) {
	s := sessionFromContext(c)
	c.JSON(http.StatusOK, h.buildView(s.Snapshot(true)))
}

func (h *Handler) deleteSession(c *gin.Context) {
	h.sessions.Unmount(sessionFromContext(c).ID())
	h.clearSessionCookie(c)
	c.Status(http.StatusNoContent)
}

func (h *Handler) selectFile(c *gin.Context) {
	s := sessionFromContext(c)
	status, err := h.acceptUpload(c, s)
	if err != nil {
		msg := err.Error()
		if status == http.StatusRequestEntityTooLarge {
			msg = "file too large"
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"pending_file": s.Slot.Pending()})
}

func (h *Handler) removeFile(c *gin.Context) {
	sessionFromContext(c).RemoveFile()
	c.Status(http.StatusNoContent)
}

type promptRequest struct {
	UserPrompt *string `json:"user_prompt"`
}

func (h *Handler) setPrompt(c *gin.Context) {
	var req promptRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserPrompt == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_prompt is required"})
		return
	}
	sessionFromContext(c).SetPrompt(*req.UserPrompt)
	c.Status(http.StatusNoContent)
}

func (h *Handler) submit(c *gin.Context) {
	s := sessionFromContext(c)
	if c.Request.ContentLength > 0 {
		var req promptRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if req.UserPrompt != nil {
			s.SetPrompt(*req.UserPrompt)
		}
	}

	flight, err := s.Submit(c.Request.Context())
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{"submitted": true, "flight_id": flight.ID(), "state": models.StateInFlight})
	case errors.Is(err, session.ErrNoFile):
		c.JSON(http.StatusOK, gin.H{"submitted": false})
	case errors.Is(err, session.ErrInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": "a submission is already in flight"})
	case errors.Is(err, worker.ErrDispatcherBusy):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "server is busy, please retry"})
	case errors.Is(err, session.ErrSessionClosed):
		c.JSON(http.StatusGone, gin.H{"error": "session closed"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// events streams "state" snapshots until the session is no longer in
// flight, then a final "done". With peek=1 the done view leaves a surfaced
// failure for the page to show.
func (h *Handler) events(c *gin.Context) {
	s := sessionFromContext(c)
	consume := c.Query("peek") != "1"
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}
	changes, stop := s.Watch()
	defer stop()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	sendEvent := func(event string, payload interface{}) error {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()
	ctx := c.Request.Context()
	for {
		snap := s.Snapshot(false)
		if snap.State != models.StateInFlight {
			_ = sendEvent("done", h.buildView(s.Snapshot(consume)))
			return
		}
		if err := sendEvent("state", h.buildView(snap)); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case _, open := <-changes:
			if !open {
				_ = sendEvent("done", gin.H{"closed": true})
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(c.Writer, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *Handler) listSubmissions(c *gin.Context) {
	if h.journal == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "submission journal disabled"})
		return
	}
	subs, err := h.journal.ListBySession(c.Request.Context(), sessionFromContext(c).ID(), submissionsMax)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if subs == nil {
		subs = []*models.Submission{}
	}
	c.JSON(http.StatusOK, gin.H{"submissions": subs})
}
