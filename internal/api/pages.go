package api

import (
	"encoding/base64"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pdfagent/internal/session"
)

type pageData struct {
	sessionView
	MaxUpload int64
}

func (h *Handler) index(c *gin.Context) {
	s := sessionFromContext(c)
	view := h.buildView(s.Snapshot(true))
	c.Header("Cache-Control", "no-store")
	c.HTML(http.StatusOK, "index.html", pageData{sessionView: view, MaxUpload: h.maxUpload})
}

func (h *Handler) redirectHome(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) selectFilePage(c *gin.Context) {
	s := sessionFromContext(c)
	status, err := h.acceptUpload(c, s)
	if err != nil {
		if status == http.StatusRequestEntityTooLarge {
			c.String(status, "file too large")
			return
		}
		// nothing selected; the page simply re-renders
		debugLog("[api] page upload for %s ignored: %v", s.ID(), err)
	}
	h.redirectHome(c)
}

func (h *Handler) removeFilePage(c *gin.Context) {
	sessionFromContext(c).RemoveFile()
	h.redirectHome(c)
}

func (h *Handler) setPromptPage(c *gin.Context) {
	sessionFromContext(c).SetPrompt(c.PostForm("user_prompt"))
	h.redirectHome(c)
}

func (h *Handler) submitPage(c *gin.Context) {
	s := sessionFromContext(c)
	if prompt, ok := c.GetPostForm("user_prompt"); ok {
		s.SetPrompt(prompt)
	}
	if _, err := s.Submit(c.Request.Context()); err != nil && !errors.Is(err, session.ErrNoFile) {
		log.Printf("[api] submit for %s: %v", s.ID(), err)
	}
	h.redirectHome(c)
}

func (h *Handler) resetSession(c *gin.Context) {
	h.sessions.Unmount(sessionFromContext(c).ID())
	fresh := h.sessions.Mount()
	h.setSessionCookie(c, fresh.ID())
	h.redirectHome(c)
}

func (h *Handler) clip(c *gin.Context) {
	s := sessionFromContext(c)
	ex, ok := s.Log.Find(c.Param("exchange"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "exchange not found"})
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid clip index"})
		return
	}
	payload, ok := ex.Clip(index)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "clip not found"})
		return
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "clip is not valid base64"})
		return
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, "audio/wav", data)
}
