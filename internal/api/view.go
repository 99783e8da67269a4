package api

import (
	"fmt"
	"html/template"
	"time"

	"pdfagent/internal/models"
	"pdfagent/internal/session"
)

type clipView struct {
	URL string `json:"url"`
}

type exchangeView struct {
	ID         string        `json:"id"`
	Text       string        `json:"text"`
	HTML       template.HTML `json:"html"`
	AudioClips []clipView    `json:"audio_clips"`
	CreatedAt  time.Time     `json:"created_at"`
}

type failureView struct {
	Kind    models.FailureKind `json:"kind"`
	Message string             `json:"message"`
	At      time.Time          `json:"at"`
}

// sessionView is the rendered form of a snapshot, shared by the page and
// the JSON API.
type sessionView struct {
	SessionID string                 `json:"session_id"`
	State     models.SubmissionState `json:"state"`
	InFlight  bool                   `json:"in_flight"`
	Failure   *failureView           `json:"failure,omitempty"`
	Pending   *models.PendingUpload  `json:"pending_file"`
	Prompt    string                 `json:"prompt"`
	Exchanges []exchangeView         `json:"exchanges"`
}

var failureMessages = map[models.FailureKind]string{
	models.FailureConfiguration: "The summarization service is not configured.",
	models.FailureTransport:     "The summarization service could not be reached. Please try again.",
	models.FailureDecode:        "The summarization service sent a response that could not be read.",
	models.FailureRequest:       "The file could not be sent.",
}

func failureMessage(kind models.FailureKind) string {
	if msg, ok := failureMessages[kind]; ok {
		return msg
	}
	return "The summary could not be produced."
}

func clipURL(exchangeID string, index int) string {
	return fmt.Sprintf("/clips/%s/%d", exchangeID, index)
}

func (h *Handler) buildView(snap session.Snapshot) sessionView {
	v := sessionView{
		SessionID: snap.SessionID,
		State:     snap.State,
		InFlight:  snap.State == models.StateInFlight,
		Pending:   snap.Pending,
		Prompt:    snap.Prompt,
		Exchanges: make([]exchangeView, 0, len(snap.Exchanges)),
	}
	if snap.Failure != nil {
		v.Failure = &failureView{Kind: snap.Failure.Kind, Message: failureMessage(snap.Failure.Kind), At: snap.Failure.At}
	}
	for _, ex := range snap.Exchanges {
		ev := exchangeView{
			ID:         ex.ID(),
			Text:       ex.Text(),
			HTML:       h.render.HTML(ex.Text()),
			AudioClips: make([]clipView, 0, ex.ClipCount()),
			CreatedAt:  ex.CreatedAt(),
		}
		for i := 0; i < ex.ClipCount(); i++ {
			ev.AudioClips = append(ev.AudioClips, clipView{URL: clipURL(ex.ID(), i)})
		}
		v.Exchanges = append(v.Exchanges, ev)
	}
	return v
}
