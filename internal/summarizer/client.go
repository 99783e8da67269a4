package summarizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"pdfagent/internal/models"
)

const (
	fieldFile   = "file"
	fieldPrompt = "user_prompt"
)

// Document is the file sent to the service.
type Document interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// Result is the decoded service response.
type Result struct {
	Text  string
	Waves []string
}

// Client posts documents to the remote summarization service.
type Client struct {
	http     *resty.Client
	endpoint func() string
}

// NewClient builds a client. endpoint is resolved on every call so that a
// missing URL only fails the submission that needs it.
func NewClient(endpoint func() string) *Client {
	return NewClientWithResty(resty.New(), endpoint)
}

func NewClientWithResty(rc *resty.Client, endpoint func() string) *Client {
	if endpoint == nil {
		endpoint = func() string { return "" }
	}
	return &Client{http: rc, endpoint: endpoint}
}

// Summarize sends one multipart request with the document and the prompt.
// The prompt field is always present, empty meaning the service default.
func (c *Client) Summarize(ctx context.Context, doc Document, prompt string) (*Result, error) {
	target := strings.TrimSpace(c.endpoint())
	if target == "" {
		return nil, newError(models.FailureConfiguration, ErrEndpointMissing)
	}
	if u, err := url.ParseRequestURI(target); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, newError(models.FailureConfiguration, fmt.Errorf("invalid summarizer endpoint %q", target))
	}
	if doc == nil {
		return nil, newError(models.FailureRequest, errors.New("document required"))
	}
	body, err := doc.Open()
	if err != nil {
		return nil, newError(models.FailureRequest, fmt.Errorf("open document: %w", err))
	}
	defer body.Close()

	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader(fieldFile, doc.Name(), body).
		SetMultipartFormData(map[string]string{fieldPrompt: prompt}).
		Post(target)
	if err != nil {
		return nil, newError(models.FailureTransport, fmt.Errorf("post document: %w", err))
	}
	if !resp.IsSuccess() {
		return nil, newError(models.FailureTransport, fmt.Errorf("service responded %s", resp.Status()))
	}
	return Decode(resp.Body())
}

// Decode parses a service response. A JSON object with a string "text" is
// required; "waves" is optional and anything but an array reads as no clips.
func Decode(body []byte) (*Result, error) {
	if !gjson.ValidBytes(body) {
		return nil, newError(models.FailureDecode, errors.New("response is not valid JSON"))
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return nil, newError(models.FailureDecode, errors.New("response is not a JSON object"))
	}
	text := doc.Get("text")
	if text.Type != gjson.String {
		return nil, newError(models.FailureDecode, errors.New("response has no text field"))
	}

	res := &Result{Text: text.String(), Waves: []string{}}
	if waves := doc.Get("waves"); waves.IsArray() {
		for _, w := range waves.Array() {
			// skip nulls and other non-string entries
			if w.Type == gjson.String {
				res.Waves = append(res.Waves, w.String())
			}
		}
	}
	return res, nil
}
