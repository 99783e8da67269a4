package summarizer

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pdfagent/internal/models"
)

type memDoc struct {
	name    string
	body    string
	openErr error
}

func (d memDoc) Name() string { return d.name }

func (d memDoc) Open() (io.ReadCloser, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	return io.NopCloser(strings.NewReader(d.body)), nil
}

func fixedEndpoint(url string) func() string {
	return func() string { return url }
}

func TestSummarizeSendsMultipartAndDecodes(t *testing.T) {
	var gotName, gotBody, gotPrompt string
	var promptPresent bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file field: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotName, gotBody = header.Filename, string(data)
		_, promptPresent = r.MultipartForm.Value["user_prompt"]
		gotPrompt = r.FormValue("user_prompt")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"<b>Summary</b>","waves":["UklGRg==","UklGRh=="]}`))
	}))
	defer srv.Close()

	client := NewClient(fixedEndpoint(srv.URL))
	res, err := client.Summarize(context.Background(), memDoc{name: "report.pdf", body: "%PDF-1.4"}, "")
	if err != nil {
		t.Fatalf("Summarize error: %v", err)
	}
	if gotName != "report.pdf" || gotBody != "%PDF-1.4" {
		t.Fatalf("unexpected upload: name=%q body=%q", gotName, gotBody)
	}
	if !promptPresent || gotPrompt != "" {
		t.Fatalf("expected empty user_prompt field to be sent, present=%v value=%q", promptPresent, gotPrompt)
	}
	if res.Text != "<b>Summary</b>" || len(res.Waves) != 2 || res.Waves[1] != "UklGRh==" {
		t.Fatalf("unexpected result: %#v", res)
	}
}

func TestSummarizeMissingEndpoint(t *testing.T) {
	client := NewClient(fixedEndpoint("  "))
	_, err := client.Summarize(context.Background(), memDoc{name: "a.pdf"}, "x")
	if KindOf(err) != models.FailureConfiguration || !errors.Is(err, ErrEndpointMissing) {
		t.Fatalf("expected configuration failure, got %v", err)
	}
}

func TestSummarizeInvalidEndpoint(t *testing.T) {
	client := NewClient(fixedEndpoint("localhost:8000"))
	_, err := client.Summarize(context.Background(), memDoc{name: "a.pdf"}, "x")
	if KindOf(err) != models.FailureConfiguration {
		t.Fatalf("expected configuration failure, got %v", err)
	}
}

func TestSummarizeNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"text":"ignored"}`))
	}))
	defer srv.Close()

	_, err := NewClient(fixedEndpoint(srv.URL)).Summarize(context.Background(), memDoc{name: "a.pdf", body: "x"}, "")
	if KindOf(err) != models.FailureTransport {
		t.Fatalf("expected transport failure, got %v", err)
	}
}

func TestSummarizeUnreachableService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(fixedEndpoint(url)).Summarize(context.Background(), memDoc{name: "a.pdf", body: "x"}, "")
	if KindOf(err) != models.FailureTransport {
		t.Fatalf("expected transport failure, got %v", err)
	}
}

func TestSummarizeTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewClient(fixedEndpoint(srv.URL)).Summarize(ctx, memDoc{name: "a.pdf", body: "x"}, "")
	if KindOf(err) != models.FailureTransport {
		t.Fatalf("expected transport failure on deadline, got %v", err)
	}
}

func TestSummarizeDocumentUnreadable(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	_, err := NewClient(fixedEndpoint(srv.URL)).Summarize(context.Background(), memDoc{name: "a.pdf", openErr: errors.New("gone")}, "")
	if KindOf(err) != models.FailureRequest {
		t.Fatalf("expected request failure, got %v", err)
	}
	if called {
		t.Fatalf("no request should be sent for an unreadable document")
	}
}

func TestDecode(t *testing.T) {
	cases := []struct {
		name      string
		body      string
		wantErr   bool
		wantText  string
		wantWaves []string
	}{
		{name: "text only", body: `{"text":"hi"}`, wantText: "hi", wantWaves: []string{}},
		{name: "waves not array", body: `{"text":"hi","waves":"abc"}`, wantText: "hi", wantWaves: []string{}},
		{name: "waves null", body: `{"text":"hi","waves":null}`, wantText: "hi", wantWaves: []string{}},
		{name: "mixed waves", body: `{"text":"hi","waves":["a",1,null,"b"]}`, wantText: "hi", wantWaves: []string{"a", "b"}},
		{name: "empty text", body: `{"text":""}`, wantText: "", wantWaves: []string{}},
		{name: "not json", body: `<html>oops</html>`, wantErr: true},
		{name: "empty body", body: ``, wantErr: true},
		{name: "array", body: `["text"]`, wantErr: true},
		{name: "missing text", body: `{"waves":[]}`, wantErr: true},
		{name: "text not string", body: `{"text":42}`, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Decode([]byte(tc.body))
			if tc.wantErr {
				if KindOf(err) != models.FailureDecode || err == nil {
					t.Fatalf("expected decode failure, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode error: %v", err)
			}
			if res.Text != tc.wantText {
				t.Fatalf("text = %q, want %q", res.Text, tc.wantText)
			}
			if len(res.Waves) != len(tc.wantWaves) {
				t.Fatalf("waves = %v, want %v", res.Waves, tc.wantWaves)
			}
			for i := range res.Waves {
				if res.Waves[i] != tc.wantWaves[i] {
					t.Fatalf("waves = %v, want %v", res.Waves, tc.wantWaves)
				}
			}
		})
	}
}
