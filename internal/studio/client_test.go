package studio

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(Config{
		BaseURL:     baseURL,
		MaxAttempts: 3,
		RetryDelay:  time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error for empty base URL")
	}
}

func TestGenerateIdeas(t *testing.T) {
	m := NewMockServer()
	defer m.Close()
	c := newTestClient(t, m.URL())

	ideas, err := c.GenerateIdeas(context.Background(), IdeasRequest{Count: 3, Themes: []string{"ocean"}, TargetAge: "kids"})
	if err != nil {
		t.Fatalf("GenerateIdeas() error = %v", err)
	}
	if len(ideas) != 3 {
		t.Fatalf("len(ideas) = %d, want 3", len(ideas))
	}
	if !strings.Contains(ideas[0].Concept, "ocean") {
		t.Errorf("concept = %q, want it to mention the theme", ideas[0].Concept)
	}
}

func TestGenerateIdeasRejectsMalformedShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ideas":[{"concept":"no title"}]}`))
	}))
	defer server.Close()
	c := newTestClient(t, server.URL)

	_, err := c.GenerateIdeas(context.Background(), IdeasRequest{Count: 1})
	var se *Error
	if !errors.As(err, &se) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if !strings.Contains(se.Message, "unexpected response shape") {
		t.Errorf("message = %q", se.Message)
	}
}

func TestGeneratePageIdeasOrder(t *testing.T) {
	m := NewMockServer()
	defer m.Close()
	c := newTestClient(t, m.URL())

	pages, err := c.GeneratePageIdeas(context.Background(), PageIdeasRequest{Concept: "robots", PageCount: 4})
	if err != nil {
		t.Fatalf("GeneratePageIdeas() error = %v", err)
	}
	if len(pages) != 4 {
		t.Fatalf("len(pages) = %d, want 4", len(pages))
	}
	if pages[3] != "Page 4 of robots" {
		t.Errorf("pages[3] = %q", pages[3])
	}
}

func TestDecodeDefensive(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{name: "error payload on 200", status: http.StatusOK, body: `{"error":"quota exceeded"}`, wantMsg: "quota exceeded"},
		{name: "non json body", status: http.StatusOK, body: "<html>oops</html>", wantMsg: "invalid JSON response: <html>oops</html>"},
		{name: "error payload on 400", status: http.StatusBadRequest, body: `{"error":"bad prompt"}`, wantMsg: "bad prompt"},
		{name: "plain text 400", status: http.StatusBadRequest, body: "nope", wantMsg: "nope"},
		{name: "empty 400", status: http.StatusBadRequest, body: "", wantMsg: "empty response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()
			c := newTestClient(t, server.URL)

			_, err := c.ImprovePrompt(context.Background(), ImprovePromptRequest{IdeaText: "x"})
			var se *Error
			if !errors.As(err, &se) {
				t.Fatalf("expected *Error, got %T: %v", err, err)
			}
			if se.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", se.Message, tt.wantMsg)
			}
		})
	}
}

func TestErrorTextTruncated(t *testing.T) {
	long := strings.Repeat("é", 500)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(long))
	}))
	defer server.Close()
	c := newTestClient(t, server.URL)

	_, err := c.ImprovePrompt(context.Background(), ImprovePromptRequest{IdeaText: "x"})
	var se *Error
	if !errors.As(err, &se) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if got := len([]rune(se.Message)); got != maxMessageLen+3 {
		t.Errorf("message rune length = %d, want %d", got, maxMessageLen+3)
	}
}

func TestRetriesServerErrors(t *testing.T) {
	m := NewMockServer()
	defer m.Close()
	m.FailNext(PathImprovePrompt, 2, http.StatusServiceUnavailable)
	c := newTestClient(t, m.URL())

	resp, err := c.ImprovePrompt(context.Background(), ImprovePromptRequest{IdeaText: "a cat"})
	if err != nil {
		t.Fatalf("ImprovePrompt() error = %v", err)
	}
	if !strings.HasSuffix(resp.FinalPrompt, "a cat") {
		t.Errorf("FinalPrompt = %q", resp.FinalPrompt)
	}
	if got := m.Calls(PathImprovePrompt); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	m := NewMockServer()
	defer m.Close()
	m.FailNext(PathImprovePrompt, 1, http.StatusBadRequest)
	c := newTestClient(t, m.URL())

	_, err := c.ImprovePrompt(context.Background(), ImprovePromptRequest{IdeaText: "a cat"})
	var se *Error
	if !errors.As(err, &se) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if se.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", se.StatusCode)
	}
	if got := m.Calls(PathImprovePrompt); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestGenerateImage(t *testing.T) {
	m := NewMockServer()
	defer m.Close()
	c := newTestClient(t, m.URL())

	res, err := c.GenerateImage(context.Background(), ImageRequest{PageIndex: 2, Prompt: "dog"})
	if err != nil {
		t.Fatalf("GenerateImage() error = %v", err)
	}
	if string(res.Image) != "image:2:dog" {
		t.Errorf("image = %q", res.Image)
	}
	reqs := m.ImageRequests()
	if len(reqs) != 1 || reqs[0].Size != "1024x1536" {
		t.Errorf("requests = %+v, want default size", reqs)
	}
}

func TestGenerateImageNotDone(t *testing.T) {
	m := NewMockServer()
	defer m.Close()
	m.FailPage(1, "outline validation failed")
	c := newTestClient(t, m.URL())

	_, err := c.GenerateImage(context.Background(), ImageRequest{PageIndex: 1, Prompt: "dog"})
	if err == nil {
		t.Fatal("expected error for status other than done")
	}
	if !strings.Contains(err.Error(), "outline validation failed") {
		t.Errorf("error = %v, want warning text", err)
	}
}

func TestEnhanceImage(t *testing.T) {
	m := NewMockServer()
	defer m.Close()
	c := newTestClient(t, m.URL())

	tests := []struct {
		name       string
		margin     float64
		wantLetter string
	}{
		{name: "with margin", margin: 5, wantLetter: "letter:src"},
		{name: "without margin", margin: 0, wantLetter: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := c.EnhanceImage(context.Background(), EnhanceRequest{
				ImageBase64:   EncodeImage([]byte("src")),
				MarginPercent: tt.margin,
			})
			if err != nil {
				t.Fatalf("EnhanceImage() error = %v", err)
			}
			if string(res.Enhanced) != "enhanced:src" {
				t.Errorf("enhanced = %q", res.Enhanced)
			}
			if string(res.FinalLetter) != tt.wantLetter {
				t.Errorf("final letter = %q, want %q", res.FinalLetter, tt.wantLetter)
			}
			if !res.WasEnhanced {
				t.Error("WasEnhanced = false, want true")
			}
		})
	}
}

func TestExports(t *testing.T) {
	m := NewMockServer()
	defer m.Close()
	c := newTestClient(t, m.URL())
	pages := []ExportPage{
		{Index: 1, ImageBase64: EncodeImage([]byte("one"))},
		{Index: 2, ImageBase64: EncodeImage([]byte("two"))},
	}

	pdf, err := c.ExportPDF(context.Background(), PDFRequest{Pages: pages, IncludeTitlePage: true})
	if err != nil {
		t.Fatalf("ExportPDF() error = %v", err)
	}
	if pdf.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", pdf.TotalPages)
	}
	if !strings.HasPrefix(string(pdf.PDF), "%PDF-") {
		t.Error("PDF bytes missing header")
	}

	z, err := c.ExportZIP(context.Background(), ZIPRequest{Pages: pages})
	if err != nil {
		t.Fatalf("ExportZIP() error = %v", err)
	}
	if z.ProcessedPages != 2 {
		t.Errorf("ProcessedPages = %d, want 2", z.ProcessedPages)
	}
}

func TestDecodeBase64DataURL(t *testing.T) {
	b, err := decodeBase64("op", "data:image/png;base64,"+EncodeImage([]byte("png")))
	if err != nil {
		t.Fatalf("decodeBase64() error = %v", err)
	}
	if string(b) != "png" {
		t.Errorf("decoded = %q", b)
	}
	if _, err := decodeBase64("op", ""); err == nil {
		t.Error("expected error for empty payload")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Errorf("Truncate short = %q", got)
	}
	if got := Truncate("hello world", 5); got != "hello..." {
		t.Errorf("Truncate long = %q", got)
	}
}
