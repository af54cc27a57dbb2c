package studio

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// MockServer is an in-process studio service for tests and dry runs.
// Responses are deterministic functions of the request.
type MockServer struct {
	// Latency is added to every request.
	Latency time.Duration

	mu            sync.Mutex
	calls         map[string]int
	inFlight      map[string]int
	maxInFlight   map[string]int
	failures      map[string][]int
	failPages     map[int]string
	imageRequests []ImageRequest

	srv *httptest.Server
}

// NewMockServer starts a mock service. Close it when done.
func NewMockServer() *MockServer {
	m := &MockServer{
		calls:       make(map[string]int),
		inFlight:    make(map[string]int),
		maxInFlight: make(map[string]int),
		failures:    make(map[string][]int),
		failPages:   make(map[int]string),
	}
	mux := http.NewServeMux()
	mux.HandleFunc(PathIdeas, m.wrap(PathIdeas, m.handleIdeas))
	mux.HandleFunc(PathPageIdeas, m.wrap(PathPageIdeas, m.handlePageIdeas))
	mux.HandleFunc(PathImprovePrompt, m.wrap(PathImprovePrompt, m.handleImprovePrompt))
	mux.HandleFunc(PathGenerateImage, m.wrap(PathGenerateImage, m.handleGenerateImage))
	mux.HandleFunc(PathEnhanceImage, m.wrap(PathEnhanceImage, m.handleEnhanceImage))
	mux.HandleFunc(PathExportPDF, m.wrap(PathExportPDF, m.handleExportPDF))
	mux.HandleFunc(PathExportZIP, m.wrap(PathExportZIP, m.handleExportZIP))
	m.srv = httptest.NewServer(mux)
	return m
}

// URL is the base URL to hand to NewClient.
func (m *MockServer) URL() string { return m.srv.URL }

func (m *MockServer) Close() { m.srv.Close() }

// FailNext makes the next n calls to path answer with status.
func (m *MockServer) FailNext(path string, n, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		m.failures[path] = append(m.failures[path], status)
	}
}

// FailPage makes image generation for the page index end without an image,
// reporting warning.
func (m *MockServer) FailPage(index int, warning string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPages[index] = warning
}

// ClearFailures removes every injected failure.
func (m *MockServer) ClearFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = make(map[string][]int)
	m.failPages = make(map[int]string)
}

// Calls returns how many requests reached path.
func (m *MockServer) Calls(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[path]
}

// MaxConcurrent returns the peak number of simultaneous requests to path.
func (m *MockServer) MaxConcurrent(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight[path]
}

// ImageRequests returns the generate-image requests received, in arrival order.
func (m *MockServer) ImageRequests() []ImageRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ImageRequest(nil), m.imageRequests...)
}

func (m *MockServer) wrap(path string, h func(w http.ResponseWriter, r *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeMockJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
			return
		}

		m.mu.Lock()
		m.calls[path]++
		m.inFlight[path]++
		if m.inFlight[path] > m.maxInFlight[path] {
			m.maxInFlight[path] = m.inFlight[path]
		}
		var failStatus int
		if q := m.failures[path]; len(q) > 0 {
			failStatus = q[0]
			m.failures[path] = q[1:]
		}
		m.mu.Unlock()

		defer func() {
			m.mu.Lock()
			m.inFlight[path]--
			m.mu.Unlock()
		}()

		if m.Latency > 0 {
			select {
			case <-time.After(m.Latency):
			case <-r.Context().Done():
				return
			}
		}
		if failStatus != 0 {
			writeMockJSON(w, failStatus, errorBody{Error: fmt.Sprintf("injected failure (%d)", failStatus)})
			return
		}
		h(w, r)
	}
}

func (m *MockServer) handleIdeas(w http.ResponseWriter, r *http.Request) {
	var req IdeasRequest
	if !readMockJSON(w, r, &req) {
		return
	}
	count := req.Count
	if count <= 0 {
		count = 1
	}
	bookType := req.BookType
	if bookType == "" {
		bookType = "scenes"
	}
	resp := IdeasResponse{Ideas: make([]Idea, count)}
	for i := range resp.Ideas {
		theme := "adventure"
		if len(req.Themes) > 0 {
			theme = req.Themes[i%len(req.Themes)]
		}
		resp.Ideas[i] = Idea{
			Title:     fmt.Sprintf("Idea %d: %s", i+1, theme),
			BookType:  bookType,
			Concept:   fmt.Sprintf("A %s coloring book about %s", bookType, theme),
			TargetAge: req.TargetAge,
		}
	}
	writeMockJSON(w, http.StatusOK, resp)
}

func (m *MockServer) handlePageIdeas(w http.ResponseWriter, r *http.Request) {
	var req PageIdeasRequest
	if !readMockJSON(w, r, &req) {
		return
	}
	resp := PageIdeasResponse{Pages: make([]PageIdea, req.PageCount)}
	for i := range resp.Pages {
		resp.Pages[i] = PageIdea{IdeaText: fmt.Sprintf("Page %d of %s", i+1, req.Concept)}
	}
	writeMockJSON(w, http.StatusOK, resp)
}

func (m *MockServer) handleImprovePrompt(w http.ResponseWriter, r *http.Request) {
	var req ImprovePromptRequest
	if !readMockJSON(w, r, &req) {
		return
	}
	writeMockJSON(w, http.StatusOK, ImprovePromptResponse{
		FinalPrompt: "Line art, bold outlines: " + req.IdeaText,
		GeneratedAt: time.Now().UTC(),
	})
}

func (m *MockServer) handleGenerateImage(w http.ResponseWriter, r *http.Request) {
	var req ImageRequest
	if !readMockJSON(w, r, &req) {
		return
	}
	m.mu.Lock()
	m.imageRequests = append(m.imageRequests, req)
	warning, fail := m.failPages[req.PageIndex]
	m.mu.Unlock()

	if fail {
		writeMockJSON(w, http.StatusOK, ImageResponse{Status: "failed", Warning: warning})
		return
	}
	img := fmt.Sprintf("image:%d:%s", req.PageIndex, req.Prompt)
	writeMockJSON(w, http.StatusOK, ImageResponse{
		Status:      ImageStatusDone,
		ImageBase64: base64.StdEncoding.EncodeToString([]byte(img)),
	})
}

func (m *MockServer) handleEnhanceImage(w http.ResponseWriter, r *http.Request) {
	var req EnhanceRequest
	if !readMockJSON(w, r, &req) {
		return
	}
	src, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		writeMockJSON(w, http.StatusBadRequest, errorBody{Error: "invalid image"})
		return
	}
	ok := true
	resp := EnhanceResponse{
		EnhancedBase64: base64.StdEncoding.EncodeToString(append([]byte("enhanced:"), src...)),
		WasEnhanced:    &ok,
	}
	// The letter reframe is only produced when a margin is asked for.
	if req.MarginPercent > 0 {
		resp.FinalLetterBase64 = base64.StdEncoding.EncodeToString(append([]byte("letter:"), src...))
	}
	writeMockJSON(w, http.StatusOK, resp)
}

func (m *MockServer) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	var req PDFRequest
	if !readMockJSON(w, r, &req) {
		return
	}
	total := len(req.Pages)
	if req.InsertBlankPages {
		total *= 2
	}
	for _, inc := range []bool{req.IncludeTitlePage, req.IncludeCopyright, req.IncludeBelongsTo} {
		if inc {
			total++
		}
	}
	if total == 0 {
		writeMockJSON(w, http.StatusBadRequest, errorBody{Error: "no pages to export"})
		return
	}
	writeMockJSON(w, http.StatusOK, PDFResponse{
		PDFBase64:  base64.StdEncoding.EncodeToString(BlankPDF(total)),
		TotalPages: total,
	})
}

func (m *MockServer) handleExportZIP(w http.ResponseWriter, r *http.Request) {
	var req ZIPRequest
	if !readMockJSON(w, r, &req) {
		return
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range req.Pages {
		data, err := base64.StdEncoding.DecodeString(p.ImageBase64)
		if err != nil {
			writeMockJSON(w, http.StatusBadRequest, errorBody{Error: "invalid image"})
			return
		}
		f, err := zw.Create(fmt.Sprintf("page-%03d.png", p.Index))
		if err != nil {
			writeMockJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
			return
		}
		_, _ = f.Write(data)
	}
	if err := zw.Close(); err != nil {
		writeMockJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	writeMockJSON(w, http.StatusOK, ZIPResponse{
		ZipBase64:      base64.StdEncoding.EncodeToString(buf.Bytes()),
		Filename:       "coloring-pages.zip",
		ProcessedPages: len(req.Pages),
	})
}

// BlankPDF renders a minimal letter-size PDF with n empty pages.
func BlankPDF(n int) []byte {
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	kids := make([]string, n)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n))
	for i := 0; i < n; i++ {
		obj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func readMockJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMockJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func writeMockJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
