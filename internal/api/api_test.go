package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

type pingEndpoint struct {
	path string
	init bool
}

func (e *pingEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", e.path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}
}

func (e *pingEndpoint) RequiresInit() bool { return e.init }

func (e *pingEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{Use: strings.TrimPrefix(e.path, "/")}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(&pingEndpoint{path: "/open"})
	r.Register(&pingEndpoint{path: "/guarded", init: true})

	mux := http.NewServeMux()
	r.RegisterRoutes(mux, func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})

	tests := []struct {
		path string
		want int
	}{
		{"/open", http.StatusOK},
		{"/guarded", http.StatusServiceUnavailable},
		{"/missing", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.want)
			}
		})
	}

	t.Run("commands", func(t *testing.T) {
		cmd := r.BuildCommands("ping", "Ping commands", func() string { return "" })
		if cmd.Use != "ping" {
			t.Errorf("Use = %q, want ping", cmd.Use)
		}
		if got := len(cmd.Commands()); got != 2 {
			t.Errorf("got %d subcommands, want 2", got)
		}
	})
}

func TestClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte(`{"status":"ok"}`))
		case "/raw":
			w.Write([]byte{0x89, 'P', 'N', 'G'})
		default:
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"error":"busy"}`))
		}
	}))
	defer srv.Close()
	c := NewClient(srv.URL)

	var resp struct {
		Status string `json:"status"`
	}
	if err := c.Get(context.Background(), "/ok", &resp); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("Status = %q, want ok", resp.Status)
	}

	raw, err := c.GetRaw(context.Background(), "/raw")
	if err != nil {
		t.Fatalf("GetRaw() error = %v", err)
	}
	if !bytes.HasPrefix(raw, []byte{0x89, 'P'}) {
		t.Errorf("GetRaw() = %v", raw)
	}

	err = c.Post(context.Background(), "/busy", map[string]string{"a": "b"}, nil)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("Post() error = %v, want *StatusError", err)
	}
	if se.StatusCode != http.StatusConflict || se.Message != "busy" {
		t.Errorf("StatusError = %+v", se)
	}
}

func TestOutputTo(t *testing.T) {
	data := map[string]int{"pages": 3}

	var buf bytes.Buffer
	if err := OutputTo(&buf, OutputFormatJSON, data); err != nil {
		t.Fatalf("OutputTo(json) error = %v", err)
	}
	if !strings.Contains(buf.String(), `"pages": 3`) {
		t.Errorf("json output = %q", buf.String())
	}

	buf.Reset()
	if err := OutputTo(&buf, OutputFormatYAML, data); err != nil {
		t.Fatalf("OutputTo(yaml) error = %v", err)
	}
	if strings.TrimSpace(buf.String()) != "pages: 3" {
		t.Errorf("yaml output = %q", buf.String())
	}
}
