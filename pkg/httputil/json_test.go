package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	legerr "github.com/matzehuels/legsim/pkg/errors"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{legerr.New(legerr.ErrCodeNotFound, "x"), http.StatusNotFound},
		{legerr.New(legerr.ErrCodeInvalidInput, "x"), http.StatusBadRequest},
		{legerr.New(legerr.ErrCodeInvalidSpec, "x"), http.StatusBadRequest},
		{legerr.New(legerr.ErrCodeInvalidFormat, "x"), http.StatusBadRequest},
		{legerr.New(legerr.ErrCodeInvalidPose, "x"), http.StatusUnprocessableEntity},
		{legerr.New(legerr.ErrCodeUnreachable, "x"), http.StatusUnprocessableEntity},
		{legerr.New(legerr.ErrCodeUnsupported, "x"), http.StatusUnsupportedMediaType},
		{legerr.New(legerr.ErrCodeInternal, "x"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := Status(tt.err); got != tt.want {
			t.Errorf("Status(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	status := WriteError(rec, legerr.New(legerr.ErrCodeInvalidSpec, "joint %q: unknown parent", "j"))
	if status != http.StatusBadRequest || rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d/%d", status, rec.Code)
	}
	var body ErrorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Error.Code != "INVALID_SPEC" || body.Error.Message != `joint "j": unknown parent` {
		t.Errorf("body = %+v", body)
	}

	rec = httptest.NewRecorder()
	WriteError(rec, errors.New("disk on fire"))
	if strings.Contains(rec.Body.String(), "disk") {
		t.Errorf("internal error leaked: %s", rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	tests := []struct {
		name string
		body string
		code legerr.Code
		want string
	}{
		{"ok", `{"name":"rear"}`, "", "rear"},
		{"empty", ``, "", ""},
		{"unknown field", `{"nam":"rear"}`, legerr.ErrCodeInvalidFormat, ""},
		{"trailing", `{"name":"a"} {}`, legerr.ErrCodeInvalidFormat, ""},
		{"syntax", `{"name":`, legerr.ErrCodeInvalidFormat, ""},
		{"too big", `{"name":"` + strings.Repeat("x", DefaultBodyLimit) + `"}`, legerr.ErrCodeInvalidInput, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := DecodeJSON(req, &p)
			if tt.code == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if p.Name != tt.want {
					t.Errorf("Name = %q, want %q", p.Name, tt.want)
				}
				return
			}
			if !legerr.Is(err, tt.code) {
				t.Errorf("err = %v, want code %s", err, tt.code)
			}
		})
	}
}
