package request

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientDo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("userId"); got != "u-1" {
			t.Errorf("userId param = %q, want u-1", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("authorization = %q, want Bearer tok", got)
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	body, err := c.do(context.Background(), "/api/v1/notifications", map[string]string{"userId": "u-1"})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if string(body) != "[]" {
		t.Errorf("body = %q, want []", body)
	}
}

func TestClientDoNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	if _, err := c.do(context.Background(), "/api/v1/notifications", nil); err == nil {
		t.Fatal("expected error for 503 response")
	}
}
