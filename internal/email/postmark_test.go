package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mfalkner/kinfolk/internal/model"
)

func TestSendAuthCode(t *testing.T) {
	var got postmarkEmail
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Postmark-Server-Token") != "token" {
			t.Errorf("missing server token header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient("token", "noreply@example.com", srv.URL, WithHTTPClient(srv.Client()))
	if err := c.SendAuthCode(context.Background(), "alice@example.com", "123456", "login", ""); err != nil {
		t.Fatalf("send: %v", err)
	}

	if got.To != "alice@example.com" || got.From != "noreply@example.com" {
		t.Errorf("addressing = %+v", got)
	}
	if !strings.Contains(got.TextBody, "123456") {
		t.Errorf("code missing from body: %q", got.TextBody)
	}
}

func TestSendRetriesServerErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient("token", "noreply@example.com", srv.URL, WithHTTPClient(srv.Client()))
	if err := c.SendBirthdayCard(context.Background(), "family@example.com", model.Member{Name: "Alice", Born: "1950-03-12"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestSendClientErrorNotRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClient("token", "noreply@example.com", srv.URL, WithHTTPClient(srv.Client()))
	err := c.SendAuthCode(context.Background(), "bad", "123456", "login", "")
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 4xx)", calls)
	}
}

func TestUnconfiguredClient(t *testing.T) {
	c := NewClient("", "noreply@example.com", "http://unused")
	if c.Configured() {
		t.Error("empty token reported configured")
	}
	if err := c.SendAuthCode(context.Background(), "a@b.c", "123456", "login", ""); err == nil {
		t.Error("send without token succeeded")
	}
}
