package alert

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeNotifier struct {
	name string
	err  error
	sent int
}

func (f *fakeNotifier) Name() string { return f.name }

func (f *fakeNotifier) Send(context.Context, *Notification) error {
	f.sent++
	return f.err
}

func TestBroadcastContinuesPastFailures(t *testing.T) {
	bad := &fakeNotifier{name: "bad", err: errors.New("boom")}
	good := &fakeNotifier{name: "good"}
	m := NewManager([]Notifier{bad, good})

	err := m.Broadcast(context.Background(), &Notification{Theme: "pump_hype"})
	if err == nil {
		t.Fatal("expected joined error")
	}
	if !strings.Contains(err.Error(), "bad") {
		t.Errorf("error %q does not name the failing notifier", err)
	}
	if good.sent != 1 {
		t.Errorf("good notifier sent = %d, want 1", good.sent)
	}
}

func TestManagerHasNotifiers(t *testing.T) {
	if NewManager(nil).HasNotifiers() {
		t.Error("empty manager reports notifiers")
	}
	if !NewManager([]Notifier{&fakeNotifier{name: "n"}}).HasNotifiers() {
		t.Error("manager with notifier reports none")
	}
}

func TestWebhookSignsPayload(t *testing.T) {
	secret := "topsecret"
	var gotSig string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Signature-256")
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, secret)
	n := &Notification{Theme: "squeeze_play", PumpProbability: 85}
	if err := wh.Send(context.Background(), n); err != nil {
		t.Fatal(err)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(gotBody)
	want := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	if gotSig != want {
		t.Errorf("signature = %q, want %q", gotSig, want)
	}
}

func TestWebhookErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, "")
	if err := wh.Send(context.Background(), &Notification{}); err == nil {
		t.Fatal("expected error on 502")
	}
}
