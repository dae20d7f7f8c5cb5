package crm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/whitespainting/sally/internal/models"
)

func testSubmission() *models.WebLeadSubmission {
	return &models.WebLeadSubmission{
		FirstName:   "Pat",
		Phone:       "+17075550134",
		ProjectType: "exterior",
		Address:     "742 Evergreen Terrace",
		City:        "Ukiah",
		Notes:       "two stories",
		SMSConsent:  true,
		Source:      "website",
	}
}

func TestForwardDeliversJSON(t *testing.T) {
	var got map[string]any
	var gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		gotRequestID = r.Header.Get("X-Request-ID")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := NewForwarder(WithWebhookURL(srv.URL))
	if err := f.Forward(context.Background(), testSubmission()); err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if gotRequestID == "" {
		t.Error("X-Request-ID header not set")
	}
	if got["phone"] != "+17075550134" || got["source"] != "website" {
		t.Errorf("payload = %v", got)
	}
	if got["sms_consent"] != true {
		t.Errorf("sms_consent = %v", got["sms_consent"])
	}
}

func TestForwardNon2xxIsDeliveryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing pipeline", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	f := NewForwarder(WithWebhookURL(srv.URL))
	err := f.Forward(context.Background(), testSubmission())

	var de *DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want *DeliveryError", err)
	}
	if de.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("StatusCode = %d", de.StatusCode)
	}
}

func TestForwardTransportFailureIsDeliveryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	f := NewForwarder(WithWebhookURL(srv.URL))
	err := f.Forward(context.Background(), testSubmission())

	var de *DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want *DeliveryError", err)
	}
	if de.Err == nil {
		t.Error("transport DeliveryError should wrap the cause")
	}
}

func TestForwardUnconfigured(t *testing.T) {
	f := &Forwarder{client: http.DefaultClient}
	if f.Configured() {
		t.Error("Configured() = true without a URL")
	}
	err := f.Forward(context.Background(), testSubmission())
	if err == nil {
		t.Fatal("expected an error without a webhook URL")
	}
	var de *DeliveryError
	if errors.As(err, &de) {
		t.Error("misconfiguration must not look like a delivery failure")
	}
}
