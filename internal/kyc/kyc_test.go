package kyc

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/curavia/custodia/internal/models"
	"github.com/curavia/custodia/pkg/logger"
)

func TestVerificationStatus(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch r.URL.Path {
		case "/v1/verifications/user-verified":
			fmt.Fprint(w, `{"status":"VERIFIED"}`)
		case "/v1/verifications/user-odd":
			fmt.Fprint(w, `{"status":"MAYBE"}`)
		case "/v1/verifications/user-broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	svc := NewService(server.URL, time.Minute, logger.NewNopLogger())
	ctx := context.Background()

	status, err := svc.VerificationStatus(ctx, "user-verified")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if status != models.KYCStatusVerified {
		t.Errorf("expected VERIFIED, got %s", status)
	}

	// Unknown users read as UNVERIFIED, not as an error.
	status, err = svc.VerificationStatus(ctx, "user-unknown")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if status != models.KYCStatusUnverified {
		t.Errorf("expected UNVERIFIED, got %s", status)
	}

	if _, err := svc.VerificationStatus(ctx, "user-odd"); err == nil {
		t.Error("expected error for unknown status value")
	}
	if _, err := svc.VerificationStatus(ctx, "user-broken"); err == nil {
		t.Error("expected error for provider failure")
	}
}

func TestVerificationStatusCached(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"status":"PENDING"}`)
	}))
	defer server.Close()

	svc := NewService(server.URL, time.Minute, logger.NewNopLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		status, err := svc.VerificationStatus(ctx, "user-1")
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if status != models.KYCStatusPending {
			t.Errorf("expected PENDING, got %s", status)
		}
	}
	if calls != 1 {
		t.Errorf("expected 1 provider call, got %d", calls)
	}
}

func TestVerificationStatusCacheExpiry(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"status":"VERIFIED"}`)
	}))
	defer server.Close()

	svc := NewService(server.URL, time.Nanosecond, logger.NewNopLogger())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := svc.VerificationStatus(ctx, "user-1"); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		time.Sleep(time.Millisecond)
	}
	if calls != 2 {
		t.Errorf("expected 2 provider calls after expiry, got %d", calls)
	}
}
