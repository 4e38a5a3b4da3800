package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"marketplace/internal/models"

	"github.com/sirupsen/logrus/hooks/test"
)

func TestParseRequests(t *testing.T) {
	tests := []struct {
		name  string
		parse func([]byte) error
		body  string
		valid bool
	}{
		{"job", func(d []byte) error { _, err := ParseNewJobReq(d); return err }, `{"title":"Logo","description":"a logo","budget":10}`, true},
		{"job without title", func(d []byte) error { _, err := ParseNewJobReq(d); return err }, `{"description":"a logo"}`, false},
		{"job in euro", func(d []byte) error { _, err := ParseNewJobReq(d); return err }, `{"title":"Logo","description":"a logo","currency":"EUR"}`, false},
		{"job negative budget", func(d []byte) error { _, err := ParseNewJobReq(d); return err }, `{"title":"Logo","description":"a logo","budget":-1}`, false},
		{"long title", func(d []byte) error { _, err := ParseNewJobReq(d); return err }, fmt.Sprintf(`{"title":"%s","description":"d"}`, strings.Repeat("0123456789", 11)), false},
		{"bid decision", func(d []byte) error { _, err := ParseBidStatusReq(d); return err }, `{"status":"ACCEPTED"}`, true},
		{"bid back to pending", func(d []byte) error { _, err := ParseBidStatusReq(d); return err }, `{"status":"PENDING"}`, false},
		{"job completion", func(d []byte) error { _, err := ParseJobStatusReq(d); return err }, `{"status":"COMPLETED"}`, true},
		{"job to in progress", func(d []byte) error { _, err := ParseJobStatusReq(d); return err }, `{"status":"IN_PROGRESS"}`, false},
		{"zero rating", func(d []byte) error { _, err := ParseRatingReq(d); return err }, `{"rating":0}`, true},
		{"rating without score", func(d []byte) error { _, err := ParseRatingReq(d); return err }, `{"text":"ok"}`, false},
		{"message", func(d []byte) error { _, err := ParseNewMessageReq(d); return err }, `{"userId":"65f1a2b3c4d5e6f7a8b9c0d1","text":"hi"}`, true},
		{"message bad receiver", func(d []byte) error { _, err := ParseNewMessageReq(d); return err }, `{"userId":"nope","text":"hi"}`, false},
		{"profile", func(d []byte) error { _, err := ParseNewProfileReq(d); return err }, `{"firstName":"Ada","lastName":"L","email":"ada@example.com"}`, true},
		{"profile bad email", func(d []byte) error { _, err := ParseNewProfileReq(d); return err }, `{"firstName":"Ada","lastName":"L","email":"ada"}`, false},
		{"profile update", func(d []byte) error { _, err := ParseUpdateProfileReq(d); return err }, `{"jobTitle":"Illustrator"}`, true},
		{"profile update empty first name", func(d []byte) error { _, err := ParseUpdateProfileReq(d); return err }, `{"firstName":""}`, false},
		{"profile image", func(d []byte) error { _, err := ParseProfileImageReq(d); return err }, `{"imageUrl":"https://cdn.example.com/a.png"}`, true},
		{"profile image cleared", func(d []byte) error { _, err := ParseProfileImageReq(d); return err }, `{"imageUrl":""}`, true},
		{"profile image not a url", func(d []byte) error { _, err := ParseProfileImageReq(d); return err }, `{"imageUrl":"picture"}`, false},
		{"asset without url", func(d []byte) error { _, err := ParseNewAssetReq(d); return err }, `{"title":"Icons"}`, false},
		{"broken json", func(d []byte) error { _, err := ParseNewBidReq(d); return err }, `{"description":`, false},
	}

	for _, tt := range tests {
		err := tt.parse([]byte(tt.body))
		if tt.valid && err != nil {
			t.Errorf("%s: unexpected error: %s", tt.name, err)
		}
		if !tt.valid && err == nil {
			t.Errorf("%s: expected an error", tt.name)
		}
	}
}

func TestServiceErrorResponse(t *testing.T) {
	log, _ := test.NewNullLogger()
	c := NewController(nil, log)

	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("service.Service.SubmitBid: %w", models.ErrDuplicateBid), http.StatusConflict},
		{fmt.Errorf("service.Service.GetJob: %w", models.ErrNoJob), http.StatusNotFound},
		{fmt.Errorf("service.Service.DecideBid: %w", models.ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("service.Service.TransitionJob: %w", models.ErrJobFinalized), http.StatusBadRequest},
		{models.Unavailable(errors.New("connection refused")), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		c.serviceErrorResponse(w, tt.err)
		if w.Code != tt.status {
			t.Errorf("%v: expected status %d, got %d", tt.err, tt.status, w.Code)
		}
		if !strings.Contains(w.Body.String(), `"reason"`) {
			t.Errorf("%v: body should carry a reason, got %s", tt.err, w.Body.String())
		}
	}

	w := httptest.NewRecorder()
	c.serviceErrorResponse(w, fmt.Errorf("service.Service.SubmitBid: %w", models.ErrDuplicateBid))
	if !strings.Contains(w.Body.String(), "bidder already has a bid") {
		t.Errorf("conflict reason should name the specific error, got %s", w.Body.String())
	}
}

func TestValidationReasonHidesCallPath(t *testing.T) {
	log, _ := test.NewNullLogger()
	c := NewController(nil, log)

	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("service.Service.SendMessage: %w", models.ErrSelfMessage), models.ErrSelfMessage.Error()},
		{fmt.Errorf("service.Service.CreateProfile: %w: ROOT", models.ErrInvalidUserRole), models.ErrInvalidUserRole.Error()},
		{fmt.Errorf("service.Service.Other: %w: detail", models.ErrValidation), models.ErrValidation.Error()},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		c.serviceErrorResponse(w, tt.err)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%v: expected status %d, got %d", tt.err, http.StatusBadRequest, w.Code)
		}

		resp := ErrorResponse{}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Reason != tt.want {
			t.Errorf("%v: reason = %q, want %q", tt.err, resp.Reason, tt.want)
		}
		if strings.Contains(resp.Reason, "service.Service") {
			t.Errorf("reason should not expose internal call path, got %q", resp.Reason)
		}
	}
}
