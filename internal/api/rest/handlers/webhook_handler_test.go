package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v78"

	stripeclient "github.com/parishkeep/parishkeep/internal/integration/stripe"
	"github.com/parishkeep/parishkeep/pkg/logger"
)

const testWebhookSecret = "whsec_test"

func newTestLogger() *logger.Logger {
	log := logger.New(logger.ERROR)
	log.SetOutput(io.Discard)
	return log
}

// stubWebhookService records processed events and returns a canned error
type stubWebhookService struct {
	events []stripe.Event
	err    error
}

func (s *stubWebhookService) ProcessEvent(ctx context.Context, event stripe.Event) error {
	s.events = append(s.events, event)
	return s.err
}

// signPayload builds a valid Stripe-Signature header for the payload
func signPayload(payload []byte, secret string, at time.Time) string {
	ts := fmt.Sprintf("%d", at.Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func newWebhookRouter(svc *stubWebhookService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	verifier := stripeclient.NewWebhookVerifier(testWebhookSecret)
	handler := NewWebhookHandler(verifier, svc, newTestLogger())

	r := gin.New()
	r.POST("/api/webhooks/stripe", handler.HandleStripeWebhook)
	return r
}

func postWebhook(r *gin.Engine, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookHandler_ValidSignature(t *testing.T) {
	svc := &stubWebhookService{}
	r := newWebhookRouter(svc)

	payload := []byte(`{"id":"evt_1","type":"customer.subscription.updated","created":123,"data":{"object":{"id":"sub_1"}}}`)
	w := postWebhook(r, payload, signPayload(payload, testWebhookSecret, time.Now()))

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.events, 1)
	assert.Equal(t, "evt_1", svc.events[0].ID)
	assert.Equal(t, stripe.EventType("customer.subscription.updated"), svc.events[0].Type)
}

func TestWebhookHandler_BadSignature(t *testing.T) {
	svc := &stubWebhookService{}
	r := newWebhookRouter(svc)

	payload := []byte(`{"id":"evt_1","type":"customer.subscription.updated"}`)
	w := postWebhook(r, payload, signPayload(payload, "whsec_wrong", time.Now()))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.events)
}

func TestWebhookHandler_MissingSignature(t *testing.T) {
	svc := &stubWebhookService{}
	r := newWebhookRouter(svc)

	w := postWebhook(r, []byte(`{"id":"evt_1"}`), "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.events)
}

func TestWebhookHandler_TamperedPayload(t *testing.T) {
	svc := &stubWebhookService{}
	r := newWebhookRouter(svc)

	payload := []byte(`{"id":"evt_1","type":"customer.subscription.updated"}`)
	signature := signPayload(payload, testWebhookSecret, time.Now())
	tampered := []byte(`{"id":"evt_2","type":"customer.subscription.updated"}`)

	w := postWebhook(r, tampered, signature)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.events)
}

func TestWebhookHandler_ProcessingFailureAsks500(t *testing.T) {
	svc := &stubWebhookService{err: errors.New("db down")}
	r := newWebhookRouter(svc)

	payload := []byte(`{"id":"evt_1","type":"invoice.payment_succeeded","data":{"object":{"id":"in_1"}}}`)
	w := postWebhook(r, payload, signPayload(payload, testWebhookSecret, time.Now()))

	// 500 tells the provider to redeliver
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Len(t, svc.events, 1)
}
