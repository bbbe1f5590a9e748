package payment

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/jhoicas/storefront-checkout/internal/application/ports"
	"github.com/jhoicas/storefront-checkout/internal/domain"
	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
	"github.com/jhoicas/storefront-checkout/pkg/logger"
)

const testWebhookSecret = "whsec_test"

func newTestStripe(t *testing.T, handler http.HandlerFunc) *Stripe {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewStripe(StripeConfig{
		SecretKey:     "sk_test",
		WebhookSecret: testWebhookSecret,
		APIBase:       srv.URL,
		Breaker:       BreakerConfig{ConsecutiveFailures: 2, OpenTimeout: time.Minute},
	}, logger.Nop())
}

func signedHeader(payload []byte, ts time.Time) http.Header {
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: testWebhookSecret, Timestamp: ts})
	return stripeHeader(sp.Header)
}

func stripeHeader(sig string) http.Header {
	h := http.Header{}
	if sig != "" {
		h.Set("Stripe-Signature", sig)
	}
	return h
}

func TestStripeCreateSession_EnviaMetadataYVencimiento(t *testing.T) {
	var form map[string][]string
	s := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		assert.Equal(t, "res-1", r.Header.Get("Idempotency-Key"))
		assert.NoError(t, r.ParseForm())
		form = r.PostForm
		_, _ = w.Write([]byte(`{"id":"cs_test_1","url":"https://checkout.stripe.com/c/cs_test_1"}`))
	})
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	sess, err := s.CreateSession(context.Background(), ports.ProviderSessionInput{
		TenantID:             "t1",
		ReservationSessionID: "res-1",
		Currency:             "nzd",
		ExpiresAt:            now.Add(2 * time.Hour),
		SuccessURL:           "https://shop/ok",
		CancelURL:            "https://shop/cancel",
		Items: []ports.CheckoutLine{
			{PieceID: "vase", Name: "Vase", Quantity: 2, UnitPrice: decimal.RequireFromString("12.50")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", sess.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/cs_test_1", sess.RedirectURL)

	get := func(k string) string {
		if v := form[k]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	assert.Equal(t, "payment", get("mode"))
	assert.Equal(t, "t1", get("metadata[tenant_id]"))
	assert.Equal(t, "t1", get("payment_intent_data[metadata][tenant_id]"))
	assert.Equal(t, "res-1", get("metadata[reservation_session_id]"))
	assert.Equal(t, "1250", get("line_items[0][price_data][unit_amount]"))
	assert.Equal(t, "vase", get("line_items[0][price_data][product_data][metadata][piece_id]"))
	assert.Equal(t, strconv.FormatInt(now.Add(2*time.Hour).Unix(), 10), get("expires_at"))
}

func TestStripeCreateSession_VencimientoMinimo(t *testing.T) {
	var expiresAt string
	s := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		expiresAt = r.PostForm.Get("expires_at")
		_, _ = w.Write([]byte(`{"id":"cs_1","url":"u"}`))
	})
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	_, err := s.CreateSession(context.Background(), ports.ProviderSessionInput{
		TenantID: "t1", ReservationSessionID: "r", Currency: "nzd", ExpiresAt: now.Add(29 * time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatInt(now.Add(stripeMinSessionTTL).Unix(), 10), expiresAt)
}

func TestStripeParseWebhook_Completado(t *testing.T) {
	s := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions/cs_1/line_items", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[{"description":"Vase","quantity":1,
			"price":{"unit_amount":12000,"product":{"name":"Vase","metadata":{"piece_id":"vase"}}}}]}`))
	})
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{
		"id":"cs_1","payment_intent":"pi_1","payment_status":"paid","currency":"nzd","amount_total":13000,
		"total_details":{"amount_shipping":1000},
		"metadata":{"tenant_id":"t1","reservation_session_id":"res-1"},
		"customer_details":{"name":"Ana","email":"ana@example.com"}}}}`)

	ev, err := s.ParseWebhook(context.Background(), payload, signedHeader(payload, time.Now()))
	require.NoError(t, err)

	assert.Equal(t, entity.PaymentSucceeded, ev.Kind)
	assert.Equal(t, "evt_1", ev.EventID)
	assert.Equal(t, "t1", ev.TenantID)
	assert.Equal(t, "res-1", ev.ReservationSessionID)
	assert.Equal(t, "cs_1", ev.ProviderSessionID)
	assert.Equal(t, "pi_1", ev.PaymentRef)
	assert.True(t, decimal.NewFromInt(130).Equal(ev.AmountTotal))
	assert.True(t, decimal.NewFromInt(10).Equal(ev.ShippingTotal))
	require.Len(t, ev.LineItems, 1)
	assert.Equal(t, "vase", ev.LineItems[0].PieceID)
	assert.True(t, decimal.NewFromInt(120).Equal(ev.LineItems[0].UnitPrice))
}

func TestStripeParseWebhook_TiposDeEvento(t *testing.T) {
	s := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no debe llamar a la API: %s", r.URL.Path)
	})
	cases := map[string]entity.PaymentEventKind{
		"checkout.session.expired":              entity.PaymentExpired,
		"checkout.session.async_payment_failed": entity.PaymentFailed,
		"payment_intent.created":                entity.PaymentIgnored,
	}
	for typ, want := range cases {
		payload := []byte(fmt.Sprintf(`{"id":"evt","type":%q,"data":{"object":{"id":"cs_1","metadata":{"tenant_id":"t1","reservation_session_id":"r"}}}}`, typ))
		ev, err := s.ParseWebhook(context.Background(), payload, signedHeader(payload, time.Now()))
		require.NoError(t, err, typ)
		assert.Equal(t, want, ev.Kind, typ)
	}

	// completed sin cobro aún (método asíncrono): se ignora hasta async_payment_succeeded
	payload := []byte(`{"id":"evt","type":"checkout.session.completed","data":{"object":{"id":"cs_1","payment_status":"unpaid"}}}`)
	ev, err := s.ParseWebhook(context.Background(), payload, signedHeader(payload, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentIgnored, ev.Kind)
}

func TestStripeParseWebhook_FirmaInvalida(t *testing.T) {
	s := newTestStripe(t, func(http.ResponseWriter, *http.Request) {})
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)

	cases := map[string]http.Header{
		"vacía":         stripeHeader(""),
		"alterada":      signedHeader([]byte(`{"id":"otro"}`), time.Now()),
		"vieja":         signedHeader(payload, time.Now().Add(-time.Hour)),
		"sin timestamp": stripeHeader("v1=abcdef"),
		"mal formada":   stripeHeader("t=abc,v1=abcdef"),
	}
	for name, header := range cases {
		_, err := s.ParseWebhook(context.Background(), payload, header)
		assert.ErrorIs(t, err, domain.ErrInvalidSignature, name)
	}
}

func TestStripeRefund(t *testing.T) {
	s := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/refunds", r.URL.Path)
		assert.Equal(t, "refund-pi_1", r.Header.Get("Idempotency-Key"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "pi_1", r.PostForm.Get("payment_intent"))
		assert.Equal(t, "requested_by_customer", r.PostForm.Get("reason"))
		_, _ = w.Write([]byte(`{"id":"re_1"}`))
	})
	require.NoError(t, s.Refund(context.Background(), "pi_1"))
}

func TestStripe_ErrorDeAPIYCircuitBreaker(t *testing.T) {
	var calls atomic.Int32
	s := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"type":"api_error","message":"down"}}`))
	})

	for i := 0; i < 2; i++ {
		err := s.Refund(context.Background(), "pi_1")
		var apiErr *stripe.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusServiceUnavailable, apiErr.HTTPStatusCode)
		assert.Equal(t, "down", apiErr.Msg)
	}

	// Con el breaker abierto no se llama al proveedor
	err := s.Refund(context.Background(), "pi_1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker abierto")
	assert.Equal(t, int32(2), calls.Load())
}

func TestStripe_ErrorDeClienteNoAbreBreaker(t *testing.T) {
	var calls atomic.Int32
	s := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"charge_already_refunded","message":"already refunded"}}`))
	})
	for i := 0; i < 4; i++ {
		err := s.Refund(context.Background(), "pi_1")
		var apiErr *stripe.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, stripe.ErrorCode("charge_already_refunded"), apiErr.Code)
	}
	assert.Equal(t, int32(4), calls.Load())
}
