package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/jhoicas/storefront-checkout/internal/application/auth"
	"github.com/jhoicas/storefront-checkout/internal/application/checkout"
	"github.com/jhoicas/storefront-checkout/internal/application/dto"
	"github.com/jhoicas/storefront-checkout/internal/application/settlement"
	"github.com/jhoicas/storefront-checkout/internal/application/stock"
	"github.com/jhoicas/storefront-checkout/internal/domain/entity"
	"github.com/jhoicas/storefront-checkout/internal/infrastructure/memory"
	"github.com/jhoicas/storefront-checkout/internal/infrastructure/payment"
	apphttp "github.com/jhoicas/storefront-checkout/internal/interfaces/http"
	"github.com/jhoicas/storefront-checkout/pkg/logger"
)

const webhookSecret = "whsec_handler_test"

type stubReceipts struct{}

func (stubReceipts) GenerateReceipt(context.Context, *entity.Order) ([]byte, error) {
	return []byte("%PDF-1.3 stub"), nil
}

type testEnv struct {
	app    *fiber.App
	store  *memory.Store
	paypal *fakePayPal
}

// fakeStripeAPI responde como la API de Stripe para sesiones, líneas y reembolsos.
func fakeStripeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/checkout/sessions":
			_, _ = w.Write([]byte(`{"id":"cs_1","url":"https://checkout.stripe.test/cs_1"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/v1/checkout/sessions/cs_1/line_items":
			_, _ = w.Write([]byte(`{"data":[{"quantity":1,"price":{"unit_amount":12000,"product":{"name":"Vase","metadata":{"piece_id":"vase"}}}}]}`))
		case r.Method == http.MethodPost && r.URL.Path == "/v1/refunds":
			_, _ = w.Write([]byte(`{"id":"re_1"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// fakePayPal responde como la API de PayPal para una única orden ORDER-1.
type fakePayPal struct {
	mu       sync.Mutex
	customID string
	captured bool
	captures atomic.Int32
}

func (f *fakePayPal) markCaptured() {
	f.mu.Lock()
	f.captured = true
	f.mu.Unlock()
}

func (f *fakePayPal) order() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	payments := ""
	if f.captured {
		payments = `,"payments":{"captures":[{"id":"CAP-1","status":"COMPLETED"}]}`
	}
	return fmt.Sprintf(`{"id":"ORDER-1","status":"APPROVED","payer":{"email_address":"ana@example.com"},
		"purchase_units":[{"reference_id":"r","custom_id":%q,
		"amount":{"currency_code":"NZD","value":"120.00"},
		"items":[{"name":"Vase","quantity":"1","unit_amount":{"currency_code":"NZD","value":"120.00"},"sku":"vase"}]%s}]}`,
		f.customID, payments)
}

func (f *fakePayPal) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/v1/oauth2/token":
			_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
		case r.Method == http.MethodPost && r.URL.Path == "/v2/checkout/orders":
			var body struct {
				PurchaseUnits []struct {
					CustomID string `json:"custom_id"`
				} `json:"purchase_units"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			if len(body.PurchaseUnits) > 0 {
				f.mu.Lock()
				f.customID = body.PurchaseUnits[0].CustomID
				f.mu.Unlock()
			}
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"ORDER-1","status":"CREATED","links":[{"href":"https://paypal.test/approve","rel":"approve"}]}`))
		case r.Method == http.MethodGet && r.URL.Path == "/v2/checkout/orders/ORDER-1":
			_, _ = w.Write([]byte(f.order()))
		case r.Method == http.MethodPost && r.URL.Path == "/v2/checkout/orders/ORDER-1/capture":
			f.captures.Add(1)
			f.markCaptured()
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"ORDER-1","status":"COMPLETED"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/v2/payments/captures/CAP-1/refund":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"REF-1","status":"COMPLETED"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/v1/notifications/verify-webhook-signature":
			_, _ = w.Write([]byte(`{"verification_status":"SUCCESS"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.Nop()
	store := memory.NewStore(nil)
	store.SetStock("t1", "vase", "", 1)
	catalog := memory.NewPieceCatalog()
	catalog.Put(&entity.Piece{ID: "vase", TenantID: "t1", Name: "Vase", Status: entity.PieceStatusActive, Price: decimal.NewFromInt(120)})
	orders := memory.NewOrderRepo()

	fpp := &fakePayPal{}
	pp, err := payment.NewPayPal(payment.PayPalConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		APIBase:      fpp.server(t).URL,
		WebhookID:    "WH-1",
	}, log)
	require.NoError(t, err)
	registry := payment.NewRegistry(payment.NewStripe(payment.StripeConfig{
		SecretKey:     "sk_test",
		WebhookSecret: webhookSecret,
		APIBase:       fakeStripeAPI(t).URL,
	}, log), pp)

	stockSvc := stock.NewService(store, log).WithMovementLog(memory.NewMovementLog())
	checkoutUC := checkout.NewUseCase(catalog, stockSvc, registry, nil, log, checkout.Config{HoldMinutes: 30, Currency: "nzd"})
	settlementUC := settlement.NewUseCase(memory.NewTxRunner(store, orders), store, orders, memory.NewAnomalyRepo(),
		registry, nil, nil, nil, log, settlement.Config{Currency: "nzd"})

	authUC := auth.NewUseCase(memory.NewOperatorRepo(), auth.JWTConfig{Secret: testJWTSecret, ExpMinutes: testExpMin, Issuer: testIssuer}, log)
	_, err = authUC.CreateOperator(context.Background(), "t1", dto.CreateOperatorRequest{
		Email: "owner@shop.test", Password: "owner-pass", Role: entity.OperatorRoleOwner,
	})
	require.NoError(t, err)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		CheckoutUC:   checkoutUC,
		SettlementUC: settlementUC,
		StockService: stockSvc,
		AuthUC:       authUC,
		Receipts:     stubReceipts{},
		JWTSecret:    testJWTSecret,
		Logger:       log,
	})
	return &testEnv{app: app, store: store, paypal: fpp}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		r = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func tenantHeader() map[string]string { return map[string]string{apphttp.HeaderTenantID: "t1"} }

func cart() dto.CreateCheckoutRequest {
	return dto.CreateCheckoutRequest{
		Items:    []dto.CheckoutItemRequest{{PieceID: "vase", Quantity: 1, UnitPrice: decimal.NewFromInt(120)}},
		Customer: dto.CustomerRequest{Name: "Ana", Email: "ana@example.com"},
	}
}

func signed(payload []byte) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: webhookSecret}).Header
}

func completedEvent(sessionID string) []byte {
	return []byte(fmt.Sprintf(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{
		"id":"cs_1","payment_intent":"pi_1","payment_status":"paid","currency":"nzd","amount_total":12000,
		"metadata":{"tenant_id":"t1","reservation_session_id":%q},
		"customer_details":{"name":"Ana","email":"ana@example.com"}}}}`, sessionID))
}

func TestCheckoutCreate_ReservaYDevuelveRedirect(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/checkout/stripe/create", cart(), tenantHeader())
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var out dto.CheckoutSessionResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "https://checkout.stripe.test/cs_1", out.RedirectURL)
	assert.NotEmpty(t, out.ReservationSessionID)

	u, err := env.store.GetStockUnit(context.Background(), "t1", "vase", "")
	require.NoError(t, err)
	assert.Equal(t, 0, u.AvailableQuantity)
	assert.Equal(t, 1, u.ReservedQuantity)
}

func TestCheckoutCreate_SinStockDevuelveItem(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.do(t, http.MethodPost, "/api/checkout/stripe/create", cart(), tenantHeader())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := env.do(t, http.MethodPost, "/api/checkout/stripe/create", cart(), tenantHeader())
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var errResp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, "INSUFFICIENT_STOCK", errResp.Code)
	require.NotNil(t, errResp.Item)
	assert.Equal(t, 0, errResp.Item.Index)
	assert.Equal(t, "vase", errResp.Item.PieceID)
}

func TestCheckoutCreate_Errores(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/api/checkout/stripe/create", cart(), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "sin X-Tenant-ID")

	resp, body := env.do(t, http.MethodPost, "/api/checkout/bitcoin/create", cart(), tenantHeader())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "UNKNOWN_PROVIDER")

	resp, body = env.do(t, http.MethodPost, "/api/checkout/stripe/create", dto.CreateCheckoutRequest{}, tenantHeader())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "VALIDATION_ERROR")

	resp, _ = env.do(t, http.MethodPost, "/api/checkout/stripe/create", []byte("{no json"), tenantHeader())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	bad := cart()
	bad.Items[0].PieceID = "mug"
	resp, body = env.do(t, http.MethodPost, "/api/checkout/stripe/create", bad, tenantHeader())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), `"index":0`)

	stale := cart()
	stale.Items[0].UnitPrice = decimal.NewFromInt(99)
	resp, body = env.do(t, http.MethodPost, "/api/checkout/stripe/create", stale, tenantHeader())
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "PRICE_CHANGED")
}

func TestCheckoutCancel_Idempotente(t *testing.T) {
	env := newTestEnv(t)
	_, body := env.do(t, http.MethodPost, "/api/checkout/stripe/create", cart(), tenantHeader())
	var created dto.CheckoutSessionResponse
	require.NoError(t, json.Unmarshal(body, &created))

	req := dto.CancelCheckoutRequest{ReservationSessionID: created.ReservationSessionID}
	resp, body := env.do(t, http.MethodPost, "/api/checkout/stripe/cancel", req, tenantHeader())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out dto.CancelCheckoutResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.True(t, out.Released)

	_, body = env.do(t, http.MethodPost, "/api/checkout/stripe/cancel", req, tenantHeader())
	require.NoError(t, json.Unmarshal(body, &out))
	assert.False(t, out.Released)

	u, err := env.store.GetStockUnit(context.Background(), "t1", "vase", "")
	require.NoError(t, err)
	assert.Equal(t, 1, u.AvailableQuantity)
}

func TestWebhook_LiquidaYReentregaEsDuplicado(t *testing.T) {
	env := newTestEnv(t)
	_, body := env.do(t, http.MethodPost, "/api/checkout/stripe/create", cart(), tenantHeader())
	var created dto.CheckoutSessionResponse
	require.NoError(t, json.Unmarshal(body, &created))

	payload := completedEvent(created.ReservationSessionID)
	resp, body := env.do(t, http.MethodPost, "/api/checkout/stripe/webhook", payload, map[string]string{"Stripe-Signature": signed(payload)})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var first dto.SettlementResponse
	require.NoError(t, json.Unmarshal(body, &first))
	assert.Equal(t, "settled", first.Outcome)
	assert.NotEmpty(t, first.OrderID)

	resp, body = env.do(t, http.MethodPost, "/api/checkout/stripe/webhook", payload, map[string]string{"Stripe-Signature": signed(payload)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var second dto.SettlementResponse
	require.NoError(t, json.Unmarshal(body, &second))
	assert.Equal(t, "duplicate", second.Outcome)
	assert.Equal(t, first.OrderID, second.OrderID)

	u, err := env.store.GetStockUnit(context.Background(), "t1", "vase", "")
	require.NoError(t, err)
	assert.Equal(t, 1, u.SoldQuantity)
}

func TestWebhook_FirmaInvalida(t *testing.T) {
	env := newTestEnv(t)
	payload := completedEvent("s1")

	resp, body := env.do(t, http.MethodPost, "/api/checkout/stripe/webhook", payload, map[string]string{"Stripe-Signature": "t=1,v1=deadbeef"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "INVALID_SIGNATURE")
}

func TestWebhook_PagoSinReservaEsAnomaliaYSeReconoce(t *testing.T) {
	env := newTestEnv(t)
	payload := completedEvent("sesion-vencida")

	resp, body := env.do(t, http.MethodPost, "/api/checkout/stripe/webhook", payload, map[string]string{"Stripe-Signature": signed(payload)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"outcome":"anomaly"`)

	resp, body = env.do(t, http.MethodGet, "/api/admin/anomalies", nil, map[string]string{"Authorization": ownerToken(t)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list dto.AnomalyListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, entity.RefundRequested, list.Items[0].RefundStatus)
}

func createPayPalCheckout(t *testing.T, env *testEnv) dto.CheckoutSessionResponse {
	t.Helper()
	resp, body := env.do(t, http.MethodPost, "/api/checkout/paypal/create", cart(), tenantHeader())
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var created dto.CheckoutSessionResponse
	require.NoError(t, json.Unmarshal(body, &created))
	return created
}

func TestCapture_ReservaLiberadaDevuelve409SinCobrar(t *testing.T) {
	env := newTestEnv(t)
	created := createPayPalCheckout(t, env)

	resp, _ := env.do(t, http.MethodPost, "/api/checkout/paypal/cancel",
		dto.CancelCheckoutRequest{ReservationSessionID: created.ReservationSessionID}, tenantHeader())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := env.do(t, http.MethodPost, "/api/checkout/paypal/capture", dto.CaptureRequest{ProviderSessionID: "ORDER-1"}, tenantHeader())
	assert.Equal(t, http.StatusConflict, resp.StatusCode, string(body))
	assert.Contains(t, string(body), "RESERVATION_RELEASED")
	assert.Equal(t, int32(0), env.paypal.captures.Load(), "no se captura dinero sin reserva")
}

func TestCapture_LiquidaYReintentoEsDuplicado(t *testing.T) {
	env := newTestEnv(t)
	createPayPalCheckout(t, env)

	resp, body := env.do(t, http.MethodPost, "/api/checkout/paypal/capture", dto.CaptureRequest{ProviderSessionID: "ORDER-1"}, tenantHeader())
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"outcome":"settled"`)

	resp, body = env.do(t, http.MethodPost, "/api/checkout/paypal/capture", dto.CaptureRequest{ProviderSessionID: "ORDER-1"}, tenantHeader())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"outcome":"duplicate"`)
	assert.Equal(t, int32(1), env.paypal.captures.Load())
}

func TestWebhook_PayPalCapturaCompletadaLiquida(t *testing.T) {
	env := newTestEnv(t)
	createPayPalCheckout(t, env)
	// Capturada en PayPal pero el servidor nunca registró el pedido
	env.paypal.markCaptured()

	payload := []byte(`{"id":"WH-1","event_type":"PAYMENT.CAPTURE.COMPLETED","resource":{"id":"CAP-1","status":"COMPLETED",
		"supplementary_data":{"related_ids":{"order_id":"ORDER-1"}}}}`)
	headers := map[string]string{"Paypal-Transmission-Id": "tx-1", "Paypal-Transmission-Sig": "sig"}
	resp, body := env.do(t, http.MethodPost, "/api/checkout/paypal/webhook", payload, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"outcome":"settled"`)

	// El comprador vuelve a la tienda después: no se captura de nuevo
	resp, body = env.do(t, http.MethodPost, "/api/checkout/paypal/capture", dto.CaptureRequest{ProviderSessionID: "ORDER-1"}, tenantHeader())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"outcome":"duplicate"`)
	assert.Equal(t, int32(0), env.paypal.captures.Load())

	u, err := env.store.GetStockUnit(context.Background(), "t1", "vase", "")
	require.NoError(t, err)
	assert.Equal(t, 1, u.SoldQuantity)
}

func ownerToken(t *testing.T) string {
	t.Helper()
	tok, err := pkgjwtGenerate("t1", apphttp.RoleOwner)
	require.NoError(t, err)
	return "Bearer " + tok
}

func staffToken(t *testing.T) string {
	t.Helper()
	tok, err := pkgjwtGenerate("t1", apphttp.RoleStaff)
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestAdmin_StockYReservas(t *testing.T) {
	env := newTestEnv(t)
	owner := map[string]string{"Authorization": ownerToken(t)}
	staff := map[string]string{"Authorization": staffToken(t)}

	resp, _ := env.do(t, http.MethodGet, "/api/admin/stock/vase", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := env.do(t, http.MethodGet, "/api/admin/stock/vase", nil, staff)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var unit dto.StockUnitResponse
	require.NoError(t, json.Unmarshal(body, &unit))
	assert.Equal(t, 1, unit.AvailableQuantity)

	adjust := dto.AdjustStockRequest{PieceID: "vase", Delta: 4}
	resp, _ = env.do(t, http.MethodPost, "/api/admin/stock/adjust", adjust, staff)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "solo owner repone stock")

	resp, body = env.do(t, http.MethodPost, "/api/admin/stock/adjust", adjust, owner)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &unit))
	assert.Equal(t, 5, unit.AvailableQuantity)

	resp, body = env.do(t, http.MethodGet, "/api/admin/stock/vase/movements", nil, staff)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ms []dto.StockMovementResponse
	require.NoError(t, json.Unmarshal(body, &ms))
	require.Len(t, ms, 1)
	assert.Equal(t, 4, ms[0].Delta)
	assert.Equal(t, 5, ms[0].AvailableAfter)
	assert.Equal(t, testUserID, ms[0].CreatedBy)

	resp, body = env.do(t, http.MethodPost, "/api/admin/stock/adjust", dto.AdjustStockRequest{PieceID: "vase", Delta: -10}, owner)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "INSUFFICIENT_STOCK")

	resp, _ = env.do(t, http.MethodGet, "/api/admin/reservations/no-existe", nil, owner)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, body = env.do(t, http.MethodPost, "/api/checkout/stripe/create", cart(), tenantHeader())
	var created dto.CheckoutSessionResponse
	require.NoError(t, json.Unmarshal(body, &created))
	resp, body = env.do(t, http.MethodGet, "/api/admin/reservations/"+created.ReservationSessionID, nil, owner)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rs []dto.ReservationResponse
	require.NoError(t, json.Unmarshal(body, &rs))
	require.Len(t, rs, 1)
	assert.Equal(t, "held", rs[0].Status)
}

func TestAdmin_ComprobantePDF(t *testing.T) {
	env := newTestEnv(t)
	_, body := env.do(t, http.MethodPost, "/api/checkout/stripe/create", cart(), tenantHeader())
	var created dto.CheckoutSessionResponse
	require.NoError(t, json.Unmarshal(body, &created))
	payload := completedEvent(created.ReservationSessionID)
	_, body = env.do(t, http.MethodPost, "/api/checkout/stripe/webhook", payload, map[string]string{"Stripe-Signature": signed(payload)})
	var settled dto.SettlementResponse
	require.NoError(t, json.Unmarshal(body, &settled))

	resp, body := env.do(t, http.MethodGet, "/api/admin/orders/"+settled.OrderID+"/receipt", nil, map[string]string{"Authorization": ownerToken(t)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))

	resp, _ = env.do(t, http.MethodGet, "/api/admin/orders/otro/receipt", nil, map[string]string{"Authorization": ownerToken(t)})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAuth_LoginYAltaDeOperador(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/api/auth/login", dto.LoginRequest{TenantID: "t1", Email: "owner@shop.test", Password: "mala"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := env.do(t, http.MethodPost, "/api/auth/login", dto.LoginRequest{TenantID: "t1", Email: "owner@shop.test", Password: "owner-pass"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var login dto.LoginResponse
	require.NoError(t, json.Unmarshal(body, &login))
	owner := map[string]string{"Authorization": "Bearer " + login.Token}

	newStaff := dto.CreateOperatorRequest{Email: "staff@shop.test", Password: "staff-pass"}
	resp, body = env.do(t, http.MethodPost, "/api/admin/operators", newStaff, owner)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, _ = env.do(t, http.MethodPost, "/api/admin/operators", newStaff, owner)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = env.do(t, http.MethodPost, "/api/auth/login", dto.LoginRequest{TenantID: "t1", Email: "staff@shop.test", Password: "staff-pass"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &login))
	staff := map[string]string{"Authorization": "Bearer " + login.Token}

	resp, _ = env.do(t, http.MethodGet, "/api/admin/stock/vase", nil, staff)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = env.do(t, http.MethodPost, "/api/admin/operators", dto.CreateOperatorRequest{Email: "x@shop.test", Password: "12345678"}, staff)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
