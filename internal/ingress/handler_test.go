package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hiring-notifier/internal/common/config"
	"hiring-notifier/internal/common/logger"
	"hiring-notifier/internal/notification/dedup"
	"hiring-notifier/internal/notification/delivery"
	"hiring-notifier/internal/notification/dispatcher"
	"hiring-notifier/internal/notification/templates"
)

const endpoint = "/notifications/application-email"

// ==========================
// Mock Implementations
// ==========================

type MockClient struct {
	SendFunc func(ctx context.Context, msg delivery.Message) delivery.Outcome
	calls    int32
}

func (m *MockClient) Name() string { return "mock" }

func (m *MockClient) Send(ctx context.Context, msg delivery.Message) delivery.Outcome {
	atomic.AddInt32(&m.calls, 1)
	return m.SendFunc(ctx, msg)
}

func (m *MockClient) Calls() int { return int(atomic.LoadInt32(&m.calls)) }

type MockDispatcher struct {
	DispatchFunc func(ctx context.Context, req dispatcher.Request) (*dispatcher.Result, error)
}

func (m *MockDispatcher) Dispatch(ctx context.Context, req dispatcher.Request) (*dispatcher.Result, error) {
	return m.DispatchFunc(ctx, req)
}

// ==========================
// Helpers
// ==========================

func newTestServer(t *testing.T, client delivery.Client) http.Handler {
	t.Helper()
	d, err := dispatcher.New(dispatcher.Dependencies{
		Resolver: templates.MustNewDefaultResolver(),
		Client:   client,
		Store:    dedup.NewMemoryStore(),
		Logger:   logger.NewTestLogger(t),
	}, dispatcher.Config{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Budget:         time.Second,
		DedupTTL:       time.Minute,
	})
	require.NoError(t, err)
	return serverFor(t, d)
}

func serverFor(t *testing.T, d Dispatcher) http.Handler {
	t.Helper()
	cfg := config.ServerConfig{Port: 0, EndpointPath: endpoint, MetricsEnabled: true}
	return New(cfg, NewHandler(d, 2*time.Second, logger.NewTestLogger(t)), logger.NewTestLogger(t)).Handler()
}

func post(h http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, endpoint, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func delivered() *MockClient {
	return &MockClient{SendFunc: func(context.Context, delivery.Message) delivery.Outcome {
		return delivery.Delivered("mock", "msg-1")
	}}
}

// ==========================
// Tests
// ==========================

func TestNotify_NewApplicationUnconfiguredProvider(t *testing.T) {
	client := &MockClient{SendFunc: delivery.NewUnconfigured(delivery.ProviderResend).Send}
	h := newTestServer(t, client)

	rec := post(h, `{"type":"new_application","jobId":"42","jobTitle":"Warehouse Associate",`+
		`"applicantName":"A. Kumar","applicantEmail":"a@example.com"}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"message":"Email not configured"}`, rec.Body.String())
}

func TestNotify_StatusUpdateMissingNewStatus(t *testing.T) {
	client := delivered()
	h := newTestServer(t, client)

	rec := post(h, `{"type":"status_update","jobTitle":"Welder","applicantName":"R. Singh",`+
		`"applicantEmail":"r@example.com"}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Contains(t, body["error"], "newStatus")
	assert.Equal(t, 0, client.Calls())
}

func TestNotify_Delivered(t *testing.T) {
	client := delivered()
	h := newTestServer(t, client)

	rec := post(h, `{"type":"status_update","jobTitle":"Welder","applicantName":"R. Singh",`+
		`"applicantEmail":"r@example.com","newStatus":"interview"}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, 1, client.Calls())
}

func TestNotify_ValidationFailures(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		contains string
	}{
		{"empty body", ``, "payload"},
		{"malformed json", `{"type":`, "payload"},
		{"unknown type", `{"type":"offer","jobTitle":"Welder","applicantName":"R","applicantEmail":"r@example.com"}`, "type"},
		{"missing email", `{"type":"new_application","jobTitle":"Welder","applicantName":"R"}`, "applicantEmail"},
		{"wrong field type", `{"type":"new_application","jobTitle":7,"applicantName":"R","applicantEmail":"r@example.com"}`, "jobTitle"},
		{"invalid email", `{"type":"new_application","jobTitle":"Welder","applicantName":"R","applicantEmail":"not-an-email"}`, "applicantEmail"},
		{"blank title", `{"type":"new_application","jobTitle":"   ","applicantName":"R","applicantEmail":"r@example.com"}`, "jobTitle"},
		{"null status on update", `{"type":"status_update","jobTitle":"Welder","applicantName":"R","applicantEmail":"r@example.com","newStatus":null}`, "newStatus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := delivered()
			h := newTestServer(t, client)

			rec := post(h, tt.body, nil)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decode(t, rec)
			assert.Contains(t, body["error"], tt.contains)
			assert.Equal(t, 0, client.Calls())
		})
	}
}

func TestNotify_NewStatusIgnoredForNewApplication(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "status given",
			body: `{"type":"new_application","jobTitle":"Welder","applicantName":"R. Singh",` +
				`"applicantEmail":"r@example.com","newStatus":"rejected"}`,
		},
		{
			name: "optional fields null",
			body: `{"type":"new_application","jobId":null,"jobTitle":"Welder","applicantName":"R. Singh",` +
				`"applicantEmail":"r@example.com","newStatus":null,"correlationKey":null}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := delivered()
			h := newTestServer(t, client)

			rec := post(h, tt.body, nil)

			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.JSONEq(t, `{"success":true}`, rec.Body.String())
			assert.Equal(t, 1, client.Calls())
		})
	}
}

func TestNotify_FailedDeliveryIsNonBlocking(t *testing.T) {
	client := &MockClient{SendFunc: func(context.Context, delivery.Message) delivery.Outcome {
		return delivery.Failed("mock", errors.New("502 bad gateway"))
	}}
	h := newTestServer(t, client)

	rec := post(h, `{"type":"new_application","jobTitle":"Welder","applicantName":"R",`+
		`"applicantEmail":"r@example.com"}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "failed", body["status"])
	assert.Equal(t, float64(3), body["attempts"])
	deliveryErr, ok := body["deliveryError"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "DELIVERY_FAILED", deliveryErr["code"])
	assert.Equal(t, 3, client.Calls())
}

func TestNotify_DuplicateRequestsSendOnce(t *testing.T) {
	client := delivered()
	h := newTestServer(t, client)
	body := `{"type":"new_application","jobId":"42","jobTitle":"Welder","applicantName":"R",` +
		`"applicantEmail":"r@example.com"}`

	first := post(h, body, nil)
	second := post(h, body, nil)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, `{"success":true}`, second.Body.String())
	assert.Equal(t, 1, client.Calls())
}

func TestNotify_CorrelationKeySources(t *testing.T) {
	var got []string
	d := &MockDispatcher{DispatchFunc: func(_ context.Context, req dispatcher.Request) (*dispatcher.Result, error) {
		got = append(got, req.CorrelationKey)
		return &dispatcher.Result{Status: delivery.StatusDelivered}, nil
	}}
	h := serverFor(t, d)
	base := `"type":"new_application","jobTitle":"Welder","applicantName":"R","applicantEmail":"r@example.com"`

	post(h, `{`+base+`,"correlationKey":"body-key"}`, map[string]string{IdempotencyKeyHeader: "header-key"})
	post(h, `{`+base+`,"correlationKey":"body-key"}`, nil)
	post(h, `{`+base+`}`, nil)

	assert.Equal(t, []string{"header-key", "body-key", ""}, got)
}

func TestNotify_AppliesRequestTimeout(t *testing.T) {
	d := &MockDispatcher{DispatchFunc: func(ctx context.Context, _ dispatcher.Request) (*dispatcher.Result, error) {
		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(2*time.Second), deadline, time.Second)
		return &dispatcher.Result{Status: delivery.StatusDelivered}, nil
	}}
	h := serverFor(t, d)

	rec := post(h, `{"type":"new_application","jobTitle":"Welder","applicantName":"R","applicantEmail":"r@example.com"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNotify_InternalFault(t *testing.T) {
	d := &MockDispatcher{DispatchFunc: func(context.Context, dispatcher.Request) (*dispatcher.Result, error) {
		return nil, errors.New("template exploded")
	}}
	h := serverFor(t, d)

	rec := post(h, `{"type":"new_application","jobTitle":"Welder","applicantName":"R","applicantEmail":"r@example.com"}`, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.NotEmpty(t, body["error"])
	assert.NotContains(t, body["error"], "template exploded")
}

func TestNotify_PanicBecomes500(t *testing.T) {
	d := &MockDispatcher{DispatchFunc: func(context.Context, dispatcher.Request) (*dispatcher.Result, error) {
		panic("nil map write")
	}}
	h := serverFor(t, d)

	rec := post(h, `{"type":"new_application","jobTitle":"Welder","applicantName":"R","applicantEmail":"r@example.com"}`, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["error"])
}

func TestOptions_ReturnsEmpty200(t *testing.T) {
	h := newTestServer(t, delivered())

	tests := []struct {
		name    string
		headers map[string]string
	}{
		{"bare", nil},
		{"preflight", map[string]string{
			"Origin":                         "https://careers.example.com",
			"Access-Control-Request-Method":  "POST",
			"Access-Control-Request-Headers": "Content-Type",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, endpoint, nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Empty(t, rec.Body.String())
			assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Methods"))
		})
	}
}

func TestNotify_SetsCORSHeader(t *testing.T) {
	h := newTestServer(t, delivered())

	rec := post(h, `{"type":"new_application","jobTitle":"Welder","applicantName":"R","applicantEmail":"r@example.com"}`,
		map[string]string{"Origin": "https://careers.example.com"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestOtherMethods_Return405(t *testing.T) {
	h := newTestServer(t, delivered())

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(method, endpoint, nil))

			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
			assert.NotEmpty(t, decode(t, rec)["error"])
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(t, delivered())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "notification_http_requests_total")
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	srv := New(config.ServerConfig{Port: 0, EndpointPath: endpoint}, NewHandler(&MockDispatcher{}, time.Second, nil), nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
