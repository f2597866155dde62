package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/diewo77/odo-invoices/internal/logger"
	"github.com/diewo77/odo-invoices/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(withLogging(logger.NewNop(), NewApp(testutil.NewTestDB(t), nil)))
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	resp, body := call(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestHealthzDatabaseDown(t *testing.T) {
	gdb := testutil.NewTestDB(t)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	rec := httptest.NewRecorder()
	NewApp(gdb, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"error","message":"database unavailable"}`, rec.Body.String())
}

func TestInvoiceLifecycleE2E(t *testing.T) {
	srv := newTestServer(t)

	resp, body := call(t, srv, http.MethodGet, "/invoices/", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"status":"error","message":"No invoice data found"}`, string(body))

	resp, body = call(t, srv, http.MethodPost, "/invoices/",
		`{"customer":"Acme","transactions":[{"product":"Widget","quantity":2,"price":10.00},{"product":"Gadget","quantity":1,"price":10.00}]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var created struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	path := fmt.Sprintf("/invoices/%d/", created.ID)

	resp, body = call(t, srv, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var inv struct {
		TotalQuantity int    `json:"total_quantity"`
		TotalAmount   string `json:"total_amount"`
		Transactions  []struct {
			ID uint `json:"id"`
		} `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(body, &inv))
	assert.Equal(t, 3, inv.TotalQuantity)
	assert.Equal(t, "30.00", inv.TotalAmount)
	require.Len(t, inv.Transactions, 2)

	update := fmt.Sprintf(`{"transactions":[{"id":%d,"quantity":3,"price":15.00},{"product":"Gizmo","quantity":1,"price":10.00}]}`,
		inv.Transactions[0].ID)
	resp, body = call(t, srv, http.MethodPut, path, update)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"message":"Invoice updated successfully."}`, string(body))

	resp, body = call(t, srv, http.MethodGet, strings.TrimSuffix(path, "/"), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &inv))
	assert.Equal(t, 4, inv.TotalQuantity)
	assert.Equal(t, "55.00", inv.TotalAmount)
	assert.Len(t, inv.Transactions, 2)

	resp, body = call(t, srv, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, body)

	resp, body = call(t, srv, http.MethodGet, path, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Invoice does not exist."}`, string(body))
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := call(t, srv, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWithLoggingRecordsStatus(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := &logger.Logger{SugaredLogger: zap.New(core).Sugar()}

	h := withLogging(log, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/invoices/", nil))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/invoices/", fields["path"])
	assert.EqualValues(t, http.StatusTeapot, fields["status"])
}
