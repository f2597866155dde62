package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	ierr "github.com/diewo77/odo-invoices/internal/errors"
	"github.com/diewo77/odo-invoices/internal/logger"
	"github.com/diewo77/odo-invoices/internal/models"
	"github.com/diewo77/odo-invoices/internal/services"
	"github.com/diewo77/odo-invoices/httpx"
	"github.com/diewo77/odo-invoices/validation"
	"github.com/samber/lo"
)

const maxBodyBytes = 1 << 20

const (
	msgNoInvoices     = "No invoice data found"
	msgInvoiceMissing = "Invoice does not exist."
	msgNoData         = "No Data Found"
	msgInvalidJSON    = "Invalid JSON body."
	msgUpdated        = "Invoice updated successfully."
	msgDeleted        = "Invoice deleted successfully."
)

var errTransactionNotObject = errors.New("transactions entries must be objects")

// InvoiceHandler serves the JSON invoice endpoints. Every failure is
// answered with 400, missing invoices included.
type InvoiceHandler struct {
	Svc *services.InvoiceService
	log *logger.Logger
}

func NewInvoiceHandler(svc *services.InvoiceService, log *logger.Logger) *InvoiceHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &InvoiceHandler{Svc: svc, log: log}
}

// Register mounts the invoice routes. Every path is served with and
// without its trailing slash; the update/ and delete/ prefixes are kept for
// older clients.
func (h *InvoiceHandler) Register(mux *http.ServeMux) {
	for _, slash := range []string{"/{$}", ""} {
		mux.HandleFunc("GET /invoices"+slash, h.List)
		mux.HandleFunc("POST /invoices"+slash, h.Create)
		mux.HandleFunc("GET /invoices/{id}"+slash, h.View)
		mux.HandleFunc("PUT /invoices/{id}"+slash, h.Update)
		mux.HandleFunc("DELETE /invoices/{id}"+slash, h.Delete)
		mux.HandleFunc("PUT /invoices/update/{id}"+slash, h.Update)
		mux.HandleFunc("DELETE /invoices/delete/{id}"+slash, h.Delete)
	}
}

// List: GET /invoices/
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	invs, err := h.Svc.List(r.Context())
	if err != nil {
		if errors.Is(err, services.ErrNoInvoices) {
			httpx.JSON(w, http.StatusBadRequest, httpx.StatusResponse{Status: "error", Message: msgNoInvoices})
			return
		}
		h.storageError(w, "list", err)
		return
	}
	httpx.JSON(w, http.StatusOK, lo.Map(invs, func(inv models.Invoice, _ int) invoiceResponse {
		return newInvoiceResponse(inv)
	}))
}

// View: GET /invoices/{id}/
func (h *InvoiceHandler) View(w http.ResponseWriter, r *http.Request) {
	id, ok := invoiceID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, msgInvoiceMissing, nil)
		return
	}
	inv, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		if ierr.IsNotFound(err) {
			httpx.JSONError(w, http.StatusBadRequest, msgInvoiceMissing, nil)
			return
		}
		h.storageError(w, "view", err)
		return
	}
	httpx.JSON(w, http.StatusOK, newInvoiceResponse(*inv))
}

// Create: POST /invoices/
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	body, err := readObject(w, r)
	if err != nil {
		if !errors.Is(err, validation.ErrNotObject) {
			httpx.JSONError(w, http.StatusBadRequest, msgInvalidJSON, nil)
			return
		}
		// a JSON array or scalar simply has no customer
		body = validation.Object{}
	}

	in, v := parseCreateInvoice(body)
	if v != nil {
		httpx.JSONField(w, http.StatusBadRequest, v.Field, v.Message)
		return
	}

	inv, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		httpx.JSONMessage(w, http.StatusBadRequest, "error is "+err.Error())
		return
	}
	httpx.JSON(w, http.StatusCreated, createdResponse{ID: inv.ID})
}

// Update: PUT /invoices/{id}/
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, msgInvalidJSON, nil)
		return
	}
	if validation.Empty(data) {
		httpx.JSONError(w, http.StatusBadRequest, msgNoData, nil)
		return
	}
	body, err := validation.DecodeObject(data)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, msgInvalidJSON, nil)
		return
	}
	id, ok := invoiceID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, msgInvoiceMissing, nil)
		return
	}
	// the invoice must exist before any field is looked at
	if _, err := h.Svc.Get(r.Context(), id); err != nil {
		if ierr.IsNotFound(err) {
			httpx.JSONError(w, http.StatusBadRequest, msgInvoiceMissing, nil)
			return
		}
		h.storageError(w, "update", err)
		return
	}

	in, err := parseUpdateInvoice(body)
	if err == nil {
		err = h.Svc.Update(r.Context(), id, in)
	}
	if err != nil {
		if ierr.IsNotFound(err) {
			httpx.JSONError(w, http.StatusBadRequest, msgInvoiceMissing, nil)
			return
		}
		httpx.JSONMessage(w, http.StatusBadRequest, "Db transaction issue "+err.Error())
		return
	}
	httpx.JSONMessage(w, http.StatusOK, msgUpdated)
}

// Delete: DELETE /invoices/{id}/
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := invoiceID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, msgInvoiceMissing, nil)
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		if ierr.IsNotFound(err) {
			httpx.JSONError(w, http.StatusBadRequest, msgInvoiceMissing, nil)
			return
		}
		h.storageError(w, "delete", err)
		return
	}
	httpx.JSONMessage(w, http.StatusNoContent, msgDeleted)
}

func (h *InvoiceHandler) storageError(w http.ResponseWriter, op string, err error) {
	h.log.Errorw("invoice storage failure", "op", op, "error", err)
	httpx.JSONMessage(w, ierr.HTTPStatusFromErr(err), "error is "+err.Error())
}

// invoiceID parses the {id} path value; anything but a positive integer
// cannot name an invoice.
func invoiceID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
}

func readObject(w http.ResponseWriter, r *http.Request) (validation.Object, error) {
	data, err := readBody(w, r)
	if err != nil {
		return nil, err
	}
	return validation.DecodeObject(data)
}
