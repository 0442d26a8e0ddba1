package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/freightdesk/internal/freight/domain"
	"github.com/aussiebroadwan/freightdesk/internal/freight/service"
	"github.com/aussiebroadwan/freightdesk/internal/freight/store"
	"github.com/aussiebroadwan/freightdesk/pkg/httpx"
	"github.com/aussiebroadwan/freightdesk/pkg/idx"
)

// flexDate accepts "2006-01-02" as well as RFC 3339 timestamps.
type flexDate struct{ time.Time }

func (d *flexDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		d.Time = t.UTC()
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("invalid date %q, want YYYY-MM-DD or RFC 3339", s)
	}
	d.Time = t.UTC()
	return nil
}

func (d *flexDate) ptr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

type quoteRequestBody struct {
	Customer            domain.Contact     `json:"customer"`
	Origin              domain.Location    `json:"origin"`
	Destination         domain.Location    `json:"destination"`
	Package             domain.Package     `json:"package"`
	ServiceType         domain.ServiceType `json:"serviceType"`
	Urgency             domain.Urgency     `json:"urgency"`
	PreferredDate       *flexDate          `json:"preferredDate"`
	SpecialInstructions string             `json:"specialInstructions"`
}

type quoteUpdateBody struct {
	QuotedPrice       *domain.Money       `json:"quotedPrice"`
	EstimatedDelivery *flexDate           `json:"estimatedDelivery"`
	Status            *domain.QuoteStatus `json:"status"`
	AdminNotes        *string             `json:"adminNotes"`
}

type quoteCreatedResponse struct {
	QuoteNumber string    `json:"quoteNumber"`
	Quote       quoteView `json:"quote"`
}

type QuoteHandler struct {
	Quotes *service.QuoteService
}

// HandleRequest handles POST /v1/quotes/request
//
//	@Summary		Request a quote
//	@Description	Public endpoint. Records a pending quote request and emails a confirmation.
//	@Tags			Quotes
//	@Accept			json
//	@Produce		json
//	@Success		201	{object}	quoteCreatedResponse
//	@Failure		400	{object}	httpx.ErrorResponse
//	@Router			/v1/quotes/request [post].
func (h *QuoteHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	var body quoteRequestBody
	if !decode(w, r, &body) {
		return
	}

	q, err := h.Quotes.Submit(r.Context(), service.QuoteInput{
		Customer:            body.Customer,
		Origin:              body.Origin,
		Destination:         body.Destination,
		Package:             body.Package,
		ServiceType:         body.ServiceType,
		Urgency:             body.Urgency,
		PreferredDate:       body.PreferredDate.ptr(),
		SpecialInstructions: body.SpecialInstructions,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, quoteCreatedResponse{QuoteNumber: q.QuoteNumber, Quote: publicQuoteView(q)})
}

// HandleTrack handles GET /v1/quotes/track/{quoteNumber}
//
//	@Summary	Look up a quote by number
//	@Tags		Quotes
//	@Produce	json
//	@Param		quoteNumber	path		string	true	"Quote number"
//	@Success	200			{object}	quoteView
//	@Failure	404			{object}	httpx.ErrorResponse
//	@Router		/v1/quotes/track/{quoteNumber} [get].
func (h *QuoteHandler) HandleTrack(w http.ResponseWriter, r *http.Request) {
	number := r.PathValue("quoteNumber")
	if !idx.HasPrefix(number, service.QuoteNumberPrefix) {
		writeServiceError(w, r, service.ErrNotFound)
		return
	}
	q, err := h.Quotes.Lookup(r.Context(), number)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, publicQuoteView(q))
}

// HandleAccept handles POST /v1/quotes/track/{quoteNumber}/accept
func (h *QuoteHandler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, true)
}

// HandleDecline handles POST /v1/quotes/track/{quoteNumber}/decline
func (h *QuoteHandler) HandleDecline(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, false)
}

func (h *QuoteHandler) respond(w http.ResponseWriter, r *http.Request, accept bool) {
	number := r.PathValue("quoteNumber")
	if !idx.HasPrefix(number, service.QuoteNumberPrefix) {
		writeServiceError(w, r, service.ErrNotFound)
		return
	}
	q, err := h.Quotes.Respond(r.Context(), number, accept)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, publicQuoteView(q))
}

// HandleList handles GET /v1/quotes
//
//	@Summary	List quotes
//	@Tags		Quotes
//	@Security	BearerAuth
//	@Produce	json
//	@Param		status	query		string	false	"Effective status filter"
//	@Param		page	query		int		false	"Page (1-based)"
//	@Param		limit	query		int		false	"Page size (max 100)"
//	@Success	200		{object}	pageView[quoteView]
//	@Failure	401		{object}	httpx.ErrorResponse
//	@Failure	403		{object}	httpx.ErrorResponse
//	@Router		/v1/quotes [get].
func (h *QuoteHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, limit := httpx.Pagination(r, 20, 100)
	quotes, total, err := h.Quotes.List(r.Context(), principal(r.Context()), service.QuoteFilter{
		Status: domain.QuoteStatus(r.URL.Query().Get("status")),
		Page:   store.Page{Page: page, Limit: limit},
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newPage(quotes, newQuoteView, total, page, limit))
}

type quoteStatsResponse struct {
	Total     int                        `json:"total"`
	ThisMonth int                        `json:"thisMonth"`
	ByStatus  map[domain.QuoteStatus]int `json:"byStatus"`
}

// HandleStats handles GET /v1/quotes/stats
func (h *QuoteHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Quotes.Stats(r.Context(), principal(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, quoteStatsResponse(stats))
}

// HandleGet handles GET /v1/quotes/{id}
func (h *QuoteHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	q, err := h.Quotes.Get(r.Context(), principal(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newQuoteView(q))
}

// HandleUpdate handles PUT /v1/quotes/{id}
//
//	@Summary		Update a quote
//	@Description	Prices a quote or changes its status. The first move to quoted records who priced it.
//	@Tags			Quotes
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id	path		string	true	"Quote id"
//	@Success		200	{object}	quoteView
//	@Failure		400	{object}	httpx.ErrorResponse
//	@Failure		404	{object}	httpx.ErrorResponse
//	@Failure		409	{object}	httpx.ErrorResponse
//	@Router			/v1/quotes/{id} [put].
func (h *QuoteHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var body quoteUpdateBody
	if !decode(w, r, &body) {
		return
	}
	q, err := h.Quotes.Update(r.Context(), principal(r.Context()), r.PathValue("id"), service.QuoteUpdate{
		QuotedPrice:       body.QuotedPrice,
		EstimatedDelivery: body.EstimatedDelivery.ptr(),
		Status:            body.Status,
		AdminNotes:        body.AdminNotes,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newQuoteView(q))
}

// HandleDelete handles DELETE /v1/quotes/{id}
func (h *QuoteHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.Quotes.Delete(r.Context(), principal(r.Context()), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
