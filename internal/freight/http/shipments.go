package http

import (
	"net/http"

	"github.com/aussiebroadwan/freightdesk/internal/freight/domain"
	"github.com/aussiebroadwan/freightdesk/internal/freight/service"
	"github.com/aussiebroadwan/freightdesk/internal/freight/store"
	"github.com/aussiebroadwan/freightdesk/pkg/httpx"
	"github.com/aussiebroadwan/freightdesk/pkg/idx"
)

type shipmentCreatedResponse struct {
	TrackingNumber string       `json:"trackingNumber"`
	Shipment       shipmentView `json:"shipment"`
}

type noteBody struct {
	Note string `json:"note"`
}

type ShipmentHandler struct {
	Shipments *service.ShipmentService
}

// HandleCreate handles POST /v1/shipments
//
//	@Summary	Create a shipment
//	@Tags		Shipments
//	@Security	BearerAuth
//	@Accept		json
//	@Produce	json
//	@Success	201	{object}	shipmentCreatedResponse
//	@Failure	400	{object}	httpx.ErrorResponse
//	@Failure	401	{object}	httpx.ErrorResponse
//	@Router		/v1/shipments [post].
func (h *ShipmentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var body domain.ShipmentDetails
	if !decode(w, r, &body) {
		return
	}
	sh, err := h.Shipments.Create(r.Context(), principal(r.Context()), body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, shipmentCreatedResponse{
		TrackingNumber: sh.TrackingNumber,
		Shipment:       newShipmentView(sh),
	})
}

// HandleTrack handles GET /v1/shipments/track/{trackingNumber}
//
//	@Summary	Track a shipment
//	@Tags		Shipments
//	@Produce	json
//	@Param		trackingNumber	path		string	true	"Tracking number"
//	@Success	200				{object}	shipmentView
//	@Failure	404				{object}	httpx.ErrorResponse
//	@Router		/v1/shipments/track/{trackingNumber} [get].
func (h *ShipmentHandler) HandleTrack(w http.ResponseWriter, r *http.Request) {
	number := r.PathValue("trackingNumber")
	if !idx.HasPrefix(number, service.TrackingNumberPrefix) {
		writeServiceError(w, r, service.ErrNotFound)
		return
	}
	sh, err := h.Shipments.Lookup(r.Context(), number)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, publicShipmentView(sh))
}

// HandleList handles GET /v1/shipments
func (h *ShipmentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, limit := httpx.Pagination(r, 20, 100)
	list, total, err := h.Shipments.List(r.Context(), principal(r.Context()), service.ShipmentFilter{
		Status: domain.ShipmentStatus(r.URL.Query().Get("status")),
		Page:   store.Page{Page: page, Limit: limit},
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newPage(list, newShipmentView, total, page, limit))
}

// HandleGet handles GET /v1/shipments/{id}
func (h *ShipmentHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sh, err := h.Shipments.Get(r.Context(), principal(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newShipmentView(sh))
}

// HandleReplace handles PUT /v1/shipments/{id}
//
//	@Summary		Replace shipment metadata
//	@Description	Replaces sender, recipient, package, service and driver. Status and history are rejected here.
//	@Tags			Shipments
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id	path		string	true	"Shipment id"
//	@Success		200	{object}	shipmentView
//	@Failure		400	{object}	httpx.ErrorResponse
//	@Failure		409	{object}	httpx.ErrorResponse
//	@Router			/v1/shipments/{id} [put].
func (h *ShipmentHandler) HandleReplace(w http.ResponseWriter, r *http.Request) {
	var body service.MetadataUpdate
	if !decode(w, r, &body) {
		return
	}
	sh, err := h.Shipments.ReplaceMetadata(r.Context(), principal(r.Context()), r.PathValue("id"), body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newShipmentView(sh))
}

// HandleStatus handles PUT /v1/shipments/{id}/status
//
//	@Summary	Record a tracking event
//	@Tags		Shipments
//	@Security	BearerAuth
//	@Accept		json
//	@Produce	json
//	@Param		id	path		string	true	"Shipment id"
//	@Success	200	{object}	shipmentView
//	@Failure	400	{object}	httpx.ErrorResponse
//	@Failure	409	{object}	httpx.ErrorResponse
//	@Router		/v1/shipments/{id}/status [put].
func (h *ShipmentHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	var body service.EventInput
	if !decode(w, r, &body) {
		return
	}
	sh, err := h.Shipments.AppendEvent(r.Context(), principal(r.Context()), r.PathValue("id"), body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newShipmentView(sh))
}

// HandleAddNote handles POST /v1/shipments/{id}/notes
func (h *ShipmentHandler) HandleAddNote(w http.ResponseWriter, r *http.Request) {
	var body noteBody
	if !decode(w, r, &body) {
		return
	}
	note, err := h.Shipments.AddNote(r.Context(), principal(r.Context()), r.PathValue("id"), body.Note)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, note)
}

// HandleDelete handles DELETE /v1/shipments/{id}
func (h *ShipmentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.Shipments.Delete(r.Context(), principal(r.Context()), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
