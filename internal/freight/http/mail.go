package http

import (
	"net/http"

	"github.com/aussiebroadwan/freightdesk/internal/freight/service"
	"github.com/aussiebroadwan/freightdesk/pkg/httpx"
)

type MailHandler struct {
	Mail *service.MailService
}

type customersResponse struct {
	Total     int                 `json:"total"`
	Customers []service.Recipient `json:"customers"`
}

// HandleCustomers handles GET /v1/mail/customers
//
//	@Summary	List customer addresses for a campaign
//	@Tags		Mail
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	customersResponse
//	@Failure	403	{object}	httpx.ErrorResponse
//	@Router		/v1/mail/customers [get].
func (h *MailHandler) HandleCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.Mail.Customers(r.Context(), principal(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if customers == nil {
		customers = []service.Recipient{}
	}
	httpx.WriteJSON(w, http.StatusOK, customersResponse{Total: len(customers), Customers: customers})
}

// HandleSend handles POST /v1/mail/send
//
//	@Summary	Email selected customers, or all of them
//	@Tags		Mail
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Success	202	{object}	service.CampaignResult
//	@Failure	400	{object}	httpx.ErrorResponse
//	@Failure	403	{object}	httpx.ErrorResponse
//	@Router		/v1/mail/send [post].
func (h *MailHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var body service.Campaign
	if !decode(w, r, &body) {
		return
	}
	res, err := h.Mail.Send(r.Context(), principal(r.Context()), body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, res)
}
