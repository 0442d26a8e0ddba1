package http

import (
	"net/http"

	"github.com/aussiebroadwan/freightdesk/internal/freight/service"
	"github.com/aussiebroadwan/freightdesk/pkg/httpx"
)

type ContactHandler struct {
	Contact *service.ContactService
}

// ServeHTTP handles POST /v1/contact
//
//	@Summary	Send a message to support
//	@Tags		Contact
//	@Accept		json
//	@Produce	json
//	@Success	202	{object}	messageResponse
//	@Failure	400	{object}	httpx.ErrorResponse
//	@Router		/v1/contact [post].
func (h *ContactHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body service.ContactMessage
	if !decode(w, r, &body) {
		return
	}
	if err := h.Contact.Send(r.Context(), body); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, messageResponse{Message: "Thanks, we will be in touch"})
}
