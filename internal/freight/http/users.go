package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/freightdesk/internal/freight/domain"
	"github.com/aussiebroadwan/freightdesk/internal/freight/service"
	"github.com/aussiebroadwan/freightdesk/internal/freight/store"
	"github.com/aussiebroadwan/freightdesk/pkg/httpx"
)

type loginBody struct {
	// Identifier is an email address or a username.
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	TOTPCode   string `json:"totpCode"`
}

type loginResponse struct {
	Token     string   `json:"token"`
	TokenType string   `json:"tokenType"`
	ExpiresIn int      `json:"expiresIn"`
	User      userView `json:"user"`
}

type emailBody struct {
	Email string `json:"email"`
}

type resetBody struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

type changePasswordBody struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type codeBody struct {
	Code string `json:"code"`
}

type passwordBody struct {
	Password string `json:"password"`
}

type messageResponse struct {
	Message string `json:"message"`
	Email   string `json:"email,omitempty"`
}

type kycBody struct {
	Status domain.KYCStatus `json:"status"`
}

type accountStatusBody struct {
	Status domain.AccountStatus `json:"status"`
}

type UserHandler struct {
	Auth          *service.AuthService
	Users         *service.UserService
	MFA           *service.MFAService
	PasswordReset *service.PasswordResetService
	Verification  *service.EmailVerificationService
	TokenTTL      time.Duration
}

// HandleLogin handles POST /v1/users/login
//
//	@Summary		Log in
//	@Description	Accepts an email address or username with the password, plus a TOTP code when two-factor is enabled.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	loginResponse
//	@Failure		400	{object}	httpx.ErrorResponse
//	@Failure		401	{object}	httpx.ErrorResponse
//	@Failure		403	{object}	httpx.ErrorResponse
//	@Router			/v1/users/login [post].
func (h *UserHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if !decode(w, r, &body) {
		return
	}
	identifier := body.Identifier
	if identifier == "" {
		identifier = body.Email
	}
	if identifier == "" {
		identifier = body.Username
	}

	user, err := h.Auth.Authenticate(r.Context(), identifier, body.Password, body.TOTPCode)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	token, err := h.Auth.IssueToken(r.Context(), user)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int(h.TokenTTL.Seconds()),
		User:      newUserView(user),
	})
}

// HandleForgotPassword handles POST /v1/users/forgot-password
//
//	@Summary		Request a password reset code
//	@Description	Always answers 200 for well-formed addresses so account existence is not revealed.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	messageResponse
//	@Failure		400	{object}	httpx.ErrorResponse
//	@Failure		429	{object}	httpx.ErrorResponse
//	@Router			/v1/users/forgot-password [post].
func (h *UserHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	h.sendResetCode(w, r, h.PasswordReset.Forgot)
}

// HandleResendResetCode handles POST /v1/users/resend-reset-code
func (h *UserHandler) HandleResendResetCode(w http.ResponseWriter, r *http.Request) {
	h.sendResetCode(w, r, h.PasswordReset.Resend)
}

func (h *UserHandler) sendResetCode(
	w http.ResponseWriter,
	r *http.Request,
	send func(ctx context.Context, email string) (string, error),
) {
	var body emailBody
	if !decode(w, r, &body) {
		return
	}
	masked, err := send(r.Context(), body.Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, messageResponse{
		Message: "If an account exists for this address, a reset code has been sent",
		Email:   masked,
	})
}

// HandleResetPassword handles POST /v1/users/reset-password
//
//	@Summary	Reset a password with an emailed code
//	@Tags		Users
//	@Accept		json
//	@Produce	json
//	@Success	200	{object}	messageResponse
//	@Failure	400	{object}	httpx.ErrorResponse
//	@Router		/v1/users/reset-password [post].
func (h *UserHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var body resetBody
	if !decode(w, r, &body) {
		return
	}
	if err := h.PasswordReset.Reset(r.Context(), body.Email, strings.TrimSpace(body.Code), body.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "Password has been reset"})
}

// HandleMe handles GET /v1/users/me
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	p := principal(r.Context())
	user, err := h.Users.Get(r.Context(), p, p.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newUserView(user))
}

// HandleUpdateMe handles PUT /v1/users/me
func (h *UserHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var body service.ProfileUpdate
	if !decode(w, r, &body) {
		return
	}
	user, err := h.Users.UpdateProfile(r.Context(), principal(r.Context()).UserID, body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newUserView(user))
}

// HandleChangePassword handles POST /v1/users/me/password
func (h *UserHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var body changePasswordBody
	if !decode(w, r, &body) {
		return
	}
	err := h.Users.ChangePassword(r.Context(), principal(r.Context()).UserID, body.CurrentPassword, body.NewPassword)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "Password changed"})
}

// HandleRequestVerification handles POST /v1/users/me/verify-email/request
func (h *UserHandler) HandleRequestVerification(w http.ResponseWriter, r *http.Request) {
	if err := h.Verification.Request(r.Context(), principal(r.Context()).UserID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "Verification code sent"})
}

// HandleConfirmVerification handles POST /v1/users/me/verify-email
func (h *UserHandler) HandleConfirmVerification(w http.ResponseWriter, r *http.Request) {
	var body codeBody
	if !decode(w, r, &body) {
		return
	}
	if err := h.Verification.Confirm(r.Context(), principal(r.Context()).UserID, strings.TrimSpace(body.Code)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "Email address verified"})
}

// HandleMFAEnrol handles POST /v1/users/me/mfa/enrol
//
//	@Summary		Start two-factor enrolment
//	@Description	Returns the TOTP secret and otpauth URL once. Two-factor stays off until confirmed.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	service.MFAEnrolment
//	@Failure		409	{object}	httpx.ErrorResponse
//	@Router			/v1/users/me/mfa/enrol [post].
func (h *UserHandler) HandleMFAEnrol(w http.ResponseWriter, r *http.Request) {
	enrolment, err := h.MFA.Enrol(r.Context(), principal(r.Context()).UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, enrolment)
}

// HandleMFAConfirm handles POST /v1/users/me/mfa/confirm
func (h *UserHandler) HandleMFAConfirm(w http.ResponseWriter, r *http.Request) {
	var body codeBody
	if !decode(w, r, &body) {
		return
	}
	if err := h.MFA.Confirm(r.Context(), principal(r.Context()).UserID, strings.TrimSpace(body.Code)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "Two-factor authentication enabled"})
}

// HandleMFADisable handles POST /v1/users/me/mfa/disable
func (h *UserHandler) HandleMFADisable(w http.ResponseWriter, r *http.Request) {
	var body passwordBody
	if !decode(w, r, &body) {
		return
	}
	if err := h.MFA.Disable(r.Context(), principal(r.Context()).UserID, body.Password); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: "Two-factor authentication disabled"})
}

// HandleCreate handles POST /v1/users
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var body service.UserInput
	if !decode(w, r, &body) {
		return
	}
	user, err := h.Users.CreateUser(r.Context(), principal(r.Context()), body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, newUserView(user))
}

// HandleList handles GET /v1/users
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, limit := httpx.Pagination(r, 20, 100)
	users, total, err := h.Users.List(r.Context(), principal(r.Context()), store.Page{Page: page, Limit: limit})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newPage(users, newUserView, total, page, limit))
}

// HandleGet handles GET /v1/users/{id}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.Users.Get(r.Context(), principal(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newUserView(user))
}

// HandleDelete handles DELETE /v1/users/{id}
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.Users.Delete(r.Context(), principal(r.Context()), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSetKYC handles PUT /v1/users/{id}/kyc
func (h *UserHandler) HandleSetKYC(w http.ResponseWriter, r *http.Request) {
	var body kycBody
	if !decode(w, r, &body) {
		return
	}
	user, err := h.Users.SetKYCStatus(r.Context(), principal(r.Context()), r.PathValue("id"), body.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newUserView(user))
}

// HandleSetStatus handles PUT /v1/users/{id}/status
func (h *UserHandler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	var body accountStatusBody
	if !decode(w, r, &body) {
		return
	}
	user, err := h.Users.SetAccountStatus(r.Context(), principal(r.Context()), r.PathValue("id"), body.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newUserView(user))
}
