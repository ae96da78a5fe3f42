package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/forgotpw/secretsvc/internal/common"
	"github.com/forgotpw/secretsvc/internal/normalize"
	"github.com/forgotpw/secretsvc/internal/server/auth"
	"github.com/forgotpw/secretsvc/internal/server/events"
)

type storeRequest struct {
	Application string `json:"application"`
	Secret      string `json:"secret"`
	Phone       string `json:"phone"`
}

type retrieveRequest struct {
	Application string `json:"application"`
	Phone       string `json:"phone"`
}

type sendCodeRequest struct {
	Phone string `json:"phone"`
}

type nukeRequest struct {
	Phone            string `json:"phone"`
	VerificationCode string `json:"verificationCode"`
}

type issueGrantRequest struct {
	UserToken   string `json:"userToken"`
	Application string `json:"application"`
	IsFirstTime bool   `json:"isFirstTime"`
}

type grantSecretRequest struct {
	Secret string `json:"secret"`
}

type secretResponse struct {
	Secret         string `json:"secret"`
	RawApplication string `json:"rawApplication"`
}

type grantSecretResponse struct {
	Secret         string `json:"secret"`
	RawApplication string `json:"rawApplication"`
	IsFirstTime    bool   `json:"isFirstTime"`
}

type authorizedRequestResponse struct {
	ExpireEpoch           int64  `json:"expireEpoch"`
	UserToken             string `json:"userToken"`
	RawApplication        string `json:"rawApplication"`
	NormalizedApplication string `json:"normalizedApplication"`
	IsFirstTime           bool   `json:"isFirstTime"`
}

type issueGrantResponse struct {
	AridID      string `json:"aridId"`
	ExpireEpoch int64  `json:"expireEpoch"`
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body", common.ErrorValidation)
	}
	return nil
}

func checkLen(field, value string, min, max int) error {
	if len(value) < min || len(value) > max {
		return fmt.Errorf("%w: field %s length %d outside [%d,%d]",
			common.ErrorValidation, field, len(value), min, max)
	}
	return nil
}

// handleStoreSecret is the phone-originated store flow: payload validation,
// identity resolution, verification-code check, then the store event.
func (s *Server) handleStoreSecret(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req storeRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if err := checkLen("application", req.Application, 2, 256); err != nil {
		s.logger.Error(ctx, "store secret payload invalid", "error", err.Error())
		s.respondError(w, err)
		return
	}
	if err := checkLen("secret", req.Secret, 3, 256); err != nil {
		s.logger.Error(ctx, "store secret payload invalid", "error", err.Error())
		s.respondError(w, err)
		return
	}
	if err := checkLen("phone", req.Phone, 10, 32); err != nil {
		s.logger.Error(ctx, "store secret payload invalid", "error", err.Error())
		s.respondError(w, err)
		return
	}

	code := r.Header.Get(VerificationCodeHeader)
	if len(code) < 4 || len(code) > 10 {
		s.logger.Warn(ctx, "verification code header missing or malformed")
		s.respondError(w, common.ErrorCredentialInvalid)
		return
	}

	userToken, err := s.resolver.TokenFromPhone(ctx, req.Phone)
	if err != nil {
		s.logger.Error(ctx, "identity resolution failed", "error", err.Error())
		s.respondError(w, err)
		return
	}

	valid, err := s.codes.Validate(ctx, code, userToken)
	if err != nil {
		s.logger.Error(ctx, "verification code check failed", "error", err.Error())
		s.respondError(w, err)
		return
	}
	if !valid {
		s.logger.Warn(ctx, "verification code presented is not valid or is expired")
		s.respondError(w, common.ErrorCredentialInvalid)
		return
	}

	if err := s.secrets.Store(ctx, req.Secret, req.Application, userToken); err != nil {
		s.respondError(w, err)
		return
	}

	s.respondMessage(w, http.StatusOK, "Successfully posted event")
}

// handleRetrieveSecret is the direct retrieve flow. It deliberately requires
// no verification code: the phone-to-token resolution alone gates it, which
// mirrors the user-initiated retrieval policy of the gateway contract.
func (s *Server) handleRetrieveSecret(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req retrieveRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if err := checkLen("application", req.Application, 2, 256); err != nil {
		s.logger.Error(ctx, "retrieve secret payload invalid", "error", err.Error())
		s.respondError(w, err)
		return
	}
	if err := checkLen("phone", req.Phone, 10, 32); err != nil {
		s.logger.Error(ctx, "retrieve secret payload invalid", "error", err.Error())
		s.respondError(w, err)
		return
	}

	userToken, err := s.resolver.TokenFromPhone(ctx, req.Phone)
	if err != nil {
		s.logger.Error(ctx, "identity resolution failed", "error", err.Error())
		s.respondError(w, err)
		return
	}

	rec, err := s.secrets.Disclose(ctx, normalize.Application(req.Application), req.Application, userToken)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, secretResponse{
		Secret:         rec.Secret,
		RawApplication: rec.RawApplication,
	})
}

func (s *Server) handleSendCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req sendCodeRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if err := checkLen("phone", req.Phone, 10, 32); err != nil {
		s.logger.Error(ctx, "send code payload invalid", "error", err.Error())
		s.respondError(w, err)
		return
	}

	userToken, err := s.resolver.TokenFromPhone(ctx, req.Phone)
	if err != nil {
		s.logger.Error(ctx, "identity resolution failed", "error", err.Error())
		s.respondError(w, err)
		return
	}

	if err := s.codes.Issue(ctx, userToken); err != nil {
		s.respondError(w, err)
		return
	}

	s.respondMessage(w, http.StatusOK, "Successfully posted event")
}

// handleNuke triggers the irreversible account nuke. Always code-gated;
// deletion itself happens out-of-band in the event consumers.
func (s *Server) handleNuke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req nukeRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if err := checkLen("phone", req.Phone, 10, 32); err != nil {
		s.logger.Error(ctx, "nuke payload invalid", "error", err.Error())
		s.respondError(w, err)
		return
	}
	if err := checkLen("verificationCode", req.VerificationCode, 4, 10); err != nil {
		s.logger.Warn(ctx, "nuke verification code missing or malformed")
		s.respondError(w, common.ErrorCredentialInvalid)
		return
	}

	userToken, err := s.resolver.TokenFromPhone(ctx, req.Phone)
	if err != nil {
		s.logger.Error(ctx, "identity resolution failed", "error", err.Error())
		s.respondError(w, err)
		return
	}

	valid, err := s.codes.Validate(ctx, req.VerificationCode, userToken)
	if err != nil {
		s.logger.Error(ctx, "verification code check failed", "error", err.Error())
		s.respondError(w, err)
		return
	}
	if !valid {
		s.logger.Warn(ctx, "verification code presented is not valid or is expired")
		s.respondError(w, common.ErrorCredentialInvalid)
		return
	}

	if err := s.emitter.Emit(ctx, events.NewNukeEvent(userToken)); err != nil {
		s.respondError(w, err)
		return
	}

	s.respondMessage(w, http.StatusOK, "Successfully posted event")
}

func (s *Server) handleGetAuthorizedRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	aridID := mux.Vars(r)["arid"]

	s.logger.Info(ctx, "retrieving authorized request", "arid", aridID)

	grant, err := s.grants.Resolve(ctx, aridID)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, authorizedRequestResponse{
		ExpireEpoch:           grant.ExpireEpoch,
		UserToken:             grant.UserToken,
		RawApplication:        grant.RawApplication,
		NormalizedApplication: grant.NormalizedApplication,
		IsFirstTime:           grant.IsFirstTime,
	})
}

func (s *Server) handleStoreWithGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	aridID := mux.Vars(r)["arid"]

	var req grantSecretRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if err := checkLen("secret", req.Secret, 3, 256); err != nil {
		s.logger.Error(ctx, "grant store payload invalid", "error", err.Error())
		s.respondError(w, err)
		return
	}

	if err := s.secrets.StoreFromGrant(ctx, aridID, req.Secret); err != nil {
		s.respondError(w, err)
		return
	}

	s.respondMessage(w, http.StatusOK, "Successfully posted event")
}

func (s *Server) handleRetrieveWithGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	aridID := mux.Vars(r)["arid"]

	rec, grant, err := s.secrets.RetrieveFromGrant(ctx, aridID)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, grantSecretResponse{
		Secret:         rec.Secret,
		RawApplication: rec.RawApplication,
		IsFirstTime:    grant.IsFirstTime,
	})
}

// handleIssueGrant mints a new grant. Only internal services holding a valid
// service token may call this.
func (s *Server) handleIssueGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	service, err := s.serviceFromRequest(r)
	if err != nil {
		s.logger.Warn(ctx, "grant issuance with invalid service token")
		s.respondError(w, err)
		return
	}

	var req issueGrantRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if err := checkLen("userToken", req.UserToken, 20, 100); err != nil {
		s.respondError(w, err)
		return
	}
	if err := checkLen("application", req.Application, 2, 256); err != nil {
		s.respondError(w, err)
		return
	}

	grant, err := s.grants.Issue(ctx, req.UserToken, req.Application, req.IsFirstTime)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.logger.Info(ctx, "grant issued", "arid", grant.AridID, "issuer", service)
	s.respondJSON(w, http.StatusCreated, issueGrantResponse{
		AridID:      grant.AridID,
		ExpireEpoch: grant.ExpireEpoch,
	})
}

func (s *Server) serviceFromRequest(r *http.Request) (string, error) {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) <= len(prefix) || h[:len(prefix)] != prefix {
		return "", common.ErrorCredentialInvalid
	}
	return auth.ServiceFromToken(h[len(prefix):], s.serviceTokenKey)
}

