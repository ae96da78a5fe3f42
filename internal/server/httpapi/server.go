// Package httpapi exposes the service over the gateway HTTP contract and
// orchestrates the three flows: store secret, retrieve secret, nuke account.
// Every flow resolves identity first, then validates the relevant time-boxed
// credential, then acts; terminal failures are converted to a uniform
// status-plus-message response so the caller never sees a partially-applied
// action.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/forgotpw/secretsvc/internal/common"
	"github.com/forgotpw/secretsvc/internal/logging"
	"github.com/forgotpw/secretsvc/internal/server/codes"
	"github.com/forgotpw/secretsvc/internal/server/events"
	"github.com/forgotpw/secretsvc/internal/server/grants"
	"github.com/forgotpw/secretsvc/internal/server/identity"
	"github.com/forgotpw/secretsvc/internal/server/secrets"
)

// VerificationCodeHeader carries the code on store requests.
const VerificationCodeHeader = "x-fpw-verificationcode"

type Server struct {
	address         string
	logger          logging.Logger
	resolver        identity.Resolver
	codes           *codes.Service
	grants          *grants.Service
	secrets         *secrets.Service
	emitter         *events.Emitter
	serviceTokenKey []byte
}

func NewServer(address string, logger logging.Logger, resolver identity.Resolver,
	codeSvc *codes.Service, grantSvc *grants.Service, secretSvc *secrets.Service,
	emitter *events.Emitter, serviceTokenKey string) *Server {
	return &Server{
		address:         address,
		logger:          logger.With("module", "httpapi"),
		resolver:        resolver,
		codes:           codeSvc,
		grants:          grantSvc,
		secrets:         secretSvc,
		emitter:         emitter,
		serviceTokenKey: []byte(serviceTokenKey),
	}
}

// Router wires the gateway routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/v1/secrets", s.handleStoreSecret).Methods(http.MethodPut)
	r.HandleFunc("/v1/secrets", s.handleRetrieveSecret).Methods(http.MethodPost)
	r.HandleFunc("/v1/codes", s.handleSendCode).Methods(http.MethodPost)
	r.HandleFunc("/v1/nuke", s.handleNuke).Methods(http.MethodPost)

	r.HandleFunc("/v1/arid", s.handleIssueGrant).Methods(http.MethodPost)
	r.HandleFunc("/v1/arid/{arid}", s.handleGetAuthorizedRequest).Methods(http.MethodGet)
	r.HandleFunc("/v1/arid/{arid}/secret", s.handleStoreWithGrant).Methods(http.MethodPut)
	r.HandleFunc("/v1/arid/{arid}/secret", s.handleRetrieveWithGrant).Methods(http.MethodPost)

	// the gateway contract reports both unhandled paths and unhandled
	// methods as 405
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s.respondMessage(w, http.StatusMethodNotAllowed, "Unhandled path requested: "+req.URL.Path)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s.respondMessage(w, http.StatusMethodNotAllowed, "Unhandled method requested: "+req.Method)
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) respondMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(messageResponse{Message: message})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// respondError maps the error taxonomy onto gateway status codes. The grant
// not-found/expired distinction is collapsed here: the caller only learns
// that its credential was not accepted.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation), errors.Is(err, common.ErrorMessageInvalid):
		s.respondMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrorCredentialInvalid),
		errors.Is(err, common.ErrorGrantNotFound),
		errors.Is(err, common.ErrorGrantExpired):
		s.respondMessage(w, http.StatusUnauthorized, "Credential presented is not valid or is expired")
	default:
		s.respondMessage(w, http.StatusInternalServerError, "Internal error")
	}
}
