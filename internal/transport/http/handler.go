// Package httptransport is the thin HTTP adapter over the enforcement core.
// Handlers decode, delegate and encode; business logic stays in the services.
package httptransport

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"veil/internal/audit"
	"veil/internal/consent"
	"veil/internal/domain"
	"veil/internal/policy"
	dErrors "veil/pkg/domain-errors"
	"veil/pkg/httputil"
	"veil/pkg/sentinel"
)

// Enforcer runs the full enforcement pipeline for one data record.
type Enforcer interface {
	ProcessDataRecord(ctx context.Context, userID, policyID, version string, record map[string]any, purpose domain.Purpose, thirdParty string) (map[string]any, domain.EnforcementStatus, error)
}

// ConsentService is the consent lifecycle surface the handlers need.
type ConsentService interface {
	Add(ctx context.Context, c *consent.Consent) error
	Revoke(ctx context.Context, userID, policyID, consentID string) error
	History(ctx context.Context, userID, policyID string) ([]*consent.Consent, error)
	AllForUser(ctx context.Context, userID string) ([]*consent.Consent, error)
}

// AuditVerifier checks the integrity of the audit chain.
type AuditVerifier interface {
	Verify(ctx context.Context) (int, error)
}

// Handler wires all endpoints to the enforcement services.
type Handler struct {
	enforcer Enforcer
	policies policy.Store
	consents ConsentService
	trail    audit.Appender
	verifier AuditVerifier
	logger   *zap.Logger
}

// New constructs a Handler with its dependencies.
func New(enforcer Enforcer, policies policy.Store, consents ConsentService, trail audit.Appender, verifier AuditVerifier, logger *zap.Logger) *Handler {
	return &Handler{
		enforcer: enforcer,
		policies: policies,
		consents: consents,
		trail:    trail,
		verifier: verifier,
		logger:   logger,
	}
}

// Register mounts all endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/enforce", h.handleEnforce)

	r.Post("/policies", h.handleSavePolicy)
	r.Get("/policies/{policyID}", h.handleGetPolicy)
	r.Get("/policies/{policyID}/versions", h.handlePolicyVersions)

	r.Post("/consents", h.handleGrantConsent)
	r.Post("/consents/revoke", h.handleRevokeConsent)
	r.Get("/consents/{userID}", h.handleListConsents)

	r.Get("/audit/verify", h.handleAuditVerify)
}

// handleEnforce runs one record through the enforcement pipeline. The
// response always carries a safe record: pipeline faults degrade to an
// obfuscated record with an error status rather than a failed request.
func (h *Handler) handleEnforce(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[EnforceRequest](w, r, h.logger)
	if !ok {
		return
	}

	out, status, err := h.enforcer.ProcessDataRecord(ctx,
		req.UserID, req.PolicyID, req.PolicyVersion,
		req.Record, req.ParsedPurpose(), req.ThirdParty)
	if err != nil {
		h.logger.Error("enforcement degraded",
			zap.String("user_id", req.UserID),
			zap.String("policy_id", req.PolicyID),
			zap.Error(err))
	}

	httputil.WriteJSON(w, http.StatusOK, EnforceResponse{
		Record: out,
		Status: status.String(),
	})
}

func (h *Handler) handleSavePolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[SavePolicyRequest](w, r, h.logger)
	if !ok {
		return
	}

	if err := h.policies.Save(ctx, &req.Policy); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeConflict,
				"policy version already exists"))
			return
		}
		h.logger.Error("save policy failed",
			zap.String("policy_id", req.PolicyID), zap.Error(err))
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to save policy"))
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, req.Policy)
}

func (h *Handler) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	policyID := chi.URLParam(r, "policyID")
	version := r.URL.Query().Get("version")

	p, err := h.policies.Load(ctx, policyID, version)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "policy not found"))
			return
		}
		h.logger.Error("load policy failed",
			zap.String("policy_id", policyID), zap.Error(err))
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to load policy"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handlePolicyVersions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	policyID := chi.URLParam(r, "policyID")

	versions, err := h.policies.Versions(ctx, policyID)
	if err != nil {
		h.logger.Error("list policy versions failed",
			zap.String("policy_id", policyID), zap.Error(err))
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to list versions"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, VersionsResponse{
		PolicyID: policyID,
		Versions: versions,
	})
}

func (h *Handler) handleGrantConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[GrantConsentRequest](w, r, h.logger)
	if !ok {
		return
	}

	c := req.Consent
	if err := h.consents.Add(ctx, &c); err != nil {
		if dErrors.HasCode(err, dErrors.CodeValidation) || dErrors.HasCode(err, dErrors.CodeInvalidInput) {
			httputil.WriteError(w, err)
			return
		}
		h.logger.Error("grant consent failed",
			zap.String("user_id", c.UserID), zap.Error(err))
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to grant consent"))
		return
	}

	h.appendConsentEvent(ctx, audit.EventConsentGranted, &c)

	httputil.WriteJSON(w, http.StatusCreated, GrantConsentResponse{
		ConsentID: c.ConsentID,
		Signature: c.Signature,
	})
}

func (h *Handler) handleRevokeConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[RevokeConsentRequest](w, r, h.logger)
	if !ok {
		return
	}

	if err := h.consents.Revoke(ctx, req.UserID, req.PolicyID, req.ConsentID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no matching consent"))
			return
		}
		h.logger.Error("revoke consent failed",
			zap.String("user_id", req.UserID), zap.Error(err))
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to revoke consent"))
		return
	}

	h.appendConsentEvent(ctx, audit.EventConsentRevoked, &consent.Consent{
		ConsentID: req.ConsentID,
		UserID:    req.UserID,
		PolicyID:  req.PolicyID,
	})

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListConsents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userID")
	policyID := r.URL.Query().Get("policy_id")

	var (
		consents []*consent.Consent
		err      error
	)
	if policyID != "" {
		consents, err = h.consents.History(ctx, userID, policyID)
	} else {
		consents, err = h.consents.AllForUser(ctx, userID)
	}
	if err != nil {
		h.logger.Error("list consents failed",
			zap.String("user_id", userID), zap.Error(err))
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to list consents"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, consents)
}

func (h *Handler) handleAuditVerify(w http.ResponseWriter, r *http.Request) {
	count, err := h.verifier.Verify(r.Context())
	resp := VerifyResponse{Valid: err == nil, EntriesVerified: count}
	if err != nil {
		resp.Error = err.Error()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// appendConsentEvent records a consent lifecycle change in the audit chain.
// Failures are logged, not surfaced: the consent change itself is already
// durable.
func (h *Handler) appendConsentEvent(ctx context.Context, eventType string, c *consent.Consent) {
	if h.trail == nil {
		return
	}
	_, err := h.trail.Append(ctx, audit.Entry{
		EventType:     eventType,
		UserID:        c.UserID,
		PolicyID:      c.PolicyID,
		PolicyVersion: c.PolicyVersion,
		ConsentID:     c.ConsentID,
		Status:        eventType,
	})
	if err != nil {
		h.logger.Warn("audit append for consent event failed",
			zap.String("event_type", eventType),
			zap.String("user_id", c.UserID),
			zap.Error(err))
	}
}
