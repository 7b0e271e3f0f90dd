package enforce

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"veil/internal/audit"
	"veil/internal/consent"
	"veil/internal/domain"
	"veil/internal/enforce/metrics"
	"veil/internal/obfuscate"
	"veil/internal/policy"
	"veil/pkg/sentinel"
)

// PolicyLoader resolves a policy version; "" means latest.
type PolicyLoader interface {
	Load(ctx context.Context, policyID, version string) (*policy.Policy, error)
}

// ConsentResolver resolves "the" active consent for a (user, policy) pair.
type ConsentResolver interface {
	ActiveConsent(ctx context.Context, userID, policyID string) (*consent.Consent, error)
}

// Engine applies per-field authorization and obfuscation.
type Engine interface {
	Process(ctx context.Context, record map[string]any, p *policy.Policy, c *consent.Consent, purpose domain.Purpose, thirdParty string) (map[string]any, []obfuscate.FieldDecision, error)
	ObfuscateAll(ctx context.Context, record map[string]any) (map[string]any, []obfuscate.FieldDecision, error)
}

// Auditor records one entry per enforcement decision.
type Auditor interface {
	Append(ctx context.Context, e audit.Entry) (*audit.Entry, error)
}

// Enforcer orchestrates policy lookup, consent resolution, per-field
// obfuscation, and audit into one pipeline. It is the only component
// coordinating I/O across the others and the sole public entry point.
type Enforcer struct {
	policies PolicyLoader
	consents ConsentResolver
	engine   Engine
	auditor  Auditor
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	log      *zap.Logger
}

// Option configures an Enforcer.
type Option func(*Enforcer)

// WithMetrics installs the prometheus metrics set.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Enforcer) { e.metrics = m }
}

func New(policies PolicyLoader, consents ConsentResolver, engine Engine, auditor Auditor, log *zap.Logger, opts ...Option) *Enforcer {
	e := &Enforcer{
		policies: policies,
		consents: consents,
		engine:   engine,
		auditor:  auditor,
		tracer:   otel.Tracer("veil/enforce"),
		log:      log,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// ProcessDataRecord runs the full pipeline for one record:
//
//  1. Load the policy; a missing policy means every field is
//     fallback-obfuscated and the status is policy_not_found.
//  2. Resolve the active consent; absence runs the engine with a nil consent,
//     which denies every field, and reports no_active_consent.
//  3. Otherwise process with the resolved consent and report allowed_raw when
//     the output is identical to the input, allowed_transformed otherwise.
//  4. In every branch, append an audit entry carrying hashes of the input and
//     output records - never raw values.
//
// The returned record always has the same shape as the input. The error
// return is reserved for I/O failures (including a failed audit append, which
// must not be treated as success); every other fault degrades to a defined
// status with a best-effort obfuscated record.
func (e *Enforcer) ProcessDataRecord(
	ctx context.Context,
	userID string,
	policyID string,
	version string,
	record map[string]any,
	purpose domain.Purpose,
	thirdParty string,
) (map[string]any, domain.EnforcementStatus, error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "enforce.process_data_record",
		trace.WithAttributes(
			attribute.String("policy.id", policyID),
			attribute.String("purpose", purpose.String()),
		))
	defer span.End()
	defer func() {
		e.metrics.ObserveProcessLatency(time.Since(start))
	}()

	inputHash := audit.HashRecord(record)

	p, err := e.policies.Load(ctx, policyID, version)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return e.failSafe(ctx, record, userID, policyID, version, purpose, inputHash, err)
	}
	if p == nil {
		out, fields, procErr := e.engine.ObfuscateAll(ctx, record)
		if procErr != nil {
			return e.failSafe(ctx, record, userID, policyID, version, purpose, inputHash, procErr)
		}
		return e.finish(ctx, out, fields, entryParams{
			userID:    userID,
			policyID:  policyID,
			version:   version,
			purpose:   purpose,
			inputHash: inputHash,
			status:    domain.StatusPolicyNotFound,
		})
	}

	var active *consent.Consent
	active, err = e.consents.ActiveConsent(ctx, userID, p.PolicyID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return e.failSafe(ctx, record, userID, policyID, p.Version, purpose, inputHash, err)
	}

	out, fields, procErr := e.engine.Process(ctx, record, p, active, purpose, thirdParty)
	if procErr != nil {
		return e.failSafe(ctx, record, userID, policyID, p.Version, purpose, inputHash, procErr)
	}

	params := entryParams{
		userID:    userID,
		policyID:  p.PolicyID,
		version:   p.Version,
		purpose:   purpose,
		inputHash: inputHash,
	}
	switch {
	case active == nil:
		params.status = domain.StatusNoActiveConsent
	case audit.HashRecord(out) == inputHash:
		params.status = domain.StatusAllowedRaw
		params.consentID = active.ConsentID
	default:
		params.status = domain.StatusAllowedTransformed
		params.consentID = active.ConsentID
	}
	return e.finish(ctx, out, fields, params)
}

type entryParams struct {
	userID    string
	policyID  string
	version   string
	purpose   domain.Purpose
	inputHash string
	consentID string
	status    domain.EnforcementStatus
}

// finish appends the audit entry and reports metrics. An append failure is
// the one fault that surfaces as an error: a decision that cannot be audited
// must not look successful.
func (e *Enforcer) finish(
	ctx context.Context,
	out map[string]any,
	fields []obfuscate.FieldDecision,
	params entryParams,
) (map[string]any, domain.EnforcementStatus, error) {
	var transformations []audit.FieldTransformation
	for _, f := range fields {
		if f.Permitted {
			continue
		}
		transformations = append(transformations, audit.FieldTransformation{
			Key:    f.Key,
			Method: f.Method.String(),
		})
		e.metrics.IncrementTransformed(f.Method.String())
	}

	_, err := e.auditor.Append(ctx, audit.Entry{
		EventType:       audit.EventEnforcementDecision,
		UserID:          params.userID,
		PolicyID:        params.policyID,
		PolicyVersion:   params.version,
		ConsentID:       params.consentID,
		InputDataHash:   params.inputHash,
		OutputDataHash:  audit.HashRecord(out),
		Transformations: transformations,
		Status:          params.status.String(),
	})
	if err != nil {
		e.log.Error("audit append failed",
			zap.String("policy_id", params.policyID),
			zap.Error(err))
		e.metrics.IncrementOutcome(domain.StatusEnforcementError.String(), params.purpose.String())
		return out, domain.StatusEnforcementError, err
	}

	e.metrics.IncrementOutcome(params.status.String(), params.purpose.String())
	return out, params.status, nil
}

// failSafe handles I/O faults mid-pipeline: the caller still receives a
// best-effort fallback-obfuscated record with the same shape, the fault is
// audited if at all possible, and the error propagates.
func (e *Enforcer) failSafe(
	ctx context.Context,
	record map[string]any,
	userID, policyID, version string,
	purpose domain.Purpose,
	inputHash string,
	cause error,
) (map[string]any, domain.EnforcementStatus, error) {
	e.log.Error("enforcement stage failed, returning fallback-obfuscated record",
		zap.String("policy_id", policyID),
		zap.Error(cause))

	out, _, err := e.engine.ObfuscateAll(ctx, record)
	if err != nil || out == nil {
		// Last resort: redact every leaf without classification.
		out = redactAll(record)
	}

	if _, auditErr := e.auditor.Append(ctx, audit.Entry{
		EventType:      audit.EventEnforcementDecision,
		UserID:         userID,
		PolicyID:       policyID,
		PolicyVersion:  version,
		InputDataHash:  inputHash,
		OutputDataHash: audit.HashRecord(out),
		Status:         domain.StatusEnforcementError.String(),
	}); auditErr != nil {
		e.log.Error("audit append failed during fail-safe", zap.Error(auditErr))
	}

	e.metrics.IncrementOutcome(domain.StatusEnforcementError.String(), purpose.String())
	return out, domain.StatusEnforcementError, cause
}

// redactAll replaces every leaf with the redaction sentinel, preserving
// shape. It exists for the path where even classification failed.
func redactAll(v any) map[string]any {
	out, _ := redactValue(v).(map[string]any)
	return out
}

func redactValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = redactValue(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = redactValue(elem)
		}
		return out
	default:
		return obfuscate.RedactedSentinel
	}
}
