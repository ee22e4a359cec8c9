// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

package provider

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Kind classifies an adapter error for the retry decision. Every error
// returned by an adapter maps to exactly one Kind.
type Kind string

const (
	KindAuth                Kind = "auth"
	KindValidation          Kind = "validation"
	KindRateLimit           Kind = "rate_limit"
	KindNetwork             Kind = "network"
	KindProviderUnavailable Kind = "provider_unavailable"
	KindUnknown             Kind = "unknown"
)

// Retryable reports whether a failure of this kind may succeed against a
// backup provider. Auth and validation failures cannot: another provider
// will not fix revoked credentials or malformed input, and retrying may
// confuse the user's credential state. Unknown defaults to retryable so
// a backup gets a chance; the audit log still records it distinctly.
func (k Kind) Retryable() bool {
	switch k {
	case KindAuth, KindValidation:
		return false
	}
	return true
}

// CallError is the structured error adapters return for upstream
// failures. Code is the vendor's own error code (e.g. Plaid's
// ITEM_LOGIN_REQUIRED); Kind may be set by adapters that already know
// the classification, or left KindUnknown for the Classifier to decide.
type CallError struct {
	Code    string
	Kind    Kind
	Message string
}

func (e *CallError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

// NewCallError builds a CallError with an explicit classification.
func NewCallError(kind Kind, code, message string) *CallError {
	return &CallError{Code: code, Kind: kind, Message: message}
}

// Classifier maps adapter errors to Kinds. Per-provider overrides let
// operators pin a vendor error code to a kind without a code change
// (config surface errorClassificationOverrides).
type Classifier struct {
	overrides map[string]map[string]Kind // provider name → vendor code → kind
}

// NewClassifier creates a Classifier with the given per-provider
// overrides. A nil map is valid and means no overrides.
func NewClassifier(overrides map[string]map[string]Kind) *Classifier {
	return &Classifier{overrides: overrides}
}

// Classify maps err to exactly one Kind. Precedence: operator override
// by vendor code, adapter-declared kind, context/transport inspection,
// then KindUnknown.
func (c *Classifier) Classify(providerName string, err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var callErr *CallError
	if errors.As(err, &callErr) {
		if callErr.Code != "" {
			if kind, ok := c.overrides[providerName][callErr.Code]; ok {
				return kind
			}
		}
		if callErr.Kind != "" && callErr.Kind != KindUnknown {
			return callErr.Kind
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindNetwork
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}

	// Last-resort message sniffing for adapters that wrap raw vendor errors.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "too many requests"):
		return KindRateLimit
	case strings.Contains(msg, "unauthorized"), strings.Contains(msg, "invalid credentials"),
		strings.Contains(msg, "login required"), strings.Contains(msg, "token revoked"):
		return KindAuth
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "timeout"),
		strings.Contains(msg, "no such host"):
		return KindNetwork
	case strings.Contains(msg, "unavailable"), strings.Contains(msg, "maintenance"):
		return KindProviderUnavailable
	}

	return KindUnknown
}

// ParseKind validates a kind name from configuration.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindAuth, KindValidation, KindRateLimit, KindNetwork,
		KindProviderUnavailable, KindUnknown:
		return Kind(s), true
	}
	return "", false
}
