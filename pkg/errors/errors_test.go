// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

package errors_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aegiserr "github.com/aegis-fin/aegis/pkg/errors"
)

func TestCodeOf(t *testing.T) {
	err := aegiserr.New(aegiserr.CodeProviderNotFound, "no such provider")
	assert.Equal(t, aegiserr.CodeProviderNotFound, aegiserr.CodeOf(err))

	assert.Equal(t, aegiserr.Code(""), aegiserr.CodeOf(nil))
	assert.Equal(t, aegiserr.Code(""), aegiserr.CodeOf(fmt.Errorf("plain")))
}

func TestHasCode_SurvivesWrapping(t *testing.T) {
	err := aegiserr.New(aegiserr.CodeStoreInvalidInput, "missing id")
	wrapped := fmt.Errorf("appending attempt: %w", err)

	assert.True(t, aegiserr.HasCode(wrapped, aegiserr.CodeStoreInvalidInput))
	assert.False(t, aegiserr.HasCode(wrapped, aegiserr.CodeStoreDatabaseFailure))
}

func TestWrap_NilPassthrough(t *testing.T) {
	assert.NoError(t, aegiserr.Wrap(nil, aegiserr.CodeServerInternalFailure, "ignored"))
	assert.NoError(t, aegiserr.Wrapf(nil, aegiserr.CodeServerInternalFailure, "ignored"))
	assert.NoError(t, aegiserr.With(nil, aegiserr.Field("k", "v")))
}

func TestWrap_ReplacesCodeKeepsCause(t *testing.T) {
	cause := aegiserr.New(aegiserr.CodeStoreDatabaseFailure, "disk full")
	err := aegiserr.Wrap(cause, aegiserr.CodeServerInternalFailure, "persisting attempt")

	assert.True(t, aegiserr.HasCode(err, aegiserr.CodeServerInternalFailure))
	assert.Contains(t, err.Error(), "persisting attempt")
	assert.Contains(t, err.Error(), "disk full")
}

func TestFieldsOf(t *testing.T) {
	err := aegiserr.New(aegiserr.CodeProviderNotFound, "no such provider",
		aegiserr.FieldProvider("plaid"),
		aegiserr.FieldRegion("us"),
	)

	fields := aegiserr.FieldsOf(err)
	require.NotNil(t, fields)
	assert.Equal(t, "plaid", fields["provider"])
	assert.Equal(t, "us", fields["region"])

	assert.Nil(t, aegiserr.FieldsOf(fmt.Errorf("plain")))
}

func TestWith_PreservesExistingCode(t *testing.T) {
	err := aegiserr.New(aegiserr.CodeOrchestratorCancelled, "call cancelled")
	err = aegiserr.With(err, aegiserr.FieldAccountID("acct-1"))

	assert.True(t, aegiserr.HasCode(err, aegiserr.CodeOrchestratorCancelled))
	assert.Equal(t, "acct-1", aegiserr.FieldsOf(err)["account_id"])
}

func TestClassifiers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"not found", aegiserr.New(aegiserr.CodeProviderNotFound, "x"), aegiserr.IsNotFound, true},
		{"secret not found", aegiserr.New(aegiserr.CodeSecretNotFound, "x"), aegiserr.IsNotFound, true},
		{"invalid input", aegiserr.New(aegiserr.CodeOrchestratorRequestInvalid, "x"), aegiserr.IsInvalidInput, true},
		{"invalid value", aegiserr.New(aegiserr.CodeBreakerConfigInvalid, "x"), aegiserr.IsInvalidInput, true},
		{"invalid format", aegiserr.New(aegiserr.CodeConfigParseInvalidFormat, "x"), aegiserr.IsInvalidInput, true},
		{"timeout", aegiserr.New(aegiserr.CodeProviderCallTimeout, "x"), aegiserr.IsTimeout, true},
		{"cancelled", aegiserr.New(aegiserr.CodeOrchestratorCancelled, "x"), aegiserr.IsCancelled, true},
		{"exhausted", aegiserr.New(aegiserr.CodeOrchestratorExhausted, "x"), aegiserr.IsExhausted, true},
		{"upstream", aegiserr.New(aegiserr.CodeProviderUpstreamFailure, "x"), aegiserr.IsUpstreamFailure, true},
		{"generic failure is not upstream", aegiserr.New(aegiserr.CodeStoreDatabaseFailure, "x"), aegiserr.IsUpstreamFailure, false},
		{"nil is nothing", nil, aegiserr.IsNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check(tt.err))
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", aegiserr.New(aegiserr.CodeServerEntityNotFound, "x"), http.StatusNotFound},
		{"invalid input", aegiserr.New(aegiserr.CodeOrchestratorRequestInvalid, "x"), http.StatusBadRequest},
		{"timeout", aegiserr.New(aegiserr.CodeProviderCallTimeout, "x"), http.StatusGatewayTimeout},
		{"cancelled", aegiserr.New(aegiserr.CodeOrchestratorCancelled, "x"), aegiserr.StatusClientClosedRequest},
		{"exhausted", aegiserr.New(aegiserr.CodeOrchestratorExhausted, "x"), http.StatusBadGateway},
		{"upstream", aegiserr.New(aegiserr.CodeProviderUpstreamFailure, "x"), http.StatusBadGateway},
		{"unclassified", fmt.Errorf("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, aegiserr.HTTPStatus(tt.err))
		})
	}
}

func TestJoin(t *testing.T) {
	err := aegiserr.Join(fmt.Errorf("first"), fmt.Errorf("second"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first")
	assert.Contains(t, err.Error(), "second")
}
