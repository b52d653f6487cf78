package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"lookout/internal/apperr"
)

func TestKindOf(t *testing.T) {
	base := errors.New("connection refused")

	tests := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{"Direct", apperr.New(apperr.KindUpstreamUnavailable, base), apperr.KindUpstreamUnavailable},
		{"Wrapped", fmt.Errorf("search: %w", apperr.New(apperr.KindIndexUnavailable, base)), apperr.KindIndexUnavailable},
		{"Plain", base, apperr.KindInternal},
		{"NilCause", apperr.New(apperr.KindSummarizerUnavailable, nil), apperr.KindSummarizerUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperr.KindOf(tt.err))
		})
	}
}

func TestUnwrap(t *testing.T) {
	base := errors.New("boom")
	err := apperr.New(apperr.KindIndexUnavailable, base)

	assert.True(t, errors.Is(err, base))
	assert.Contains(t, err.Error(), "INDEX_UNAVAILABLE")
	assert.Contains(t, err.Error(), "boom")
}

func TestIs(t *testing.T) {
	err := apperr.Newf(apperr.KindUpstreamUnavailable, "searx timeout after %ds", 15)
	assert.True(t, apperr.Is(err, apperr.KindUpstreamUnavailable))
	assert.False(t, apperr.Is(err, apperr.KindIndexUnavailable))
}
