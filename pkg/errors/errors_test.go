package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCapturesStack(t *testing.T) {
	err := New(ErrorTypeForeignInstance, "instance not issued by this pool")

	require.NotEmpty(t, err.Stack)
	assert.Contains(t, err.Stack[0].Function, "TestNewCapturesStack")
	assert.Equal(t, "foreign_instance: instance not issued by this pool", err.Error())
}

func TestWrapPreservesStackAndCause(t *testing.T) {
	inner := New(ErrorTypeInternal, "factory failed")
	outer := Wrap(inner, ErrorTypeConfig, "prewarm failed")

	assert.Equal(t, inner.Stack, outer.Stack)
	assert.True(t, stderrors.Is(outer, inner))
	assert.True(t, IsType(outer, ErrorTypeConfig))
	assert.Equal(t, "config: prewarm failed: internal: factory failed", outer.Error())
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeConfig, "nothing"))
}

func TestTypeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"structured", New(ErrorTypeDoubleRelease, "x"), ErrorTypeDoubleRelease},
		{"wrapped by fmt", fmt.Errorf("ctx: %w", New(ErrorTypeNotFound, "x")), ErrorTypeNotFound},
		{"plain", io.EOF, ErrorTypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TypeOf(tt.err))
		})
	}
}

func TestWithDetail(t *testing.T) {
	err := Newf(ErrorTypePoolExhausted, "pool %s exhausted", "Bullet").
		WithDetail("live", 4).
		WithDetail("max_size", 4)

	assert.Equal(t, "pool Bullet exhausted", err.Message)
	assert.Equal(t, 4, err.Details["live"])
	assert.Equal(t, 4, err.Details["max_size"])
}
