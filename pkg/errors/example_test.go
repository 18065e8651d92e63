// Package errors provides examples of structured error handling in spawnpool.
package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/spawnpool/pkg/errors"
)

// Example demonstrates basic error creation and detail attachment.
func Example() {
	err := errors.New(errors.ErrorTypePoolExhausted, "pool has no available instances").
		WithDetail("prototype", "Bullet").
		WithDetail("live", 16)

	fmt.Println(err.Error())

	// Output:
	// pool_exhausted: pool has no available instances
}

// ExampleWrap shows how to wrap existing errors with context.
func ExampleWrap() {
	err := errors.Wrap(io.ErrUnexpectedEOF, errors.ErrorTypeConfig, "failed to parse pool configuration").
		WithDetail("file", "pools.yaml")

	if errors.IsType(err, errors.ErrorTypeConfig) {
		fmt.Println("This is a config error")
	}
	fmt.Println(err.Error())

	// Output:
	// This is a config error
	// config: failed to parse pool configuration: unexpected EOF
}

// ExampleIsRetryable shows that pool failures are never retried.
func ExampleIsRetryable() {
	exhausted := errors.New(errors.ErrorTypePoolExhausted, "fixed pool exhausted")
	foreign := errors.New(errors.ErrorTypeForeignInstance, "instance not issued by this pool")
	file := errors.New(errors.ErrorTypeFile, "config file busy")

	fmt.Printf("exhausted retryable: %v\n", errors.IsRetryable(exhausted))
	fmt.Printf("foreign retryable: %v\n", errors.IsRetryable(foreign))
	fmt.Printf("file retryable: %v\n", errors.IsRetryable(file))

	// Output:
	// exhausted retryable: false
	// foreign retryable: false
	// file retryable: true
}

// ExampleTypeOf shows how callers branch on an error's category.
func ExampleTypeOf() {
	err := fmt.Errorf("spawn failed: %w", errors.New(errors.ErrorTypeNoPoolConfigured, "no pool for Casing"))

	switch errors.TypeOf(err) {
	case errors.ErrorTypeNoPoolConfigured:
		fmt.Println("fall back to an unpooled instance")
	default:
		fmt.Println("unexpected")
	}

	// Output:
	// fall back to an unpooled instance
}
