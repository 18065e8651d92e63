// Package testutil provides testing utilities for spawnpool
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/spawnpool/pkg/config"
	"github.com/ajitpratap0/spawnpool/pkg/pool"
)

// TestLogger creates a test logger that writes to the test output.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// WriteConfig saves cfg as YAML in a temporary directory and returns its path.
func WriteConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spawnpool.yaml")
	require.NoError(t, config.Save(path, cfg))
	return path
}

// WriteFile writes raw content to a temporary file and returns its path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// Entity is a pooled value for tests
type Entity struct {
	Prototype pool.Prototype
	Serial    int
	Dirty     bool
	Discarded bool
}

// Spawner produces Entity hooks and counts every lifecycle call.
// It is safe for concurrent use.
type Spawner struct {
	mu        sync.Mutex
	created   int
	resets    int
	discarded int
}

// Hooks returns lifecycle hooks backed by the spawner's counters
func (s *Spawner) Hooks() pool.Hooks[*Entity] {
	return pool.Hooks[*Entity]{
		New: func(p pool.Prototype) (*Entity, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.created++
			return &Entity{Prototype: p, Serial: s.created}, nil
		},
		Reset: func(e *Entity) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.resets++
			e.Dirty = false
		},
		Discard: func(e *Entity) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.discarded++
			e.Discarded = true
		},
	}
}

// Counts returns the number of created, reset and discarded instances
func (s *Spawner) Counts() (created, resets, discarded int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created, s.resets, s.discarded
}

// IntegrationTest marks a test as an integration test
func IntegrationTest(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}
