package models

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorUnwrapping(t *testing.T) {
	wrapped := errors.Wrap(ErrNotFound, "scheduled post 7")
	assert.True(t, errors.Is(wrapped, ErrNotFound))

	serr := &StateError{ID: 7, Status: StatusCompleted, Op: "delete"}
	var target *StateError
	require.True(t, errors.As(errors.Wrap(serr, "context"), &target))
	assert.Equal(t, StatusCompleted, target.Status)

	cerr := &CollaboratorError{Service: "scraper", Err: errors.New("timeout")}
	assert.Contains(t, cerr.Error(), "scraper")
	assert.Contains(t, cerr.Error(), "timeout")
}

func TestTerminal(t *testing.T) {
	for status, terminal := range map[string]bool{
		StatusPending:    false,
		StatusProcessing: false,
		StatusCompleted:  true,
		StatusFailed:     true,
	} {
		post := ScheduledPost{Status: status}
		assert.Equal(t, terminal, post.Terminal(), status)
	}
}
