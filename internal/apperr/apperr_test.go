package apperr_test

import (
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tartampluch/go-attendance/internal/apperr"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := apperr.New(apperr.KindOutOfRange, "month 13")

	assert.ErrorIs(t, err, apperr.ErrOutOfRange)
	assert.NotErrorIs(t, err, apperr.ErrInvalidArgument)
	assert.Equal(t, "month 13", err.Error())
}

func TestError_WrapKeepsCause(t *testing.T) {
	_, cause := strconv.Atoi("x")
	err := apperr.Wrap(cause, apperr.KindInvalidArgument, "invalid year")

	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "invalid year: ")
}

func TestError_ThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("context: %w", apperr.Newf(apperr.KindDuplicateRule, "category %d", 2))

	assert.ErrorIs(t, err, apperr.ErrDuplicateRule)
	assert.Equal(t, apperr.KindDuplicateRule, apperr.KindOf(err))
	assert.Equal(t, apperr.Kind(""), apperr.KindOf(errors.New("plain")))
}

func TestError_NilSafety(t *testing.T) {
	var e *apperr.Error
	assert.Equal(t, "<nil>", e.Error())
	assert.Nil(t, e.Unwrap())
}
