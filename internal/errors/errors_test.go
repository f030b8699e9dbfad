package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerErrorError(t *testing.T) {
	err := ErrTaxonomyRead("/data/shroom_info.yaml", fs.ErrNotExist).WithComponent("taxonomy")

	msg := err.Error()
	assert.Contains(t, msg, "[ERR_TAXONOMY_READ]")
	assert.Contains(t, msg, "component:taxonomy")
	assert.Contains(t, msg, "/data/shroom_info.yaml")
	assert.Contains(t, msg, fs.ErrNotExist.Error())
	assert.True(t, err.Recoverable)
}

func TestServerErrorIs(t *testing.T) {
	a := ErrImageListing("/a", nil)
	b := ErrImageListing("/b", errors.New("boom"))

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, ErrTemplateRead("/a", nil)))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("disk gone")
	err := NewIOError(ErrCodeLogWrite, "append failed", cause)

	assert.Equal(t, cause, errors.Unwrap(err))
	assert.True(t, errors.Is(err, cause))
}

func TestErrStaticLookup(t *testing.T) {
	tests := []struct {
		name     string
		cause    error
		wantCode string
	}{
		{"permission", fs.ErrPermission, ErrCodeForbidden},
		{"wrapped permission", &os.PathError{Op: "open", Path: "/x", Err: fs.ErrPermission}, ErrCodeForbidden},
		{"missing", fs.ErrNotExist, ErrCodeNotFound},
		{"other", errors.New("is a directory"), ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ErrStaticLookup("/x", tt.cause)
			assert.Equal(t, tt.wantCode, err.Code)
			var se *ServerError
			require.True(t, errors.As(fmt.Errorf("ctx: %w", err), &se))
			assert.Equal(t, tt.wantCode, se.Code)
		})
	}
}

func TestIsPermission(t *testing.T) {
	assert.False(t, IsPermission(nil))
	assert.True(t, IsPermission(fs.ErrPermission))
	assert.True(t, IsPermission(ErrStaticLookup("/x", fs.ErrPermission)))
	assert.False(t, IsPermission(fs.ErrNotExist))
	assert.True(t, IsNotExist(fmt.Errorf("wrapped: %w", fs.ErrNotExist)))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeIO, ErrCodeInternalError, "nothing"))

	inner := ErrTaxonomyRead("/src", fs.ErrNotExist).WithContext("attempt", 1)
	outer := Wrap(inner, ErrorTypeInternal, ErrCodeInternalError, "reload failed")
	require.NotNil(t, outer)
	assert.Equal(t, "/src", outer.Path)
	assert.Equal(t, 1, outer.Context["attempt"])
	assert.True(t, outer.Recoverable)

	net := WrapNetwork(errors.New("reset by peer"), "write response")
	assert.Equal(t, ErrCodeConnection, net.Code)
	assert.True(t, net.Recoverable)

	cfg := WrapConfig(errors.New("bad port"), "invalid configuration")
	assert.False(t, cfg.Recoverable)
	assert.Equal(t, ErrCodeConfigInvalid, cfg.Code)
}

func TestFields(t *testing.T) {
	assert.Nil(t, Fields(errors.New("plain")))

	fields := Fields(ErrImageListing("/img/a", nil))
	assert.Equal(t, []interface{}{"code", ErrCodeImageListing, "type", "io", "path", "/img/a"}, fields)
}
