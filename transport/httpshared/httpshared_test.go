package httpshared

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaTriXy/wasync/request"
)

func TestBuildURLAppendsQueryParameters(t *testing.T) {
	req, err := request.NewBuilder().
		URI("http://example.com/socket?existing=1").
		Query("X-Atmosphere-tracking-id", "uuid-123").
		Build()
	require.NoError(t, err)

	u := BuildURL(req)
	assert.Contains(t, u, "existing=1")
	assert.Contains(t, u, "X-Atmosphere-tracking-id=uuid-123")
}

func TestBuildURLFallsBackToRawURIOnParseFailure(t *testing.T) {
	req, err := request.NewBuilder().URI("http://[::1]:bad-port").Build()
	require.NoError(t, err)

	assert.Equal(t, "http://[::1]:bad-port", BuildURL(req))
}

func TestApplyHeadersCopiesAllValues(t *testing.T) {
	req, err := request.NewBuilder().
		URI("http://example.com").
		Header("X-Custom", "a").
		Header("X-Custom", "b").
		Build()
	require.NoError(t, err)

	httpReq, err := http.NewRequest(http.MethodGet, "http://example.com", nil)
	require.NoError(t, err)

	ApplyHeaders(httpReq, req)
	assert.Equal(t, []string{"a", "b"}, httpReq.Header.Values("X-Custom"))
}

func TestIsPeerCloseMatchesEOFVariants(t *testing.T) {
	assert.True(t, IsPeerClose(io.EOF))
	assert.True(t, IsPeerClose(io.ErrUnexpectedEOF))
	assert.True(t, IsPeerClose(fmt.Errorf("read body: %w", io.EOF)))
}

func TestIsPeerCloseRejectsOtherErrors(t *testing.T) {
	assert.False(t, IsPeerClose(errors.New("connection refused")))
}
