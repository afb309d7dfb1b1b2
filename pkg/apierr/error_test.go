package apierr_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dcollide/birthdayparty/pkg/apierr"
)

func TestGRPCStatusCodes(t *testing.T) {
	for name, tc := range map[string]struct {
		kind     apierr.Kind
		wantCode codes.Code
	}{
		"bad-request":    {apierr.KindBadRequest, codes.InvalidArgument},
		"bad-hash-length": {apierr.KindBadHashLength, codes.InvalidArgument},
		"auth-failure":   {apierr.KindAuthFailure, codes.Unauthenticated},
		"transient":      {apierr.KindTransient, codes.Unavailable},
		"config-mismatch": {apierr.KindConfigMismatch, codes.FailedPrecondition},
		"no-collision":   {apierr.KindNoCollision, codes.NotFound},
	} {
		t.Run(name, func(t *testing.T) {
			err := apierr.New(tc.kind, "detail")
			require.Equal(t, tc.wantCode, status.Code(err))
		})
	}
}

func TestKindOf(t *testing.T) {
	kind, ok := apierr.KindOf(apierr.New(apierr.KindAuthFailure, ""))
	require.True(t, ok)
	require.Equal(t, apierr.KindAuthFailure, kind)

	_, ok = apierr.KindOf(status.Error(codes.Unknown, "not an *Error"))
	require.False(t, ok)
}

func TestErrorIncludesDetail(t *testing.T) {
	err := apierr.Newf(apierr.KindBadRequest, "missing field %q", "username")
	require.Contains(t, err.Error(), "missing field \"username\"")
}

func TestHTTPStatus(t *testing.T) {
	require.Equal(t, 401, apierr.HTTPStatus(apierr.KindAuthFailure))
	require.Equal(t, 0, apierr.HTTPStatus(apierr.KindConfigMismatch))
}
