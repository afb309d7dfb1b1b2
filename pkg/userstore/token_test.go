package userstore_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dcollide/birthdayparty/pkg/userstore"
)

func TestHashAndVerifyToken(t *testing.T) {
	hash, err := userstore.HashToken("correct-token")
	require.NoError(t, err)

	require.True(t, userstore.VerifyToken(hash, "correct-token"))
	require.False(t, userstore.VerifyToken(hash, "wrong-token"))
}

func TestHashTokenIsSalted(t *testing.T) {
	a, err := userstore.HashToken("same-token")
	require.NoError(t, err)
	b, err := userstore.HashToken("same-token")
	require.NoError(t, err)

	require.NotEqual(t, a, b)
	require.True(t, userstore.VerifyToken(a, "same-token"))
	require.True(t, userstore.VerifyToken(b, "same-token"))
}
