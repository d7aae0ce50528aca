package password_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskdesk/taskdesk/internal/password"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := password.Hash("hunter22", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)

	assert.True(t, password.Verify(hash, "hunter22"))
	assert.False(t, password.Verify(hash, "hunter23"))
	assert.False(t, password.Verify("not a bcrypt hash", "hunter22"))
}

func TestHashRejectsOverlongPassword(t *testing.T) {
	long := make([]byte, 100)
	for i := range long {
		long[i] = 'a'
	}
	_, err := password.Hash(string(long), bcrypt.MinCost)
	assert.Error(t, err)
}
