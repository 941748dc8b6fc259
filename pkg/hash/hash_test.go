package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheck(t *testing.T) {
	hashed, err := HashPassword("Secret123")
	require.NoError(t, err)

	assert.NotEqual(t, "Secret123", hashed)
	assert.True(t, CheckPasswordHash("Secret123", hashed))
	assert.False(t, CheckPasswordHash("secret123", hashed))
}
