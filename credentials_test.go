package cms_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cms "github.com/mvoicu/catalog-cms"
)

func TestHashPassword(t *testing.T) {
	t.Run("hashes and verifies a password", func(t *testing.T) {
		hash, err := cms.HashPassword("s3cret-password")
		require.NoError(t, err)
		assert.NotEmpty(t, hash)
		assert.NotEqual(t, "s3cret-password", hash)

		assert.NoError(t, cms.ComparePasswordAndHash("s3cret-password", hash))
	})

	t.Run("rejects the empty password", func(t *testing.T) {
		_, err := cms.HashPassword("")
		assert.ErrorIs(t, err, cms.ErrNoEmptyString)
	})

	t.Run("wrong password fails with the credentials error", func(t *testing.T) {
		hash, err := cms.HashPassword("right-password")
		require.NoError(t, err)

		err = cms.ComparePasswordAndHash("wrong-password", hash)
		assert.ErrorIs(t, err, cms.ErrMismatchedHashAndPassword)
	})
}

func TestRandomPasswordHash(t *testing.T) {
	a := cms.RandomPasswordHash()
	b := cms.RandomPasswordHash()

	assert.NotEmpty(t, a)
	assert.NotEmpty(t, b)
	assert.NotEqual(t, a, b)
}
