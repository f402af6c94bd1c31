package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthorize(t *testing.T) {
	ctx := context.Background()
	assert.ErrorIs(t, Authorize(ctx, "u1"), ErrInvalidToken)

	ctx = WithClaims(ctx, Claims{Subject: "u1"})
	assert.NoError(t, Authorize(ctx, "u1"))
	assert.ErrorIs(t, Authorize(ctx, "u2"), ErrForbidden)

	claims, ok := ClaimsFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "u1", claims.Subject)
}

func TestLocationSharingLevel_Valid(t *testing.T) {
	for _, l := range []LocationSharingLevel{
		LocationSharingDisabled, LocationSharingApproximate, LocationSharingNeighborhood, LocationSharingPrecise,
	} {
		assert.True(t, l.Valid(), string(l))
	}
	assert.False(t, LocationSharingLevel("everyone").Valid())
	assert.False(t, LocationSharingLevel("").Valid())
}
