// SPDX-FileCopyrightText: Copyright 2026 Replidash, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replidash/gateway/pkg/identity"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testProfile() *identity.Profile {
	return &identity.Profile{
		UserID:    "u-1",
		Email:     "a@b.com",
		FirstName: "Alice",
		Enabled:   true,
		OrgMemberships: map[string]identity.OrgMembership{
			"org-1": {
				OrgID:          "org-1",
				OrgName:        "Acme",
				EffectiveRoles: []string{"Admin", "Member"},
				Permissions:    []string{"peers.read"},
				CurrentRole:    "Member",
			},
		},
	}
}

func newTestMinter(t *testing.T) *Minter {
	t.Helper()
	minter, err := NewMinter(testSecret, time.Hour)
	require.NoError(t, err)
	return minter
}

func TestNewMinterRejectsShortSecret(t *testing.T) {
	t.Parallel()

	_, err := NewMinter("too-short", time.Hour)
	assert.Error(t, err)
}

func TestMintAndVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	minter := newTestMinter(t)
	profile := testProfile()

	token, err := minter.Mint(profile.Identity(), profile)
	require.NoError(t, err)

	claims, err := minter.Verify(token)
	require.NoError(t, err)

	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, "Alice", claims.Name)
	assert.Equal(t, "a@b.com", claims.Email)
	require.NotNil(t, claims.Profile)
	assert.Equal(t, profile.OrgMemberships, claims.Profile.OrgMemberships)
}

func TestEnrichmentIdempotence(t *testing.T) {
	t.Parallel()

	minter := newTestMinter(t)
	profile := testProfile()

	token, err := minter.Mint(profile.Identity(), profile)
	require.NoError(t, err)

	// Reading the token any number of times yields the same profile as
	// the first enrichment; refreshing without a new profile must not
	// erase or shrink it.
	first, err := minter.Verify(token)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		claims, err := minter.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, first.Profile, claims.Profile)

		token, err = minter.Refresh(claims)
		require.NoError(t, err)
	}

	final, err := minter.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, first.Profile, final.Profile)
	assert.Equal(t, first.Subject, final.Subject)
}

func TestMintWithoutProfile(t *testing.T) {
	t.Parallel()

	minter := newTestMinter(t)

	token, err := minter.Mint(identity.Identity{Subject: "u-2", Email: "b@c.com"}, nil)
	require.NoError(t, err)

	claims, err := minter.Verify(token)
	require.NoError(t, err)
	assert.Nil(t, claims.Profile)
}

func TestVerifyEmptyToken(t *testing.T) {
	t.Parallel()

	minter := newTestMinter(t)
	_, err := minter.Verify("")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestVerifyExpiredToken(t *testing.T) {
	t.Parallel()

	minter := newTestMinter(t)
	minter.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := minter.Mint(identity.Identity{Subject: "u-1"}, nil)
	require.NoError(t, err)

	minter.now = time.Now
	_, err = minter.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyTamperedToken(t *testing.T) {
	t.Parallel()

	minter := newTestMinter(t)
	other, err := NewMinter("ffffffffffffffffffffffffffffffff", time.Hour)
	require.NoError(t, err)

	token, err := other.Mint(identity.Identity{Subject: "u-1"}, nil)
	require.NoError(t, err)

	_, err = minter.Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyRejectsUnsignedToken(t *testing.T) {
	t.Parallel()

	minter := newTestMinter(t)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = minter.Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRefreshNilClaims(t *testing.T) {
	t.Parallel()

	minter := newTestMinter(t)
	_, err := minter.Refresh(nil)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRefreshExtendsExpiry(t *testing.T) {
	t.Parallel()

	minter := newTestMinter(t)

	base := time.Now().Truncate(time.Second)
	minter.now = func() time.Time { return base }

	token, err := minter.Mint(identity.Identity{Subject: "u-1"}, nil)
	require.NoError(t, err)
	claims, err := minter.Verify(token)
	require.NoError(t, err)

	minter.now = func() time.Time { return base.Add(30 * time.Minute) }
	refreshed, err := minter.Refresh(claims)
	require.NoError(t, err)

	newClaims, err := minter.Verify(refreshed)
	require.NoError(t, err)
	assert.Equal(t, base.Add(30*time.Minute).Add(time.Hour).Unix(), newClaims.ExpiresAt.Unix())
}
