/*
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeOnce(t *testing.T) {
	h := newHarness(t)

	// Deployer holds the admin capability at genesis.
	ok, err := h.sc.HasRole(h.ctx, string(RoleAdmin), adminID)
	require.NoError(t, err)
	assert.True(t, ok)

	err = h.as(adminID).tx(func() error { return h.sc.Initialize(h.ctx) })
	require.EqualError(t, err, "Contract already initialized")
}

func TestGrantRole(t *testing.T) {
	h := newHarness(t)

	ok, err := h.sc.HasRole(h.ctx, string(RoleFarmer), farmerID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = h.sc.HasRole(h.ctx, string(RoleFarmer), distributorID)
	require.NoError(t, err)
	assert.False(t, ok)

	err = h.as(farmerID).tx(func() error {
		return h.sc.GrantRole(h.ctx, string(RoleFarmer), "farmer2")
	})
	require.EqualError(t, err, "Only admin can perform this action")

	err = h.as(adminID).tx(func() error {
		return h.sc.GrantRole(h.ctx, "landlord", "farmer2")
	})
	require.EqualError(t, err, "Invalid role")

	err = h.as(adminID).tx(func() error {
		return h.sc.GrantRole(h.ctx, string(RoleFarmer), "")
	})
	require.EqualError(t, err, "Invalid identity address")

	// Granting an already-held role succeeds without duplicating it.
	require.NoError(t, h.grantRole(RoleFarmer, farmerID))
	roles, err := getRoles(h.ctx, farmerID)
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleFarmer}, roles)
}

// Roles are additive capabilities; one identity may hold several.
func TestMultipleRolesPerIdentity(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.grantRole(RoleDistributor, farmerID))

	for _, role := range []Role{RoleFarmer, RoleDistributor} {
		ok, err := h.sc.HasRole(h.ctx, string(role), farmerID)
		require.NoError(t, err)
		assert.True(t, ok, "expected %s to hold %s", farmerID, role)
	}

	// The multi-role holder can still register batches as a farmer.
	require.NoError(t, h.registerBatch(batchID))
}

func TestRevokeRole(t *testing.T) {
	h := newHarness(t)

	err := h.as(farmerID).tx(func() error {
		return h.sc.RevokeRole(h.ctx, string(RoleFarmer), farmerID)
	})
	require.EqualError(t, err, "Only admin can perform this action")

	err = h.as(adminID).tx(func() error {
		return h.sc.RevokeRole(h.ctx, string(RoleFarmer), farmerID)
	})
	require.NoError(t, err)

	ok, err := h.sc.HasRole(h.ctx, string(RoleFarmer), farmerID)
	require.NoError(t, err)
	assert.False(t, ok)

	err = h.registerBatch(batchID)
	require.EqualError(t, err, "Only farmers can register batches")

	// Revoking a role the identity does not hold is a no-op.
	err = h.as(adminID).tx(func() error {
		return h.sc.RevokeRole(h.ctx, string(RoleFarmer), farmerID)
	})
	require.NoError(t, err)
}
