/*
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"encoding/json"
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// World state key prefixes and singleton keys.
const (
	batchKeyPrefix = "BATCH_"
	roleKeyPrefix  = "ROLE_"
	userKeyPrefix  = "USER_"
	pausedKey      = "PAUSED"
	initializedKey = "INITIALIZED"
)

var validRoles = map[Role]bool{
	RoleAdmin:       true,
	RoleFarmer:      true,
	RoleDistributor: true,
	RoleRetailer:    true,
	RoleRegulator:   true,
}

// clientID returns the caller's identity string from the transaction's
// signature context.
func clientID(ctx contractapi.TransactionContextInterface) (string, error) {
	id, err := ctx.GetClientIdentity().GetID()
	if err != nil {
		return "", fmt.Errorf("failed to get client identity: %v", err)
	}
	return id, nil
}

// txTimestamp returns the deterministic transaction timestamp as unix
// seconds. Wall-clock time must never be used inside a transaction.
func txTimestamp(ctx contractapi.TransactionContextInterface) (int64, error) {
	ts, err := ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return 0, fmt.Errorf("failed to get transaction timestamp: %v", err)
	}
	return ts.AsTime().Unix(), nil
}

func getRoles(ctx contractapi.TransactionContextInterface, identity string) ([]Role, error) {
	data, err := ctx.GetStub().GetState(roleKeyPrefix + identity)
	if err != nil {
		return nil, fmt.Errorf("failed to read roles for %s: %v", identity, err)
	}
	if data == nil {
		return nil, nil
	}
	var roles []Role
	if err := json.Unmarshal(data, &roles); err != nil {
		return nil, fmt.Errorf("failed to unmarshal roles for %s: %v", identity, err)
	}
	return roles, nil
}

func putRoles(ctx contractapi.TransactionContextInterface, identity string, roles []Role) error {
	data, err := json.Marshal(roles)
	if err != nil {
		return fmt.Errorf("failed to marshal roles for %s: %v", identity, err)
	}
	return ctx.GetStub().PutState(roleKeyPrefix+identity, data)
}

func hasRole(ctx contractapi.TransactionContextInterface, identity string, role Role) (bool, error) {
	roles, err := getRoles(ctx, identity)
	if err != nil {
		return false, err
	}
	for _, r := range roles {
		if r == role {
			return true, nil
		}
	}
	return false, nil
}

// requireRole fails closed with msg when the caller does not hold role.
// It returns the caller's identity on success.
func requireRole(ctx contractapi.TransactionContextInterface, role Role, msg string) (string, error) {
	caller, err := clientID(ctx)
	if err != nil {
		return "", err
	}
	ok, err := hasRole(ctx, caller, role)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%s", msg)
	}
	return caller, nil
}

func requireAdmin(ctx contractapi.TransactionContextInterface) (string, error) {
	return requireRole(ctx, RoleAdmin, "Only admin can perform this action")
}

func isPaused(ctx contractapi.TransactionContextInterface) (bool, error) {
	data, err := ctx.GetStub().GetState(pausedKey)
	if err != nil {
		return false, fmt.Errorf("failed to read pause flag: %v", err)
	}
	return string(data) == "true", nil
}

// requireNotPaused guards every state-mutating operation. Queries must
// never call it.
func requireNotPaused(ctx contractapi.TransactionContextInterface) error {
	paused, err := isPaused(ctx)
	if err != nil {
		return err
	}
	if paused {
		return fmt.Errorf("Pausable: paused")
	}
	return nil
}

// Initialize grants the admin role to the caller. Callable exactly once,
// by the deployer, before any other transaction.
func (s *SupplyChainContract) Initialize(ctx contractapi.TransactionContextInterface) error {
	data, err := ctx.GetStub().GetState(initializedKey)
	if err != nil {
		return fmt.Errorf("failed to read initialization flag: %v", err)
	}
	if data != nil {
		return fmt.Errorf("Contract already initialized")
	}

	caller, err := clientID(ctx)
	if err != nil {
		return err
	}
	if err := putRoles(ctx, caller, []Role{RoleAdmin}); err != nil {
		return err
	}
	if err := ctx.GetStub().PutState(initializedKey, []byte("true")); err != nil {
		return fmt.Errorf("failed to write initialization flag: %v", err)
	}

	return emitEvent(ctx, "RoleGranted", RoleGrantedEvent{
		Role:      RoleAdmin,
		Identity:  caller,
		GrantedBy: caller,
	})
}

// GrantRole adds role to the identity's capability set. Granting a role
// the identity already holds is a no-op, not an error.
func (s *SupplyChainContract) GrantRole(ctx contractapi.TransactionContextInterface, role string, identity string) error {
	if err := requireNotPaused(ctx); err != nil {
		return err
	}
	caller, err := requireAdmin(ctx)
	if err != nil {
		return err
	}
	if !validRoles[Role(role)] {
		return fmt.Errorf("Invalid role")
	}
	if identity == "" {
		return fmt.Errorf("Invalid identity address")
	}

	roles, err := getRoles(ctx, identity)
	if err != nil {
		return err
	}
	for _, r := range roles {
		if r == Role(role) {
			return nil
		}
	}
	if err := putRoles(ctx, identity, append(roles, Role(role))); err != nil {
		return err
	}

	return emitEvent(ctx, "RoleGranted", RoleGrantedEvent{
		Role:      Role(role),
		Identity:  identity,
		GrantedBy: caller,
	})
}

// RevokeRole removes role from the identity's capability set. Revoking a
// role the identity does not hold is a no-op.
func (s *SupplyChainContract) RevokeRole(ctx contractapi.TransactionContextInterface, role string, identity string) error {
	if err := requireNotPaused(ctx); err != nil {
		return err
	}
	caller, err := requireAdmin(ctx)
	if err != nil {
		return err
	}
	if !validRoles[Role(role)] {
		return fmt.Errorf("Invalid role")
	}

	roles, err := getRoles(ctx, identity)
	if err != nil {
		return err
	}
	kept := roles[:0]
	found := false
	for _, r := range roles {
		if r == Role(role) {
			found = true
			continue
		}
		kept = append(kept, r)
	}
	if !found {
		return nil
	}
	if err := putRoles(ctx, identity, kept); err != nil {
		return err
	}

	return emitEvent(ctx, "RoleRevoked", RoleRevokedEvent{
		Role:      Role(role),
		Identity:  identity,
		RevokedBy: caller,
	})
}

// HasRole reports whether identity holds role. Open to any caller.
func (s *SupplyChainContract) HasRole(ctx contractapi.TransactionContextInterface, role string, identity string) (bool, error) {
	return hasRole(ctx, identity, Role(role))
}

// Pause halts every state-mutating operation across the ledger until
// Unpause. Read-only queries stay available.
func (s *SupplyChainContract) Pause(ctx contractapi.TransactionContextInterface) error {
	caller, err := requireAdmin(ctx)
	if err != nil {
		return err
	}
	paused, err := isPaused(ctx)
	if err != nil {
		return err
	}
	if paused {
		return fmt.Errorf("Pausable: paused")
	}
	if err := ctx.GetStub().PutState(pausedKey, []byte("true")); err != nil {
		return fmt.Errorf("failed to write pause flag: %v", err)
	}
	return emitEvent(ctx, "ContractPaused", PausedEvent{Account: caller})
}

// Unpause lifts the circuit breaker.
func (s *SupplyChainContract) Unpause(ctx contractapi.TransactionContextInterface) error {
	caller, err := requireAdmin(ctx)
	if err != nil {
		return err
	}
	paused, err := isPaused(ctx)
	if err != nil {
		return err
	}
	if !paused {
		return fmt.Errorf("Pausable: not paused")
	}
	if err := ctx.GetStub().PutState(pausedKey, []byte("false")); err != nil {
		return fmt.Errorf("failed to write pause flag: %v", err)
	}
	return emitEvent(ctx, "ContractUnpaused", PausedEvent{Account: caller})
}

// IsPaused reports the circuit-breaker state.
func (s *SupplyChainContract) IsPaused(ctx contractapi.TransactionContextInterface) (bool, error) {
	return isPaused(ctx)
}
