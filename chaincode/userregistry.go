/*
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"encoding/json"
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// UserRegistryContract keeps participant profiles. It shares world state
// with the SupplyChain contract, so the same pause flag and admin role
// apply to both.
type UserRegistryContract struct {
	contractapi.Contract
}

// RegisterUser stores the caller's profile. Self-service: anyone may
// register, but the admin role cannot be claimed this way and profile
// roles grant no capabilities by themselves (see GrantRole).
func (u *UserRegistryContract) RegisterUser(ctx contractapi.TransactionContextInterface,
	name, email, phone, location, role, profileHash string) error {

	if err := requireNotPaused(ctx); err != nil {
		return err
	}
	caller, err := clientID(ctx)
	if err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("Name cannot be empty")
	}
	if email == "" {
		return fmt.Errorf("Email cannot be empty")
	}
	if !validRoles[Role(role)] || Role(role) == RoleAdmin {
		return fmt.Errorf("Invalid role")
	}
	existing, err := u.getUser(ctx, caller)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("User already registered")
	}
	now, err := txTimestamp(ctx)
	if err != nil {
		return err
	}

	user := User{
		Address:      caller,
		Name:         name,
		Email:        email,
		Phone:        phone,
		Location:     location,
		Role:         Role(role),
		ProfileHash:  profileHash,
		IsActive:     true,
		RegisteredAt: now,
	}
	if err := u.putUser(ctx, &user); err != nil {
		return err
	}

	return emitEvent(ctx, "UserRegistered", UserRegisteredEvent{
		Address: caller,
		Name:    name,
		Role:    Role(role),
	})
}

// UpdateUserRole changes a user's profile role. Admin-only.
func (u *UserRegistryContract) UpdateUserRole(ctx contractapi.TransactionContextInterface,
	identity, newRole string) error {

	if err := requireNotPaused(ctx); err != nil {
		return err
	}
	caller, err := requireAdmin(ctx)
	if err != nil {
		return err
	}
	if !validRoles[Role(newRole)] || Role(newRole) == RoleAdmin {
		return fmt.Errorf("Invalid role")
	}
	user, err := u.mustGetUser(ctx, identity)
	if err != nil {
		return err
	}

	oldRole := user.Role
	user.Role = Role(newRole)
	if err := u.putUser(ctx, user); err != nil {
		return err
	}

	return emitEvent(ctx, "UserRoleUpdated", UserRoleUpdatedEvent{
		Address:   identity,
		OldRole:   oldRole,
		NewRole:   Role(newRole),
		UpdatedBy: caller,
	})
}

// DeactivateUser suspends a user's profile. Admin-only.
func (u *UserRegistryContract) DeactivateUser(ctx contractapi.TransactionContextInterface, identity string) error {
	if err := requireNotPaused(ctx); err != nil {
		return err
	}
	caller, err := requireAdmin(ctx)
	if err != nil {
		return err
	}
	user, err := u.mustGetUser(ctx, identity)
	if err != nil {
		return err
	}
	if !user.IsActive {
		return fmt.Errorf("User already deactivated")
	}

	user.IsActive = false
	if err := u.putUser(ctx, user); err != nil {
		return err
	}
	return emitEvent(ctx, "UserDeactivated", UserStatusEvent{Address: identity, UpdatedBy: caller})
}

// ReactivateUser lifts a suspension. Admin-only.
func (u *UserRegistryContract) ReactivateUser(ctx contractapi.TransactionContextInterface, identity string) error {
	if err := requireNotPaused(ctx); err != nil {
		return err
	}
	caller, err := requireAdmin(ctx)
	if err != nil {
		return err
	}
	user, err := u.mustGetUser(ctx, identity)
	if err != nil {
		return err
	}
	if user.IsActive {
		return fmt.Errorf("User already active")
	}

	user.IsActive = true
	if err := u.putUser(ctx, user); err != nil {
		return err
	}
	return emitEvent(ctx, "UserReactivated", UserStatusEvent{Address: identity, UpdatedBy: caller})
}

// GetUser returns a registered user's profile.
func (u *UserRegistryContract) GetUser(ctx contractapi.TransactionContextInterface, identity string) (*User, error) {
	return u.mustGetUser(ctx, identity)
}

// IsActiveUser reports whether identity is registered and not suspended.
func (u *UserRegistryContract) IsActiveUser(ctx contractapi.TransactionContextInterface, identity string) (bool, error) {
	user, err := u.getUser(ctx, identity)
	if err != nil {
		return false, err
	}
	return user != nil && user.IsActive, nil
}

// GetUsersByRole returns the addresses of users whose profile carries role.
func (u *UserRegistryContract) GetUsersByRole(ctx contractapi.TransactionContextInterface, role string) ([]string, error) {
	addrs := []string{}
	err := u.forEachUser(ctx, func(user *User) {
		if user.Role == Role(role) {
			addrs = append(addrs, user.Address)
		}
	})
	if err != nil {
		return nil, err
	}
	return addrs, nil
}

// GetAllUsers returns every registered user address.
func (u *UserRegistryContract) GetAllUsers(ctx contractapi.TransactionContextInterface) ([]string, error) {
	addrs := []string{}
	err := u.forEachUser(ctx, func(user *User) { addrs = append(addrs, user.Address) })
	if err != nil {
		return nil, err
	}
	return addrs, nil
}

// GetTotalUsers returns the number of registered users.
func (u *UserRegistryContract) GetTotalUsers(ctx contractapi.TransactionContextInterface) (int, error) {
	total := 0
	err := u.forEachUser(ctx, func(*User) { total++ })
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (u *UserRegistryContract) getUser(ctx contractapi.TransactionContextInterface, identity string) (*User, error) {
	data, err := ctx.GetStub().GetState(userKeyPrefix + identity)
	if err != nil {
		return nil, fmt.Errorf("failed to read user %s: %v", identity, err)
	}
	if data == nil {
		return nil, nil
	}
	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user %s: %v", identity, err)
	}
	return &user, nil
}

func (u *UserRegistryContract) mustGetUser(ctx contractapi.TransactionContextInterface, identity string) (*User, error) {
	user, err := u.getUser(ctx, identity)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("User not registered")
	}
	return user, nil
}

func (u *UserRegistryContract) putUser(ctx contractapi.TransactionContextInterface, user *User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user %s: %v", user.Address, err)
	}
	return ctx.GetStub().PutState(userKeyPrefix+user.Address, data)
}

func (u *UserRegistryContract) forEachUser(ctx contractapi.TransactionContextInterface, fn func(*User)) error {
	iter, err := ctx.GetStub().GetStateByRange(userKeyPrefix, userKeyPrefix+"~")
	if err != nil {
		return fmt.Errorf("failed to get users by range: %v", err)
	}
	defer iter.Close()

	for iter.HasNext() {
		resp, err := iter.Next()
		if err != nil {
			return fmt.Errorf("failed during results iteration: %v", err)
		}
		var user User
		if err := json.Unmarshal(resp.Value, &user); err != nil {
			return fmt.Errorf("failed to unmarshal user data: %v", err)
		}
		fn(&user)
	}
	return nil
}
