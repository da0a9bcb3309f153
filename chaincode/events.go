/*
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"encoding/json"
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// Event payloads are committed atomically with the state change and
// consumed by off-chain indexers. One event per transaction.

type BatchRegisteredEvent struct {
	BatchID     string `json:"batchId"`
	Farmer      string `json:"farmer"`
	ProduceType string `json:"produceType"`
	Quantity    uint64 `json:"quantity"`
	Origin      string `json:"origin"`
}

type BatchTransferredEvent struct {
	BatchID  string `json:"batchId"`
	From     string `json:"from"`
	To       string `json:"to"`
	Price    uint64 `json:"price"`
	Location string `json:"location"`
}

type BatchStatusUpdatedEvent struct {
	BatchID   string      `json:"batchId"`
	OldStatus BatchStatus `json:"oldStatus"`
	NewStatus BatchStatus `json:"newStatus"`
	UpdatedBy string      `json:"updatedBy"`
}

type BatchSoldEvent struct {
	BatchID    string `json:"batchId"`
	Seller     string `json:"seller"`
	Buyer      string `json:"buyer"`
	FinalPrice uint64 `json:"finalPrice"`
}

type QualityCheckAddedEvent struct {
	BatchID      string `json:"batchId"`
	Inspector    string `json:"inspector"`
	QualityScore int    `json:"qualityScore"`
	Passed       bool   `json:"passed"`
}

type PriceUpdatedEvent struct {
	BatchID   string `json:"batchId"`
	OldPrice  uint64 `json:"oldPrice"`
	NewPrice  uint64 `json:"newPrice"`
	UpdatedBy string `json:"updatedBy"`
}

type RoleGrantedEvent struct {
	Role      Role   `json:"role"`
	Identity  string `json:"identity"`
	GrantedBy string `json:"grantedBy"`
}

type RoleRevokedEvent struct {
	Role      Role   `json:"role"`
	Identity  string `json:"identity"`
	RevokedBy string `json:"revokedBy"`
}

type PausedEvent struct {
	Account string `json:"account"`
}

type UserRegisteredEvent struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Role    Role   `json:"role"`
}

type UserRoleUpdatedEvent struct {
	Address   string `json:"address"`
	OldRole   Role   `json:"oldRole"`
	NewRole   Role   `json:"newRole"`
	UpdatedBy string `json:"updatedBy"`
}

type UserStatusEvent struct {
	Address   string `json:"address"`
	UpdatedBy string `json:"updatedBy"`
}

func emitEvent(ctx contractapi.TransactionContextInterface, name string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %v", name, err)
	}
	if err := ctx.GetStub().SetEvent(name, data); err != nil {
		return fmt.Errorf("failed to set %s event: %v", name, err)
	}
	return nil
}
