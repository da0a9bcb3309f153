/*
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"encoding/json"
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// qualityPassThreshold is the pass mark in force at check time. The
// verdict is frozen into each record so a later policy change cannot
// rewrite past inspections.
const qualityPassThreshold = 70

// SupplyChainContract is the append-only, role-gated registry of produce
// batches, their ownership chain, quality attestations and price history.
type SupplyChainContract struct {
	contractapi.Contract
}

// statusGates maps each forward status to its precondition: either a
// role the caller must hold, or current ownership of the batch. Sold is
// absent on purpose; it is only reachable through MarkAsSold.
var statusGates = map[BatchStatus]struct {
	role      Role
	ownerOnly bool
	denyMsg   string
}{
	StatusHarvested: {role: RoleFarmer, denyMsg: "Only farmers can mark as harvested"},
	StatusListed:    {ownerOnly: true, denyMsg: "Only batch owner can perform this action"},
	StatusInTransit: {ownerOnly: true, denyMsg: "Only batch owner can perform this action"},
	StatusDelivered: {ownerOnly: true, denyMsg: "Only batch owner can perform this action"},
}

// RegisterBatch creates a new produce batch owned by the calling farmer.
// Registration is a unique-creation event: a duplicate batchId is a hard
// failure, never an upsert.
func (s *SupplyChainContract) RegisterBatch(ctx contractapi.TransactionContextInterface,
	batchId, produceType, variety string, quantity uint64, origin string,
	basePrice uint64, expiryDate int64, certificationHash, imageHash string, isOrganic bool) error {

	if err := requireNotPaused(ctx); err != nil {
		return err
	}
	caller, err := requireRole(ctx, RoleFarmer, "Only farmers can register batches")
	if err != nil {
		return err
	}
	if batchId == "" {
		return fmt.Errorf("Batch ID cannot be empty")
	}
	exists, err := s.BatchExists(ctx, batchId)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("Batch already exists")
	}
	if quantity == 0 {
		return fmt.Errorf("Quantity must be greater than 0")
	}
	if basePrice == 0 {
		return fmt.Errorf("Price must be greater than 0")
	}
	now, err := txTimestamp(ctx)
	if err != nil {
		return err
	}
	if expiryDate <= now {
		return fmt.Errorf("Expiry date must be in the future")
	}

	batch := Batch{
		BatchID:           batchId,
		ProduceType:       produceType,
		Variety:           variety,
		Quantity:          quantity,
		Origin:            origin,
		BasePrice:         basePrice,
		CurrentPrice:      basePrice,
		ExpiryDate:        expiryDate,
		CertificationHash: certificationHash,
		ImageHash:         imageHash,
		IsOrganic:         isOrganic,
		Status:            StatusRegistered,
		Farmer:            caller,
		CurrentOwner:      caller,
		RegisteredAt:      now,
		TransferHistory:   []TransferRecord{},
		QualityChecks:     []QualityCheckRecord{},
	}
	if err := s.putBatch(ctx, &batch); err != nil {
		return err
	}

	return emitEvent(ctx, "BatchRegistered", BatchRegisteredEvent{
		BatchID:     batchId,
		Farmer:      caller,
		ProduceType: produceType,
		Quantity:    quantity,
		Origin:      origin,
	})
}

// TransferBatch moves custody of a batch to a new owner. The agreed
// price travels with the transfer so ownership and price are recorded
// atomically; basePrice and the farmer of origin are untouched.
func (s *SupplyChainContract) TransferBatch(ctx contractapi.TransactionContextInterface,
	batchId, to string, price uint64, location, remarks string) error {

	if err := requireNotPaused(ctx); err != nil {
		return err
	}
	batch, caller, err := s.batchForOwner(ctx, batchId)
	if err != nil {
		return err
	}
	if batch.Status == StatusSold {
		return fmt.Errorf("Batch already sold")
	}
	if to == "" {
		return fmt.Errorf("Invalid recipient address")
	}
	if to == caller {
		return fmt.Errorf("Cannot transfer to yourself")
	}
	if price == 0 {
		return fmt.Errorf("Transfer price must be greater than 0")
	}
	now, err := txTimestamp(ctx)
	if err != nil {
		return err
	}

	batch.TransferHistory = append(batch.TransferHistory, TransferRecord{
		From:      caller,
		To:        to,
		Price:     price,
		Location:  location,
		Remarks:   remarks,
		Timestamp: now,
	})
	batch.CurrentOwner = to
	batch.CurrentPrice = price
	if err := s.putBatch(ctx, batch); err != nil {
		return err
	}

	return emitEvent(ctx, "BatchTransferred", BatchTransferredEvent{
		BatchID:  batchId,
		From:     caller,
		To:       to,
		Price:    price,
		Location: location,
	})
}

// UpdateBatchStatus advances a batch along the lifecycle. Progression is
// strictly forward; intermediate states may be skipped. Each target state
// has its own gate, see statusGates.
func (s *SupplyChainContract) UpdateBatchStatus(ctx contractapi.TransactionContextInterface,
	batchId string, newStatus int) error {

	if err := requireNotPaused(ctx); err != nil {
		return err
	}
	if newStatus < int(StatusRegistered) || newStatus > int(StatusSold) {
		return fmt.Errorf("Invalid status value")
	}
	target := BatchStatus(newStatus)
	batch, err := s.getBatch(ctx, batchId)
	if err != nil {
		return err
	}
	if batch.Status == StatusSold {
		return fmt.Errorf("Batch already sold")
	}
	if target == StatusSold {
		return fmt.Errorf("Use markAsSold to mark a batch as sold")
	}
	if target <= batch.Status {
		return fmt.Errorf("Status can only move forward")
	}

	caller, err := clientID(ctx)
	if err != nil {
		return err
	}
	gate := statusGates[target]
	if gate.ownerOnly {
		if caller != batch.CurrentOwner {
			return fmt.Errorf("%s", gate.denyMsg)
		}
	} else {
		ok, err := hasRole(ctx, caller, gate.role)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s", gate.denyMsg)
		}
	}

	oldStatus := batch.Status
	batch.Status = target
	if err := s.putBatch(ctx, batch); err != nil {
		return err
	}

	return emitEvent(ctx, "BatchStatusUpdated", BatchStatusUpdatedEvent{
		BatchID:   batchId,
		OldStatus: oldStatus,
		NewStatus: target,
		UpdatedBy: caller,
	})
}

// MarkAsSold records the terminal sale to an off-ledger buyer. No
// TransferRecord is appended: the buyer is not a registered participant,
// so the BatchSold event is the canonical record of the sale. Sold is
// absorbing; every later mutation of the batch fails.
func (s *SupplyChainContract) MarkAsSold(ctx contractapi.TransactionContextInterface,
	batchId, buyer string, finalPrice uint64) error {

	if err := requireNotPaused(ctx); err != nil {
		return err
	}
	batch, caller, err := s.batchForOwner(ctx, batchId)
	if err != nil {
		return err
	}
	if buyer == "" {
		return fmt.Errorf("Invalid buyer address")
	}
	if finalPrice == 0 {
		return fmt.Errorf("Final price must be greater than 0")
	}
	if batch.Status == StatusSold {
		return fmt.Errorf("Batch already sold")
	}

	batch.Status = StatusSold
	batch.CurrentPrice = finalPrice
	if err := s.putBatch(ctx, batch); err != nil {
		return err
	}

	return emitEvent(ctx, "BatchSold", BatchSoldEvent{
		BatchID:    batchId,
		Seller:     caller,
		Buyer:      buyer,
		FinalPrice: finalPrice,
	})
}

// AddQualityCheck appends an inspection record. Regulators may inspect
// any batch regardless of who owns it, including sold ones.
func (s *SupplyChainContract) AddQualityCheck(ctx contractapi.TransactionContextInterface,
	batchId string, qualityScore int, remarks, reportHash string) error {

	if err := requireNotPaused(ctx); err != nil {
		return err
	}
	caller, err := requireRole(ctx, RoleRegulator, "Only regulators can add quality checks")
	if err != nil {
		return err
	}
	batch, err := s.getBatch(ctx, batchId)
	if err != nil {
		return err
	}
	if qualityScore < 0 || qualityScore > 100 {
		return fmt.Errorf("Quality score must be between 0-100")
	}
	now, err := txTimestamp(ctx)
	if err != nil {
		return err
	}

	passed := qualityScore >= qualityPassThreshold
	batch.QualityChecks = append(batch.QualityChecks, QualityCheckRecord{
		Inspector:    caller,
		QualityScore: qualityScore,
		Remarks:      remarks,
		ReportHash:   reportHash,
		Passed:       passed,
		Timestamp:    now,
	})
	if err := s.putBatch(ctx, batch); err != nil {
		return err
	}

	return emitEvent(ctx, "QualityCheckAdded", QualityCheckAddedEvent{
		BatchID:      batchId,
		Inspector:    caller,
		QualityScore: qualityScore,
		Passed:       passed,
	})
}

// UpdatePrice changes the listing price of the caller's own batch. Unlike
// a transfer this leaves no history record beyond the event log.
func (s *SupplyChainContract) UpdatePrice(ctx contractapi.TransactionContextInterface,
	batchId string, newPrice uint64) error {

	if err := requireNotPaused(ctx); err != nil {
		return err
	}
	batch, caller, err := s.batchForOwner(ctx, batchId)
	if err != nil {
		return err
	}
	if batch.Status == StatusSold {
		return fmt.Errorf("Batch already sold")
	}
	if newPrice == 0 {
		return fmt.Errorf("Price must be greater than 0")
	}

	oldPrice := batch.CurrentPrice
	batch.CurrentPrice = newPrice
	if err := s.putBatch(ctx, batch); err != nil {
		return err
	}

	return emitEvent(ctx, "PriceUpdated", PriceUpdatedEvent{
		BatchID:   batchId,
		OldPrice:  oldPrice,
		NewPrice:  newPrice,
		UpdatedBy: caller,
	})
}

// GetBatch returns the full batch record.
func (s *SupplyChainContract) GetBatch(ctx contractapi.TransactionContextInterface, batchId string) (*Batch, error) {
	return s.getBatch(ctx, batchId)
}

// BatchExists reports whether a batch is registered.
func (s *SupplyChainContract) BatchExists(ctx contractapi.TransactionContextInterface, batchId string) (bool, error) {
	data, err := ctx.GetStub().GetState(batchKeyPrefix + batchId)
	if err != nil {
		return false, fmt.Errorf("failed to read batch %s: %v", batchId, err)
	}
	return data != nil, nil
}

// GetTransferHistory returns the append-only chain of custody.
func (s *SupplyChainContract) GetTransferHistory(ctx contractapi.TransactionContextInterface, batchId string) ([]TransferRecord, error) {
	batch, err := s.getBatch(ctx, batchId)
	if err != nil {
		return nil, err
	}
	return batch.TransferHistory, nil
}

// GetQualityChecks returns every inspection recorded for the batch.
func (s *SupplyChainContract) GetQualityChecks(ctx contractapi.TransactionContextInterface, batchId string) ([]QualityCheckRecord, error) {
	batch, err := s.getBatch(ctx, batchId)
	if err != nil {
		return nil, err
	}
	return batch.QualityChecks, nil
}

// GetUserBatches returns the ids of batches registered by identity as
// farmer of origin, regardless of who owns them now.
func (s *SupplyChainContract) GetUserBatches(ctx contractapi.TransactionContextInterface, identity string) ([]string, error) {
	ids := []string{}
	err := s.forEachBatch(ctx, func(b *Batch) {
		if b.Farmer == identity {
			ids = append(ids, b.BatchID)
		}
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// GetTotalBatches returns the number of registered batches.
func (s *SupplyChainContract) GetTotalBatches(ctx contractapi.TransactionContextInterface) (int, error) {
	total := 0
	err := s.forEachBatch(ctx, func(*Batch) { total++ })
	if err != nil {
		return 0, err
	}
	return total, nil
}

// GetAllBatchIds returns every registered batch id.
func (s *SupplyChainContract) GetAllBatchIds(ctx contractapi.TransactionContextInterface) ([]string, error) {
	ids := []string{}
	err := s.forEachBatch(ctx, func(b *Batch) { ids = append(ids, b.BatchID) })
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *SupplyChainContract) getBatch(ctx contractapi.TransactionContextInterface, batchId string) (*Batch, error) {
	data, err := ctx.GetStub().GetState(batchKeyPrefix + batchId)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch %s: %v", batchId, err)
	}
	if data == nil {
		return nil, fmt.Errorf("Batch does not exist")
	}
	var batch Batch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("failed to unmarshal batch %s: %v", batchId, err)
	}
	return &batch, nil
}

func (s *SupplyChainContract) putBatch(ctx contractapi.TransactionContextInterface, batch *Batch) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to marshal batch %s: %v", batch.BatchID, err)
	}
	return ctx.GetStub().PutState(batchKeyPrefix+batch.BatchID, data)
}

// batchForOwner loads a batch and enforces the ownership guard.
func (s *SupplyChainContract) batchForOwner(ctx contractapi.TransactionContextInterface, batchId string) (*Batch, string, error) {
	batch, err := s.getBatch(ctx, batchId)
	if err != nil {
		return nil, "", err
	}
	caller, err := clientID(ctx)
	if err != nil {
		return nil, "", err
	}
	if caller != batch.CurrentOwner {
		return nil, "", fmt.Errorf("Only batch owner can perform this action")
	}
	return batch, caller, nil
}

func (s *SupplyChainContract) forEachBatch(ctx contractapi.TransactionContextInterface, fn func(*Batch)) error {
	iter, err := ctx.GetStub().GetStateByRange(batchKeyPrefix, batchKeyPrefix+"~")
	if err != nil {
		return fmt.Errorf("failed to get batches by range: %v", err)
	}
	defer iter.Close()

	for iter.HasNext() {
		resp, err := iter.Next()
		if err != nil {
			return fmt.Errorf("failed during results iteration: %v", err)
		}
		var batch Batch
		if err := json.Unmarshal(resp.Value, &batch); err != nil {
			return fmt.Errorf("failed to unmarshal batch data: %v", err)
		}
		fn(&batch)
	}
	return nil
}
