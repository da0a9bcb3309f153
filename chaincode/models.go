/*
SPDX-License-Identifier: Apache-2.0
*/

package main

// BatchStatus tracks a batch along the producer-to-consumer direction.
// Values are ordinal: status may only move forward, and Sold is terminal.
type BatchStatus uint8

const (
	StatusRegistered BatchStatus = iota
	StatusHarvested
	StatusListed
	StatusInTransit
	StatusDelivered
	StatusSold
)

// Role is a capability granted to an identity. An identity may hold
// several roles at once.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleFarmer      Role = "farmer"
	RoleDistributor Role = "distributor"
	RoleRetailer    Role = "retailer"
	RoleRegulator   Role = "regulator"
)

// Batch represents a registered produce batch and its full audit trail.
// Descriptive fields and the farmer of origin never change after
// registration; TransferHistory and QualityChecks are append-only.
type Batch struct {
	BatchID           string               `json:"batchId"`
	ProduceType       string               `json:"produceType"`
	Variety           string               `json:"variety"`
	Quantity          uint64               `json:"quantity"`
	Origin            string               `json:"origin"`
	BasePrice         uint64               `json:"basePrice"`
	CurrentPrice      uint64               `json:"currentPrice"`
	ExpiryDate        int64                `json:"expiryDate"`
	CertificationHash string               `json:"certificationHash"`
	ImageHash         string               `json:"imageHash"`
	IsOrganic         bool                 `json:"isOrganic"`
	Status            BatchStatus          `json:"status"`
	Farmer            string               `json:"farmer"`
	CurrentOwner      string               `json:"currentOwner"`
	RegisteredAt      int64                `json:"registeredAt"`
	TransferHistory   []TransferRecord     `json:"transferHistory"`
	QualityChecks     []QualityCheckRecord `json:"qualityChecks"`
}

// TransferRecord is one immutable entry per ownership change.
type TransferRecord struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Price     uint64 `json:"price"`
	Location  string `json:"location"`
	Remarks   string `json:"remarks"`
	Timestamp int64  `json:"timestamp"`
}

// QualityCheckRecord is one immutable entry per inspection. Passed is
// evaluated against the threshold in force when the inspector acted and
// is never recomputed afterwards.
type QualityCheckRecord struct {
	Inspector    string `json:"inspector"`
	QualityScore int    `json:"qualityScore"`
	Remarks      string `json:"remarks"`
	ReportHash   string `json:"reportHash"`
	Passed       bool   `json:"passed"`
	Timestamp    int64  `json:"timestamp"`
}

// User is a participant profile kept by the UserRegistry contract.
type User struct {
	Address      string `json:"address"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Location     string `json:"location"`
	Role         Role   `json:"role"`
	ProfileHash  string `json:"profileHash"`
	IsActive     bool   `json:"isActive"`
	RegisteredAt int64  `json:"registeredAt"`
}
