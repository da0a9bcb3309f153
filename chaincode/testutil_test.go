/*
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"crypto/x509"
	"fmt"
	"testing"
	"time"

	"github.com/hyperledger/fabric-chaincode-go/shimtest"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/stretchr/testify/require"
)

const (
	adminID       = "admin1"
	farmerID      = "farmer1"
	distributorID = "distributor1"
	retailerID    = "retailer1"
	regulatorID   = "regulator1"
	consumerID    = "consumer1"

	batchID     = "BATCH_TEST_001"
	produceType = "Organic Tomatoes"
	variety     = "Cherry Tomatoes"
	quantity    = uint64(1000)
	origin      = "Test Farm Valley"
	certHash    = "QmTestCertificationHash123"
	imageHash   = "QmTestImageHash456"

	basePrice     = uint64(100)
	transferPrice = uint64(120)
	finalPrice    = uint64(200)
)

// mockIdentity satisfies cid.ClientIdentity so tests can pick the caller
// per transaction.
type mockIdentity struct {
	id string
}

func (m *mockIdentity) GetID() (string, error)    { return m.id, nil }
func (m *mockIdentity) GetMSPID() (string, error) { return "Org1MSP", nil }
func (m *mockIdentity) GetAttributeValue(string) (string, bool, error) {
	return "", false, nil
}
func (m *mockIdentity) AssertAttributeValue(string, string) error { return nil }
func (m *mockIdentity) GetX509Certificate() (*x509.Certificate, error) {
	return nil, nil
}

// harness wires a fresh MockStub into a transaction context and mirrors
// the deployment setup of the production network: admin initialized,
// participant roles granted.
type harness struct {
	t    *testing.T
	stub *shimtest.MockStub
	ctx  *contractapi.TransactionContext
	sc   *SupplyChainContract
	ur   *UserRegistryContract
	seq  int
}

func newHarness(t *testing.T) *harness {
	stub := shimtest.NewMockStub("agritrace", nil)
	ctx := new(contractapi.TransactionContext)
	ctx.SetStub(stub)

	h := &harness{
		t:    t,
		stub: stub,
		ctx:  ctx,
		sc:   new(SupplyChainContract),
		ur:   new(UserRegistryContract),
	}

	require.NoError(t, h.as(adminID).tx(func() error { return h.sc.Initialize(h.ctx) }))
	for id, role := range map[string]Role{
		farmerID:      RoleFarmer,
		distributorID: RoleDistributor,
		retailerID:    RoleRetailer,
		regulatorID:   RoleRegulator,
	} {
		require.NoError(t, h.grantRole(role, id))
	}
	h.drainEvents()
	return h
}

// as sets the caller identity for subsequent calls.
func (h *harness) as(identity string) *harness {
	h.ctx.SetClientIdentity(&mockIdentity{id: identity})
	return h
}

// tx runs fn inside a MockStub transaction, which gives the chaincode a
// TxID and a deterministic timestamp.
func (h *harness) tx(fn func() error) error {
	h.seq++
	txID := fmt.Sprintf("tx%04d", h.seq)
	h.stub.MockTransactionStart(txID)
	err := fn()
	h.stub.MockTransactionEnd(txID)
	return err
}

func (h *harness) grantRole(role Role, identity string) error {
	return h.as(adminID).tx(func() error {
		return h.sc.GrantRole(h.ctx, string(role), identity)
	})
}

func (h *harness) registerBatch(id string) error {
	return h.as(farmerID).tx(func() error {
		return h.sc.RegisterBatch(h.ctx, id, produceType, variety, quantity, origin,
			basePrice, futureExpiry(), certHash, imageHash, true)
	})
}

func (h *harness) transferToDistributor(id string) error {
	return h.as(farmerID).tx(func() error {
		return h.sc.TransferBatch(h.ctx, id, distributorID, transferPrice, "Warehouse A", "Transfer to distributor")
	})
}

// drainEvents empties the mock event channel so a test can assert on the
// next emitted event in isolation.
func (h *harness) drainEvents() {
	for {
		select {
		case <-h.stub.ChaincodeEventsChannel:
		default:
			return
		}
	}
}

// lastEventName pops one event and returns its name and payload.
func (h *harness) lastEventName() (string, []byte) {
	select {
	case ev := <-h.stub.ChaincodeEventsChannel:
		return ev.EventName, ev.Payload
	default:
		h.t.Fatal("no chaincode event emitted")
		return "", nil
	}
}

func futureExpiry() int64 {
	return time.Now().Add(30 * 24 * time.Hour).Unix()
}

func pastExpiry() int64 {
	return time.Now().Add(-24 * time.Hour).Unix()
}
