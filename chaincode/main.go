/*
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

func main() {
	supplyChain := new(SupplyChainContract)
	supplyChain.Name = "SupplyChain"

	userRegistry := new(UserRegistryContract)
	userRegistry.Name = "UserRegistry"

	chaincode, err := contractapi.NewChaincode(supplyChain, userRegistry)
	if err != nil {
		fmt.Printf("Error creating agritrace chaincode: %v\n", err)
		return
	}

	if err := chaincode.Start(); err != nil {
		fmt.Printf("Error starting agritrace chaincode: %v\n", err)
	}
}
