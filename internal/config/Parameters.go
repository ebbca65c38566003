/*

This file contains the default parameters of the position lifecycle engine daemon.
They apply whenever the matching environment variable is unset.

*/

package config

import "time"

// EngineParameters are the tunables of the engine and its keeper.
type EngineParameters struct {
	FeePercentage        uint64        // basis points of every compounded reward
	KeeperInterval       time.Duration // time between two keeper runs
	BaseTokenID          string        // token the energy factory locks
	LockedTokenID        string
	NativeTokenID        string
	WrappedNativeTokenID string
	WebPort              string
	GRPCHealthPort       string
}

// DefaultEngineParameters provides a baseline set of parameters.
var DefaultEngineParameters = EngineParameters{
	FeePercentage:        1_000, // 10%
	KeeperInterval:       10 * time.Minute,
	BaseTokenID:          "MEX",
	LockedTokenID:        "XMEX",
	NativeTokenID:        "EGLD",
	WrappedNativeTokenID: "WEGLD",
	WebPort:              "8080",
	GRPCHealthPort:       "9090",
}
