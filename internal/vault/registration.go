package vault

import (
	"context"
	"encoding/binary"
	"math/big"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/autofarm/internal/contracts"
	"github.com/elys-network/autofarm/internal/types"
)

// storageDecoder reads the public storage keys of one contract. The first failure sticks.
type storageDecoder struct {
	ctx      context.Context
	reader   contracts.StorageReader
	contract sdk.AccAddress
	err      error
}

func (d *storageDecoder) raw(key string) []byte {
	if d.err != nil {
		return nil
	}
	value, err := d.reader.ReadStorage(d.ctx, d.contract, key)
	if err != nil {
		d.err = types.ExternalFailure("storage", err)
		return nil
	}
	return value
}

func (d *storageDecoder) tokenID(key string) string {
	value := d.raw(key)
	if d.err == nil && len(value) == 0 {
		d.err = errorsmod.Wrapf(types.ErrInvalidState, "Missing storage key %s", key)
	}
	return string(value)
}

func (d *storageDecoder) address(key string, optional bool) sdk.AccAddress {
	value := d.raw(key)
	if d.err != nil {
		return nil
	}
	if len(value) == 0 {
		if !optional {
			d.err = errorsmod.Wrapf(types.ErrInvalidState, "Missing storage key %s", key)
		}
		return nil
	}
	if err := sdk.VerifyAddressFormat(value); err != nil {
		d.err = errorsmod.Wrapf(types.ErrInvalidState, "Invalid address under %s", key)
		return nil
	}
	return sdk.AccAddress(value)
}

// bigUint decodes a big-endian unsigned integer of arbitrary length.
func (d *storageDecoder) bigUint(key string) sdkmath.Int {
	value := d.raw(key)
	if d.err != nil {
		return sdkmath.ZeroInt()
	}
	return sdkmath.NewIntFromBigInt(new(big.Int).SetBytes(value))
}

// u64 decodes a top-encoded big-endian u64, leading zeros stripped.
func (d *storageDecoder) u64(key string) uint64 {
	value := d.raw(key)
	if d.err != nil {
		return 0
	}
	if len(value) > 8 {
		d.err = errorsmod.Wrapf(types.ErrInvalidState, "Invalid u64 under %s", key)
		return 0
	}
	buf := make([]byte, 8)
	copy(buf[8-len(value):], value)
	return binary.BigEndian.Uint64(buf)
}

func (d *storageDecoder) farmState() types.FarmState {
	value := d.raw(types.StorageKeyState)
	if d.err != nil {
		return types.FarmStateInactive
	}
	state, err := types.ParseFarmState(value)
	if err != nil {
		d.err = errorsmod.Wrap(types.ErrInvalidState, err.Error())
	}
	return state
}

func readFarmConfig(ctx context.Context, reader contracts.StorageReader, farm sdk.AccAddress) (types.FarmConfig, error) {
	d := &storageDecoder{ctx: ctx, reader: reader, contract: farm}
	cfg := types.FarmConfig{
		Address:                farm,
		FarmingTokenID:         d.tokenID(types.StorageKeyFarmingTokenID),
		FarmTokenID:            d.tokenID(types.StorageKeyFarmTokenID),
		RewardTokenID:          d.tokenID(types.StorageKeyRewardTokenID),
		PairAddress:            d.address(types.StorageKeyPairContractAddress, true),
		State:                  d.farmState(),
		DivisionSafetyConstant: d.bigUint(types.StorageKeyDivisionSafetyConstant),
		MinFarmingEpochs:       d.u64(types.StorageKeyMinimumFarmingEpochs),
	}
	if d.err != nil {
		return types.FarmConfig{}, d.err
	}
	if err := cfg.Validate(); err != nil {
		return types.FarmConfig{}, errorsmod.Wrap(types.ErrInvalidState, err.Error())
	}
	return cfg, nil
}

func readMetastakingConfig(ctx context.Context, reader contracts.StorageReader, metastaking sdk.AccAddress) (types.MetastakingConfig, error) {
	d := &storageDecoder{ctx: ctx, reader: reader, contract: metastaking}
	cfg := types.MetastakingConfig{
		Address:            metastaking,
		LPFarmAddress:      d.address(types.StorageKeyLPFarmAddress, false),
		StakingFarmAddress: d.address(types.StorageKeyStakingFarmAddress, false),
		LPFarmTokenID:      d.tokenID(types.StorageKeyLPFarmTokenID),
		DualYieldTokenID:   d.tokenID(types.StorageKeyDualYieldTokenID),
		StakingTokenID:     d.tokenID(types.StorageKeyStakingTokenID),
	}
	if d.err != nil {
		return types.MetastakingConfig{}, d.err
	}
	if err := cfg.Validate(); err != nil {
		return types.MetastakingConfig{}, errorsmod.Wrap(types.ErrInvalidState, err.Error())
	}
	return cfg, nil
}
