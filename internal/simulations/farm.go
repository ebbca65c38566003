package simulations

import (
	"encoding/binary"
	"errors"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/autofarm/internal/contracts"
	"github.com/elys-network/autofarm/internal/logger"
	"github.com/elys-network/autofarm/internal/types"
)

var farmLogger = logger.GetForComponent("sim_farm")

var (
	errFarmBadPayments = errors.New("Bad payment tokens")
	errFarmNoPosition  = errors.New("Unknown farm position")
	errFarmEmptyEntry  = errors.New("No farming tokens")
	errFarmNotActive   = errors.New("Not active")
)

var defaultSafetyFactor = sdkmath.NewInt(1_000_000_000_000)

// FarmParams configures a simulated farm.
type FarmParams struct {
	FarmingTokenID         string
	FarmTokenID            string
	RewardTokenID          string
	PairAddress            sdk.AccAddress
	PerBlockReward         sdkmath.Int
	DivisionSafetyConstant sdkmath.Int
	MinFarmingEpochs       uint64
	// LockRewards pays rewards as energy factory locked tokens locked for LockEpochs.
	LockRewards bool
	LockEpochs  uint64
}

type farmPosition struct {
	RewardPerShare sdkmath.Int
	EnteringEpoch  uint64
	OriginalOwner  sdk.AccAddress
}

type farmState struct {
	Address         sdk.AccAddress
	Params          FarmParams
	State           types.FarmState
	LastRewardBlock uint64
	RewardPerShare  sdkmath.Int
	Supply          sdkmath.Int
	NextNonce       uint64
	Positions       map[uint64]farmPosition
	Boosted         map[string]sdkmath.Int
}

func (f *farmState) clone() *farmState {
	c := *f
	c.Positions = make(map[uint64]farmPosition, len(f.Positions))
	for k, v := range f.Positions {
		c.Positions[k] = v
	}
	c.Boosted = make(map[string]sdkmath.Int, len(f.Boosted))
	for k, v := range f.Boosted {
		c.Boosted[k] = v
	}
	return &c
}

func (f *farmState) rewardPaymentID(w *world) string {
	if f.Params.LockRewards {
		return w.energy.LockedTokenID
	}
	return f.Params.RewardTokenID
}

// DeployFarm creates an active farm and publishes its configuration in public storage.
func (c *Chain) DeployFarm(params FarmParams) sdk.AccAddress {
	c.mu.Lock()
	defer c.mu.Unlock()
	if params.DivisionSafetyConstant.IsNil() || params.DivisionSafetyConstant.IsZero() {
		params.DivisionSafetyConstant = defaultSafetyFactor
	}
	if params.PerBlockReward.IsNil() {
		params.PerBlockReward = sdkmath.ZeroInt()
	}
	addr := c.nextContract("farm")
	f := &farmState{
		Address:         addr,
		Params:          params,
		State:           types.FarmStateActive,
		LastRewardBlock: c.state.block,
		RewardPerShare:  sdkmath.ZeroInt(),
		Supply:          sdkmath.ZeroInt(),
		Positions:       make(map[uint64]farmPosition),
		Boosted:         make(map[string]sdkmath.Int),
	}
	c.state.farms[string(addr)] = f

	c.state.setStorage(addr, types.StorageKeyFarmingTokenID, []byte(params.FarmingTokenID))
	c.state.setStorage(addr, types.StorageKeyFarmTokenID, []byte(params.FarmTokenID))
	c.state.setStorage(addr, types.StorageKeyRewardTokenID, []byte(params.RewardTokenID))
	if !params.PairAddress.Empty() {
		c.state.setStorage(addr, types.StorageKeyPairContractAddress, params.PairAddress.Bytes())
	}
	c.state.setStorage(addr, types.StorageKeyState, []byte{byte(f.State)})
	c.state.setStorage(addr, types.StorageKeyDivisionSafetyConstant, params.DivisionSafetyConstant.BigInt().Bytes())
	c.state.setStorage(addr, types.StorageKeyMinimumFarmingEpochs, encodeTopUint64(params.MinFarmingEpochs))
	return addr
}

// SetFarmState changes the state of a farm, as its owner would.
func (c *Chain) SetFarmState(farm sdk.AccAddress, state types.FarmState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.state.farms[string(farm)]
	if !ok {
		return
	}
	c.state.generateRewards(f)
	f.State = state
	c.state.setStorage(farm, types.StorageKeyState, []byte{byte(state)})
}

// GrantBoostedRewards makes extra rewards payable to owner on their next enter or claim.
func (c *Chain) GrantBoostedRewards(farm, owner sdk.AccAddress, amount sdkmath.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.state.farms[string(farm)]
	if !ok {
		return
	}
	c.state.mint(farm, types.NewFungible(f.Params.RewardTokenID, amount))
	prev, ok := f.Boosted[string(owner)]
	if !ok {
		prev = sdkmath.ZeroInt()
	}
	f.Boosted[string(owner)] = prev.Add(amount)
}

// PendingFarmRewards returns the reward a farm position would claim now.
func (c *Chain) PendingFarmRewards(farm sdk.AccAddress, position types.Payment) sdkmath.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.state.farms[string(farm)]
	if !ok {
		return sdkmath.ZeroInt()
	}
	pos, ok := f.Positions[position.Nonce]
	if !ok {
		return sdkmath.ZeroInt()
	}
	rps := f.RewardPerShare.Add(f.pendingRewardPerShare(c.state.block))
	return position.Amount.Mul(rps.Sub(pos.RewardPerShare)).Quo(f.Params.DivisionSafetyConstant)
}

func encodeTopUint64(v uint64) []byte {
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, v)
	i := 0
	for i < len(raw) && raw[i] == 0 {
		i++
	}
	return raw[i:]
}

func (f *farmState) pendingRewardPerShare(block uint64) sdkmath.Int {
	if f.State != types.FarmStateActive || block <= f.LastRewardBlock || f.Supply.IsZero() {
		return sdkmath.ZeroInt()
	}
	reward := f.Params.PerBlockReward.Mul(sdkmath.NewIntFromUint64(block - f.LastRewardBlock))
	return reward.Mul(f.Params.DivisionSafetyConstant).Quo(f.Supply)
}

func (w *world) generateRewards(f *farmState) {
	if w.block <= f.LastRewardBlock {
		return
	}
	if f.State == types.FarmStateActive && !f.Supply.IsZero() {
		reward := f.Params.PerBlockReward.Mul(sdkmath.NewIntFromUint64(w.block - f.LastRewardBlock))
		f.RewardPerShare = f.RewardPerShare.Add(reward.Mul(f.Params.DivisionSafetyConstant).Quo(f.Supply))
		w.mint(f.Address, types.NewFungible(f.Params.RewardTokenID, reward))
	}
	f.LastRewardBlock = w.block
}

// merge creates a position of fresh farming units plus the units of existing positions held
// by holder, with a weighted reward per share. Existing positions are burned.
func (w *world) merge(f *farmState, holder, owner sdk.AccAddress, fresh sdkmath.Int, positions []types.Payment) (types.Payment, error) {
	total := fresh
	weighted := fresh.Mul(f.RewardPerShare)
	for _, p := range positions {
		pos, ok := f.Positions[p.Nonce]
		if p.TokenID != f.Params.FarmTokenID || !ok || p.IsZero() {
			return types.Payment{}, errFarmBadPayments
		}
		total = total.Add(p.Amount)
		weighted = weighted.Add(p.Amount.Mul(pos.RewardPerShare))
	}
	if total.IsZero() {
		return types.Payment{}, errFarmEmptyEntry
	}
	for _, p := range positions {
		if err := w.burn(holder, p); err != nil {
			return types.Payment{}, err
		}
	}
	rps := weighted.Add(total).SubRaw(1).Quo(total)
	f.Supply = f.Supply.Add(fresh)
	f.NextNonce++
	f.Positions[f.NextNonce] = farmPosition{RewardPerShare: rps, EnteringEpoch: w.epoch, OriginalOwner: owner}
	position := types.NewPayment(f.Params.FarmTokenID, f.NextNonce, total)
	w.mint(holder, position)
	return position, nil
}

func (w *world) enterFarm(f *farmState, caller, owner sdk.AccAddress, list []types.Payment) (types.EnterFarmResult, error) {
	if len(list) == 0 {
		return types.EnterFarmResult{}, errFarmEmptyEntry
	}
	if f.State != types.FarmStateActive {
		return types.EnterFarmResult{}, errFarmNotActive
	}
	first := list[0]
	if first.TokenID != f.Params.FarmingTokenID || !first.IsFungible() || first.IsZero() {
		return types.EnterFarmResult{}, errFarmBadPayments
	}
	w.generateRewards(f)
	if err := w.transfer(caller, f.Address, first); err != nil {
		return types.EnterFarmResult{}, err
	}
	position, err := w.merge(f, caller, owner, first.Amount, list[1:])
	if err != nil {
		return types.EnterFarmResult{}, err
	}
	boosted, err := w.payBoosted(f, caller, owner)
	if err != nil {
		return types.EnterFarmResult{}, err
	}
	farmLogger.Debug().
		Stringer("position", position).
		Str("owner", owner.String()).
		Msg("Entered farm")
	return types.EnterFarmResult{NewFarmToken: position, BoostedRewards: boosted}, nil
}

func (w *world) positionReward(f *farmState, p types.Payment) (sdkmath.Int, error) {
	pos, ok := f.Positions[p.Nonce]
	if p.TokenID != f.Params.FarmTokenID || !ok || p.IsZero() {
		return sdkmath.Int{}, errFarmNoPosition
	}
	return p.Amount.Mul(f.RewardPerShare.Sub(pos.RewardPerShare)).Quo(f.Params.DivisionSafetyConstant), nil
}

// claim refreshes a position held by holder and pays its rewards to dest.
func (w *world) claim(f *farmState, holder, dest, owner sdk.AccAddress, p types.Payment) (types.ClaimFarmResult, error) {
	w.generateRewards(f)
	reward, err := w.positionReward(f, p)
	if err != nil {
		return types.ClaimFarmResult{}, err
	}
	if err := w.burn(holder, p); err != nil {
		return types.ClaimFarmResult{}, err
	}
	f.NextNonce++
	f.Positions[f.NextNonce] = farmPosition{RewardPerShare: f.RewardPerShare, EnteringEpoch: w.epoch, OriginalOwner: owner}
	position := types.NewPayment(f.Params.FarmTokenID, f.NextNonce, p.Amount)
	w.mint(holder, position)

	reward = reward.Add(w.takeBoosted(f, owner))
	paid, err := w.payReward(f, dest, owner, reward)
	if err != nil {
		return types.ClaimFarmResult{}, err
	}
	return types.ClaimFarmResult{NewFarmToken: position, Rewards: paid}, nil
}

// exit burns a position held by holder, returning farming units to farmingDest (unless the
// farm was entered virtually) and rewards to rewardDest.
func (w *world) exit(f *farmState, holder, farmingDest, rewardDest, owner sdk.AccAddress, p types.Payment, virtual bool) (types.ExitFarmResult, error) {
	w.generateRewards(f)
	reward, err := w.positionReward(f, p)
	if err != nil {
		return types.ExitFarmResult{}, err
	}
	if err := w.burn(holder, p); err != nil {
		return types.ExitFarmResult{}, err
	}
	f.Supply = f.Supply.Sub(p.Amount)
	farming := types.NewFungible(f.Params.FarmingTokenID, p.Amount)
	if !virtual {
		if err := w.transfer(f.Address, farmingDest, farming); err != nil {
			return types.ExitFarmResult{}, err
		}
	}
	reward = reward.Add(w.takeBoosted(f, owner))
	paid, err := w.payReward(f, rewardDest, owner, reward)
	if err != nil {
		return types.ExitFarmResult{}, err
	}
	return types.ExitFarmResult{FarmingTokens: farming, Rewards: paid}, nil
}

func (w *world) takeBoosted(f *farmState, owner sdk.AccAddress) sdkmath.Int {
	amount, ok := f.Boosted[string(owner)]
	if !ok {
		return sdkmath.ZeroInt()
	}
	delete(f.Boosted, string(owner))
	return amount
}

func (w *world) payBoosted(f *farmState, dest, owner sdk.AccAddress) (types.Payment, error) {
	return w.payReward(f, dest, owner, w.takeBoosted(f, owner))
}

func (w *world) payReward(f *farmState, dest, owner sdk.AccAddress, amount sdkmath.Int) (types.Payment, error) {
	if amount.IsZero() {
		return types.NewFungible(f.rewardPaymentID(w), sdkmath.ZeroInt()), nil
	}
	base := types.NewFungible(f.Params.RewardTokenID, amount)
	if !f.Params.LockRewards {
		if err := w.transfer(f.Address, dest, base); err != nil {
			return types.Payment{}, err
		}
		return base, nil
	}
	if err := w.burn(f.Address, base); err != nil {
		return types.Payment{}, err
	}
	return w.lockVirtual(f.Params.RewardTokenID, amount, f.Params.LockEpochs, dest, owner)
}

func (c *Chain) farm(addr sdk.AccAddress) (*farmState, error) {
	f, ok := c.state.farms[string(addr)]
	if !ok {
		return nil, contracts.ErrUnknownContract
	}
	return f, nil
}
