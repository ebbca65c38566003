/*

This file contains the in-process chain used by tests and by the daemon's simulated mode.

Every contract the engine composes (pairs, farms, metastaking, the energy factory, the fees
collector, metabonding and the native wrapper) is simulated against one token ledger. All
mutable state lives in a single world value so that Snapshot and RevertToSnapshot can roll
back the side effects of a failed engine call.

Clients are bound to a caller: payments passed to a client are debited from the caller and
results are credited to it, which is how a contract call with attached tokens behaves.

*/

package simulations

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"sync"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/autofarm/internal/contracts"
	"github.com/elys-network/autofarm/internal/logger"
	"github.com/elys-network/autofarm/internal/types"
)

const (
	// NativeTokenID is the chain's native token.
	NativeTokenID = "EGLD"
	// maxSnapshots bounds the journal; older snapshots are dropped.
	maxSnapshots = 64
)

var chainLogger = logger.GetForComponent("sim_chain")

// --- World state ---

type world struct {
	block    uint64
	epoch    uint64
	balances map[string]map[string]holding
	storage  map[string]map[string][]byte

	pairs      map[string]*pairState
	farms      map[string]*farmState
	metastakes map[string]*metastakingState
	energy     *energyState

	feeRewards         map[string][]types.Payment
	metabondingRewards map[string]map[uint64][]types.Payment
	wrappedNativeID    string
}

type holding struct {
	TokenID string
	Nonce   uint64
	Amount  sdkmath.Int
}

func newWorld() *world {
	return &world{
		epoch:              1,
		balances:           make(map[string]map[string]holding),
		storage:            make(map[string]map[string][]byte),
		pairs:              make(map[string]*pairState),
		farms:              make(map[string]*farmState),
		metastakes:         make(map[string]*metastakingState),
		energy:             newEnergyState(),
		feeRewards:         make(map[string][]types.Payment),
		metabondingRewards: make(map[string]map[uint64][]types.Payment),
	}
}

func (w *world) clone() *world {
	out := &world{
		block:              w.block,
		epoch:              w.epoch,
		balances:           make(map[string]map[string]holding, len(w.balances)),
		storage:            make(map[string]map[string][]byte, len(w.storage)),
		pairs:              make(map[string]*pairState, len(w.pairs)),
		farms:              make(map[string]*farmState, len(w.farms)),
		metastakes:         make(map[string]*metastakingState, len(w.metastakes)),
		energy:             w.energy.clone(),
		feeRewards:         make(map[string][]types.Payment, len(w.feeRewards)),
		metabondingRewards: make(map[string]map[uint64][]types.Payment, len(w.metabondingRewards)),
		wrappedNativeID:    w.wrappedNativeID,
	}
	for addr, tokens := range w.balances {
		copied := make(map[string]holding, len(tokens))
		for k, v := range tokens {
			copied[k] = v
		}
		out.balances[addr] = copied
	}
	for addr, keys := range w.storage {
		copied := make(map[string][]byte, len(keys))
		for k, v := range keys {
			copied[k] = append([]byte(nil), v...)
		}
		out.storage[addr] = copied
	}
	for k, v := range w.pairs {
		out.pairs[k] = v.clone()
	}
	for k, v := range w.farms {
		out.farms[k] = v.clone()
	}
	for k, v := range w.metastakes {
		out.metastakes[k] = v.clone()
	}
	for k, v := range w.feeRewards {
		out.feeRewards[k] = types.ClonePayments(v)
	}
	for user, weeks := range w.metabondingRewards {
		copied := make(map[uint64][]types.Payment, len(weeks))
		for week, list := range weeks {
			copied[week] = types.ClonePayments(list)
		}
		out.metabondingRewards[user] = copied
	}
	return out
}

// --- Ledger ---

func (w *world) balance(addr sdk.AccAddress, tokenID string, nonce uint64) sdkmath.Int {
	h, ok := w.balances[string(addr)][types.TokenKey(tokenID, nonce)]
	if !ok {
		return sdkmath.ZeroInt()
	}
	return h.Amount
}

func (w *world) mint(addr sdk.AccAddress, p types.Payment) {
	if p.IsZero() {
		return
	}
	tokens, ok := w.balances[string(addr)]
	if !ok {
		tokens = make(map[string]holding)
		w.balances[string(addr)] = tokens
	}
	key := p.Key()
	h, ok := tokens[key]
	if !ok {
		h = holding{TokenID: p.TokenID, Nonce: p.Nonce, Amount: sdkmath.ZeroInt()}
	}
	h.Amount = h.Amount.Add(p.Amount)
	tokens[key] = h
}

func (w *world) burn(addr sdk.AccAddress, p types.Payment) error {
	if p.IsZero() {
		return nil
	}
	if p.Amount.IsNegative() {
		return fmt.Errorf("negative amount")
	}
	tokens := w.balances[string(addr)]
	key := p.Key()
	h, ok := tokens[key]
	if !ok || h.Amount.LT(p.Amount) {
		return fmt.Errorf("insufficient funds for token %s", key)
	}
	h.Amount = h.Amount.Sub(p.Amount)
	if h.Amount.IsZero() {
		delete(tokens, key)
		return nil
	}
	tokens[key] = h
	return nil
}

func (w *world) transfer(from, to sdk.AccAddress, list ...types.Payment) error {
	for _, p := range list {
		if err := w.burn(from, p); err != nil {
			return err
		}
		w.mint(to, p)
	}
	return nil
}

func (w *world) setStorage(contract sdk.AccAddress, key string, value []byte) {
	keys, ok := w.storage[string(contract)]
	if !ok {
		keys = make(map[string][]byte)
		w.storage[string(contract)] = keys
	}
	keys[key] = value
}

// --- Chain ---

// Chain is the simulated host. It is safe for concurrent use; every call is serialized.
type Chain struct {
	mu        sync.Mutex
	state     *world
	snapshots map[int]*world
	nextSnap  int
	deployed  int
}

// NewChain returns an empty chain at block 0, epoch 1.
func NewChain() *Chain {
	return &Chain{
		state:     newWorld(),
		snapshots: make(map[int]*world),
	}
}

// ContractAddress derives a deterministic address for a deployed contract.
func ContractAddress(label string) sdk.AccAddress {
	sum := sha256.Sum256([]byte("contract/" + label))
	return sdk.AccAddress(sum[:20])
}

// AccountAddress derives a deterministic address for a test account.
func AccountAddress(label string) sdk.AccAddress {
	sum := sha256.Sum256([]byte("account/" + label))
	return sdk.AccAddress(sum[:20])
}

func (c *Chain) nextContract(kind string) sdk.AccAddress {
	c.deployed++
	return ContractAddress(fmt.Sprintf("%s-%d", kind, c.deployed))
}

// Snapshot records the current state and returns its id.
func (c *Chain) Snapshot() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSnap
	c.nextSnap++
	c.snapshots[id] = c.state.clone()
	if len(c.snapshots) > maxSnapshots {
		delete(c.snapshots, id-maxSnapshots)
	}
	return id
}

// RevertToSnapshot restores the state recorded by Snapshot(id) and drops later snapshots.
func (c *Chain) RevertToSnapshot(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.snapshots[id]
	if !ok {
		chainLogger.Error().Int("snapshot", id).Msg("Snapshot no longer available, state not reverted")
		return
	}
	c.state = snap
	for k := range c.snapshots {
		if k >= id {
			delete(c.snapshots, k)
		}
	}
	chainLogger.Debug().Int("snapshot", id).Msg("Reverted chain state")
}

// Block returns the current block number.
func (c *Chain) Block() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.block
}

// Epoch returns the current epoch.
func (c *Chain) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.epoch
}

// AdvanceBlocks moves the chain forward; farms emit rewards per block.
func (c *Chain) AdvanceBlocks(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.block += n
}

// AdvanceEpochs moves the epoch forward.
func (c *Chain) AdvanceEpochs(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.epoch += n
}

// Mint credits tokens out of thin air.
func (c *Chain) Mint(addr sdk.AccAddress, list ...types.Payment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range list {
		c.state.mint(addr, p)
	}
}

// Transfer moves tokens between two accounts.
func (c *Chain) Transfer(from, to sdk.AccAddress, list ...types.Payment) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.transfer(from, to, list...)
}

// Balance returns the amount of (token, nonce) held by addr.
func (c *Chain) Balance(addr sdk.AccAddress, tokenID string, nonce uint64) sdkmath.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.balance(addr, tokenID, nonce)
}

// Holdings lists every token addr holds, sorted by token then nonce.
func (c *Chain) Holdings(addr sdk.AccAddress) []types.Payment {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []types.Payment{}
	for _, h := range c.state.balances[string(addr)] {
		out = append(out, types.NewPayment(h.TokenID, h.Nonce, h.Amount))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TokenID != out[j].TokenID {
			return out[i].TokenID < out[j].TokenID
		}
		return out[i].Nonce < out[j].Nonce
	})
	return out
}

// TotalOf sums every nonce of tokenID held by addr.
func (c *Chain) TotalOf(addr sdk.AccAddress, tokenID string) sdkmath.Int {
	total := sdkmath.ZeroInt()
	for _, p := range c.Holdings(addr) {
		if p.TokenID == tokenID {
			total = total.Add(p.Amount)
		}
	}
	return total
}

// SetStorage overrides a public storage key of a contract.
func (c *Chain) SetStorage(contract sdk.AccAddress, key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.setStorage(contract, key, value)
}

// Host returns the collaborators of an engine deployed at caller.
func (c *Chain) Host(caller sdk.AccAddress) *contracts.Host {
	return &contracts.Host{
		Resolver:      &resolver{chain: c, caller: caller},
		Energy:        &energyClient{chain: c, caller: caller},
		FeesCollector: &feesCollectorClient{chain: c, caller: caller},
		Metabonding:   &metabondingClient{chain: c, caller: caller},
		NativeWrapper: &nativeWrapperClient{chain: c, caller: caller},
		Ledger:        &ledgerClient{chain: c, caller: caller},
		Storage:       &storageClient{chain: c},
		Journal:       c,
	}
}
