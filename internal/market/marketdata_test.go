package market

import (
	"context"
	"errors"
	"math"
	"math/big"
	"testing"

	"glp-hedge-bot/internal/gmx"
	"glp-hedge-bot/internal/strategy"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var (
	wethAddr  = common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1")
	usdcAddr  = common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831")
	shareAddr = common.HexToAddress("0x1aDDD80E6039594eE970E5872D247bf0414C8903")
	feeAddr   = common.HexToAddress("0x4e971a87900b931fF39d1Aad67697F49835400b6")
	account   = common.HexToAddress("0x1111111111111111111111111111111111111111")
)

type fakeChain struct {
	tokens      []common.Address
	symbols     map[common.Address]string
	decimals    map[common.Address]uint8
	stable      map[common.Address]bool
	shortable   map[common.Address]bool
	pool        map[common.Address]*big.Int
	reserved    map[common.Address]*big.Int
	shortUSD    map[common.Address]*big.Int
	shortPrice  map[common.Address]*big.Int
	prices      map[common.Address]*big.Int
	supply      *big.Int
	balance     *big.Int
	sharePrice  *big.Int
	claimable   map[common.Address]*big.Int
	failReserve bool
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		tokens:     []common.Address{usdcAddr, wethAddr},
		symbols:    map[common.Address]string{usdcAddr: "USDC", wethAddr: "WETH", shareAddr: "fsGLP"},
		decimals:   map[common.Address]uint8{usdcAddr: 6, wethAddr: 18, shareAddr: 18},
		stable:     map[common.Address]bool{usdcAddr: true},
		shortable:  map[common.Address]bool{wethAddr: true},
		pool:       map[common.Address]*big.Int{wethAddr: units(1000, 18)},
		reserved:   map[common.Address]*big.Int{wethAddr: units(400, 18)},
		shortUSD:   map[common.Address]*big.Int{wethAddr: units(400000, 30)},
		shortPrice: map[common.Address]*big.Int{wethAddr: units(2000, 30)},
		prices:     map[common.Address]*big.Int{wethAddr: units(2000, 30)},
		supply:     units(1000, 18),
		balance:    units(100, 18),
		sharePrice: units(1, 30),
		claimable:  map[common.Address]*big.Int{feeAddr: units(0.5, 18), shareAddr: units(3, 18)},
	}
}

func units(v float64, decimals int32) *big.Int {
	return decimal.NewFromFloat(v).Shift(decimals).BigInt()
}

func (f *fakeChain) WhitelistedTokens(context.Context) ([]common.Address, error) {
	return f.tokens, nil
}

func (f *fakeChain) IsStable(_ context.Context, token common.Address) (bool, error) {
	return f.stable[token], nil
}

func (f *fakeChain) IsShortable(_ context.Context, token common.Address) (bool, error) {
	return f.shortable[token], nil
}

func (f *fakeChain) Decimals(_ context.Context, token common.Address) (uint8, error) {
	return f.decimals[token], nil
}

func (f *fakeChain) Symbol(_ context.Context, token common.Address) (string, error) {
	return f.symbols[token], nil
}

func (f *fakeChain) PoolAmount(_ context.Context, token common.Address) (*big.Int, error) {
	return orZero(f.pool[token]), nil
}

func (f *fakeChain) ReservedAmount(_ context.Context, token common.Address) (*big.Int, error) {
	if f.failReserve {
		return nil, errors.New("rpc timeout")
	}
	return orZero(f.reserved[token]), nil
}

func (f *fakeChain) GlobalShortSizeUSD(_ context.Context, token common.Address) (*big.Int, error) {
	return orZero(f.shortUSD[token]), nil
}

func (f *fakeChain) GlobalShortAveragePrice(_ context.Context, token common.Address) (*big.Int, error) {
	return orZero(f.shortPrice[token]), nil
}

func (f *fakeChain) MinPrice(_ context.Context, token common.Address) (*big.Int, error) {
	return orZero(f.prices[token]), nil
}

func (f *fakeChain) MaxPrice(_ context.Context, token common.Address) (*big.Int, error) {
	return orZero(f.prices[token]), nil
}

func (f *fakeChain) SharePrice(context.Context, bool) (*big.Int, error) {
	return f.sharePrice, nil
}

func (f *fakeChain) TotalSupply(context.Context, common.Address) (*big.Int, error) {
	return f.supply, nil
}

func (f *fakeChain) BalanceOf(_ context.Context, _, owner common.Address) (*big.Int, error) {
	if owner != account {
		return big.NewInt(0), nil
	}
	return f.balance, nil
}

func (f *fakeChain) Claimable(_ context.Context, tracker, _ common.Address) (*big.Int, error) {
	return orZero(f.claimable[tracker]), nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

func newTestMarket(chain Chain) *MarketData {
	return New(chain, gmx.Addresses{
		ShareToken:       shareAddr,
		FeeRewardTracker: feeAddr,
		StakedTracker:    shareAddr,
		NativeToken:      wethAddr,
	}, account, nil)
}

func TestUniverseAndTargets(t *testing.T) {
	md := newTestMarket(newFakeChain())
	tokens, err := md.Universe(context.Background())
	if err != nil {
		t.Fatalf("universe: %v", err)
	}
	if len(tokens) != 2 || tokens[0].Symbol != "USDC" || !tokens[0].IsStable || tokens[1].Decimals != 18 {
		t.Fatalf("unexpected universe %+v", tokens)
	}
	targets := HedgeTargets(tokens, nil)
	if len(targets) != 1 || targets[0].Symbol != "WETH" {
		t.Fatalf("expected WETH target, got %+v", targets)
	}
	if got := HedgeTargets(tokens, []string{"wbtc"}); len(got) != 0 {
		t.Fatalf("expected allow-list to exclude WETH, got %+v", got)
	}
	if got := HedgeTargets(tokens, []string{" weth "}); len(got) != 1 {
		t.Fatalf("expected allow-list match, got %+v", got)
	}
}

func TestPoolShare(t *testing.T) {
	md := newTestMarket(newFakeChain())
	share, err := md.PoolShare(context.Background())
	if err != nil {
		t.Fatalf("pool share: %v", err)
	}
	if share.TotalSupply != 1000 || share.AccountBalance != 100 || share.SharePrice != 1 {
		t.Fatalf("unexpected share %+v", share)
	}
}

func TestPoolShareRejectsZeroSupply(t *testing.T) {
	chain := newFakeChain()
	chain.supply = big.NewInt(0)
	if _, err := newTestMarket(chain).PoolShare(context.Background()); !errors.Is(err, strategy.ErrProviderFetch) {
		t.Fatalf("expected provider fetch error, got %v", err)
	}
}

func TestPoolReserves(t *testing.T) {
	md := newTestMarket(newFakeChain())
	state, err := md.PoolReserves(context.Background(), Token{Address: wethAddr, Symbol: "WETH", Decimals: 18})
	if err != nil {
		t.Fatalf("pool reserves: %v", err)
	}
	if state.PooledAmount != 1000 || state.GlobalLongSize != 400 {
		t.Fatalf("unexpected reserves %+v", state)
	}
	if math.Abs(state.GlobalShortSize-200) > 1e-9 {
		t.Fatalf("expected short size 200, got %v", state.GlobalShortSize)
	}
}

func TestPoolReservesWithoutShorts(t *testing.T) {
	chain := newFakeChain()
	chain.shortUSD[wethAddr] = big.NewInt(0)
	chain.shortPrice[wethAddr] = big.NewInt(0)
	state, err := newTestMarket(chain).PoolReserves(context.Background(), Token{Address: wethAddr, Symbol: "WETH", Decimals: 18})
	if err != nil {
		t.Fatalf("pool reserves: %v", err)
	}
	if state.GlobalShortSize != 0 {
		t.Fatalf("expected zero short size, got %v", state.GlobalShortSize)
	}
}

func TestPoolReservesErrors(t *testing.T) {
	chain := newFakeChain()
	chain.shortPrice[wethAddr] = big.NewInt(0)
	md := newTestMarket(chain)
	token := Token{Address: wethAddr, Symbol: "WETH", Decimals: 18}
	if _, err := md.PoolReserves(context.Background(), token); !errors.Is(err, strategy.ErrProviderFetch) {
		t.Fatalf("expected provider fetch error for zero average price, got %v", err)
	}
	chain = newFakeChain()
	chain.failReserve = true
	if _, err := newTestMarket(chain).PoolReserves(context.Background(), token); !errors.Is(err, strategy.ErrProviderFetch) {
		t.Fatalf("expected provider fetch error for rpc failure, got %v", err)
	}
}

func TestRewards(t *testing.T) {
	md := newTestMarket(newFakeChain())
	if _, err := md.Universe(context.Background()); err != nil {
		t.Fatalf("universe: %v", err)
	}
	rewards, err := md.Rewards(context.Background())
	if err != nil {
		t.Fatalf("rewards: %v", err)
	}
	if rewards.Native != 0.5 || rewards.NativeUSD != 1000 || rewards.Secondary != 3 {
		t.Fatalf("unexpected rewards %+v", rewards)
	}
	if rewards.NativeSymbol != "WETH" {
		t.Fatalf("expected WETH symbol, got %q", rewards.NativeSymbol)
	}
}
