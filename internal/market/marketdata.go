package market

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"glp-hedge-bot/internal/gmx"
	"glp-hedge-bot/internal/strategy"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Chain is the set of contract reads the market data provider relies on.
type Chain interface {
	WhitelistedTokens(ctx context.Context) ([]common.Address, error)
	IsStable(ctx context.Context, token common.Address) (bool, error)
	IsShortable(ctx context.Context, token common.Address) (bool, error)
	Decimals(ctx context.Context, token common.Address) (uint8, error)
	Symbol(ctx context.Context, token common.Address) (string, error)
	PoolAmount(ctx context.Context, token common.Address) (*big.Int, error)
	ReservedAmount(ctx context.Context, token common.Address) (*big.Int, error)
	GlobalShortSizeUSD(ctx context.Context, token common.Address) (*big.Int, error)
	GlobalShortAveragePrice(ctx context.Context, token common.Address) (*big.Int, error)
	MinPrice(ctx context.Context, token common.Address) (*big.Int, error)
	MaxPrice(ctx context.Context, token common.Address) (*big.Int, error)
	SharePrice(ctx context.Context, maximise bool) (*big.Int, error)
	TotalSupply(ctx context.Context, token common.Address) (*big.Int, error)
	BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error)
	Claimable(ctx context.Context, tracker, account common.Address) (*big.Int, error)
}

type Token struct {
	Address     common.Address
	Symbol      string
	Decimals    uint8
	IsStable    bool
	IsShortable bool
}

type Rewards struct {
	Native       float64
	NativeSymbol string
	NativePrice  float64
	NativeUSD    float64
	Secondary    float64
}

type MarketData struct {
	chain   Chain
	addrs   gmx.Addresses
	account common.Address
	log     *zap.Logger

	mu     sync.RWMutex
	tokens map[common.Address]Token
}

func New(chain Chain, addrs gmx.Addresses, account common.Address, log *zap.Logger) *MarketData {
	if log == nil {
		log = zap.NewNop()
	}
	return &MarketData{
		chain:   chain,
		addrs:   addrs,
		account: account,
		log:     log,
		tokens:  make(map[common.Address]Token),
	}
}

func (m *MarketData) Account() common.Address {
	return m.account
}

// Universe lists the vault's whitelisted tokens in whitelist order.
func (m *MarketData) Universe(ctx context.Context) ([]Token, error) {
	addrs, err := m.chain.WhitelistedTokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: whitelisted tokens: %v", strategy.ErrProviderFetch, err)
	}
	tokens := make([]Token, 0, len(addrs))
	for _, addr := range addrs {
		token, err := m.tokenInfo(ctx, addr)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	m.mu.Lock()
	for _, token := range tokens {
		m.tokens[token.Address] = token
	}
	m.mu.Unlock()
	m.log.Info("token universe loaded", zap.Int("tokens", len(tokens)))
	return tokens, nil
}

func (m *MarketData) tokenInfo(ctx context.Context, addr common.Address) (Token, error) {
	token := Token{Address: addr}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		token.Decimals, err = m.chain.Decimals(gctx, addr)
		return err
	})
	g.Go(func() error {
		var err error
		token.Symbol, err = m.chain.Symbol(gctx, addr)
		return err
	})
	g.Go(func() error {
		var err error
		token.IsStable, err = m.chain.IsStable(gctx, addr)
		return err
	})
	g.Go(func() error {
		var err error
		token.IsShortable, err = m.chain.IsShortable(gctx, addr)
		return err
	})
	if err := g.Wait(); err != nil {
		return Token{}, fmt.Errorf("%w: token %s: %v", strategy.ErrProviderFetch, addr.Hex(), err)
	}
	return token, nil
}

// PoolShare reads the share token supply, the account's balance and the mid
// share price.
func (m *MarketData) PoolShare(ctx context.Context) (strategy.PoolShare, error) {
	var (
		supply, balance, maxPrice, minPrice *big.Int
		decimals                            uint8
	)
	share := m.addrs.ShareToken
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { supply, err = m.chain.TotalSupply(gctx, share); return })
	g.Go(func() (err error) { balance, err = m.chain.BalanceOf(gctx, share, m.account); return })
	g.Go(func() (err error) { decimals, err = m.chain.Decimals(gctx, share); return })
	g.Go(func() (err error) { maxPrice, err = m.chain.SharePrice(gctx, true); return })
	g.Go(func() (err error) { minPrice, err = m.chain.SharePrice(gctx, false); return })
	if err := g.Wait(); err != nil {
		return strategy.PoolShare{}, fmt.Errorf("%w: pool share: %v", strategy.ErrProviderFetch, err)
	}
	result := strategy.PoolShare{
		TotalSupply:    gmx.ToFloat(supply, decimals),
		AccountBalance: gmx.ToFloat(balance, decimals),
		SharePrice:     gmx.ToFloat(gmx.Mid(maxPrice, minPrice), gmx.PriceDecimals),
	}
	if result.SharePrice <= 0 {
		return strategy.PoolShare{}, fmt.Errorf("%w: share price is %v", strategy.ErrProviderFetch, result.SharePrice)
	}
	if _, err := result.Ratio(); err != nil {
		return strategy.PoolShare{}, err
	}
	return result, nil
}

// PoolReserves reads the pool composition for token. The global short size is
// converted from USD to token units at the tracker's average short price.
func (m *MarketData) PoolReserves(ctx context.Context, token Token) (strategy.PoolState, error) {
	var pooled, reserved, shortUSD, shortPrice *big.Int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { pooled, err = m.chain.PoolAmount(gctx, token.Address); return })
	g.Go(func() (err error) { reserved, err = m.chain.ReservedAmount(gctx, token.Address); return })
	g.Go(func() (err error) { shortUSD, err = m.chain.GlobalShortSizeUSD(gctx, token.Address); return })
	g.Go(func() (err error) { shortPrice, err = m.chain.GlobalShortAveragePrice(gctx, token.Address); return })
	if err := g.Wait(); err != nil {
		return strategy.PoolState{}, fmt.Errorf("%w: pool reserves %s: %v", strategy.ErrProviderFetch, token.Symbol, err)
	}
	shortSize, err := globalShortSize(shortUSD, shortPrice)
	if err != nil {
		return strategy.PoolState{}, fmt.Errorf("%w: pool reserves %s: %v", strategy.ErrProviderFetch, token.Symbol, err)
	}
	return strategy.PoolState{
		Token:           token.Symbol,
		PooledAmount:    gmx.ToFloat(pooled, token.Decimals),
		GlobalLongSize:  gmx.ToFloat(reserved, token.Decimals),
		GlobalShortSize: shortSize,
	}, nil
}

func globalShortSize(shortUSD, averagePrice *big.Int) (float64, error) {
	usd := gmx.ToFloat(shortUSD, gmx.PriceDecimals)
	if usd == 0 {
		return 0, nil
	}
	price := gmx.ToFloat(averagePrice, gmx.PriceDecimals)
	if price <= 0 {
		return 0, errors.New("global short average price is zero with open shorts")
	}
	return usd / price, nil
}

// Price is the mid of the vault's min and max price for token.
func (m *MarketData) Price(ctx context.Context, token common.Address) (float64, error) {
	var minPrice, maxPrice *big.Int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { minPrice, err = m.chain.MinPrice(gctx, token); return })
	g.Go(func() (err error) { maxPrice, err = m.chain.MaxPrice(gctx, token); return })
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("%w: price %s: %v", strategy.ErrProviderFetch, token.Hex(), err)
	}
	price := gmx.ToFloat(gmx.Mid(minPrice, maxPrice), gmx.PriceDecimals)
	if price <= 0 {
		return 0, fmt.Errorf("%w: price %s is %v", strategy.ErrProviderFetch, token.Hex(), price)
	}
	return price, nil
}

// Rewards reads claimable fee rewards in the native token, valued at the
// vault price, and claimable escrowed rewards from the staked tracker.
func (m *MarketData) Rewards(ctx context.Context) (Rewards, error) {
	var (
		native, secondary *big.Int
		price             float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { native, err = m.chain.Claimable(gctx, m.addrs.FeeRewardTracker, m.account); return })
	g.Go(func() (err error) { secondary, err = m.chain.Claimable(gctx, m.addrs.StakedTracker, m.account); return })
	g.Go(func() (err error) { price, err = m.Price(gctx, m.addrs.NativeToken); return })
	if err := g.Wait(); err != nil {
		return Rewards{}, fmt.Errorf("%w: rewards: %v", strategy.ErrProviderFetch, err)
	}
	rewards := Rewards{
		Native:       gmx.ToFloat(native, gmx.RewardDecimals),
		NativeSymbol: m.symbolOf(m.addrs.NativeToken),
		NativePrice:  price,
		Secondary:    gmx.ToFloat(secondary, gmx.RewardDecimals),
	}
	rewards.NativeUSD = rewards.Native * price
	return rewards, nil
}

func (m *MarketData) symbolOf(addr common.Address) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if token, ok := m.tokens[addr]; ok {
		return token.Symbol
	}
	return "native"
}
