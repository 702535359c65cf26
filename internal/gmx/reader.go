package gmx

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Caller is the read-only slice of an RPC client the reader needs.
// *ethclient.Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type Addresses struct {
	Vault            common.Address
	GlpManager       common.Address
	ShortsTracker    common.Address
	ShareToken       common.Address
	FeeRewardTracker common.Address
	StakedTracker    common.Address
	NativeToken      common.Address
}

type Reader struct {
	caller        Caller
	addrs         Addresses
	vault         abi.ABI
	shortsTracker abi.ABI
	glpManager    abi.ABI
	erc20         abi.ABI
	rewardTracker abi.ABI
}

func Dial(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	if strings.TrimSpace(rpcURL) == "" {
		return nil, errors.New("rpc url is required")
	}
	return ethclient.DialContext(ctx, rpcURL)
}

func NewReader(caller Caller, addrs Addresses) (*Reader, error) {
	if caller == nil {
		return nil, errors.New("contract caller is required")
	}
	r := &Reader{caller: caller, addrs: addrs}
	for _, item := range []struct {
		dst  *abi.ABI
		name string
		json string
	}{
		{&r.vault, "vault", vaultABIJSON},
		{&r.shortsTracker, "shorts tracker", shortsTrackerABIJSON},
		{&r.glpManager, "glp manager", glpManagerABIJSON},
		{&r.erc20, "erc20", erc20ABIJSON},
		{&r.rewardTracker, "reward tracker", rewardTrackerABIJSON},
	} {
		parsed, err := abi.JSON(strings.NewReader(item.json))
		if err != nil {
			return nil, fmt.Errorf("parse %s abi: %w", item.name, err)
		}
		*item.dst = parsed
	}
	return r, nil
}

func (r *Reader) Addresses() Addresses {
	return r.addrs
}

func (r *Reader) call(ctx context.Context, contract abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, to.Hex(), err)
	}
	values, err := contract.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s returned no values", method)
	}
	return values, nil
}

func (r *Reader) callUint(ctx context.Context, contract abi.ABI, to common.Address, method string, args ...interface{}) (*big.Int, error) {
	values, err := r.call(ctx, contract, to, method, args...)
	if err != nil {
		return nil, err
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s returned %T, want uint256", method, values[0])
	}
	return v, nil
}

func (r *Reader) callBool(ctx context.Context, contract abi.ABI, to common.Address, method string, args ...interface{}) (bool, error) {
	values, err := r.call(ctx, contract, to, method, args...)
	if err != nil {
		return false, err
	}
	v, ok := values[0].(bool)
	if !ok {
		return false, fmt.Errorf("%s returned %T, want bool", method, values[0])
	}
	return v, nil
}

func (r *Reader) WhitelistedTokens(ctx context.Context) ([]common.Address, error) {
	n, err := r.callUint(ctx, r.vault, r.addrs.Vault, "allWhitelistedTokensLength")
	if err != nil {
		return nil, err
	}
	if !n.IsInt64() {
		return nil, fmt.Errorf("whitelisted token count %s out of range", n)
	}
	tokens := make([]common.Address, 0, n.Int64())
	for i := int64(0); i < n.Int64(); i++ {
		values, err := r.call(ctx, r.vault, r.addrs.Vault, "allWhitelistedTokens", big.NewInt(i))
		if err != nil {
			return nil, err
		}
		addr, ok := values[0].(common.Address)
		if !ok {
			return nil, fmt.Errorf("allWhitelistedTokens returned %T", values[0])
		}
		tokens = append(tokens, addr)
	}
	return tokens, nil
}

func (r *Reader) IsStable(ctx context.Context, token common.Address) (bool, error) {
	return r.callBool(ctx, r.vault, r.addrs.Vault, "stableTokens", token)
}

func (r *Reader) IsShortable(ctx context.Context, token common.Address) (bool, error) {
	return r.callBool(ctx, r.vault, r.addrs.Vault, "shortableTokens", token)
}

func (r *Reader) PoolAmount(ctx context.Context, token common.Address) (*big.Int, error) {
	return r.callUint(ctx, r.vault, r.addrs.Vault, "poolAmounts", token)
}

func (r *Reader) ReservedAmount(ctx context.Context, token common.Address) (*big.Int, error) {
	return r.callUint(ctx, r.vault, r.addrs.Vault, "reservedAmounts", token)
}

// GlobalShortSizeUSD is the aggregate short notional, 30 decimals.
func (r *Reader) GlobalShortSizeUSD(ctx context.Context, token common.Address) (*big.Int, error) {
	return r.callUint(ctx, r.vault, r.addrs.Vault, "globalShortSizes", token)
}

func (r *Reader) GlobalShortAveragePrice(ctx context.Context, token common.Address) (*big.Int, error) {
	return r.callUint(ctx, r.shortsTracker, r.addrs.ShortsTracker, "globalShortAveragePrices", token)
}

func (r *Reader) MinPrice(ctx context.Context, token common.Address) (*big.Int, error) {
	return r.callUint(ctx, r.vault, r.addrs.Vault, "getMinPrice", token)
}

func (r *Reader) MaxPrice(ctx context.Context, token common.Address) (*big.Int, error) {
	return r.callUint(ctx, r.vault, r.addrs.Vault, "getMaxPrice", token)
}

// SharePrice is the GlpManager price per share token, 30 decimals.
func (r *Reader) SharePrice(ctx context.Context, maximise bool) (*big.Int, error) {
	return r.callUint(ctx, r.glpManager, r.addrs.GlpManager, "getPrice", maximise)
}

func (r *Reader) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	values, err := r.call(ctx, r.erc20, token, "decimals")
	if err != nil {
		return 0, err
	}
	v, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals returned %T", values[0])
	}
	return v, nil
}

func (r *Reader) Symbol(ctx context.Context, token common.Address) (string, error) {
	values, err := r.call(ctx, r.erc20, token, "symbol")
	if err != nil {
		return "", err
	}
	v, ok := values[0].(string)
	if !ok {
		return "", fmt.Errorf("symbol returned %T", values[0])
	}
	return v, nil
}

func (r *Reader) TotalSupply(ctx context.Context, token common.Address) (*big.Int, error) {
	return r.callUint(ctx, r.erc20, token, "totalSupply")
}

func (r *Reader) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	return r.callUint(ctx, r.erc20, token, "balanceOf", account)
}

func (r *Reader) Claimable(ctx context.Context, tracker, account common.Address) (*big.Int, error) {
	return r.callUint(ctx, r.rewardTracker, tracker, "claimable", account)
}
