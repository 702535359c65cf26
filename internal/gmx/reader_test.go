package gmx

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

type handler func(to common.Address, args []interface{}) ([]interface{}, error)

type fakeCaller struct {
	abis     []abi.ABI
	handlers map[string]handler
	calls    []string
}

func newFakeCaller(t *testing.T) *fakeCaller {
	t.Helper()
	f := &fakeCaller{handlers: map[string]handler{}}
	for _, raw := range []string{vaultABIJSON, shortsTrackerABIJSON, glpManagerABIJSON, erc20ABIJSON, rewardTrackerABIJSON} {
		parsed, err := abi.JSON(strings.NewReader(raw))
		if err != nil {
			t.Fatalf("parse abi: %v", err)
		}
		f.abis = append(f.abis, parsed)
	}
	return f
}

func (f *fakeCaller) on(method string, h handler) {
	f.handlers[method] = h
}

func (f *fakeCaller) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if len(call.Data) < 4 || call.To == nil {
		return nil, errors.New("malformed call")
	}
	for _, contract := range f.abis {
		method, err := contract.MethodById(call.Data[:4])
		if err != nil {
			continue
		}
		args, err := method.Inputs.Unpack(call.Data[4:])
		if err != nil {
			return nil, err
		}
		f.calls = append(f.calls, method.Name)
		h, ok := f.handlers[method.Name]
		if !ok {
			return nil, fmt.Errorf("no handler for %s", method.Name)
		}
		out, err := h(*call.To, args)
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(out...)
	}
	return nil, errors.New("unknown selector")
}

func newTestReader(t *testing.T, caller Caller) *Reader {
	t.Helper()
	r, err := NewReader(caller, Addresses{
		Vault:         common.HexToAddress("0x01"),
		GlpManager:    common.HexToAddress("0x02"),
		ShortsTracker: common.HexToAddress("0x03"),
	})
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	return r
}

func TestWhitelistedTokens(t *testing.T) {
	caller := newFakeCaller(t)
	tokens := []common.Address{common.HexToAddress("0xaa"), common.HexToAddress("0xbb")}
	caller.on("allWhitelistedTokensLength", func(common.Address, []interface{}) ([]interface{}, error) {
		return []interface{}{big.NewInt(int64(len(tokens)))}, nil
	})
	caller.on("allWhitelistedTokens", func(_ common.Address, args []interface{}) ([]interface{}, error) {
		return []interface{}{tokens[args[0].(*big.Int).Int64()]}, nil
	})
	got, err := newTestReader(t, caller).WhitelistedTokens(context.Background())
	if err != nil {
		t.Fatalf("whitelisted tokens: %v", err)
	}
	if len(got) != 2 || got[0] != tokens[0] || got[1] != tokens[1] {
		t.Fatalf("unexpected tokens %v", got)
	}
}

func TestERC20Reads(t *testing.T) {
	caller := newFakeCaller(t)
	token := common.HexToAddress("0xcc")
	account := common.HexToAddress("0xdd")
	caller.on("decimals", func(to common.Address, _ []interface{}) ([]interface{}, error) {
		if to != token {
			return nil, fmt.Errorf("unexpected target %s", to.Hex())
		}
		return []interface{}{uint8(8)}, nil
	})
	caller.on("symbol", func(common.Address, []interface{}) ([]interface{}, error) {
		return []interface{}{"WBTC"}, nil
	})
	caller.on("balanceOf", func(_ common.Address, args []interface{}) ([]interface{}, error) {
		if args[0].(common.Address) != account {
			return nil, errors.New("unexpected account")
		}
		return []interface{}{big.NewInt(150_000_000)}, nil
	})
	r := newTestReader(t, caller)
	ctx := context.Background()
	decimals, err := r.Decimals(ctx, token)
	if err != nil || decimals != 8 {
		t.Fatalf("expected 8 decimals, got %d (%v)", decimals, err)
	}
	symbol, err := r.Symbol(ctx, token)
	if err != nil || symbol != "WBTC" {
		t.Fatalf("expected WBTC, got %q (%v)", symbol, err)
	}
	balance, err := r.BalanceOf(ctx, token, account)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if got := ToFloat(balance, decimals); got != 1.5 {
		t.Fatalf("expected 1.5, got %v", got)
	}
}

func TestSharePriceUsesGlpManager(t *testing.T) {
	caller := newFakeCaller(t)
	caller.on("getPrice", func(to common.Address, args []interface{}) ([]interface{}, error) {
		if to != common.HexToAddress("0x02") {
			return nil, errors.New("wrong contract")
		}
		if args[0].(bool) {
			return []interface{}{scaled(1.02)}, nil
		}
		return []interface{}{scaled(1.00)}, nil
	})
	r := newTestReader(t, caller)
	hi, err := r.SharePrice(context.Background(), true)
	if err != nil {
		t.Fatalf("share price: %v", err)
	}
	lo, err := r.SharePrice(context.Background(), false)
	if err != nil {
		t.Fatalf("share price: %v", err)
	}
	if got := ToFloat(Mid(hi, lo), PriceDecimals); got != 1.01 {
		t.Fatalf("expected mid 1.01, got %v", got)
	}
}

func TestCallErrorIsWrapped(t *testing.T) {
	caller := newFakeCaller(t)
	boom := errors.New("rpc down")
	caller.on("poolAmounts", func(common.Address, []interface{}) ([]interface{}, error) {
		return nil, boom
	})
	_, err := newTestReader(t, caller).PoolAmount(context.Background(), common.HexToAddress("0xaa"))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped rpc error, got %v", err)
	}
}

func TestNewReaderRequiresCaller(t *testing.T) {
	if _, err := NewReader(nil, Addresses{}); err == nil {
		t.Fatalf("expected error for nil caller")
	}
}

func TestToFloat(t *testing.T) {
	if got := ToFloat(nil, 18); got != 0 {
		t.Fatalf("expected 0 for nil, got %v", got)
	}
	v, _ := new(big.Int).SetString("2500000000000000000", 10)
	if got := ToFloat(v, 18); got != 2.5 {
		t.Fatalf("expected 2.5, got %v", got)
	}
}

// scaled encodes v with PriceDecimals of precision.
func scaled(v float64) *big.Int {
	return decimal.NewFromFloat(v).Shift(PriceDecimals).BigInt()
}
