package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"glp-hedge-bot/internal/config"
	"glp-hedge-bot/internal/strategy"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Venue answers meaning "already in the requested state".
const (
	codeNoNeedToChangeMarginType = -4046
	codeNoNeedToChangeLeverage   = -4048
)

const (
	marginAdd    = 1
	marginReduce = 2
)

var ErrPositionNotFound = errors.New("position not found")

type Position struct {
	strategy.PositionState
	MarginType      string
	LeverageSetting int
}

type Balances struct {
	WalletBalance    float64
	AvailableBalance float64
	UnrealizedPnL    float64
}

type Client struct {
	api *futures.Client
	log *zap.Logger
}

func NewClient(cfg config.BinanceConfig, log *zap.Logger) *Client {
	api := futures.NewClient(cfg.APIKey, cfg.APISecret)
	if cfg.BaseURL != "" {
		api.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Timeout > 0 {
		api.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{api: api, log: log}
}

// FilterRules loads LOT_SIZE rules for every perpetual contract.
func (c *Client) FilterRules(ctx context.Context) (map[string]strategy.FilterRules, error) {
	info, err := c.api.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: exchange info: %v", strategy.ErrProviderFetch, err)
	}
	rules := filterRulesFromSymbols(info.Symbols)
	if len(rules) == 0 {
		return nil, fmt.Errorf("%w: exchange info has no perpetual LOT_SIZE filters", strategy.ErrNoFilterRules)
	}
	return rules, nil
}

func (c *Client) Position(ctx context.Context, symbol string) (Position, error) {
	risks, err := c.api.NewGetPositionRiskService().Symbol(symbol).Do(ctx)
	if err != nil {
		return Position{}, fmt.Errorf("%w: position risk %s: %v", strategy.ErrProviderFetch, symbol, err)
	}
	for _, risk := range risks {
		if risk == nil || risk.Symbol != symbol {
			continue
		}
		state, err := positionFromRisk(risk)
		if err != nil {
			return Position{}, err
		}
		return Position{
			PositionState:   state,
			MarginType:      strings.ToUpper(risk.MarginType),
			LeverageSetting: parseInt(risk.Leverage),
		}, nil
	}
	return Position{}, fmt.Errorf("%w: %s", ErrPositionNotFound, symbol)
}

func (c *Client) Balances(ctx context.Context) (Balances, error) {
	account, err := c.api.NewGetAccountService().Do(ctx)
	if err != nil {
		return Balances{}, fmt.Errorf("%w: account: %v", strategy.ErrProviderFetch, err)
	}
	var p fieldParser
	balances := Balances{
		WalletBalance:    p.float("totalWalletBalance", account.TotalWalletBalance),
		AvailableBalance: p.float("availableBalance", account.AvailableBalance),
		UnrealizedPnL:    p.float("totalUnrealizedProfit", account.TotalUnrealizedProfit),
	}
	if p.err != nil {
		return Balances{}, fmt.Errorf("%w: account: %v", strategy.ErrProviderFetch, p.err)
	}
	return balances, nil
}

func (c *Client) SetMarginType(ctx context.Context, symbol, marginType string) error {
	err := c.api.NewChangeMarginTypeService().
		Symbol(symbol).
		MarginType(futures.MarginType(strings.ToUpper(marginType))).
		Do(ctx)
	if err != nil && !isAPICode(err, codeNoNeedToChangeMarginType) {
		return fmt.Errorf("set margin type %s: %w", symbol, err)
	}
	return nil
}

func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	_, err := c.api.NewChangeLeverageService().Symbol(symbol).Leverage(leverage).Do(ctx)
	if err != nil && !isAPICode(err, codeNoNeedToChangeLeverage) {
		return fmt.Errorf("set leverage %s: %w", symbol, err)
	}
	return nil
}

// AdjustMargin adds or removes isolated margin. The amount is sent with two
// decimals.
func (c *Client) AdjustMargin(ctx context.Context, symbol string, amount float64, direction strategy.MarginDirection) error {
	kind := marginAdd
	switch direction {
	case strategy.MarginAdd:
	case strategy.MarginRemove:
		kind = marginReduce
	default:
		return fmt.Errorf("adjust margin %s: unsupported direction %q", symbol, direction)
	}
	err := c.api.NewUpdatePositionMarginService().
		Symbol(symbol).
		Amount(decimal.NewFromFloat(amount).StringFixed(2)).
		Type(kind).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("%w: %s margin %s: %v", strategy.ErrOrderRejected, strings.ToLower(string(direction)), symbol, err)
	}
	return nil
}

func (c *Client) MarketOrder(ctx context.Context, symbol string, side strategy.Side, quantity float64) (strategy.Fill, error) {
	resp, err := c.api.NewCreateOrderService().
		Symbol(symbol).
		Side(futures.SideType(side)).
		Type(futures.OrderTypeMarket).
		Quantity(FormatQuantity(quantity)).
		NewOrderResponseType(futures.NewOrderRespTypeRESULT).
		Do(ctx)
	if err != nil {
		return strategy.Fill{}, fmt.Errorf("%w: %s %s %s: %v", strategy.ErrOrderRejected, side, FormatQuantity(quantity), symbol, err)
	}
	fill := strategy.Fill{
		Symbol:       symbol,
		Side:         side,
		Quantity:     parseFloat(resp.ExecutedQuantity),
		AveragePrice: parseFloat(resp.AvgPrice),
	}
	if fill.Quantity == 0 {
		fill.Quantity = quantity
	}
	return fill, nil
}

func FormatQuantity(quantity float64) string {
	return decimal.NewFromFloat(quantity).String()
}

func isAPICode(err error, code int64) bool {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}
