package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"glp-hedge-bot/internal/account"
	"glp-hedge-bot/internal/alerts"
	"glp-hedge-bot/internal/binance"
	"glp-hedge-bot/internal/config"
	"glp-hedge-bot/internal/exec"
	"glp-hedge-bot/internal/gmx"
	"glp-hedge-bot/internal/market"
	"glp-hedge-bot/internal/metrics"
	persist "glp-hedge-bot/internal/state"
	"glp-hedge-bot/internal/state/sqlite"
	"glp-hedge-bot/internal/strategy"
	"glp-hedge-bot/internal/telemetry"
	"glp-hedge-bot/internal/timescale"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultChainTimeout = 10 * time.Second
	metricsShutdown     = 5 * time.Second
)

type App struct {
	cfg       *config.Config
	log       *zap.Logger
	store     persist.Store
	market    MarketData
	venue     PositionVenue
	planner   *strategy.Planner
	executor  *exec.Executor
	reporter  *reporter
	metrics   *metrics.Metrics
	prom      *metrics.Prometheus
	sink      telemetry.Sink
	timescale PlanQueue
	strategy  *strategy.StateMachine
	closers   []func() error
	now       func() time.Time

	prepared bool
	rules    map[string]strategy.FilterRules
	targets  []market.Token
}

// deps are the collaborators New wires from config; tests supply fakes.
type deps struct {
	market    MarketData
	venue     PositionVenue
	orders    exec.Venue
	notifier  Notifier
	store     persist.Store
	sinks     []telemetry.Sink
	errors    telemetry.ErrorSink
	timescale PlanQueue
	prom      *metrics.Prometheus
	limiter   *rate.Limiter
}

func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.State.SQLitePath), 0o755); err != nil {
		return nil, err
	}
	store, err := sqlite.New(cfg.State.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}
	closers := []func() error{store.Close}
	fail := func(err error) (*App, error) {
		for _, c := range closers {
			_ = c()
		}
		return nil, err
	}

	timeout := cfg.Chain.Timeout
	if timeout <= 0 {
		timeout = defaultChainTimeout
	}
	dialCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	rpc, err := gmx.Dial(dialCtx, cfg.Chain.RPCURL)
	if err != nil {
		return fail(fmt.Errorf("dial rpc: %w", err))
	}
	closers = append(closers, func() error { rpc.Close(); return nil })
	reader, err := gmx.NewReader(rpc, contractAddresses(cfg.Chain.Contracts))
	if err != nil {
		return fail(err)
	}
	marketData := market.New(reader, reader.Addresses(), common.HexToAddress(cfg.Chain.Account), log)
	log.Info("pool share account", zap.String("account", marketData.Account().Hex()))

	venue := binance.NewClient(cfg.Binance, log)
	limiter := rate.NewLimiter(rate.Limit(cfg.Binance.RequestsPerSecond), cfg.Binance.Burst)
	acct := account.New(venue, account.Options{
		MarginType: cfg.Binance.MarginType,
		Leverage:   int(math.Round(cfg.Hedge.TargetLeverage)),
		Limiter:    limiter,
	}, log)

	writer, err := timescale.New(cfg.Timescale, log)
	if err != nil {
		return fail(fmt.Errorf("timescale init: %w", err))
	}
	d := deps{
		market:   marketData,
		venue:    acct,
		orders:   venue,
		notifier: alerts.NewTelegram(cfg.Telegram, log),
		store:    store,
		sinks:    []telemetry.Sink{store},
		errors:   store,
		limiter:  limiter,
	}
	if writer != nil {
		closers = append(closers, writer.Close)
		d.timescale = writer
		d.sinks = append(d.sinks, writer)
	}
	if cfg.Metrics.EnabledValue() {
		d.prom = metrics.NewPrometheus()
	}
	a, err := newApp(cfg, d, log)
	if err != nil {
		return fail(err)
	}
	a.closers = closers
	return a, nil
}

func newApp(cfg *config.Config, d deps, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if d.market == nil || d.venue == nil || d.orders == nil {
		return nil, errors.New("market data, position venue and order venue are required")
	}
	planner, err := strategy.NewPlanner(hedgeParams(cfg.Hedge))
	if err != nil {
		return nil, err
	}
	if cfg.Hedge.Interval <= 0 {
		return nil, errors.New("hedge interval must be > 0")
	}
	m := metrics.NewNoop()
	if d.prom != nil {
		m = d.prom.Metrics
	}
	rep := &reporter{notifier: d.notifier, errors: d.errors, log: log}
	executor := exec.New(d.orders, exec.Options{
		DryRun:   cfg.Hedge.DryRun,
		Limiter:  d.limiter,
		Metrics:  m,
		Reporter: rep,
	}, log)
	return &App{
		cfg:       cfg,
		log:       log,
		store:     d.store,
		market:    d.market,
		venue:     d.venue,
		planner:   planner,
		executor:  executor,
		reporter:  rep,
		metrics:   m,
		prom:      d.prom,
		sink:      telemetry.Multi(d.sinks),
		timescale: d.timescale,
		strategy:  strategy.NewStateMachine(),
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func hedgeParams(cfg config.HedgeConfig) strategy.Params {
	return strategy.Params{
		MinLeverage:        cfg.MinLeverage,
		TargetLeverage:     cfg.TargetLeverage,
		MaxLeverage:        cfg.MaxLeverage,
		HedgeBuffer:        cfg.HedgeBuffer,
		MarginAddFactor:    cfg.MarginAddFactor,
		MarginRemoveFactor: cfg.MarginRemoveFactor,
	}
}

func contractAddresses(cfg config.ContractsConfig) gmx.Addresses {
	return gmx.Addresses{
		Vault:            common.HexToAddress(cfg.Vault),
		GlpManager:       common.HexToAddress(cfg.GlpManager),
		ShortsTracker:    common.HexToAddress(cfg.ShortsTracker),
		ShareToken:       common.HexToAddress(cfg.ShareToken),
		FeeRewardTracker: common.HexToAddress(cfg.FeeRewardTracker),
		StakedTracker:    common.HexToAddress(cfg.StakedTracker),
		NativeToken:      common.HexToAddress(cfg.NativeToken),
	}
}

// Prepare loads the filter rules and the hedge targets. Run calls it once;
// failures are fatal to startup.
func (a *App) Prepare(ctx context.Context) error {
	rules, err := a.venue.FilterRules(ctx)
	if err != nil {
		return fmt.Errorf("load filter rules: %w", err)
	}
	universe, err := a.market.Universe(ctx)
	if err != nil {
		return fmt.Errorf("load token universe: %w", err)
	}
	targets := market.HedgeTargets(universe, a.cfg.Hedge.Tokens)
	if len(targets) == 0 {
		return errors.New("no shortable hedge targets in token universe")
	}
	symbols := make([]string, 0, len(targets))
	for _, token := range targets {
		symbol := binance.SymbolFor(token.Symbol)
		if _, ok := rules[symbol]; !ok {
			a.log.Warn("no filter rules for hedge target", zap.String("token", token.Symbol), zap.String("symbol", symbol))
		}
		symbols = append(symbols, symbol)
	}
	a.rules = rules
	a.targets = targets
	a.prepared = true
	a.log.Info("hedge targets loaded", zap.Strings("symbols", symbols), zap.Int("filter_rules", len(rules)))
	return nil
}

func (a *App) Run(ctx context.Context) error {
	defer a.Close()
	if err := a.Prepare(ctx); err != nil {
		return err
	}
	a.logLastCycle(ctx)
	a.startMetricsServer(ctx)
	if a.timescale != nil {
		a.timescale.Start(ctx)
	}

	for {
		if _, err := a.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.log.Warn("hedge cycle failed", zap.Error(err))
		}
		timer := time.NewTimer(a.cfg.Hedge.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) logLastCycle(ctx context.Context) {
	snapshot, ok, err := persist.LoadCycleSnapshot(ctx, a.store)
	if err != nil {
		a.log.Warn("last cycle snapshot load failed", zap.Error(err))
		return
	}
	if !ok {
		return
	}
	a.log.Info("last cycle",
		zap.Time("completed_at", snapshot.CompletedAt),
		zap.Duration("duration", snapshot.Duration()),
		zap.Bool("aborted", snapshot.Aborted),
		zap.Int("token_errors", snapshot.TokenErrors),
		zap.Float64("net_worth_usd", snapshot.NetWorthUSD),
		zap.Int("tokens", len(snapshot.Tokens)),
	)
}

func (a *App) startMetricsServer(ctx context.Context) {
	if a.prom == nil {
		return
	}
	mux := http.NewServeMux()
	mux.Handle(a.cfg.Metrics.Path, a.prom.Handler())
	srv := &http.Server{
		Addr:              a.cfg.Metrics.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.log.Info("metrics server listening", zap.String("address", srv.Addr), zap.String("path", a.cfg.Metrics.Path))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdown)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
