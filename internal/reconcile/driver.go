package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"pricesync/internal/catalog"
	"pricesync/internal/config"
	"pricesync/internal/logging"
	"pricesync/internal/marketplace"
	"pricesync/internal/matching"
	"pricesync/internal/pricestore"
	"pricesync/internal/pricesync"
	"pricesync/internal/runlock"
)

// Dependencies are the collaborators of a Driver.
type Dependencies struct {
	Catalog CatalogLoader
	Fetcher Fetcher
	Matcher Matcher
	Writer  Writer
	Store   Store
	Logger  *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
	// Lock, when set, is a run lock the caller already holds. Run then
	// neither acquires nor releases it.
	Lock *runlock.Lock
}

// Option adjusts the dependencies NewFromConfig wires.
type Option func(*Dependencies)

// WithHeldLock hands the driver a run lock taken by the caller, typically
// before the store was opened so migrations run under it.
func WithHeldLock(lock *runlock.Lock) Option {
	return func(deps *Dependencies) {
		deps.Lock = lock
	}
}

// Driver runs reconciliation.
type Driver struct {
	cfg         *config.Config
	loadCatalog CatalogLoader
	fetcher     Fetcher
	matcher     Matcher
	writer      Writer
	store       Store
	logger      *slog.Logger
	now         func() time.Time
	heldLock    *runlock.Lock
}

// New builds a driver from explicit dependencies.
func New(cfg *config.Config, deps Dependencies) *Driver {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Driver{
		cfg:         cfg,
		loadCatalog: deps.Catalog,
		fetcher:     deps.Fetcher,
		matcher:     deps.Matcher,
		writer:      deps.Writer,
		store:       deps.Store,
		logger:      logging.NewComponentLogger(logger, "reconcile"),
		now:         now,
		heldLock:    deps.Lock,
	}
}

// NewFromConfig wires the production marketplace client, matching engine,
// and batched writer around store.
func NewFromConfig(cfg *config.Config, store *pricestore.Store, logger *slog.Logger, opts ...Option) (*Driver, error) {
	client, err := marketplace.New(marketplace.OptionsFromConfig(cfg.Marketplace), logger)
	if err != nil {
		return nil, fmt.Errorf("marketplace client: %w", err)
	}
	catalogPath := cfg.Paths.CatalogFile
	deps := Dependencies{
		Catalog: func() (*catalog.Catalog, error) { return catalog.Load(catalogPath) },
		Fetcher: client,
		Matcher: matching.NewEngine(cfg),
		Writer:  pricesync.NewWriter(store, cfg.Store.BatchSize, logger),
		Store:   store,
		Logger:  logger,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	return New(cfg, deps), nil
}

// Run performs one reconciliation run. The returned summary is non-nil
// whenever the run was started, including aborted runs.
func (d *Driver) Run(ctx context.Context, filter Filter) (*Summary, error) {
	if d.heldLock == nil {
		lock, err := runlock.Acquire(d.cfg.LockPath())
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				d.logger.Warn("failed to release run lock", logging.Error(err))
			}
		}()
	}

	started := d.now()
	logger := d.logger
	runID, ok := logging.RunIDFromContext(ctx)
	if !ok {
		// Callers that pass a run id have already stamped it on their logger.
		runID = uuid.NewString()
		ctx = logging.WithRunID(ctx, runID)
		logger = logger.With(logging.String(logging.FieldRunID, runID))
	}

	run := &runState{
		driver:  d,
		logger:  logger,
		started: started,
		summary: &Summary{RunID: runID, Phase: PhaseIdle},
		record: pricestore.Run{
			ID:         runID,
			SetFilter:  strings.ToUpper(strings.TrimSpace(filter.SetID)),
			CardFilter: strings.TrimSpace(filter.CardSubstring),
			StartedAt:  started,
		},
		sampler: logging.NewProgressSampler(10),
	}
	if err := d.store.StartRun(context.WithoutCancel(ctx), run.record); err != nil {
		return run.summary, fmt.Errorf("record run start: %w", err)
	}
	logger.Info("reconciliation started",
		logging.String("set_filter", run.record.SetFilter),
		logging.String("card_filter", run.record.CardFilter),
	)

	if err := run.execute(ctx, filter); err != nil {
		run.finish(ctx, PhaseAborted, err)
		return run.summary, err
	}
	run.finish(ctx, PhaseDone, nil)
	return run.summary, nil
}

// runState carries the mutable state of one run.
type runState struct {
	driver  *Driver
	logger  *slog.Logger
	started time.Time
	summary *Summary
	record  pricestore.Run
	sampler *logging.ProgressSampler

	total  int
	staged []stagedSale
}

type stagedSale struct {
	cardID    string
	productID int64
}

type plannedSet struct {
	set   config.Set
	cards []catalog.Card
}

func (r *runState) execute(ctx context.Context, filter Filter) error {
	d := r.driver

	r.summary.Phase = PhaseLoadCatalog
	cat, err := d.loadCatalog()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	overrides, err := d.store.LoadConfirmed(ctx)
	if err != nil {
		return fmt.Errorf("load overrides: %w", err)
	}
	plan, err := r.plan(cat, filter)
	if err != nil {
		return err
	}
	r.logger.Info("catalog loaded",
		logging.Int("cards", len(cat.Cards)),
		logging.Int("selected_cards", r.total),
		logging.Int("sets", len(plan)),
		logging.Int("overrides", len(overrides)),
	)

	r.summary.Phase = PhaseSets
	processedSets := 0
	for _, p := range plan {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(p.set.Aliases) == 0 {
			r.skipSet(p, "no marketplace alias configured")
			continue
		}
		if processedSets > 0 {
			if err := sleep(ctx, d.cfg.Marketplace.SetDelay()); err != nil {
				return err
			}
		}
		if err := r.processSet(ctx, p, overrides); err != nil {
			return err
		}
		processedSets++
	}

	if d.cfg.Marketplace.FetchLastSales && len(r.staged) > 0 {
		r.summary.Phase = PhaseLastSales
		if err := r.applyLastSales(ctx); err != nil {
			return err
		}
	}
	return nil
}

// plan orders sets as configured, keeping those with selected cards. Catalog
// sets missing from configuration are skipped.
func (r *runState) plan(cat *catalog.Catalog, filter Filter) ([]plannedSet, error) {
	cfg := r.driver.cfg
	setFilter := strings.TrimSpace(filter.SetID)
	if setFilter != "" {
		if _, ok := cfg.SetByID(setFilter); !ok {
			return nil, fmt.Errorf("unknown set %q", setFilter)
		}
	}
	selected := &catalog.Catalog{Cards: cat.Filter(setFilter, filter.CardSubstring)}
	bySet := selected.BySet()

	plan := make([]plannedSet, 0, len(bySet))
	configured := make(map[string]struct{}, len(cfg.Sets))
	for _, set := range cfg.Sets {
		key := strings.ToUpper(set.ID)
		configured[key] = struct{}{}
		cards, ok := bySet[key]
		if !ok {
			continue
		}
		plan = append(plan, plannedSet{set: set, cards: cards})
		r.total += len(cards)
	}
	for _, id := range selected.SetIDs() {
		if _, ok := configured[id]; ok {
			continue
		}
		r.skipSet(plannedSet{set: config.Set{ID: id}, cards: bySet[id]}, "set not configured")
	}
	return plan, nil
}

func (r *runState) skipSet(p plannedSet, reason string) {
	r.summary.SetsSkipped++
	r.summary.Sets = append(r.summary.Sets, SetSummary{
		SetID:   p.set.ID,
		Cards:   len(p.cards),
		Skipped: true,
		Reason:  reason,
	})
	r.logger.Info("set skipped",
		logging.String(logging.FieldSet, p.set.ID),
		logging.String("reason", reason),
		logging.Int("cards", len(p.cards)),
	)
}

func (r *runState) processSet(ctx context.Context, p plannedSet, overrides map[string]int64) error {
	d := r.driver
	setCtx := logging.WithSet(ctx, p.set.ID)
	logger := logging.WithContext(setCtx, r.logger)

	candidates, err := d.fetcher.FetchCandidates(setCtx, p.set.Aliases)
	// A partial candidate list cannot prove an override's product is gone.
	partial := err != nil
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		failures := len(marketplace.AliasErrors(err))
		if failures == 0 {
			failures = 1
		}
		r.summary.AliasFailures += failures
		logging.WarnWithContext(logger, "set fetched with failures", "set_fetch_partial",
			logging.Int("alias_failures", failures),
			logging.Int("candidates", len(candidates)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "some cards in this set may be reported as not found"),
		)
	}
	logger.Info("candidates fetched",
		logging.Int("aliases", len(p.set.Aliases)),
		logging.Int("candidates", len(candidates)),
		logging.Int("cards", len(p.cards)),
	)

	setSummary := SetSummary{SetID: p.set.ID, Cards: len(p.cards), Candidates: len(candidates)}
	today := d.now().UTC()
	mappings := make([]pricestore.Mapping, 0, len(p.cards))
	snapshots := make([]pricestore.Snapshot, 0, len(p.cards))

	for _, card := range p.cards {
		result, trace := d.matcher.Match(card, candidates, overrides)
		logger.Debug("match trace", slog.Any("trace", trace))

		switch res := result.(type) {
		case matching.Automated, matching.ManualConfirmed:
			product, _ := matching.ProductOf(res)
			manual := res.Kind() == matching.KindManualConfirmed
			setSummary.Found++
			r.summary.Found++
			if manual {
				r.summary.ManualPreserved++
			}
			mappings = append(mappings, r.mappingFor(card, product, manual))
			snapshots = append(snapshots, pricestore.Snapshot{ProductID: product.ProductID, RecordedDate: today, Prices: product.Prices})
			r.staged = append(r.staged, stagedSale{cardID: card.ID, productID: product.ProductID})
		case matching.ManualOrphaned:
			r.summary.ManualPreserved++
			if partial {
				r.summary.ManualUnverified++
				logging.WarnWithContext(logger, "manual mapping not verified", "manual_mapping_unverified",
					logging.CardID(card.ID),
					logging.ProductID(res.ProductID),
					logging.String(logging.FieldErrorHint, "rerun the set once the marketplace stops throttling"),
					logging.String(logging.FieldImpact, "stored prices for this card are kept unchanged"),
				)
				break
			}
			r.summary.ManualOrphaned++
			// Name and URL are left empty so the stored ones are kept.
			mappings = append(mappings, pricestore.Mapping{
				CardID:         card.ID,
				ProductID:      res.ProductID,
				ManuallyMapped: true,
				UpdatedAt:      today,
			})
			logging.WarnWithContext(logger, "manual mapping not found in set", "manual_mapping_orphaned",
				logging.CardID(card.ID),
				logging.ProductID(res.ProductID),
				logging.Alert("manual_mapping_orphaned"),
				logging.String(logging.FieldErrorHint, "verify the product id or revert the override"),
				logging.String(logging.FieldImpact, "prices for this card are cleared until the product reappears"),
			)
		case matching.Unmatched:
			setSummary.NotFound++
			r.summary.NotFound++
			logger.Debug("card not found",
				logging.CardID(card.ID),
				logging.String("reason", res.Reason),
			)
		}
		r.summary.Processed++
		r.logProgress(logger)
	}

	var writes pricesync.Stats
	mappingStats, err := d.writer.UpsertMappings(ctx, mappings)
	writes.Add(mappingStats)
	if err != nil && ctx.Err() != nil {
		r.summary.WriteFailures += writes.Failed
		return ctx.Err()
	}
	historyStats, err := d.writer.UpsertHistory(ctx, snapshots)
	writes.Add(historyStats)
	r.summary.WriteFailures += writes.Failed
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	r.summary.SetsProcessed++
	r.summary.Sets = append(r.summary.Sets, setSummary)
	logger.Info("set reconciled",
		logging.Int("found", setSummary.Found),
		logging.Int("not_found", setSummary.NotFound),
		logging.Int("mappings_written", mappingStats.Written),
		logging.Int("snapshots_written", historyStats.Written),
		logging.Int("failed_batches", writes.FailedBatches),
	)
	return nil
}

func (r *runState) mappingFor(card catalog.Card, p marketplace.Product, manual bool) pricestore.Mapping {
	return pricestore.Mapping{
		CardID:         card.ID,
		ProductID:      p.ProductID,
		ProductName:    p.Name,
		ProductURL:     r.driver.fetcher.ProductURL(p),
		Prices:         p.Prices,
		ManuallyMapped: manual,
		UpdatedAt:      r.driver.now().UTC(),
	}
}

func (r *runState) logProgress(logger *slog.Logger) {
	if r.total == 0 {
		return
	}
	done := r.summary.Processed
	percent := float64(done) / float64(r.total) * 100
	if !r.sampler.ShouldLog(percent, "matching") {
		return
	}
	elapsed := r.driver.now().Sub(r.started)
	logger.Info("reconciliation progress",
		logging.Int("processed", done),
		logging.Int("total", r.total),
		logging.Int("found", r.summary.Found),
		logging.Int("not_found", r.summary.NotFound),
		logging.Int("manual", r.summary.ManualPreserved),
		logging.Duration("elapsed", elapsed.Round(time.Second)),
		logging.Duration("eta", logging.EstimateRemaining(elapsed, done, r.total).Round(time.Second)),
	)
}

func (r *runState) applyLastSales(ctx context.Context) error {
	d := r.driver
	ids := make([]int64, 0, len(r.staged))
	for _, s := range r.staged {
		ids = append(ids, s.productID)
	}
	sales := d.fetcher.FetchLastSales(ctx, ids)
	if err := ctx.Err(); err != nil {
		return err
	}
	updates := make([]pricestore.LastSale, 0, len(sales))
	for _, s := range r.staged {
		sale, ok := sales[s.productID]
		if !ok {
			continue
		}
		updates = append(updates, pricestore.LastSale{CardID: s.cardID, ProductID: s.productID, Price: sale.Price, Date: sale.Date})
	}
	stats, err := d.writer.ApplyLastSales(ctx, updates)
	r.summary.WriteFailures += stats.Failed
	r.summary.LastSalesApplied = stats.Written
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	r.logger.Info("last sales applied",
		logging.Int("products", len(sales)),
		logging.Int("cards", stats.Written),
	)
	return nil
}

func (r *runState) finish(ctx context.Context, phase Phase, runErr error) {
	r.summary.Phase = phase
	r.summary.Elapsed = r.driver.now().Sub(r.started)

	finished := r.started.Add(r.summary.Elapsed)
	record := r.record
	record.Status = pricestore.RunDone
	if phase == PhaseAborted {
		record.Status = pricestore.RunAborted
	}
	record.Processed = r.summary.Processed
	record.Found = r.summary.Found
	record.NotFound = r.summary.NotFound
	record.ManualPreserved = r.summary.ManualPreserved
	record.ManualOrphaned = r.summary.ManualOrphaned
	record.SetsProcessed = r.summary.SetsProcessed
	record.SetsSkipped = r.summary.SetsSkipped
	record.AliasFailures = r.summary.AliasFailures
	record.WriteFailures = r.summary.WriteFailures
	record.FinishedAt = &finished
	if runErr != nil {
		record.ErrorMessage = runErr.Error()
	}
	// The run is recorded even when ctx was cancelled.
	if err := r.driver.store.FinishRun(context.WithoutCancel(ctx), record); err != nil {
		r.logger.Warn("failed to record run result", logging.Error(err))
	}

	attrs := []logging.Attr{
		logging.String("status", string(record.Status)),
		logging.Int("processed", r.summary.Processed),
		logging.Int("found", r.summary.Found),
		logging.Int("not_found", r.summary.NotFound),
		logging.Int("manual_preserved", r.summary.ManualPreserved),
		logging.Int("manual_unverified", r.summary.ManualUnverified),
		logging.Int("manual_orphaned", r.summary.ManualOrphaned),
		logging.Int("sets_processed", r.summary.SetsProcessed),
		logging.Int("sets_skipped", r.summary.SetsSkipped),
		logging.Int("alias_failures", r.summary.AliasFailures),
		logging.Int("write_failures", r.summary.WriteFailures),
		logging.Duration("elapsed", r.summary.Elapsed.Round(time.Millisecond)),
	}
	if runErr != nil {
		attrs = append(attrs, logging.Error(runErr))
		if errors.Is(runErr, context.Canceled) {
			r.logger.Warn("reconciliation interrupted", logging.Args(attrs...)...)
			return
		}
		logging.ErrorWithContext(r.logger, "reconciliation aborted", "run_aborted", attrs...)
		return
	}
	r.logger.Info("reconciliation complete", logging.Args(attrs...)...)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
