// Package engine is the single-threaded accounting core: every
// exported operation loads a consistent snapshot of its subject
// account/sale/treasury, mutates it in memory, and persists the result
// before returning (spec.md §5 — no internal threads, no interleaving
// within one operation).
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/echa/log"

	"github.com/Shitzu-Apes/launchpad/internal/config"
	"github.com/Shitzu-Apes/launchpad/internal/model"
	"github.com/Shitzu-Apes/launchpad/internal/permissionsclient"
	"github.com/Shitzu-Apes/launchpad/internal/store"
	"github.com/Shitzu-Apes/launchpad/internal/tokenclient"
)

// Engine wires the domain model to storage and the two external
// collaborators (spec.md §9 "Polymorphism over tokens", §5 suspension
// point (ii)).
type Engine struct {
	store  *store.DB
	log    log.Logger
	cfg    config.Config
	tokens tokenclient.Client
	perms  permissionsclient.Client
}

func New(db *store.DB, cfg config.Config, tokens tokenclient.Client, perms permissionsclient.Client, logger log.Logger) *Engine {
	return &Engine{store: db, cfg: cfg, tokens: tokens, perms: perms, log: logger}
}

// EngineAccountID is the identity the engine uses as its own caller
// identity (sale_create with no minimum lead time, donate-to-self in
// distribute_unclaimed — spec.md §4.7/§4.8).
func (e *Engine) EngineAccountID() string { return e.cfg.EngineAccountID }

func (e *Engine) protocolTokenID() string { return e.cfg.SkywardTokenID }

func (e *Engine) loadAccount(ctx context.Context, accountID string) (*model.Account, error) {
	acc, ok, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	return acc, nil
}

func (e *Engine) loadOrCreateAccount(ctx context.Context, accountID string) (*model.Account, error) {
	acc, ok, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return model.NewAccount(accountID), nil
	}
	return acc, nil
}

func (e *Engine) loadSale(ctx context.Context, saleID uint64, now time.Time, blockHeight uint64) (*model.Sale, error) {
	sale, ok, err := e.store.GetSale(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrSaleNotFound
	}
	if err := sale.Migrate(now, blockHeight); err != nil {
		return nil, fmt.Errorf("engine: migrate sale %d: %w", saleID, err)
	}
	return sale, nil
}

func (e *Engine) loadTreasury(ctx context.Context) (*model.Treasury, error) {
	tr, ok, err := e.store.GetTreasury(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("engine: treasury not initialised")
	}
	return tr, nil
}
