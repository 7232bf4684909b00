package storage

import (
	"context"

	"github.com/FACorreiaa/statement-ledger/internal/model"
	"github.com/FACorreiaa/statement-ledger/pkg/metrics"
)

// Observed wraps a Store and counts failed operations.
type Observed struct {
	Store
	metrics *metrics.Metrics
}

// NewObserved returns store recording its failures on m.
func NewObserved(store Store, m *metrics.Metrics) *Observed {
	return &Observed{Store: store, metrics: m}
}

func (o *Observed) observe(op string, err error) error {
	if err != nil {
		o.metrics.ObserveStoreError(op)
	}
	return err
}

func (o *Observed) LoadTransactions(ctx context.Context) ([]model.Transaction, error) {
	txs, err := o.Store.LoadTransactions(ctx)
	return txs, o.observe("load_transactions", err)
}

func (o *Observed) SaveTransactions(ctx context.Context, txs []model.Transaction) error {
	return o.observe("save_transactions", o.Store.SaveTransactions(ctx, txs))
}

func (o *Observed) LoadBankTemplates(ctx context.Context) ([]model.BankTemplate, error) {
	templates, err := o.Store.LoadBankTemplates(ctx)
	return templates, o.observe("load_templates", err)
}

func (o *Observed) SaveBankTemplate(ctx context.Context, t model.BankTemplate) error {
	return o.observe("save_template", o.Store.SaveBankTemplate(ctx, t))
}

func (o *Observed) DeleteBankTemplate(ctx context.Context, key string) error {
	return o.observe("delete_template", o.Store.DeleteBankTemplate(ctx, key))
}

func (o *Observed) LoadAccountingMappings(ctx context.Context) ([]model.AccountingMapping, error) {
	mappings, err := o.Store.LoadAccountingMappings(ctx)
	return mappings, o.observe("load_mappings", err)
}

func (o *Observed) SaveAccountingMappings(ctx context.Context, mappings []model.AccountingMapping) error {
	return o.observe("save_mappings", o.Store.SaveAccountingMappings(ctx, mappings))
}

func (o *Observed) LoadCustomRules(ctx context.Context) ([]model.CustomRule, error) {
	rules, err := o.Store.LoadCustomRules(ctx)
	return rules, o.observe("load_rules", err)
}

func (o *Observed) SaveCustomRules(ctx context.Context, rules []model.CustomRule) error {
	return o.observe("save_rules", o.Store.SaveCustomRules(ctx, rules))
}

func (o *Observed) LoadPresets(ctx context.Context) ([]model.Preset, error) {
	presets, err := o.Store.LoadPresets(ctx)
	return presets, o.observe("load_presets", err)
}

func (o *Observed) SavePresets(ctx context.Context, presets []model.Preset) error {
	return o.observe("save_presets", o.Store.SavePresets(ctx, presets))
}
