package store

import (
	"context"
	"fmt"
	"sync"

	"blockwatch.cc/packdb/pack"
	"github.com/echa/log"

	"github.com/Shitzu-Apes/launchpad/internal/model"
)

// driver matches the embedded bolt backend packdb ships with; the
// engine has no need for anything heavier than a single-process
// embedded store.
const driver = "bolt"

// DB is the packdb-backed persistence layer: one table per aggregate,
// the same table-per-model layout etl.Indexer uses for blocks,
// accounts and bakers.
type DB struct {
	db     *pack.DB
	log    log.Logger
	mu     sync.Mutex
	tables map[TableKey]*pack.Table
}

// Open creates (or reopens) the sale-engine database under dataDir,
// creating every table this package knows about if it does not already
// exist.
func Open(dataDir string, logger log.Logger) (*DB, error) {
	opts := pack.Options{
		PackSizeLog2:    14,
		JournalSizeLog2: 14,
		CacheSize:       2,
		FillLevel:       90,
	}
	pdb, err := pack.CreateDatabaseIfNotExists(dataDir, "launchpad", driver, opts)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	d := &DB{
		db:     pdb,
		log:    logger,
		tables: make(map[TableKey]*pack.Table),
	}

	if err := d.openTable(AccountsTableKey, &accountRow{}, opts); err != nil {
		return nil, err
	}
	if err := d.openTable(SalesTableKey, &saleRow{}, opts); err != nil {
		return nil, err
	}
	if err := d.openTable(TreasuryTableKey, &treasuryRow{}, opts); err != nil {
		return nil, err
	}
	if err := d.openTable(AdmissionsTableKey, &admissionRow{}, opts); err != nil {
		return nil, err
	}
	if err := d.openTable(stateTableKey, &stateRow{}, opts); err != nil {
		return nil, err
	}
	return d, nil
}

// stateTableKey is a package-private table holding only the sale-id
// counter; it has no associated model.* type so it is not listed in
// keys.go alongside the public aggregate tables.
const stateTableKey TableKey = "state"

func (d *DB) openTable(key TableKey, proto pack.Item, opts pack.Options) error {
	fields, err := pack.Fields(proto)
	if err != nil {
		return fmt.Errorf("store: fields for %s: %w", key, err)
	}
	table, err := d.db.CreateTableIfNotExists(string(key), fields, opts)
	if err != nil {
		return fmt.Errorf("store: open table %s: %w", key, err)
	}
	d.tables[key] = table
	return nil
}

// Table exposes the raw packdb handle for ad-hoc queries (pagination,
// listing) that the typed repository methods below don't cover.
func (d *DB) Table(key TableKey) (*pack.Table, error) {
	t, ok := d.tables[key]
	if !ok {
		return nil, fmt.Errorf("store: unknown table %s", key)
	}
	return t, nil
}

// Close flushes every table and closes the underlying database.
func (d *DB) Close() error {
	for _, t := range d.tables {
		if err := t.Flush(context.Background()); err != nil {
			d.log.Errorf("store: flush table: %v", err)
		}
	}
	return d.db.Close()
}

// --- accounts ---------------------------------------------------------

func (d *DB) GetAccount(ctx context.Context, accountID string) (*model.Account, bool, error) {
	table, err := d.Table(AccountsTableKey)
	if err != nil {
		return nil, false, err
	}
	rowID := RowID(accountID)
	row := &accountRow{}
	found := false
	err = pack.NewQuery("store.account.get", table).
		AndEqual("I", rowID).
		WithLimit(1).
		Stream(ctx, func(r pack.Row) error {
			found = true
			return r.Decode(row)
		})
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	acc := &model.Account{}
	if err := decodeBlob(row.Blob, acc); err != nil {
		return nil, false, fmt.Errorf("store: decode account %s: %w", accountID, err)
	}
	return acc, true, nil
}

func (d *DB) PutAccount(ctx context.Context, acc *model.Account) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	table, err := d.Table(AccountsTableKey)
	if err != nil {
		return err
	}
	blob, err := encodeBlob(acc)
	if err != nil {
		return fmt.Errorf("store: encode account %s: %w", acc.AccountID, err)
	}
	rowID := RowID(acc.AccountID)

	existing := &accountRow{}
	found := false
	err = pack.NewQuery("store.account.put", table).
		AndEqual("I", rowID).
		WithLimit(1).
		Stream(ctx, func(r pack.Row) error {
			found = true
			return r.Decode(existing)
		})
	if err != nil {
		return err
	}

	if found {
		existing.Blob = blob
		return table.Update(ctx, existing)
	}
	row := &accountRow{RowId: rowID, AccountID: acc.AccountID, Blob: blob}
	return table.Insert(ctx, []pack.Item{row})
}

// --- sales --------------------------------------------------------

func (d *DB) GetSale(ctx context.Context, saleID uint64) (*model.Sale, bool, error) {
	table, err := d.Table(SalesTableKey)
	if err != nil {
		return nil, false, err
	}
	row := &saleRow{}
	found := false
	err = pack.NewQuery("store.sale.get", table).
		AndEqual("I", saleID).
		WithLimit(1).
		Stream(ctx, func(r pack.Row) error {
			found = true
			return r.Decode(row)
		})
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	sale := &model.Sale{}
	if err := decodeBlob(row.Blob, sale); err != nil {
		return nil, false, fmt.Errorf("store: decode sale %d: %w", saleID, err)
	}
	return sale, true, nil
}

func (d *DB) PutSale(ctx context.Context, sale *model.Sale) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	table, err := d.Table(SalesTableKey)
	if err != nil {
		return err
	}
	blob, err := encodeBlob(sale)
	if err != nil {
		return fmt.Errorf("store: encode sale %d: %w", sale.SaleID, err)
	}

	existing := &saleRow{}
	found := false
	err = pack.NewQuery("store.sale.put", table).
		AndEqual("I", sale.SaleID).
		WithLimit(1).
		Stream(ctx, func(r pack.Row) error {
			found = true
			return r.Decode(existing)
		})
	if err != nil {
		return err
	}

	if found {
		existing.Blob = blob
		return table.Update(ctx, existing)
	}
	row := &saleRow{SaleID: sale.SaleID, Blob: blob}
	return table.Insert(ctx, []pack.Item{row})
}

// ListSales streams every sale in ascending sale_id order through fn,
// starting at fromIndex and stopping after limit rows (spec.md §6
// pagination convention). fn returning an error aborts the stream early.
func (d *DB) ListSales(ctx context.Context, fromIndex uint64, limit int, fn func(*model.Sale) error) error {
	table, err := d.Table(SalesTableKey)
	if err != nil {
		return err
	}
	q := pack.NewQuery("store.sale.list", table).
		AndGte("I", fromIndex).
		WithLimit(limit)
	return q.Stream(ctx, func(r pack.Row) error {
		row := &saleRow{}
		if err := r.Decode(row); err != nil {
			return err
		}
		sale := &model.Sale{}
		if err := decodeBlob(row.Blob, sale); err != nil {
			return err
		}
		return fn(sale)
	})
}

// NextSaleID atomically allocates and persists the next monotonic sale
// id, mirroring the original contract's num_sales counter.
func (d *DB) NextSaleID(ctx context.Context) (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	table, err := d.Table(stateTableKey)
	if err != nil {
		return 0, err
	}
	st := &stateRow{}
	found := false
	err = pack.NewQuery("store.state.get", table).
		AndEqual("I", stateRowID).
		WithLimit(1).
		Stream(ctx, func(r pack.Row) error {
			found = true
			return r.Decode(st)
		})
	if err != nil {
		return 0, err
	}

	next := st.NumSales
	st.NumSales = next + 1
	if found {
		st.RowId = stateRowID
		if err := table.Update(ctx, st); err != nil {
			return 0, err
		}
	} else {
		st.RowId = stateRowID
		if err := table.Insert(ctx, []pack.Item{st}); err != nil {
			return 0, err
		}
	}
	return next, nil
}

// --- treasury -----------------------------------------------------

func (d *DB) GetTreasury(ctx context.Context) (*model.Treasury, bool, error) {
	table, err := d.Table(TreasuryTableKey)
	if err != nil {
		return nil, false, err
	}
	row := &treasuryRow{}
	found := false
	err = pack.NewQuery("store.treasury.get", table).
		AndEqual("I", treasuryRowID).
		WithLimit(1).
		Stream(ctx, func(r pack.Row) error {
			found = true
			return r.Decode(row)
		})
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	tr := &model.Treasury{}
	if err := decodeBlob(row.Blob, tr); err != nil {
		return nil, false, fmt.Errorf("store: decode treasury: %w", err)
	}
	return tr, true, nil
}

func (d *DB) PutTreasury(ctx context.Context, tr *model.Treasury) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	table, err := d.Table(TreasuryTableKey)
	if err != nil {
		return err
	}
	blob, err := encodeBlob(tr)
	if err != nil {
		return fmt.Errorf("store: encode treasury: %w", err)
	}

	existing := &treasuryRow{}
	found := false
	err = pack.NewQuery("store.treasury.put", table).
		AndEqual("I", treasuryRowID).
		WithLimit(1).
		Stream(ctx, func(r pack.Row) error {
			found = true
			return r.Decode(existing)
		})
	if err != nil {
		return err
	}

	if found {
		existing.Blob = blob
		return table.Update(ctx, existing)
	}
	row := &treasuryRow{RowId: treasuryRowID, Blob: blob}
	return table.Insert(ctx, []pack.Item{row})
}

// --- pending admissions ---------------------------------------------

// AdmissionReservation is the durable record of an in-flight two-phase
// admission (spec.md §5): the deposit has been taken but the
// is_approved callback has not yet resolved.
type AdmissionReservation struct {
	AccountID      string
	SaleID         uint64
	InAmount       string // decimal, decoded via money.NewFromString by callers
	ReferralID     *string
	AttachedYocto  string
}

func (d *DB) PutAdmission(ctx context.Context, res *AdmissionReservation) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	table, err := d.Table(AdmissionsTableKey)
	if err != nil {
		return err
	}
	blob, err := encodeBlob(res)
	if err != nil {
		return err
	}
	rowID := RowID(res.AccountID, fmt.Sprintf("%d", res.SaleID))

	existing := &admissionRow{}
	found := false
	err = pack.NewQuery("store.admission.put", table).
		AndEqual("I", rowID).
		WithLimit(1).
		Stream(ctx, func(r pack.Row) error {
			found = true
			return r.Decode(existing)
		})
	if err != nil {
		return err
	}

	if found {
		existing.Blob = blob
		return table.Update(ctx, existing)
	}
	row := &admissionRow{RowId: rowID, AccountID: res.AccountID, SaleID: res.SaleID, Blob: blob}
	return table.Insert(ctx, []pack.Item{row})
}

func (d *DB) GetAdmission(ctx context.Context, accountID string, saleID uint64) (*AdmissionReservation, bool, error) {
	table, err := d.Table(AdmissionsTableKey)
	if err != nil {
		return nil, false, err
	}
	rowID := RowID(accountID, fmt.Sprintf("%d", saleID))
	row := &admissionRow{}
	found := false
	err = pack.NewQuery("store.admission.get", table).
		AndEqual("I", rowID).
		WithLimit(1).
		Stream(ctx, func(r pack.Row) error {
			found = true
			return r.Decode(row)
		})
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	res := &AdmissionReservation{}
	if err := decodeBlob(row.Blob, res); err != nil {
		return nil, false, err
	}
	return res, true, nil
}

func (d *DB) DeleteAdmission(ctx context.Context, accountID string, saleID uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	table, err := d.Table(AdmissionsTableKey)
	if err != nil {
		return err
	}
	rowID := RowID(accountID, fmt.Sprintf("%d", saleID))
	return table.DeleteIds(ctx, []uint64{rowID})
}
