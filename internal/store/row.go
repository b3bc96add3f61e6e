package store

// accountRow is the packdb row envelope for model.Account: a numeric
// primary key packdb requires, the natural string key for lookups, and
// the full account state as a single gob blob (see codec.go).
type accountRow struct {
	RowId     uint64 `pack:"I,pk"`
	AccountID string `pack:"K,snappy"`
	Blob      []byte `pack:"B,snappy"`
}

func (r *accountRow) ID() uint64     { return r.RowId }
func (r *accountRow) SetID(id uint64) { r.RowId = id }

// saleRow uses the sale's own monotonic sale_id as the packdb primary
// key directly; no hashing needed since it is already a dense uint64.
type saleRow struct {
	SaleID uint64 `pack:"I,pk"`
	Blob   []byte `pack:"B,snappy"`
}

func (r *saleRow) ID() uint64      { return r.SaleID }
func (r *saleRow) SetID(id uint64) { r.SaleID = id }

// treasuryRow is a singleton row (id fixed at treasuryRowID).
type treasuryRow struct {
	RowId uint64 `pack:"I,pk"`
	Blob  []byte `pack:"B,snappy"`
}

func (r *treasuryRow) ID() uint64      { return r.RowId }
func (r *treasuryRow) SetID(id uint64) { r.RowId = id }

// admissionRow is a durable reservation for an in-flight two-phase
// admission (spec.md §5): it must survive a process restart between the
// is_approved fire and its callback, or locked_attached_deposits would
// leak with no way to reconcile it.
type admissionRow struct {
	RowId     uint64 `pack:"I,pk"`
	AccountID string `pack:"A,snappy"`
	SaleID    uint64 `pack:"S,snappy"`
	Blob      []byte `pack:"B,snappy"`
}

func (r *admissionRow) ID() uint64      { return r.RowId }
func (r *admissionRow) SetID(id uint64) { r.RowId = id }

// stateRow holds the monotonic sale-id counter (the Contract-level
// num_sales field in original_source/lib.rs).
type stateRow struct {
	RowId    uint64 `pack:"I,pk"`
	NumSales uint64 `pack:"N,snappy"`
}

func (r *stateRow) ID() uint64      { return r.RowId }
func (r *stateRow) SetID(id uint64) { r.RowId = id }

const stateRowID uint64 = 1
