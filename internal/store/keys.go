// Package store is the packdb-backed persistence layer: one packed
// column table per aggregate (Account, Sale, Treasury, pending
// admissions), the same table-per-model layout etl.Indexer uses for
// blocks/accounts/bakers.
package store

import "github.com/cespare/xxhash"

// TableKey names a packdb table, mirroring etl/index's *TableKey
// constants.
type TableKey string

const (
	AccountsTableKey   TableKey = "accounts"
	SalesTableKey      TableKey = "sales"
	TreasuryTableKey   TableKey = "treasury"
	AdmissionsTableKey TableKey = "admissions"
)

// treasuryRowID is the single fixed row id the one-and-only Treasury
// singleton lives at.
const treasuryRowID uint64 = 1

// RowID derives a packdb-compatible uint64 primary key from one or more
// string-shaped natural keys (account ids, composite account+sale keys).
// packdb tables are keyed by uint64; our domain keys are strings (NEAR
// account ids) or composite pairs, so every table in this package
// hashes its natural key down with xxhash the same way packdb itself
// hashes index keys internally.
func RowID(parts ...string) uint64 {
	buf := make([]byte, 0, 64)
	for _, p := range parts {
		buf = append(buf, p...)
		buf = append(buf, 0)
	}
	return xxhash.Sum64(buf)
}
