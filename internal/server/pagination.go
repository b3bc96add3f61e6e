package server

import (
	"net/http"

	"github.com/gorilla/schema"
)

// listQuery decodes the from_index/limit query-string convention spec.md
// §6 uses for every paginated view endpoint, the way tzindex decodes
// table-list query parameters with gorilla/schema (server/tables).
type listQuery struct {
	FromIndex uint64 `schema:"from_index"`
	Limit     int    `schema:"limit"`
}

const defaultLimit = 100
const maxLimit = 500

var schemaDecoder = schema.NewDecoder()

func init() {
	schemaDecoder.IgnoreUnknownKeys(true)
}

func decodeListQuery(r *http.Request) (listQuery, error) {
	q := listQuery{Limit: defaultLimit}
	if err := schemaDecoder.Decode(&q, r.URL.Query()); err != nil {
		return listQuery{}, err
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	return q, nil
}
