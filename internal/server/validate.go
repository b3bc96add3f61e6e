package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/qri-io/jsonschema"
)

// bodySchemas validates request bodies before they ever reach the
// engine — the first gate ahead of §4.7's ordered assertions (teacher's
// etl/model tables use qri-io/jsonschema the same way to reject
// malformed column filter bodies before a query is built).
var bodySchemas = mustCompileSchemas(map[string]string{
	"saleInput": `{
		"type": "object",
		"required": ["title", "in_token_account_id", "out_tokens", "start_time", "duration_ns"],
		"properties": {
			"title": {"type": "string", "minLength": 1},
			"url": {"type": ["string", "null"]},
			"permissions_contract_id": {"type": ["string", "null"]},
			"in_token_account_id": {"type": "string", "minLength": 1},
			"start_time": {"type": "string"},
			"duration_ns": {"type": "integer", "minimum": 1},
			"out_tokens": {
				"type": "array",
				"minItems": 1,
				"items": {
					"type": "object",
					"required": ["token_account_id", "balance"],
					"properties": {
						"token_account_id": {"type": "string", "minLength": 1},
						"balance": {"type": "string"},
						"referral_bpt": {"type": ["integer", "null"]}
					}
				}
			}
		}
	}`,
	"deposit": `{
		"type": "object",
		"required": ["sale_id", "amount"],
		"properties": {
			"sale_id": {"type": "integer", "minimum": 0},
			"amount": {"type": "string"},
			"referral_id": {"type": ["string", "null"]}
		}
	}`,
	"withdrawShares": `{
		"type": "object",
		"required": ["sale_id"],
		"properties": {
			"sale_id": {"type": "integer", "minimum": 0},
			"shares": {"type": ["string", "null"]}
		}
	}`,
	"withdrawExact": `{
		"type": "object",
		"required": ["sale_id", "in_amount"],
		"properties": {
			"sale_id": {"type": "integer", "minimum": 0},
			"in_amount": {"type": "string"}
		}
	}`,
})

func mustCompileSchemas(raw map[string]string) map[string]*jsonschema.Schema {
	out := make(map[string]*jsonschema.Schema, len(raw))
	for name, src := range raw {
		rs := &jsonschema.Schema{}
		if err := json.Unmarshal([]byte(src), rs); err != nil {
			panic(fmt.Sprintf("server: invalid embedded schema %q: %v", name, err))
		}
		out[name] = rs
	}
	return out
}

// validateBody runs body against the named embedded schema, returning a
// single combined error describing every violation found.
func validateBody(ctx context.Context, name string, body []byte) error {
	rs, ok := bodySchemas[name]
	if !ok {
		return fmt.Errorf("server: unknown schema %q", name)
	}
	keyErrs, err := rs.ValidateBytes(ctx, body)
	if err != nil {
		return fmt.Errorf("server: validate %s: %w", name, err)
	}
	if len(keyErrs) == 0 {
		return nil
	}
	msg := "invalid request body:"
	for _, ke := range keyErrs {
		msg += " " + ke.Error() + ";"
	}
	return errValidation{msg}
}

type errValidation struct{ msg string }

func (e errValidation) Error() string { return e.msg }
