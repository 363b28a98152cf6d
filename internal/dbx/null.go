package dbx

import (
	"database/sql"
	"encoding/json"
)

// NullString maps "" to SQL NULL, for optional foreign keys kept as strings.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// NullInt64 maps 0 to SQL NULL.
func NullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}

// JSONB marshals v for a JSONB column. Nil maps and slices become empty,
// the given fallback literal ("{}" or "[]").
func JSONB(v any, fallback string) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return []byte(fallback), nil
	}
	return b, nil
}

// ScanJSONB unmarshals a JSONB column value into dst, ignoring NULL/empty.
func ScanJSONB(src []byte, dst any) error {
	if len(src) == 0 || string(src) == "null" {
		return nil
	}
	return json.Unmarshal(src, dst)
}
