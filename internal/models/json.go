package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// JSON is a jsonb column holding a free-form object.
type JSON map[string]interface{}

// NewJSON decodes a provider body into a JSON object. Bodies that are not
// objects are kept under the "raw" key.
func NewJSON(body []byte) JSON {
	if len(body) == 0 {
		return nil
	}
	var out JSON
	if err := json.Unmarshal(body, &out); err != nil || out == nil {
		return JSON{"raw": string(body)}
	}
	return out
}

// Value implements the driver.Valuer interface
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface
func (j *JSON) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*j = nil
		return nil
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return errors.New("unsupported jsonb value")
	}
}
