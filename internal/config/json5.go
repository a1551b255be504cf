package config

import (
	"encoding/json"

	"github.com/titanous/json5"
)

// json5Parser adapts the JSON5 decoder to koanf's Parser interface, so the
// config file may carry comments and unquoted keys.
type json5Parser struct{}

func (json5Parser) Unmarshal(b []byte) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := json5.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Marshal emits plain JSON, which is a JSON5 subset.
func (json5Parser) Marshal(m map[string]interface{}) ([]byte, error) {
	return json.Marshal(m)
}
