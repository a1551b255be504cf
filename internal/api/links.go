package api

import (
	"fmt"
	"strconv"
	"strings"
)

// ExtractID interprets a client-supplied entity reference: a JSON number,
// a decimal string, or a canonical URI ending in /<digits>. Anything else
// is nil.
func ExtractID(value interface{}) *int64 {
	switch v := value.(type) {
	case nil:
		return nil
	case float64:
		id := int64(v)
		return &id
	case int:
		id := int64(v)
		return &id
	case int64:
		return &v
	case string:
		s := v
		if i := strings.LastIndexByte(s, '/'); i >= 0 {
			s = s[i+1:]
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || s == "" {
			return nil
		}
		// "12X" must not parse; ParseInt already rejects it, but a
		// leading +/- would slip through the digits-only contract.
		for _, r := range s {
			if r < '0' || r > '9' {
				return nil
			}
		}
		return &id
	default:
		return nil
	}
}

// ExtractIDs maps ExtractID over a list. A nil element marks an
// unrecognised reference.
func ExtractIDs(values []interface{}) []*int64 {
	ids := make([]*int64, 0, len(values))
	for _, v := range values {
		ids = append(ids, ExtractID(v))
	}
	return ids
}

// FormatLink renders the canonical URL of an entity.
func FormatLink(collection string, id int64) string {
	return fmt.Sprintf("/%s/%d", collection, id)
}

// InformationLevel controls how much of a related entity a response
// embeds.
type InformationLevel int

const (
	InfoNone InformationLevel = iota
	InfoLinks
	InfoAll
	// InfoDebug adds fields not normally exposed, such as file paths.
	InfoDebug
)

// ParseInformationLevel maps a query parameter value onto a level,
// falling back to def for anything unrecognised.
func ParseInformationLevel(s string, def InformationLevel) InformationLevel {
	switch strings.ToLower(s) {
	case "none":
		return InfoNone
	case "links":
		return InfoLinks
	case "all":
		return InfoAll
	case "debug":
		return InfoDebug
	default:
		return def
	}
}

func parseBool(s string, def bool) bool {
	v, err := strconv.ParseBool(strings.ToLower(s))
	if err != nil {
		return def
	}
	return v
}
