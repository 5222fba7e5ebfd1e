package document

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document is one schema-less record: field name to a dynamically typed value.
// Values are normalised by FromBSON so nested documents are Documents, arrays
// are []any and BSON dates are time.Time.
type Document map[string]any

// Keys returns the field names in sorted order.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// HasNonNull checks if a key exists and its value is not explicitly null.
func (d Document) HasNonNull(key string) bool {
	val, exists := d[key]
	return exists && val != nil
}

// Float64 retrieves a finite numeric value for a given key.
func (d Document) Float64(key string) (float64, bool) {
	val, exists := d[key]
	if !exists || val == nil {
		return 0, false
	}
	return Number(val)
}

// Number converts a numeric value of any supported Go or BSON type to float64.
// Non-numeric values, NaN and infinities report false.
func Number(val any) (float64, bool) {
	var f float64
	switch v := val.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int8:
		f = float64(v)
	case int16:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint8:
		f = float64(v)
	case uint16:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case primitive.Decimal128:
		parsed, err := strconv.ParseFloat(v.String(), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Time attempts to retrieve a timestamp for a given key. Dates, BSON
// timestamps and strings in common layouts are accepted.
func (d Document) Time(key string) (time.Time, bool) {
	val, exists := d[key]
	if !exists || val == nil {
		return time.Time{}, false
	}

	switch v := val.(type) {
	case time.Time:
		return v, true
	case primitive.DateTime:
		return v.Time(), true
	case primitive.Timestamp:
		return time.Unix(int64(v.T), 0).UTC(), true
	case string:
		return parseTime(v)
	}
	return time.Time{}, false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FieldSnippet returns a string snippet of a field's value, useful for logging.
// It handles missing keys and truncates long values.
func (d Document) FieldSnippet(fieldName string, maxLength int) string {
	value, exists := d[fieldName]
	if !exists {
		return "<missing>"
	}
	if maxLength <= 0 {
		return "..."
	}

	strValue := FormatValue(value)
	if len(strValue) > maxLength {
		return strValue[:maxLength] + "..."
	}
	return strValue
}

// FormatValue renders a value in the canonical string form used as a
// grouping key, so 1, int32(1) and 1.0 all render as "1".
func FormatValue(val any) string {
	if f, ok := Number(val); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	switch v := val.(type) {
	case nil:
		return "null"
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case primitive.DateTime:
		return v.Time().UTC().Format(time.RFC3339Nano)
	case primitive.ObjectID:
		return v.Hex()
	case Document:
		parts := make([]string, 0, len(v))
		for _, k := range v.Keys() {
			parts = append(parts, k+":"+FormatValue(v[k]))
		}
		return "{" + strings.Join(parts, ",") + "}"
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = FormatValue(item)
		}
		return "[" + strings.Join(parts, ",") + "]"
	}
	return fmt.Sprintf("%v", val)
}

// Type tags reported by TypeName.
const (
	TypeNull     = "null"
	TypeNumber   = "number"
	TypeString   = "string"
	TypeBool     = "bool"
	TypeDate     = "date"
	TypeObjectID = "objectId"
	TypeObject   = "object"
	TypeArray    = "array"
	TypeBinary   = "binary"
	TypeOther    = "other"
)

// TypeName classifies a value by its run-time type tag.
func TypeName(val any) string {
	if _, ok := Number(val); ok {
		return TypeNumber
	}

	switch val.(type) {
	case nil, primitive.Null, primitive.Undefined:
		return TypeNull
	case float32, float64:
		// NaN and infinities still carry a numeric tag.
		return TypeNumber
	case string:
		return TypeString
	case bool:
		return TypeBool
	case time.Time, primitive.DateTime, primitive.Timestamp:
		return TypeDate
	case primitive.ObjectID:
		return TypeObjectID
	case Document:
		return TypeObject
	case []any:
		return TypeArray
	case primitive.Binary:
		return TypeBinary
	}
	return TypeOther
}
