package document

import (
	"fmt"

	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FromBSON normalises a decoded BSON document into a Document.
func FromBSON(m bson.M) Document {
	doc := make(Document, len(m))
	for k, v := range m {
		doc[k] = normalize(v)
	}
	return doc
}

func normalize(val any) any {
	switch v := val.(type) {
	case primitive.M:
		return FromBSON(v)
	case map[string]any:
		return FromBSON(v)
	case Document:
		return FromBSON(bson.M(v))
	case primitive.D:
		doc := make(Document, len(v))
		for _, e := range v {
			doc[e.Key] = normalize(e.Value)
		}
		return doc
	case primitive.A:
		return normalizeSlice(v)
	case []any:
		return normalizeSlice(v)
	case primitive.DateTime:
		return v.Time().UTC()
	case primitive.Null, primitive.Undefined:
		return nil
	}
	return val
}

func normalizeSlice(items []any) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = normalize(item)
	}
	return out
}

// ParseJSON parses one MongoDB Extended JSON document into a Document.
// It returns ErrJSONUnmarshalFailed (wrapping the original error) if unmarshalling fails.
func ParseJSON(data []byte) (Document, error) {
	var m bson.M
	if err := bson.UnmarshalExtJSON(data, false, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrJSONUnmarshalFailed, err)
	}
	return FromBSON(m), nil
}

// ParseJSONArray parses a JSON array of Extended JSON documents.
func ParseJSONArray(data []byte) ([]Document, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrJSONUnmarshalFailed, err)
	}

	docs := make([]Document, 0, len(raws))
	for i, raw := range raws {
		doc, err := ParseJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
