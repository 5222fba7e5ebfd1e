package document

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNumber(t *testing.T) {
	dec, err := primitive.ParseDecimal128("12.5")
	require.NoError(t, err)

	tests := []struct {
		name  string
		value any
		want  float64
		ok    bool
	}{
		{name: "float64", value: 1.5, want: 1.5, ok: true},
		{name: "int32", value: int32(7), want: 7, ok: true},
		{name: "int64", value: int64(-3), want: -3, ok: true},
		{name: "decimal128", value: dec, want: 12.5, ok: true},
		{name: "NaN excluded", value: math.NaN(), ok: false},
		{name: "infinity excluded", value: math.Inf(1), ok: false},
		{name: "numeric string is not a number", value: "42", ok: false},
		{name: "bool is not a number", value: true, ok: false},
		{name: "nil", value: nil, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Number(tt.value)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestDocumentAccessors(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	doc := Document{
		"age":       int32(30),
		"name":      "ada",
		"nothing":   nil,
		"createdAt": created,
		"updatedAt": "2024-03-02T08:00:00Z",
		"bsonDate":  primitive.NewDateTimeFromTime(created),
	}

	assert.Equal(t, []string{"age", "bsonDate", "createdAt", "name", "nothing", "updatedAt"}, doc.Keys())
	assert.True(t, doc.HasNonNull("age"))
	assert.False(t, doc.HasNonNull("nothing"))
	assert.False(t, doc.HasNonNull("missing"))

	age, ok := doc.Float64("age")
	assert.True(t, ok)
	assert.Equal(t, 30.0, age)
	_, ok = doc.Float64("name")
	assert.False(t, ok)

	ts, ok := doc.Time("createdAt")
	assert.True(t, ok)
	assert.True(t, created.Equal(ts))

	ts, ok = doc.Time("bsonDate")
	assert.True(t, ok)
	assert.True(t, created.Equal(ts))

	ts, ok = doc.Time("updatedAt")
	assert.True(t, ok)
	assert.Equal(t, 2, ts.Day())

	_, ok = doc.Time("name")
	assert.False(t, ok)
}

func TestFieldSnippet(t *testing.T) {
	doc := Document{"long": "abcdefghij", "n": 3}

	assert.Equal(t, "<missing>", doc.FieldSnippet("x", 5))
	assert.Equal(t, "abcde...", doc.FieldSnippet("long", 5))
	assert.Equal(t, "3", doc.FieldSnippet("n", 5))
	assert.Equal(t, "...", doc.FieldSnippet("n", 0))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "1", FormatValue(int32(1)))
	assert.Equal(t, "1", FormatValue(1.0))
	assert.Equal(t, "2.5", FormatValue(2.5))
	assert.Equal(t, "null", FormatValue(nil))
	assert.Equal(t, "true", FormatValue(true))
	assert.Equal(t, "{a:1,b:x}", FormatValue(Document{"b": "x", "a": 1}))
	assert.Equal(t, "[1,y]", FormatValue([]any{1, "y"}))
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, TypeNumber, TypeName(int64(1)))
	assert.Equal(t, TypeNumber, TypeName(math.NaN()))
	assert.Equal(t, TypeString, TypeName("s"))
	assert.Equal(t, TypeBool, TypeName(false))
	assert.Equal(t, TypeDate, TypeName(time.Now()))
	assert.Equal(t, TypeObjectID, TypeName(primitive.NewObjectID()))
	assert.Equal(t, TypeObject, TypeName(Document{}))
	assert.Equal(t, TypeArray, TypeName([]any{}))
	assert.Equal(t, TypeNull, TypeName(nil))
}

func TestFromBSONNormalisesNestedValues(t *testing.T) {
	created := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)
	doc := FromBSON(bson.M{
		"nested":  bson.M{"inner": int32(1)},
		"ordered": bson.D{{Key: "k", Value: "v"}},
		"list":    bson.A{bson.M{"x": 1}, int64(2)},
		"when":    primitive.NewDateTimeFromTime(created),
	})

	nested, ok := doc["nested"].(Document)
	require.True(t, ok)
	assert.Equal(t, int32(1), nested["inner"])

	ordered, ok := doc["ordered"].(Document)
	require.True(t, ok)
	assert.Equal(t, "v", ordered["k"])

	list, ok := doc["list"].([]any)
	require.True(t, ok)
	assert.IsType(t, Document{}, list[0])

	when, ok := doc["when"].(time.Time)
	require.True(t, ok)
	assert.True(t, created.Equal(when))
}

func TestParseJSONArray(t *testing.T) {
	docs, err := ParseJSONArray([]byte(`[
		{"name": "a", "age": 30, "createdAt": {"$date": "2024-01-01T00:00:00Z"}},
		{"name": "b", "age": 41.5, "tags": ["x"]}
	]`))
	require.NoError(t, err)
	require.Len(t, docs, 2)

	age, ok := docs[0].Float64("age")
	assert.True(t, ok)
	assert.Equal(t, 30.0, age)

	_, ok = docs[0].Time("createdAt")
	assert.True(t, ok)

	age, ok = docs[1].Float64("age")
	assert.True(t, ok)
	assert.Equal(t, 41.5, age)
}

func TestParseJSONErrors(t *testing.T) {
	_, err := ParseJSON([]byte(`{not json`))
	assert.ErrorIs(t, err, ErrJSONUnmarshalFailed)

	_, err = ParseJSONArray([]byte(`{"a": 1}`))
	assert.ErrorIs(t, err, ErrJSONUnmarshalFailed)
}
