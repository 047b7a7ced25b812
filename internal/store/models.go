package store

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// IDField names the field that identifies a record. UpdateOne never rewrites it.
const IDField = "id"

const setOperator = "$set"

// Record is one flat document in a collection.
type Record map[string]any

// Query is an AND of field equality tests. An empty query matches every record.
// A field missing from a record compares as null.
type Query map[string]any

// normalize converts the values of a field map into the shapes produced by
// decoding stored JSON, so int 3 and float64 3 compare equal.
func normalize(fields map[string]any) (map[string]any, error) {
	if len(fields) == 0 {
		return map[string]any{}, nil
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	return out, nil
}

func (q Query) normalized() (Query, error) {
	out, err := normalize(q)
	if err != nil {
		return nil, fmt.Errorf("normalize query: %w", err)
	}
	return Query(out), nil
}

func (q Query) matches(r Record) bool {
	for key, want := range q {
		if !reflect.DeepEqual(r[key], want) {
			return false
		}
	}
	return true
}

// firstMatch returns the index of the first record matching q, or -1.
func firstMatch(records []Record, q Query) int {
	for i, record := range records {
		if q.matches(record) {
			return i
		}
	}
	return -1
}

func filter(records []Record, q Query, limit int) []Record {
	result := []Record{}
	for _, record := range records {
		if !q.matches(record) {
			continue
		}
		result = append(result, record)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result
}

// patchFields unwraps a {"$set": {...}} patch; any other patch is the field set itself.
func patchFields(patch Record) (map[string]any, error) {
	fields := map[string]any(patch)
	switch set := patch[setOperator].(type) {
	case map[string]any:
		fields = set
	case Record:
		fields = set
	}
	out, err := normalize(fields)
	if err != nil {
		return nil, fmt.Errorf("normalize patch: %w", err)
	}
	delete(out, IDField)
	return out, nil
}

func applyPatch(record Record, fields map[string]any) {
	for key, value := range fields {
		record[key] = value
	}
}
