package record

import (
	"strconv"

	"go-approvals/internal/common/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Flatten merges a record's data with its system fields. System fields win
// over data keys of the same name.
func Flatten(rec *models.EntityRecord) map[string]any {
	flat := make(map[string]any, len(rec.Data)+6)
	for k, v := range rec.Data {
		flat[k] = Normalize(v)
	}
	flat["_id"] = rec.ID.Hex()
	flat["id"] = rec.ID.Hex()
	flat["created_at"] = rec.CreatedAt
	flat["updated_at"] = rec.UpdatedAt
	flat["created_by"] = rec.CreatedBy
	flat["updated_by"] = rec.UpdatedBy
	return flat
}

// Normalize converts driver types to plain Go values so criteria can compare
// them: documents become maps, arrays slices, ids hex strings.
func Normalize(v any) any {
	switch val := v.(type) {
	case primitive.D:
		m := make(map[string]any, len(val))
		for _, e := range val {
			m[e.Key] = Normalize(e.Value)
		}
		return m
	case primitive.M:
		return normalizeMap(val)
	case map[string]any:
		return normalizeMap(val)
	case primitive.A:
		return normalizeSlice(val)
	case []any:
		return normalizeSlice(val)
	case primitive.ObjectID:
		return val.Hex()
	case primitive.DateTime:
		return val.Time().UTC()
	case primitive.Decimal128:
		if f, err := strconv.ParseFloat(val.String(), 64); err == nil {
			return f
		}
		return val.String()
	case primitive.Null, primitive.Undefined:
		return nil
	case bson.Raw:
		var m map[string]any
		if err := bson.Unmarshal(val, &m); err != nil {
			return nil
		}
		return normalizeMap(m)
	}
	return v
}

func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = Normalize(v)
	}
	return out
}

func normalizeSlice(s []any) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = Normalize(v)
	}
	return out
}
