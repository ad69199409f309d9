package qdrant

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Filter is a typed builder for Qdrant payload filters, covering the
// two shapes retrieval needs: equality and set membership on named
// payload fields. Building filters through it rather than ad-hoc maps
// keeps malformed queries out of the wire format.
type Filter struct {
	must []condition
}

type condition struct {
	Key   string     `json:"key"`
	Match matchValue `json:"match"`
}

type matchValue struct {
	Value any   `json:"value,omitempty"`
	Any   []any `json:"any,omitempty"`
}

// NewFilter creates an empty filter.
func NewFilter() *Filter {
	return &Filter{}
}

// MatchUser requires payload.user_id to equal the given id.
func (f *Filter) MatchUser(userID uuid.UUID) *Filter {
	f.must = append(f.must, condition{
		Key:   "user_id",
		Match: matchValue{Value: userID.String()},
	})
	return f
}

// MatchDocument requires payload.document_id to equal the given id.
func (f *Filter) MatchDocument(documentID uuid.UUID) *Filter {
	f.must = append(f.must, condition{
		Key:   "document_id",
		Match: matchValue{Value: documentID.String()},
	})
	return f
}

// MatchAnyDocument requires payload.document_id to be one of ids.
// A single id degenerates to equality.
func (f *Filter) MatchAnyDocument(ids []uuid.UUID) *Filter {
	if len(ids) == 1 {
		return f.MatchDocument(ids[0])
	}
	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = id.String()
	}
	f.must = append(f.must, condition{
		Key:   "document_id",
		Match: matchValue{Any: values},
	})
	return f
}

// Empty reports whether no conditions have been added.
func (f *Filter) Empty() bool {
	return f == nil || len(f.must) == 0
}

// MarshalJSON renders the Qdrant filter grammar ({"must": [...]}).
func (f *Filter) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"must": f.must})
}
