package services

import (
	"math"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestParseEmbeddingEncodings(t *testing.T) {
	want := []float64{0.1, 0.2, 0.3}

	cases := []struct {
		name string
		raw  interface{}
	}{
		{"float64 slice", []float64{0.1, 0.2, 0.3}},
		{"float32 slice", []float32{0.1, 0.2, 0.3}},
		{"interface slice", []interface{}{0.1, 0.2, 0.3}},
		{"bson array", primitive.A{0.1, 0.2, 0.3}},
		{"json string", "[0.1, 0.2, 0.3]"},
		{"delimited string", "0.1, 0.2, 0.3"},
		{"wrapped values", map[string]interface{}{"values": []interface{}{0.1, 0.2, 0.3}}},
		{"wrapped bson", bson.M{"embedding": primitive.A{0.1, 0.2, 0.3}}},
	}

	for _, tc := range cases {
		got, err := ParseEmbedding(tc.raw)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
			continue
		}
		if len(got) != len(want) {
			t.Errorf("%s: length = %d, want %d", tc.name, len(got), len(want))
			continue
		}
		for i := range want {
			if math.Abs(got[i]-want[i]) > 1e-6 {
				t.Errorf("%s: element %d = %v, want %v", tc.name, i, got[i], want[i])
			}
		}
	}
}

func TestParseEmbeddingRejects(t *testing.T) {
	cases := []struct {
		name string
		raw  interface{}
	}{
		{"nil", nil},
		{"empty string", ""},
		{"empty array", []interface{}{}},
		{"non-numeric array", []interface{}{"a", "b"}},
		{"garbage string", "not a vector"},
		{"unknown wrapper", map[string]interface{}{"data": []float64{1}}},
		{"unsupported type", 42},
	}
	for _, tc := range cases {
		if _, err := ParseEmbedding(tc.raw); err == nil {
			t.Errorf("%s: expected error, got none", tc.name)
		}
	}
}

func TestCosineSimilarity(t *testing.T) {
	a := []float64{1, 0, 0}
	b := []float64{0, 1, 0}

	if got := CosineSimilarity(a, a); math.Abs(got-1) > 1e-9 {
		t.Errorf("identical vectors similarity = %v, want 1", got)
	}
	if got := CosineSimilarity(a, b); got != 0 {
		t.Errorf("orthogonal vectors similarity = %v, want 0", got)
	}
	if got, rev := CosineSimilarity(a, []float64{0.5, 0.5, 0}), CosineSimilarity([]float64{0.5, 0.5, 0}, a); got != rev {
		t.Errorf("similarity not symmetric: %v vs %v", got, rev)
	}
}

func TestCosineSimilarityDegenerate(t *testing.T) {
	if got := CosineSimilarity(nil, []float64{1}); got != 0 {
		t.Errorf("nil vector similarity = %v, want exactly 0", got)
	}
	if got := CosineSimilarity([]float64{1, 2}, []float64{1, 2, 3}); got != 0 {
		t.Errorf("mismatched lengths similarity = %v, want exactly 0", got)
	}
	if got := CosineSimilarity([]float64{0, 0}, []float64{1, 1}); got != 0 {
		t.Errorf("zero-norm similarity = %v, want exactly 0", got)
	}
}
