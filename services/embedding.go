package services

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ParseEmbedding normalizes the stored embedding encodings to a numeric
// vector. Accepted forms: native float arrays, BSON arrays, JSON-array
// strings, comma-delimited strings and wrapped objects keyed by values /
// embedding / vector. Callers treat a parse failure as similarity 0, never as
// a request error.
func ParseEmbedding(raw interface{}) ([]float64, error) {
	switch v := raw.(type) {
	case nil:
		return nil, fmt.Errorf("missing embedding")
	case []float64:
		return v, nil
	case []float32:
		out := make([]float64, len(v))
		for i, f := range v {
			out[i] = float64(f)
		}
		return out, nil
	case []interface{}:
		return parseNumericSlice(v)
	case primitive.A:
		return parseNumericSlice(v)
	case string:
		return parseEmbeddingString(v)
	case map[string]interface{}:
		return parseWrapped(v)
	case bson.M:
		return parseWrapped(v)
	default:
		return nil, fmt.Errorf("unsupported embedding encoding %T", raw)
	}
}

func parseNumericSlice(items []interface{}) ([]float64, error) {
	out := make([]float64, 0, len(items))
	for _, item := range items {
		switch n := item.(type) {
		case float64:
			out = append(out, n)
		case float32:
			out = append(out, float64(n))
		case int:
			out = append(out, float64(n))
		case int32:
			out = append(out, float64(n))
		case int64:
			out = append(out, float64(n))
		default:
			return nil, fmt.Errorf("non-numeric embedding element %T", item)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty embedding array")
	}
	return out, nil
}

func parseEmbeddingString(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty embedding string")
	}

	if strings.HasPrefix(s, "[") {
		var vec []float64
		if err := json.Unmarshal([]byte(s), &vec); err != nil {
			return nil, fmt.Errorf("invalid JSON embedding: %w", err)
		}
		if len(vec) == 0 {
			return nil, fmt.Errorf("empty embedding array")
		}
		return vec, nil
	}

	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid embedding element %q: %w", part, err)
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty embedding string")
	}
	return out, nil
}

func parseWrapped(m map[string]interface{}) ([]float64, error) {
	for _, key := range []string{"values", "embedding", "vector"} {
		if inner, ok := m[key]; ok {
			return ParseEmbedding(inner)
		}
	}
	return nil, fmt.Errorf("wrapped embedding has no recognized key")
}

// CosineSimilarity returns the normalized dot product of two vectors.
// Mismatched lengths, empty vectors and zero-norm vectors all yield exactly 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
