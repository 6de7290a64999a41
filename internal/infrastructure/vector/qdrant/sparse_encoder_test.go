package qdrant

import "testing"

func TestEncodeSparseQueryDeterministic(t *testing.T) {
	v1 := encodeSparseQuery("Torque spec for the drain plug")
	v2 := encodeSparseQuery("Torque spec for the drain plug")
	if len(v1.Indices) != len(v2.Indices) || len(v1.Values) != len(v2.Values) {
		t.Fatalf("vector sizes mismatch: v1=%d/%d v2=%d/%d", len(v1.Indices), len(v1.Values), len(v2.Indices), len(v2.Values))
	}
	for i := range v1.Indices {
		if v1.Indices[i] != v2.Indices[i] {
			t.Fatalf("indices mismatch at %d: %d vs %d", i, v1.Indices[i], v2.Indices[i])
		}
		if v1.Values[i] != v2.Values[i] {
			t.Fatalf("values mismatch at %d: %f vs %f", i, v1.Values[i], v2.Values[i])
		}
	}
}

func TestEncodeSparseQuerySortsIndices(t *testing.T) {
	v := encodeSparseQuery("zulu alpha beta gamma")
	if len(v.Indices) == 0 {
		t.Fatalf("expected non-empty sparse vector")
	}
	for i := 1; i < len(v.Indices); i++ {
		if v.Indices[i-1] > v.Indices[i] {
			t.Fatalf("indices not sorted at %d: %d > %d", i, v.Indices[i-1], v.Indices[i])
		}
	}
}

func TestEncodeSparseQueryEmptyNoiseInput(t *testing.T) {
	v := encodeSparseQuery("___---!!!")
	if len(v.Indices) != 0 || len(v.Values) != 0 {
		t.Fatalf("expected empty sparse vector, got %+v", v)
	}
}

func TestEncodeSparseDocumentBoostsSourceTerms(t *testing.T) {
	withSource := encodeSparseDocument("oil filter replacement", "engine-manual.pdf")
	withoutSource := encodeSparseDocument("oil filter replacement", "")
	if len(withSource.Indices) <= len(withoutSource.Indices) {
		t.Fatalf("expected source tokens to add terms: %d vs %d", len(withSource.Indices), len(withoutSource.Indices))
	}

	sourceOnly := encodeSparseDocument("", "engine-manual.pdf")
	textOnly := encodeSparseDocument("engine manual pdf", "")
	if len(sourceOnly.Indices) != len(textOnly.Indices) {
		t.Fatalf("token sets differ: %d vs %d", len(sourceOnly.Indices), len(textOnly.Indices))
	}
	for i := range sourceOnly.Indices {
		if sourceOnly.Values[i] <= textOnly.Values[i] {
			t.Fatalf("expected boosted weight at %d: %f vs %f", i, sourceOnly.Values[i], textOnly.Values[i])
		}
	}
}

func TestTokenizeAlphaNumUnicodeAndDigitsStability(t *testing.T) {
	tokens := tokenizeAlphaNum("Siehe KAPITEL_0003 Revision-2")
	if len(tokens) == 0 {
		t.Fatalf("expected tokens, got empty")
	}
	foundWord := false
	foundNum := false
	for _, tok := range tokens {
		if tok == "kapitel" {
			foundWord = true
		}
		if tok == "0003" {
			foundNum = true
		}
	}
	if !foundWord || !foundNum {
		t.Fatalf("expected kapitel and 0003 tokens, got %v", tokens)
	}
}
