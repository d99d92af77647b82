package audit

import (
	"encoding/json"
	"math/rand"
	"testing"
)

func TestStableStringifySortsKeysAtEveryLevel(t *testing.T) {
	v := map[string]any{
		"b": 1,
		"a": []any{map[string]any{"z": true, "y": nil}},
	}
	got := StableStringify(v)
	want := `{"a":[{"y":null,"z":true}],"b":1}`
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestStableStringifyIgnoresKeyOrder(t *testing.T) {
	var a, b any
	if err := json.Unmarshal([]byte(`{"x":1,"y":{"p":[1,2],"q":"s"},"z":null}`), &a); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(`{"z":null,"y":{"q":"s","p":[1,2]},"x":1}`), &b); err != nil {
		t.Fatal(err)
	}
	if StableStringify(a) != StableStringify(b) {
		t.Fatalf("key order changed output: %s vs %s", StableStringify(a), StableStringify(b))
	}
}

func TestStableStringifyPreservesArrayOrder(t *testing.T) {
	if StableStringify([]any{1, 2}) == StableStringify([]any{2, 1}) {
		t.Fatal("array order must be significant")
	}
}

func TestStableStringifyRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		v := randomJSONValue(rng, 0)
		first := StableStringify(v)

		var parsed any
		if err := json.Unmarshal([]byte(first), &parsed); err != nil {
			t.Fatalf("output is not valid JSON: %v (%s)", err, first)
		}
		if second := StableStringify(parsed); first != second {
			t.Fatalf("round trip changed output:\n%s\n%s", first, second)
		}
	}
}

func TestStableStringifyPrimitives(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, "null"},
		{true, "true"},
		{"hi", `"hi"`},
		{float64(3), "3"},
		{map[string]any{}, "{}"},
		{[]any{}, "[]"},
	}
	for _, tc := range cases {
		if got := StableStringify(tc.in); got != tc.want {
			t.Fatalf("StableStringify(%v) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func randomJSONValue(rng *rand.Rand, depth int) any {
	if depth >= 3 {
		return randomScalar(rng)
	}
	switch rng.Intn(4) {
	case 0:
		n := rng.Intn(4)
		m := make(map[string]any, n)
		for i := 0; i < n; i++ {
			m[randomKey(rng)] = randomJSONValue(rng, depth+1)
		}
		return m
	case 1:
		n := rng.Intn(4)
		s := make([]any, n)
		for i := range s {
			s[i] = randomJSONValue(rng, depth+1)
		}
		return s
	default:
		return randomScalar(rng)
	}
}

func randomScalar(rng *rand.Rand) any {
	switch rng.Intn(4) {
	case 0:
		return nil
	case 1:
		return rng.Intn(2) == 0
	case 2:
		return float64(rng.Intn(10000)) / 10
	default:
		return randomKey(rng)
	}
}

func randomKey(rng *rand.Rand) string {
	const alphabet = "abcdefghij_"
	n := 1 + rng.Intn(8)
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rng.Intn(len(alphabet))]
	}
	return string(b)
}
