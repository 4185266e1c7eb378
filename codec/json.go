package codec

import "encoding/json"

// JSON serializes values with encoding/json. Snapshot files written
// with it are readable by any JSON tooling; numeric values decode as
// float64 per the usual encoding/json rules.
type JSON[V any] struct{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
