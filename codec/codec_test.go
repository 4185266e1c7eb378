package codec

import (
	"testing"

	"google.golang.org/protobuf/types/known/structpb"
)

type sample struct {
	ID   string `json:"id" msgpack:"id"`
	Hits int64  `json:"hits" msgpack:"hits"`
}

func TestJSONRoundTrip(t *testing.T) {
	t.Parallel()

	c := JSON[sample]{}
	b, err := c.Encode(sample{ID: "a", Hits: 3})
	if err != nil {
		t.Fatal(err)
	}
	v, err := c.Decode(b)
	if err != nil || v.ID != "a" || v.Hits != 3 {
		t.Fatalf("decode: %+v err=%v", v, err)
	}
}

func TestMsgpackRoundTrip(t *testing.T) {
	t.Parallel()

	c := Msgpack[sample]{}
	b, err := c.Encode(sample{ID: "b", Hits: 9})
	if err != nil {
		t.Fatal(err)
	}
	v, err := c.Decode(b)
	if err != nil || v.ID != "b" || v.Hits != 9 {
		t.Fatalf("decode: %+v err=%v", v, err)
	}
}

func TestMsgpackDynamicValues(t *testing.T) {
	t.Parallel()

	// The snapshot path stores opaque values; integers come back as
	// int64 and strings as string.
	c := Msgpack[any]{}
	for _, v := range []any{"text", int64(42), true} {
		b, err := c.Encode(v)
		if err != nil {
			t.Fatal(err)
		}
		got, err := c.Decode(b)
		if err != nil || got != v {
			t.Fatalf("round trip %v: got %v (%T) err=%v", v, got, got, err)
		}
	}
}

func TestCBORRoundTrip(t *testing.T) {
	t.Parallel()

	c := MustCBOR[sample](true)
	b, err := c.Encode(sample{ID: "c", Hits: 1})
	if err != nil {
		t.Fatal(err)
	}
	v, err := c.Decode(b)
	if err != nil || v.ID != "c" || v.Hits != 1 {
		t.Fatalf("decode: %+v err=%v", v, err)
	}

	// Deterministic mode is byte-stable.
	b2, _ := c.Encode(sample{ID: "c", Hits: 1})
	if string(b) != string(b2) {
		t.Fatal("deterministic CBOR must be byte-stable")
	}
}

func TestProtobufRoundTrip(t *testing.T) {
	t.Parallel()

	c := NewProtobuf(func() *structpb.Value { return &structpb.Value{} })
	b, err := c.Encode(structpb.NewStringValue("hello"))
	if err != nil {
		t.Fatal(err)
	}
	v, err := c.Decode(b)
	if err != nil || v.GetStringValue() != "hello" {
		t.Fatalf("decode: %v err=%v", v, err)
	}
}

func TestRawCodecs(t *testing.T) {
	t.Parallel()

	if b, _ := (Bytes{}).Encode([]byte{1, 2}); len(b) != 2 {
		t.Fatal("Bytes must be identity")
	}
	s, _ := (String{}).Decode([]byte("x"))
	if s != "x" {
		t.Fatal("String round trip")
	}
}
