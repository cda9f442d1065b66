package wire

import "testing"

func TestEncodeDecodeMeta(t *testing.T) {
	m := NewMeta("text/string")
	m.ReplyTo = "reply:actor:1"

	b, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var got Meta
	if err := Decode(b, &got); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != m {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", got, m)
	}
}

func TestEncodeDecodeData(t *testing.T) {
	cases := []Data{
		NewSInt32(42),
		NewSInt64(-7),
		NewFloat(3.5),
		NewDouble(2.718281828),
		NewString("hello"),
		NewBytes([]byte{1, 2, 3}),
		NewSInt32Array([]int32{1, 2, 3}),
		NewStringArray([]string{"a", "b"}),
	}
	for _, d := range cases {
		b, err := Encode(d)
		if err != nil {
			t.Fatalf("Encode(%v): %v", d.Kind, err)
		}
		var got Data
		if err := Decode(b, &got); err != nil {
			t.Fatalf("Decode(%v): %v", d.Kind, err)
		}
		if got.Kind != d.Kind {
			t.Fatalf("kind mismatch: got %s, want %s", got.Kind, d.Kind)
		}
	}
}

func TestRegistrationOrdering(t *testing.T) {
	a := Registration{Name: "a", Host: "h", Domain: "A", OwnerType: Publisher}
	b := Registration{Name: "b", Host: "h", Domain: "A", OwnerType: Publisher}
	if !a.Less(b) {
		t.Fatalf("expected a < b")
	}
	if b.Less(a) {
		t.Fatalf("expected !(b < a)")
	}
}

func TestRegistrationTopic(t *testing.T) {
	r := Registration{Domain: "A", Subject: "B", Type: "1"}
	if got := r.Topic(); got != "A:B:1" {
		t.Fatalf("Topic() = %q, want %q", got, "A:B:1")
	}

	r2 := Registration{Domain: "A", Subject: "*"}
	if got := r2.Topic(); got != "A" {
		t.Fatalf("Topic() = %q, want %q", got, "A")
	}
}
