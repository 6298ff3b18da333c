package transform

import "testing"

func TestBytesToHex(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want string
	}{
		{"empty", nil, ""},
		{"single byte", []byte{0x0f}, "0f"},
		{"multi byte", []byte{0xde, 0xad, 0xbe, 0xef}, "deadbeef"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := BytesToHex(c.in); got != c.want {
				t.Errorf("BytesToHex(%v) = %q, want %q", c.in, got, c.want)
			}
		})
	}
}

func TestHexToBytes(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    []byte
		wantErr bool
	}{
		{"empty", "", nil, false},
		{"no prefix", "deadbeef", []byte{0xde, 0xad, 0xbe, 0xef}, false},
		{"0x prefix", "0xdeadbeef", []byte{0xde, 0xad, 0xbe, 0xef}, false},
		{"odd length", "0xabc", nil, true},
		{"invalid hex", "zz", nil, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := HexToBytes(c.in)
			if (err != nil) != c.wantErr {
				t.Fatalf("HexToBytes(%q) err = %v, wantErr %v", c.in, err, c.wantErr)
			}
			if err != nil {
				return
			}
			if string(got) != string(c.want) {
				t.Errorf("HexToBytes(%q) = %v, want %v", c.in, got, c.want)
			}
		})
	}
}

func TestCapitalizeFirstRune(t *testing.T) {
	cases := map[string]string{
		"":           "",
		"level":      "Level",
		"Level":      "Level",
		"blockLevel": "BlockLevel",
		"123abc":     "123abc",
	}
	for in, want := range cases {
		if got := capitalizeFirstRune(in); got != want {
			t.Errorf("capitalizeFirstRune(%q) = %q, want %q", in, got, want)
		}
	}
}
