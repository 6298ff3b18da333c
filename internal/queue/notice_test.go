package queue

import "testing"

func TestEncodeDecodeNoticeRoundTrip(t *testing.T) {
	n := PageNotice{Platform: "tezos", Network: "mainnet", From: 100, To: 250}
	got, err := decodeNotice(encodeNotice(n))
	if err != nil {
		t.Fatalf("decodeNotice() err = %v", err)
	}
	if got != n {
		t.Errorf("decodeNotice(encodeNotice(n)) = %+v, want %+v", got, n)
	}
}

func TestEncodeDecodeNoticeEmptyStrings(t *testing.T) {
	n := PageNotice{Platform: "", Network: "", From: 0, To: 0}
	got, err := decodeNotice(encodeNotice(n))
	if err != nil {
		t.Fatalf("decodeNotice() err = %v", err)
	}
	if got != n {
		t.Errorf("decodeNotice(encodeNotice(n)) = %+v, want %+v", got, n)
	}
}

func TestDecodeNoticeTooShortPayload(t *testing.T) {
	if _, err := decodeNotice([]byte{1}); err == nil {
		t.Error("decodeNotice(1 byte) want error")
	}
}

func TestDecodeNoticeTruncatedPlatformField(t *testing.T) {
	// Declares a 10-byte platform field but supplies none.
	if _, err := decodeNotice([]byte{10}); err == nil {
		t.Error("decodeNotice(truncated platform) want error")
	}
}

func TestDecodeNoticeTruncatedNetworkField(t *testing.T) {
	platform := []byte("tezos")
	buf := append([]byte{byte(len(platform))}, platform...)
	buf = append(buf, 10) // declares a network field longer than what follows
	if _, err := decodeNotice(buf); err == nil {
		t.Error("decodeNotice(truncated network) want error")
	}
}
