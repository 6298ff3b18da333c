package listener

import "testing"

func TestNewAppliesDefaults(t *testing.T) {
	l := New(Config{URL: "https://node.example.com"}, nil)
	if l.config.MaxRetries != 25 {
		t.Errorf("MaxRetries = %d, want default 25", l.config.MaxRetries)
	}
	if l.config.ReconnectDelay.Seconds() != 1 {
		t.Errorf("ReconnectDelay = %v, want default 1s", l.config.ReconnectDelay)
	}
}

func TestNewPreservesConfiguredValues(t *testing.T) {
	l := New(Config{URL: "https://node.example.com", MaxRetries: 5}, nil)
	if l.config.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want configured 5", l.config.MaxRetries)
	}
}

func TestBuildURLUpgradesHTTPSToWSS(t *testing.T) {
	l := New(Config{URL: "https://node.example.com/ws", Platform: "tezos", Network: "mainnet"}, nil)
	got, err := l.buildURL()
	if err != nil {
		t.Fatalf("buildURL() err = %v", err)
	}
	want := "wss://node.example.com/ws?subscribe=newHeads&platform=tezos&network=mainnet"
	if got != want {
		t.Errorf("buildURL() = %q, want %q", got, want)
	}
}

func TestBuildURLPlainHTTPBecomesWS(t *testing.T) {
	l := New(Config{URL: "http://node.example.com", Platform: "ethereum", Network: "sepolia"}, nil)
	got, err := l.buildURL()
	if err != nil {
		t.Fatalf("buildURL() err = %v", err)
	}
	want := "ws://node.example.com?subscribe=newHeads&platform=ethereum&network=sepolia"
	if got != want {
		t.Errorf("buildURL() = %q, want %q", got, want)
	}
}

func TestIsConnectedFalseBeforeRun(t *testing.T) {
	l := New(Config{URL: "https://node.example.com"}, nil)
	if l.IsConnected() {
		t.Error("IsConnected() = true before any Run(), want false")
	}
}

func TestCloseOnNeverConnectedListenerIsNoop(t *testing.T) {
	l := New(Config{URL: "https://node.example.com"}, nil)
	if err := l.Close(); err != nil {
		t.Errorf("Close() on never-connected listener err = %v, want nil", err)
	}
}

func TestStatsBeforeConnect(t *testing.T) {
	l := New(Config{URL: "https://node.example.com"}, nil)
	connected, _, msgCount, _ := l.Stats()
	if connected {
		t.Error("Stats().connected = true before any connection, want false")
	}
	if msgCount != 0 {
		t.Errorf("Stats().messageCount = %d, want 0", msgCount)
	}
}
