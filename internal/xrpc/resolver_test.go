package xrpc

import "testing"

func TestResolver_Resolve(t *testing.T) {
	r := NewDefaultResolver()

	tests := []struct {
		handle string
		want   string
	}{
		{"alice.sync.terasync.app", SelfHostedBaseURL},
		{"Alice.SYNC.TeraSync.app", SelfHostedBaseURL},
		{"alice.bsky.social", DefaultBaseURL},
		{"alice.example.com", DefaultBaseURL},
		{"", DefaultBaseURL},
		{"sync.terasync.app", DefaultBaseURL},
	}
	for _, tt := range tests {
		if got := r.Resolve(tt.handle); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.handle, got, tt.want)
		}
	}
}

func TestNewResolver_Normalizes(t *testing.T) {
	r := NewResolver([]Route{
		{Suffix: ".example.org", BaseURL: "https://pds.example.org/"},
		{Suffix: "", BaseURL: "https://ignored"},
		{Suffix: ".empty", BaseURL: ""},
	}, "")

	if got := r.Fallback(); got != DefaultBaseURL {
		t.Errorf("Fallback() = %q", got)
	}
	routes := r.Routes()
	if len(routes) != 1 {
		t.Fatalf("Routes() = %v, want one route", routes)
	}
	if routes[0].BaseURL != "https://pds.example.org" {
		t.Errorf("BaseURL = %q", routes[0].BaseURL)
	}

	routes[0].BaseURL = "mutated"
	if r.Resolve("a.example.org") != "https://pds.example.org" {
		t.Error("Routes() must return a copy")
	}
}
