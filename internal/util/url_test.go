package util

import "testing"

const base = "https://www.pepper.pl"

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "Protocol relative",
			input: "//www.pepper.pl/promocje/oferta-123",
			want:  "https://www.pepper.pl/promocje/oferta-123",
		},
		{
			name:  "Site relative",
			input: "/promocje/oferta-123",
			want:  "https://www.pepper.pl/promocje/oferta-123",
		},
		{
			name:  "Already absolute",
			input: "https://example.com/deal",
			want:  "https://example.com/deal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeURL(tt.input, base); got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDealID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "Trailing numeric segment",
			input: "https://www.pepper.pl/deals/great-offer-123456",
			want:  "123456",
		},
		{
			name:  "Trailing slash",
			input: "https://www.pepper.pl/deals/great-offer-123456/",
			want:  "123456",
		},
		{
			name:  "No trailing digits",
			input: "https://www.pepper.pl/deals/great-offer",
			want:  "https://www.pepper.pl/deals/great-offer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DealID(tt.input); got != tt.want {
				t.Errorf("DealID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStoreDomain(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "Standard domain", input: "https://www.mediamarkt.pl/produkt/1", want: "mediamarkt.pl"},
		{name: "Subdomain with two-part TLD", input: "https://shop.example.co.uk/p", want: "example.co.uk"},
		{name: "Not a URL", input: "::::", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StoreDomain(tt.input); got != tt.want {
				t.Errorf("StoreDomain(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
