package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/fraudforge/internal/domain"
)

func TestTechnicalAnalyzer(t *testing.T) {
	a, err := NewTechnical(DefaultTechnicalConfig())
	require.NoError(t, err)

	tests := []struct {
		name string
		url  string
		want float64
	}{
		{"clean https", "https://www.google.com/search?q=golang", 0},
		{"ip host over http", "http://192.168.1.10/login.php", 35},
		{"deep subdomains", "https://a.b.c.d.example.com/", 15},
		{"punycode", "https://xn--pypal-4ve.com/", 25},
		{"non-latin host", "https://раураl.com/", 25},
		{"shortener", "https://bit.ly/3xYz", 15},
		{"executable", "https://example.com/update.apk", 30},
		{"suspicious param", "https://example.com/?redirect=home", 10},
		{"blacklisted tld", "https://free-stuff.tk/", 15},
		{"userinfo", "https://bank.com@evil.example/", 15},
		{"script", "javascript:alert(1)", 50},
		{"encoded blob", "https://example.com/p?d=QWxhZGRpbjpvcGVuIHNlc2FtZUFsYWRkaW46b3BlbiBzZXNhbWU=", 10},
		{"schemeless", "example.com/page", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := a.Analyze(&domain.UrlSubmission{URL: tt.url}, nil)
			assert.Equal(t, DimTechnical, c.Dimension)
			assert.Equal(t, tt.want, c.Score, "reasons: %v", c.Reasons)
		})
	}

	t.Run("flags count once per event", func(t *testing.T) {
		ev := &domain.PhishingSubmission{
			SenderAddress: "x@y.com",
			Body:          "click",
			Links:         []string{"http://one.tk/", "http://two.tk/"},
		}
		c := a.Analyze(ev, nil)
		assert.Equal(t, 25.0, c.Score)
		assert.Len(t, c.Reasons, 2)
	})

	t.Run("links extracted from otp content", func(t *testing.T) {
		ev := &domain.OtpMessage{Sender: "X", Recipient: "u", Content: "Verify at bit.ly/abc123 now"}
		c := a.Analyze(ev, nil)
		assert.Equal(t, 15.0, c.Score)
	})

	t.Run("links extracted from phishing body", func(t *testing.T) {
		ev := &domain.PhishingSubmission{SenderAddress: "x@y.com", Body: "Login at http://203.0.113.9/secure now"}
		c := a.Analyze(ev, nil)
		assert.Equal(t, 35.0, c.Score)
	})
}
