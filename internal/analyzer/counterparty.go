package analyzer

import (
	"fmt"
	"strings"

	"github.com/opensource-finance/fraudforge/internal/domain"
)

// Category is a named keyword list for high-risk merchant or sender types.
type Category struct {
	Name     string   `mapstructure:"name" json:"name"`
	Keywords []string `mapstructure:"keywords" json:"keywords"`
	Score    float64  `mapstructure:"score" json:"score"`
}

// CounterpartyConfig holds the merchant, sender and domain lists.
type CounterpartyConfig struct {
	Categories   []Category `mapstructure:"categories" json:"categories"`
	GenericNames []string   `mapstructure:"generic_names" json:"genericNames"`
	GenericScore float64    `mapstructure:"generic_score" json:"genericScore"`
	MissingScore float64    `mapstructure:"missing_score" json:"missingScore"`

	// Verified names and domains are trusted as-is. Brands found inside any
	// other name are treated as spoofing attempts.
	Verified   []string `mapstructure:"verified" json:"verified"`
	Brands     []string `mapstructure:"brands" json:"brands"`
	SpoofScore float64  `mapstructure:"spoof_score" json:"spoofScore"`

	BlocklistScore     float64 `mapstructure:"blocklist_score" json:"blocklistScore"`
	UnknownSenderScore float64 `mapstructure:"unknown_sender_score" json:"unknownSenderScore"`
}

// DefaultCounterpartyConfig returns the stock counterparty lists.
func DefaultCounterpartyConfig() CounterpartyConfig {
	return CounterpartyConfig{
		Categories: []Category{
			{Name: "gambling", Keywords: []string{"casino", "bet", "betting", "poker", "lottery", "jackpot"}, Score: 20},
			{Name: "crypto", Keywords: []string{"crypto", "bitcoin", "btc", "coin exchange", "token sale"}, Score: 20},
			{Name: "adult", Keywords: []string{"adult", "xxx", "escort"}, Score: 20},
		},
		GenericNames: []string{"unknown", "test", "temp", "n/a", "null", "unnamed", "misc"},
		GenericScore: 25,
		MissingScore: 10,
		Verified: []string{
			"amazon", "flipkart", "paytm", "google", "apple", "microsoft", "netflix", "paypal",
			"HDFCBK", "SBIINB", "ICICIB", "AXISBK",
			"amazon.com", "amazon.in", "flipkart.com", "paytm.com", "google.com", "apple.com",
			"microsoft.com", "netflix.com", "paypal.com", "hdfcbank.com", "onlinesbi.sbi", "icicibank.com",
		},
		Brands:             []string{"amazon", "flipkart", "paytm", "paypal", "apple", "google", "microsoft", "netflix", "hdfc", "sbi", "icici", "axis"},
		SpoofScore:         30,
		BlocklistScore:     50,
		UnknownSenderScore: 10,
	}
}

type counterpartyAnalyzer struct {
	cfg          CounterpartyConfig
	verifiedName map[string]bool
	verifiedHost []string
}

// NewCounterparty returns the merchant, sender and domain analyzer.
func NewCounterparty(cfg CounterpartyConfig) Analyzer {
	a := &counterpartyAnalyzer{cfg: cfg, verifiedName: make(map[string]bool)}
	for _, v := range cfg.Verified {
		v = strings.ToLower(strings.TrimSpace(v))
		if strings.Contains(v, ".") {
			a.verifiedHost = append(a.verifiedHost, v)
			continue
		}
		a.verifiedName[alnumUpper(v)] = true
	}
	return a
}

func (a *counterpartyAnalyzer) Dimension() string { return DimCounterparty }

// party is one name to check and whether it is a hostname.
type party struct {
	name string
	host bool
}

func (a *counterpartyAnalyzer) Analyze(ev domain.Event, hc *domain.HistoricalContext) domain.RiskContribution {
	c := newContribution(DimCounterparty)

	label, parties, category := a.describe(ev)
	if label == "" {
		return c
	}

	for _, id := range domain.Identifiers(ev) {
		if hc.IsBlocked(id) {
			c.Add(a.cfg.BlocklistScore, fmt.Sprintf("Blocklisted identifier: %s", id))
			break
		}
	}

	if len(parties) == 0 {
		c.Add(a.cfg.MissingScore, fmt.Sprintf("No %s provided", label))
		return c
	}

	if otp, ok := ev.(*domain.OtpMessage); ok && hc != nil && len(hc.KnownSenders) > 0 && !hc.KnowsSender(otp.Sender) {
		c.Add(a.cfg.UnknownSenderScore, fmt.Sprintf("First message from sender %s", otp.Sender))
	}

	// The last party is the one the event actually came from: the address
	// behind a display name, or the only name given.
	source := parties[len(parties)-1]
	if a.verified(source) {
		return c
	}

	var borrowed string
	unverified := make([]party, 0, len(parties))
	for _, p := range parties {
		if a.verified(p) {
			borrowed = p.name
			continue
		}
		unverified = append(unverified, p)
	}
	parties = unverified

	names := make([]string, 0, len(parties)+1)
	for _, p := range parties {
		names = append(names, p.name)
	}
	if category != "" {
		names = append(names, category)
	}
	haystack := strings.Join(names, " ")

	for _, cat := range a.cfg.Categories {
		if hits := matchPhrases(haystack, cat.Keywords); len(hits) > 0 {
			c.Add(cat.Score, fmt.Sprintf("High-risk %s category: %s", label, cat.Name))
		}
	}

	if a.generic(parties) {
		c.Add(a.cfg.GenericScore, fmt.Sprintf("Unknown or unverified %s: %s", label, parties[0].name))
	}

	spoofed := false
	for _, p := range parties {
		if brand := a.spoofedBrand(p); brand != "" {
			c.Add(a.cfg.SpoofScore, fmt.Sprintf("Possible spoofing: %s imitates %s", p.name, strings.ToUpper(brand)))
			spoofed = true
			break
		}
	}
	if !spoofed && borrowed != "" {
		c.Add(a.cfg.SpoofScore, fmt.Sprintf("Possible spoofing: %s uses the name %s", source.name, borrowed))
	}

	return c
}

// describe extracts the label, the names to check, and an optional category.
func (a *counterpartyAnalyzer) describe(ev domain.Event) (string, []party, string) {
	var label, category string
	var parties []party
	add := func(name string, host bool) {
		if name = strings.TrimSpace(name); name != "" {
			parties = append(parties, party{name: name, host: host})
		}
	}

	switch e := ev.(type) {
	case *domain.CardTransaction:
		label, category = "merchant", e.MerchantCategory
		add(e.Merchant, false)
	case *domain.GeoTransaction:
		label = "merchant"
		add(e.Merchant, false)
	case *domain.GenericTransaction:
		label = "counterparty"
		add(e.Counterparty, false)
	case *domain.OtpMessage:
		label = "sender"
		add(e.Sender, false)
	case *domain.PhishingSubmission:
		label = "sender"
		add(e.SenderName, false)
		if at := strings.LastIndex(e.SenderAddress, "@"); at >= 0 {
			add(e.SenderAddress[at+1:], true)
		} else {
			add(e.SenderAddress, false)
		}
	case *domain.UrlSubmission:
		label = "domain"
		add(domain.Host(e.URL), true)
	}
	return label, parties, category
}

func (a *counterpartyAnalyzer) verified(p party) bool {
	if p.host {
		host := strings.ToLower(p.name)
		for _, v := range a.verifiedHost {
			if host == v || strings.HasSuffix(host, "."+v) {
				return true
			}
		}
		return false
	}
	return a.verifiedName[alnumUpper(p.name)]
}

func (a *counterpartyAnalyzer) generic(parties []party) bool {
	for _, p := range parties {
		if p.host {
			continue
		}
		if len(matchPhrases(p.name, a.cfg.GenericNames)) > 0 {
			return true
		}
	}
	return false
}

// spoofedBrand returns the brand embedded in an unverified name.
func (a *counterpartyAnalyzer) spoofedBrand(p party) string {
	name := alnumUpper(p.name)
	if p.host {
		// ignore the TLD so "paypal.com.evil" and "paypal-login.xyz" both match
		name = alnumUpper(strings.TrimSuffix(p.name, "."+lastLabel(p.name)))
	}
	for _, b := range a.cfg.Brands {
		brand := alnumUpper(b)
		if brand == "" || len(brand) < 3 {
			continue
		}
		if strings.Contains(name, brand) && !a.verifiedName[name] {
			return b
		}
	}
	return ""
}

func lastLabel(host string) string {
	if i := strings.LastIndex(host, "."); i >= 0 {
		return host[i+1:]
	}
	return host
}
