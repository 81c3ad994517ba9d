package analyzer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/opensource-finance/fraudforge/internal/domain"
)

// KeywordCategory is a phrase list that scores once when any phrase matches.
type KeywordCategory struct {
	Name    string   `mapstructure:"name" json:"name"`
	Label   string   `mapstructure:"label" json:"label"`
	Phrases []string `mapstructure:"phrases" json:"phrases"`
	Score   float64  `mapstructure:"score" json:"score"`
}

// ContentConfig holds the keyword lists for free-text scanning.
type ContentConfig struct {
	Categories               []KeywordCategory `mapstructure:"categories" json:"categories"`
	RepeatedPunctuationScore float64           `mapstructure:"repeated_punctuation_score" json:"repeatedPunctuationScore"`
	Misspellings             []string          `mapstructure:"misspellings" json:"misspellings"`
	MisspellingScore         float64           `mapstructure:"misspelling_score" json:"misspellingScore"`
	Brands                   []string          `mapstructure:"brands" json:"brands"`
	BrandMentionScore        float64           `mapstructure:"brand_mention_score" json:"brandMentionScore"`
}

// DefaultContentConfig returns the stock phrase lists.
func DefaultContentConfig() ContentConfig {
	return ContentConfig{
		Categories: []KeywordCategory{
			{
				Name:    "urgency",
				Label:   "Urgency language",
				Phrases: []string{"urgent", "immediately", "within 24 hours", "act now", "expires today", "suspended", "last chance", "final notice"},
				Score:   15,
			},
			{
				Name:    "authority",
				Label:   "Authority impersonation",
				Phrases: []string{"rbi", "reserve bank", "police", "income tax", "government", "customer care", "kyc", "security team"},
				Score:   15,
			},
			{
				Name:    "reward",
				Label:   "Reward or prize bait",
				Phrases: []string{"prize", "winner", "won", "lottery", "cashback", "reward", "congratulations", "free gift"},
				Score:   15,
			},
			{
				Name:    "credential",
				Label:   "Credential harvesting",
				Phrases: []string{"share otp", "share your otp", "share the code", "password", "pin", "cvv", "verify your account", "confirm your details", "card number", "login here"},
				Score:   25,
			},
		},
		RepeatedPunctuationScore: 5,
		Misspellings:             []string{"recieve", "acount", "verfy", "pasword", "immediatly", "suspeneded", "adress", "bankk"},
		MisspellingScore:         10,
		Brands:                   []string{"amazon", "flipkart", "paytm", "paypal", "apple", "google", "microsoft", "netflix", "hdfc", "sbi", "icici", "axis"},
		BrandMentionScore:        10,
	}
}

var repeatedPunctuation = regexp.MustCompile(`[!?]{2,}`)

type contentAnalyzer struct {
	cfg ContentConfig
}

// NewContent returns the keyword analyzer for message text.
func NewContent(cfg ContentConfig) Analyzer {
	return &contentAnalyzer{cfg: cfg}
}

func (a *contentAnalyzer) Dimension() string { return DimContent }

func (a *contentAnalyzer) Analyze(ev domain.Event, _ *domain.HistoricalContext) domain.RiskContribution {
	c := newContribution(DimContent)

	var text, sender string
	switch e := ev.(type) {
	case *domain.OtpMessage:
		text, sender = e.Content, e.Sender
	case *domain.PhishingSubmission:
		text, sender = e.Text(), e.SenderName+" "+e.SenderAddress
	default:
		return c
	}
	if strings.TrimSpace(text) == "" {
		return c
	}

	for _, cat := range a.cfg.Categories {
		if hits := matchPhrases(text, cat.Phrases); len(hits) > 0 {
			label := cat.Label
			if label == "" {
				label = cat.Name
			}
			c.Add(cat.Score, fmt.Sprintf("%s: %s", label, strings.Join(hits, ", ")))
		}
	}

	if repeatedPunctuation.MatchString(text) {
		c.Add(a.cfg.RepeatedPunctuationScore, "Excessive punctuation")
	}
	if hits := matchPhrases(text, a.cfg.Misspellings); len(hits) > 0 {
		c.Add(a.cfg.MisspellingScore, fmt.Sprintf("Known misspellings: %s", strings.Join(hits, ", ")))
	}

	senderKey := alnumUpper(sender)
	var impersonated []string
	for _, b := range matchPhrases(text, a.cfg.Brands) {
		if !strings.Contains(senderKey, alnumUpper(b)) {
			impersonated = append(impersonated, strings.ToUpper(b))
		}
	}
	if len(impersonated) > 0 {
		c.Add(a.cfg.BrandMentionScore, fmt.Sprintf("Mentions %s (possible impersonation)", strings.Join(impersonated, ", ")))
	}

	return c
}
