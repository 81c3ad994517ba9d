package analyzer

import (
	"fmt"
	"net"
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/idna"

	"github.com/opensource-finance/fraudforge/internal/domain"
)

// TechnicalConfig holds the URL structure checks.
type TechnicalConfig struct {
	MalformedScore       float64  `mapstructure:"malformed_score" json:"malformedScore"`
	IPHostScore          float64  `mapstructure:"ip_host_score" json:"ipHostScore"`
	MaxSubdomainDepth    int      `mapstructure:"max_subdomain_depth" json:"maxSubdomainDepth"`
	SubdomainScore       float64  `mapstructure:"subdomain_score" json:"subdomainScore"`
	HomographScore       float64  `mapstructure:"homograph_score" json:"homographScore"`
	Shorteners           []string `mapstructure:"shorteners" json:"shorteners"`
	ShortenerScore       float64  `mapstructure:"shortener_score" json:"shortenerScore"`
	InsecureScore        float64  `mapstructure:"insecure_score" json:"insecureScore"`
	ExecutableExtensions []string `mapstructure:"executable_extensions" json:"executableExtensions"`
	ExecutableScore      float64  `mapstructure:"executable_score" json:"executableScore"`
	SuspiciousParams     []string `mapstructure:"suspicious_params" json:"suspiciousParams"`
	SuspiciousParamScore float64  `mapstructure:"suspicious_param_score" json:"suspiciousParamScore"`
	Base64Score          float64  `mapstructure:"base64_score" json:"base64Score"`
	ScriptMarkers        []string `mapstructure:"script_markers" json:"scriptMarkers"`
	ScriptScore          float64  `mapstructure:"script_score" json:"scriptScore"`
	TLDBlacklist         []string `mapstructure:"tld_blacklist" json:"tldBlacklist"`
	TLDScore             float64  `mapstructure:"tld_score" json:"tldScore"`
	UserInfoScore        float64  `mapstructure:"userinfo_score" json:"userinfoScore"`
}

// DefaultTechnicalConfig returns the stock URL checks.
func DefaultTechnicalConfig() TechnicalConfig {
	return TechnicalConfig{
		MalformedScore:       20,
		IPHostScore:          25,
		MaxSubdomainDepth:    3,
		SubdomainScore:       15,
		HomographScore:       25,
		Shorteners:           []string{"bit.ly", "tinyurl.com", "t.co", "goo.gl", "ow.ly", "is.gd", "cutt.ly", "rb.gy", "shorturl.at"},
		ShortenerScore:       15,
		InsecureScore:        10,
		ExecutableExtensions: []string{".exe", ".apk", ".scr", ".bat", ".msi", ".vbs", ".jar", ".cmd", ".ps1"},
		ExecutableScore:      30,
		SuspiciousParams:     []string{"redirect", "redirect_uri", "url", "next", "token", "password", "login", "session"},
		SuspiciousParamScore: 10,
		Base64Score:          10,
		ScriptMarkers:        []string{"<script", "javascript:", "data:text/html", "onerror=", "onload=", "eval("},
		ScriptScore:          30,
		TLDBlacklist:         []string{"tk", "ml", "ga", "cf", "gq", "xyz", "top", "zip", "click", "work"},
		TLDScore:             15,
		UserInfoScore:        15,
	}
}

var base64Blob = regexp.MustCompile(`[A-Za-z0-9+/]{40,}={0,2}`)

type technicalAnalyzer struct {
	cfg       TechnicalConfig
	linkRegex *regexp.Regexp
}

// NewTechnical returns the URL structure analyzer. Links embedded in message
// text are extracted, including bare shortener links.
func NewTechnical(cfg TechnicalConfig) (Analyzer, error) {
	pattern := `(?i)\b(?:https?://|www\.)[^\s<>"']+`
	if len(cfg.Shorteners) > 0 {
		quoted := make([]string, len(cfg.Shorteners))
		for i, s := range cfg.Shorteners {
			quoted[i] = regexp.QuoteMeta(s)
		}
		pattern += `|\b(?:` + strings.Join(quoted, "|") + `)/[^\s<>"']+`
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile link pattern: %w", err)
	}
	return &technicalAnalyzer{cfg: cfg, linkRegex: re}, nil
}

func (a *technicalAnalyzer) Dimension() string { return DimTechnical }

func (a *technicalAnalyzer) Analyze(ev domain.Event, _ *domain.HistoricalContext) domain.RiskContribution {
	c := newContribution(DimTechnical)

	var links []string
	switch e := ev.(type) {
	case *domain.UrlSubmission:
		links = []string{e.URL}
	case *domain.PhishingSubmission:
		links = append(links, e.Links...)
		links = append(links, a.linkRegex.FindAllString(e.Text(), -1)...)
	case *domain.OtpMessage:
		links = a.linkRegex.FindAllString(e.Content, -1)
	default:
		return c
	}

	raised := make(map[string]bool)
	flag := func(key string, points float64, reason string) {
		if raised[key] {
			return
		}
		raised[key] = true
		c.Add(points, reason)
	}

	for _, link := range links {
		a.inspect(strings.TrimSpace(link), flag)
	}
	return c
}

func (a *technicalAnalyzer) inspect(link string, flag func(key string, points float64, reason string)) {
	if link == "" {
		return
	}
	lower := strings.ToLower(link)

	for _, marker := range a.cfg.ScriptMarkers {
		if strings.Contains(lower, strings.ToLower(marker)) {
			flag("script", a.cfg.ScriptScore, fmt.Sprintf("Embedded script marker: %s", marker))
			break
		}
	}

	explicitScheme := strings.Contains(link, "://")
	parseable := link
	if !explicitScheme {
		parseable = "http://" + link
	}
	u, err := url.Parse(parseable)
	if err != nil || u.Hostname() == "" {
		flag("malformed", a.cfg.MalformedScore, "Malformed URL")
		return
	}
	host := strings.ToLower(u.Hostname())

	if u.User != nil {
		flag("userinfo", a.cfg.UserInfoScore, "URL hides its destination behind '@'")
	}

	if net.ParseIP(host) != nil {
		flag("ip", a.cfg.IPHostScore, fmt.Sprintf("IP address used instead of domain: %s", host))
	} else {
		labels := strings.Split(host, ".")
		if depth := len(labels) - 2; a.cfg.MaxSubdomainDepth > 0 && depth > a.cfg.MaxSubdomainDepth {
			flag("subdomain", a.cfg.SubdomainScore, fmt.Sprintf("Excessive subdomain depth (%d)", depth))
		}
		if reason := homograph(host); reason != "" {
			flag("homograph", a.cfg.HomographScore, reason)
		}
		for _, tld := range a.cfg.TLDBlacklist {
			if strings.EqualFold(labels[len(labels)-1], strings.TrimPrefix(tld, ".")) {
				flag("tld", a.cfg.TLDScore, fmt.Sprintf("Suspicious top-level domain: .%s", labels[len(labels)-1]))
				break
			}
		}
	}

	for _, s := range a.cfg.Shorteners {
		if host == s || strings.HasSuffix(host, "."+s) {
			flag("shortener", a.cfg.ShortenerScore, fmt.Sprintf("URL shortener hides destination: %s", host))
			break
		}
	}

	if explicitScheme && !strings.EqualFold(u.Scheme, "https") {
		flag("insecure", a.cfg.InsecureScore, fmt.Sprintf("Insecure link scheme: %s", strings.ToLower(u.Scheme)))
	}

	if ext := strings.ToLower(path.Ext(u.Path)); ext != "" {
		for _, bad := range a.cfg.ExecutableExtensions {
			if ext == strings.ToLower(bad) {
				flag("executable", a.cfg.ExecutableScore, fmt.Sprintf("Link to executable file (%s)", ext))
				break
			}
		}
	}

	query := u.Query()
	var params []string
	for _, p := range a.cfg.SuspiciousParams {
		if query.Has(p) {
			params = append(params, p)
		}
	}
	if len(params) > 0 {
		flag("params", a.cfg.SuspiciousParamScore, fmt.Sprintf("Suspicious query parameters: %s", strings.Join(params, ", ")))
	}

	if encodedBlob(u) {
		flag("base64", a.cfg.Base64Score, "Encoded blob in URL")
	}
}

// encodedBlob looks for base64-like runs in the query or a single path segment.
func encodedBlob(u *url.URL) bool {
	if base64Blob.MatchString(u.RawQuery) {
		return true
	}
	for _, seg := range strings.Split(u.Path, "/") {
		if base64Blob.MatchString(seg) {
			return true
		}
	}
	return false
}

// homograph describes a host that uses non-Latin or punycode labels.
func homograph(host string) string {
	for _, r := range host {
		if r > unicode.MaxASCII {
			ascii, err := idna.ToASCII(host)
			if err != nil {
				return "Non-Latin characters in domain"
			}
			return fmt.Sprintf("Non-Latin characters in domain (%s)", ascii)
		}
	}
	for _, label := range strings.Split(host, ".") {
		if strings.HasPrefix(label, "xn--") {
			if uni, err := idna.ToUnicode(host); err == nil {
				return fmt.Sprintf("Punycode domain may be a homograph: %s", uni)
			}
			return "Punycode domain may be a homograph"
		}
	}
	return ""
}
