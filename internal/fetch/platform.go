package fetch

import (
	"net/url"
	"strings"

	"github.com/jonathan/applypilot/internal/types"
)

// hostSuffixes maps ATS families to the host names that serve their pages.
var hostSuffixes = []struct {
	family types.ATSFamily
	hosts  []string
}{
	{types.ATSGreenhouse, []string{"greenhouse.io"}},
	{types.ATSLever, []string{"lever.co"}},
	{types.ATSAshby, []string{"ashbyhq.com"}},
	{types.ATSWorkable, []string{"workable.com"}},
	{types.ATSWorkday, []string{"workday.com", "myworkdayjobs.com"}},
}

// DetectATS identifies the applicant tracking system from a posting URL.
func DetectATS(urlStr string) types.ATSFamily {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return types.ATSUnknown
	}
	host := strings.ToLower(parsed.Hostname())
	for _, entry := range hostSuffixes {
		for _, h := range entry.hosts {
			if OnDomain(host, h) {
				return entry.family
			}
		}
	}
	return types.ATSUnknown
}

// OnDomain reports whether host is domain or one of its subdomains.
func OnDomain(host, domain string) bool {
	host = strings.ToLower(host)
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// PlatformContentSelectors returns content selectors optimized for an ATS family.
func PlatformContentSelectors(family types.ATSFamily) []string {
	switch family {
	case types.ATSGreenhouse:
		return []string{
			".job__description.body",    // Primary Greenhouse selector
			".job__description",         // Fallback
			".job-description__content", // Alternative
			"#content",                  // Generic fallback
			".job-post-container",       // Container level
		}
	case types.ATSLever:
		return []string{
			".posting-page",
			".section-wrapper.page-full-width",
			".posting-description",
			".content",
		}
	case types.ATSAshby:
		return []string{
			"._descriptionText_oj0x8_198",
			"[class*='descriptionText']",
			"#overview",
		}
	case types.ATSWorkable:
		return []string{
			"[data-ui='job-description']",
			"section[data-ui='job-details']",
		}
	case types.ATSWorkday:
		return []string{
			"[data-automation-id='jobDescription']",
			".job-description",
		}
	default:
		return JobPostingSelectors()
	}
}

// PlatformNoiseSelectors returns noise exclusion selectors for an ATS family.
func PlatformNoiseSelectors(family types.ATSFamily) []string {
	common := []string{
		// Application forms
		"form",
		"#application-form",
		".application-form",
		".application--container",
		".apply-button-container",
		"[data-testid='application-form']",

		// EEO and legal
		".voluntary-disclosure",
		".eeo-statement",
		".eeo-section",
		".legal-disclosure",
		".self-identification",

		// Cookie and GDPR
		".cookie-banner",
		".cookie-consent",
		".gdpr-notice",
	}

	switch family {
	case types.ATSGreenhouse:
		return append(common,
			".application--wrapper",
			".voluntary-self-id",
			"#usa_self_id_section",
			".post-apply",
		)
	case types.ATSLever:
		return append(common,
			".apply-section",
			".posting-apply",
		)
	case types.ATSWorkday:
		return append(common,
			"[data-automation-id='applyButton']",
		)
	default:
		return common
	}
}
