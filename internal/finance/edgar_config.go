package finance

import (
	"fmt"
	"regexp"
	"time"

	"smjsindustry/internal/config"
)

var (
	filingDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	contactEmailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
)

// EDGARDataSetParams holds the inputs for the SEC filing retrieval job.
type EDGARDataSetParams struct {
	// TickersOrCiks lists ticker symbols or CIK numbers to retrieve.
	TickersOrCiks []string
	// FormTypes lists filing form types, validated against the supported set.
	FormTypes []string
	// FilingDateStart and FilingDateEnd bound the retrieval window, in
	// YYYY-MM-DD form.
	FilingDateStart string
	FilingDateEnd   string
	// EmailAsUserAgent is the SEC-compliant user agent string. When empty it
	// is resolved through the configured UserAgentSource (environment
	// overrides, then the compiled-in default).
	EmailAsUserAgent string
}

// EDGARDataSetConfig is a validated, immutable configuration for the SEC
// filing retrieval container.
type EDGARDataSetConfig struct {
	params EDGARDataSetParams
}

// EDGAROption adjusts how an EDGARDataSetConfig is constructed.
type EDGAROption func(*edgarOptions)

type edgarOptions struct {
	userAgent config.UserAgentSource
}

// WithUserAgentSource overrides the resolver used for EmailAsUserAgent;
// the default reads the process environment.
func WithUserAgentSource(source config.UserAgentSource) EDGAROption {
	return func(o *edgarOptions) { o.userAgent = source }
}

// NewEDGARDataSetConfig validates params, resolves the user agent, and
// returns the config, or an error naming the violated field.
func NewEDGARDataSetConfig(params EDGARDataSetParams, opts ...EDGAROption) (*EDGARDataSetConfig, error) {
	options := edgarOptions{userAgent: config.DefaultUserAgentSource()}
	for _, opt := range opts {
		opt(&options)
	}

	if len(params.TickersOrCiks) == 0 {
		return nil, fmt.Errorf("EDGARDataSetConfig requires tickers_or_ciks to be a non-empty list of strings")
	}
	for _, ticker := range params.TickersOrCiks {
		if ticker == "" {
			return nil, fmt.Errorf("EDGARDataSetConfig requires tickers_or_ciks to be a non-empty list of strings")
		}
	}

	if len(params.FormTypes) == 0 {
		return nil, fmt.Errorf("EDGARDataSetConfig requires form_types to be a non-empty list of strings")
	}
	for _, formType := range params.FormTypes {
		if formType == "" {
			return nil, fmt.Errorf("EDGARDataSetConfig requires form_types to be a non-empty list of strings")
		}
		if !isSupportedSECForm(formType) {
			return nil, fmt.Errorf("form type %s not supported", formType)
		}
	}

	if err := validateFilingDate("filing_date_start", params.FilingDateStart); err != nil {
		return nil, err
	}
	if err := validateFilingDate("filing_date_end", params.FilingDateEnd); err != nil {
		return nil, err
	}

	userAgent := options.userAgent.Resolve(params.EmailAsUserAgent)
	if userAgent == "" {
		return nil, fmt.Errorf(
			"EDGARDataSetConfig requires email_as_user_agent to be provided or set via the %s environment variable",
			config.SECUserAgentEnv)
	}
	if !contactEmailPattern.MatchString(userAgent) {
		return nil, fmt.Errorf(
			"EDGARDataSetConfig requires email_as_user_agent (the SEC user agent string) to include a valid contact email address")
	}
	params.EmailAsUserAgent = userAgent

	params.TickersOrCiks = append([]string(nil), params.TickersOrCiks...)
	params.FormTypes = append([]string(nil), params.FormTypes...)

	return &EDGARDataSetConfig{params: params}, nil
}

func validateFilingDate(field, value string) error {
	if value == "" {
		return fmt.Errorf("EDGARDataSetConfig requires %s to be a non-empty string", field)
	}
	if !filingDatePattern.MatchString(value) {
		return fmt.Errorf("EDGARDataSetConfig requires %s in the format of 'YYYY-MM-DD'", field)
	}
	if _, err := time.Parse("2006-01-02", value); err != nil {
		return fmt.Errorf("EDGARDataSetConfig requires %s in the format of 'YYYY-MM-DD'", field)
	}
	return nil
}

// EmailAsUserAgent returns the resolved SEC user agent string.
func (c *EDGARDataSetConfig) EmailAsUserAgent() string {
	return c.params.EmailAsUserAgent
}

// Config returns the job config mapping for the config artifact.
func (c *EDGARDataSetConfig) Config() map[string]interface{} {
	return map[string]interface{}{
		"processor_type":      loadDataProcessor,
		"tickers_or_ciks":     append([]string(nil), c.params.TickersOrCiks...),
		"form_types":          append([]string(nil), c.params.FormTypes...),
		"filing_date_start":   c.params.FilingDateStart,
		"filing_date_end":     c.params.FilingDateEnd,
		"email_as_user_agent": c.params.EmailAsUserAgent,
	}
}
