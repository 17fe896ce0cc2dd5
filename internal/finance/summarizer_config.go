package finance

import (
	"fmt"
	"sort"
)

// SummarizerConfig is the union of the two summarizer variants accepted by
// Summarizer.Summarize.
type SummarizerConfig interface {
	Config() map[string]interface{}

	summarizerConfig()
}

// JaccardSummarizerParams holds the inputs for the extractive similarity
// summarizer. The four size selectors are mutually exclusive; a zero value
// means "not set", so exactly one of SummarySize, SummaryPercentage,
// MaxTokens and Cutoff must be non-zero.
type JaccardSummarizerParams struct {
	// SummarySize is the number of sentences to keep.
	SummarySize int
	// SummaryPercentage is the fraction of the document to keep.
	SummaryPercentage float64
	// MaxTokens caps the summary at a token count.
	MaxTokens int
	// Cutoff keeps sentences whose similarity score exceeds the value, in [0, 1].
	Cutoff float64
	// Vocabulary optionally restricts scoring to the given terms. If provided
	// it must be non-empty; it is deduplicated and sorted at construction.
	Vocabulary []string
}

// JaccardSummarizerConfig is a validated, immutable configuration for the
// Jaccard summarizer container.
type JaccardSummarizerConfig struct {
	params JaccardSummarizerParams
}

// NewJaccardSummarizerConfig validates params and returns the config, or an
// error naming the violated field. No partially constructed value is ever
// returned.
func NewJaccardSummarizerConfig(params JaccardSummarizerParams) (*JaccardSummarizerConfig, error) {
	selectors := 0
	if params.SummarySize != 0 {
		selectors++
	}
	if params.SummaryPercentage != 0 {
		selectors++
	}
	if params.MaxTokens != 0 {
		selectors++
	}
	if params.Cutoff != 0 {
		selectors++
	}
	if selectors != 1 {
		return nil, fmt.Errorf(
			"only one summary size related argument can be specified, " +
				"choose to specify one from summary_size, summary_percentage, max_tokens, cutoff")
	}

	if params.SummarySize < 0 {
		return nil, fmt.Errorf("JaccardSummarizerConfig requires summary_size to be a non-negative integer")
	}
	if params.Cutoff < 0 || params.Cutoff > 1 {
		return nil, fmt.Errorf("JaccardSummarizerConfig requires cutoff to be in the range of 0 to 1")
	}

	if params.Vocabulary != nil {
		if len(params.Vocabulary) == 0 {
			return nil, fmt.Errorf("JaccardSummarizerConfig requires vocabulary to be a non-empty set of strings")
		}
		seen := make(map[string]struct{}, len(params.Vocabulary))
		for _, word := range params.Vocabulary {
			if word == "" {
				return nil, fmt.Errorf("JaccardSummarizerConfig requires vocabulary to be a non-empty set of strings")
			}
			seen[word] = struct{}{}
		}
		vocabulary := make([]string, 0, len(seen))
		for word := range seen {
			vocabulary = append(vocabulary, word)
		}
		sort.Strings(vocabulary)
		params.Vocabulary = vocabulary
	}

	return &JaccardSummarizerConfig{params: params}, nil
}

// Config returns the job config mapping for the config artifact. Unset size
// selectors serialize as explicit nulls.
func (c *JaccardSummarizerConfig) Config() map[string]interface{} {
	cfg := map[string]interface{}{
		"processor_type":     jaccardSummarizerProcessor,
		"summary_size":       nil,
		"summary_percentage": nil,
		"max_tokens":         nil,
		"cutoff":             nil,
		"vocabulary":         nil,
	}
	if c.params.SummarySize != 0 {
		cfg["summary_size"] = c.params.SummarySize
	}
	if c.params.SummaryPercentage != 0 {
		cfg["summary_percentage"] = c.params.SummaryPercentage
	}
	if c.params.MaxTokens != 0 {
		cfg["max_tokens"] = c.params.MaxTokens
	}
	if c.params.Cutoff != 0 {
		cfg["cutoff"] = c.params.Cutoff
	}
	if c.params.Vocabulary != nil {
		cfg["vocabulary"] = append([]string(nil), c.params.Vocabulary...)
	}
	return cfg
}

func (c *JaccardSummarizerConfig) summarizerConfig() {}

// KMedoidsSummarizerConfig is a validated, immutable configuration for the
// clustering summarizer container.
type KMedoidsSummarizerConfig struct {
	summarySize int
	vectorSize  int
	minCount    int
	epochs      int
	metric      string
	init        string
}

// KMedoidsOption overrides a k-medoids training parameter.
type KMedoidsOption func(*KMedoidsSummarizerConfig)

// WithVectorSize sets the embedding dimensionality (default 100).
func WithVectorSize(vectorSize int) KMedoidsOption {
	return func(c *KMedoidsSummarizerConfig) { c.vectorSize = vectorSize }
}

// WithMinCount sets the minimum term frequency kept in the vocabulary (default 0).
func WithMinCount(minCount int) KMedoidsOption {
	return func(c *KMedoidsSummarizerConfig) { c.minCount = minCount }
}

// WithEpochs sets the number of training epochs (default 60).
func WithEpochs(epochs int) KMedoidsOption {
	return func(c *KMedoidsSummarizerConfig) { c.epochs = epochs }
}

// WithMetric sets the distance metric (default "cosine").
func WithMetric(metric string) KMedoidsOption {
	return func(c *KMedoidsSummarizerConfig) { c.metric = metric }
}

// WithInit sets the medoid initialization strategy (default "random"); must
// be one of "random", "heuristic", "k-medoids++" or "build".
func WithInit(init string) KMedoidsOption {
	return func(c *KMedoidsSummarizerConfig) { c.init = init }
}

// NewKMedoidsSummarizerConfig validates summarySize and any overrides and
// returns the config, or an error naming the violated field.
func NewKMedoidsSummarizerConfig(summarySize int, opts ...KMedoidsOption) (*KMedoidsSummarizerConfig, error) {
	cfg := &KMedoidsSummarizerConfig{
		summarySize: summarySize,
		vectorSize:  100,
		minCount:    0,
		epochs:      60,
		metric:      "cosine",
		init:        "random",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.summarySize < 0 {
		return nil, fmt.Errorf("KMedoidsSummarizerConfig requires summary_size to be a non-negative integer")
	}
	if cfg.epochs < 0 {
		return nil, fmt.Errorf("KMedoidsSummarizerConfig requires epochs to be a positive integer")
	}
	valid := false
	for _, init := range kmedoidsInitValues {
		if init == cfg.init {
			valid = true
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("%s not valid", cfg.init)
	}

	return cfg, nil
}

// Config returns the job config mapping for the config artifact.
func (c *KMedoidsSummarizerConfig) Config() map[string]interface{} {
	return map[string]interface{}{
		"processor_type": kmedoidsSummarizerProcessor,
		"summary_size":   c.summarySize,
		"vector_size":    c.vectorSize,
		"min_count":      c.minCount,
		"epochs":         c.epochs,
		"metric":         c.metric,
		"init":           c.init,
	}
}

func (c *KMedoidsSummarizerConfig) summarizerConfig() {}
