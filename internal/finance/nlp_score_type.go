package finance

import "fmt"

// Built-in score names understood by the NLP scoring container. Built-in
// names ship with a default lexicon, so their word list may be empty; the
// names in noWordListScores are computed scores that take no lexicon at all.
const (
	ScorePositive    = "positive"
	ScoreNegative    = "negative"
	ScoreCertainty   = "certainty"
	ScoreUncertainty = "uncertainty"
	ScoreRisk        = "risk"
	ScoreSafe        = "safe"
	ScoreLitigious   = "litigious"
	ScoreFraud       = "fraud"

	ScorePolarity    = "polarity"
	ScoreReadability = "readability"
	ScoreSentiment   = "sentiment"
)

var noWordListScores = []string{ScorePolarity, ScoreReadability, ScoreSentiment}

var defaultScoreTypes = []string{
	ScorePositive, ScoreNegative, ScoreCertainty, ScoreUncertainty,
	ScoreRisk, ScoreSafe, ScoreLitigious, ScoreFraud,
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

// NLPScoreType pairs a score name with the word list used to compute it.
//
// Word list requirements depend on the name: the computed scores (polarity,
// readability, sentiment) must have a nil word list; built-in lexicon scores
// require a non-nil list, which may be empty to use the shipped lexicon
// unchanged; custom names require a non-empty list.
type NLPScoreType struct {
	scoreName string
	wordList  []string
}

// NewNLPScoreType validates the name/word-list pairing and returns the score
// type, or an error naming the requirement that was violated.
func NewNLPScoreType(scoreName string, wordList []string) (NLPScoreType, error) {
	if scoreName == "" {
		return NLPScoreType{}, fmt.Errorf("NLPScoreType requires score_name to be a non-empty string")
	}

	if contains(noWordListScores, scoreName) {
		if wordList != nil {
			return NLPScoreType{}, fmt.Errorf(
				"NLPScoreType with score_name %s requires its word_list argument to be nil", scoreName)
		}
		return NLPScoreType{scoreName: scoreName}, nil
	}

	if wordList == nil {
		return NLPScoreType{}, fmt.Errorf(
			"NLPScoreType with score_name %s requires its word_list argument to be a list", scoreName)
	}

	if !contains(defaultScoreTypes, scoreName) && len(wordList) == 0 {
		return NLPScoreType{}, fmt.Errorf(
			"NLPScoreType with custom score_name %s requires its word_list argument to be a non-empty list", scoreName)
	}

	for _, word := range wordList {
		if word == "" {
			return NLPScoreType{}, fmt.Errorf("word_list argument must contain only non-empty strings")
		}
	}

	return NLPScoreType{
		scoreName: scoreName,
		wordList:  append([]string(nil), wordList...),
	}, nil
}

// ScoreName returns the score label.
func (t NLPScoreType) ScoreName() string { return t.scoreName }

// WordList returns a copy of the word list, nil for computed scores.
func (t NLPScoreType) WordList() []string {
	if t.wordList == nil {
		return nil
	}
	return append([]string(nil), t.wordList...)
}

// NLPScorerConfig is a validated, immutable configuration for the NLP
// scoring container: a mapping of score name to word list.
type NLPScorerConfig struct {
	scoreTypes map[string][]string
}

// NewNLPScorerConfig builds a scorer config from one or more score types.
// Duplicate score names collapse, the last occurrence winning.
func NewNLPScorerConfig(scoreTypes ...NLPScoreType) (*NLPScorerConfig, error) {
	if len(scoreTypes) == 0 {
		return nil, fmt.Errorf("NLPScorerConfig requires at least one NLPScoreType")
	}

	types := make(map[string][]string, len(scoreTypes))
	for _, scoreType := range scoreTypes {
		if scoreType.scoreName == "" {
			return nil, fmt.Errorf("NLPScorerConfig requires every score type to be constructed with NewNLPScoreType")
		}
		types[scoreType.scoreName] = scoreType.wordList
	}

	return &NLPScorerConfig{scoreTypes: types}, nil
}

// Config returns the job config mapping for the config artifact.
func (c *NLPScorerConfig) Config() map[string]interface{} {
	scoreTypes := make(map[string]interface{}, len(c.scoreTypes))
	for name, words := range c.scoreTypes {
		if words == nil {
			scoreTypes[name] = nil
			continue
		}
		scoreTypes[name] = append([]string(nil), words...)
	}
	return map[string]interface{}{
		"processor_type": nlpScorerProcessor,
		"score_types":    scoreTypes,
	}
}
