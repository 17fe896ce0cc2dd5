package finance

// processor_type discriminators written into the job config artifact. The
// container dispatches on this field, so the values are part of the wire
// contract and must not change.
const (
	jaccardSummarizerProcessor  = "jaccard_summarizer"
	kmedoidsSummarizerProcessor = "kmedoids_summarizer"
	nlpScorerProcessor          = "nlp_scorer"
	loadDataProcessor           = "load_data"
	secXMLFilingParserProcessor = "sec_xml_filing_parser"
)

// Base names for processing jobs; a timestamp and random suffix are appended
// per submission.
const (
	summarizerJobName          = "summarizer"
	nlpScoreJobName            = "nlp-scorer"
	secFilingRetrievalJobName  = "sec-filing-retrieval"
	secFilingParserJobName     = "sec-filing-parser"
)

// Mount points inside the processing container.
const (
	processingConfigPath = "/opt/ml/processing/input/config"
	processingDataPath   = "/opt/ml/processing/input/data"
	processingOutputPath = "/opt/ml/processing/output"
)

const (
	configFileName    = "job_config.json"
	configInputName   = "config"
	dataInputName     = "data"
	defaultOutputName = "output-1"

	configPrefix = "_config"
	dataPrefix   = "_data"
)

const defaultVolumeSizeGB = 30

// Initialization strategies accepted by the k-medoids summarizer container.
var kmedoidsInitValues = []string{"random", "heuristic", "k-medoids++", "build"}

// SEC EDGAR filing form types the retrieval container knows how to download.
var supportedSECForms = []string{
	"10-K", "10-KSB", "10-K405", "10-KT",
	"10-Q", "10-QSB", "10-QT",
	"8-K", "20-F", "40-F", "6-K",
	"S-1", "S-3ASR", "F-1", "F-3ASR",
	"DEF 14A", "DEFM14A",
	"SC 13D", "SC 13G",
	"485BPOS", "497", "497K",
	"N-CSR", "N-1A", "N-2",
	"ARS",
}

func isSupportedSECForm(formType string) bool {
	for _, form := range supportedSECForms {
		if form == formType {
			return true
		}
	}
	return false
}
