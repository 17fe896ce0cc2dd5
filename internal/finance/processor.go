package finance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"smjsindustry/internal/sagemaker"
	"smjsindustry/internal/storage"
)

// ProcessorParams configures a processing job facade.
type ProcessorParams struct {
	// Role is the IAM role ARN the job executes under.
	Role string
	// Region selects the deployment region and therefore the container image.
	Region string

	InstanceType  string
	InstanceCount int32
	// VolumeSizeGB defaults to 30.
	VolumeSizeGB int32
	// MaxRuntimeSeconds optionally bounds the job; zero leaves the service
	// default in place.
	MaxRuntimeSeconds int32

	Tags             map[string]string
	Subnets          []string
	SecurityGroupIDs []string

	Runner sagemaker.Runner
	Stager storage.Stager
}

// processor carries the state shared by all job facades. One facade may
// submit many jobs; each submission owns its config artifact and JobRequest
// for the duration of the call only.
type processor struct {
	role              string
	imageURI          string
	instanceType      string
	instanceCount     int32
	volumeSizeGB      int32
	maxRuntimeSeconds int32
	tags              map[string]string
	subnets           []string
	securityGroupIDs  []string
	baseJobName       string

	runner sagemaker.Runner
	stager storage.Stager
}

func newProcessor(baseJobName string, params ProcessorParams) (*processor, error) {
	if params.Role == "" {
		return nil, fmt.Errorf("processor requires a role ARN")
	}
	if params.Region == "" {
		return nil, fmt.Errorf("processor requires a region")
	}
	if params.InstanceType == "" {
		return nil, fmt.Errorf("processor requires an instance type")
	}
	if params.Runner == nil {
		return nil, fmt.Errorf("processor requires a job runner")
	}
	if params.Stager == nil {
		return nil, fmt.Errorf("processor requires a stager")
	}

	imageURI, err := RetrieveImage(params.Region)
	if err != nil {
		return nil, err
	}

	if params.InstanceCount <= 0 {
		params.InstanceCount = 1
	}
	if params.VolumeSizeGB <= 0 {
		params.VolumeSizeGB = defaultVolumeSizeGB
	}

	return &processor{
		role:              params.Role,
		imageURI:          imageURI,
		instanceType:      params.InstanceType,
		instanceCount:     params.InstanceCount,
		volumeSizeGB:      params.VolumeSizeGB,
		maxRuntimeSeconds: params.MaxRuntimeSeconds,
		tags:              params.Tags,
		subnets:           params.Subnets,
		securityGroupIDs:  params.SecurityGroupIDs,
		baseJobName:       baseJobName,
		runner:            params.Runner,
		stager:            params.Stager,
	}, nil
}

func (p *processor) newJobName() string {
	suffix := strings.SplitN(uuid.New().String(), "-", 2)[0]
	return fmt.Sprintf("%s-%s-%s", p.baseJobName, time.Now().UTC().Format("2006-01-02-15-04-05"), suffix)
}

// submit serializes the job config, stages it (and the data input, when
// present) under the output location, and runs the job. The temporary config
// directory is released on every exit path.
func (p *processor) submit(ctx context.Context, jobConfig map[string]interface{}, dataPath, outputPath string, wait bool) (string, error) {
	tmpDir, err := os.MkdirTemp("", "smjs-job-config-")
	if err != nil {
		return "", fmt.Errorf("failed to create temp config dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	configData, err := json.Marshal(jobConfig)
	if err != nil {
		return "", fmt.Errorf("failed to serialize job config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, configFileName), configData, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", configFileName, err)
	}

	outputPath = strings.TrimSuffix(outputPath, "/")

	configURI, err := p.stager.UploadDir(ctx, tmpDir, outputPath+"/"+configPrefix)
	if err != nil {
		return "", fmt.Errorf("failed to stage job config: %w", err)
	}

	inputs := []sagemaker.Input{{
		Name:      configInputName,
		S3URI:     configURI,
		LocalPath: processingConfigPath,
	}}

	if dataPath != "" {
		dataURI, err := p.ensureRemoteInput(ctx, dataPath, outputPath+"/"+dataPrefix)
		if err != nil {
			return "", err
		}
		inputs = append(inputs, sagemaker.Input{
			Name:      dataInputName,
			S3URI:     dataURI,
			LocalPath: processingDataPath,
		})
	}

	job := sagemaker.Job{
		Name:              p.newJobName(),
		RoleARN:           p.role,
		ImageURI:          p.imageURI,
		InstanceType:      p.instanceType,
		InstanceCount:     p.instanceCount,
		VolumeSizeGB:      p.volumeSizeGB,
		MaxRuntimeSeconds: p.maxRuntimeSeconds,
		Inputs:            inputs,
		Outputs: []sagemaker.Output{{
			Name:      defaultOutputName,
			S3URI:     outputPath,
			LocalPath: processingOutputPath,
		}},
		Tags:             p.tags,
		Subnets:          p.subnets,
		SecurityGroupIDs: p.securityGroupIDs,
	}

	if err := p.runner.Run(ctx, job, wait); err != nil {
		return job.Name, err
	}
	return job.Name, nil
}

// ensureRemoteInput returns dataPath unchanged when it is already remote;
// otherwise the local file or directory is uploaded under basePrefix and the
// staged URI returned. A missing local path fails before any job submission.
func (p *processor) ensureRemoteInput(ctx context.Context, dataPath, basePrefix string) (string, error) {
	if storage.IsS3Path(dataPath) {
		return dataPath, nil
	}

	info, err := os.Stat(dataPath)
	if err != nil {
		return "", fmt.Errorf("input path %s: %w", dataPath, err)
	}

	prefix := basePrefix + "/" + strings.ReplaceAll(uuid.New().String(), "-", "")
	if info.IsDir() {
		return p.stager.UploadDir(ctx, dataPath, prefix)
	}
	return p.stager.UploadFile(ctx, dataPath, prefix+"/"+filepath.Base(dataPath))
}

func validateS3OutputPath(outputPath string) error {
	if !storage.IsS3Path(outputPath) {
		return fmt.Errorf("output path %s must be an s3:// URI", outputPath)
	}
	return nil
}

// Summarizer submits document summarization jobs.
type Summarizer struct {
	*processor
}

func NewSummarizer(params ProcessorParams) (*Summarizer, error) {
	base, err := newProcessor(summarizerJobName, params)
	if err != nil {
		return nil, err
	}
	return &Summarizer{processor: base}, nil
}

// SummarizeRequest names the input data, the output location and the columns
// the container reads and writes.
type SummarizeRequest struct {
	TextColumnName string
	// InputFilePath is an s3:// URI or a local file uploaded during staging.
	InputFilePath string
	// OutputPath is the s3:// location the job writes results under.
	OutputPath     string
	OutputFileName string
	// NewSummaryColumnName defaults to "summary".
	NewSummaryColumnName string
	// Wait blocks until the job reaches a terminal state.
	Wait bool
}

// Summarize stages the config and data and submits the summarization job,
// returning the job name.
func (s *Summarizer) Summarize(ctx context.Context, cfg SummarizerConfig, req SummarizeRequest) (string, error) {
	if err := validateS3OutputPath(req.OutputPath); err != nil {
		return "", err
	}
	if req.NewSummaryColumnName == "" {
		req.NewSummaryColumnName = "summary"
	}

	jobConfig := cfg.Config()
	jobConfig["text_column_name"] = req.TextColumnName
	jobConfig["new_summary_column_name"] = req.NewSummaryColumnName
	jobConfig["output_file_name"] = req.OutputFileName

	slog.Info("starting summarization job", "output", req.OutputPath)
	return s.submit(ctx, jobConfig, req.InputFilePath, req.OutputPath, req.Wait)
}

// NLPScorer submits lexicon scoring jobs.
type NLPScorer struct {
	*processor
}

func NewNLPScorer(params ProcessorParams) (*NLPScorer, error) {
	base, err := newProcessor(nlpScoreJobName, params)
	if err != nil {
		return nil, err
	}
	return &NLPScorer{processor: base}, nil
}

// ScoreRequest mirrors SummarizeRequest for the scoring job.
type ScoreRequest struct {
	TextColumnName string
	InputFilePath  string
	OutputPath     string
	OutputFileName string
	Wait           bool
}

// Calculate stages the config and data and submits the scoring job,
// returning the job name.
func (s *NLPScorer) Calculate(ctx context.Context, cfg *NLPScorerConfig, req ScoreRequest) (string, error) {
	if err := validateS3OutputPath(req.OutputPath); err != nil {
		return "", err
	}

	jobConfig := cfg.Config()
	jobConfig["text_column_name"] = req.TextColumnName
	jobConfig["output_file_name"] = req.OutputFileName

	slog.Info("starting NLP scoring job", "output", req.OutputPath)
	return s.submit(ctx, jobConfig, req.InputFilePath, req.OutputPath, req.Wait)
}

// SECXMLFilingParser submits filing parse jobs over previously retrieved raw
// filings.
type SECXMLFilingParser struct {
	*processor
}

func NewSECXMLFilingParser(params ProcessorParams) (*SECXMLFilingParser, error) {
	base, err := newProcessor(secFilingParserJobName, params)
	if err != nil {
		return nil, err
	}
	return &SECXMLFilingParser{processor: base}, nil
}

// Parse stages the raw filings and submits the parser job, returning the job
// name.
func (s *SECXMLFilingParser) Parse(ctx context.Context, inputDataPath, outputPath string, wait bool) (string, error) {
	if err := validateS3OutputPath(outputPath); err != nil {
		return "", err
	}

	jobConfig := map[string]interface{}{"processor_type": secXMLFilingParserProcessor}

	slog.Info("starting SEC filing parse job", "output", outputPath)
	return s.submit(ctx, jobConfig, inputDataPath, outputPath, wait)
}

// DataLoader submits SEC filing retrieval jobs. The upstream retrieval does
// not parallelize, so the instance count is always forced to one.
type DataLoader struct {
	*processor

	localDatasetPath    string
	fallbackDatasetPath string
}

// DataLoaderParams extends ProcessorParams with the optional fixture paths.
// LocalDatasetPath bypasses the remote job entirely; FallbackDatasetPath is
// substituted exactly once when the remote job fails.
type DataLoaderParams struct {
	ProcessorParams

	LocalDatasetPath    string
	FallbackDatasetPath string
}

func NewDataLoader(params DataLoaderParams) (*DataLoader, error) {
	if params.InstanceCount > 1 {
		slog.Info("sec filing retrieval only supports a single instance; overriding instance count",
			"requested", params.InstanceCount)
		params.InstanceCount = 1
	}

	base, err := newProcessor(secFilingRetrievalJobName, params.ProcessorParams)
	if err != nil {
		return nil, err
	}
	return &DataLoader{
		processor:           base,
		localDatasetPath:    params.LocalDatasetPath,
		fallbackDatasetPath: params.FallbackDatasetPath,
	}, nil
}

// LoadRequest names the retrieval output location.
type LoadRequest struct {
	// OutputPath is an s3:// location, or a file:// / bare path when a local
	// fixture dataset is configured.
	OutputPath     string
	OutputFileName string
	Wait           bool
}

// DataLoadResult reports how a retrieval run concluded.
type DataLoadResult struct {
	// JobName is empty when the fixture bypass skipped the remote job.
	JobName string
	// UsedFixture is set when a fixture dataset was delivered instead of
	// remote job output.
	UsedFixture bool
	// OutputURI points at the delivered dataset.
	OutputURI string
}

// Load stages the retrieval config and submits the job. With a local dataset
// fixture configured the remote job is skipped; with a fallback fixture
// configured a failed remote job is downgraded to a fixture substitution
// instead of an error.
func (d *DataLoader) Load(ctx context.Context, cfg *EDGARDataSetConfig, req LoadRequest) (*DataLoadResult, error) {
	_, isLocal := storage.LocalPath(req.OutputPath)
	if !storage.IsS3Path(req.OutputPath) && !(d.localDatasetPath != "" && isLocal) {
		return nil, fmt.Errorf("output path %s must be an s3:// URI", req.OutputPath)
	}

	if d.localDatasetPath != "" {
		slog.Info("local dataset fixture configured; skipping remote retrieval job",
			"fixture", d.localDatasetPath)
		uri, err := d.stageFixture(ctx, d.localDatasetPath, req.OutputPath, req.OutputFileName)
		if err != nil {
			return nil, err
		}
		return &DataLoadResult{UsedFixture: true, OutputURI: uri}, nil
	}

	jobConfig := cfg.Config()
	jobConfig["output_file_name"] = req.OutputFileName

	slog.Info("starting SEC filing retrieval job", "output", req.OutputPath)
	jobName, err := d.submit(ctx, jobConfig, "", req.OutputPath, req.Wait)
	if err != nil {
		if errors.Is(err, sagemaker.ErrJobFailed) && d.fallbackDatasetPath != "" {
			slog.Warn("retrieval job failed; substituting fallback dataset",
				"job", jobName, "fixture", d.fallbackDatasetPath, "error", err)
			uri, fixtureErr := d.stageFixture(ctx, d.fallbackDatasetPath, req.OutputPath, req.OutputFileName)
			if fixtureErr != nil {
				return nil, fixtureErr
			}
			return &DataLoadResult{JobName: jobName, UsedFixture: true, OutputURI: uri}, nil
		}
		return nil, err
	}

	return &DataLoadResult{
		JobName:   jobName,
		OutputURI: strings.TrimSuffix(req.OutputPath, "/") + "/" + req.OutputFileName,
	}, nil
}

// stageFixture delivers a fixture dataset to the output destination, either
// through the stager for s3:// outputs or by local copy for file:// outputs.
func (d *DataLoader) stageFixture(ctx context.Context, fixturePath, outputURI, outputFileName string) (string, error) {
	if storage.IsS3Path(outputURI) {
		dest := strings.TrimSuffix(outputURI, "/") + "/" + outputFileName
		uri, err := d.stager.UploadFile(ctx, fixturePath, dest)
		if err != nil {
			return "", fmt.Errorf("failed to upload fixture dataset: %w", err)
		}
		slog.Info("uploaded fixture dataset", "dest", uri)
		return uri, nil
	}

	base, ok := storage.LocalPath(outputURI)
	if !ok {
		return "", fmt.Errorf("fixture output path %s must be an s3:// or file:// URI", outputURI)
	}
	uri, err := storage.NewLocalStager().UploadFile(ctx, fixturePath, filepath.Join(base, outputFileName))
	if err != nil {
		return "", fmt.Errorf("failed to copy fixture dataset: %w", err)
	}
	slog.Info("copied fixture dataset", "dest", uri)
	return uri, nil
}
