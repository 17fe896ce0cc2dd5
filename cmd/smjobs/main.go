package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"gopkg.in/yaml.v2"

	"smjsindustry/internal/config"
	"smjsindustry/internal/finance"
	"smjsindustry/internal/sagemaker"
	"smjsindustry/internal/storage"
)

// jobFile is the YAML description of one processing job submission.
type jobFile struct {
	Role              string            `yaml:"role"`
	Region            string            `yaml:"region"`
	InstanceType      string            `yaml:"instance_type"`
	InstanceCount     int32             `yaml:"instance_count"`
	VolumeSizeGB      int32             `yaml:"volume_size_gb"`
	MaxRuntimeSeconds int32             `yaml:"max_runtime_seconds"`
	Tags              map[string]string `yaml:"tags"`

	TextColumnName       string `yaml:"text_column_name"`
	NewSummaryColumnName string `yaml:"new_summary_column_name"`
	InputPath            string `yaml:"input_path"`
	OutputPath           string `yaml:"output_path"`
	OutputFileName       string `yaml:"output_file_name"`

	Jaccard  *jaccardSpec  `yaml:"jaccard_summarizer"`
	KMedoids *kmedoidsSpec `yaml:"kmedoids_summarizer"`
	Scores   []scoreSpec   `yaml:"score_types"`
	EDGAR    *edgarSpec    `yaml:"edgar_dataset"`
}

type jaccardSpec struct {
	SummarySize       int      `yaml:"summary_size"`
	SummaryPercentage float64  `yaml:"summary_percentage"`
	MaxTokens         int      `yaml:"max_tokens"`
	Cutoff            float64  `yaml:"cutoff"`
	Vocabulary        []string `yaml:"vocabulary"`
}

type kmedoidsSpec struct {
	SummarySize int     `yaml:"summary_size"`
	VectorSize  *int    `yaml:"vector_size"`
	MinCount    *int    `yaml:"min_count"`
	Epochs      *int    `yaml:"epochs"`
	Metric      *string `yaml:"metric"`
	Init        *string `yaml:"init"`
}

type scoreSpec struct {
	Name     string   `yaml:"name"`
	WordList []string `yaml:"word_list"`
}

type edgarSpec struct {
	TickersOrCiks    []string `yaml:"tickers_or_ciks"`
	FormTypes        []string `yaml:"form_types"`
	FilingDateStart  string   `yaml:"filing_date_start"`
	FilingDateEnd    string   `yaml:"filing_date_end"`
	EmailAsUserAgent string   `yaml:"email_as_user_agent"`
}

func main() {
	var (
		envPath  string
		jobType  string
		filePath string
		destDir  string
		noWait   bool
	)
	flag.StringVar(&envPath, "env", "", "path to load env from")
	flag.StringVar(&jobType, "job", "", "job to run: summarize, score, load, parse, fetch")
	flag.StringVar(&filePath, "f", "job.yaml", "path to the job file")
	flag.StringVar(&destDir, "dest", ".", "local directory for fetched results")
	flag.BoolVar(&noWait, "nowait", false, "submit without waiting for completion")
	flag.Parse()

	loadEnvFile(envPath)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	spec, err := readJobFile(filePath)
	if err != nil {
		log.Fatalf("error reading job file: %v", err)
	}
	if spec.Role == "" {
		spec.Role = cfg.SageMakerRoleARN
	}
	if spec.Region == "" {
		spec.Region = cfg.AWSRegion
	}

	ctx := context.Background()

	stager, err := storage.NewS3Stager(storage.S3Config{
		EndpointURL:     cfg.S3EndpointURL,
		Region:          spec.Region,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
	})
	if err != nil {
		log.Fatalf("error creating S3 stager: %v", err)
	}

	if jobType == "fetch" {
		if err := fetchResults(ctx, stager, spec.OutputPath, destDir); err != nil {
			log.Fatalf("error fetching results: %v", err)
		}
		return
	}

	runner, err := sagemaker.NewClient(ctx, spec.Region)
	if err != nil {
		log.Fatalf("error creating SageMaker client: %v", err)
	}

	params := finance.ProcessorParams{
		Role:              spec.Role,
		Region:            spec.Region,
		InstanceType:      spec.InstanceType,
		InstanceCount:     spec.InstanceCount,
		VolumeSizeGB:      spec.VolumeSizeGB,
		MaxRuntimeSeconds: spec.MaxRuntimeSeconds,
		Tags:              spec.Tags,
		Runner:            runner,
		Stager:            stager,
	}
	wait := !noWait

	switch jobType {
	case "summarize":
		summarizerCfg, err := buildSummarizerConfig(spec)
		if err != nil {
			log.Fatalf("invalid summarizer config: %v", err)
		}
		summarizer, err := finance.NewSummarizer(params)
		if err != nil {
			log.Fatalf("error creating summarizer: %v", err)
		}
		jobName, err := summarizer.Summarize(ctx, summarizerCfg, finance.SummarizeRequest{
			TextColumnName:       spec.TextColumnName,
			InputFilePath:        spec.InputPath,
			OutputPath:           spec.OutputPath,
			OutputFileName:       spec.OutputFileName,
			NewSummaryColumnName: spec.NewSummaryColumnName,
			Wait:                 wait,
		})
		if err != nil {
			log.Fatalf("summarization job failed: %v", err)
		}
		log.Printf("summarization job %s submitted", jobName)

	case "score":
		scorerCfg, err := buildScorerConfig(spec)
		if err != nil {
			log.Fatalf("invalid scorer config: %v", err)
		}
		scorer, err := finance.NewNLPScorer(params)
		if err != nil {
			log.Fatalf("error creating NLP scorer: %v", err)
		}
		jobName, err := scorer.Calculate(ctx, scorerCfg, finance.ScoreRequest{
			TextColumnName: spec.TextColumnName,
			InputFilePath:  spec.InputPath,
			OutputPath:     spec.OutputPath,
			OutputFileName: spec.OutputFileName,
			Wait:           wait,
		})
		if err != nil {
			log.Fatalf("NLP scoring job failed: %v", err)
		}
		log.Printf("NLP scoring job %s submitted", jobName)

	case "load":
		if spec.EDGAR == nil {
			log.Fatalf("job file is missing an edgar_dataset section")
		}
		datasetCfg, err := finance.NewEDGARDataSetConfig(finance.EDGARDataSetParams{
			TickersOrCiks:    spec.EDGAR.TickersOrCiks,
			FormTypes:        spec.EDGAR.FormTypes,
			FilingDateStart:  spec.EDGAR.FilingDateStart,
			FilingDateEnd:    spec.EDGAR.FilingDateEnd,
			EmailAsUserAgent: spec.EDGAR.EmailAsUserAgent,
		})
		if err != nil {
			log.Fatalf("invalid EDGAR dataset config: %v", err)
		}
		loader, err := finance.NewDataLoader(finance.DataLoaderParams{
			ProcessorParams:     params,
			LocalDatasetPath:    cfg.DataLoaderLocalDataset,
			FallbackDatasetPath: cfg.DataLoaderFallbackDataset,
		})
		if err != nil {
			log.Fatalf("error creating data loader: %v", err)
		}
		result, err := loader.Load(ctx, datasetCfg, finance.LoadRequest{
			OutputPath:     spec.OutputPath,
			OutputFileName: spec.OutputFileName,
			Wait:           wait,
		})
		if err != nil {
			log.Fatalf("retrieval job failed: %v", err)
		}
		if result.UsedFixture {
			log.Printf("retrieval used a fixture dataset: %s", result.OutputURI)
		} else {
			log.Printf("retrieval job %s wrote %s", result.JobName, result.OutputURI)
		}

	case "parse":
		parser, err := finance.NewSECXMLFilingParser(params)
		if err != nil {
			log.Fatalf("error creating filing parser: %v", err)
		}
		jobName, err := parser.Parse(ctx, spec.InputPath, spec.OutputPath, wait)
		if err != nil {
			log.Fatalf("filing parse job failed: %v", err)
		}
		log.Printf("filing parse job %s submitted", jobName)

	default:
		log.Fatalf("unknown job type %q; expected summarize, score, load, parse or fetch", jobType)
	}
}

func loadEnvFile(envPath string) {
	if envPath == "" {
		log.Printf("no env file specified, using os.Environ only")
		return
	}
	log.Printf("loading env from file %s", envPath)
	if err := godotenv.Load(envPath); err != nil {
		log.Fatalf("error loading .env file '%s': %v", envPath, err)
	}
}

func readJobFile(filePath string) (*jobFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	var spec jobFile
	if err := yaml.UnmarshalStrict(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}
	return &spec, nil
}

func buildSummarizerConfig(spec *jobFile) (finance.SummarizerConfig, error) {
	switch {
	case spec.Jaccard != nil && spec.KMedoids != nil:
		return nil, fmt.Errorf("job file must set exactly one of jaccard_summarizer and kmedoids_summarizer")
	case spec.Jaccard != nil:
		return finance.NewJaccardSummarizerConfig(finance.JaccardSummarizerParams{
			SummarySize:       spec.Jaccard.SummarySize,
			SummaryPercentage: spec.Jaccard.SummaryPercentage,
			MaxTokens:         spec.Jaccard.MaxTokens,
			Cutoff:            spec.Jaccard.Cutoff,
			Vocabulary:        spec.Jaccard.Vocabulary,
		})
	case spec.KMedoids != nil:
		var opts []finance.KMedoidsOption
		if spec.KMedoids.VectorSize != nil {
			opts = append(opts, finance.WithVectorSize(*spec.KMedoids.VectorSize))
		}
		if spec.KMedoids.MinCount != nil {
			opts = append(opts, finance.WithMinCount(*spec.KMedoids.MinCount))
		}
		if spec.KMedoids.Epochs != nil {
			opts = append(opts, finance.WithEpochs(*spec.KMedoids.Epochs))
		}
		if spec.KMedoids.Metric != nil {
			opts = append(opts, finance.WithMetric(*spec.KMedoids.Metric))
		}
		if spec.KMedoids.Init != nil {
			opts = append(opts, finance.WithInit(*spec.KMedoids.Init))
		}
		return finance.NewKMedoidsSummarizerConfig(spec.KMedoids.SummarySize, opts...)
	default:
		return nil, fmt.Errorf("job file must set one of jaccard_summarizer and kmedoids_summarizer")
	}
}

func buildScorerConfig(spec *jobFile) (*finance.NLPScorerConfig, error) {
	if len(spec.Scores) == 0 {
		return nil, fmt.Errorf("job file must list at least one score type")
	}
	scoreTypes := make([]finance.NLPScoreType, 0, len(spec.Scores))
	for _, score := range spec.Scores {
		scoreType, err := finance.NewNLPScoreType(score.Name, score.WordList)
		if err != nil {
			return nil, err
		}
		scoreTypes = append(scoreTypes, scoreType)
	}
	return finance.NewNLPScorerConfig(scoreTypes...)
}

// fetchResults downloads every object under the job output location.
func fetchResults(ctx context.Context, stager storage.Stager, outputPath, destDir string) error {
	if outputPath == "" {
		return fmt.Errorf("job file must set output_path")
	}

	uris, err := stager.List(ctx, outputPath)
	if err != nil {
		return err
	}
	if len(uris) == 0 {
		return fmt.Errorf("no objects found under %s", outputPath)
	}

	bar := progressbar.Default(int64(len(uris)), "downloading")
	for _, uri := range uris {
		name := path.Base(strings.TrimSuffix(uri, "/"))
		if err := stager.Download(ctx, uri, filepath.Join(destDir, name)); err != nil {
			return err
		}
		bar.Add(1) //nolint:errcheck
	}
	log.Printf("downloaded %d objects to %s", len(uris), destDir)
	return nil
}
