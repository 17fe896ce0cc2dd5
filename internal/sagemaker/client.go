package sagemaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	awssagemaker "github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
)

// ErrJobFailed marks a processing job that reached a failed or stopped
// terminal state. Callers distinguish it with errors.Is to apply fallback
// policies.
var ErrJobFailed = errors.New("processing job failed")

// Input is a named job input staged in object storage and mounted into the
// container at LocalPath.
type Input struct {
	Name      string
	S3URI     string
	LocalPath string
}

// Output is a named job output written by the container at LocalPath and
// uploaded to S3URI when the job ends.
type Output struct {
	Name      string
	S3URI     string
	LocalPath string
}

// Job describes one processing job submission.
type Job struct {
	Name              string
	RoleARN           string
	ImageURI          string
	InstanceType      string
	InstanceCount     int32
	VolumeSizeGB      int32
	MaxRuntimeSeconds int32
	Inputs            []Input
	Outputs           []Output
	Tags              map[string]string
	Subnets           []string
	SecurityGroupIDs  []string
}

// Runner submits processing jobs. When wait is true it blocks until the job
// reaches a terminal state and returns ErrJobFailed for failed or stopped
// jobs.
type Runner interface {
	Run(ctx context.Context, job Job, wait bool) error
}

// API is the subset of the SageMaker service client the wrapper uses.
type API interface {
	CreateProcessingJob(ctx context.Context, params *awssagemaker.CreateProcessingJobInput, optFns ...func(*awssagemaker.Options)) (*awssagemaker.CreateProcessingJobOutput, error)
	DescribeProcessingJob(ctx context.Context, params *awssagemaker.DescribeProcessingJobInput, optFns ...func(*awssagemaker.Options)) (*awssagemaker.DescribeProcessingJobOutput, error)
}

type Client struct {
	api          API
	pollInterval time.Duration
}

var _ Runner = (*Client)(nil)

const defaultPollInterval = 30 * time.Second

// NewClient builds a client against the real SageMaker service in the given
// region, using the default AWS credential chain.
func NewClient(ctx context.Context, region string) (*Client, error) {
	opts := []func(*aws_config.LoadOptions) error{}
	if region != "" {
		opts = append(opts, aws_config.WithRegion(region))
	}

	awsCfg, err := aws_config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewFromAPI(awssagemaker.NewFromConfig(awsCfg)), nil
}

// NewFromAPI wraps an existing service client (or a fake in tests).
func NewFromAPI(api API) *Client {
	return &Client{api: api, pollInterval: defaultPollInterval}
}

// WithPollInterval overrides how often the client polls a running job.
func (c *Client) WithPollInterval(interval time.Duration) *Client {
	c.pollInterval = interval
	return c
}

func (c *Client) Run(ctx context.Context, job Job, wait bool) error {
	input := buildCreateProcessingJobInput(job)

	if _, err := c.api.CreateProcessingJob(ctx, input); err != nil {
		return fmt.Errorf("failed to create processing job %s: %w", job.Name, err)
	}
	slog.Info("processing job submitted", "job", job.Name, "image", job.ImageURI)

	if !wait {
		return nil
	}
	return c.waitForJob(ctx, job.Name)
}

// waitForJob polls until the job reaches a terminal status. The wait is
// bounded only by the job's own stopping condition and the caller's context.
func (c *Client) waitForJob(ctx context.Context, jobName string) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		out, err := c.api.DescribeProcessingJob(ctx, &awssagemaker.DescribeProcessingJobInput{
			ProcessingJobName: aws.String(jobName),
		})
		if err != nil {
			return fmt.Errorf("failed to describe processing job %s: %w", jobName, err)
		}

		switch out.ProcessingJobStatus {
		case types.ProcessingJobStatusCompleted:
			slog.Info("processing job completed", "job", jobName)
			return nil
		case types.ProcessingJobStatusFailed:
			return fmt.Errorf("%w: job %s: %s", ErrJobFailed, jobName, aws.ToString(out.FailureReason))
		case types.ProcessingJobStatusStopped:
			return fmt.Errorf("%w: job %s was stopped", ErrJobFailed, jobName)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for processing job %s canceled: %w", jobName, ctx.Err())
		case <-ticker.C:
		}
	}
}

func buildCreateProcessingJobInput(job Job) *awssagemaker.CreateProcessingJobInput {
	inputs := make([]types.ProcessingInput, 0, len(job.Inputs))
	for _, in := range job.Inputs {
		inputs = append(inputs, types.ProcessingInput{
			InputName: aws.String(in.Name),
			S3Input: &types.ProcessingS3Input{
				S3Uri:                  aws.String(in.S3URI),
				LocalPath:              aws.String(in.LocalPath),
				S3DataType:             types.ProcessingS3DataTypeS3Prefix,
				S3InputMode:            types.ProcessingS3InputModeFile,
				S3DataDistributionType: types.ProcessingS3DataDistributionTypeFullyreplicated,
				S3CompressionType:      types.ProcessingS3CompressionTypeNone,
			},
		})
	}

	outputs := make([]types.ProcessingOutput, 0, len(job.Outputs))
	for _, out := range job.Outputs {
		outputs = append(outputs, types.ProcessingOutput{
			OutputName: aws.String(out.Name),
			S3Output: &types.ProcessingS3Output{
				S3Uri:        aws.String(out.S3URI),
				LocalPath:    aws.String(out.LocalPath),
				S3UploadMode: types.ProcessingS3UploadModeEndOfJob,
			},
		})
	}

	input := &awssagemaker.CreateProcessingJobInput{
		ProcessingJobName: aws.String(job.Name),
		RoleArn:           aws.String(job.RoleARN),
		AppSpecification: &types.AppSpecification{
			ImageUri: aws.String(job.ImageURI),
		},
		ProcessingResources: &types.ProcessingResources{
			ClusterConfig: &types.ProcessingClusterConfig{
				InstanceCount:  aws.Int32(job.InstanceCount),
				InstanceType:   types.ProcessingInstanceType(job.InstanceType),
				VolumeSizeInGB: aws.Int32(job.VolumeSizeGB),
			},
		},
		ProcessingInputs: inputs,
		ProcessingOutputConfig: &types.ProcessingOutputConfig{
			Outputs: outputs,
		},
	}

	if job.MaxRuntimeSeconds > 0 {
		input.StoppingCondition = &types.ProcessingStoppingCondition{
			MaxRuntimeInSeconds: aws.Int32(job.MaxRuntimeSeconds),
		}
	}

	if len(job.Subnets) > 0 || len(job.SecurityGroupIDs) > 0 {
		input.NetworkConfig = &types.NetworkConfig{
			VpcConfig: &types.VpcConfig{
				Subnets:          job.Subnets,
				SecurityGroupIds: job.SecurityGroupIDs,
			},
		}
	}

	for key, value := range job.Tags {
		input.Tags = append(input.Tags, types.Tag{
			Key:   aws.String(key),
			Value: aws.String(value),
		})
	}

	return input
}
