package sagemaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssagemaker "github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	created   []*awssagemaker.CreateProcessingJobInput
	createErr error

	// statuses is consumed one per DescribeProcessingJob call; the last
	// entry repeats once exhausted.
	statuses      []types.ProcessingJobStatus
	failureReason string
	describeCalls int
}

func (f *fakeAPI) CreateProcessingJob(ctx context.Context, params *awssagemaker.CreateProcessingJobInput, optFns ...func(*awssagemaker.Options)) (*awssagemaker.CreateProcessingJobOutput, error) {
	f.created = append(f.created, params)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &awssagemaker.CreateProcessingJobOutput{}, nil
}

func (f *fakeAPI) DescribeProcessingJob(ctx context.Context, params *awssagemaker.DescribeProcessingJobInput, optFns ...func(*awssagemaker.Options)) (*awssagemaker.DescribeProcessingJobOutput, error) {
	idx := f.describeCalls
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	f.describeCalls++
	out := &awssagemaker.DescribeProcessingJobOutput{
		ProcessingJobName:   params.ProcessingJobName,
		ProcessingJobStatus: f.statuses[idx],
	}
	if f.failureReason != "" {
		out.FailureReason = aws.String(f.failureReason)
	}
	return out, nil
}

func testJob() Job {
	return Job{
		Name:          "summarizer-2020-05-01-12-00-00-abcd1234",
		RoleARN:       "arn:aws:iam::123456789012:role/processing",
		ImageURI:      "123456789012.dkr.ecr.us-east-1.amazonaws.com/image:1.0.0",
		InstanceType:  "ml.c5.2xlarge",
		InstanceCount: 1,
		VolumeSizeGB:  30,
		Inputs: []Input{
			{Name: "config", S3URI: "s3://bucket/out/_config", LocalPath: "/opt/ml/processing/input/config"},
			{Name: "data", S3URI: "s3://bucket/in/docs.csv", LocalPath: "/opt/ml/processing/input/data"},
		},
		Outputs: []Output{
			{Name: "output-1", S3URI: "s3://bucket/out", LocalPath: "/opt/ml/processing/output"},
		},
	}
}

func TestRunWithoutWaitReturnsAfterSubmission(t *testing.T) {
	api := &fakeAPI{}
	client := NewFromAPI(api)

	require.NoError(t, client.Run(context.Background(), testJob(), false))
	assert.Len(t, api.created, 1)
	assert.Zero(t, api.describeCalls)
}

func TestRunWaitsForCompletion(t *testing.T) {
	api := &fakeAPI{statuses: []types.ProcessingJobStatus{
		types.ProcessingJobStatusInProgress,
		types.ProcessingJobStatusInProgress,
		types.ProcessingJobStatusCompleted,
	}}
	client := NewFromAPI(api).WithPollInterval(time.Millisecond)

	require.NoError(t, client.Run(context.Background(), testJob(), true))
	assert.Equal(t, 3, api.describeCalls)
}

func TestRunReportsFailedJob(t *testing.T) {
	api := &fakeAPI{
		statuses:      []types.ProcessingJobStatus{types.ProcessingJobStatusFailed},
		failureReason: "AlgorithmError: container exited with code 1",
	}
	client := NewFromAPI(api).WithPollInterval(time.Millisecond)

	err := client.Run(context.Background(), testJob(), true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrJobFailed))
	assert.Contains(t, err.Error(), "AlgorithmError: container exited with code 1")
}

func TestRunReportsStoppedJob(t *testing.T) {
	api := &fakeAPI{statuses: []types.ProcessingJobStatus{types.ProcessingJobStatusStopped}}
	client := NewFromAPI(api).WithPollInterval(time.Millisecond)

	err := client.Run(context.Background(), testJob(), true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrJobFailed))
}

func TestRunSubmissionErrorIsNotJobFailure(t *testing.T) {
	api := &fakeAPI{createErr: errors.New("AccessDeniedException")}
	client := NewFromAPI(api)

	err := client.Run(context.Background(), testJob(), true)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrJobFailed))
}

func TestRunWaitHonorsContextCancellation(t *testing.T) {
	api := &fakeAPI{statuses: []types.ProcessingJobStatus{types.ProcessingJobStatusInProgress}}
	client := NewFromAPI(api).WithPollInterval(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.Run(ctx, testJob(), true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestBuildCreateProcessingJobInput(t *testing.T) {
	job := testJob()
	job.MaxRuntimeSeconds = 3600
	job.Tags = map[string]string{"team": "analytics"}
	job.Subnets = []string{"subnet-1"}
	job.SecurityGroupIDs = []string{"sg-1"}

	input := buildCreateProcessingJobInput(job)

	assert.Equal(t, job.Name, aws.ToString(input.ProcessingJobName))
	assert.Equal(t, job.RoleARN, aws.ToString(input.RoleArn))
	assert.Equal(t, job.ImageURI, aws.ToString(input.AppSpecification.ImageUri))

	cluster := input.ProcessingResources.ClusterConfig
	assert.Equal(t, int32(1), aws.ToInt32(cluster.InstanceCount))
	assert.Equal(t, types.ProcessingInstanceType("ml.c5.2xlarge"), cluster.InstanceType)
	assert.Equal(t, int32(30), aws.ToInt32(cluster.VolumeSizeInGB))

	require.Len(t, input.ProcessingInputs, 2)
	configInput := input.ProcessingInputs[0]
	assert.Equal(t, "config", aws.ToString(configInput.InputName))
	assert.Equal(t, "s3://bucket/out/_config", aws.ToString(configInput.S3Input.S3Uri))
	assert.Equal(t, "/opt/ml/processing/input/config", aws.ToString(configInput.S3Input.LocalPath))
	assert.Equal(t, types.ProcessingS3DataTypeS3Prefix, configInput.S3Input.S3DataType)
	assert.Equal(t, types.ProcessingS3InputModeFile, configInput.S3Input.S3InputMode)
	assert.Equal(t, types.ProcessingS3DataDistributionTypeFullyreplicated, configInput.S3Input.S3DataDistributionType)
	assert.Equal(t, types.ProcessingS3CompressionTypeNone, configInput.S3Input.S3CompressionType)

	require.Len(t, input.ProcessingOutputConfig.Outputs, 1)
	output := input.ProcessingOutputConfig.Outputs[0]
	assert.Equal(t, "output-1", aws.ToString(output.OutputName))
	assert.Equal(t, "s3://bucket/out", aws.ToString(output.S3Output.S3Uri))
	assert.Equal(t, types.ProcessingS3UploadModeEndOfJob, output.S3Output.S3UploadMode)

	require.NotNil(t, input.StoppingCondition)
	assert.Equal(t, int32(3600), aws.ToInt32(input.StoppingCondition.MaxRuntimeInSeconds))

	require.NotNil(t, input.NetworkConfig)
	assert.Equal(t, []string{"subnet-1"}, input.NetworkConfig.VpcConfig.Subnets)
	assert.Equal(t, []string{"sg-1"}, input.NetworkConfig.VpcConfig.SecurityGroupIds)

	require.Len(t, input.Tags, 1)
	assert.Equal(t, "team", aws.ToString(input.Tags[0].Key))
	assert.Equal(t, "analytics", aws.ToString(input.Tags[0].Value))
}

func TestBuildCreateProcessingJobInputOmitsOptionalBlocks(t *testing.T) {
	input := buildCreateProcessingJobInput(testJob())
	assert.Nil(t, input.StoppingCondition)
	assert.Nil(t, input.NetworkConfig)
	assert.Empty(t, input.Tags)
}
