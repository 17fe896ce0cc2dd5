package finance

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
)

const (
	repository            = "smjsindustry-finance"
	containerImageVersion = "1.0.0"
)

//go:embed image_uri_config.json
var imageURIConfigData []byte

// loadImageURIConfig parses the bundled region to ECR account table once per
// process.
var loadImageURIConfig = sync.OnceValues(func() (map[string]string, error) {
	var table map[string]string
	if err := json.Unmarshal(imageURIConfigData, &table); err != nil {
		return nil, fmt.Errorf("invalid image uri config: %w", err)
	}
	return table, nil
})

// RetrieveImage returns the fully qualified ECR image URI for the processing
// container in the given region.
func RetrieveImage(region string) (string, error) {
	table, err := loadImageURIConfig()
	if err != nil {
		return "", err
	}
	accountID, ok := table[region]
	if !ok {
		return "", fmt.Errorf("region %s is not supported in the image config", region)
	}
	return fmt.Sprintf("%s.dkr.ecr.%s.amazonaws.com/%s:%s", accountID, region, repository, containerImageVersion), nil
}
