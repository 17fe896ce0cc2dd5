package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Stager moves job artifacts between the local filesystem and the staging
// location referenced by a URI. The S3 implementation backs normal
// operation; the local implementation serves file:// destinations used by
// the offline fixture path and tests.
type Stager interface {
	// UploadFile copies a local file to destURI and returns the final URI.
	UploadFile(ctx context.Context, localPath, destURI string) (string, error)

	// UploadDir copies every file under localDir to destPrefix, preserving
	// relative paths, and returns the normalized prefix URI.
	UploadDir(ctx context.Context, localDir, destPrefix string) (string, error)

	// Download copies the object at srcURI to localPath.
	Download(ctx context.Context, srcURI, localPath string) error

	// List returns the URIs of all objects under prefixURI.
	List(ctx context.Context, prefixURI string) ([]string, error)
}

// ParseS3Path splits an s3:// URI into bucket and key.
func ParseS3Path(s3Path string) (bucket, key string, err error) {
	parsed, err := url.Parse(s3Path)
	if err != nil {
		return "", "", fmt.Errorf("invalid S3 path '%s': %w", s3Path, err)
	}
	if parsed.Scheme != "s3" {
		return "", "", fmt.Errorf("invalid scheme in S3 path '%s', expected 's3'", s3Path)
	}
	bucket = parsed.Host
	key = strings.TrimPrefix(parsed.Path, "/")
	return bucket, key, nil
}

// IsS3Path reports whether the path is an s3:// URI.
func IsS3Path(path string) bool {
	return strings.HasPrefix(path, "s3://")
}

// LocalPath resolves a file:// URI or bare filesystem path to a plain path.
// It returns false for any other scheme.
func LocalPath(raw string) (string, bool) {
	if strings.HasPrefix(raw, "file://") {
		return strings.TrimPrefix(raw, "file://"), true
	}
	if parsed, err := url.Parse(raw); err == nil && parsed.Scheme != "" && len(parsed.Scheme) > 1 {
		// Anything with a real scheme (s3, http, ...) is not local. Single
		// letter schemes are Windows drive prefixes.
		return "", false
	}
	return raw, true
}
