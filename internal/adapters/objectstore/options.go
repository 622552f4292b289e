package objectstore

import "strings"

// S3Option configures an S3Store.
type S3Option func(*s3Settings)

type s3Settings struct {
	region    string
	endpoint  string
	pathStyle bool
	accessKey string
	secretKey string
	prefix    string
}

// WithRegion sets the AWS region. Empty values are ignored.
func WithRegion(region string) S3Option {
	return func(s *s3Settings) {
		if region != "" {
			s.region = region
		}
	}
}

// WithEndpoint targets an S3 compatible endpoint instead of AWS.
func WithEndpoint(endpoint string) S3Option {
	return func(s *s3Settings) {
		s.endpoint = strings.TrimRight(endpoint, "/")
	}
}

// WithPathStyle addresses the bucket in the URL path rather than the host.
func WithPathStyle(enabled bool) S3Option {
	return func(s *s3Settings) {
		s.pathStyle = enabled
	}
}

// WithStaticCredentials bypasses the default AWS credential chain.
func WithStaticCredentials(accessKey, secretKey string) S3Option {
	return func(s *s3Settings) {
		if accessKey != "" && secretKey != "" {
			s.accessKey = accessKey
			s.secretKey = secretKey
		}
	}
}

// WithKeyPrefix scopes every key under prefix.
func WithKeyPrefix(prefix string) S3Option {
	return func(s *s3Settings) {
		s.prefix = prefix
	}
}
