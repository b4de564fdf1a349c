// Package ssm provides a configuration source backed by AWS Systems Manager
// Parameter Store. It suits CI builds, where the API key lives in the
// account rather than on a developer machine.
package ssm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/agriguard/kasane/source"
	"github.com/agriguard/kasane/types"
)

// GetParameterAPI is the subset of *ssm.Client used by Source.
type GetParameterAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// loadDefaultConfig is replaced in tests.
var loadDefaultConfig = func(ctx context.Context) (aws.Config, error) {
	return config.LoadDefaultConfig(ctx)
}

// Source looks up keys as Parameter Store parameters named prefix+key.
// Source is read-only and safe for concurrent use.
type Source struct {
	name        string
	prefix      string
	withDecrypt bool
	nameFunc    func(string) string
	awsConfig   *aws.Config
	client      GetParameterAPI

	clientInit    sync.Once
	clientInitErr error
}

// Ensure Source implements the source.Source interface.
var _ source.Source = (*Source)(nil)

// Option configures a Source.
type Option func(*Source)

// WithClient sets the SSM client. This overrides WithAWSConfig.
func WithClient(client GetParameterAPI) Option {
	return func(s *Source) {
		s.client = client
	}
}

// WithAWSConfig sets the AWS configuration used to build the client.
// If not provided, the default configuration is loaded from the environment.
func WithAWSConfig(cfg aws.Config) Option {
	return func(s *Source) {
		s.awsConfig = &cfg
	}
}

// WithDecryption enables decryption for SecureString parameters.
// Default is true, since API keys are normally stored as SecureString.
func WithDecryption(decrypt bool) Option {
	return func(s *Source) {
		s.withDecrypt = decrypt
	}
}

// WithNameFunc sets the function that maps a key to the parameter name
// (before the prefix is applied). Default is identity.
func WithNameFunc(fn func(string) string) Option {
	return func(s *Source) {
		s.nameFunc = fn
	}
}

// New creates a Parameter Store source.
//
// Example:
//
//	// flutter.mapsApiKey read from /agri-guard/flutter.mapsApiKey
//	src := ssm.New("ssm", "/agri-guard/")
//	src := ssm.New("ssm", "/agri-guard/", ssm.WithAWSConfig(cfg))
func New(name, prefix string, opts ...Option) *Source {
	s := &Source{
		name:        name,
		prefix:      prefix,
		withDecrypt: true,
		nameFunc:    func(k string) string { return k },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the source name.
func (s *Source) Name() string {
	return s.name
}

// Type returns the source type identifier.
func (s *Source) Type() source.SourceType {
	return source.TypeSSM
}

// FillDetails implements types.DetailsFiller.
// The parameter prefix is reported as the path.
func (s *Source) FillDetails(d *types.Details) {
	d.Path = s.prefix
}

// ParameterName returns the parameter consulted for key.
func (s *Source) ParameterName(key string) string {
	return s.prefix + s.nameFunc(key)
}

// ensureClient creates a default SSM client if one was not provided.
func (s *Source) ensureClient(ctx context.Context) error {
	s.clientInit.Do(func() {
		if s.client != nil {
			return
		}
		var cfg aws.Config
		if s.awsConfig != nil {
			cfg = *s.awsConfig
		} else {
			var err error
			cfg, err = loadDefaultConfig(ctx)
			if err != nil {
				s.clientInitErr = fmt.Errorf("failed to load AWS config: %w", err)
				return
			}
		}
		s.client = ssm.NewFromConfig(cfg)
	})
	return s.clientInitErr
}

// Lookup implements the source.Source interface.
//
// A parameter that does not exist is absent. Any other failure (missing
// credentials, throttling, network) is an *source.AccessError.
func (s *Source) Lookup(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if err := s.ensureClient(ctx); err != nil {
		return "", false, source.Access(s.name, key, err)
	}

	paramName := s.ParameterName(key)
	result, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(paramName),
		WithDecryption: aws.Bool(s.withDecrypt),
	})
	if err != nil {
		var notFound *ssmtypes.ParameterNotFound
		if errors.As(err, &notFound) {
			return "", false, nil
		}
		return "", false, source.Access(s.name, key, fmt.Errorf("failed to get parameter %q: %w", paramName, err))
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", false, nil
	}
	return *result.Parameter.Value, true, nil
}
