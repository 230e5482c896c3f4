// Package props resolves the package version consumed by release tags.
// The authoritative source is a gradle.properties-style key-value file; a
// Parameter Store entry acts as a fallback for hosts that build outside the
// source tree.
package props

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/magiconair/properties"
	"github.com/rs/zerolog"

	apperrors "github.com/aswathsr101/djl-publisher/internal/errors"
)

// DefaultKey is the properties key holding the version string.
const DefaultKey = "djl_version"

// SSMAPI is the subset of the SSM client used for the version fallback.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Parse extracts the version value for key from properties text.
// Returns an empty string when the key is absent.
func Parse(text []byte, key string) (string, error) {
	p, err := properties.Load(text, properties.UTF8)
	if err != nil {
		return "", fmt.Errorf("parsing properties: %w", err)
	}
	value, _ := p.Get(key)
	return value, nil
}

// Resolver resolves a version through an ordered chain of sources:
// explicit value, properties file, SSM parameter. The first non-empty
// result wins.
type Resolver struct {
	Explicit  string // value passed on the command line or dispatch payload
	File      string // path to a properties file (may not exist)
	Key       string // properties key, DefaultKey when empty
	SSM       SSMAPI // optional fallback, skipped when nil
	Parameter string // SSM parameter name
}

// Resolve walks the source chain. Exhausting every source returns
// ErrVersionNotFound; callers decide whether that is fatal (release mode)
// or not (nightly mode).
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	logger := zerolog.Ctx(ctx)

	if r.Explicit != "" {
		return r.Explicit, nil
	}

	key := r.Key
	if key == "" {
		key = DefaultKey
	}

	if r.File != "" {
		text, err := os.ReadFile(r.File)
		switch {
		case os.IsNotExist(err):
			logger.Debug().Str("file", r.File).Msg("Properties file not found, trying next source")
		case err != nil:
			return "", fmt.Errorf("reading properties file %s: %w", r.File, err)
		default:
			version, err := Parse(text, key)
			if err != nil {
				return "", err
			}
			if version != "" {
				logger.Debug().Str("file", r.File).Str("version", version).Msg("Version resolved from properties file")
				return version, nil
			}
		}
	}

	if r.SSM != nil && r.Parameter != "" {
		out, err := r.SSM.GetParameter(ctx, &ssm.GetParameterInput{
			Name: aws.String(r.Parameter),
		})
		if err != nil {
			return "", fmt.Errorf("reading version parameter %s: %w", r.Parameter, err)
		}
		if out.Parameter != nil && out.Parameter.Value != nil && *out.Parameter.Value != "" {
			logger.Debug().Str("parameter", r.Parameter).Msg("Version resolved from Parameter Store")
			return *out.Parameter.Value, nil
		}
	}

	return "", apperrors.ErrVersionNotFound
}
