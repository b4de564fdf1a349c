package kasane

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/agriguard/kasane/source"
)

// ErrInvalidKey is returned when resolution is requested for an empty key.
// It indicates a programming error at the call site and is never defaulted.
var ErrInvalidKey = errors.New("kasane: key must not be empty")

// Resolver resolves keys against ordered sources.
// A Resolver holds no per-resolution state and is safe for concurrent use,
// provided the sources passed to it are.
type Resolver struct {
	logger      *zap.Logger
	mask        MaskFunc
	sentinel    string
	hasSentinel bool
}

// Option is a functional option for configuring a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger. Skipped sources are logged at warn level,
// resolutions at debug level with masked values. Default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithSentinel marks value as a placeholder that signals misconfiguration,
// such as "YOUR_API_KEY_HERE". Resolutions that produce it are flagged via
// Resolution.Sentinel and logged at warn level. Resolution still succeeds.
func WithSentinel(value string) Option {
	return func(r *Resolver) {
		r.sentinel = value
		r.hasSentinel = true
	}
}

// WithMaskFunc sets the function used to hide values in logs and in
// Resolution.String. Default is MaskAll.
func WithMaskFunc(fn MaskFunc) Option {
	return func(r *Resolver) {
		if fn != nil {
			r.mask = fn
		}
	}
}

// New creates a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		logger: zap.NewNop(),
		mask:   MaskAll,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var defaultResolver = New()

// Resolve returns the first value defined for key among sources, in order,
// or def when no source defines it.
//
// Sources that fail to answer are skipped. The only errors are ErrInvalidKey
// for an empty key and the context's error if ctx is done before a source is
// consulted.
func Resolve(ctx context.Context, key string, sources []source.Source, def string) (string, error) {
	return defaultResolver.Resolve(ctx, key, sources, def)
}

// Resolve is like the package-level Resolve but uses r's options.
func (r *Resolver) Resolve(ctx context.Context, key string, sources []source.Source, def string) (string, error) {
	res, err := r.Lookup(ctx, key, sources, def)
	if err != nil {
		return "", err
	}
	return res.Value, nil
}

// Lookup resolves key and reports where the value came from.
//
// Sources are consulted strictly in order. The first source that defines the
// key wins and the remaining sources are not consulted. A source that returns
// an error is recorded in Resolution.Skipped and treated as not defining the
// key. When no source defines the key, the result carries def with
// Defaulted set; an empty def is a valid result.
func (r *Resolver) Lookup(ctx context.Context, key string, sources []source.Source, def string) (Resolution, error) {
	if key == "" {
		return Resolution{}, ErrInvalidKey
	}

	res := Resolution{Key: key, Index: -1, mask: r.mask}

	for i, src := range sources {
		if src == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		v, ok, err := src.Lookup(ctx, key)
		if err != nil {
			res.Skipped = append(res.Skipped, SkippedSource{Name: src.Name(), Type: src.Type(), Err: err})
			r.logger.Warn("config source unavailable, skipping",
				zap.String("key", key),
				zap.String("source", src.Name()),
				zap.String("source_type", string(src.Type())),
				zap.Error(err),
			)
			continue
		}
		if !ok {
			continue
		}

		res.Value = v
		res.Source = src.Name()
		res.SourceType = src.Type()
		res.Index = i
		r.finish(&res)
		return res, nil
	}

	res.Value = def
	res.Defaulted = true
	r.finish(&res)
	return res, nil
}

func (r *Resolver) finish(res *Resolution) {
	res.Sentinel = r.hasSentinel && res.Value == r.sentinel

	fields := []zap.Field{
		zap.String("key", res.Key),
		zap.String("value", r.mask(res.Value)),
		zap.String("origin", res.Origin()),
	}
	if res.Sentinel {
		r.logger.Warn("config value is the placeholder sentinel", fields...)
		return
	}
	r.logger.Debug("config value resolved", fields...)
}
