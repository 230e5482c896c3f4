package di

// Region is the AWS region the container's clients are built for. An empty
// Region defers to the default credential chain's region resolution.
type Region string

// Option is a function that configures the dependency injection container.
type Option func(*options)

// WithRegion pins the AWS region for every client in the container.
func WithRegion(region string) Option {
	return func(opts *options) {
		opts.region = Region(region)
	}
}

// WithProviders adds constructor functions to the dependency injection
// container. Each provider is a constructor returning one or more values;
// dependencies declared as parameters are resolved automatically.
//
// Example:
//
//	WithProviders(
//	    func(client *dynamodb.Client, env string) *rundao.DAO {
//	        return rundao.New(client, rundao.TableName(env))
//	    },
//	)
func WithProviders(providers ...any) Option {
	return func(opts *options) {
		opts.providers = append(opts.providers, providers...)
	}
}

type options struct {
	region    Region
	providers []any
}
