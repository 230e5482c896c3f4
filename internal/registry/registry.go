// Package registry provides authentication against the two registries the
// pipeline publishes to: the account's ECR registry and Docker Hub. The
// clients only resolve credentials and inspect tags; the actual docker
// login and push happen in the docker package.
package registry

// Credentials is an explicit username/password pair. Callers resolve it
// from Secrets Manager or ECR and hand it over; nothing in this package
// reads ambient environment state.
type Credentials struct {
	User string `json:"username"`
	Pass string `json:"password"`
}
