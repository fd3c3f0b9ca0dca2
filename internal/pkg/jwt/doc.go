// Package jwt verifies the bearer tokens issued by the identity provider.
//
// Claims expose the caller identity (the sub claim) and the account label
// used in provisioning URIs. The symmetric implementation accepts HS256 and
// HS512 and can also mint tokens for tests and local tooling.
package jwt
