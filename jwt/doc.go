// Package jwt defines the session claim schema and signs and verifies
// access tokens carrying it.
package jwt
