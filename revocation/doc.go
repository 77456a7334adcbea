// Package revocation keeps the token revocation list in Redis.
//
// A revoked token id is stored as a key that expires when the token itself
// would have expired, so the list never grows beyond the set of live
// tokens. [Store] satisfies session.RevocationChecker.
package revocation
