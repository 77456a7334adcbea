// Package password hashes and verifies passwords with Argon2id and
// optionally screens them against a breach corpus.
//
// Hashes use the PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Argon2.NeedsRehash] reports hashes produced with weaker parameters so
// callers can rehash after the next successful verification.
//
// [BreachChecker] is an optional capability. [RangeChecker] implements it
// against a k-anonymity range API and is never enabled implicitly.
//
// The package stores nothing and never logs plaintexts or hash parameters.
package password
