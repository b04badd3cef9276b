// Package password implements one-way password hashing and verification.
//
// # Output format
//
// New hashes are argon2id encoded as PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<key>
//
// Salt and key use unpadded standard base64 as in the PHC string format;
// padded segments are accepted on verification.
//
// [Codec] also verifies bcrypt hashes ($2a$, $2b$, $2y$) and reports them as
// needing an upgrade so the caller can rehash on the next successful login.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other blogauth package.
//   - Log plaintext passwords.
package password
