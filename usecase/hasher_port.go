package usecase

// PasswordHasher derives and checks password hashes. Implementations encode
// their parameters into the returned string.
type PasswordHasher interface {
	Hash(secret string) (string, error)
	Verify(secret, encoded string) (bool, error)
}
