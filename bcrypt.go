package authflow

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrNoEmptyString is returned when hashing an empty password.
var ErrNoEmptyString = errors.New("password must not be empty")

// ErrMismatchedHashAndPassword is returned when a password does not match its hash.
var ErrMismatchedHashAndPassword = errors.New("password does not match hash")

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost())
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

// PasswordHashLookup fetches the stored bcrypt hash for an identifier.
type PasswordHashLookup func(ctx context.Context, identifier string) (*User, string, error)

// NewBcryptAuthorizer builds a CredentialsAuthorizer over a stored bcrypt
// hash. Missing users and mismatched passwords are both plain rejections so
// callers cannot probe which identifiers exist.
func NewBcryptAuthorizer(lookup PasswordHashLookup) CredentialsAuthorizer {
	return CredentialsAuthorizerFunc(func(ctx context.Context, credentials map[string]string) (*User, error) {
		identifier := credentials["identifier"]
		password := credentials["password"]
		if identifier == "" || password == "" {
			return nil, nil
		}

		user, hash, err := lookup(ctx, identifier)
		if err != nil {
			if IsNotFound(err) {
				return nil, nil
			}
			return nil, err
		}

		if err := ComparePasswordAndHash(password, hash); err != nil {
			if errors.Is(err, ErrMismatchedHashAndPassword) {
				return nil, nil
			}
			return nil, err
		}

		return user, nil
	})
}
