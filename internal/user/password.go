package user

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/kazz187/labtrack/pkg/cerr"
)

const minPasswordLength = 8

func HashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", cerr.NewInvalidArgumentError("invalid password", map[string]string{
			"password": fmt.Sprintf("must be at least %d characters", minPasswordLength),
		})
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", cerr.NewInvalidArgumentError("invalid password", map[string]string{
				"password": "must be at most 72 bytes",
			})
		}
		return "", cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to hash password: %w", err))
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
