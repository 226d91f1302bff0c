package crypto

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost - стоимость bcrypt хеширования.
// Значение по умолчанию (10) достаточно для серверной аутентификации.
const BcryptCost = bcrypt.DefaultCost

// HashPassword хеширует пароль пользователя через bcrypt.
// Используется на сервере при регистрации.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword проверяет пароль против сохраненного bcrypt хеша.
// Используется на сервере при логине.
func VerifyPassword(password, hashedPassword string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	if hashedPassword == "" {
		return fmt.Errorf("hashed password cannot be empty")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)); err != nil {
		return fmt.Errorf("invalid password")
	}
	return nil
}
