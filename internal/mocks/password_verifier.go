package mocks

import "golang.org/x/crypto/bcrypt"

// PasswordCheck is one recorded Compare call.
type PasswordCheck struct {
	Hash     string
	Password string
}

// MockPasswordVerifier implements auth.PasswordVerifier. With no CompareFn it
// accepts only the passwords listed in Accept.
type MockPasswordVerifier struct {
	Accept    []string
	CompareFn func(hashedPassword, password string) error
	Checks    []PasswordCheck
}

// Compare records the call and checks the password.
func (m *MockPasswordVerifier) Compare(hashedPassword, password string) error {
	m.Checks = append(m.Checks, PasswordCheck{Hash: hashedPassword, Password: password})
	if m.CompareFn != nil {
		return m.CompareFn(hashedPassword, password)
	}
	for _, p := range m.Accept {
		if p == password {
			return nil
		}
	}
	return bcrypt.ErrMismatchedHashAndPassword
}
