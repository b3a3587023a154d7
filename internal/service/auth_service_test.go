package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterRejectsWeakPasswords(t *testing.T) {
	svc := NewAuthService(nil)

	cases := []struct {
		name     string
		password string
	}{
		{"too short", "a1b2c3"},
		{"no digit", "passwordonly"},
		{"no letter", "1234567890"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register("admin", tc.password)
			assert.Error(t, err)
		})
	}
}

func TestRegisterRejectsEmptyUsername(t *testing.T) {
	svc := NewAuthService(nil)

	_, err := svc.Register("   ", "password1")
	assert.Error(t, err)
}
