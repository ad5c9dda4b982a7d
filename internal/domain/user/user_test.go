package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" supervisor ")
	require.NoError(t, err)
	assert.Equal(t, RoleSupervisor, r)
	assert.True(t, r.Oversees())
	assert.True(t, RoleAdmin.Oversees())
	assert.False(t, RoleDriver.Oversees())
	assert.False(t, RoleCustomer.Oversees())

	_, err = ParseRole("valet")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestNewCustomer(t *testing.T) {
	c, err := NewCustomer(" 9000000001 ", " Asha ", "asha@example.com")
	require.NoError(t, err)
	assert.Equal(t, "9000000001", c.Phone)
	assert.Equal(t, "Asha", c.Name)
	assert.False(t, c.CreatedAt.IsZero())

	c.ID = "c-1"
	assert.Equal(t, Actor{ID: "c-1", Role: RoleCustomer, Phone: "9000000001"}, c.Actor())

	_, err = NewCustomer("  ", "Asha", "")
	assert.ErrorIs(t, err, ErrPhoneRequired)
	_, err = NewCustomer("9000000001", "Asha", "not-an-email")
	assert.ErrorIs(t, err, ErrInvalidEmail)
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("asha@example.com"))
	assert.True(t, ValidEmail("asha.k+valet@mail.example.in"))
	for _, bad := range []string{"", "asha", "asha@", "@example.com", "asha smith@example.com", "asha@@example.com", "Asha <asha@example.com>"} {
		assert.False(t, ValidEmail(bad), bad)
	}
}
