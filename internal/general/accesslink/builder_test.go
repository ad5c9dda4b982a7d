package accesslink

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccessLink(t *testing.T) {
	assert.Equal(t, "http://localhost:3000/customer/access/abc123", New("http://localhost:3000/").AccessLink("abc123"))
	assert.Equal(t, "https://valet.example/customer/access/abc", New(" https://valet.example ").AccessLink("abc"))
}
