package accesslink

import (
	"net/url"
	"strings"

	"valet/internal/ports"
)

// Builder turns an access token into the link sent to the customer.
type Builder struct {
	base string
}

var _ ports.LinkBuilder = Builder{}

func New(baseURL string) Builder {
	return Builder{base: strings.TrimRight(strings.TrimSpace(baseURL), "/")}
}

// AccessLink returns {base}/customer/access/{token}.
func (b Builder) AccessLink(token string) string {
	return b.base + "/customer/access/" + url.PathEscape(token)
}
