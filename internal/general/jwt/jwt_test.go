package jwt

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valet/internal/domain/user"
)

func TestIssueAndParse(t *testing.T) {
	mgr := NewManager("secret", time.Hour)

	raw, claims, err := mgr.IssueUserToken("D1", user.RoleDriver)
	require.NoError(t, err)
	assert.Equal(t, "D1", claims.Subject)

	_, parsed, err := mgr.ParseAndValidate(raw)
	require.NoError(t, err)
	assert.Equal(t, user.Driver("D1"), parsed.Actor())
}

func TestCustomerTokenCarriesPhone(t *testing.T) {
	mgr := NewManager("secret", time.Hour)

	_, _, err := mgr.IssueUserToken("C1", user.RoleCustomer)
	require.ErrorIs(t, err, ErrPhoneClaimMissing)

	raw, _, err := mgr.IssueCustomerToken("C1", "9000000001")
	require.NoError(t, err)
	_, parsed, err := mgr.ParseAndValidate(raw)
	require.NoError(t, err)
	assert.Equal(t, user.CustomerActor("C1", "9000000001"), parsed.Actor())
}

func TestParseRejects(t *testing.T) {
	mgr := NewManager("secret", time.Hour)

	other, _, err := NewManager("other", time.Hour).IssueUserToken("D1", user.RoleDriver)
	require.NoError(t, err)
	_, _, err = mgr.ParseAndValidate(other)
	assert.Error(t, err)

	expired, _, err := NewManager("secret", -time.Minute).IssueUserToken("D1", user.RoleDriver)
	require.NoError(t, err)
	_, _, err = mgr.ParseAndValidate(expired)
	assert.ErrorIs(t, err, jwtlib.ErrTokenExpired)

	forged := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, NewUserClaims("X", "ROOT", "", time.Hour))
	s, err := forged.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, _, err = mgr.ParseAndValidate(s)
	assert.ErrorIs(t, err, user.ErrInvalidRole)

	assert.Panics(t, func() { NewManager("  ", time.Hour) })
}

func TestMiddleware(t *testing.T) {
	mgr := NewManager("secret", time.Hour)
	driverTok, _, err := mgr.IssueUserToken("D1", user.RoleDriver)
	require.NoError(t, err)
	supTok, _, err := mgr.IssueUserToken("S1", user.RoleSupervisor)
	require.NoError(t, err)

	var seen *Claims
	h := AuthMiddlewareFunc(mgr, user.RoleDriver)(func(w http.ResponseWriter, r *http.Request) {
		seen = RequireClaims(r)
		w.WriteHeader(http.StatusNoContent)
	})

	cases := []struct {
		name   string
		header string
		query  string
		status int
		code   string
	}{
		{"missing", "", "", http.StatusUnauthorized, "UNAUTHENTICATED"},
		{"garbage", "Bearer nope", "", http.StatusUnauthorized, "UNAUTHENTICATED"},
		{"wrong role", "Bearer " + supTok, "", http.StatusForbidden, "UNAUTHORIZED"},
		{"header", "Bearer " + driverTok, "", http.StatusNoContent, ""},
		{"query", "", driverTok, http.StatusNoContent, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = nil
			r := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			if tc.query != "" {
				r.URL.RawQuery = "Authorization=" + tc.query
			}
			w := httptest.NewRecorder()
			h(w, r)

			assert.Equal(t, tc.status, w.Code)
			if tc.code == "" {
				require.NotNil(t, seen)
				assert.Equal(t, "D1", seen.Subject)
				return
			}
			var body authError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Code)
			assert.Nil(t, seen)
		})
	}
}

func TestValidateWSAuth(t *testing.T) {
	mgr := NewManager("secret", time.Hour)
	tok, _, err := mgr.IssueCustomerToken("C1", "9000000001")
	require.NoError(t, err)

	res, err := ValidateWSAuth([]byte(`{"type":"auth","token":"Bearer `+tok+`"}`), mgr, user.RoleCustomer)
	require.NoError(t, err)
	assert.Equal(t, "9000000001", res.Claims.Phone)
	assert.Equal(t, user.CustomerActor("C1", "9000000001"), res.Actor)

	_, err = ValidateWSAuth([]byte(`{"type":"hello"}`), mgr)
	assert.ErrorIs(t, err, ErrBadAuthMsg)
	_, err = ValidateWSAuth([]byte(`{"type":"auth","token":"`+tok+`"}`), mgr)
	assert.ErrorIs(t, err, ErrBadTokenWrap)
	_, err = ValidateWSAuth([]byte(`{"type":"auth","token":"Bearer `+tok+`"}`), mgr, user.RoleDriver)
	assert.ErrorIs(t, err, ErrRoleForbidden)
}
