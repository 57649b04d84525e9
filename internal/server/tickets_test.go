package server

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketIssuer_RoundTrip(t *testing.T) {
	issuer := NewTicketIssuer(testSecret)

	ticket, expires, err := issuer.Issue("u1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(ticketTTL), expires, time.Second)

	subject, err := issuer.Redeem(ticket)
	require.NoError(t, err)
	assert.Equal(t, "u1", subject)

	_, err = issuer.Redeem(ticket)
	assert.ErrorIs(t, err, ErrTicketUsed)
}

func TestTicketIssuer_Expired(t *testing.T) {
	issuer := NewTicketIssuer(testSecret)
	now := time.Now()
	issuer.now = func() time.Time { return now }

	ticket, _, err := issuer.Issue("u1")
	require.NoError(t, err)

	issuer.now = func() time.Time { return now.Add(ticketTTL + time.Minute) }
	_, err = issuer.Redeem(ticket)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestTicketIssuer_RejectsForeignTickets(t *testing.T) {
	issuer := NewTicketIssuer(testSecret)

	other, _, err := NewTicketIssuer("another-secret-another-secret-xx").Issue("u1")
	require.NoError(t, err)
	_, err = issuer.Redeem(other)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	wrongAudience, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    ticketIssuer,
		Audience:  jwt.ClaimStrings{"someone-else"},
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = issuer.Redeem(wrongAudience)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidAudience)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:   ticketIssuer,
		Audience: jwt.ClaimStrings{ticketAudience},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = issuer.Redeem(noExpiry)
	assert.ErrorIs(t, err, jwt.ErrTokenRequiredClaimMissing)
}

func TestTicketIssuer_PurgesExpiredRedemptions(t *testing.T) {
	issuer := NewTicketIssuer(testSecret)
	now := time.Now()
	issuer.now = func() time.Time { return now }

	first, _, err := issuer.Issue("a")
	require.NoError(t, err)
	_, err = issuer.Redeem(first)
	require.NoError(t, err)

	now = now.Add(ticketTTL + time.Second)
	second, _, err := issuer.Issue("b")
	require.NoError(t, err)
	_, err = issuer.Redeem(second)
	require.NoError(t, err)

	issuer.mu.Lock()
	defer issuer.mu.Unlock()
	assert.Len(t, issuer.consumed, 1)
}
