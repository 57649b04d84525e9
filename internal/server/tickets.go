package server

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	ticketIssuer   = "snapfeed"
	ticketAudience = "snapfeed-ws"
	ticketTTL      = 30 * time.Second
)

// ErrTicketUsed is returned when a ticket is presented a second time.
var ErrTicketUsed = errors.New("ticket already used")

// TicketIssuer signs the short-lived single-use tickets a browser presents
// when it opens the state stream; the upgrade request cannot carry headers.
type TicketIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu       sync.Mutex
	consumed map[string]time.Time
}

// NewTicketIssuer creates a TicketIssuer signing with secret.
func NewTicketIssuer(secret string) *TicketIssuer {
	return &TicketIssuer{
		secret:   []byte(secret),
		ttl:      ticketTTL,
		now:      time.Now,
		consumed: make(map[string]time.Time),
	}
}

// Issue returns a signed ticket for subject and its expiry.
func (t *TicketIssuer) Issue(subject string) (string, time.Time, error) {
	now := t.now()
	expires := now.Add(t.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    ticketIssuer,
		Audience:  jwt.ClaimStrings{ticketAudience},
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Redeem validates a ticket and marks it used, returning its subject.
func (t *TicketIssuer) Redeem(ticket string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(ticket, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(ticketIssuer),
		jwt.WithAudience(ticketAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	for id, exp := range t.consumed {
		if now.After(exp) {
			delete(t.consumed, id)
		}
	}
	if _, used := t.consumed[claims.ID]; used {
		return "", ErrTicketUsed
	}
	t.consumed[claims.ID] = claims.ExpiresAt.Time
	return claims.Subject, nil
}
