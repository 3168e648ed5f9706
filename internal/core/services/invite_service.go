package services

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"watchparty/internal/core/domain"
	"watchparty/pkg/clock"
)

var ErrExpiredInvite = fmt.Errorf("invite expired: %w", domain.ErrInvalidInvite)

// InviteService signs and checks invite tokens carried in party links.
type InviteService interface {
	Issue(partyID domain.PartyID, hostName string) (string, error)
	Validate(token string) (*InviteClaims, error)
	Link(partyID domain.PartyID, hostName string) (string, error)
}

type InviteClaims struct {
	PartyID  domain.PartyID `json:"party_id"`
	HostName string         `json:"host_name,omitempty"`
	jwt.RegisteredClaims
}

type inviteService struct {
	secret  []byte
	ttl     time.Duration
	baseURL string
	clock   clock.Clock
}

func NewInviteService(secret string, ttl time.Duration, baseURL string, clk clock.Clock) InviteService {
	return &inviteService{
		secret:  []byte(secret),
		ttl:     ttl,
		baseURL: baseURL,
		clock:   clk,
	}
}

func (s *inviteService) Issue(partyID domain.PartyID, hostName string) (string, error) {
	now := s.clock.Now()
	claims := &InviteClaims{
		PartyID:  partyID,
		HostName: hostName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(partyID),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *inviteService) Validate(tokenString string) (*InviteClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &InviteClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidInvite
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock.Now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredInvite
		}
		return nil, domain.ErrInvalidInvite
	}

	if claims, ok := token.Claims.(*InviteClaims); ok && token.Valid && claims.PartyID != "" {
		return claims, nil
	}

	return nil, domain.ErrInvalidInvite
}

// Link renders the shareable ?party=..&invite=.. URL.
func (s *inviteService) Link(partyID domain.PartyID, hostName string) (string, error) {
	token, err := s.Issue(partyID, hostName)
	if err != nil {
		return "", fmt.Errorf("sign invite: %w", err)
	}
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return "", fmt.Errorf("invite base url: %w", err)
	}
	q := u.Query()
	q.Set("party", string(partyID))
	q.Set("invite", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
