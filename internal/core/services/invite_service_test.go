package services

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchparty/internal/core/domain"
	"watchparty/pkg/clock"
)

func TestInviteService_IssueAndValidate(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := NewInviteService("secret", time.Hour, "http://localhost:8080/", clk)

	token, err := svc.Issue("party-1", "Ann")
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, domain.PartyID("party-1"), claims.PartyID)
	assert.Equal(t, "Ann", claims.HostName)
}

func TestInviteService_Expired(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := NewInviteService("secret", time.Minute, "http://localhost:8080/", clk)

	token, err := svc.Issue("party-1", "Ann")
	require.NoError(t, err)

	clk.Advance(2 * time.Minute)
	_, err = svc.Validate(token)
	assert.True(t, errors.Is(err, ErrExpiredInvite))
}

func TestInviteService_WrongSecret(t *testing.T) {
	clk := clock.NewFake(time.Now())
	issuer := NewInviteService("one", time.Hour, "http://localhost/", clk)
	checker := NewInviteService("two", time.Hour, "http://localhost/", clk)

	token, err := issuer.Issue("party-1", "Ann")
	require.NoError(t, err)

	_, err = checker.Validate(token)
	assert.True(t, errors.Is(err, domain.ErrInvalidInvite))

	_, err = checker.Validate("garbage")
	assert.True(t, errors.Is(err, domain.ErrInvalidInvite))
}

func TestInviteService_Link(t *testing.T) {
	clk := clock.NewFake(time.Now())
	svc := NewInviteService("secret", time.Hour, "http://localhost:8080/watch", clk)

	link, err := svc.Link("party-9", "Ann")
	require.NoError(t, err)

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "/watch", u.Path)
	assert.Equal(t, "party-9", u.Query().Get("party"))

	claims, err := svc.Validate(u.Query().Get("invite"))
	require.NoError(t, err)
	assert.Equal(t, domain.PartyID("party-9"), claims.PartyID)
}
