package service

import (
	"context"
	"fmt"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/server"
	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/user"
)

// AuthService configures the Clerk SDK and reads user data from Clerk.
type AuthService struct {
	server *server.Server
}

func NewAuthService(s *server.Server) *AuthService {
	clerk.SetKey(s.Config.Auth.SecretKey)
	return &AuthService{
		server: s,
	}
}

// PrimaryEmail returns the primary email address Clerk holds for userID.
func (a *AuthService) PrimaryEmail(ctx context.Context, userID string) (string, error) {
	u, err := user.Get(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch clerk user %s: %w", userID, err)
	}

	for _, addr := range u.EmailAddresses {
		if addr == nil {
			continue
		}
		if u.PrimaryEmailAddressID != nil && addr.ID == *u.PrimaryEmailAddressID {
			return addr.EmailAddress, nil
		}
	}
	if len(u.EmailAddresses) > 0 && u.EmailAddresses[0] != nil {
		return u.EmailAddresses[0].EmailAddress, nil
	}
	return "", fmt.Errorf("clerk user %s has no email address", userID)
}
