// Package database holds the connection setup and the inbox store: every
// query the pipeline runs against email routing, threads, messages, and
// audit tables.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"leasedesk/internal/models"
)

// ErrAddressNotFound marks an inbound recipient with no email_addresses
// mapping. This is a misconfiguration, not a transient fault; callers must
// not retry it.
var ErrAddressNotFound = errors.New("email address not found")

// Store runs all inbox persistence against the shared database. Queries are
// written with ? placeholders and rebound per driver.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps an open connection.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for health checks.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// LookupEmailAddress resolves an inbound recipient to its owning user or
// team. Returns ErrAddressNotFound when the alias is not provisioned.
func (s *Store) LookupEmailAddress(ctx context.Context, address string) (*models.EmailAddress, error) {
	var addr models.EmailAddress
	query := s.db.Rebind(`
		SELECT id, email_address, team_id, user_id, is_primary
		FROM email_addresses
		WHERE email_address = ?
	`)
	err := s.db.GetContext(ctx, &addr, query, address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrAddressNotFound, address)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up email address: %w", err)
	}
	return &addr, nil
}

// CheckInboxUsage asks the quota function whether the owner has exhausted
// its conversation allowance. check_only semantics: the counter is not
// incremented.
func (s *Store) CheckInboxUsage(ctx context.Context, userID, teamID *string) (bool, error) {
	var limitReached bool
	query := s.db.Rebind(`SELECT limit_reached FROM increment_inbox_usage(?, ?, true)`)
	if err := s.db.GetContext(ctx, &limitReached, query, userID, teamID); err != nil {
		return false, fmt.Errorf("failed to check inbox usage: %w", err)
	}
	return limitReached, nil
}

// OwnerNotificationEmails returns the addresses to alert when the owner's
// quota is exhausted: the user's own email, or every member of the team.
func (s *Store) OwnerNotificationEmails(ctx context.Context, addr *models.EmailAddress) ([]string, error) {
	if addr.UserID != nil {
		var email string
		query := s.db.Rebind(`SELECT email FROM users WHERE id = ?`)
		if err := s.db.GetContext(ctx, &email, query, *addr.UserID); err != nil {
			return nil, fmt.Errorf("failed to fetch user email: %w", err)
		}
		return []string{email}, nil
	}

	if addr.TeamID != nil {
		var emails []string
		query := s.db.Rebind(`
			SELECT u.email
			FROM users u
			JOIN team_members tm ON tm.user_id = u.id
			WHERE tm.team_id = ? AND u.email IS NOT NULL
		`)
		if err := s.db.SelectContext(ctx, &emails, query, *addr.TeamID); err != nil {
			return nil, fmt.Errorf("failed to fetch team member emails: %w", err)
		}
		return emails, nil
	}

	return nil, nil
}

// AgentProfile composes the human-readable agent identity handed to the AI
// collaborator: team name and contact address, or the user's name plus
// whatever contact details exist.
func (s *Store) AgentProfile(ctx context.Context, teamID, userID *string) (models.AgentProfile, error) {
	profile := models.AgentProfile{Name: "Leasing Agent"}

	if teamID != nil {
		var team struct {
			Name         *string `db:"name"`
			ContactEmail *string `db:"contact_email"`
		}
		query := s.db.Rebind(`SELECT name, contact_email FROM teams WHERE id = ?`)
		if err := s.db.GetContext(ctx, &team, query, *teamID); err != nil {
			return profile, fmt.Errorf("failed to fetch team profile: %w", err)
		}
		if team.Name != nil && *team.Name != "" {
			profile.Name = *team.Name
		}
		if team.ContactEmail != nil {
			profile.Contact = *team.ContactEmail
			profile.Email = *team.ContactEmail
		}
		return profile, nil
	}

	if userID != nil {
		var user struct {
			FirstName   *string `db:"first_name"`
			Phone       *string `db:"phone"`
			Email       *string `db:"email"`
			CompanyName *string `db:"company_name"`
		}
		query := s.db.Rebind(`SELECT first_name, phone, email, company_name FROM users WHERE id = ?`)
		if err := s.db.GetContext(ctx, &user, query, *userID); err != nil {
			return profile, fmt.Errorf("failed to fetch user profile: %w", err)
		}
		switch {
		case user.FirstName != nil && *user.FirstName != "":
			profile.Name = *user.FirstName
		case user.Email != nil:
			profile.Name = *user.Email
		}
		var parts []string
		for _, p := range []*string{user.Phone, user.Email, user.CompanyName} {
			if p != nil && *p != "" {
				parts = append(parts, *p)
			}
		}
		profile.Contact = strings.Join(parts, " | ")
		if user.Email != nil {
			profile.Email = *user.Email
		}
		return profile, nil
	}

	return profile, nil
}

// OwnerProperties lists active listings for the resolved owner, capped so
// large portfolios do not blow up the AI request.
func (s *Store) OwnerProperties(ctx context.Context, teamID, userID *string, limit int) ([]models.Property, error) {
	var (
		properties []models.Property
		query      string
		owner      string
	)

	switch {
	case teamID != nil:
		query = `
			SELECT id, web_reference, address, status, application_link, agent_id
			FROM properties
			WHERE active_team_id = ?
			LIMIT ?
		`
		owner = *teamID
	case userID != nil:
		query = `
			SELECT id, web_reference, address, status, application_link, agent_id
			FROM properties
			WHERE agent_id = ?
			LIMIT ?
		`
		owner = *userID
	default:
		return nil, fmt.Errorf("no team or user owner for property lookup")
	}

	if err := s.db.SelectContext(ctx, &properties, s.db.Rebind(query), owner, limit); err != nil {
		return nil, fmt.Errorf("failed to fetch properties: %w", err)
	}
	return properties, nil
}
