package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/linesync/internal/shared"
	"github.com/desertthunder/linesync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// authStatus is the JSON form of `auth status`.
type authStatus struct {
	Authenticated bool      `json:"authenticated"`
	CanRefresh    bool      `json:"can_refresh"`
	ExpiresAt     time.Time `json:"expires_at,omitzero"`
	UserID        string    `json:"user_id,omitempty"`
	AccountID     int64     `json:"account_id,omitempty"`
	Email         string    `json:"email,omitempty"`
}

// AuthLogin exchanges username and password for tokens, then preloads every collection.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(ctx); err != nil {
		return err
	}

	username, password := cmd.String("username"), cmd.String("password")
	reader := bufio.NewReader(r.input)
	var err error
	if username == "" {
		if username, err = r.prompt(reader, "Username: "); err != nil {
			return err
		}
	}
	if password == "" {
		if password, err = r.prompt(reader, "Password: "); err != nil {
			return err
		}
	}

	cred, err := r.session.Authenticate(ctx, username, password)
	if err != nil {
		return err
	}

	r.writePlain("✓ Signed in as %s\n", username)
	r.writePlain("Token expires: %s\n", formatTimestamp(cred.ExpiresAt))

	if !cmd.Bool("preload") {
		return nil
	}

	r.writePlainln("Loading collections...")
	return r.reportResults(r.coordinator.PreloadAll(ctx))
}

func (r *Runner) prompt(reader *bufio.Reader, label string) (string, error) {
	r.writePlain("%s", label)
	line, err := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		if err != nil {
			return "", fmt.Errorf("%w: %s", shared.ErrMissingCredentials, strings.TrimSuffix(label, ": "))
		}
		return "", fmt.Errorf("%w: %s is empty", shared.ErrMissingCredentials, strings.TrimSuffix(label, ": "))
	}
	return line, nil
}

// AuthLogout clears the session and every cached collection. Safe to run when signed out.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(ctx); err != nil {
		return err
	}

	if err := r.session.Logout(ctx); err != nil {
		return err
	}
	if err := r.coordinator.Reset(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ Signed out\n")
}

// AuthStatus reports session state from the local credential only.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(ctx); err != nil {
		return err
	}

	cred := r.session.Credential()
	status := authStatus{
		Authenticated: r.session.IsAuthenticated(),
		CanRefresh:    cred.CanRefresh(),
		ExpiresAt:     cred.ExpiresAt,
	}
	if claims := r.session.Claims(); claims != nil {
		status.UserID, status.AccountID, status.Email = claims.UserID, claims.AccountID, claims.Email
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	r.writePlainHeader("Session")
	switch {
	case status.Authenticated:
		r.writePlain("Authentication: ✓ Authenticated\n")
	case cred.IsZero():
		r.writePlain("Authentication: ✗ Not signed in\n")
	case status.CanRefresh:
		r.writePlain("Authentication: ✗ Expired (refreshable)\n")
	default:
		r.writePlain("Authentication: ✗ Expired\n")
	}
	if !cred.IsZero() {
		r.writePlain("Access token: %s\n", shared.MaskToken(cred.AccessToken))
		r.writePlain("Expires: %s\n", formatTimestamp(cred.ExpiresAt))
	}
	if status.UserID != "" {
		r.writePlain("User: %s (account %d)\n", status.UserID, status.AccountID)
	}
	return nil
}

// AuthWhoami prints the account profile, falling back to token claims.
func (r *Runner) AuthWhoami(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(ctx); err != nil {
		return err
	}
	if err := r.requireAuth(); err != nil {
		return err
	}

	account, err := r.coordinator.Account(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(account, true)
	}
	r.writePlainHeader("Account")
	r.writePlain("User ID: %s\n", account.UserID)
	r.writePlain("Account ID: %d\n", account.AccountID)
	if account.Name != "" {
		r.writePlain("Name: %s\n", account.Name)
	}
	if account.Email != "" {
		r.writePlain("Email: %s\n", account.Email)
	}
	if account.Currency != "" {
		r.writePlain("Balance: %.2f %s\n", account.Balance, account.Currency)
	}
	r.writePlain("Source: %s\n", account.Source)
	return nil
}

// AuthRefresh forces a token refresh.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(ctx); err != nil {
		return err
	}

	cred, err := r.session.Refresh(ctx)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Token refreshed, expires %s\n", formatTimestamp(cred.ExpiresAt))
}

// reportResults prints one line per resource and returns an error when any failed.
func (r *Runner) reportResults(results map[tasks.ResourceType]error) error {
	failed := 0
	for _, t := range tasks.ResourceTypes() {
		err, ok := results[t]
		if !ok {
			continue
		}
		status, _ := r.coordinator.Status(t)
		if err != nil {
			failed++
			r.writePlain("✗ %s: %v\n", t.Label(), err)
			continue
		}
		r.writePlain("✓ %s (%d items)\n", t.Label(), status.Count)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d collections failed to load", failed, len(results))
	}
	return nil
}
