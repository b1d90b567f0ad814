package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"ngodesk.org/internal/account"
)

const pgErrUniqueViolation = "23505"

var _ account.Store = (*Store)(nil)

// CreateAccount persists the organization, its administrator and the
// registration record in one transaction. A unique violation on the user
// email maps to account.ErrDuplicateEmail.
func (s *Store) CreateAccount(ctx context.Context, p account.Provision) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}

	modulesJSON, err := json.Marshal(p.Registration.Modules)
	if err != nil {
		return fmt.Errorf("marshal modules: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		insert into organizations (id, name, org_type, primary_currency, address, pricing_plan, created_at)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, p.Organization.ID, p.Organization.Name, p.Organization.Type, p.Organization.PrimaryCurrency,
		p.Organization.Address, p.Organization.PricingPlan, p.Organization.CreatedAt); err != nil {
		return mapPgError(err)
	}

	if _, err := tx.ExecContext(ctx, `
		insert into users (id, organization_id, name, email, phone, password_hash, status, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.User.ID, p.User.OrganizationID, p.User.Name, p.User.Email, p.User.Phone,
		p.User.PasswordHash, p.User.Status, p.User.CreatedAt); err != nil {
		return mapPgError(err)
	}

	if _, err := tx.ExecContext(ctx, `
		insert into registrations (id, organization_id, modules, terms_accepted_at, created_at)
		values ($1, $2, $3, $4, $5)
	`, p.Registration.ID, p.Registration.OrganizationID, modulesJSON,
		p.Registration.TermsAcceptedAt, p.Registration.CreatedAt); err != nil {
		return mapPgError(err)
	}

	return tx.Commit()
}

// EmailTaken reports whether an account already exists for the email.
func (s *Store) EmailTaken(ctx context.Context, email string) (bool, error) {
	if s.db == nil {
		return false, errors.New("database connection unavailable")
	}
	var exists bool
	err := s.db.QueryRowContext(ctx, `select exists(select 1 from users where email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
		return account.ErrDuplicateEmail
	}
	return err
}
