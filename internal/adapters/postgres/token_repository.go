package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/derekgallardo01/converge-gateway/internal/domain"
)

// Schema the repository expects:
//
//	CREATE TABLE payment_tokens (
//	    token_id     text PRIMARY KEY,
//	    customer_id  text NOT NULL,
//	    brand        text NOT NULL DEFAULT '',
//	    last_four    text NOT NULL DEFAULT '',
//	    exp_month    int  NOT NULL DEFAULT 0,
//	    exp_year     int  NOT NULL DEFAULT 0,
//	    billing_hash text NOT NULL DEFAULT '',
//	    created_at   timestamptz NOT NULL DEFAULT now(),
//	    updated_at   timestamptz NOT NULL DEFAULT now()
//	);
//	CREATE INDEX payment_tokens_customer_idx ON payment_tokens (customer_id);

// TokenRepository implements ports.TokenStore on PostgreSQL.
type TokenRepository struct {
	pool *pgxpool.Pool
}

// NewTokenRepository creates a token repository.
func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

const tokenColumns = "token_id, customer_id, brand, last_four, exp_month, exp_year, billing_hash, created_at, updated_at"

// Get retrieves a token owned by the given customer.
func (r *TokenRepository) Get(ctx context.Context, customerID, tokenID string) (*domain.PaymentToken, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT "+tokenColumns+" FROM payment_tokens WHERE token_id = $1 AND customer_id = $2",
		tokenID, customerID)

	token, err := scanToken(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("get token: %w", err)
	}
	return token, nil
}

// List returns every token stored for a customer.
func (r *TokenRepository) List(ctx context.Context, customerID string) ([]*domain.PaymentToken, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+tokenColumns+" FROM payment_tokens WHERE customer_id = $1 ORDER BY created_at",
		customerID)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*domain.PaymentToken
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	return tokens, nil
}

// Save inserts a token, or refreshes its card details when the processor
// re-issues the same token value for the same card.
func (r *TokenRepository) Save(ctx context.Context, token *domain.PaymentToken) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO payment_tokens (token_id, customer_id, brand, last_four, exp_month, exp_year, billing_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (token_id) DO UPDATE SET
			brand = EXCLUDED.brand,
			last_four = EXCLUDED.last_four,
			exp_month = EXCLUDED.exp_month,
			exp_year = EXCLUDED.exp_year,
			billing_hash = EXCLUDED.billing_hash,
			updated_at = now()`,
		token.ID, token.CustomerID, token.Brand, token.LastFour, token.ExpMonth, token.ExpYear, token.BillingHash)
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// Update rewrites a token's mutable fields inside a transaction with a row
// lock, so concurrent billing refreshes of the same token serialize.
func (r *TokenRepository) Update(ctx context.Context, token *domain.PaymentToken) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	var exists string
	err = tx.QueryRow(ctx,
		"SELECT token_id FROM payment_tokens WHERE token_id = $1 AND customer_id = $2 FOR UPDATE",
		token.ID, token.CustomerID).Scan(&exists)
	if err != nil {
		_ = tx.Rollback(ctx)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrTokenNotFound
		}
		return fmt.Errorf("lock token: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE payment_tokens
		SET brand = $2, last_four = $3, exp_month = $4, exp_year = $5, billing_hash = $6, updated_at = now()
		WHERE token_id = $1`,
		token.ID, token.Brand, token.LastFour, token.ExpMonth, token.ExpYear, token.BillingHash)
	if err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("update token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Delete removes a token. Deleting an absent token is not an error; the
// desired end state holds.
func (r *TokenRepository) Delete(ctx context.Context, customerID, tokenID string) error {
	_, err := r.pool.Exec(ctx,
		"DELETE FROM payment_tokens WHERE token_id = $1 AND customer_id = $2",
		tokenID, customerID)
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

func scanToken(row pgx.Row) (*domain.PaymentToken, error) {
	var t domain.PaymentToken
	err := row.Scan(&t.ID, &t.CustomerID, &t.Brand, &t.LastFour, &t.ExpMonth, &t.ExpYear, &t.BillingHash, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
