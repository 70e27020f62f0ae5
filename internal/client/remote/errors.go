package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrUnavailable = errors.New("remote unavailable")
	ErrRejected    = errors.New("remote rejected")
	ErrNotFound    = errors.New("remote not found")
)

// mapError translates database errors into the package sentinels. The
// original error stays in the chain for logging.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if len(pgErr.Code) < 2 {
			return fmt.Errorf("%w: %w", ErrRejected, err)
		}
		switch pgErr.Code[:2] {
		case "08", "40", "53", "57", "58", "XX":
			// connection, serialization, resources, operator intervention,
			// system and internal errors are worth retrying
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		default:
			return fmt.Errorf("%w: %w", ErrRejected, err)
		}
	}

	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// mapS3Error translates S3 client errors into the package sentinels.
func mapS3Error(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %w", ErrNotFound, err)
		}
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		status := respErr.HTTPStatusCode()
		switch {
		case status == 404:
			return fmt.Errorf("%w: %w", ErrNotFound, err)
		case status >= 400 && status < 500 && status != 408 && status != 429:
			return fmt.Errorf("%w: %w", ErrRejected, err)
		}
	}

	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
