package remote

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", sql.ErrNoRows, ErrNotFound},
		{"deadline", context.DeadlineExceeded, ErrUnavailable},
		{"canceled", context.Canceled, ErrUnavailable},
		{"check violation", &pgconn.PgError{Code: "23514"}, ErrRejected},
		{"invalid text", &pgconn.PgError{Code: "22P02"}, ErrRejected},
		{"undefined table", &pgconn.PgError{Code: "42P01"}, ErrRejected},
		{"bad password", &pgconn.PgError{Code: "28P01"}, ErrRejected},
		{"connection failure", &pgconn.PgError{Code: "08006"}, ErrUnavailable},
		{"too many connections", &pgconn.PgError{Code: "53300"}, ErrUnavailable},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, ErrUnavailable},
		{"serialization", &pgconn.PgError{Code: "40001"}, ErrUnavailable},
		{"dial error", errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.in)
			require.ErrorIs(t, got, tt.want)
			require.ErrorIs(t, got, tt.in)
		})
	}

	require.NoError(t, mapError(nil))
}

func responseError(status int) error {
	return &smithyhttp.ResponseError{
		Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
		Err:      errors.New("status"),
	}
}

func TestMapS3Error(t *testing.T) {
	require.NoError(t, mapS3Error(nil))

	require.ErrorIs(t, mapS3Error(&smithy.GenericAPIError{Code: "NoSuchKey"}), ErrNotFound)
	require.ErrorIs(t, mapS3Error(responseError(404)), ErrNotFound)
	require.ErrorIs(t, mapS3Error(responseError(403)), ErrRejected)
	require.ErrorIs(t, mapS3Error(responseError(429)), ErrUnavailable)
	require.ErrorIs(t, mapS3Error(responseError(503)), ErrUnavailable)
	require.ErrorIs(t, mapS3Error(context.DeadlineExceeded), ErrUnavailable)
	require.ErrorIs(t, mapS3Error(errors.New("no such host")), ErrUnavailable)
}
