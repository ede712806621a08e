package builtin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/tidewire/tidewire/internal/connectors"
)

// PostgresConnector moves data to and from PostgreSQL.
type PostgresConnector struct{}

func (*PostgresConnector) Capabilities() connectors.Capabilities {
	return connectors.Capabilities{
		Directions: []connectors.Direction{connectors.DirectionFrom, connectors.DirectionTo},
		LinkKeys:   []string{LinkURL},
	}
}

func (*PostgresConnector) Check(ctx context.Context, link map[string]string) error {
	url := strings.TrimSpace(link[LinkURL])
	if url == "" {
		return errors.New("postgres link requires url")
	}
	cfg, err := pgx.ParseConfig(url)
	if err != nil {
		return fmt.Errorf("parse postgres url: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer conn.Close(context.Background())

	if err := conn.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}
