package builtin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tidewire/tidewire/internal/connectors"
)

// Link keys understood by the database connectors.
const (
	LinkDriver = "driver"
	LinkURL    = "url"
)

const checkTimeout = 10 * time.Second

// GenericJDBCConnector moves data through any registered database/sql driver.
type GenericJDBCConnector struct{}

func (*GenericJDBCConnector) Capabilities() connectors.Capabilities {
	return connectors.Capabilities{
		Directions: []connectors.Direction{connectors.DirectionFrom, connectors.DirectionTo},
		LinkKeys:   []string{LinkDriver, LinkURL},
	}
}

// Check opens the link's driver and DSN and pings the database.
func (*GenericJDBCConnector) Check(ctx context.Context, link map[string]string) error {
	driver := strings.TrimSpace(link[LinkDriver])
	dsn := strings.TrimSpace(link[LinkURL])
	if driver == "" || dsn == "" {
		return errors.New("generic jdbc link requires driver and url")
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("open %s: %w", driver, err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", driver, err)
	}
	return nil
}
