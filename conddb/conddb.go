// Copyright 2026 The go-daq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package conddb holds types to describe the configuration database of
// the timing system: which EVG cards exist and how to reach their
// register gateways.
package conddb // import "github.com/go-daq/evg230/conddb"

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

const (
	host = "localhost"
)

var (
	usr = "username"
	pwd = "s3cr3t"

	drvName = "mysql"
)

// DB exposes convenience methods to retrieve the timing-system
// configuration from the machine database.
type DB struct {
	db   *sql.DB
	name string // name of the timing database
}

// Open opens a connection to the timing database dbname.
func Open(dbname string) (*DB, error) {
	db, err := sql.Open(drvName, dsn(dbname))
	if err != nil {
		return nil, fmt.Errorf("conddb: could not open %q db: %w", dbname, err)
	}

	err = ping(db, dbname)
	if err != nil {
		return nil, fmt.Errorf("conddb: could not ping %q db: %w", dbname, err)
	}

	return &DB{db: db, name: dbname}, nil
}

func dsn(db string) string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s", usr, pwd, host, db)
}

func ping(db *sql.DB, dbname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("conddb: could not ping %q db: %w", dbname, err)
	}

	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// DeviceConfigs returns the registration of every EVG card declared in
// the database.
func (db *DB) DeviceConfigs(ctx context.Context) ([]DeviceConfig, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var cfgs []DeviceConfig
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT name, ip, port, frequency FROM devices ORDER BY name",
	)
	if err != nil {
		return cfgs, fmt.Errorf("conddb: could not query device configs: %w", err)
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		var cfg DeviceConfig
		err = rows.Scan(&cfg.Name, &cfg.IP, &cfg.Port, &cfg.Frequency)
		if err != nil {
			return cfgs, fmt.Errorf("conddb: could not scan row %d for device config: %w", i, err)
		}
		i++

		cfgs = append(cfgs, cfg)
	}

	if err := rows.Err(); err != nil {
		return cfgs, fmt.Errorf("conddb: could not scan db for device configs: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return cfgs, fmt.Errorf("conddb: context error while retrieving device configs: %w", err)
	}

	return cfgs, nil
}
