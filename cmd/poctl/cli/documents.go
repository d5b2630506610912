package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/PPA-BE/Orders-At-Peak/internal/app"
	"github.com/PPA-BE/Orders-At-Peak/internal/platform/db"
	"github.com/PPA-BE/Orders-At-Peak/internal/purchasing"
)

var errSourceRequired = errors.New("exactly one of --id or --file is required")

// readDocument decodes a PO payload from a file, or stdin when path is "-".
func (r *Root) readDocument(path string) (purchasing.Document, error) {
	var in io.Reader
	if path == "-" {
		in = r.stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return purchasing.Document{}, err
		}
		defer f.Close()
		in = f
	}
	var doc purchasing.Document
	if err := json.NewDecoder(in).Decode(&doc); err != nil {
		return purchasing.Document{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return doc, nil
}

// services connects to Postgres and wires the domain services. The returned
// func releases the pool.
func (r *Root) services(ctx context.Context) (*app.Services, func(), error) {
	cfg, err := r.config()
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.New(ctx, cfg.PGDSN, db.PoolConfig{MaxConns: 2})
	if err != nil {
		return nil, nil, err
	}
	svc, err := app.NewServices(app.ServiceDeps{Config: cfg, Logger: r.log(), Pool: pool})
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return svc, pool.Close, nil
}

// writeOutput writes data to path, or stdout when path is "-".
func (r *Root) writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := r.stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func checkSource(id, file string) error {
	if (id == "") == (file == "") {
		return errSourceRequired
	}
	return nil
}
