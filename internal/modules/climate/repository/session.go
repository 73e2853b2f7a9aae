package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Session is a ClimateRepository bound to one pooled connection. It belongs
// to a single request and must be closed on every exit path.
type Session interface {
	ClimateRepository
	Close() error
}

type SessionFactory interface {
	Open(ctx context.Context) (Session, error)
}

type sessionFactoryImpl struct {
	db *sql.DB
}

func NewSessionFactory(db *sql.DB) SessionFactory {
	return &sessionFactoryImpl{db: db}
}

func (f *sessionFactoryImpl) Open(ctx context.Context) (Session, error) {
	conn, err := f.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &sessionImpl{ClimateRepository: NewRepository(conn), conn: conn}, nil
}

type sessionImpl struct {
	ClimateRepository
	conn *sql.Conn
}

func (s *sessionImpl) Close() error {
	return s.conn.Close()
}
