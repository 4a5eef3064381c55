package health

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/nats-io/nats.go"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

// Credentials picks the user, password and database from a service
// environment by key suffix (*_USER, *_PASSWORD, *_DATABASE or *_DB).
// Keys are scanned in sorted order; root passwords are used only when no
// other password is set.
func Credentials(env map[string]string) (user, password, database string) {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var rootPassword string
	for _, k := range keys {
		v := env[k]
		switch {
		case strings.HasSuffix(k, "_ROOT_PASSWORD"):
			if rootPassword == "" {
				rootPassword = v
			}
		case strings.HasSuffix(k, "_PASSWORD") || strings.HasSuffix(k, "_PASS"):
			if password == "" {
				password = v
			}
		case strings.HasSuffix(k, "_USER"):
			if user == "" {
				user = v
			}
		case strings.HasSuffix(k, "_DATABASE") || strings.HasSuffix(k, "_DB"):
			if database == "" {
				database = v
			}
		}
	}
	if password == "" && rootPassword != "" {
		password = rootPassword
		if user == "" {
			user = "root"
		}
	}
	return user, password, database
}

// MySQLDSN builds a go-sql-driver DSN for t.
func MySQLDSN(t Target) string {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = t.Addr()
	cfg.User = t.User
	if cfg.User == "" {
		cfg.User = "root"
	}
	cfg.Passwd = t.Password
	cfg.DBName = t.Database
	return cfg.FormatDSN()
}

// PostgresURL builds a postgres connection URL for t.
func PostgresURL(t Target) string {
	u := &url.URL{
		Scheme:   "postgres",
		Host:     t.Addr(),
		Path:     "/" + t.Database,
		RawQuery: "sslmode=disable",
	}
	user := t.User
	if user == "" {
		user = "postgres"
	}
	if t.Password != "" {
		u.User = url.UserPassword(user, t.Password)
	} else {
		u.User = url.User(user)
	}
	return u.String()
}

// AMQPURL builds an amqp URL for t. Guest credentials are used by default.
func AMQPURL(t Target) string {
	user, password := t.User, t.Password
	if user == "" {
		user, password = "guest", "guest"
	}
	u := &url.URL{Scheme: "amqp", Host: t.Addr(), User: url.UserPassword(user, password), Path: "/"}
	return u.String()
}

// NATSURL builds a nats URL for t.
func NATSURL(t Target) string {
	u := &url.URL{Scheme: "nats", Host: t.Addr()}
	if t.User != "" {
		u.User = url.UserPassword(t.User, t.Password)
	}
	return u.String()
}

func (p *Prober) probeMySQL(ctx context.Context, t Target) error {
	db, err := sql.Open("mysql", MySQLDSN(t))
	if err != nil {
		return err
	}
	defer db.Close()
	return db.PingContext(ctx)
}

func (p *Prober) probePostgres(ctx context.Context, t Target) error {
	conn, err := pgx.Connect(ctx, PostgresURL(t))
	if err != nil {
		return err
	}
	defer conn.Close(context.WithoutCancel(ctx))
	return conn.Ping(ctx)
}

func (p *Prober) probeRedis(ctx context.Context, t Target) error {
	client := redis.NewClient(&redis.Options{
		Addr:        t.Addr(),
		Password:    t.Password,
		DialTimeout: p.timeout,
	})
	defer client.Close()
	return client.Ping(ctx).Err()
}

func (p *Prober) probeAMQP(ctx context.Context, t Target) error {
	conn, err := amqp.DialConfig(AMQPURL(t), amqp.Config{
		Dial: amqp.DefaultDial(p.timeout),
	})
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		_ = conn.Close()
		return err
	}
	return conn.Close()
}

func (p *Prober) probeNATS(ctx context.Context, t Target) error {
	timeout := p.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}
	nc, err := nats.Connect(NATSURL(t), nats.Timeout(timeout), nats.NoReconnect())
	if err != nil {
		return err
	}
	defer nc.Close()
	if err := nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}
	return nil
}
