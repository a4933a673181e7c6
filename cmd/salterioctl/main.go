package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"salterio-site/internal/backend/identity"
	"salterio-site/internal/backend/objectstore"
	"salterio-site/internal/backend/sqlstore"
	"salterio-site/internal/db"
	"salterio-site/internal/events"
	"salterio-site/internal/intake"
	"salterio-site/internal/members"
	"salterio-site/internal/migrations"
	"salterio-site/internal/seed"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "salterioctl",
		Usage: "maintenance tasks for the Salterio site",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "postgres:// or sqlite:// database URL",
				EnvVars: []string{"DATABASE_URL"},
				Value:   "sqlite://storage/salterio.db",
			},
		},
		Commands: []*cli.Command{
			migrateCommand(),
			userCommand(),
			seedCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func open(c *cli.Context) (*sqlx.DB, error) {
	dsn := c.String("database-url")
	if db.IsMemory(dsn) {
		return nil, fmt.Errorf("%s cannot be managed from the command line", db.MemoryDSN)
	}
	conn, err := db.Open(c.Context, dsn)
	if err != nil {
		return nil, err
	}
	if err := migrations.Apply(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply pending migrations",
				Action: func(c *cli.Context) error {
					conn, err := open(c)
					if err != nil {
						return err
					}
					defer conn.Close()
					return printVersion(conn)
				},
			},
			{
				Name:  "version",
				Usage: "print the applied schema version",
				Action: func(c *cli.Context) error {
					conn, err := db.Open(c.Context, c.String("database-url"))
					if err != nil {
						return err
					}
					defer conn.Close()
					return printVersion(conn)
				},
			},
		},
	}
}

func printVersion(conn *sqlx.DB) error {
	version, dirty, ok, err := migrations.Version(conn)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("No migrations applied")
		return nil
	}
	fmt.Printf("Schema version %d (dirty=%t)\n", version, dirty)
	return nil
}

func userCommand() *cli.Command {
	credentials := []cli.Flag{
		&cli.StringFlag{Name: "email", Required: true},
		&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"SALTERIO_PASSWORD"}},
	}
	return &cli.Command{
		Name:  "user",
		Usage: "manage sign-in identities",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "create an identity",
				Flags: credentials,
				Action: func(c *cli.Context) error {
					conn, err := open(c)
					if err != nil {
						return err
					}
					defer conn.Close()
					ident := identity.New(sqlstore.New(conn), identity.TokenService{})
					user, err := ident.CreateUser(c.Context, c.String("email"), c.String("password"))
					if err != nil {
						return err
					}
					fmt.Printf("Created %s (%s)\n", user.Email, user.ID)
					return nil
				},
			},
			{
				Name:  "password",
				Usage: "replace an identity's password",
				Flags: credentials,
				Action: func(c *cli.Context) error {
					conn, err := open(c)
					if err != nil {
						return err
					}
					defer conn.Close()
					ident := identity.New(sqlstore.New(conn), identity.TokenService{})
					if err := ident.SetPassword(c.Context, c.String("email"), c.String("password")); err != nil {
						return err
					}
					fmt.Printf("Password updated for %s\n", c.String("email"))
					return nil
				},
			},
		},
	}
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "insert demo events, members and enquiries",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "events", Value: 8},
			&cli.IntFlag{Name: "members", Value: 12},
			&cli.IntFlag{Name: "enquiries", Value: 3},
			&cli.Uint64Flag{Name: "seed", Usage: "random seed, 0 for time based"},
			&cli.StringFlag{Name: "media", Value: "storage/media", EnvVars: []string{"MEDIA_STORAGE_PATH"}},
			&cli.StringFlag{Name: "timezone", Value: "Africa/Lusaka", EnvVars: []string{"SITE_TIMEZONE"}},
		},
		Action: func(c *cli.Context) error {
			conn, err := open(c)
			if err != nil {
				return err
			}
			defer conn.Close()

			loc, err := time.LoadLocation(c.String("timezone"))
			if err != nil {
				return err
			}
			objects, err := objectstore.NewLocalStore(c.String("media"), "")
			if err != nil {
				return err
			}
			rows := sqlstore.New(conn)
			n := c.Uint64("seed")
			if n == 0 {
				n = uint64(time.Now().UnixNano())
			}

			g := seed.New(n,
				events.NewService(rows, loc, nil),
				members.NewService(rows, objects, nil),
				intake.NewService(rows, nil),
			)
			res, err := g.Run(c.Context, seed.Counts{
				Events:    c.Int("events"),
				Members:   c.Int("members"),
				Enquiries: c.Int("enquiries"),
			})
			fmt.Printf("Seeded %d events, %d members, %d enquiries\n", res.Events, res.Members, res.Enquiries)
			return err
		},
	}
}
