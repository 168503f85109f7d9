// Command hash-generator prints bcrypt hashes for people.password_hash and,
// given -uname, stores the account directly.
//
//	hash-generator secret1 secret2
//	hash-generator -uname libby -role library -name "Front Desk" secret
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/phrazzld/dibs-api/internal/config"
	"github.com/phrazzld/dibs-api/internal/domain"
	"github.com/phrazzld/dibs-api/internal/platform/sqlstore"
	"github.com/phrazzld/dibs-api/internal/redact"
	"github.com/phrazzld/dibs-api/internal/service/auth"
)

func main() {
	uname := flag.String("uname", "", "store the account under this user name")
	role := flag.String("role", "", "comma separated roles, e.g. library")
	name := flag.String("name", "", "display name")
	flag.Parse()

	passwords := flag.Args()
	if len(passwords) == 0 {
		fmt.Fprintln(os.Stderr, "usage: hash-generator [-uname u -role r -name n] password...")
		os.Exit(2)
	}

	if *uname == "" {
		for _, password := range passwords {
			hash, err := auth.HashPassword(password)
			if err != nil {
				log.Fatalf("failed to hash password: %v", err)
			}
			fmt.Println(hash)
		}
		return
	}

	if len(passwords) != 1 {
		log.Fatal("exactly one password is needed with -uname")
	}
	person := &domain.Person{Uname: *uname, Role: *role, DisplayName: *name}
	if err := createPerson(context.Background(), person, passwords[0]); err != nil {
		log.Fatalf("failed to create %s: %s", *uname, redact.Error(err))
	}
	fmt.Printf("created %s (role %q)\n", person.Uname, person.Role)
}

// createPerson hashes password and inserts person into the configured database.
func createPerson(ctx context.Context, person *domain.Person, password string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	person.PasswordHash = hash

	db, dialect, err := sqlstore.Open(ctx, sqlstore.Options{Driver: cfg.Database.Driver, URL: cfg.Database.URL})
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return sqlstore.NewPersonStore(db, dialect, nil).Create(ctx, person)
}
