package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"weave/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	ShouldClean bool
	SkipBcrypt  bool
	DryRun      bool
}

// Seeder populates the database with a realistic connection mesh.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
	opts    Options
}

// NewSeeder creates a Seeder bound to the provided Gorm DB.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{
		db:      db,
		factory: NewFactory(db, opts),
		opts:    opts,
	}
}

// Seed populates the database with test data: users with complete profiles
// and a connection mesh of accepted and pending edges. The mesh is built in
// clusters so second-degree traversal has material to work with.
func (s *Seeder) Seed() error {
	log.Printf("Starting database seeding with %d users...", s.opts.NumUsers)

	if s.opts.ShouldClean {
		if err := s.ClearAll(); err != nil {
			log.Println("Warning: Could not clear all existing data, but continuing anyway...")
		}
	}

	users, err := s.createUsers(s.opts.NumUsers)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("%d test users created", len(users))

	accepted, pending, err := s.createConnectionMesh(users)
	if err != nil {
		return fmt.Errorf("failed to create connection mesh: %w", err)
	}
	log.Printf("%d accepted and %d pending connections created", accepted, pending)

	log.Println("Database seeding completed successfully!")
	return nil
}

// ClearAll truncates seeded tables.
func (s *Seeder) ClearAll() error {
	log.Println("Clearing existing data...")
	sql := `TRUNCATE TABLE connections, users RESTART IDENTITY CASCADE;`
	return s.db.Exec(sql).Error
}

func (s *Seeder) createUsers(n int) ([]*models.User, error) {
	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		i := i
		user, err := s.factory.CreateUser(func(u *models.User) {
			u.Email = uniqueEmail(i)
		})
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// createConnectionMesh links users into overlapping clusters. Within a
// cluster most pairs get accepted edges; a sprinkling of pending edges
// crosses cluster boundaries so suggestion exclusion has cases to hit.
func (s *Seeder) createConnectionMesh(users []*models.User) (accepted, pending int, err error) {
	if len(users) < 3 {
		return 0, 0, nil
	}

	//nolint:gosec // Weak random number generator is fine for seeding
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	const clusterSize = 8
	for start := 0; start < len(users); start += clusterSize / 2 {
		end := start + clusterSize
		if end > len(users) {
			end = len(users)
		}
		cluster := users[start:end]

		for i := 0; i < len(cluster); i++ {
			for j := i + 1; j < len(cluster); j++ {
				roll := r.Float64()
				switch {
				case roll < 0.45:
					if cerr := s.factory.CreateConnection(cluster[i], cluster[j], models.ConnectionStatusAccepted); cerr == nil {
						accepted++
					}
				case roll < 0.55:
					if cerr := s.factory.CreateConnection(cluster[i], cluster[j], models.ConnectionStatusPending); cerr == nil {
						pending++
					}
				}
			}
		}
	}
	return accepted, pending, nil
}
