// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"log"
	"strings"
	"time"

	"weave/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by seed presets and tests.
type Factory struct {
	db   *gorm.DB
	opts Options
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	// seed gofakeit for richer content
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{db: db, opts: opts, nextID: 1000}
}

var (
	professions = []string{
		"Software Engineer", "Data Scientist", "Product Manager", "Designer",
		"Teacher", "Nurse", "Accountant", "Electrician", "Chef", "Photographer",
		"Journalist", "Architect", "Lawyer", "Translator", "Musician",
	}

	languages = []string{
		"English", "Spanish", "Mandarin", "Hindi", "Portuguese", "French",
		"German", "Japanese", "Arabic", "Russian",
	}

	hobbyTags = []string{
		"hiking", "chess", "photography", "cooking", "cycling", "gaming",
		"reading", "painting", "running", "gardening", "climbing", "yoga",
	}

	bios = []string{
		"Always learning something new",
		"Coffee first, everything else second",
		"Building things and breaking them",
		"Exploring one city at a time",
		"Here for the conversations",
	}
)

// CreateUser constructs and persists a sample `models.User` with a complete
// profile. Optional override functions may modify the generated user before
// saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	first := gofakeit.FirstName()
	last := gofakeit.LastName()
	profession := pick(professions)
	bio := pick(bios)
	language := pick(languages)
	hobbies := randomHobbies()

	user := &models.User{
		Email:          gofakeit.Email(),
		FirstName:      &first,
		LastName:       &last,
		Profession:     &profession,
		Bio:            &bio,
		NativeLanguage: &language,
		Hobbies:        &hobbies,
	}

	// Password handling: allow skipping bcrypt in dev fast mode
	if f.opts.SkipBcrypt {
		user.Password = "password123"
	} else {
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		user.Password = string(hashedPassword)
	}

	for _, override := range overrides {
		override(user)
	}
	user.ProfileComplete = user.ComputeProfileComplete()

	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		log.Printf("[dry-run] CreateUser: %s %s <%s>", first, last, user.Email)
		return user, nil
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateConnection persists a connection edge between two users with the
// given status. The unique pair index rejects duplicate edges; callers that
// seed random meshes should tolerate that error.
func (f *Factory) CreateConnection(author, recipient *models.User, status models.ConnectionStatus) error {
	conn := &models.Connection{
		AuthorID:    author.ID,
		RecipientID: recipient.ID,
		Status:      status,
	}
	if f.opts.DryRun {
		log.Printf("[dry-run] CreateConnection: %d -> %d (%s)", author.ID, recipient.ID, status)
		return nil
	}
	return f.db.Create(conn).Error
}

func pick(values []string) string {
	return values[gofakeit.Number(0, len(values)-1)]
}

func randomHobbies() string {
	n := gofakeit.Number(1, 4)
	chosen := make(map[string]struct{}, n)
	for len(chosen) < n {
		chosen[pick(hobbyTags)] = struct{}{}
	}
	tags := make([]string, 0, n)
	for t := range chosen {
		tags = append(tags, t)
	}
	return strings.Join(tags, ",")
}

// uniqueEmail returns an email unlikely to collide within one seeding run.
func uniqueEmail(i int) string {
	return fmt.Sprintf("%s+%d@%s", gofakeit.Username(), i, gofakeit.DomainName())
}
