package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/soaringjerry/FootPulse/internal/api"
	dbstore "github.com/soaringjerry/FootPulse/internal/db"
	"github.com/soaringjerry/FootPulse/internal/models"
	"github.com/soaringjerry/FootPulse/internal/services"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations to the SQLite database",
	RunE: func(cmd *cobra.Command, args []string) error {
		sqlDB, err := dbstore.Open(cfg.DB.Path)
		if err != nil {
			return err
		}
		defer sqlDB.Close()
		ran, err := dbstore.RunMigrations(sqlDB, cfg.DB.MigrationsDir)
		if err != nil {
			return err
		}
		if len(ran) == 0 {
			log.Info().Str("path", cfg.DB.Path).Msg("schema up to date")
			return nil
		}
		log.Info().Str("path", cfg.DB.Path).Strs("applied", ran).Msg("migrations applied")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demo academy (admin, coach, player, evaluation template)",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(false)
		if err != nil {
			return err
		}
		defer closeStore()
		return seedDemo(store)
	},
}

const demoPassword = "password123"

// demoSeed is the starter academy loaded by `seed` and `serve --memory`.
type demoSeed struct {
	Users     []*models.User
	Templates []*models.Template
}

func demoData(now time.Time) (*demoSeed, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}
	user := func(id, name, email, mobile string, role models.Role, avatar int) *models.User {
		return &models.User{
			ID: id, Name: name, Email: email, PassHash: hash, Mobile: mobile, Role: role,
			Avatar:    fmt.Sprintf("https://picsum.photos/200/200?random=%d", avatar),
			CreatedAt: now,
		}
	}
	player := user("u-player-1", "Leo Messi Jr.", "leo@footpulse.app", "+44 7700 900002", models.RolePlayer, 3)
	player.TrainerID = "u-trainer-1"
	return &demoSeed{
		Users: []*models.User{
			user("u-admin-1", "Academy Director", "admin@footpulse.app", "+44 7700 900000", models.RoleAdmin, 1),
			user("u-trainer-1", "Coach Mike Johnson", "mike@footpulse.app", "+44 7700 900001", models.RoleTrainer, 2),
			player,
		},
		Templates: []*models.Template{{
			ID:            "t-trainer-eval",
			Name:          "Trainer's Monthly Player Evaluation",
			ArName:        "تقييم المدرب الشهري للاعب",
			Description:   "Comprehensive performance review covering technical, physical, and behavioral metrics.",
			ArDescription: "مراجعة شاملة للأداء تغطي المقاييس الفنية والبدنية والسلوكية.",
			Categories: []models.Category{{
				ID: "c-tech", Name: "Technical Proficiency", ArName: "الكفاءة الفنية", Weight: 100,
				Questions: []models.Question{{
					ID: "q-tech-1", Text: "Ball Control & First Touch", ArText: "التحكم بالكرة واللمسة الأولى",
					Weight: 100, Type: models.QuestionRating,
				}},
			}},
			CreatedAt: now,
		}},
	}, nil
}

// seedDemo copies the demo academy into dst. Records that already exist are
// left untouched, so seeding twice is harmless.
func seedDemo(dst api.Store) error {
	seed, err := demoData(time.Now().UTC())
	if err != nil {
		return err
	}
	added, err := copySeedToStore(seed, dst)
	if err != nil {
		return fmt.Errorf("seed demo data: %w", err)
	}
	log.Info().Int("added", added).Msg("demo academy seeded")
	return nil
}

func copySeedToStore(seed *demoSeed, dst api.Store) (int, error) {
	added := 0
	skip := func(err error) bool {
		se, ok := services.AsServiceError(err)
		return ok && se.Code == services.ErrorConflict
	}
	for _, u := range seed.Users {
		existing, err := dst.FindUserByEmail(strings.ToLower(u.Email))
		if err != nil {
			return added, err
		}
		if existing != nil {
			continue
		}
		if err := dst.AddUser(u); err != nil && !skip(err) {
			return added, fmt.Errorf("add user %s: %w", u.ID, err)
		} else if err == nil {
			added++
		}
	}
	for _, t := range seed.Templates {
		if err := services.ValidateTemplate(t.Categories); err != nil {
			return added, errors.Join(fmt.Errorf("template %s", t.ID), err)
		}
		if err := dst.AddTemplate(t); err != nil && !skip(err) {
			return added, fmt.Errorf("add template %s: %w", t.ID, err)
		} else if err == nil {
			added++
		}
	}
	return added, nil
}
