// Package seed loads guestbook fixtures into a fresh database.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"memorial-service/internal/auth"
	"memorial-service/internal/classmate"
	"memorial-service/internal/comment"
	"memorial-service/internal/message"
	"memorial-service/internal/moderation"
	"memorial-service/internal/province"
	"memorial-service/internal/upload"

	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"gopkg.in/yaml.v3"
)

type Fixture struct {
	Admin      *AdminFixture      `yaml:"admin"`
	Provinces  []ProvinceFixture  `yaml:"provinces"`
	Classmates []ClassmateFixture `yaml:"classmates"`
	Messages   []MessageFixture   `yaml:"messages"`
}

type AdminFixture struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type ProvinceFixture struct {
	Name        string  `yaml:"name"`
	EnglishName string  `yaml:"englishName"`
	Description string  `yaml:"description"`
	X           float64 `yaml:"x"`
	Y           float64 `yaml:"y"`
}

type ClassmateFixture struct {
	Name      string `yaml:"name"`
	School    string `yaml:"school"`
	Major     string `yaml:"major"`
	Province  string `yaml:"province"` // englishName of a province above
	ImagePath string `yaml:"imagePath"`
}

type MessageFixture struct {
	Author   string           `yaml:"author"`
	Content  string           `yaml:"content"`
	Status   string           `yaml:"status"`
	Likes    int64            `yaml:"likes"`
	Pinned   bool             `yaml:"pinned"`
	Comments []CommentFixture `yaml:"comments"`
}

type CommentFixture struct {
	Author  string `yaml:"author"`
	Content string `yaml:"content"`
	Status  string `yaml:"status"`
	Likes   int64  `yaml:"likes"`
}

// Load reads a YAML fixture file.
func Load(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, f.validate()
}

func (f *Fixture) validate() error {
	provinces := make(map[string]bool, len(f.Provinces))
	for _, p := range f.Provinces {
		if p.Name == "" || p.EnglishName == "" {
			return errors.New("province name and englishName are required")
		}
		provinces[p.EnglishName] = true
	}
	for _, c := range f.Classmates {
		if !provinces[c.Province] {
			return fmt.Errorf("classmate %q references unknown province %q", c.Name, c.Province)
		}
	}
	pinned := 0
	for _, m := range f.Messages {
		if m.Pinned {
			pinned++
		}
		if _, err := parseStatus(m.Status); err != nil {
			return fmt.Errorf("message by %q: %w", m.Author, err)
		}
		for _, c := range m.Comments {
			if _, err := parseStatus(c.Status); err != nil {
				return fmt.Errorf("comment by %q: %w", c.Author, err)
			}
		}
	}
	if pinned > 1 {
		return fmt.Errorf("at most one message can be pinned, got %d", pinned)
	}
	return nil
}

// parseStatus defaults an empty status to visible so fixture content shows up.
func parseStatus(raw string) (moderation.Status, error) {
	if strings.TrimSpace(raw) == "" {
		return moderation.StatusVisible, nil
	}
	return moderation.Parse(raw)
}

// Run wipes existing content and inserts the fixture in one transaction.
// The admin, if any, is created through admins, which leaves an existing
// admin untouched.
func Run(ctx context.Context, db *bun.DB, admins auth.Service, f *Fixture, log zerolog.Logger) error {
	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.ExecContext(ctx, "TRUNCATE comments, messages, classmates, provinces RESTART IDENTITY CASCADE"); err != nil {
			return fmt.Errorf("wipe content: %w", err)
		}
		log.Info().Msg("existing content wiped")

		provinceIDs := make(map[string]int64, len(f.Provinces))
		for _, pf := range f.Provinces {
			p := &province.Province{
				Name:        pf.Name,
				EnglishName: pf.EnglishName,
				Description: pf.Description,
				Position:    province.Position{X: pf.X, Y: pf.Y},
			}
			if _, err := tx.NewInsert().Model(p).Exec(ctx); err != nil {
				return fmt.Errorf("insert province %q: %w", pf.Name, err)
			}
			provinceIDs[pf.EnglishName] = p.ID
		}
		log.Info().Int("count", len(f.Provinces)).Msg("provinces seeded")

		for _, cf := range f.Classmates {
			imagePath := cf.ImagePath
			if imagePath == "" {
				imagePath = upload.DefaultImagePath
			}
			c := &classmate.Classmate{
				Name:       cf.Name,
				School:     cf.School,
				Major:      cf.Major,
				ProvinceID: provinceIDs[cf.Province],
				ImagePath:  imagePath,
			}
			if _, err := tx.NewInsert().Model(c).Exec(ctx); err != nil {
				return fmt.Errorf("insert classmate %q: %w", cf.Name, err)
			}
		}
		log.Info().Int("count", len(f.Classmates)).Msg("classmates seeded")

		comments := 0
		for _, mf := range f.Messages {
			status, _ := parseStatus(mf.Status)
			m := &message.Message{
				Author:   mf.Author,
				Content:  mf.Content,
				Status:   status,
				Likes:    mf.Likes,
				IsPinned: mf.Pinned,
			}
			if _, err := tx.NewInsert().Model(m).Exec(ctx); err != nil {
				return fmt.Errorf("insert message by %q: %w", mf.Author, err)
			}

			for _, cf := range mf.Comments {
				status, _ := parseStatus(cf.Status)
				c := &comment.Comment{
					MessageID: m.ID,
					Author:    cf.Author,
					Content:   cf.Content,
					Status:    status,
					Likes:     cf.Likes,
				}
				if _, err := tx.NewInsert().Model(c).Exec(ctx); err != nil {
					return fmt.Errorf("insert comment by %q: %w", cf.Author, err)
				}
				comments++
			}
		}
		log.Info().Int("messages", len(f.Messages)).Int("comments", comments).Msg("guestbook seeded")
		return nil
	})
	if err != nil {
		return err
	}

	if f.Admin == nil {
		return nil
	}
	admin, err := admins.Setup(ctx, auth.SetupRequest{Username: f.Admin.Username, Password: f.Admin.Password})
	switch {
	case errors.Is(err, auth.ErrAdminExists):
		log.Info().Msg("admin already exists, skipping")
		return nil
	case err != nil:
		return fmt.Errorf("create admin: %w", err)
	}
	log.Warn().Str("username", admin.Username).Msg("default admin created, change its password")
	return nil
}
