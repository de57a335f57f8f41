// Package user はログイン可能なユーザーの登録を扱う。
package user

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/hitoshi/fundswap/internal/auth"
	"github.com/hitoshi/fundswap/internal/model"
	"github.com/hitoshi/fundswap/internal/repository"
)

// SeedUser はシードファイルの1ユーザー分の定義。
type SeedUser struct {
	Name        string `yaml:"name"`
	DisplayName string `yaml:"display_name"`
}

// SeedFile はシードファイル全体の構造。
//
//	users:
//	  - name: alice
//	    display_name: Alice
type SeedFile struct {
	Users []SeedUser `yaml:"users"`
}

// ParseSeedFile はYAMLを読み込み、名前を正規化して検証する。
// 名前が空、または正規化後に重複する場合はエラーを返す。
func ParseSeedFile(r io.Reader) ([]SeedUser, error) {
	var file SeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode seed file: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Users))
	users := make([]SeedUser, 0, len(file.Users))
	for i, u := range file.Users {
		name := auth.NormalizeName(u.Name)
		if name == "" {
			return nil, fmt.Errorf("users[%d]: name is required", i)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("users[%d]: duplicate name %q", i, name)
		}
		seen[name] = struct{}{}

		display := strings.TrimSpace(u.DisplayName)
		if display == "" {
			display = u.Name
		}
		users = append(users, SeedUser{Name: name, DisplayName: strings.TrimSpace(display)})
	}
	return users, nil
}

// Seeder はシードユーザーをデータベースに登録する。
type Seeder struct {
	userRepo repository.UserRepository
	logger   *slog.Logger
	now      func() time.Time
}

// NewSeeder はSeederを生成する。
func NewSeeder(userRepo repository.UserRepository, logger *slog.Logger) *Seeder {
	return &Seeder{
		userRepo: userRepo,
		logger:   logger,
		now:      time.Now,
	}
}

// SeedFromFile はpathのYAMLを読み込んで登録する。
func (s *Seeder) SeedFromFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	users, err := ParseSeedFile(f)
	if err != nil {
		return 0, err
	}
	return s.Seed(ctx, users)
}

// Seed はユーザーを名前をキーに登録する。既存ユーザーは表示名のみ更新される。
// 何度実行しても結果は同じになる。
func (s *Seeder) Seed(ctx context.Context, users []SeedUser) (int, error) {
	for _, u := range users {
		saved, err := s.userRepo.Upsert(ctx, &model.User{
			ID:          uuid.NewString(),
			Name:        u.Name,
			DisplayName: u.DisplayName,
			CreatedAt:   s.now(),
		})
		if err != nil {
			return 0, fmt.Errorf("failed to seed user %q: %w", u.Name, err)
		}
		s.logger.Info("seeded user",
			slog.String("user_id", saved.ID),
			slog.String("name", saved.Name),
		)
	}
	return len(users), nil
}
