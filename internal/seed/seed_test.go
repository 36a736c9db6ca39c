package seed_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"memorial-service/internal/app"
	"memorial-service/internal/auth"
	"memorial-service/internal/classmate"
	"memorial-service/internal/comment"
	"memorial-service/internal/message"
	"memorial-service/internal/metrics"
	"memorial-service/internal/moderation"
	"memorial-service/internal/seed"
	"memorial-service/internal/testing/testdb"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureYAML = `
admin:
  username: keeper
  password: password123
provinces:
  - name: 四川
    englishName: Sichuan
    x: 0.42
    y: 0.58
  - name: 江苏
    englishName: Jiangsu
    description: 鱼米之乡
    x: 0.71
    y: 0.44
classmates:
  - name: 李雷
    school: 四川大学
    major: 物理
    province: Sichuan
messages:
  - author: 韩梅梅
    content: 一路走好
    pinned: true
    likes: 3
    comments:
      - author: 李雷
        content: 同感
        likes: 2
      - author: 匿名
        content: 待审核
        status: pending
  - author: 老师
    content: 隐藏内容
    status: hidden
`

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	f, err := seed.Load(writeFixture(t, fixtureYAML))
	require.NoError(t, err)

	assert.Equal(t, "keeper", f.Admin.Username)
	assert.Len(t, f.Provinces, 2)
	assert.Equal(t, 0.71, f.Provinces[1].X)
	require.Len(t, f.Messages, 2)
	assert.True(t, f.Messages[0].Pinned)
	assert.Len(t, f.Messages[0].Comments, 2)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"unknown province": `
provinces:
  - {name: 四川, englishName: Sichuan}
classmates:
  - {name: 李雷, province: Tibet}
`,
		"two pins": `
messages:
  - {author: a, content: x, pinned: true}
  - {author: b, content: y, pinned: true}
`,
		"bad status": `
messages:
  - {author: a, content: x, status: approved}
`,
		"not yaml": "messages: [",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := seed.Load(writeFixture(t, content))
			assert.Error(t, err)
		})
	}

	_, err := seed.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRun_Shared(t *testing.T) {
	pgContainer := testdb.SetupSharedPostgres(t)
	defer pgContainer.Cleanup(t)

	pgContainer.RunMigrations(t, app.Migrations()...)

	mockMetrics := metrics.NewMock()
	tokens := auth.NewTokenIssuer("seed-secret", "memorial-service", time.Hour)
	admins := auth.NewService(auth.NewRepository(pgContainer.DB, mockMetrics), tokens, auth.NewMemoryRevoker(), mockMetrics)
	f, err := seed.Load(writeFixture(t, fixtureYAML))
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		require.NoError(t, seed.Run(ctx, pgContainer.DB, admins, f, zerolog.Nop()))
	}

	var messages []message.Message
	require.NoError(t, pgContainer.DB.NewSelect().Model(&messages).Order("m.id").Scan(ctx))
	require.Len(t, messages, 2, "second run must replace, not duplicate")
	assert.True(t, messages[0].IsPinned)
	assert.Equal(t, moderation.StatusVisible, messages[0].Status)
	assert.Equal(t, int64(3), messages[0].Likes)
	assert.Equal(t, moderation.StatusHidden, messages[1].Status)

	var comments []comment.Comment
	require.NoError(t, pgContainer.DB.NewSelect().Model(&comments).Order("cm.id").Scan(ctx))
	require.Len(t, comments, 2)
	assert.Equal(t, messages[0].ID, comments[0].MessageID)
	assert.Equal(t, moderation.StatusPending, comments[1].Status)

	var classmates []classmate.Classmate
	require.NoError(t, pgContainer.DB.NewSelect().Model(&classmates).Relation("Province").Scan(ctx))
	require.Len(t, classmates, 1)
	require.NotNil(t, classmates[0].Province)
	assert.Equal(t, "Sichuan", classmates[0].Province.EnglishName)
	assert.Equal(t, "images/default.png", classmates[0].ImagePath)

	admin, err := admins.Login(ctx, auth.LoginRequest{Username: "keeper", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, admin.Token)
	count, err := pgContainer.DB.NewSelect().Model((*auth.Admin)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
