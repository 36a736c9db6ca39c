package message_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"memorial-service/internal/comment"
	"memorial-service/internal/events"
	"memorial-service/internal/logger"
	"memorial-service/internal/message"
	"memorial-service/internal/metrics"
	"memorial-service/internal/moderation"
	"memorial-service/internal/testing/testdb"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allowAll(next http.Handler) http.Handler { return next }

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func TestMessageService_Shared(t *testing.T) {
	pgContainer := testdb.SetupSharedPostgres(t)
	defer pgContainer.Cleanup(t)

	pgContainer.RunMigrations(t, message.Migration(), comment.Migration())

	mockMetrics := metrics.NewMock()
	log := logger.Discard()
	publisher := &recordingPublisher{}
	notifier := events.NewNotifier(publisher, log)

	commentService := comment.NewService(comment.NewRepository(pgContainer.DB, mockMetrics), notifier, mockMetrics)
	repo := message.NewRepository(pgContainer.DB, mockMetrics)
	service := message.NewService(repo, commentService, notifier, mockMetrics)
	router := chi.NewRouter()
	message.NewHandler(service, log).RegisterRoutes(router, allowAll)

	ctx := context.Background()
	base := time.Date(2024, 4, 4, 10, 0, 0, 0, time.UTC)
	seq := 0
	insert := func(t *testing.T, author string, status moderation.Status) *message.Message {
		seq++
		m := &message.Message{Author: author, Content: "怀念 " + author, Status: status, CreatedAt: base.Add(time.Duration(seq) * time.Minute)}
		_, err := pgContainer.DB.NewInsert().Model(m).Exec(ctx)
		require.NoError(t, err)
		return m
	}
	insertComment := func(t *testing.T, messageID int64, author string, status moderation.Status, likes int64) *comment.Comment {
		c := &comment.Comment{MessageID: messageID, Author: author, Content: "同感", Status: status, Likes: likes}
		_, err := pgContainer.DB.NewInsert().Model(c).Exec(ctx)
		require.NoError(t, err)
		return c
	}
	cleanup := func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "comments", "messages")
		publisher.reset()
	}
	pinnedCount := func(t *testing.T) int {
		n, err := pgContainer.DB.NewSelect().Model((*message.Message)(nil)).Where("is_pinned").Count(ctx)
		require.NoError(t, err)
		return n
	}

	t.Run("CreateMessage_StartsPending", func(t *testing.T) {
		cleanup(t)

		req := httptest.NewRequest(http.MethodPost, "/messages", jsonBody(t, map[string]string{"author": " 小明 ", "content": " 一路走好 "}))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var response message.CreateMessageResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		require.NotNil(t, response.Message)
		assert.Equal(t, "小明", response.Message.Author)
		assert.Equal(t, "一路走好", response.Message.Content)
		assert.Equal(t, moderation.StatusPending, response.Message.Status)
		assert.Zero(t, response.Message.Likes)
		assert.False(t, response.Message.IsPinned)
		assert.NotEmpty(t, response.Info)
		assert.Equal(t, []events.Type{events.MessageSubmitted}, publisher.types())

		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/messages/public", nil))
		assert.JSONEq(t, "[]", w.Body.String())
	})

	t.Run("CreateMessage_RequiresAuthorAndContent", func(t *testing.T) {
		cleanup(t)

		for _, payload := range []map[string]string{
			{"author": "小红"},
			{"content": "hello"},
			{"author": "   ", "content": "hello"},
		} {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/messages", jsonBody(t, payload)))
			assert.Equal(t, http.StatusBadRequest, w.Code, payload)
		}

		count, err := pgContainer.DB.NewSelect().Model((*message.Message)(nil)).Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("ListPublic_VisibleNewestFirst", func(t *testing.T) {
		cleanup(t)
		older := insert(t, "甲", moderation.StatusVisible)
		insert(t, "乙", moderation.StatusHidden)
		insert(t, "丙", moderation.StatusPending)
		newer := insert(t, "丁", moderation.StatusVisible)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/messages/public", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var response []message.Message
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		require.Len(t, response, 2)
		assert.Equal(t, newer.ID, response[0].ID)
		assert.Equal(t, older.ID, response[1].ID)
	})

	t.Run("AdminListByStatus", func(t *testing.T) {
		cleanup(t)
		insert(t, "甲", moderation.StatusVisible)
		hidden := insert(t, "乙", moderation.StatusHidden)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/messages/admin/status/hidden", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var response []message.Message
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		require.Len(t, response, 1)
		assert.Equal(t, hidden.ID, response[0].ID)

		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/messages/admin/status/deleted", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/messages/admin/all", nil))
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Len(t, response, 2)
	})

	t.Run("GetPinned_NoneIs404", func(t *testing.T) {
		cleanup(t)
		insert(t, "甲", moderation.StatusVisible)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/messages/pinned", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "no pinned message")
	})

	t.Run("SetPinned_MovesThePin", func(t *testing.T) {
		cleanup(t)
		a := insert(t, "甲", moderation.StatusVisible)
		b := insert(t, "乙", moderation.StatusVisible)

		for _, id := range []int64{a.ID, b.ID} {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, fmt.Sprintf("/messages/admin/%d/pin", id), jsonBody(t, map[string]bool{"isPinned": true})))
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		}
		assert.Equal(t, 1, pinnedCount(t))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/messages/pinned", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var pinned message.Message
		require.NoError(t, json.NewDecoder(w.Body).Decode(&pinned))
		assert.Equal(t, b.ID, pinned.ID)
		assert.True(t, pinned.IsPinned)

		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, fmt.Sprintf("/messages/admin/%d/pin", b.ID), jsonBody(t, map[string]bool{"isPinned": false})))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 0, pinnedCount(t))
	})

	t.Run("SetPinned_HiddenMessageIsNotPublic", func(t *testing.T) {
		cleanup(t)
		m := insert(t, "甲", moderation.StatusHidden)

		_, err := service.SetPinned(ctx, m.ID, true)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/messages/pinned", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("SetPinned_NotFound", func(t *testing.T) {
		cleanup(t)
		m := insert(t, "甲", moderation.StatusVisible)
		_, err := service.SetPinned(ctx, m.ID, true)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/messages/admin/9999/pin", jsonBody(t, map[string]bool{"isPinned": true})))
		assert.Equal(t, http.StatusNotFound, w.Code)

		stored, err := repo.GetByID(ctx, m.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsPinned)
	})

	t.Run("SetPinned_MissingFlag", func(t *testing.T) {
		cleanup(t)
		m := insert(t, "甲", moderation.StatusVisible)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, fmt.Sprintf("/messages/admin/%d/pin", m.ID), jsonBody(t, map[string]string{})))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("SetPinned_ConcurrentKeepsSinglePin", func(t *testing.T) {
		cleanup(t)
		const n = 8
		ids := make([]int64, n)
		for i := range ids {
			ids[i] = insert(t, fmt.Sprintf("同学%d", i), moderation.StatusVisible).ID
		}

		var wg sync.WaitGroup
		errs := make(chan error, n)
		for _, id := range ids {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				_, err := service.SetPinned(ctx, id, true)
				errs <- err
			}(id)
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			assert.NoError(t, err)
		}
		assert.Equal(t, 1, pinnedCount(t))
	})

	t.Run("LikeMessage_Increments", func(t *testing.T) {
		cleanup(t)
		m := insert(t, "甲", moderation.StatusVisible)

		for want := int64(1); want <= 3; want++ {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/messages/%d/like", m.ID), nil))
			require.Equal(t, http.StatusOK, w.Code)
			var response message.LikeResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, want, response.Likes)
		}
	})

	t.Run("LikeMessage_Concurrent", func(t *testing.T) {
		cleanup(t)
		m := insert(t, "甲", moderation.StatusPending)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := service.LikeMessage(ctx, m.ID)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		stored, err := repo.GetByID(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(20), stored.Likes)
	})

	t.Run("LikeMessage_NotFound", func(t *testing.T) {
		cleanup(t)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/messages/404/like", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("SetStatus", func(t *testing.T) {
		cleanup(t)
		m := insert(t, "甲", moderation.StatusPending)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, fmt.Sprintf("/messages/admin/%d/status", m.ID), jsonBody(t, map[string]string{"status": "visible"})))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var response message.Message
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, moderation.StatusVisible, response.Status)
		assert.Contains(t, publisher.types(), events.MessageStatusChanged)
	})

	t.Run("SetStatus_InvalidLeavesRowUnchanged", func(t *testing.T) {
		cleanup(t)
		m := insert(t, "甲", moderation.StatusHidden)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, fmt.Sprintf("/messages/admin/%d/status", m.ID), jsonBody(t, map[string]string{"status": "approved"})))
		assert.Equal(t, http.StatusBadRequest, w.Code)

		_, err := service.SetStatus(ctx, m.ID, "approved")
		assert.ErrorIs(t, err, moderation.ErrInvalidStatus)

		stored, err := repo.GetByID(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, moderation.StatusHidden, stored.Status)
	})

	t.Run("SetStatus_NotFound", func(t *testing.T) {
		cleanup(t)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/messages/admin/31337/status", jsonBody(t, map[string]string{"status": "visible"})))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("GetMessage_WithVisibleCommentsByLikes", func(t *testing.T) {
		cleanup(t)
		m := insert(t, "甲", moderation.StatusPending)
		low := insertComment(t, m.ID, "a", moderation.StatusVisible, 1)
		insertComment(t, m.ID, "b", moderation.StatusHidden, 50)
		high := insertComment(t, m.ID, "c", moderation.StatusVisible, 9)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/messages/%d", m.ID), nil))

		require.Equal(t, http.StatusOK, w.Code)
		var response message.DetailResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		require.NotNil(t, response.Message)
		assert.Equal(t, m.ID, response.Message.ID)
		require.Len(t, response.Comments, 2)
		assert.Equal(t, high.ID, response.Comments[0].ID)
		assert.Equal(t, low.ID, response.Comments[1].ID)
	})

	t.Run("GetMessage_NotFound", func(t *testing.T) {
		cleanup(t)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/messages/12345", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/messages/abc", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("DeleteMessage_CascadesComments", func(t *testing.T) {
		cleanup(t)
		m := insert(t, "甲", moderation.StatusVisible)
		other := insert(t, "乙", moderation.StatusVisible)
		insertComment(t, m.ID, "a", moderation.StatusVisible, 0)
		insertComment(t, m.ID, "b", moderation.StatusPending, 0)
		kept := insertComment(t, other.ID, "c", moderation.StatusVisible, 0)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/messages/admin/%d", m.ID), nil))
		require.Equal(t, http.StatusOK, w.Code)

		var remaining []comment.Comment
		require.NoError(t, pgContainer.DB.NewSelect().Model(&remaining).Scan(ctx))
		require.Len(t, remaining, 1)
		assert.Equal(t, kept.ID, remaining[0].ID)

		_, err := repo.GetByID(ctx, m.ID)
		assert.ErrorIs(t, err, message.ErrMessageNotFound)

		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/messages/admin/%d", m.ID), nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
