package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"tgn-site/internal/domain"
)

// fakeDB records statements and replays scripted rows.
type fakeDB struct {
	execSQL  []string
	execArgs [][]any
	execTag  pgconn.CommandTag
	execErr  error

	queryRows *fakeRows
	queryErr  error

	rowSQL  string
	rowArgs []any
	row     *fakeRow
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execSQL = append(f.execSQL, sql)
	f.execArgs = append(f.execArgs, args)
	return f.execTag, f.execErr
}

func (f *fakeDB) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.queryRows, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.rowSQL = sql
	f.rowArgs = args
	return f.row
}

type fakeRow struct {
	vals []any
	err  error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assignAll(dest, r.vals)
}

type fakeRows struct {
	vals [][]any
	idx  int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	return r.idx < len(r.vals)
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.vals[r.idx]
	r.idx++
	return assignAll(dest, row)
}

func assignAll(dest []any, vals []any) error {
	if len(dest) != len(vals) {
		return fmt.Errorf("scan: want %d destinations, got %d", len(vals), len(dest))
	}
	for i, v := range vals {
		switch d := dest[i].(type) {
		case *int64:
			*d = v.(int64)
		case *string:
			*d = v.(string)
		case **string:
			if v == nil {
				*d = nil
			} else {
				s := v.(string)
				*d = &s
			}
		case *time.Time:
			*d = v.(time.Time)
		default:
			return fmt.Errorf("scan: unsupported destination %T", dest[i])
		}
	}
	return nil
}

func postRow(id int64, title, published string) []any {
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	var pub any
	if published != "" {
		pub = published
	}
	return []any{id, title, "body", "info", nil, pub, now, now}
}

func TestNew_NilDB(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestEnsureSession_Upsert(t *testing.T) {
	db := &fakeDB{}
	s, err := New(db)
	require.NoError(t, err)

	require.NoError(t, s.EnsureSession(context.Background(), "sess-1", "Mozilla/5.0", "ab12cd34"))
	require.Len(t, db.execSQL, 1)
	require.Contains(t, db.execSQL[0], "INSERT INTO chat_sessions")
	require.Contains(t, db.execSQL[0], "ON CONFLICT (id) DO UPDATE SET updated_at")
	require.Equal(t, []any{"sess-1", "Mozilla/5.0", "ab12cd34"}, db.execArgs[0])
}

func TestAppendMessage_AssistantCarriesSources(t *testing.T) {
	db := &fakeDB{}
	s, err := New(db)
	require.NoError(t, err)

	sources := []domain.Source{{Title: "TGNについて", URL: "/qchan#about"}}
	require.NoError(t, s.AppendMessage(context.Background(), "sess-1", "assistant", "返事だよ", sources))

	args := db.execArgs[0]
	require.Equal(t, "sess-1", args[0])
	require.Equal(t, "assistant", args[1])
	require.Equal(t, "返事だよ", args[2])
	require.Contains(t, args[3].(string), `"/qchan#about"`)
}

func TestAppendMessage_UserTurnHasNullSources(t *testing.T) {
	db := &fakeDB{}
	s, err := New(db)
	require.NoError(t, err)

	require.NoError(t, s.AppendMessage(context.Background(), "sess-1", "user", "質問", nil))
	require.Nil(t, db.execArgs[0][3])
}

func TestListPosts(t *testing.T) {
	db := &fakeDB{queryRows: &fakeRows{vals: [][]any{
		postRow(2, "newer", "2025-07-01"),
		postRow(1, "older", ""),
	}}}
	s, err := New(db)
	require.NoError(t, err)

	posts, err := s.ListPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 2)
	require.Equal(t, "newer", posts[0].Title)
	require.Equal(t, "2025-07-01", *posts[0].PublishedAt)
	require.Nil(t, posts[1].PublishedAt)
	require.Nil(t, posts[1].ImageURL)
}

func TestGetPost_NotFound(t *testing.T) {
	db := &fakeDB{row: &fakeRow{err: pgx.ErrNoRows}}
	s, err := New(db)
	require.NoError(t, err)

	_, err = s.GetPost(context.Background(), 99)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreatePost_ReturnsID(t *testing.T) {
	db := &fakeDB{row: &fakeRow{vals: []any{int64(7)}}}
	s, err := New(db)
	require.NoError(t, err)

	pub := "2025-07-01"
	id, err := s.CreatePost(context.Background(), domain.Post{Title: "t", Content: "c", Category: "info", PublishedAt: &pub})
	require.NoError(t, err)
	require.Equal(t, int64(7), id)
	require.Contains(t, db.rowSQL, "RETURNING id")
	require.Equal(t, "t", db.rowArgs[0])
}

func TestUpdatePost_NotFound(t *testing.T) {
	db := &fakeDB{execTag: pgconn.NewCommandTag("UPDATE 0")}
	s, err := New(db)
	require.NoError(t, err)

	err = s.UpdatePost(context.Background(), domain.Post{ID: 42, Title: "t"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePost_HappyPath(t *testing.T) {
	db := &fakeDB{execTag: pgconn.NewCommandTag("UPDATE 1")}
	s, err := New(db)
	require.NoError(t, err)

	require.NoError(t, s.UpdatePost(context.Background(), domain.Post{ID: 42, Title: "t"}))
	require.True(t, strings.HasPrefix(strings.TrimSpace(db.execSQL[0]), "UPDATE posts"))
	require.Equal(t, int64(42), db.execArgs[0][5])
}

func TestDeletePost(t *testing.T) {
	db := &fakeDB{execTag: pgconn.NewCommandTag("DELETE 1")}
	s, err := New(db)
	require.NoError(t, err)

	require.NoError(t, s.DeletePost(context.Background(), 3))
	require.Equal(t, []any{int64(3)}, db.execArgs[0])
}

func TestListPosts_QueryError(t *testing.T) {
	db := &fakeDB{queryErr: errors.New("connection refused")}
	s, err := New(db)
	require.NoError(t, err)

	_, err = s.ListPosts(context.Background())
	require.Error(t, err)
	require.ErrorContains(t, err, "connection refused")
}
