package model_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/arbor-orm/arbor"
	"github.com/arbor-orm/arbor/db"
	"github.com/arbor-orm/arbor/dialect"
	"github.com/arbor-orm/arbor/model"
	"github.com/arbor-orm/arbor/query"
	"github.com/arbor-orm/arbor/schema"
)

// blog is the fixture graph shared by the end-to-end tests: users with
// posts, polymorphic comments on posts and users, and tags attached to
// posts through both a plain and a polymorphic pivot.
type blog struct {
	conn    *db.Connection
	user    *model.Type
	post    *model.Type
	comment *model.Type
	tag     *model.Type
}

func newBlog(t *testing.T) *blog {
	t.Helper()
	conn, err := db.Connect(db.Config{Driver: dialect.SQLite, Database: ":memory:"})
	require.NoError(t, err)
	conn.DB().SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })

	s := schema.New(conn)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, "users", func(b *schema.Blueprint) {
		b.ID()
		b.String("name")
		b.String("email").Nullable()
		b.Timestamps()
		b.SoftDeletes()
	}))
	require.NoError(t, s.Create(ctx, "posts", func(b *schema.Blueprint) {
		b.ID()
		b.ForeignID("user_id")
		b.String("title")
		b.Text("body").Nullable()
	}))
	require.NoError(t, s.Create(ctx, "comments", func(b *schema.Blueprint) {
		b.ID()
		b.String("commentable_type")
		b.BigInteger("commentable_id")
		b.Text("body")
	}))
	require.NoError(t, s.Create(ctx, "tags", func(b *schema.Blueprint) {
		b.ID()
		b.String("name")
	}))
	require.NoError(t, s.Create(ctx, "post_tag", func(b *schema.Blueprint) {
		b.ForeignID("post_id")
		b.ForeignID("tag_id")
	}))
	require.NoError(t, s.Create(ctx, "taggables", func(b *schema.Blueprint) {
		b.ForeignID("tag_id")
		b.BigInteger("taggable_id")
		b.String("taggable_type")
	}))

	f := &blog{
		conn:    conn,
		user:    model.Define("user", model.Fillable("name", "email"), model.SoftDeletes()),
		post:    model.Define("post", model.Fillable("title", "body", "user_id"), model.WithoutTimestamps()),
		comment: model.Define("comment", model.Fillable("body"), model.WithoutTimestamps()),
		tag:     model.Define("tag", model.Fillable("name"), model.WithoutTimestamps()),
	}
	f.user.HasMany("posts", f.post)
	f.user.MorphMany("comments", f.comment, "commentable")
	f.post.BelongsTo("author", f.user)
	f.post.MorphMany("comments", f.comment, "commentable")
	f.post.BelongsToMany("tags", f.tag)
	f.post.MorphToMany("labels", f.tag, "taggable")
	f.comment.MorphTo("commentable", "commentable", f.post, f.user)
	f.tag.MorphedByMany("posts", f.post, "taggable")
	return f
}

func (f *blog) addUser(t *testing.T, name string) *model.Model {
	t.Helper()
	m, err := f.user.Create(context.Background(), f.conn, map[string]any{"name": name})
	require.NoError(t, err)
	return m
}

func (f *blog) addPost(t *testing.T, user *model.Model, title string) *model.Model {
	t.Helper()
	m, err := f.post.Create(context.Background(), f.conn, map[string]any{
		"user_id": user.Key(),
		"title":   title,
	})
	require.NoError(t, err)
	return m
}

func (f *blog) addComment(t *testing.T, owner *model.Model, body string) *model.Model {
	t.Helper()
	m := f.comment.New(f.conn)
	m.Fill(map[string]any{"body": body})
	m.Set("commentable_type", owner.Type().MorphName())
	m.Set("commentable_id", owner.Key())
	require.NoError(t, m.Save(context.Background()))
	return m
}

func TestRoundTrip(t *testing.T) {
	f := newBlog(t)
	ctx := context.Background()

	saved, err := f.user.Create(ctx, f.conn, map[string]any{
		"name":  "Foo",
		"email": "foo@example.com",
	})
	require.NoError(t, err)
	require.NotNil(t, saved.Key())
	assert.Positive(t, saved.GetInt("id"))

	fetched, err := f.user.Query(f.conn).Find(ctx, saved.Key())
	require.NoError(t, err)
	assert.Equal(t, "Foo", fetched.GetString("name"))
	assert.Equal(t, "foo@example.com", fetched.GetString("email"))
	assert.False(t, fetched.IsDirty())
}

func TestFindNotFoundVariants(t *testing.T) {
	f := newBlog(t)
	ctx := context.Background()

	_, err := f.user.Query(f.conn).Find(ctx, 999)
	assert.ErrorIs(t, err, arbor.ErrNotFound)

	_, err = f.user.Query(f.conn).FindOrFail(ctx, 999)
	var nf *arbor.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "user", nf.Label())
	assert.Equal(t, 999, nf.ID())
}

func TestHasManyLazyAndMemoized(t *testing.T) {
	f := newBlog(t)
	ctx := context.Background()
	u := f.addUser(t, "Foo")
	f.addPost(t, u, "first")
	f.addPost(t, u, "second")

	f.conn.EnableQueryLog()
	f.conn.FlushQueryLog()

	posts, err := u.RelatedMany(ctx, "posts")
	require.NoError(t, err)
	assert.Equal(t, 2, posts.Len())
	assert.Equal(t, 1, len(f.conn.QueryLog()))

	// Second access serves from the relation cache.
	again, err := u.RelatedMany(ctx, "posts")
	require.NoError(t, err)
	assert.Equal(t, 2, again.Len())
	assert.Equal(t, 1, len(f.conn.QueryLog()))
}

func TestEagerLoadIssuesTwoQueries(t *testing.T) {
	f := newBlog(t)
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c"} {
		u := f.addUser(t, name)
		f.addPost(t, u, name+"-1")
		f.addPost(t, u, name+"-2")
	}

	f.conn.EnableQueryLog()
	f.conn.FlushQueryLog()

	users, err := f.user.Query(f.conn).With("posts").OrderBy("id").Get(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, users.Len())
	assert.Len(t, f.conn.QueryLog(), 2, "eager loading must batch, not run one query per owner")

	for _, u := range users {
		require.True(t, u.RelationLoaded("posts"))
		posts := u.LoadedRelation("posts").(model.Collection)
		assert.Equal(t, 2, posts.Len())
		for _, p := range posts {
			assert.Equal(t, u.GetInt("id"), p.GetInt("user_id"))
		}
	}
}

func TestBelongsToEager(t *testing.T) {
	f := newBlog(t)
	ctx := context.Background()
	u := f.addUser(t, "Foo")
	f.addPost(t, u, "first")

	posts, err := f.post.Query(f.conn).With("author").Get(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, posts.Len())
	author := posts.First().LoadedRelation("author").(*model.Model)
	require.NotNil(t, author)
	assert.Equal(t, "Foo", author.GetString("name"))
}

func TestMorphManyAndMorphTo(t *testing.T) {
	f := newBlog(t)
	ctx := context.Background()
	u := f.addUser(t, "Foo")
	p := f.addPost(t, u, "first")
	f.addComment(t, p, "on the post")
	f.addComment(t, u, "on the profile")

	postComments, err := p.RelatedMany(ctx, "comments")
	require.NoError(t, err)
	require.Equal(t, 1, postComments.Len())
	assert.Equal(t, "on the post", postComments.First().GetString("body"))

	// MorphTo resolves each comment back to its concrete owner.
	comments, err := f.comment.Query(f.conn).With("commentable").OrderBy("id").Get(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, comments.Len())

	first := comments[0].LoadedRelation("commentable").(*model.Model)
	assert.Equal(t, "post", first.Type().Name())
	assert.Equal(t, "first", first.GetString("title"))

	second := comments[1].LoadedRelation("commentable").(*model.Model)
	assert.Equal(t, "user", second.Type().Name())
	assert.Equal(t, "Foo", second.GetString("name"))
}

func TestBelongsToManyPivot(t *testing.T) {
	f := newBlog(t)
	ctx := context.Background()
	u := f.addUser(t, "Foo")
	p := f.addPost(t, u, "first")
	go1, err := f.tag.Create(ctx, f.conn, map[string]any{"name": "go"})
	require.NoError(t, err)
	db1, err := f.tag.Create(ctx, f.conn, map[string]any{"name": "db"})
	require.NoError(t, err)
	web, err := f.tag.Create(ctx, f.conn, map[string]any{"name": "web"})
	require.NoError(t, err)

	require.NoError(t, p.Attach(ctx, "tags", go1.Key(), db1.Key()))
	tags, err := p.RelatedMany(ctx, "tags")
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{"go", "db"}, tags.Pluck("name"))

	// Sync reconciles to exactly the given set.
	require.NoError(t, p.SyncRelated(ctx, "tags", []any{db1.Key(), web.Key()}))
	p.SetRelation("tags", nil)
	tags, err = f.reloadTags(ctx, p)
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{"db", "web"}, tags.Pluck("name"))

	require.NoError(t, p.Detach(ctx, "tags"))
	tags, err = f.reloadTags(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 0, tags.Len())
}

func (f *blog) reloadTags(ctx context.Context, p *model.Model) (model.Collection, error) {
	fresh, err := f.post.Query(f.conn).Find(ctx, p.Key())
	if err != nil {
		return nil, err
	}
	return fresh.RelatedMany(ctx, "tags")
}

func TestMorphToManyPivot(t *testing.T) {
	f := newBlog(t)
	ctx := context.Background()
	u := f.addUser(t, "Foo")
	p := f.addPost(t, u, "first")
	g, err := f.tag.Create(ctx, f.conn, map[string]any{"name": "go"})
	require.NoError(t, err)

	require.NoError(t, p.Attach(ctx, "labels", g.Key()))
	labels, err := p.RelatedMany(ctx, "labels")
	require.NoError(t, err)
	require.Equal(t, 1, labels.Len())
	assert.Equal(t, "go", labels.First().GetString("name"))

	// The inverse side sees the post through the same pivot.
	posts, err := g.RelatedMany(ctx, "posts")
	require.NoError(t, err)
	require.Equal(t, 1, posts.Len())
	assert.Equal(t, "first", posts.First().GetString("title"))
}

func TestAssociateDissociate(t *testing.T) {
	f := newBlog(t)
	ctx := context.Background()
	u := f.addUser(t, "Foo")
	p := f.post.New(f.conn)
	p.Fill(map[string]any{"title": "draft"})

	require.NoError(t, p.Associate("author", u))
	require.NoError(t, p.Save(ctx))

	fetched, err := f.post.Query(f.conn).Find(ctx, p.Key())
	require.NoError(t, err)
	assert.Equal(t, u.GetInt("id"), fetched.GetInt("user_id"))

	require.NoError(t, p.Dissociate("author"))
	assert.Nil(t, p.Get("user_id"))
}

func TestSoftDeleteLifecycle(t *testing.T) {
	f := newBlog(t)
	ctx := context.Background()
	u := f.addUser(t, "Foo")

	require.NoError(t, u.Delete(ctx))

	// Hidden from default queries.
	_, err := f.user.Query(f.conn).Find(ctx, u.Key())
	assert.ErrorIs(t, err, arbor.ErrNotFound)
	all, err := f.user.Query(f.conn).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, all.Len())

	// Visible with trashed included, and via OnlyTrashed.
	trashed, err := f.user.Query(f.conn).WithTrashed().Find(ctx, u.Key())
	require.NoError(t, err)
	assert.True(t, trashed.Trashed())
	only, err := f.user.Query(f.conn).OnlyTrashed().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, only.Len())

	// Restore reverses the stamp.
	require.NoError(t, trashed.Restore(ctx))
	back, err := f.user.Query(f.conn).Find(ctx, u.Key())
	require.NoError(t, err)
	assert.False(t, back.Trashed())
}

func TestFirstOrCreate(t *testing.T) {
	f := newBlog(t)
	ctx := context.Background()

	created, err := f.user.Query(f.conn).FirstOrCreate(ctx,
		map[string]any{"name": "Foo"},
		map[string]any{"email": "foo@example.com"})
	require.NoError(t, err)
	assert.True(t, created.Exists())
	assert.Equal(t, "foo@example.com", created.GetString("email"))

	found, err := f.user.Query(f.conn).FirstOrCreate(ctx, map[string]any{"name": "Foo"})
	require.NoError(t, err)
	assert.Equal(t, created.GetInt("id"), found.GetInt("id"))

	n, err := f.user.Query(f.conn).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUpdateOrCreate(t *testing.T) {
	f := newBlog(t)
	ctx := context.Background()

	first, err := f.user.Query(f.conn).UpdateOrCreate(ctx,
		map[string]any{"name": "Foo"},
		map[string]any{"email": "old@example.com"})
	require.NoError(t, err)

	second, err := f.user.Query(f.conn).UpdateOrCreate(ctx,
		map[string]any{"name": "Foo"},
		map[string]any{"email": "new@example.com"})
	require.NoError(t, err)
	assert.Equal(t, first.GetInt("id"), second.GetInt("id"))

	fetched, err := f.user.Query(f.conn).Find(ctx, first.Key())
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", fetched.GetString("email"))
}

func TestPaginateModels(t *testing.T) {
	f := newBlog(t)
	ctx := context.Background()
	u := f.addUser(t, "Foo")
	for i := 0; i < 25; i++ {
		f.addPost(t, u, "post")
	}

	p, err := f.post.Query(f.conn).OrderBy("id").Paginate(ctx, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(25), p.Total)
	assert.Equal(t, 3, p.LastPage)
	assert.Equal(t, 11, p.From)
	assert.Equal(t, 20, p.To)
	assert.Equal(t, 10, p.Data.Len())
}

func TestChunkModels(t *testing.T) {
	f := newBlog(t)
	ctx := context.Background()
	u := f.addUser(t, "Foo")
	for i := 0; i < 5; i++ {
		f.addPost(t, u, "post")
	}

	var total int
	err := f.post.Query(f.conn).OrderBy("id").Chunk(ctx, 2, func(batch model.Collection) error {
		total += batch.Len()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
}

func TestGlobalScope(t *testing.T) {
	f := newBlog(t)
	ctx := context.Background()
	u := f.addUser(t, "Foo")
	f.addPost(t, u, "visible")
	draft := f.addPost(t, u, "draft")
	draft.Set("body", "wip")
	require.NoError(t, draft.Save(ctx))

	scoped := model.Define("post", model.Fillable("title", "body", "user_id"), model.WithoutTimestamps())
	scoped.GlobalScope(func(b *query.Builder) {
		b.WhereNull("body")
	})

	posts, err := scoped.Query(f.conn).Get(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, posts.Len())
	assert.Equal(t, "visible", posts.First().GetString("title"))

	all, err := scoped.Query(f.conn).WithoutGlobalScopes().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, all.Len())
}

func TestMassUpdateAndDelete(t *testing.T) {
	f := newBlog(t)
	ctx := context.Background()
	u := f.addUser(t, "Foo")
	f.addPost(t, u, "a")
	f.addPost(t, u, "b")

	n, err := f.post.Query(f.conn).Where("user_id", u.Key()).Update(ctx, map[string]any{"body": "bulk"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = f.post.Query(f.conn).Where("title", "a").Delete(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	remaining, err := f.post.Query(f.conn).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), remaining)
}
