// Package model implements the Active Record layer of Arbor.
//
// # Types and instances
//
// A Type is the explicit registry for one entity: table and key
// mapping, mass-assignment policy, attribute casts, relationship
// descriptors, global scopes, and observers. Everything is registered
// on the Type value itself during initialization — there is no
// package-level model registry and no reflection over struct tags:
//
//	var User = model.Define("user",
//	    model.Fillable("name", "email"),
//	    model.Casts(map[string]model.Cast{"settings": model.CastJSON}),
//	    model.SoftDeletes(),
//	)
//
//	func init() {
//	    User.HasMany("posts", Post)
//	    Post.BelongsTo("author", User, "user_id")
//	}
//
// A Model is one row as an attribute bag. Reads resolve casts and
// accessors; writes go through mutators; Fill applies the fillability
// policy and silently drops guarded keys. Dirty tracking diffs against
// the snapshot taken at hydration or last save, so saving a clean model
// issues no statement.
//
// # Queries
//
// Type.Query starts a typed query bound to a connection. It layers
// global scopes and the soft-delete filter over the SQL builder and
// hydrates results into models:
//
//	users, err := User.Query(conn).
//	    Where("active", true).
//	    With("posts").
//	    OrderBy("name").
//	    Get(ctx)
//
// With batches each named relation into one additional query per
// relation (one per distinct target type for MorphTo) and distributes
// the results, so loading N parents with their children costs two
// queries, not N+1.
//
// # Relations
//
// The relation set of a type is closed and explicit: HasOne, HasMany,
// BelongsTo, BelongsToMany, MorphOne, MorphMany, MorphTo, MorphToMany
// and MorphedByMany, each registered by name with overridable key
// columns. Instances resolve them with Related / RelatedOne /
// RelatedMany; results are memoized per instance. Pivot-backed
// relations support Attach, Detach and SyncRelated; BelongsTo supports
// Associate and Dissociate.
package model
