// Package userstore provides a per-user key-value store for persisting
// values across stateless request/response cycles in web UIs.
//
// # Overview
//
// userstore gives every user (or session) of an application its own
// logical key space on top of a single embedded key-value engine. The
// same key name can be used for every user; the store prepends the user
// id internally so user 123 and user 456 each have their own data under
// the same name. Values are arbitrary Go values, serialized with
// encoding/gob by default.
//
// # Architecture
//
// The package consists of two main abstractions:
//
// 1. Store: the per-user surface (Set, Get, ListKeys, Delete, DeleteAll)
// 2. Driver: the flat byte-oriented backing engine
//
// Engine keys have the form "<userID>_<keyName>". Two drivers ship: a
// bbolt disk file (persistent or ephemeral) and a volatile in-memory map.
//
// # Quick Start
//
//	// Ephemeral backing file, removed on Close.
//	db, err := userstore.Open("")
//	if err != nil { ... }
//	defer db.Close()
//	ctx := context.Background()
//
//	db.Set(ctx, 123, "account_id", 46887)
//	db.Set(ctx, 123, "favorite_animal", "monkey")
//
//	var animal string
//	db.Get(ctx, 123, "favorite_animal", &animal)
//
//	keys, _ := db.ListKeys(ctx, 123)
//	db.Delete(ctx, 123, "favorite_animal", userstore.IfNotExistsIgnore)
//	db.DeleteAll(ctx, 123)
//
// # Locations
//
// Open("") creates a private ephemeral file in a temp directory and
// removes it on Close. Open(userstore.InMemory) keeps everything in
// volatile memory. Any other string is a disk path; the file is created
// if absent and survives process restarts.
//
// # Thread Safety
//
// All operations are safe for concurrent use. Multiple request-handling
// goroutines can share one Store without external locking; a write
// concurrent with a read of the same key yields the old or the new
// value, never a torn one.
//
// # Error Handling
//
// The package defines sentinel errors for common cases:
//
//	err := db.Get(ctx, 123, "missing", &out)
//	if errors.Is(err, userstore.ErrNotFound) {
//	    // Handle missing key
//	}
//
// Available errors: ErrNotFound, ErrIdentifierType, ErrDeleteMode,
// ErrCodec, ErrClosed.
//
// # Known Limitation
//
// The "<userID>_<keyName>" scheme is ambiguous when identifiers contain
// underscores: user "1_2" with key "3" shares an engine key with user "1"
// and key "2_3". Kept as-is for compatibility with existing data.
package userstore
