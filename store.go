package userstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrNotFound       = errors.New("userstore: key not found")
	ErrIdentifierType = errors.New("userstore: user id and key name must be a string or an integer")
	ErrDeleteMode     = errors.New(`userstore: if-not-exists must be "ignore" or "raise"`)
	ErrCodec          = errors.New("userstore: value codec failure")
	ErrClosed         = errors.New("userstore: store is closed")
)

// InMemory is the location marker for a volatile store that is never
// written to disk.
const InMemory = ":memory:"

// IfNotExists selects how Delete treats a missing key.
type IfNotExists string

const (
	// IfNotExistsIgnore makes Delete a no-op when the key is absent.
	IfNotExistsIgnore IfNotExists = "ignore"
	// IfNotExistsRaise makes Delete fail with ErrNotFound when the key
	// is absent.
	IfNotExistsRaise IfNotExists = "raise"
)

// Driver describes the flat byte-oriented backing engine underneath a
// Store. Keys are opaque strings, values are opaque blobs; all namespacing
// happens above this interface. Implementations must be thread-safe and
// must have committed each write before returning from it.
type Driver interface {
	Set(ctx context.Context, key string, value []byte) error
	// Get returns ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete has no effect and returns nil when the key is absent.
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)

	// Keys returns every stored key that starts with prefix, in no
	// particular order.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Clear removes every stored key that starts with prefix.
	Clear(ctx context.Context, prefix string) error

	// Location describes the backing location for diagnostics.
	Location() string
	// Close releases the engine. Operations after Close return ErrClosed.
	Close() error
}

// Option customizes Store behavior.
type Option func(*Store)

// WithDriver overrides the backing engine selected by the location
// descriptor. Nil is ignored.
func WithDriver(d Driver) Option {
	return func(s *Store) {
		if d != nil {
			s.driver = d
		}
	}
}

// WithCodec overrides the value serialization mechanism.
// If not provided, encoding/gob is used.
func WithCodec(c Codec) Option {
	return func(s *Store) {
		if c != nil {
			s.codec = c
		}
	}
}

// WithLogger specifies a logger for operation logging.
// If not provided, a no-op logger is used (no logging).
func WithLogger(logger Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLogTag sets a tag prefix for all log messages.
// Useful for identifying the source of logs in multi-store scenarios.
func WithLogTag(tag string) Option {
	return func(s *Store) {
		s.logTag = tag
	}
}

// Store persists per-user values across stateless request cycles.
// Each user id names a logical partition; the same key name can be reused
// by every user without collision. Under the hood entries live in a flat
// engine key space as "<userID>_<keyName>", e.g.
//
//	123_password (user 123, key password)
//	456_password (user 456, key password)
//
// The separator scheme is not collision-free when identifiers themselves
// contain underscores (user "1_2" key "3" lands on the same engine key as
// user "1" key "2_3"). Known limitation, kept for compatibility with
// existing data.
//
// All methods are safe for concurrent use from multiple goroutines.
type Store struct {
	driver Driver
	codec  Codec
	logger Logger
	logTag string
}

// Open creates a Store backed by the engine the location describes:
//
//   - "" opens a private ephemeral file in a temp directory, removed
//     again when the store is closed
//   - InMemory keeps everything in volatile memory
//   - anything else is a disk path, created if absent and persistent
//     across restarts
//
// WithDriver takes precedence over the location descriptor.
func Open(location string, opts ...Option) (*Store, error) {
	s := &Store{
		codec:  gobCodec{},
		logger: defaultLogger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.driver == nil {
		var err error
		switch location {
		case InMemory:
			s.driver = NewMemory()
		case "":
			s.driver, err = newTempBolt()
		default:
			s.driver, err = NewBolt(location)
		}
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

// identString renders a user id or key name as its engine-key component.
// Only strings and integers are accepted, mirroring the session and
// account identifiers web frameworks hand out.
func identString(arg string, v interface{}) (string, error) {
	switch id := v.(type) {
	case string:
		return id, nil
	case int:
		return strconv.Itoa(id), nil
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", id), nil
	default:
		return "", fmt.Errorf("%w: %s has type %T", ErrIdentifierType, arg, v)
	}
}

func compositeKey(userID, keyName interface{}) (string, error) {
	uid, err := identString("user id", userID)
	if err != nil {
		return "", err
	}
	kn, err := identString("key name", keyName)
	if err != nil {
		return "", err
	}
	return uid + "_" + kn, nil
}

func (s *Store) logf(level string, ctx context.Context, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if s.logTag != "" {
		msg = s.logTag + " " + msg
	}
	switch level {
	case "info":
		s.logger.Info(ctx, msg)
	case "warn":
		s.logger.Warn(ctx, msg)
	case "error":
		s.logger.Error(ctx, msg)
	case "debug":
		s.logger.Debug(ctx, msg)
	}
}

// Set stores value under keyName for userID, overwriting any previous
// value for that pair. The write is committed before Set returns, so a
// subsequent Get from any goroutine observes it. Serialization failures
// abort before the engine is touched.
func (s *Store) Set(ctx context.Context, userID, keyName, value interface{}) error {
	key, err := compositeKey(userID, keyName)
	if err != nil {
		return err
	}
	data, err := s.codec.Marshal(value)
	if err != nil {
		err = fmt.Errorf("%w: encode %q: %v", ErrCodec, key, err)
		s.logf("error", ctx, "Set %s failed: %v", key, err)
		return err
	}
	if err := s.driver.Set(ctx, key, data); err != nil {
		s.logf("error", ctx, "Set %s failed: %v", key, err)
		return err
	}
	return nil
}

// Get loads the value stored under keyName for userID into out, which
// must be a pointer to a type matching the one passed to Set. Returns
// ErrNotFound, wrapping the engine key, when no value is stored.
func (s *Store) Get(ctx context.Context, userID, keyName, out interface{}) error {
	key, err := compositeKey(userID, keyName)
	if err != nil {
		return err
	}
	data, err := s.driver.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: %q", ErrNotFound, key)
		}
		s.logf("error", ctx, "Get %s failed: %v", key, err)
		return err
	}
	if err := s.codec.Unmarshal(data, out); err != nil {
		err = fmt.Errorf("%w: decode %q: %v", ErrCodec, key, err)
		s.logf("error", ctx, "Get %s failed: %v", key, err)
		return err
	}
	return nil
}

// Exists reports whether a value is stored under keyName for userID.
func (s *Store) Exists(ctx context.Context, userID, keyName interface{}) (bool, error) {
	key, err := compositeKey(userID, keyName)
	if err != nil {
		return false, err
	}
	exists, err := s.driver.Exists(ctx, key)
	if err != nil {
		s.logf("error", ctx, "Exists %s failed: %v", key, err)
	}
	return exists, err
}

// ListKeys returns the key names stored for userID, in no particular
// order. A user with no stored keys yields an empty slice, not an error.
func (s *Store) ListKeys(ctx context.Context, userID interface{}) ([]string, error) {
	uid, err := identString("user id", userID)
	if err != nil {
		return nil, err
	}
	prefix := uid + "_"
	fullKeys, err := s.driver.Keys(ctx, prefix)
	if err != nil {
		s.logf("error", ctx, "ListKeys %s failed: %v", uid, err)
		return nil, err
	}
	names := make([]string, 0, len(fullKeys))
	for _, fullKey := range fullKeys {
		names = append(names, fullKey[len(prefix):])
	}
	return names, nil
}

// Delete removes the value stored under keyName for userID. When the key
// is absent the ifNotExists mode decides the outcome: IfNotExistsIgnore
// returns nil, IfNotExistsRaise returns ErrNotFound. Any other mode value
// fails with ErrDeleteMode before the engine is touched.
func (s *Store) Delete(ctx context.Context, userID, keyName interface{}, ifNotExists IfNotExists) error {
	switch ifNotExists {
	case IfNotExistsIgnore, IfNotExistsRaise:
	default:
		return fmt.Errorf("%w: got %q", ErrDeleteMode, ifNotExists)
	}
	key, err := compositeKey(userID, keyName)
	if err != nil {
		return err
	}
	exists, err := s.driver.Exists(ctx, key)
	if err != nil {
		s.logf("error", ctx, "Delete %s failed: %v", key, err)
		return err
	}
	if !exists {
		if ifNotExists == IfNotExistsRaise {
			return fmt.Errorf("%w: %q", ErrNotFound, key)
		}
		return nil
	}
	if err := s.driver.Delete(ctx, key); err != nil {
		s.logf("error", ctx, "Delete %s failed: %v", key, err)
		return err
	}
	return nil
}

// DeleteAll removes every value stored for userID. A user with no stored
// keys is a no-op.
func (s *Store) DeleteAll(ctx context.Context, userID interface{}) error {
	uid, err := identString("user id", userID)
	if err != nil {
		return err
	}
	if err := s.driver.Clear(ctx, uid+"_"); err != nil {
		s.logf("error", ctx, "DeleteAll %s failed: %v", uid, err)
		return err
	}
	return nil
}

// Close releases the backing engine. Ephemeral backing files are removed.
func (s *Store) Close() error {
	return s.driver.Close()
}

// String names the backing location for diagnostics.
func (s *Store) String() string {
	return "userstore at " + s.driver.Location()
}
