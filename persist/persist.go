// Package persist mirrors application state to keyed JSON blobs and reads it back at startup.
package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// BlobStore is a flat key/value store for serialised collections.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte) error
	Del(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// Adapter encodes collections to a BlobStore. Loading fails closed: anything that does not
// decode strictly into the target type, or does not validate, is reported as absent.
type Adapter struct {
	store    BlobStore
	validate *validator.Validate
	prefix   string
}

func NewAdapter(store BlobStore, prefix string) *Adapter {
	return &Adapter{
		store:    store,
		validate: validator.New(),
		prefix:   prefix,
	}
}

// Save serialises v under key.
func (a *Adapter) Save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "marshal %s", key)
	}
	if err := a.store.Set(ctx, key, data); err != nil {
		return errors.Wrapf(err, "write %s", key)
	}
	return nil
}

// Load decodes the blob under key into dst, which must be a pointer to a struct or a slice of
// structs. It reports false when the key is missing or the stored shape does not match, in
// which case dst is left untouched.
func (a *Adapter) Load(ctx context.Context, key string, dst any) bool {
	entry := log.WithField("key", key)

	data, ok, err := a.store.Get(ctx, key)
	if err != nil {
		entry.WithError(err).Warn("persist: read failed, using defaults")
		return false
	}
	if !ok {
		return false
	}

	target := reflect.New(reflect.TypeOf(dst).Elem())
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target.Interface()); err != nil {
		entry.WithError(err).Warn("persist: schema mismatch, using defaults")
		return false
	}
	if err := a.check(target.Elem()); err != nil {
		entry.WithError(err).Warn("persist: invalid data, using defaults")
		return false
	}

	reflect.ValueOf(dst).Elem().Set(target.Elem())
	return true
}

func (a *Adapter) check(v reflect.Value) error {
	switch v.Kind() {
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			if err := a.check(v.Index(i)); err != nil {
				return errors.Wrapf(err, "element %d", i)
			}
		}
		return nil
	case reflect.Struct:
		return a.validate.Struct(v.Interface())
	case reflect.Ptr:
		if v.IsNil() {
			return errors.New("nil value")
		}
		return a.check(v.Elem())
	default:
		return nil
	}
}

func (a *Adapter) Delete(ctx context.Context, key string) error {
	return errors.Wrapf(a.store.Del(ctx, key), "delete %s", key)
}

// Keys lists stored keys that start with prefix.
func (a *Adapter) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys, err := a.store.Keys(ctx, prefix)
	return keys, errors.Wrapf(err, "list %s*", prefix)
}

// Reset removes every key owned by the application.
func (a *Adapter) Reset(ctx context.Context) (int, error) {
	keys, err := a.store.Keys(ctx, a.prefix)
	if err != nil {
		return 0, errors.Wrap(err, "list keys")
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := a.store.Del(ctx, keys...); err != nil {
		return 0, errors.Wrap(err, "delete keys")
	}
	log.WithField("keys", strings.Join(keys, ",")).Info("persist: state reset")
	return len(keys), nil
}

func (a *Adapter) Close() error {
	return a.store.Close()
}

// Mirror receives a collection snapshot after every change to it.
type Mirror interface {
	Mirror(key string, v any)
	Forget(key string)
}

// Mirror saves v under key. Failures are logged; the in-memory state stays authoritative.
func (a *Adapter) Mirror(key string, v any) {
	if err := a.Save(context.Background(), key, v); err != nil {
		log.WithError(err).WithField("key", key).Error("persist: mirror write failed")
	}
}

// Forget deletes key, logging failures.
func (a *Adapter) Forget(key string) {
	if err := a.Delete(context.Background(), key); err != nil {
		log.WithError(err).WithField("key", key).Error("persist: delete failed")
	}
}

// Discard is a Mirror that keeps nothing.
type Discard struct{}

func (Discard) Mirror(string, any) {}
func (Discard) Forget(string)      {}
