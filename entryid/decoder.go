package entryid

import (
	"fmt"

	"github.com/arloliu/mapicodec/cursor"
	"github.com/arloliu/mapicodec/errs"
	"github.com/arloliu/mapicodec/internal/options"
)

// DefaultMaxDepth is the default limit on nested entry ids.
const DefaultMaxDepth = 32

// Config holds decoder construction options.
type Config struct {
	maxDepth int
	store    []ProviderUID
	general  []ProviderUID
}

// Option configures a Decoder.
type Option = options.Option[*Config]

// WithMaxDepth limits how deeply Wrapped and ContactAddress identifiers may
// nest. A top-level identifier has depth 1.
func WithMaxDepth(depth int) Option {
	return options.New(func(c *Config) error {
		if depth < 1 {
			return fmt.Errorf("max depth must be positive, got %d", depth)
		}
		c.maxDepth = depth

		return nil
	})
}

// WithStoreProvider registers the provider UID of a message store whose
// folder and message identifiers should be decoded.
func WithStoreProvider(uid ProviderUID) Option {
	return options.NoError(func(c *Config) {
		c.store = append(c.store, uid)
	})
}

// WithGeneralProvider registers a provider UID whose payload is kept opaque.
func WithGeneralProvider(uid ProviderUID) Option {
	return options.NoError(func(c *Config) {
		c.general = append(c.general, uid)
	})
}

type variantFunc func(d *Decoder, h Header, r *cursor.Reader, depth int) (EntryID, error)

// Decoder decodes entry ids against a fixed provider table.
type Decoder struct {
	maxDepth int
	table    map[ProviderUID]variantFunc
}

var wellKnown = map[ProviderUID]variantFunc{
	OneOffProviderUID:         decodeOneOff,
	AddressBookProviderUID:    decodeAddressBook,
	StoreWrapProviderUID:      decodeStoreWrap,
	ContactAddressProviderUID: decodeContactAddress,
	WrappedProviderUID:        decodeWrapped,
}

// NewDecoder builds a Decoder. Registering a provider UID twice, or
// registering a well-known one, is an error.
func NewDecoder(opts ...Option) (*Decoder, error) {
	cfg := &Config{maxDepth: DefaultMaxDepth}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	table := make(map[ProviderUID]variantFunc, len(wellKnown)+len(cfg.store)+len(cfg.general))
	for uid, fn := range wellKnown {
		table[uid] = fn
	}

	register := func(uid ProviderUID, fn variantFunc) error {
		if _, ok := table[uid]; ok {
			return fmt.Errorf("provider uid %s registered twice", uid)
		}
		table[uid] = fn

		return nil
	}
	for _, uid := range cfg.store {
		if err := register(uid, decodeStoreObjectID); err != nil {
			return nil, err
		}
	}
	for _, uid := range cfg.general {
		if err := register(uid, decodeGeneral); err != nil {
			return nil, err
		}
	}

	return &Decoder{maxDepth: cfg.maxDepth, table: table}, nil
}

var defaultDecoder, _ = NewDecoder()

// Decode decodes data with a Decoder that knows only the well-known providers.
func Decode(data []byte) (EntryID, error) {
	return defaultDecoder.Decode(data)
}

// Decode decodes an entry id occupying all of data.
//
// Parameters:
//   - data: The complete property value
//
// Returns:
//   - EntryID: One of the concrete variants, chosen by provider UID
//   - error: errs.ErrUnknownProvider for an unregistered provider UID,
//     errs.ErrDepthExceeded for nesting past the limit, otherwise errs.ErrCorrupted
func (d *Decoder) Decode(data []byte) (EntryID, error) {
	return d.decode(cursor.New(data), 1)
}

// Known reports whether uid is in the decoder's provider table.
func (d *Decoder) Known(uid ProviderUID) bool {
	_, ok := d.table[uid]
	return ok
}

// decode consumes all of r.
func (d *Decoder) decode(r *cursor.Reader, depth int) (EntryID, error) {
	if depth > d.maxDepth {
		return nil, fmt.Errorf("%w: entry id nested %d levels, limit %d", errs.ErrDepthExceeded, depth, d.maxDepth)
	}

	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	fn, ok := d.table[h.ProviderUID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errs.ErrUnknownProvider, h.ProviderUID)
	}

	id, err := fn(d, h, r, depth)
	if err != nil {
		return nil, err
	}
	if err := r.ExpectEnd(); err != nil {
		return nil, errs.Wrapf(err, "%s entry id", id.Kind())
	}

	return id, nil
}

// nested decodes an entry id embedded in another one.
func (d *Decoder) nested(r *cursor.Reader, depth int, parent Kind) (EntryID, error) {
	id, err := d.decode(r, depth+1)
	if err != nil {
		return nil, errs.Wrapf(err, "%s nested entry id", parent)
	}

	return id, nil
}
