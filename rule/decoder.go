package rule

import (
	"fmt"

	"github.com/arloliu/mapicodec/cursor"
	"github.com/arloliu/mapicodec/entryid"
	"github.com/arloliu/mapicodec/errs"
	"github.com/arloliu/mapicodec/internal/options"
	"github.com/arloliu/mapicodec/propvalue"
)

// DefaultMaxDepth is the default limit on restriction nesting.
const DefaultMaxDepth = 32

// Config holds decoder construction options.
type Config struct {
	maxDepth int
	entryIDs *entryid.Decoder
}

// Option configures a Decoder.
type Option = options.Option[*Config]

// WithMaxDepth limits restriction nesting. The root node has depth 1.
func WithMaxDepth(depth int) Option {
	return options.New(func(c *Config) error {
		if depth < 1 {
			return fmt.Errorf("max depth must be positive, got %d", depth)
		}
		c.maxDepth = depth

		return nil
	})
}

// WithEntryIDDecoder sets the decoder used for entry ids embedded in actions
// and in restriction values. Move, copy and reply actions and restrictions on
// PidTagParentEntryId refer to folders and messages, so the decoder normally
// needs the mailbox store provider registered.
func WithEntryIDDecoder(d *entryid.Decoder) Option {
	return options.NoError(func(c *Config) {
		c.entryIDs = d
	})
}

// Decoder decodes rule conditions and actions.
type Decoder struct {
	maxDepth int
	entryIDs *entryid.Decoder
}

// NewDecoder builds a Decoder.
func NewDecoder(opts ...Option) (*Decoder, error) {
	cfg := &Config{maxDepth: DefaultMaxDepth}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.entryIDs == nil {
		d, err := entryid.NewDecoder()
		if err != nil {
			return nil, err
		}
		cfg.entryIDs = d
	}

	return &Decoder{maxDepth: cfg.maxDepth, entryIDs: cfg.entryIDs}, nil
}

// Condition is a decoded extended rule condition.
type Condition struct {
	NamedProperties propvalue.NamedPropertyInfo
	Restriction     Restriction
}

// DecodeCondition decodes an extended rule condition occupying all of data:
// a named-property information block followed by one restriction.
//
// Parameters:
//   - data: The PidTagExtendedRuleMessageCondition value
//
// Returns:
//   - *Condition: The named property table and the restriction tree
//   - error: errs.ErrCorrupted (or a refinement), errs.ErrDepthExceeded past the depth limit
func (d *Decoder) DecodeCondition(data []byte) (*Condition, error) {
	r := cursor.New(data)

	named, err := propvalue.ReadNamedPropertyInfo(r)
	if err != nil {
		return nil, errs.Wrapf(err, "rule condition named properties")
	}

	res, err := d.restrictions(propvalue.Extended).read(r, 1)
	if err != nil {
		return nil, errs.Wrapf(err, "rule condition")
	}
	if err := r.ExpectEnd(); err != nil {
		return nil, errs.Wrapf(err, "rule condition")
	}

	return &Condition{NamedProperties: named, Restriction: res}, nil
}

// DecodeRestriction decodes a bare rule restriction occupying all of data.
// Use propvalue.Standard for PidTagRuleCondition values.
//
// Parameters:
//   - data: The restriction bytes
//   - w: propvalue.Standard for 16-bit counts, propvalue.Extended for 32-bit
//
// Returns:
//   - Restriction: The root node
//   - error: errs.ErrCorrupted (or a refinement)
func (d *Decoder) DecodeRestriction(data []byte, w propvalue.Width) (Restriction, error) {
	r := cursor.New(data)

	res, err := d.restrictions(w).read(r, 1)
	if err != nil {
		return nil, err
	}
	if err := r.ExpectEnd(); err != nil {
		return nil, err
	}

	return res, nil
}

func (d *Decoder) restrictions(w propvalue.Width) *restrictionReader {
	return &restrictionReader{width: w, maxDepth: d.maxDepth, entryIDs: d.entryIDs}
}

var defaultDecoder, _ = NewDecoder()

// DecodeCondition decodes an extended rule condition with default options.
func DecodeCondition(data []byte) (*Condition, error) {
	return defaultDecoder.DecodeCondition(data)
}

// DecodeActions decodes extended rule actions with default options.
func DecodeActions(data []byte) (*Actions, error) {
	return defaultDecoder.DecodeActions(data)
}
