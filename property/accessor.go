package property

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/arloliu/mapicodec/conversation"
	"github.com/arloliu/mapicodec/entryid"
	"github.com/arloliu/mapicodec/format"
	"github.com/arloliu/mapicodec/internal/options"
	"github.com/arloliu/mapicodec/recurrence"
	"github.com/arloliu/mapicodec/reporttag"
	"github.com/arloliu/mapicodec/rule"
	"github.com/arloliu/mapicodec/searchfolder"
	"github.com/arloliu/mapicodec/verbstream"
)

// Config holds Accessor construction options.
type Config struct {
	logger        *slog.Logger
	maxDepth      int
	strictRepeats bool
	entryIDOpts   []entryid.Option
}

// Option configures an Accessor.
type Option = options.Option[*Config]

// WithLogger sets the logger that receives decode failures.
func WithLogger(logger *slog.Logger) Option {
	return options.New(func(c *Config) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		c.logger = logger

		return nil
	})
}

// WithMaxDepth limits entry id and restriction nesting.
func WithMaxDepth(depth int) Option {
	return options.New(func(c *Config) error {
		if depth < 1 {
			return fmt.Errorf("max depth must be positive, got %d", depth)
		}
		c.maxDepth = depth

		return nil
	})
}

// WithStrictRepeats rejects verb streams whose repeat fields differ from
// their primary fields.
func WithStrictRepeats(strict bool) Option {
	return options.NoError(func(c *Config) {
		c.strictRepeats = strict
	})
}

// WithEntryIDOptions passes options to the entry id decoder, typically
// entryid.WithStoreProvider for the mailbox being read.
func WithEntryIDOptions(opts ...entryid.Option) Option {
	return options.NoError(func(c *Config) {
		c.entryIDOpts = append(c.entryIDOpts, opts...)
	})
}

// Accessor decodes binary properties of one object. It is safe for
// concurrent use if the Store is.
type Accessor struct {
	store    Store
	logger   *slog.Logger
	entryIDs *entryid.Decoder
	rules    *rule.Decoder
	search   *searchfolder.Decoder
	verbOpts []verbstream.Option
}

// New creates an Accessor over store.
func New(store Store, opts ...Option) (*Accessor, error) {
	cfg := &Config{logger: slog.Default(), maxDepth: entryid.DefaultMaxDepth}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	eidOpts := append([]entryid.Option{entryid.WithMaxDepth(cfg.maxDepth)}, cfg.entryIDOpts...)
	eids, err := entryid.NewDecoder(eidOpts...)
	if err != nil {
		return nil, fmt.Errorf("entry id decoder: %w", err)
	}
	rules, err := rule.NewDecoder(rule.WithMaxDepth(cfg.maxDepth), rule.WithEntryIDDecoder(eids))
	if err != nil {
		return nil, fmt.Errorf("rule decoder: %w", err)
	}
	search, err := searchfolder.NewDecoder(searchfolder.WithMaxDepth(cfg.maxDepth), searchfolder.WithEntryIDDecoder(eids))
	if err != nil {
		return nil, fmt.Errorf("search folder decoder: %w", err)
	}

	return &Accessor{
		store:    store,
		logger:   cfg.logger,
		entryIDs: eids,
		rules:    rules,
		search:   search,
		verbOpts: []verbstream.Option{verbstream.WithStrictRepeats(cfg.strictRepeats)},
	}, nil
}

// decodeProperty decodes raw when present. A decode failure is logged and
// reported as absent.
func decodeProperty[T any](a *Accessor, name string, raw []byte, present bool, decode func([]byte) (T, error)) (T, bool) {
	var zero T
	if !present {
		return zero, false
	}

	v, err := decode(raw)
	if err != nil {
		a.logger.Warn("decode property",
			"property", name,
			"size", len(raw),
			"fingerprint", entryid.Fingerprint(raw),
			"error", err,
		)

		return zero, false
	}

	return v, true
}

func (a *Accessor) binary(tag format.PropertyTag) ([]byte, bool) {
	return a.store.Binary(tag)
}

// EntryID decodes the entry id stored under tag, such as TagEntryID or
// TagParentEntryID.
func (a *Accessor) EntryID(tag format.PropertyTag) (entryid.EntryID, bool) {
	raw, ok := a.binary(tag)
	return decodeProperty(a, "entry id "+tag.String(), raw, ok, a.entryIDs.Decode)
}

// ConversationIndex decodes PidTagConversationIndex.
func (a *Accessor) ConversationIndex() (*conversation.Index, bool) {
	raw, ok := a.binary(TagConversationIndex)
	return decodeProperty(a, "conversation index", raw, ok, conversation.Decode)
}

// ReportTag decodes PidTagReportTag.
func (a *Accessor) ReportTag() (*reporttag.ReportTag, bool) {
	raw, ok := a.binary(TagReportTag)
	return decodeProperty(a, "report tag", raw, ok, reporttag.Decode)
}

// VerbStream decodes PidLidVerbStream.
func (a *Accessor) VerbStream() (*verbstream.VerbStream, bool) {
	raw, ok := a.store.NamedBinary(PSETIDCommon, LIDVerbStream)
	return decodeProperty(a, "verb stream", raw, ok, func(b []byte) (*verbstream.VerbStream, error) {
		return verbstream.Decode(b, a.verbOpts...)
	})
}

// RuleCondition decodes PidTagExtendedRuleMessageCondition.
func (a *Accessor) RuleCondition() (*rule.Condition, bool) {
	raw, ok := a.binary(TagExtendedRuleMessageCondition)
	return decodeProperty(a, "rule condition", raw, ok, a.rules.DecodeCondition)
}

// RuleActions decodes PidTagExtendedRuleMessageActions.
func (a *Accessor) RuleActions() (*rule.Actions, bool) {
	raw, ok := a.binary(TagExtendedRuleMessageActions)
	return decodeProperty(a, "rule actions", raw, ok, a.rules.DecodeActions)
}

// SearchFolderDefinition decodes PidTagSearchFolderDefinition.
func (a *Accessor) SearchFolderDefinition() (*searchfolder.Definition, bool) {
	raw, ok := a.binary(TagSearchFolderDefinition)
	return decodeProperty(a, "search folder definition", raw, ok, a.search.Decode)
}

// AppointmentRecurrence decodes PidLidAppointmentRecur.
func (a *Accessor) AppointmentRecurrence() (*recurrence.Appointment, bool) {
	raw, ok := a.store.NamedBinary(PSETIDAppointment, LIDAppointmentRecur)
	return decodeProperty(a, "appointment recurrence", raw, ok, recurrence.DecodeAppointment)
}

// TaskRecurrence decodes PidLidTaskRecurrence.
func (a *Accessor) TaskRecurrence() (*recurrence.Pattern, bool) {
	raw, ok := a.store.NamedBinary(PSETIDTask, LIDTaskRecurrence)
	return decodeProperty(a, "task recurrence", raw, ok, recurrence.DecodePattern)
}
