// oxdump decodes one binary MAPI property value and prints the decoded
// record.
//
// Usage:
//
//	oxdump --kind <kind> [flags] FILE
//
// FILE is read as raw bytes, or as hex text with --hex. Use "-" for stdin.
package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/spf13/pflag"

	"github.com/arloliu/mapicodec/compress"
	"github.com/arloliu/mapicodec/conversation"
	"github.com/arloliu/mapicodec/dump"
	"github.com/arloliu/mapicodec/entryid"
	"github.com/arloliu/mapicodec/format"
	"github.com/arloliu/mapicodec/recurrence"
	"github.com/arloliu/mapicodec/reporttag"
	"github.com/arloliu/mapicodec/rule"
	"github.com/arloliu/mapicodec/searchfolder"
	"github.com/arloliu/mapicodec/verbstream"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// options collects the parsed command line.
type options struct {
	kind           string
	hexInput       bool
	compression    string
	outputFormat   string
	strictRepeats  bool
	maxDepth       int
	storeProviders []string
	verbose        bool
}

// decoders holds the configured decoders shared by every kind.
type decoders struct {
	entryIDs *entryid.Decoder
	rules    *rule.Decoder
	search   *searchfolder.Decoder
	verb     []verbstream.Option
}

type decodeFunc func(d *decoders, data []byte) (any, error)

var kinds = map[string]decodeFunc{
	"entryid": func(d *decoders, data []byte) (any, error) {
		return d.entryIDs.Decode(data)
	},
	"entrylist": func(d *decoders, data []byte) (any, error) {
		return d.entryIDs.DecodeList(data)
	},
	"convindex": func(_ *decoders, data []byte) (any, error) {
		return conversation.Decode(data)
	},
	"reporttag": func(_ *decoders, data []byte) (any, error) {
		return reporttag.Decode(data)
	},
	"verbstream": func(d *decoders, data []byte) (any, error) {
		return verbstream.Decode(data, d.verb...)
	},
	"rulecond": func(d *decoders, data []byte) (any, error) {
		return d.rules.DecodeCondition(data)
	},
	"ruleactions": func(d *decoders, data []byte) (any, error) {
		return d.rules.DecodeActions(data)
	},
	"searchfolder": func(d *decoders, data []byte) (any, error) {
		return d.search.Decode(data)
	},
	"recurrence": func(_ *decoders, data []byte) (any, error) {
		return recurrence.DecodeAppointment(data)
	},
	"taskrecurrence": func(_ *decoders, data []byte) (any, error) {
		return recurrence.DecodePattern(data)
	},
}

func kindNames() []string {
	names := make([]string, 0, len(kinds))
	for name := range kinds {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var opts options

	flagSet := pflag.NewFlagSet("oxdump", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&opts.kind, "kind", "k", "", "decoder to run: "+strings.Join(kindNames(), ", "))
	flagSet.BoolVar(&opts.hexInput, "hex", false, "input file holds hex text instead of raw bytes")
	flagSet.StringVar(&opts.compression, "compression", "none", "input compression: none, zstd, s2, lz4")
	flagSet.StringVarP(&opts.outputFormat, "format", "f", "json", "output format: json, yaml, cbor")
	flagSet.BoolVar(&opts.strictRepeats, "strict-repeats", false, "reject verb streams whose repeat fields differ")
	flagSet.IntVar(&opts.maxDepth, "max-depth", entryid.DefaultMaxDepth, "nesting limit for entry ids and restrictions")
	flagSet.StringArrayVar(&opts.storeProviders, "store-provider", nil, "extra store provider UID as 32 hex digits (repeatable)")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "log decode details to stderr")
	flagSet.Usage = func() {
		fmt.Fprintf(stderr, "Usage:\n  oxdump --kind <kind> [flags] FILE\n\nFlags:\n")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	if flagSet.NArg() != 1 {
		flagSet.Usage()
		return fmt.Errorf("expected exactly one input file, got %d", flagSet.NArg())
	}

	decode, ok := kinds[opts.kind]
	if !ok {
		return fmt.Errorf("unknown kind %q (want one of %s)", opts.kind, strings.Join(kindNames(), ", "))
	}
	outFormat, err := dump.ParseFormat(opts.outputFormat)
	if err != nil {
		return err
	}
	compression, err := format.ParseCompression(strings.ToLower(opts.compression))
	if err != nil {
		return err
	}
	decs, err := newDecoders(&opts)
	if err != nil {
		return err
	}

	data, err := readInput(flagSet.Arg(0), stdin, opts.hexInput)
	if err != nil {
		return err
	}
	logger.Debug("read input", "file", flagSet.Arg(0), "size", len(data), "compression", compression)

	data, err = compress.Decompress(compression, data)
	if err != nil {
		return fmt.Errorf("decompress %s input: %w", compression, err)
	}

	v, err := decode(decs, data)
	if err != nil {
		logger.Warn("decode failed",
			"kind", opts.kind,
			"size", len(data),
			"fingerprint", entryid.Fingerprint(data),
			"error", err,
		)

		return fmt.Errorf("decode %s: %w", opts.kind, err)
	}
	logger.Debug("decoded", "kind", opts.kind, "size", len(data), "fingerprint", entryid.Fingerprint(data))

	return dump.Write(stdout, v, outFormat)
}

func newDecoders(opts *options) (*decoders, error) {
	eidOpts := []entryid.Option{entryid.WithMaxDepth(opts.maxDepth)}
	for _, s := range opts.storeProviders {
		uid, err := entryid.ParseProviderUID(s)
		if err != nil {
			return nil, err
		}
		eidOpts = append(eidOpts, entryid.WithStoreProvider(uid))
	}

	eids, err := entryid.NewDecoder(eidOpts...)
	if err != nil {
		return nil, fmt.Errorf("entry id decoder: %w", err)
	}
	rules, err := rule.NewDecoder(rule.WithMaxDepth(opts.maxDepth), rule.WithEntryIDDecoder(eids))
	if err != nil {
		return nil, fmt.Errorf("rule decoder: %w", err)
	}
	search, err := searchfolder.NewDecoder(searchfolder.WithMaxDepth(opts.maxDepth), searchfolder.WithEntryIDDecoder(eids))
	if err != nil {
		return nil, fmt.Errorf("search folder decoder: %w", err)
	}

	return &decoders{
		entryIDs: eids,
		rules:    rules,
		search:   search,
		verb:     []verbstream.Option{verbstream.WithStrictRepeats(opts.strictRepeats)},
	}, nil
}

func readInput(path string, stdin io.Reader, hexInput bool) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	if !hexInput {
		return data, nil
	}

	// whitespace and an optional 0x prefix are allowed in hex input
	text := strings.Join(strings.Fields(string(data)), "")
	text = strings.TrimPrefix(strings.TrimPrefix(text, "0x"), "0X")
	raw, err := hex.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("parse hex input: %w", err)
	}

	return raw, nil
}
