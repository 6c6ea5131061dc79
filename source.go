package natsconn

import (
	"github.com/timzifer/natsconn/options"
)

// Variant selects the connection type produced by an establishment.
type Variant int

const (
	// VariantRaw produces a *conn.Conn exchanging byte payloads.
	VariantRaw Variant = iota
	// VariantEncoded produces a *conn.EncodedConn exchanging encoded values.
	VariantEncoded
)

func (v Variant) String() string {
	switch v {
	case VariantRaw:
		return "raw"
	case VariantEncoded:
		return "encoded"
	default:
		return "unknown"
	}
}

// SourceKind tells where the options of an establishment come from.
type SourceKind int

const (
	SourceDefault SourceKind = iota
	SourceURL
	SourceSecureURL
	SourceOptions
)

func (k SourceKind) String() string {
	switch k {
	case SourceDefault:
		return "default"
	case SourceURL:
		return "url"
	case SourceSecureURL:
		return "secure_url"
	case SourceOptions:
		return "options"
	default:
		return "unknown"
	}
}

// Source is the input of an establishment. Build one with DefaultSource,
// URLSource, SecureURLSource or OptionsSource.
type Source struct {
	kind SourceKind
	url  string
	opts options.Options
}

// DefaultSource uses the library defaults.
func DefaultSource() Source {
	return Source{kind: SourceDefault}
}

// URLSource parses url over the defaults.
func URLSource(url string) Source {
	return Source{kind: SourceURL, url: url}
}

// SecureURLSource parses url over the defaults and forces TLS.
func SecureURLSource(url string) Source {
	return Source{kind: SourceSecureURL, url: url}
}

// OptionsSource uses a caller supplied options value. The value is copied.
func OptionsSource(opts options.Options) Source {
	return Source{kind: SourceOptions, opts: opts.Clone()}
}

// Kind reports which constructor built the source.
func (s Source) Kind() SourceKind {
	return s.kind
}

// Resolve produces the options for the source. Each call returns a fresh value.
func (s Source) Resolve() (options.Options, error) {
	switch s.kind {
	case SourceURL:
		return options.Resolve(options.Default(), s.url, false)
	case SourceSecureURL:
		return options.Resolve(options.Default(), s.url, true)
	case SourceOptions:
		return options.Normalize(s.opts)
	default:
		return options.Resolve(options.Default(), "", false)
	}
}

// String describes the source without credentials.
func (s Source) String() string {
	switch s.kind {
	case SourceURL, SourceSecureURL:
		return s.kind.String() + ":" + options.RedactURL(s.url)
	default:
		return s.kind.String()
	}
}
