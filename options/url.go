package options

import (
	"net"
	"net/url"
	"strconv"
	"strings"
)

// ParsedURL is the result of splitting a comma separated server URL list.
type ParsedURL struct {
	Servers []string
	// Credentials come from the first segment that carries user-info.
	Credentials *Credentials
	// Secure is set when any segment uses a TLS scheme.
	Secure bool
}

// ParseURL parses a single URL or a comma separated list such as
// "nats://user:pass@a:4222, nats://b:4222". Whitespace around the commas is ignored.
func ParseURL(raw string) (ParsedURL, error) {
	var parsed ParsedURL
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return parsed, configError(raw, "no servers in url", nil)
	}
	for _, segment := range strings.Split(raw, ",") {
		server, creds, secure, err := parseSegment(strings.TrimSpace(segment))
		if err != nil {
			return ParsedURL{}, err
		}
		parsed.Servers = append(parsed.Servers, server)
		if parsed.Credentials == nil && creds != nil {
			parsed.Credentials = creds
		}
		parsed.Secure = parsed.Secure || secure
	}
	return parsed, nil
}

// Resolve merges a URL string and the force-secure override into a copy of base.
//
// An empty URL keeps the servers of base. base itself is never modified.
func Resolve(base Options, rawURL string, forceSecure bool) (Options, error) {
	opts := base.Clone()
	if trimmed := strings.TrimSpace(rawURL); trimmed != "" {
		parsed, err := ParseURL(trimmed)
		if err != nil {
			return Options{}, err
		}
		opts.URL = trimmed
		opts.Servers = parsed.Servers
		if parsed.Credentials != nil {
			opts.Credentials = parsed.Credentials
		}
		if parsed.Secure {
			opts.Secure = true
		}
	}
	if forceSecure {
		opts.Secure = true
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// Normalize canonicalizes a caller supplied options value.
//
// When Servers is empty the URL field is parsed instead. User-info embedded in
// server entries is lifted into Credentials unless credentials are already set.
func Normalize(o Options) (Options, error) {
	opts := o.Clone()
	if len(opts.Servers) == 0 {
		rawURL := strings.TrimSpace(opts.URL)
		if rawURL == "" {
			rawURL = DefaultURL
		}
		explicit := opts.Credentials
		resolved, err := Resolve(opts, rawURL, false)
		if err != nil {
			return Options{}, err
		}
		if explicit != nil {
			resolved.Credentials = explicit
		}
		return resolved, nil
	}
	servers := make([]string, 0, len(opts.Servers))
	for _, entry := range opts.Servers {
		server, creds, secure, err := parseSegment(strings.TrimSpace(entry))
		if err != nil {
			return Options{}, err
		}
		servers = append(servers, server)
		if opts.Credentials == nil && creds != nil {
			opts.Credentials = creds
		}
		opts.Secure = opts.Secure || secure
	}
	opts.Servers = servers
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

func parseSegment(segment string) (string, *Credentials, bool, error) {
	if segment == "" {
		return "", nil, false, configError(segment, "empty server entry", nil)
	}
	raw := segment
	if !strings.Contains(raw, "://") {
		raw = "nats://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", nil, false, configError(segment, "parse url", err)
	}

	scheme := strings.ToLower(u.Scheme)
	secure := false
	switch scheme {
	case "nats", "ws":
	case "tls", "wss":
		secure = true
	default:
		return "", nil, false, configError(segment, "unsupported scheme "+strconv.Quote(u.Scheme), nil)
	}

	if u.Opaque != "" || (u.Path != "" && u.Path != "/") {
		return "", nil, false, configError(segment, "unexpected path in server url", nil)
	}
	if u.RawQuery != "" || u.ForceQuery || strings.Contains(segment, "#") {
		return "", nil, false, configError(segment, "unexpected query or fragment in server url", nil)
	}

	host := u.Hostname()
	if host == "" {
		return "", nil, false, configError(segment, "no host in server url", nil)
	}
	port := u.Port()
	if port == "" {
		port = defaultPortForScheme(scheme)
	} else if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
		return "", nil, false, configError(segment, "invalid port "+strconv.Quote(port), err)
	}

	creds, err := credentialsFrom(segment, u.User)
	if err != nil {
		return "", nil, false, err
	}
	return scheme + "://" + net.JoinHostPort(host, port), creds, secure, nil
}

func credentialsFrom(segment string, info *url.Userinfo) (*Credentials, error) {
	if info == nil {
		return nil, nil
	}
	username := info.Username()
	password, hasPassword := info.Password()
	if username == "" {
		if hasPassword {
			return nil, configError(segment, "password given without username", nil)
		}
		return nil, configError(segment, "empty user info", nil)
	}
	if !hasPassword {
		return &Credentials{Token: username}, nil
	}
	return &Credentials{Username: username, Password: password}, nil
}

func defaultPortForScheme(scheme string) string {
	switch strings.ToLower(scheme) {
	case "ws":
		return "80"
	case "wss":
		return "443"
	default:
		return DefaultPort
	}
}

// RedactURL masks the user-info of every segment of a comma separated URL.
// It works on unparsable input too, so it is safe for error messages.
func RedactURL(raw string) string {
	segments := strings.Split(raw, ",")
	for i, segment := range segments {
		at := strings.LastIndex(segment, "@")
		if at < 0 {
			continue
		}
		start := 0
		if idx := strings.Index(segment, "://"); idx >= 0 && idx < at {
			start = idx + len("://")
		}
		segments[i] = segment[:start] + "xxxxx" + segment[at:]
	}
	return strings.Join(segments, ",")
}
