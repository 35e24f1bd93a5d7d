package config

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type CLIOptions struct {
	ConfigPath string
	ShowHelp   bool

	KeymapPath      string
	WatchKeymap     bool
	Arpeggiate      bool
	Suppress        bool
	StrokeLogPath   string
	ForwardEndpoint string
	Token           string
	ExtraConfig     string
	UndoPath        string
	RequestTimeout  int
	MaxRetry        int
	RetryBaseDelay  float64
	EnableHTTP2     bool
	VerifySSL       bool
	QueueSize       int
	DEBUG           bool

	set map[string]bool
}

func ParseCLI(args []string, stderr io.Writer) (CLIOptions, error) {
	opts := CLIOptions{set: make(map[string]bool)}
	fs := flag.NewFlagSet("stenokb", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.ConfigPath, "config", "", "JSON path of config file")
	fs.StringVar(&opts.KeymapPath, "keymap", "", "keymap file (.json, .toml, .yaml)")
	fs.BoolVar(&opts.WatchKeymap, "watch-keymap", false, "reload the keymap when its file changes")
	fs.BoolVar(&opts.Arpeggiate, "arpeggiate", false, "arpeggiate (true|false)")
	fs.BoolVar(&opts.Suppress, "suppress", false, "swallow bound keys (true|false)")
	fs.StringVar(&opts.StrokeLogPath, "stroke-log", "", "sqlite stroke log path")
	fs.StringVar(&opts.ForwardEndpoint, "forward-endpoint", "", "http endpoint receiving strokes")
	fs.StringVar(&opts.Token, "token", "", "token")
	fs.StringVar(&opts.ExtraConfig, "extra-config", "", "extra config")
	fs.StringVar(&opts.UndoPath, "undo-path", "", "response field requesting an undo")
	fs.IntVar(&opts.RequestTimeout, "request-timeout", 0, "request timeout")
	fs.IntVar(&opts.MaxRetry, "max-retry", 0, "max retry")
	fs.Float64Var(&opts.RetryBaseDelay, "retry-base-delay", 0, "retry base delay")
	fs.BoolVar(&opts.EnableHTTP2, "enable-http2", false, "enable http2")
	fs.BoolVar(&opts.VerifySSL, "verify-ssl", false, "verify ssl")
	fs.IntVar(&opts.QueueSize, "queue-size", 0, "stroke queue size")
	fs.BoolVar(&opts.DEBUG, "debug", false, "debug")
	fs.BoolVar(&opts.ShowHelp, "h", false, "help")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	fs.Visit(func(f *flag.Flag) {
		opts.set[f.Name] = true
	})
	return opts, nil
}

func (o CLIOptions) AnyOverrideSet() bool {
	for k := range o.set {
		if k != "config" && k != "h" {
			return true
		}
	}
	return false
}

func (o CLIOptions) IsSet(name string) bool {
	return o.set[name]
}

func ApplyCLI(c *Config, o CLIOptions) {
	if o.IsSet("keymap") {
		c.KeymapPath = o.KeymapPath
	}
	if o.IsSet("watch-keymap") {
		c.WatchKeymap = o.WatchKeymap
	}
	if o.IsSet("arpeggiate") {
		c.Arpeggiate = o.Arpeggiate
	}
	if o.IsSet("suppress") {
		c.Suppress = o.Suppress
	}
	if o.IsSet("stroke-log") {
		c.StrokeLogPath = o.StrokeLogPath
	}
	if o.IsSet("forward-endpoint") {
		c.ForwardEndpoint = o.ForwardEndpoint
	}
	if o.IsSet("token") {
		c.Token = o.Token
	}
	if o.IsSet("extra-config") {
		c.ExtraConfig = o.ExtraConfig
	}
	if o.IsSet("undo-path") {
		c.UndoPath = o.UndoPath
	}
	if o.IsSet("request-timeout") {
		c.RequestTimeout = o.RequestTimeout
	}
	if o.IsSet("max-retry") {
		c.MaxRetry = o.MaxRetry
	}
	if o.IsSet("retry-base-delay") {
		c.RetryBaseDelay = o.RetryBaseDelay
	}
	if o.IsSet("enable-http2") {
		c.EnableHTTP2 = o.EnableHTTP2
	}
	if o.IsSet("verify-ssl") {
		c.VerifySSL = o.VerifySSL
	}
	if o.IsSet("queue-size") {
		c.QueueSize = o.QueueSize
	}
	if o.IsSet("debug") {
		c.DEBUG = o.DEBUG
	}
}

func Usage(w io.Writer, program string) {
	fmt.Fprintf(w, `Usage: %s [options]

Uses the computer keyboard as a steno machine: chords of held keys are
turned into strokes and handed to the configured outputs.

Options:
[Machine]
  -config <path>
        JSON config file (default: config.json, created on first run)
  -keymap <path>
        keymap file, .json, .toml or .yaml. Maps steno keys (or "no-op",
        "arpeggiate") to lists of key names. Default: the standard layout.
  -watch-keymap <true|false>
        reload the keymap while running when its file changes (default true)
  -arpeggiate <true|false>
        enable the arpeggiate key (default false)
  -suppress <true|false>
        swallow bound keys so they do not type (default true)

  Key names: a..z, 0..9, f1..f24, space, tab, return, escape, backspace,
  and the punctuation keys as characters: - = [ ] ; ' , . / \ `+"`"+`
  (aliases: minus, equal, bracketleft, bracketright, semicolon, apostrophe,
  comma, period, slash, backslash, grave).

[Outputs]
  -stroke-log <path>
        append every stroke to a sqlite database
  -forward-endpoint <url>
        POST every stroke as JSON to this endpoint
  -token <string>
        bearer token for the endpoint
  -extra-config <string>
        JSON object merged into every forwarded payload, e.g. "{\"machine\":\"kb\"}"
  -undo-path <string>
        field of the endpoint's JSON reply that, when true, undoes the
        stroke with backspaces (default "undo")

[Network]
  -request-timeout <int>
        request timeout in seconds (default 5)
  -max-retry <int>
        attempts per stroke (default 3)
  -retry-base-delay <float>
        retry base delay in seconds (default 0.2)
  -enable-http2 <true|false>
  -verify-ssl <true|false>

[Misc]
  -queue-size <int>
        strokes buffered for the outputs before dropping (default 256)
  -debug <true|false>

Examples:
  %s -keymap keymap.toml -arpeggiate=true
  %s -stroke-log strokes.db -forward-endpoint http://localhost:8080/stroke

Precedence: command line > config file > defaults.

`, program, program, program)
}

func ParseBoolString(s string) (bool, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return false, fmt.Errorf("empty bool")
	}
	if s == "1" || s == "yes" || s == "on" {
		return true, nil
	}
	if s == "0" || s == "no" || s == "off" {
		return false, nil
	}
	return strconv.ParseBool(s)
}
