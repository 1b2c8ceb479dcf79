// internal/config/model.go
//
// Typed configuration model for the portal.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                           – dotenv values,
//   • `conf/portal.yaml`                        – primary static file,
//   • `PORTLET_`-prefixed environment overrides – highest precedence.
//
// Validation happens immediately after unmarshal; the binary fails fast if
// required fields are missing.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
}

//
// Log section
//

// Log controls the zap logger.  Dir is relative to the root unless absolute.
type Log struct {
	Dir   string `koanf:"dir"`
	Tee   bool   `koanf:"tee"`
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
}

//
// Beans section
//

// Bean declares a fixed parameter name for one scoped bean type.  Type is
// the canonical name, `<import path>.<TypeName>`.
type Bean struct {
	Type      string `koanf:"type"       validate:"required"`
	ParamName string `koanf:"param_name" validate:"required"`
}

//
// Filter section
//

// Filter lists parameter names windows may not change.  Entries are either
// "name" or "window/name"; public entries may also use "{ns}local".  Rules
// are boolean expr-lang expressions over one change.
type Filter struct {
	DenyPublic  []string `koanf:"deny_public"`
	DenyPrivate []string `koanf:"deny_private"`
	Rules       []string `koanf:"rules"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime.  The loader discovers `Root` (repo root or
// PORTLET_ROOT override) so later code can build absolute file paths.
type Paths struct {
	Root string
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP   HTTP   `koanf:"http"`
	Log    Log    `koanf:"log"`
	Beans  []Bean `koanf:"beans"  validate:"dive"`
	Filter Filter `koanf:"filter"`
	Paths  Paths  `koanf:"-"`
}
