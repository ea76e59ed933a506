package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Approver kinds.
const (
	ApproverRules = "rules"
	ApproverLLM   = "llm"
)

// Config holds application configuration.
type Config struct {
	// MaxIterations caps proposer invocations per inbox item.
	MaxIterations int `json:"max_iterations"`

	// Approver selects how human replies are classified: "rules" (offline
	// keyword classifier) or "llm".
	Approver string `json:"approver,omitempty"`

	// ApprovalPrecedence wraps the LLM approver so that any explicit revision
	// cue in a reply overrides an "approve" verdict. Pointer so that an
	// explicit false in an overlay can disable the default.
	ApprovalPrecedence *bool `json:"approval_precedence,omitempty"`

	// LLM configures the OpenAI-compatible chat completions endpoint.
	LLM LLMConfig `json:"llm"`

	// PromptsFile is an optional YAML file overriding the built-in
	// instructions. Relative paths resolve against the config directory.
	PromptsFile string `json:"prompts_file,omitempty"`

	// RetryAll makes "process --all" attempt every queued item once instead
	// of stopping at the first item that is not saved.
	RetryAll bool `json:"retry_all,omitempty"`

	// AutoLink links every Information of an approved proposal to the Ideas
	// and Tasks saved with it.
	AutoLink *bool `json:"auto_link,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// LogFormat is "text" or "json".
	LogFormat string `json:"log_format,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// AllowedPaths lists extra absolute directories where export and
	// import files may live, besides ~/.sift/exports.
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths lifts the directory restriction on export and import
	// paths. Symlink checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of tool type prefixes to disable entirely.
	// Known types: "inbox", "record", "plan", "suggestion", "review".
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// LLMConfig holds model endpoint settings.
type LLMConfig struct {
	BaseURL        string   `json:"base_url,omitempty"`
	Model          string   `json:"model,omitempty"`
	APIKeyEnv      string   `json:"api_key_env,omitempty"`
	TimeoutSeconds int      `json:"timeout_seconds,omitempty"`
	Temperature    *float64 `json:"temperature,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	enabled := true
	autoLink := true
	return &Config{
		MaxIterations:      3,
		Approver:           ApproverRules,
		ApprovalPrecedence: &enabled,
		LLM: LLMConfig{
			BaseURL:        "https://generativelanguage.googleapis.com/v1beta/openai",
			Model:          "gemini-2.0-flash-lite",
			APIKeyEnv:      "GEMINI_API_KEY",
			TimeoutSeconds: 60,
		},
		AutoLink:  &autoLink,
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// PrecedenceEnabled reports whether revision precedence wraps the approver.
func (c *Config) PrecedenceEnabled() bool {
	return c.ApprovalPrecedence == nil || *c.ApprovalPrecedence
}

// AutoLinkEnabled reports whether sibling links are created on save.
func (c *Config) AutoLinkEnabled() bool {
	return c.AutoLink == nil || *c.AutoLink
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.sift.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.sift) and repo (.sift) directories.
// Repo config is found by walking upward from startDir to find the nearest .sift/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repoConfigPath := FindRepoConfig(startDir)
	repo, err := loadFileRaw(repoConfigPath)
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .sift/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".sift", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// ResolvePromptsFile returns PromptsFile as an absolute path, resolving a
// relative value against baseDir. Empty stays empty.
func (c *Config) ResolvePromptsFile(baseDir string) string {
	if c.PromptsFile == "" || filepath.IsAbs(c.PromptsFile) {
		return c.PromptsFile
	}
	return filepath.Join(baseDir, c.PromptsFile)
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		MaxIterations:  firstInt(overlay.MaxIterations, base.MaxIterations),
		Approver:       firstString(overlay.Approver, base.Approver),
		PromptsFile:    firstString(overlay.PromptsFile, base.PromptsFile),
		LogLevel:       firstString(overlay.LogLevel, base.LogLevel),
		LogFormat:      firstString(overlay.LogFormat, base.LogFormat),
		DBMaxOpenConns: firstInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns: firstInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
		LLM: LLMConfig{
			BaseURL:        firstString(overlay.LLM.BaseURL, base.LLM.BaseURL),
			Model:          firstString(overlay.LLM.Model, base.LLM.Model),
			APIKeyEnv:      firstString(overlay.LLM.APIKeyEnv, base.LLM.APIKeyEnv),
			TimeoutSeconds: firstInt(overlay.LLM.TimeoutSeconds, base.LLM.TimeoutSeconds),
		},
	}

	// Pointers: overlay wins when set
	result.ApprovalPrecedence = base.ApprovalPrecedence
	if overlay.ApprovalPrecedence != nil {
		result.ApprovalPrecedence = overlay.ApprovalPrecedence
	}
	result.AutoLink = base.AutoLink
	if overlay.AutoLink != nil {
		result.AutoLink = overlay.AutoLink
	}
	result.LLM.Temperature = base.LLM.Temperature
	if overlay.LLM.Temperature != nil {
		result.LLM.Temperature = overlay.LLM.Temperature
	}

	// Booleans: overlay wins if true, else base
	result.RetryAll = base.RetryAll || overlay.RetryAll
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	// Arrays: merge and deduplicate
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

func firstInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

func firstString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
