package model

import "time"

// Config holds the complete harvest configuration
type Config struct {
	HTTP         HTTPConfig        `yaml:"http" mapstructure:"http"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Library      LibraryConfig     `yaml:"library" mapstructure:"library"`
	Relevance    RelevanceConfig   `yaml:"relevance" mapstructure:"relevance"`
	Colleges     []CollegeConfig   `yaml:"colleges" mapstructure:"colleges"`
	Dedup        DedupConfig       `yaml:"dedup" mapstructure:"dedup"`
	Output       OutputConfig      `yaml:"output" mapstructure:"output"`
	Logging      LoggingConfig     `yaml:"logging" mapstructure:"logging"`
	Store        StoreConfig       `yaml:"store" mapstructure:"store"`
	Metrics      MetricsConfig     `yaml:"metrics" mapstructure:"metrics"`
}

// HTTPConfig configures outbound requests
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxAttempts   int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	InsecureTLS   bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// RateLimitConfig configures the per-host limiter
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`

	// Hosts overrides the rate of individual hosts, e.g. the library service
	Hosts []HostRateLimit `yaml:"hosts,omitempty" mapstructure:"hosts"`
}

// HostRateLimit is the rate of one host
type HostRateLimit struct {
	Host              string  `yaml:"host" mapstructure:"host"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ConcurrencyConfig bounds the fan-out of each stage
type ConcurrencyConfig struct {
	MemberFetches int `yaml:"member_fetches" mapstructure:"member_fetches"`
	PaperSearches int `yaml:"paper_searches" mapstructure:"paper_searches"`
	ScoreWorkers  int `yaml:"score_workers" mapstructure:"score_workers"`
}

// CacheConfig configures the page cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// LibraryConfig configures the Primo discovery service client
type LibraryConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	Institution string `yaml:"institution" mapstructure:"institution"`
	Limit       int    `yaml:"limit" mapstructure:"limit"`
	MaxAttempts int    `yaml:"max_attempts" mapstructure:"max_attempts"`

	// RetryJitter bounds the random pause taken before each search attempt
	RetryJitter time.Duration `yaml:"retry_jitter" mapstructure:"retry_jitter"`
}

// RelevanceConfig selects the relevance scheme used for authorship decisions
type RelevanceConfig struct {
	// Scheme is "tfidf" or "embedding"
	Scheme string `yaml:"scheme" mapstructure:"scheme"`

	// Threshold overrides the scheme's calibrated threshold when non-zero
	Threshold float64 `yaml:"threshold" mapstructure:"threshold"`

	// Embedding provider settings (OpenAI-compatible API)
	Model   string        `yaml:"model,omitempty" mapstructure:"model"`
	APIKey  string        `yaml:"-" mapstructure:"api_key"`
	BaseURL string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// CollegeConfig describes one college faculty directory.
//
// Fields maps a record field key to ordered alternatives; the first
// alternative producing a non-empty value wins. An alternative is one or more
// references joined with "+", each one of
//
//	entry:<key>    a key of the directory listing entry
//	page:<label>   a labelled value or section of the member page
//	class:<name>   the text of the first member page element with the class
//	after:<name>   the text of the element following that element
//
//	href:<name>    the link target inside the first element with the class
//	next:<label>   the text of the element following the one reading label
//
// Joined references are separated by "、".
type CollegeConfig struct {
	Code     string `yaml:"code" mapstructure:"code"`
	Name     string `yaml:"name" mapstructure:"name"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	Kind     string `yaml:"kind" mapstructure:"kind"`
	SiteID   string `yaml:"site_id,omitempty" mapstructure:"site_id"`
	ColumnID string `yaml:"column_id,omitempty" mapstructure:"column_id"`
	ListPath string `yaml:"list_path,omitempty" mapstructure:"list_path"`

	// WP3 directory query: the query object ("articles" when empty), the sort
	// field ("letter" when empty) and raw JSON filter conditions
	Query      string `yaml:"query,omitempty" mapstructure:"query"`
	OrderField string `yaml:"order_field,omitempty" mapstructure:"order_field"`
	Conditions string `yaml:"conditions,omitempty" mapstructure:"conditions"`

	FetchPages bool                `yaml:"fetch_pages" mapstructure:"fetch_pages"`
	PageKey    string              `yaml:"page_key,omitempty" mapstructure:"page_key"`
	Fields     map[string][]string `yaml:"fields,omitempty" mapstructure:"fields"`
}

// DedupConfig tunes identity resolution
type DedupConfig struct {
	// HomepageMarkers are substrings identifying college-hosted profile pages.
	// Markers derived from the configured colleges are always included.
	HomepageMarkers []string `yaml:"homepage_markers,omitempty" mapstructure:"homepage_markers"`

	// SourceOrder folds college batches in configuration order instead of
	// completion order, making the output reproducible across runs
	SourceOrder bool `yaml:"source_order" mapstructure:"source_order"`
}

// OutputConfig configures the JSONL outputs
type OutputConfig struct {
	FacultyPath string `yaml:"faculty_path" mapstructure:"faculty_path"`
	PapersPath  string `yaml:"papers_path" mapstructure:"papers_path"`
	Verbose     bool   `yaml:"verbose" mapstructure:"verbose"`
}

// LoggingConfig configures the structured logger
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	Output string `yaml:"output" mapstructure:"output"`
}

// StoreConfig configures the optional SQLite run store
type StoreConfig struct {
	Path string `yaml:"path,omitempty" mapstructure:"path"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty" mapstructure:"addr"`
}

// College kinds
const (
	CollegeKindWP3      = "wp3"
	CollegeKindListPage = "listpage"
	CollegeKindAZIndex  = "azindex"
)

// WP3 query objects
const (
	WP3QueryArticles    = "articles"
	WP3QueryTeacherHome = "teacherHome"
)

// Relevance schemes
const (
	SchemeTFIDF     = "tfidf"
	SchemeEmbedding = "embedding"
)

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:       20 * time.Second,
			UserAgent:     "Mozilla/5.0 (compatible; facultyscope/0.3; +https://github.com/ppiankov/facultyscope)",
			MaxBodyBytes:  8 << 20,
			MaxAttempts:   3,
			RespectRobots: false,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 8,
			BurstSize:         4,
			Hosts: []HostRateLimit{
				// it.fudan.edu.cn rejects bursts of member page requests
				{Host: "it.fudan.edu.cn", RequestsPerSecond: 3, BurstSize: 1},
			},
		},
		Concurrency: ConcurrencyConfig{
			MemberFetches: 6,
			PaperSearches: 20,
			ScoreWorkers:  4,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".facultyscope-cache",
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Library: LibraryConfig{
			BaseURL:     "https://fudan-primo.hosted.exlibrisgroup.com.cn",
			Institution: "fdu",
			Limit:       100,
			MaxAttempts: 3,
			RetryJitter: time.Second,
		},
		Relevance: RelevanceConfig{
			Scheme:  SchemeTFIDF,
			Model:   "text-embedding-3-small",
			Timeout: 30 * time.Second,
		},
		Colleges: DefaultColleges(),
		Output: OutputConfig{
			FacultyPath: "data/information.jsonl",
			PapersPath:  "data/all_data.jsonl",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
	}
}

// DefaultColleges returns the built-in college directories
func DefaultColleges() []CollegeConfig {
	return []CollegeConfig{
		{
			Code:     "ciram",
			Name:     "智能机器人与先进制造创新学院",
			BaseURL:  "https://ciram.fudan.edu.cn",
			Kind:     CollegeKindWP3,
			SiteID:   "1083",
			ColumnID: "50802",
			ListPath: "/cslm/list.htm",
			Fields: map[string][]string{
				"academic_title": {"entry:f1"},
				"subject":        {"entry:f2"},
			},
		},
		{
			Code:       "icmne",
			Name:       "集成电路与微纳电子创新学院",
			BaseURL:    "https://icmne.fudan.edu.cn",
			Kind:       CollegeKindWP3,
			ColumnID:   "48925",
			FetchPages: true,
			Fields: map[string][]string{
				"academic_title":   {"entry:f8+entry:f2"},
				"profile":          {"page:教育背景"},
				"personal_website": {"page:课题组主页", "entry:url"},
				"subject":          {"page:研究方向"},
				"email":            {"class:t4", "page:邮箱", "page:电子邮箱"},
				"phone":            {"class:t2", "page:电话"},
			},
		},
		{
			Code:       "icome",
			Name:       "智能材料与未来能源创新学院",
			BaseURL:    "https://icome.fudan.edu.cn",
			Kind:       CollegeKindListPage,
			ListPath:   "/49292/list.htm",
			FetchPages: true,
			Fields: map[string][]string{
				"academic_title":   {"after:p1", "page:职称"},
				"profile":          {"page:教育和工作经历"},
				"personal_website": {"page:课题组主页"},
				"subject":          {"page:研究方向"},
				"email":            {"page:邮箱"},
				"phone":            {"page:电话"},
			},
		},
		{
			Code:       "ai",
			Name:       "计算与智能创新学院",
			BaseURL:    "https://ai.fudan.edu.cn",
			Kind:       CollegeKindWP3,
			Query:      WP3QueryTeacherHome,
			SiteID:     "577",
			OrderField: "firstLetter",
			ListPath:   "/zzjs_39692/list.htm",
			FetchPages: true,
			PageKey:    "cnUrl",
			Fields: map[string][]string{
				"person_id":        {"entry:columnId"},
				"academic_title":   {"entry:exField1", "page:职称"},
				"profile":          {"page:学位"},
				"personal_website": {"href:news_gr"},
				"subject":          {"page:研究领域"},
				"email":            {"page:邮件"},
			},
		},
		{
			Code:       "bme_college",
			Name:       "生物医学工程与技术创新学院",
			BaseURL:    "https://bme-college.fudan.edu.cn",
			Kind:       CollegeKindWP3,
			Query:      WP3QueryTeacherHome,
			SiteID:     "1082",
			Conditions: `[{"field":"scope","value":0,"judge":"="}]`,
			ListPath:   "/szdw/list.htm",
			FetchPages: true,
			PageKey:    "cnUrl",
			Fields: map[string][]string{
				"person_id":        {"entry:columnId"},
				"academic_title":   {"page:职称", "entry:exField7"},
				"profile":          {"next:学习/工作经历"},
				"personal_website": {"next:课题组主页", "page:课题组主页", "entry:cnUrl"},
				"subject":          {"next:主要研究方向", "page:主要研究方向", "page:研究领域"},
				"email":            {"entry:email"},
				"phone":            {"entry:phone"},
			},
		},
		{
			Code:       "it",
			Name:       "未来信息创新学院",
			BaseURL:    "https://it.fudan.edu.cn",
			Kind:       CollegeKindAZIndex,
			ListPath:   "/Data/List/azc",
			FetchPages: true,
			Fields: map[string][]string{
				"academic_title":   {"page:职称"},
				"profile":          {"page:学习工作经历"},
				"personal_website": {"page:课题组主页"},
				"subject":          {"page:研究兴趣"},
				"email":            {"page:电子邮件", "page:电子邮箱"},
				"phone":            {"page:电话"},
			},
		},
	}
}
