package configs

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	Engine    EngineConfig
	Classify  ClassifyConfig
	Practice  PracticeConfig
	Storage   StorageConfig
	Import    ImportConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Mode     string
	Username string
}

type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type EngineConfig struct {
	BinaryPath     string
	MaxWorkers     int
	DefaultDepth   int
	DefaultTimeMs  int
	MaxDepth       int
	MaxTimeMs      int
	Threads        int
	HashSizeMB     int
	SkillLevel     int // 0-20; negative = leave the engine at full strength
	DefaultMultiPV int
	AcquireTimeout time.Duration
}

// ClassifyConfig carries the move-classification thresholds and the
// book-move prefix length.
type ClassifyConfig struct {
	ExcellentCP  int
	GoodCP       int
	InaccuracyCP int
	MistakeCP    int
	BookPlies    int
	ECOMaxPlies  int
}

// PracticeConfig carries the practice generator's offset/target-line
// defaults and whether Inaccuracy is opted in as a drilled category.
type PracticeConfig struct {
	OffsetPlies        int
	TargetLinePlies    int
	IncludeInaccuracy  bool
	SessionLimit       int
	DueOnly            bool
}

// StorageConfig points at the directory holding the embedded database.
// LegacyDBPath is the pre-reorganisation location at the project root,
// migrated into DBPath on first start when DBPath is still empty.
type StorageConfig struct {
	DBPath       string
	LegacyDBPath string
}

// ImportConfig carries the chess.com web-archive importer's defaults and
// the post-import automation flags.
type ImportConfig struct {
	ChessComBaseURL  string
	UserAgent        string
	FetchConcurrency int
	HTTPTimeout      time.Duration
	AutoAnalyze      bool
	AutoDedupe       bool
}

type RateLimitConfig struct {
	GameAnalysisPerHour     int
	PositionAnalysisPerHour int
	ImportPerHour           int
	PracticeSessionsPerHour int
}

func Load() *Config {
	viper.SetDefault("APP_MODE", "debug")
	viper.SetDefault("APP_USERNAME", "")
	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("SERVER_READ_TIMEOUT", "30s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "30s")
	viper.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "30s")

	viper.SetDefault("ENGINE_BINARY_PATH", "stockfish")
	viper.SetDefault("ENGINE_MAX_WORKERS", 4)
	viper.SetDefault("ENGINE_DEFAULT_DEPTH", 16)
	viper.SetDefault("ENGINE_DEFAULT_TIME_MS", 0)
	viper.SetDefault("ENGINE_MAX_DEPTH", 30)
	viper.SetDefault("ENGINE_MAX_TIME_MS", 30000)
	viper.SetDefault("ENGINE_THREADS", 1)
	viper.SetDefault("ENGINE_HASH_SIZE_MB", 128)
	viper.SetDefault("ENGINE_SKILL_LEVEL", -1)
	viper.SetDefault("ENGINE_DEFAULT_MULTIPV", 3)
	viper.SetDefault("ENGINE_ACQUIRE_TIMEOUT", "30s")

	viper.SetDefault("CLASSIFY_EXCELLENT_CP", 15)
	viper.SetDefault("CLASSIFY_GOOD_CP", 50)
	viper.SetDefault("CLASSIFY_INACCURACY_CP", 100)
	viper.SetDefault("CLASSIFY_MISTAKE_CP", 200)
	viper.SetDefault("CLASSIFY_BOOK_PLIES", 12)
	viper.SetDefault("CLASSIFY_ECO_MAX_PLIES", 20)

	viper.SetDefault("PRACTICE_OFFSET_PLIES", 2)
	viper.SetDefault("PRACTICE_TARGET_LINE_PLIES", 1)
	viper.SetDefault("PRACTICE_INCLUDE_INACCURACY", false)
	viper.SetDefault("PRACTICE_SESSION_LIMIT", 20)
	viper.SetDefault("PRACTICE_DUE_ONLY", true)

	viper.SetDefault("STORAGE_DB_PATH", "data/db")
	viper.SetDefault("STORAGE_LEGACY_DB_PATH", "analysis-db")

	viper.SetDefault("IMPORT_CHESSCOM_BASE_URL", "https://api.chess.com/pub/player")
	viper.SetDefault("IMPORT_USER_AGENT", "dco-analysis-service/1.0")
	viper.SetDefault("IMPORT_FETCH_CONCURRENCY", 3)
	viper.SetDefault("IMPORT_HTTP_TIMEOUT", "20s")
	viper.SetDefault("IMPORT_AUTO_ANALYZE", false)
	viper.SetDefault("IMPORT_AUTO_DEDUPE", true)

	viper.SetDefault("RATE_LIMIT_GAME_ANALYSIS_PER_HOUR", 200)
	viper.SetDefault("RATE_LIMIT_POSITION_ANALYSIS_PER_HOUR", 5000)
	viper.SetDefault("RATE_LIMIT_IMPORT_PER_HOUR", 20)
	viper.SetDefault("RATE_LIMIT_PRACTICE_SESSIONS_PER_HOUR", 500)

	viper.AutomaticEnv()

	readTimeout, _ := time.ParseDuration(viper.GetString("SERVER_READ_TIMEOUT"))
	writeTimeout, _ := time.ParseDuration(viper.GetString("SERVER_WRITE_TIMEOUT"))
	shutdownTimeout, _ := time.ParseDuration(viper.GetString("SERVER_SHUTDOWN_TIMEOUT"))
	acquireTimeout, _ := time.ParseDuration(viper.GetString("ENGINE_ACQUIRE_TIMEOUT"))
	httpTimeout, _ := time.ParseDuration(viper.GetString("IMPORT_HTTP_TIMEOUT"))

	return &Config{
		App: AppConfig{
			Mode:     viper.GetString("APP_MODE"),
			Username: viper.GetString("APP_USERNAME"),
		},
		Server: ServerConfig{
			Port:            viper.GetInt("SERVER_PORT"),
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
		},
		Engine: EngineConfig{
			BinaryPath:     viper.GetString("ENGINE_BINARY_PATH"),
			MaxWorkers:     viper.GetInt("ENGINE_MAX_WORKERS"),
			DefaultDepth:   viper.GetInt("ENGINE_DEFAULT_DEPTH"),
			DefaultTimeMs:  viper.GetInt("ENGINE_DEFAULT_TIME_MS"),
			MaxDepth:       viper.GetInt("ENGINE_MAX_DEPTH"),
			MaxTimeMs:      viper.GetInt("ENGINE_MAX_TIME_MS"),
			Threads:        viper.GetInt("ENGINE_THREADS"),
			HashSizeMB:     viper.GetInt("ENGINE_HASH_SIZE_MB"),
			SkillLevel:     viper.GetInt("ENGINE_SKILL_LEVEL"),
			DefaultMultiPV: viper.GetInt("ENGINE_DEFAULT_MULTIPV"),
			AcquireTimeout: acquireTimeout,
		},
		Classify: ClassifyConfig{
			ExcellentCP:  viper.GetInt("CLASSIFY_EXCELLENT_CP"),
			GoodCP:       viper.GetInt("CLASSIFY_GOOD_CP"),
			InaccuracyCP: viper.GetInt("CLASSIFY_INACCURACY_CP"),
			MistakeCP:    viper.GetInt("CLASSIFY_MISTAKE_CP"),
			BookPlies:    viper.GetInt("CLASSIFY_BOOK_PLIES"),
			ECOMaxPlies:  viper.GetInt("CLASSIFY_ECO_MAX_PLIES"),
		},
		Practice: PracticeConfig{
			OffsetPlies:       viper.GetInt("PRACTICE_OFFSET_PLIES"),
			TargetLinePlies:   viper.GetInt("PRACTICE_TARGET_LINE_PLIES"),
			IncludeInaccuracy: viper.GetBool("PRACTICE_INCLUDE_INACCURACY"),
			SessionLimit:      viper.GetInt("PRACTICE_SESSION_LIMIT"),
			DueOnly:           viper.GetBool("PRACTICE_DUE_ONLY"),
		},
		Storage: StorageConfig{
			DBPath:       viper.GetString("STORAGE_DB_PATH"),
			LegacyDBPath: viper.GetString("STORAGE_LEGACY_DB_PATH"),
		},
		Import: ImportConfig{
			ChessComBaseURL:  viper.GetString("IMPORT_CHESSCOM_BASE_URL"),
			UserAgent:        viper.GetString("IMPORT_USER_AGENT"),
			FetchConcurrency: viper.GetInt("IMPORT_FETCH_CONCURRENCY"),
			HTTPTimeout:      httpTimeout,
			AutoAnalyze:      viper.GetBool("IMPORT_AUTO_ANALYZE"),
			AutoDedupe:       viper.GetBool("IMPORT_AUTO_DEDUPE"),
		},
		RateLimit: RateLimitConfig{
			GameAnalysisPerHour:     viper.GetInt("RATE_LIMIT_GAME_ANALYSIS_PER_HOUR"),
			PositionAnalysisPerHour: viper.GetInt("RATE_LIMIT_POSITION_ANALYSIS_PER_HOUR"),
			ImportPerHour:           viper.GetInt("RATE_LIMIT_IMPORT_PER_HOUR"),
			PracticeSessionsPerHour: viper.GetInt("RATE_LIMIT_PRACTICE_SESSIONS_PER_HOUR"),
		},
	}
}
