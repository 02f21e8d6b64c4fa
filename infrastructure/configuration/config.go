package configuration

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"vocab-bot/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	App         App         `json:"app"`
	RedisClient RedisClient `json:"redisClient"`
	YouTube     YouTube     `json:"youtube"`
	Transcript  Transcript  `json:"transcript"`
	Resolver    Resolver    `json:"resolver"`
	Worker      Worker      `json:"worker"`
	Pubsub      Pubsub      `json:"pubsub"`
	Logger      Logger      `json:"logger"`
	Metrics     Metrics     `json:"metrics"`
}

type App struct {
	Port         int      `json:"port"`
	SecretKey    string   `json:"secretKey"`
	AllowOrigins []string `json:"allowOrigins"`
}

type RedisClient struct {
	Host         string `json:"host"`
	Port         string `json:"port"`
	Password     string `json:"password"`
	DatabaseName string `json:"databaseName"`
	Username     string `json:"username"`
}

// Addr is host:port of the Redis server.
func (r RedisClient) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// DB parses DatabaseName as a Redis database number, 0 when unset.
func (r RedisClient) DB() int {
	n, err := strconv.Atoi(r.DatabaseName)
	if err != nil {
		return 0
	}
	return n
}

type YouTube struct {
	APIKeys            []string `json:"apiKeys"`
	SearchCost         int64    `json:"searchCost"`
	MaxResults         int      `json:"maxResults"`
	MaxPages           int      `json:"maxPages"`
	MaxBackoffAttempts int      `json:"maxBackoffAttempts"`
	Endpoint           string   `json:"endpoint"`
}

type Transcript struct {
	Proxies           []string `json:"proxies"`
	RequestsPerSecond float64  `json:"requestsPerSecond"`
	TimeoutSeconds    int      `json:"timeoutSeconds"`
	BaseURL           string   `json:"baseURL"`
}

type Resolver struct {
	AwaitTimeoutSeconds int `json:"awaitTimeoutSeconds"`
	SeenTTLHours        int `json:"seenTTLHours"`
}

type Worker struct {
	Concurrency        int    `json:"concurrency"`
	Queue              string `json:"queue"`
	TaskTimeoutSeconds int    `json:"taskTimeoutSeconds"`
}

type Pubsub struct {
	ProjectID string `json:"projectID"`
	Topic     string `json:"topic"`
}

type Logger struct {
	Level string `json:"level"`
}

type Metrics struct {
	Addr string `json:"addr"`
}

var C Config

func init() {
	Load()
}

// Load rebuilds C from the config file and the environment.
func Load() {
	C = Config{}
	LoadConfig()
	initApp(&C)
	initRedis(&C)
	initYouTube(&C)
	initTranscript(&C)
	initDefaults(&C)
	logger.SetLevel(C.Logger.Level)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initApp(C *Config) {
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	// APP_PORT -> PORT -> config -> 10001
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10001
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; JWT authentication will fail. Provide SECRET_KEY via environment.")
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		C.Logger.Level = v
	}
	if v := os.Getenv("CORS_ALLOW_ORIGINS"); v != "" {
		C.App.AllowOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				C.App.AllowOrigins = append(C.App.AllowOrigins, o)
			}
		}
	}
}

func initRedis(C *Config) {
	C.RedisClient.Host = getConfigValue(C.RedisClient.Host, "REDIS_HOST", "localhost")
	C.RedisClient.Port = getConfigValue(C.RedisClient.Port, "REDIS_PORT", "6379")
	C.RedisClient.Password = getConfigValue(C.RedisClient.Password, "REDIS_PASSWORD", "")
	C.RedisClient.Username = getConfigValue(C.RedisClient.Username, "REDIS_USERNAME", "")
	C.RedisClient.DatabaseName = getConfigValue(C.RedisClient.DatabaseName, "REDIS_DB", "0")
}

func initYouTube(C *Config) {
	C.YouTube.APIKeys = GetYouTubeKeys(C.YouTube.APIKeys)
	if len(C.YouTube.APIKeys) == 0 {
		logger.GetLogger().Warn("No YouTube API keys configured; video search will report errors")
	}
}

func initTranscript(C *Config) {
	C.Transcript.Proxies = GetTranscriptProxies(C.Transcript.Proxies)
}

func initDefaults(C *Config) {
	if C.YouTube.SearchCost <= 0 {
		C.YouTube.SearchCost = 100
	}
	if C.YouTube.MaxResults <= 0 {
		C.YouTube.MaxResults = 20
	}
	if C.YouTube.MaxPages <= 0 {
		C.YouTube.MaxPages = 3
	}
	if C.YouTube.MaxBackoffAttempts <= 0 {
		C.YouTube.MaxBackoffAttempts = 3
	}
	if C.Transcript.RequestsPerSecond <= 0 {
		C.Transcript.RequestsPerSecond = 2
	}
	if C.Transcript.TimeoutSeconds <= 0 {
		C.Transcript.TimeoutSeconds = 15
	}
	if C.Resolver.AwaitTimeoutSeconds <= 0 {
		C.Resolver.AwaitTimeoutSeconds = 15
	}
	if C.Resolver.SeenTTLHours <= 0 {
		C.Resolver.SeenTTLHours = 24
	}
	if C.Worker.Concurrency <= 0 {
		C.Worker.Concurrency = 4
	}
	if C.Worker.Queue == "" {
		C.Worker.Queue = "links"
	}
	if C.Worker.TaskTimeoutSeconds <= 0 {
		C.Worker.TaskTimeoutSeconds = 300
	}
	C.Pubsub.ProjectID = getConfigValue(C.Pubsub.ProjectID, "PUBSUB_PROJECT_ID", "")
	C.Pubsub.Topic = getConfigValue(C.Pubsub.Topic, "PUBSUB_TOPIC", "link-outcomes")
	C.Metrics.Addr = getConfigValue(C.Metrics.Addr, "METRICS_ADDR", ":9090")
}
