package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/StatusSSS/CopyParser/utils/logger"
)

// one database one instance
type PostgresqlConfig struct {
	Host       string
	Port       int64
	Account    string
	Password   string
	DBName     string
	SchemaName string
}

type RedisConfig struct {
	Host         string `mapstructure:"Host"`
	DB           int64  `mapstructure:"DB"`
	Password     string `mapstructure:"Password"`
	MinIdleConns int64  `mapstructure:"MinIdleConns"`
}

type KafkaConfig struct {
	Enabled       bool
	Host          string
	ProducerTopic string

	Protocol string
	Username string
	Password string
	CAPath   string
}

// ScanServer holds the scraping pipeline knobs.
type ScanServer struct {
	Period       string // "7d" or "30d"
	MaxAgeHours  int
	MinMarketCap int64

	WorkerNum      int
	StaggerSeconds int
	WarmupAttempts int
	FetchTimeout   int // seconds, per page visit

	MaxTradeRows int
	MinRockets   int64

	DataDir  string
	KeepRuns int

	TrendingURL  string
	TokenURL     string
	WalletAPIURL string
	AddressURL   string

	QuantCacheTTL int // seconds
}

// struct decode must has tag
type Config struct {
	PostgresqlConfig PostgresqlConfig `mapstructure:"PostgresqlConfig"`
	KafkaConf        KafkaConfig      `mapstructure:"KafkaConfig"`
	ScanConf         ScanServer       `mapstructure:"ScanServer"`
	RedisConf        RedisConfig      `mapstructure:"RedisConfig"`
}

var (
	configMutex = sync.RWMutex{}
	config      Config

	configViper     *viper.Viper
	configFlyChange []chan bool
)

func RegistConfChange(c chan bool) {
	configFlyChange = append(configFlyChange, c)
}

func notifyConfChange() {
	for i := 0; i < len(configFlyChange); i++ {
		configFlyChange[i] <- true
	}
}

func watchConfig(c *viper.Viper) error {
	c.WatchConfig()
	cfn := func(e fsnotify.Event) {
		logger.Logrus.WithFields(logrus.Fields{"change": e.String()}).Info("config change and reload it")
		reloadConfig(c)
		notifyConfChange()
	}

	c.OnConfigChange(cfn)
	return nil
}

func LoadConf(configFilePath string) error {
	config = Config{}
	configMutex.Lock()
	defer configMutex.Unlock()

	configViper = viper.New()
	configViper.SetConfigName("config")
	configViper.AddConfigPath(configFilePath) //endwith "/"
	configViper.SetConfigType("yaml")

	setScanDefaults(configViper)

	if err := configViper.ReadInConfig(); err != nil {
		return err
	}
	if err := configViper.Unmarshal(&config); err != nil {
		return err
	}

	logger.Logrus.WithFields(logrus.Fields{"Config": config}).Info("Load config success")

	if err := watchConfig(configViper); err != nil {
		return err
	}
	return nil
}

func setScanDefaults(v *viper.Viper) {
	v.SetDefault("ScanServer.Period", "7d")
	v.SetDefault("ScanServer.MaxAgeHours", 12)
	v.SetDefault("ScanServer.MinMarketCap", 50000)
	v.SetDefault("ScanServer.WorkerNum", 4)
	v.SetDefault("ScanServer.StaggerSeconds", 4)
	v.SetDefault("ScanServer.WarmupAttempts", 4)
	v.SetDefault("ScanServer.FetchTimeout", 20)
	v.SetDefault("ScanServer.MaxTradeRows", 100)
	v.SetDefault("ScanServer.MinRockets", 2)
	v.SetDefault("ScanServer.DataDir", "./data")
	v.SetDefault("ScanServer.KeepRuns", 3)
	v.SetDefault("ScanServer.QuantCacheTTL", 3600)
}

func reloadConfig(c *viper.Viper) {
	configMutex.Lock()
	defer configMutex.Unlock()

	if err := c.ReadInConfig(); err != nil {
		logger.Logrus.WithFields(logrus.Fields{"ErrMsg": err.Error()}).Error("config ReLoad failed")
	}

	if err := configViper.Unmarshal(&config); err != nil {
		logger.Logrus.WithFields(logrus.Fields{"ErrMsg": err.Error()}).Error("unmarshal config failed")
	}

	logger.Logrus.WithFields(logrus.Fields{"config": config}).Info("Config ReLoad Success")
}

func GetPostgresqlConfig() PostgresqlConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return config.PostgresqlConfig
}

func GetKafkaConfig() KafkaConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return config.KafkaConf
}

func GetRedisConfig() RedisConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return config.RedisConf
}

func GetScanConfig() ScanServer {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return config.ScanConf
}
