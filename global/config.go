package global

import (
	"context"
	"sync"
	"time"

	"QChat/data/database/mgo/mongoutil"
	"QChat/logger"
	redisSrv "QChat/service/storage/redis"
	"QChat/tools/ids"
	"QChat/tools/security"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// AppConfig defines every environment variable the process reads.
type AppConfig struct {
	HTTPAddr string `envconfig:"QCHAT_HTTP_ADDR" default:":8080"`

	MongoURI     string `envconfig:"QCHAT_MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDB      string `envconfig:"QCHAT_MONGO_DB" default:"qchat"`
	MongoMaxPool int    `envconfig:"QCHAT_MONGO_MAX_POOL" default:"20"`

	RedisAddr     string `envconfig:"QCHAT_REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string `envconfig:"QCHAT_REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"QCHAT_REDIS_DB" default:"0"`

	JWTSecret string        `envconfig:"QCHAT_JWT_SECRET" default:"dev-only-qchat-secret"`
	TokenTTL  time.Duration `envconfig:"QCHAT_TOKEN_TTL" default:"24h"`

	// Payloads above this size are rejected with InvalidContent.
	// Default mirrors the 4mb JSON body limit of the HTTP layer.
	MaxMessageBytes int `envconfig:"QCHAT_MAX_MESSAGE_BYTES" default:"4194304"`

	ResyncInterval time.Duration `envconfig:"QCHAT_RESYNC_INTERVAL" default:"2s"`

	NodeID int64 `envconfig:"QCHAT_NODE_ID" default:"100"`
}

var (
	conf     AppConfig
	loadOnce sync.Once
	mongoCli *mongoutil.Client
)

// Load reads .env (if present) and the environment. Safe to call repeatedly;
// only the first call parses.
func Load() (AppConfig, error) {
	var err error
	loadOnce.Do(func() {
		_ = godotenv.Load()
		err = envconfig.Process("", &conf)
	})
	return conf, err
}

// Conf returns the loaded configuration.
func Conf() AppConfig { return conf }

func GetJwtSecret() []byte { return []byte(conf.JWTSecret) }

// JWTOptions builds the signing options used everywhere tokens are touched.
func JWTOptions() security.Options {
	opts := security.DefaultOptions(GetJwtSecret())
	opts.TTL = conf.TokenTTL
	return opts
}

func ConfigIds() {
	ids.SetNodeID(conf.NodeID)
}

func ConfigRedis() {
	err := redisSrv.InitRedis(redisSrv.Config{
		Addr:     conf.RedisAddr,
		Password: conf.RedisPassword,
		DB:       conf.RedisDB,
	})
	if err != nil {
		// Session revocation degrades to JWT-only checks; not fatal.
		logger.Warnf("[global] redis unavailable: %v", err)
	}
}

func ConfigMgo(ctx context.Context) error {
	cli, err := mongoutil.NewMongoDB(ctx, &mongoutil.Config{
		Uri:         conf.MongoURI,
		Database:    conf.MongoDB,
		MaxPoolSize: conf.MongoMaxPool,
		MaxRetry:    3,
	})
	if err != nil {
		return err
	}
	mongoCli = cli
	return nil
}

// Mongo returns the shared Mongo client set up by ConfigMgo.
func Mongo() *mongoutil.Client { return mongoCli }
