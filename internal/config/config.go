package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	App      AppConfig
	Payment  PaymentConfig
	JWT      JWTConfig
}

type ServerConfig struct {
	Port int
	Env  string // "development", "production"
}

type DatabaseConfig struct {
	Host    string
	Port    string
	Name    string
	User    string
	Pass    string
	Charset string
}

type RedisConfig struct {
	Addr string
	Pass string
	DB   int
}

// AppConfig carries storefront-level settings. BaseURL doubles as the
// only origin the result relay will post messages to.
type AppConfig struct {
	BaseURL       string
	MinCardAmount int64
	OrderExpiry   time.Duration
}

type PaymentConfig struct {
	// Mode selects the active gateway: "inicis", "nicepay" or "auto".
	Mode    string
	Inicis  InicisConfig
	Nicepay NicepayConfig
}

type InicisConfig struct {
	MerchantID string
	SignKey    string
	APIKey     string
	PayURL     string
	RefundURL  string
}

type NicepayConfig struct {
	MerchantID  string
	MerchantKey string
	PayURL      string
	CancelURL   string
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

// Load reads configuration from .env file and environment variables.
func Load() (*Config, error) {
	// Load .env file (ignore error if missing)
	_ = godotenv.Load()

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("APP_PORT", 8081)
	viper.SetDefault("APP_ENV", "production")
	viper.SetDefault("APP_BASE_URL", "http://localhost:3000")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "3306")
	viper.SetDefault("DB_CHARSET", "utf8mb4")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("JWT_EXPIRY", "24h")
	viper.SetDefault("MIN_CARD_AMOUNT", 100)
	viper.SetDefault("ORDER_EXPIRY", "30m")
	viper.SetDefault("PAYMENT_MODE", "inicis")
	viper.SetDefault("INICIS_MID", "INIpayTest")
	viper.SetDefault("INICIS_SIGN_KEY", "SU5JTElURV9UUklQTEVERVNfS0VZU1RS")
	viper.SetDefault("INICIS_PAY_URL", "https://stgstdpay.inicis.com/stdpay/INIpayStdPayRequest.do")
	viper.SetDefault("INICIS_REFUND_URL", "https://iniapi.inicis.com/api/v1/refund")
	viper.SetDefault("NICEPAY_MID", "nicepay00m")
	viper.SetDefault("NICEPAY_PAY_URL", "https://web.nicepay.co.kr/v3/v3Payment.jsp")
	viper.SetDefault("NICEPAY_CANCEL_URL", "https://webapi.nicepay.co.kr/webapi/cancel_process.jsp")

	expiry, err := time.ParseDuration(viper.GetString("JWT_EXPIRY"))
	if err != nil {
		expiry = 24 * time.Hour
	}
	orderExpiry, err := time.ParseDuration(viper.GetString("ORDER_EXPIRY"))
	if err != nil {
		orderExpiry = 30 * time.Minute
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetInt("APP_PORT"),
			Env:  viper.GetString("APP_ENV"),
		},
		Database: DatabaseConfig{
			Host:    viper.GetString("DB_HOST"),
			Port:    viper.GetString("DB_PORT"),
			Name:    viper.GetString("DB_NAME"),
			User:    viper.GetString("DB_USER"),
			Pass:    viper.GetString("DB_PASS"),
			Charset: viper.GetString("DB_CHARSET"),
		},
		Redis: RedisConfig{
			Addr: viper.GetString("REDIS_ADDR"),
			Pass: viper.GetString("REDIS_PASS"),
			DB:   viper.GetInt("REDIS_DB"),
		},
		App: AppConfig{
			BaseURL:       viper.GetString("APP_BASE_URL"),
			MinCardAmount: viper.GetInt64("MIN_CARD_AMOUNT"),
			OrderExpiry:   orderExpiry,
		},
		Payment: PaymentConfig{
			Mode: viper.GetString("PAYMENT_MODE"),
			Inicis: InicisConfig{
				MerchantID: viper.GetString("INICIS_MID"),
				SignKey:    viper.GetString("INICIS_SIGN_KEY"),
				APIKey:     viper.GetString("INICIS_API_KEY"),
				PayURL:     viper.GetString("INICIS_PAY_URL"),
				RefundURL:  viper.GetString("INICIS_REFUND_URL"),
			},
			Nicepay: NicepayConfig{
				MerchantID:  viper.GetString("NICEPAY_MID"),
				MerchantKey: viper.GetString("NICEPAY_MERCHANT_KEY"),
				PayURL:      viper.GetString("NICEPAY_PAY_URL"),
				CancelURL:   viper.GetString("NICEPAY_CANCEL_URL"),
			},
		},
		JWT: JWTConfig{
			Secret: viper.GetString("JWT_SECRET"),
			Expiry: expiry,
		},
	}

	if cfg.Database.Name == "" {
		log.Println("WARNING: DB_NAME is not set")
	}
	if cfg.JWT.Secret == "" {
		log.Println("WARNING: JWT_SECRET is not set")
	}

	return cfg, nil
}

// LoadDatabaseOnly loads just the database settings, for the bootstrap CLI path.
func LoadDatabaseOnly() (*DatabaseConfig, error) {
	_ = godotenv.Load()
	viper.AutomaticEnv()
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "3306")
	viper.SetDefault("DB_CHARSET", "utf8mb4")

	return &DatabaseConfig{
		Host:    viper.GetString("DB_HOST"),
		Port:    viper.GetString("DB_PORT"),
		Name:    viper.GetString("DB_NAME"),
		User:    viper.GetString("DB_USER"),
		Pass:    viper.GetString("DB_PASS"),
		Charset: viper.GetString("DB_CHARSET"),
	}, nil
}

// DSN returns the MySQL DSN string for GORM.
func (d *DatabaseConfig) DSN() string {
	return d.User + ":" + d.Pass + "@tcp(" + d.Host + ":" + d.Port + ")/" + d.Name + "?charset=" + d.Charset + "&parseTime=True&loc=Local"
}
