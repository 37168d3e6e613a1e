package config

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/amberops/ambulance-dispatch-api/models"
)

// Config holds the project config values
type Config struct {
	URL            string
	DatabaseName   string
	BaseURL        string
	Port           string
	Environment    string
	JWTSecret      string
	TokenTTL       time.Duration
	SendgridAPIKey string
}

// New reads the environment, installs the global zap logger and returns
// the populated config
func New() *Config {
	viper.AutomaticEnv()
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "production")
	viper.SetDefault("TOKEN_TTL", "30m")

	logger, err := setLogger(viper.GetString("ENVIRONMENT"))
	if err != nil {
		logger = zap.NewExample()
	}
	defer logger.Sync()
	_ = zap.ReplaceGlobals(logger)

	ttl, err := time.ParseDuration(viper.GetString("TOKEN_TTL"))
	if err != nil {
		ttl = 30 * time.Minute
	}

	return &Config{
		URL:            viper.GetString("DB_URI"),
		DatabaseName:   viper.GetString("DB_NAME"),
		BaseURL:        viper.GetString("BASE_URL"),
		Port:           viper.GetString("PORT"),
		Environment:    viper.GetString("ENVIRONMENT"),
		JWTSecret:      viper.GetString("JWT_SECRET"),
		TokenTTL:       ttl,
		SendgridAPIKey: viper.GetString("SENDGRID_API_KEY"),
	}
}

func setLogger(environment string) (*zap.Logger, error) {
	switch environment {
	case "development":
		return zap.NewDevelopment()
	case "production":
		return zap.NewProduction()
	default:
		return zap.NewExample(), nil
	}
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// given message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().With("error", err).Error(message)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	resp := models.ErrorMessageResponse{Message: message}
	if err != nil {
		resp.Error = err.Error()
	}
	b, marshalErr := json.Marshal(resp)
	if marshalErr != nil {
		w.Write([]byte(fmt.Sprintf(`{"message": %q}`, message)))
		return
	}
	w.Write(b)
}
