package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	MongoDB  MongoDBConfig
	JWT      JWTConfig
	Engine   EngineConfig
	LogLevel string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	AllowedHosts []string
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI      string
	Database string
}

// JWTConfig holds JWT-specific configuration for the admin endpoints
type JWTConfig struct {
	Secret    string
	ExpiresIn int // seconds
}

// EngineConfig holds the financial-engine rates and windows. All rates
// are fractions (0.21 means 21%).
type EngineConfig struct {
	AdminFeeRate             float64
	LifeInsuranceRate        float64
	SubscriptionRightRate    float64
	VATRate                  float64
	ReserveAdminFeeShare     float64
	ReserveSubscriptionShare float64
	SaleCommissionRate       float64
	BuyerCommissionRate      float64
	BuyerDefaultPenaltyRate  float64
	ExitPenaltyRate          float64
	RetentionSurchargeRate   float64
	BidIncrementRate         float64
	BidFloorInstallments     int
	RafflesPerPeriod         int
	BidsPerPeriod            int
	MinPaidForListing        int
	MinPaidForBidding        int
	AcceptanceWindow         time.Duration
	SettlementWindow         time.Duration
	GuaranteeWindow          time.Duration
	AuctionWindow            time.Duration
	RetryAttempts            int
	RetryBaseBackoff         time.Duration
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional; environment variables and defaults apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default values for configuration
func setDefaults() {
	viper.SetDefault("Server.Port", "4000")
	viper.SetDefault("Server.AllowedHosts", []string{"localhost:3000"})
	viper.SetDefault("MongoDB.URI", "mongodb://localhost:27017")
	viper.SetDefault("MongoDB.Database", "groupdreaming")
	viper.SetDefault("JWT.ExpiresIn", 24*60*60) // 24 hours
	viper.SetDefault("LogLevel", "info")

	viper.SetDefault("Engine.AdminFeeRate", 0.10)
	viper.SetDefault("Engine.LifeInsuranceRate", 0.0008)
	viper.SetDefault("Engine.SubscriptionRightRate", 0.02)
	viper.SetDefault("Engine.VATRate", 0.21)
	viper.SetDefault("Engine.ReserveAdminFeeShare", 0.5)
	viper.SetDefault("Engine.ReserveSubscriptionShare", 0.5)
	viper.SetDefault("Engine.SaleCommissionRate", 0.02)
	viper.SetDefault("Engine.BuyerCommissionRate", 0.02)
	viper.SetDefault("Engine.BuyerDefaultPenaltyRate", 0.10)
	viper.SetDefault("Engine.ExitPenaltyRate", 0.05)
	viper.SetDefault("Engine.RetentionSurchargeRate", 0.05)
	viper.SetDefault("Engine.BidIncrementRate", 0.03)
	viper.SetDefault("Engine.BidFloorInstallments", 2)
	viper.SetDefault("Engine.RafflesPerPeriod", 1)
	viper.SetDefault("Engine.BidsPerPeriod", 1)
	viper.SetDefault("Engine.MinPaidForListing", 3)
	viper.SetDefault("Engine.MinPaidForBidding", 2)
	viper.SetDefault("Engine.AcceptanceWindow", 48*time.Hour)
	viper.SetDefault("Engine.SettlementWindow", 24*time.Hour)
	viper.SetDefault("Engine.GuaranteeWindow", 72*time.Hour)
	viper.SetDefault("Engine.AuctionWindow", 7*24*time.Hour)
	viper.SetDefault("Engine.RetryAttempts", 5)
	viper.SetDefault("Engine.RetryBaseBackoff", 50*time.Millisecond)
}
