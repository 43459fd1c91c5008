// Package config, uygulamanın tüm konfigürasyonunu merkezi olarak yönetir.
// Environment variable'lardan okur, .env dosyasını da destekler.
//
// Her yerde ayrı ayrı os.Getenv() çağırmak yerine tek bir Config nesnesi
// taşınır — tüm ayarlar tek yerde toplanır.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// ReconcilePolicy, yarım kalan ilk temas gönderimi sonrası boş kalan
// konuşma kaydına ne yapılacağını belirler.
type ReconcilePolicy string

const (
	// ReconcileReuse: boş konuşma bir sonraki gönderimde yeniden kullanılır.
	// Deterministik ID türetimi sayesinde ek iş gerektirmez (varsayılan).
	ReconcileReuse ReconcilePolicy = "reuse"
	// ReconcileCleanup: mesaj insert'i başarısız olursa pipeline'ın bu
	// gönderimde oluşturduğu boş konuşma kaydı hemen silinir.
	ReconcileCleanup ReconcilePolicy = "cleanup"
)

// Config, uygulamanın tüm konfigürasyon değerlerini taşır.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Chat     ChatConfig
	Operator OperatorConfig
}

// ServerConfig, HTTP server ayarları.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig, SQLite database ayarları.
type DatabaseConfig struct {
	Path string // SQLite dosya yolu (ör: ./data/destek.db)
}

// JWTConfig, JWT token ayarları.
type JWTConfig struct {
	Secret            string // Token imzalama anahtarı — gizli tutulmalı
	AccessTokenExpiry int    // Saat cinsinden (varsayılan: 24)
}

// ChatConfig, chat çekirdeği ayarları.
type ChatConfig struct {
	ReconcilePolicy ReconcilePolicy
}

// OperatorConfig, açılışta oluşturulacak operatör hesabının bilgileri.
// Password boş bırakılırsa bootstrap atlanır.
type OperatorConfig struct {
	Username string
	Password string
}

// Load, environment variable'lardan Config oluşturur.
// .env dosyası varsa önce onu yükler; dosya yoksa sessizce devam eder.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("SERVER_PORT", "9090"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	accessExpiry, err := strconv.Atoi(getEnv("JWT_ACCESS_EXPIRY_HOURS", "24"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_ACCESS_EXPIRY_HOURS: %w", err)
	}

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	policy := ReconcilePolicy(getEnv("CHAT_RECONCILE_POLICY", string(ReconcileReuse)))
	if policy != ReconcileReuse && policy != ReconcileCleanup {
		return nil, fmt.Errorf("invalid CHAT_RECONCILE_POLICY: %q (must be reuse or cleanup)", policy)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "./data/destek.db"),
		},
		JWT: JWTConfig{
			Secret:            jwtSecret,
			AccessTokenExpiry: accessExpiry,
		},
		Chat: ChatConfig{
			ReconcilePolicy: policy,
		},
		Operator: OperatorConfig{
			Username: getEnv("OPERATOR_USERNAME", "admin"),
			Password: getEnv("OPERATOR_PASSWORD", ""),
		},
	}

	return cfg, nil
}

// Addr, HTTP server'ın dinleyeceği adresi döner (ör: "0.0.0.0:9090").
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv, environment variable'ı okur, yoksa fallback değeri döner.
func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
