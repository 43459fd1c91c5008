// Package main, destek backend uygulamasının giriş noktasıdır.
//
// Bu dosyanın görevi — Dependency Injection "wire-up":
//  1. Config'i yükle
//  2. Database'i başlat
//  3. Repository'leri oluştur (DB bağlantısı ile)
//  4. Store katmanını kur (broker + canlı abonelik yüzeyi)
//  5. Service'leri oluştur (repository'ler + broker ile)
//  6. Operatör hesabını bootstrap et
//  7. WebSocket Hub'ı başlat
//  8. Handler'ları oluştur (service'ler ile)
//  9. Middleware'ları oluştur
// 10. HTTP router'ı kur, route'ları bağla
// 11. CORS yapılandır
// 12. HTTP Server'ı başlat
// 13. Graceful shutdown
//
// Global değişken YOK — her şey bu fonksiyonda oluşturulup birbirine bağlanıyor.
package main

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/akinalp/destek/config"
	"github.com/akinalp/destek/database"
	"github.com/akinalp/destek/handlers"
	"github.com/akinalp/destek/middleware"
	"github.com/akinalp/destek/pkg/ratelimit"
	"github.com/akinalp/destek/repository"
	"github.com/akinalp/destek/services"
	"github.com/akinalp/destek/static"
	"github.com/akinalp/destek/store"
	"github.com/akinalp/destek/ws"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("[main] destek server starting...")

	// ─── 1. Config ───
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[main] failed to load config: %v", err)
	}
	log.Printf("[main] config loaded (port=%d, reconcile=%s)", cfg.Server.Port, cfg.Chat.ReconcilePolicy)

	// ─── 2. Database ───
	// Migration'lar binary'ye gömülüdür — deploy'da ayrı dosya taşınmaz.
	db, err := database.New(cfg.Database.Path, database.EmbeddedMigrations)
	if err != nil {
		log.Fatalf("[main] failed to initialize database: %v", err)
	}
	defer db.Close()

	// ─── 3. Repository Layer ───
	userRepo := repository.NewSQLiteUserRepo(db.Conn)
	convRepo := repository.NewSQLiteConversationRepo(db.Conn)
	msgRepo := repository.NewSQLiteMessageRepo(db.Conn)

	// ─── 4. Store Layer ───
	//
	// Broker, yazma yollarının commit sonrası yayınladığı değişim
	// event'lerini dağıtır. Store, bu sinyallerin üstünde widget ve
	// konsolun tükettiği canlı abonelik yüzeyini kurar.
	broker := store.NewBroker()
	st := store.New(convRepo, msgRepo, broker)

	// ─── 5. Service Layer ───
	authService := services.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	chatService := services.NewChatService(db.Conn, convRepo, msgRepo, broker, cfg.Chat.ReconcilePolicy)

	// ─── 6. Operatör Bootstrap ───
	// OPERATOR_PASSWORD boşsa atlanır — mevcut hesapla çalışılıyordur.
	if cfg.Operator.Password != "" {
		if err := authService.EnsureOperator(context.Background(), cfg.Operator.Username, cfg.Operator.Password); err != nil {
			log.Fatalf("[main] failed to bootstrap operator account: %v", err)
		}
	}

	// ─── 7. WebSocket Hub ───
	// Hub bağlantı kayıt defteridir; gerçek zamanlı veri dağıtımını
	// client başına açılan widget/console session'ları yapar.
	hub := ws.NewHub()
	go hub.Run()

	// ─── 8. Handler Layer ───
	//
	// loginLimiter: IP başına 2 dakikada 5 deneme — operatör girişinde
	// brute-force'u, ziyaretçi oturumunda kayıt selini keser.
	// msgLimiter: kullanıcı başına 5 saniyede 5 mesaj, aşımda 15sn ceza.
	loginLimiter := ratelimit.NewLoginRateLimiter(5, 2*time.Minute)
	msgLimiter := ratelimit.NewMessageRateLimiter(5, 5*time.Second, 15*time.Second)

	authHandler := handlers.NewAuthHandler(authService, loginLimiter)
	convHandler := handlers.NewConversationHandler(chatService)
	presenceHandler := handlers.NewPresenceHandler(hub)
	wsHandler := ws.NewHandler(hub, authService, chatService, st, msgLimiter)

	// ─── 9. Middleware ───
	authMiddleware := middleware.NewAuthMiddleware(authService, userRepo)

	// ─── 10. HTTP Router ───
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","service":"destek"}`)
	})

	// Auth — public endpoint'ler (token gerekmez)
	mux.HandleFunc("POST /api/session", authHandler.StartSession)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Protected endpoint'ler — authMiddleware.Require() sarar
	mux.Handle("GET /api/users/me", authMiddleware.Require(http.HandlerFunc(authHandler.Me)))

	// Conversations — operatör konsolunun snapshot okumaları
	mux.Handle("GET /api/conversations", authMiddleware.Require(
		authMiddleware.RequireOperator(http.HandlerFunc(convHandler.List))))
	mux.Handle("GET /api/conversations/{id}/messages", authMiddleware.Require(
		authMiddleware.RequireOperator(http.HandlerFunc(convHandler.Messages))))

	// Presence — hangi ziyaretçiler şu an bağlı (konsol yan paneli)
	mux.Handle("GET /api/presence", authMiddleware.Require(
		authMiddleware.RequireOperator(http.HandlerFunc(presenceHandler.Online))))

	// Static frontend — binary'ye gömülü build varsa servis edilir.
	// index.html yoksa development modundayız: frontend'i dev server sunar.
	distFS, err := fs.Sub(static.FrontendFS, "dist")
	if err != nil {
		log.Fatalf("[main] failed to open embedded frontend: %v", err)
	}
	if _, err := fs.Stat(distFS, "index.html"); err == nil {
		fileServer := http.FileServer(http.FS(distFS))
		mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// SPA fallback: dosya yoksa index.html servis edilir —
			// client-side router derin linkleri kendisi çözer.
			if _, err := fs.Stat(distFS, strings.TrimPrefix(r.URL.Path, "/")); err != nil {
				http.ServeFileFS(w, r, distFS, "index.html")
				return
			}
			fileServer.ServeHTTP(w, r)
		}))
	}

	// WebSocket — token query parameter ile authenticate edilir
	//
	// Neden auth middleware kullanmıyoruz?
	// WebSocket upgrade sırasında tarayıcılar custom HTTP header gönderemez.
	// Bu yüzden JWT token URL query parameter olarak gönderilir:
	//   ws://server/ws?token=JWT_TOKEN
	// WS handler kendi içinde token doğrulaması yapar.
	mux.HandleFunc("GET /ws", wsHandler.HandleConnection)

	// ─── 11. CORS ───
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:3000", // Widget dev server
			"http://localhost:5173", // Konsol dev server
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		Debug:            false,
	})

	handler := corsHandler.Handler(mux)

	// ─── 12. HTTP Server ───
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ─── 13. Graceful Shutdown ───
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("[main] server listening on %s", cfg.Server.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[main] server error: %v", err)
		}
	}()

	<-done
	log.Println("[main] shutting down...")

	// Önce WebSocket bağlantılarını kapat — session'lar aboneliklerini
	// söker. Sonra HTTP server'ı kapat — yeni request kabul etmeyi
	// durdurur, mevcut request'lerin bitmesini bekler (5sn timeout).
	hub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("[main] forced shutdown: %v", err)
	}

	log.Println("[main] server stopped gracefully")
}
