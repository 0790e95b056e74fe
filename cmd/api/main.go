package main

import (
	"io"
	"log"
	"os"
	"time"

	"github.com/contarehq/erp-backend/internal/config"
	"github.com/contarehq/erp-backend/internal/logging"
	"github.com/contarehq/erp-backend/internal/repository/postgres"
	"github.com/contarehq/erp-backend/internal/service"
	transporthttp "github.com/contarehq/erp-backend/internal/transport/http"
	"github.com/contarehq/erp-backend/internal/transport/mail"
	"github.com/contarehq/erp-backend/internal/transport/whatsapp"
	"github.com/contarehq/erp-backend/internal/util"
)

func main() {
	cfg := config.Load()

	if cfg.LogstashTCPAddr != "" {
		writer, err := logging.NewLogstashWriter(cfg.LogstashTCPAddr)
		if err != nil {
			log.Printf("logstash disabled: %v", err)
		} else {
			defer writer.Close()
			log.SetOutput(io.MultiWriter(os.Stdout, writer))
		}
	}

	db, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer db.Close()

	sessionTTL := 24 * time.Hour
	if v, err := time.ParseDuration(cfg.SessionTTL); err == nil && v > 0 {
		sessionTTL = v
	}

	users := postgres.NewUserRepo(db)
	roles := postgres.NewRoleRepo(db)
	sessions := postgres.NewSessionRepo(db)
	resets := postgres.NewPasswordResetRepo(db)

	jwtManager := util.NewJWTManager(cfg.JWTSecret, sessionTTL)
	authService := service.NewAuthService(users, roles, sessions, jwtManager)

	var waSender service.WhatsAppSender
	if cfg.WhatsAppAPIURL != "" {
		waSender = whatsapp.NewClient(cfg.WhatsAppAPIURL, cfg.WhatsAppAPIToken, cfg.WhatsAppSender)
	}
	mailer := mail.NewPasswordResetMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	resetService := service.NewPasswordResetService(users, resets, waSender, mailer, cfg.PasswordResetTTL)

	e := transporthttp.NewRouter(cfg.AllowOrigins)
	transporthttp.NewAuthHandler(authService).Register(e)

	limiter := transporthttp.NewRateLimiter(cfg.ResetRateLimit, cfg.ResetRateWindow)
	transporthttp.NewResetHandler(resetService, limiter, !cfg.IsProduction()).Register(e)

	transporthttp.RegisterSwagger(e)

	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
