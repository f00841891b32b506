package main

import (
	"flag"
	"log"

	"github.com/shopit-io/shopit/internal/api"
	"github.com/shopit-io/shopit/internal/auth"
	"github.com/shopit-io/shopit/internal/config"
	"github.com/shopit-io/shopit/internal/database"
	"github.com/shopit-io/shopit/internal/mail"
	"github.com/shopit-io/shopit/internal/media"
	"github.com/shopit-io/shopit/internal/models"
)

const version = "0.1.0"

func initializeAPI(configPath string) (*api.Api, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	store := database.NewUserStore(db, cfg.Database.Type)

	var uploader auth.AvatarUploader
	if cfg.Media.Enabled {
		client, err := media.NewClient(
			cfg.Media.Endpoint,
			cfg.Media.Region,
			cfg.Media.Bucket,
			cfg.Media.AccessKeyID,
			cfg.Media.SecretAccessKey,
		)
		if err != nil {
			return nil, err
		}
		uploader = client
	} else {
		log.Println("Media host disabled; registrations will use the default avatar")
	}

	var mailer mail.Mailer
	if cfg.Mail.Enabled {
		mailer = mail.NewSMTPMailer(
			cfg.Mail.Host,
			cfg.Mail.Port,
			cfg.Mail.Username,
			cfg.Mail.Password,
			cfg.Mail.From,
		)
	} else {
		log.Println("Mail disabled; password-reset emails cannot be sent")
	}

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	service := auth.NewService(store, tokenManager, uploader, mailer, auth.Options{
		DefaultAvatar: models.Avatar{
			PublicID: cfg.Avatar.DefaultPublicID,
			URL:      cfg.Avatar.DefaultURL,
		},
		ResetTokenTTL:   cfg.Auth.ResetTokenTTL,
		FrontendBaseURL: cfg.FrontendBaseURL,
	})

	return api.NewApi(cfg, service, tokenManager), nil
}

func main() {
	configPath := flag.String("config", "app.yml", "Path to configuration file")
	flag.Parse()

	log.Printf("Starting ShopIT API v%s with config: %s", version, *configPath)

	apiServer, err := initializeAPI(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	log.Fatal(apiServer.Serve())
}
