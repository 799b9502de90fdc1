package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"telegram-digital-shop/internal/config"
	"telegram-digital-shop/internal/domain/model"
	"telegram-digital-shop/internal/domain/ports/repository"
	"telegram-digital-shop/internal/infra/api"
	pg "telegram-digital-shop/internal/infra/db/postgres"
	"telegram-digital-shop/internal/infra/logging"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	mintToken := flag.String("admin-token", "", "print an admin API token for this operator name and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(cfg.Log, true)

	if *mintToken != "" {
		auth, err := api.NewAuthManager(cfg.Admin.JWTSecret, cfg.Admin.TokenTTL)
		if err != nil {
			logger.Fatal().Err(err).Msg("admin auth")
		}
		tok, err := auth.Mint(*mintToken)
		if err != nil {
			logger.Fatal().Err(err).Msg("mint token")
		}
		fmt.Println(tok)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	items := pg.NewItemRepo(pool)

	existing, err := items.ListVisible(ctx, repository.NoTX, 1)
	if err != nil {
		logger.Fatal().Err(err).Msg("list items")
	}
	if len(existing) > 0 {
		fmt.Println("catalog already has items. No changes.")
		return
	}

	seed := []struct {
		ID, Title, Scenario string
		Price               int64
		Discount            int
	}{
		{"netflix", "Netflix Premium, 1 месяц", "account", 999, 0},
		{"spotify", "Spotify Premium, 3 месяца", "account", 1290, 10},
		{"steam-500", "Steam, пополнение 500", "phone", 560, 0},
	}
	for _, s := range seed {
		it, err := model.NewItem(s.ID, s.Title, s.Scenario, s.Price, s.Discount)
		if err != nil {
			logger.Fatal().Err(err).Str("item", s.ID).Msg("build item")
		}
		if err := items.Save(ctx, repository.NoTX, it); err != nil {
			logger.Fatal().Err(err).Str("item", s.ID).Msg("save item")
		}
		fmt.Printf("seeded: %s (%s, price=%d, discount=%d%%)\n", it.ID, it.Title, s.Price, s.Discount)
	}
	fmt.Println("Seeding complete.")
}
