// Command catalog-token mints a bearer token for the catalog write API,
// signed with the same auth.jwtsecret the service is configured with.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"MiniCatalog/internal/catalog"
	"MiniCatalog/internal/config"
	"MiniCatalog/pkg/kit"
)

func main() {
	subject := flag.String("sub", "ops", "token subject")
	role := flag.String("role", catalog.RoleAdmin, "role claim")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := kit.NewLogger("catalog-token", cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	if cfg.Auth.JWTSecret == "" {
		log.Fatal("auth.jwtsecret is not configured")
	}

	tok, err := kit.NewTokenMaker(cfg.Auth.JWTSecret).New(*subject, *role, *ttl)
	if err != nil {
		log.Fatal("sign token failed", zap.Error(err))
	}

	log.Info("token issued", zap.String("sub", *subject), zap.String("role", *role), zap.Duration("ttl", *ttl))
	fmt.Println(tok)
}
