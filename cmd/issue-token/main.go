package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/nccrd-api/internal/models"
	"github.com/noah-isme/nccrd-api/internal/service"
	"github.com/noah-isme/nccrd-api/pkg/config"
)

func main() {
	subject := flag.String("sub", "", "token subject, recorded in audit fields")
	name := flag.String("name", "", "display name")
	scopes := flag.String("scopes", models.ScopeSubmissionRead, "comma separated scopes")
	ttl := flag.Duration("ttl", 0, "token lifetime (defaults to JWT_EXPIRATION)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	expiry := cfg.JWT.Expiration
	if *ttl > 0 {
		expiry = *ttl
	}

	auth := service.NewAuthService(validator.New(), nil, service.AuthConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		Expiry: expiry,
	})
	var list []string
	for _, s := range strings.Split(*scopes, ",") {
		if s = strings.TrimSpace(s); s != "" {
			list = append(list, s)
		}
	}

	token, expiresAt, err := auth.IssueToken(models.IssueTokenRequest{Subject: *subject, Name: *name, Scopes: list})
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}
	fmt.Println(token)
	log.Printf("expires at %s", expiresAt.Format(time.RFC3339))
}
