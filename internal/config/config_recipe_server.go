// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"dario.cat/mergo"

	"github.com/MKhiriev/go-recipe-sync/internal/crypto"
)

// Defaults of the development recipe server.
const (
	DefaultRecipeServerAddress = ":8080"
	DefaultTokenIssuer         = "go-recipe-sync"
	DefaultTokenTTL            = time.Hour
)

// ErrInvalidRecipeServerConfigs indicates a missing sign key or malformed
// user list.
var ErrInvalidRecipeServerConfigs = errors.New("invalid recipe server configuration")

// RecipeServer configures the in-process recipe server used for local
// development and end-to-end tests.
type RecipeServer struct {
	// Address is the listen address, e.g. ":8080".
	// Env: RUN_ADDRESS
	Address string `env:"RUN_ADDRESS"`

	// SignKey is the HS256 key tokens are signed with.
	// Env: TOKEN_SIGN_KEY
	SignKey string `env:"TOKEN_SIGN_KEY"`

	// TokenIssuer is the iss claim of issued tokens.
	// Env: TOKEN_ISSUER
	TokenIssuer string `env:"TOKEN_ISSUER"`

	// TokenTTL is the lifetime of issued tokens.
	// Env: TOKEN_TTL
	TokenTTL time.Duration `env:"TOKEN_TTL"`

	// Users lists accounts as "name:password" pairs. The password may be an
	// encoded argon2id hash. An empty list accepts any credentials.
	// Env: USERS (semicolon separated; hashes contain commas)
	Users []string `env:"USERS" envSeparator:";"`
}

// Accounts returns Users as a name to password map.
func (cfg *RecipeServer) Accounts() map[string]string {
	accounts := make(map[string]string, len(cfg.Users))
	for _, pair := range cfg.Users {
		name, password, _ := strings.Cut(pair, ":")
		accounts[name] = password
	}
	return accounts
}

// GetRecipeServerConfig merges env and flags (env wins), applies defaults
// and validates the result.
func GetRecipeServerConfig() (*RecipeServer, error) {
	envCfg := &RecipeServer{}
	if err := parseEnv(envCfg); err != nil {
		return nil, err
	}

	flagCfg, err := parseRecipeServerFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		return nil, err
	}

	return newRecipeServerConfig(envCfg, flagCfg)
}

func newRecipeServerConfig(sources ...*RecipeServer) (*RecipeServer, error) {
	cfg := &RecipeServer{}
	for _, src := range sources {
		if err := mergo.Merge(cfg, src); err != nil {
			return nil, fmt.Errorf("error merging configs: %w", err)
		}
	}

	cfg.Address = orString(cfg.Address, DefaultRecipeServerAddress)
	cfg.TokenIssuer = orString(cfg.TokenIssuer, DefaultTokenIssuer)
	cfg.TokenTTL = orDuration(cfg.TokenTTL, DefaultTokenTTL)

	if cfg.SignKey == "" {
		return nil, fmt.Errorf("%w: empty token sign key", ErrInvalidRecipeServerConfigs)
	}
	for _, pair := range cfg.Users {
		name, password, ok := strings.Cut(pair, ":")
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: user %q is not name:password", ErrInvalidRecipeServerConfigs, pair)
		}
		if strings.HasPrefix(password, crypto.HashPrefix) {
			if _, err := crypto.ParseHash(password); err != nil {
				return nil, fmt.Errorf("%w: user %q: %w", ErrInvalidRecipeServerConfigs, name, err)
			}
		}
	}

	return cfg, nil
}

// parseRecipeServerFlags parses
//
//	-a listen address
//	-k token sign key
//	-token-ttl token lifetime (e.g., "1h")
//	-users semicolon separated name:password pairs
func parseRecipeServerFlags(fs *flag.FlagSet, args []string) (*RecipeServer, error) {
	var address, signKey, users string
	var tokenTTL time.Duration

	fs.StringVar(&address, "a", "", "Listen address")
	fs.StringVar(&signKey, "k", "", "Token sign key")
	fs.DurationVar(&tokenTTL, "token-ttl", 0, "Token lifetime (e.g., 1h)")
	fs.StringVar(&users, "users", "", "Accounts as name:password, semicolon separated")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := &RecipeServer{
		Address:  address,
		SignKey:  signKey,
		TokenTTL: tokenTTL,
	}
	for pair := range strings.SplitSeq(users, ";") {
		if pair = strings.TrimSpace(pair); pair != "" {
			cfg.Users = append(cfg.Users, pair)
		}
	}
	return cfg, nil
}
