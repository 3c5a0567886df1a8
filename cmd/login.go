package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/classdesk/session-gateway/internal/backend"
	"github.com/classdesk/session-gateway/internal/config"
	"github.com/classdesk/session-gateway/internal/enrich"
	"github.com/classdesk/session-gateway/internal/login"
	"github.com/classdesk/session-gateway/internal/login/oauth"
	logintypes "github.com/classdesk/session-gateway/internal/login/types"
	"github.com/classdesk/session-gateway/internal/monitoring"
	"github.com/classdesk/session-gateway/internal/session"
	"github.com/classdesk/session-gateway/internal/token"
)

// runLoginCommand performs one login cycle from the terminal and prints the
// signed session token, for use against the backend from scripts and tools.
func runLoginCommand(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	configPath := fs.String("config", "session-gateway.yaml", "path to config file")
	useOAuth := fs.Bool("oauth", false, "sign in via the OAuth provider instead of username/password")
	username := fs.String("username", "", "login identifier (prompted when empty)")
	_ = fs.Parse(args)

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("login: failed to load config")
	}

	metrics := monitoring.NewMetricsCollector()
	client := backend.NewClient(backend.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout,
	})
	enricher := enrich.New(client, cfg.Enrichment.CacheTTL, metrics)
	defer enricher.Stop()

	assembler := session.NewAssembler(session.AssemblerConfig{
		Exchangers: login.SetupRegistry(client),
		Enricher:   enricher,
		Metrics:    metrics,
	})

	codec, err := token.NewCodec(token.Config{
		SigningSecret: cfg.Session.SigningSecret,
		TTL:           cfg.Session.TokenTTL,
		Issuer:        cfg.Session.Issuer,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("login: failed to build token codec")
	}

	ctx := context.Background()

	var attempt logintypes.Attempt
	if *useOAuth {
		attempt = oauthAttempt(ctx, cfg)
	} else {
		attempt = credentialAttempt(*username)
	}

	rec := assembler.Login(ctx, session.Record{}, attempt)
	if !rec.State.Usable() {
		fmt.Fprintf(os.Stderr, "login failed: %s\n", rec.LastErrorText)
		os.Exit(1)
	}

	signed, err := codec.Sign(rec)
	if err != nil {
		log.Fatal().Err(err).Msg("login: failed to sign session token")
	}

	fmt.Fprintf(os.Stderr, "signed in as %s (role=%s status=%s state=%s)\n",
		rec.SubjectID, rec.Role, rec.AccountStatus, rec.State)
	fmt.Println(signed)
}

// credentialAttempt gathers username/password from flags and the terminal.
// The password is read without echo.
func credentialAttempt(username string) logintypes.Attempt {
	reader := bufio.NewReader(os.Stdin)

	if username == "" {
		fmt.Fprint(os.Stderr, "Email: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			log.Fatal().Err(err).Msg("login: failed to read identifier")
		}
		username = strings.TrimSpace(line)
	}

	fmt.Fprint(os.Stderr, "Password: ")
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		log.Fatal().Err(err).Msg("login: failed to read password")
	}

	return logintypes.CredentialLogin{
		Identifier: username,
		Secret:     string(secret),
	}
}

// oauthAttempt runs the relay flow: connect, hand the authorize URL to the
// user, and wait for the backend to push the authorization result after
// browser consent.
func oauthAttempt(ctx context.Context, cfg *config.Config) logintypes.Attempt {
	relay, err := oauth.NewRelayClient(cfg.OAuth.RelayURL, cfg.OAuth.ClientID, cfg.OAuth.Scopes)
	if err != nil {
		log.Fatal().Err(err).Msg("login: failed to create relay client")
	}
	defer func() { _ = relay.Close() }()

	authorizeURL, err := relay.Connect(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("login: failed to connect to auth relay")
	}

	fmt.Fprintf(os.Stderr, "Open this URL in your browser to sign in:\n\n  %s\n\nWaiting for authorization...\n", authorizeURL)

	waitCtx, cancel := context.WithTimeout(ctx, config.DefaultRelayTimeout)
	defer cancel()

	result, err := relay.WaitForAuthorization(waitCtx)
	if err != nil {
		log.Fatal().Err(err).Msg("login: authorization did not complete")
	}
	return result
}
